// Package bundlerclient is the JSON-RPC adapter the UserOperation Builder
// (C6) speaks to: the ERC-4337 bundler and its paymaster extension (spec
// §4.6, §6). Every method is a single JSON-RPC 2.0 round trip; retries, if
// any, are the caller's responsibility (spec §7 propagation policy).
package bundlerclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ewsdk/wallet-core/metrics"
	"github.com/ewsdk/wallet-core/types"
	"github.com/go-resty/resty/v2"
)

// Client is a resty-based JSON-RPC 2.0 client against a bundler endpoint.
// An optional client-side rate limiter (see NewWithRateLimiter) throttles
// outgoing calls ahead of the bundler's own limits.
type Client struct {
	http    *resty.Client
	limiter RateLimiter
}

// RateLimiter gates outgoing bundler calls. A nil Client.limiter means no
// client-side throttling (the zero-value Client behaves exactly like one
// built without NewWithRateLimiter).
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// New creates a Client against a bundler JSON-RPC endpoint.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{http: resty.New().SetHostURL(baseURL).SetTimeout(timeout).SetHeader("Content-Type", "application/json")}
}

// NewWithRateLimiter wraps New with client-side throttling.
func NewWithRateLimiter(baseURL string, timeout time.Duration, limiter RateLimiter) *Client {
	c := New(baseURL, timeout)
	c.limiter = limiter
	return c
}

func (c *Client) restyClient() *resty.Client {
	return c.http
}

// HTTPClient exposes the underlying resty client so callers (and this
// package's own test helpers in other packages) can register transport-level
// mocks without a second constructor.
func (c *Client) HTTPClient() *resty.Client {
	return c.http
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call performs one JSON-RPC round trip and decodes the result into out
// (nil to discard it).
func (c *Client) call(ctx context.Context, method string, out interface{}, params ...interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("bundlerclient: rate limiter: %w", err)
		}
	}

	var rpcResp rpcResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params}).
		ExpectContentType("application/json").
		SetResult(&rpcResp).
		Post("/")
	if err != nil {
		metrics.BundlerErrorsTotal.WithLabelValues(method).Inc()
		return fmt.Errorf("%w: %s: %v", types.ErrBundlerError, method, err)
	}
	if resp.IsError() {
		metrics.BundlerErrorsTotal.WithLabelValues(method).Inc()
		return fmt.Errorf("%w: %s: http %d", types.ErrBundlerError, method, resp.StatusCode())
	}
	if rpcResp.Error != nil {
		metrics.BundlerErrorsTotal.WithLabelValues(method).Inc()
		return fmt.Errorf("%w: %s: %s", types.ErrBundlerError, method, rpcResp.Error.Message)
	}
	if out == nil || len(rpcResp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("%w: %s: decoding result: %v", types.ErrBundlerError, method, err)
	}
	return nil
}

// SendUserOperation submits a hexified UserOperation (v0.6 flat shape or
// v0.7 split shape, both JSON-serializable) and returns the userOpHash.
func (c *Client) SendUserOperation(ctx context.Context, hexifiedOp interface{}, entryPoint string) (string, error) {
	var hash string
	err := c.call(ctx, "eth_sendUserOperation", &hash, hexifiedOp, entryPoint)
	return hash, err
}

// EstimateUserOperationGas estimates callGasLimit/verificationGasLimit/
// preVerificationGas (and, for v0.7, the paymaster gas fields) for the
// given op, optionally applying a state override map (used for the ERC-20
// paymaster balance override, spec §4.6).
func (c *Client) EstimateUserOperationGas(ctx context.Context, hexifiedOp interface{}, entryPoint string, stateOverride map[string]types.StateOverride) (*types.GasEstimate, error) {
	var estimate types.GasEstimate
	params := []interface{}{hexifiedOp, entryPoint}
	if len(stateOverride) > 0 {
		params = append(params, stateOverride)
	}
	err := c.callVariadic(ctx, "eth_estimateUserOperationGas", &estimate, params)
	return &estimate, err
}

func (c *Client) callVariadic(ctx context.Context, method string, out interface{}, params []interface{}) error {
	return c.call(ctx, method, out, params...)
}

// GetUserOperationReceipt polls for the mined receipt. A nil result with a
// nil error means "not yet mined" (caller re-polls per spec §4.6 step 7).
func (c *Client) GetUserOperationReceipt(ctx context.Context, userOpHash string) (*types.Receipt, error) {
	var receipt *types.Receipt
	if err := c.call(ctx, "eth_getUserOperationReceipt", &receipt, userOpHash); err != nil {
		return nil, err
	}
	return receipt, nil
}

// GetUserOperationGasPrice queries the bundler-recommended fee fields.
func (c *Client) GetUserOperationGasPrice(ctx context.Context) (*types.GasPrice, error) {
	var price types.GasPrice
	err := c.call(ctx, "thirdweb_getUserOperationGasPrice", &price)
	return &price, err
}

// SponsorUserOperation asks the paymaster to decorate an (unestimated or
// estimated) UserOp, returning its paymaster fields.
func (c *Client) SponsorUserOperation(ctx context.Context, hexifiedOp interface{}, entryPoint string) (*types.PaymasterResult, error) {
	var result types.PaymasterResult
	err := c.call(ctx, "pm_sponsorUserOperation", &result, hexifiedOp, entryPoint)
	return &result, err
}

// ZkPaymasterData requests gasless paymaster parameters for a native
// ZK-Sync transaction.
func (c *Client) ZkPaymasterData(ctx context.Context, tx interface{}) (*types.ZkPaymasterParams, error) {
	var params types.ZkPaymasterParams
	err := c.call(ctx, "zk_paymasterData", &params, tx)
	return &params, err
}

// ZkBroadcastTransaction submits a signed native ZK-Sync EIP-712
// transaction and returns its transaction hash.
func (c *Client) ZkBroadcastTransaction(ctx context.Context, signedTx string) (string, error) {
	var hash string
	err := c.call(ctx, "zk_broadcastTransaction", &hash, signedTx)
	return hash, err
}
