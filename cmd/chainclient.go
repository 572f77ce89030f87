package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ewsdk/wallet-core/global"
)

// chainClient is a minimal JSON-RPC 2.0 client against a plain Ethereum
// node endpoint (as distinct from bundlerclient.Client, which speaks the
// ERC-4337 bundler's extended method set). It exists purely to satisfy the
// builder's EthClient interface and the smart wallet facade's ChainReader
// interface for this CLI's own demo use, the same resty-adapter shape
// authclient and bundlerclient already use.
type chainClient struct {
	http *resty.Client
}

func newChainClient() *chainClient {
	return &chainClient{
		http: resty.New().
			SetHostURL(global.Conf.Chain.RPCURL).
			SetTimeout(10 * time.Second).
			SetHeader("Content-Type", "application/json"),
	}
}

type chainRPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type chainRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type chainRPCResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *chainRPCError  `json:"error"`
}

func (c *chainClient) call(ctx context.Context, method string, params ...interface{}) (string, error) {
	var rpcResp chainRPCResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chainRPCRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params}).
		SetResult(&rpcResp).
		Post("/")
	if err != nil {
		return "", fmt.Errorf("chainclient: %s: %w", method, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("chainclient: %s: http %d", method, resp.StatusCode())
	}
	if rpcResp.Error != nil {
		return "", fmt.Errorf("chainclient: %s: %s", method, rpcResp.Error.Message)
	}
	var out string
	if err := json.Unmarshal(rpcResp.Result, &out); err != nil {
		return "", fmt.Errorf("chainclient: %s: decoding result: %w", method, err)
	}
	return out, nil
}

// GetCode implements useroperation.EthClient.
func (c *chainClient) GetCode(ctx context.Context, address string) (string, error) {
	return c.call(ctx, "eth_getCode", address, "latest")
}

// ChainID implements useroperation.EthClient.
func (c *chainClient) ChainID(ctx context.Context) (*big.Int, error) {
	hexResult, err := c.call(ctx, "eth_chainId")
	if err != nil {
		return nil, err
	}
	n, ok := new(big.Int).SetString(strings.TrimPrefix(hexResult, "0x"), 16)
	if !ok {
		return nil, fmt.Errorf("chainclient: invalid chainId %q", hexResult)
	}
	return n, nil
}

// GetNonce implements useroperation.EthClient by reading the EntryPoint's
// per-key nonce via getNonce(sender,key) rather than the account's plain
// transaction count, matching ERC-4337 semantics.
func (c *chainClient) GetNonce(ctx context.Context, entryPoint, account string, key *big.Int) (*big.Int, error) {
	calldata := encodeGetNonce(account, key)
	hexResult, err := c.call(ctx, "eth_call", map[string]string{"to": entryPoint, "data": calldata}, "latest")
	if err != nil {
		return nil, err
	}
	clean := strings.TrimPrefix(hexResult, "0x")
	if clean == "" {
		return big.NewInt(0), nil
	}
	n, ok := new(big.Int).SetString(clean, 16)
	if !ok {
		return nil, fmt.Errorf("chainclient: invalid nonce %q", hexResult)
	}
	return n, nil
}

// Call implements smartwallet.ChainReader.
func (c *chainClient) Call(ctx context.Context, to, data string) (string, error) {
	return c.call(ctx, "eth_call", map[string]string{"to": to, "data": data}, "latest")
}

func encodeGetNonce(sender string, key *big.Int) string {
	const selector = "0x35567e1a" // getNonce(address,uint192)

	addrBytes := hexMustDecode(strings.TrimPrefix(sender, "0x"))
	addrWord := make([]byte, 32)
	copy(addrWord[32-len(addrBytes):], addrBytes)

	keyWord := make([]byte, 32)
	if key != nil {
		kb := key.Bytes()
		copy(keyWord[32-len(kb):], kb)
	}
	return selector + hexEncodeWords(addrWord, keyWord)
}

func hexMustDecode(s string) []byte {
	if len(s)%2 != 0 {
		s = "0" + s
	}
	out := make([]byte, len(s)/2)
	for i := range out {
		hi := hexNibbleVal(s[i*2])
		lo := hexNibbleVal(s[i*2+1])
		out[i] = hi<<4 | lo
	}
	return out
}

func hexNibbleVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}

func hexEncodeWords(words ...[]byte) string {
	const hexdigits = "0123456789abcdef"
	var sb strings.Builder
	for _, w := range words {
		for _, b := range w {
			sb.WriteByte(hexdigits[b>>4])
			sb.WriteByte(hexdigits[b&0x0f])
		}
	}
	return sb.String()
}
