// Package authclient implements component C2, the Auth Server Client: a
// typed request/response surface against the remote identity and
// share-custody service (spec §4.2). It owns share upload/download but no
// concurrency state of its own - every call is a single round trip.
package authclient

import (
	"context"
	"fmt"
	"time"

	"github.com/ewsdk/wallet-core/types"
	"github.com/go-resty/resty/v2"
)

// Client is a resty-based adapter over the auth server's HTTP API.
type Client struct {
	http *resty.Client
}

// New creates a Client against baseURL with the given request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	cl := resty.New().
		SetHostURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: cl}
}

// restyClient exposes the underlying *resty.Client for test setup
// (httpmock activation).
func (c *Client) restyClient() *resty.Client {
	return c.http
}

// HTTPClient exposes the underlying resty client for callers in other
// packages that need to register transport-level mocks (e.g.
// embeddedwallet's tests) without a parallel constructor.
func (c *Client) HTTPClient() *resty.Client {
	return c.http
}

type verifyOtpRequest struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
	Code string `json:"code"`
}

// VerifyOtp completes an OTP identity challenge. kind identifies the
// channel ("email" or "phone"); id is the address/number the code was sent
// to.
func (c *Client) VerifyOtp(ctx context.Context, kind, id, code string) (*types.VerifyResult, error) {
	var result types.VerifyResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(verifyOtpRequest{Kind: kind, ID: id, Code: code}).
		SetResult(&result).
		Post("/v1/auth/otp/verify")
	if err != nil {
		return nil, fmt.Errorf("authclient: verify otp request: %w", err)
	}
	if resp.IsError() {
		return nil, handleVerifyOtpError(resp)
	}
	return &result, nil
}

// FetchUserDetails returns the server-reported wallet status for the
// bearer token's owner.
func (c *Client) FetchUserDetails(ctx context.Context, token string) (*types.UserWallet, error) {
	var result types.UserWallet
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		ExpectContentType("application/json").
		SetResult(&result).
		Get("/v1/wallet/me")
	if err != nil {
		return nil, fmt.Errorf("authclient: fetch user details request: %w", err)
	}
	if resp.IsError() {
		return nil, handleError(resp)
	}
	return &result, nil
}

type storeSharesRequest struct {
	Address                string `json:"address"`
	AuthShare               string `json:"authShare"`
	EncryptedRecoveryShare  string `json:"encryptedRecoveryShare"`
}

// StoreAddressAndShares uploads the newly derived address and the two
// server-held shares during enrollment. Returns types.ErrConflict if the
// account is already enrolled.
func (c *Client) StoreAddressAndShares(ctx context.Context, token, address, authShare, encryptedRecoveryShare string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(storeSharesRequest{
			Address:               address,
			AuthShare:             authShare,
			EncryptedRecoveryShare: encryptedRecoveryShare,
		}).
		Post("/v1/wallet/shares")
	if err != nil {
		return fmt.Errorf("authclient: store shares request: %w", err)
	}
	if resp.IsError() {
		return handleError(resp)
	}
	return nil
}

type sharesResponse struct {
	AuthShare              string `json:"authShare"`
	EncryptedRecoveryShare string `json:"encryptedRecoveryShare"`
}

// FetchAuthAndRecoveryShares retrieves both server-held shares for the
// recovery path.
func (c *Client) FetchAuthAndRecoveryShares(ctx context.Context, token string) (authShare, encryptedRecoveryShare string, err error) {
	var result sharesResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		ExpectContentType("application/json").
		SetResult(&result).
		Get("/v1/wallet/shares")
	if err != nil {
		return "", "", fmt.Errorf("authclient: fetch shares request: %w", err)
	}
	if resp.IsError() {
		return "", "", handleError(resp)
	}
	return result.AuthShare, result.EncryptedRecoveryShare, nil
}

type authShareResponse struct {
	AuthShare string `json:"authShare"`
}

// FetchAuthShare retrieves only the auth share, used on re-login when the
// device already holds its own share.
func (c *Client) FetchAuthShare(ctx context.Context, token string) (string, error) {
	var result authShareResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		ExpectContentType("application/json").
		SetResult(&result).
		Get("/v1/wallet/shares/auth")
	if err != nil {
		return "", fmt.Errorf("authclient: fetch auth share request: %w", err)
	}
	if resp.IsError() {
		return "", handleError(resp)
	}
	return result.AuthShare, nil
}

type siwePayloadResponse struct {
	Message string `json:"message"`
	Nonce   string `json:"nonce"`
}

// FetchSiwePayload requests the EIP-4361 message the caller must sign to
// prove control of address.
func (c *Client) FetchSiwePayload(ctx context.Context, address string) (*siwePayloadResponse, error) {
	var result siwePayloadResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("address", address).
		SetResult(&result).
		Get("/v1/auth/siwe/payload")
	if err != nil {
		return nil, fmt.Errorf("authclient: fetch siwe payload request: %w", err)
	}
	if resp.IsError() {
		return nil, handleError(resp)
	}
	return &result, nil
}

type verifySiweRequest struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

// VerifySiwe submits the signed SIWE message and completes identity proof,
// same result shape as VerifyOtp.
func (c *Client) VerifySiwe(ctx context.Context, message, signature string) (*types.VerifyResult, error) {
	var result types.VerifyResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(verifySiweRequest{Message: message, Signature: signature}).
		SetResult(&result).
		Post("/v1/auth/siwe/verify")
	if err != nil {
		return nil, fmt.Errorf("authclient: verify siwe request: %w", err)
	}
	if resp.IsError() {
		return nil, handleVerifyOtpError(resp)
	}
	return &result, nil
}
