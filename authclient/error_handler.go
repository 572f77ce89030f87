package authclient

import (
	"encoding/json"
	"errors"

	"github.com/ewsdk/wallet-core/global"
	"github.com/ewsdk/wallet-core/types"
	"github.com/go-kit/log/level"
	"github.com/go-resty/resty/v2"
)

// handleError maps a non-2xx auth-server response to one of this module's
// sentinel errors, falling back to whatever message the body carries.
func handleError(resp *resty.Response) error {
	switch resp.StatusCode() {
	case 401:
		return types.ErrUnauthorized
	case 404:
		return types.ErrNotFound
	case 409:
		return types.ErrConflict
	case 429:
		return types.ErrThrottled
	}
	return decodeBodyError(resp)
}

// handleVerifyOtpError additionally distinguishes the OTP-specific
// rejection reasons VerifyOtp/VerifySiwe can surface.
func handleVerifyOtpError(resp *resty.Response) error {
	switch resp.StatusCode() {
	case 401:
		return types.ErrBadOtp
	case 410:
		return types.ErrOtpExpired
	case 429:
		return types.ErrThrottled
	}
	return decodeBodyError(resp)
}

func decodeBodyError(resp *resty.Response) error {
	var body map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		level.Error(global.Logger).Log("err", err, "msg", "authclient: failed to decode error body")
		return types.ErrServerProtocol
	}
	if msg, ok := body["error"].(string); ok {
		return errors.New(msg)
	}
	return types.ErrBadRequest
}
