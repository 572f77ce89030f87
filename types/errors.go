package types

import "errors"

// Error kinds returned by the embedded wallet and smart wallet cores. Each
// is precisely reportable and never retried implicitly by this module; the
// caller decides whether and how to retry.
var (
	// ErrIdentityMismatch is returned when the server-reported email, phone,
	// or auth provider disagrees with the caller's claim in GetUser. Local
	// state is not mutated.
	ErrIdentityMismatch = errors.New("wallet: identity mismatch between caller and server")

	// ErrNotSignedIn is returned when an operation requires an auth token
	// and none is present in local storage.
	ErrNotSignedIn = errors.New("wallet: not signed in")

	// ErrUnauthorized is returned when the server rejects the auth token.
	ErrUnauthorized = errors.New("wallet: unauthorized")

	// ErrWalletUninitialized is returned when the server reports the wallet
	// as initialized but the local device share is missing, or vice versa.
	ErrWalletUninitialized = errors.New("wallet: wallet state and local share disagree")

	// ErrShareCorrupt is returned when a share fails to decode, indices
	// collide, or combination otherwise fails.
	ErrShareCorrupt = errors.New("wallet: share is corrupt")

	// ErrWrongRecoveryCode is returned when AES-GCM tag verification fails
	// while decrypting the recovery share.
	ErrWrongRecoveryCode = errors.New("wallet: wrong recovery code")

	// ErrServerProtocol is returned for an unexpected status string or a
	// missing required field in a server response.
	ErrServerProtocol = errors.New("wallet: unexpected server response")

	// ErrNotSupportedOnZkSync is returned for operations that are a no-op or
	// forbidden on the ZK-Sync native path.
	ErrNotSupportedOnZkSync = errors.New("wallet: not supported on zksync")

	// ErrNotDeployed is returned when the smart account has not been
	// deployed and the requested operation requires deployment.
	ErrNotDeployed = errors.New("wallet: smart account not deployed")

	// ErrDeploymentFailed is returned when ForceDeploy could not confirm a
	// deployed account.
	ErrDeploymentFailed = errors.New("wallet: smart account deployment failed")

	// ErrBundlerError wraps an RPC failure against the bundler. The caller
	// decides whether to retry.
	ErrBundlerError = errors.New("wallet: bundler RPC error")

	// ErrInvalidSignature is returned when a post-sign ERC-1271 verification
	// fails. Treated as fatal.
	ErrInvalidSignature = errors.New("wallet: signature failed ERC-1271 validation")

	// ErrConflict mirrors a 409 from the auth server (e.g. StoreAddressAndShares
	// called on an already-enrolled account).
	ErrConflict = errors.New("wallet: conflict")

	// ErrNotFound mirrors a 404 from the auth server.
	ErrNotFound = errors.New("wallet: not found")

	// ErrBadRequest is the fallback for a 4xx response with no recognizable
	// error payload.
	ErrBadRequest = errors.New("wallet: bad request")

	// ErrBadOtp is returned when VerifyOtp is called with an incorrect code.
	ErrBadOtp = errors.New("wallet: incorrect otp code")

	// ErrOtpExpired is returned when VerifyOtp is called after the code's
	// validity window has passed.
	ErrOtpExpired = errors.New("wallet: otp code expired")

	// ErrThrottled mirrors a 429 from the auth server.
	ErrThrottled = errors.New("wallet: too many attempts, throttled")
)
