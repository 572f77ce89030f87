// Package embeddedwallet implements component C4, the Embedded Wallet
// Core: the state machine that turns a completed identity proof (OTP,
// OAuth, SIWE) plus the local session envelope into a reconstructed
// PrivateKeyAccount, via enrollment (CreateAccount) or recovery
// (RecoverAccount) against the auth server and the Shamir secret splitter
// (spec §4.4).
package embeddedwallet

import (
	"context"
	cryptorand "crypto/rand"
	"errors"
	"fmt"

	"github.com/go-kit/log/level"

	"github.com/ewsdk/wallet-core/authclient"
	"github.com/ewsdk/wallet-core/crypto"
	"github.com/ewsdk/wallet-core/global"
	"github.com/ewsdk/wallet-core/metrics"
	"github.com/ewsdk/wallet-core/shamir"
	"github.com/ewsdk/wallet-core/store"
	"github.com/ewsdk/wallet-core/types"
)

// IdentityClaim is what the caller asserts about who they are before
// GetUser is allowed to trust a memoized or freshly-fetched wallet status
// (spec §4.4 contracts: "verify that the provided contact/provider match
// what the server says").
type IdentityClaim struct {
	Email        string
	Phone        string
	AuthProvider string
}

// Wallet is one embedded-wallet session: the memoized user, the local
// envelope store, and the auth-server client it reconciles against. Not
// safe for concurrent use by multiple goroutines on the same instance
// (spec §5 — callers serialize).
type Wallet struct {
	auth  *authclient.Client
	store store.LocalStore

	// recoveryCodeOverride, when set, replaces the server-issued
	// recovery code for both EncryptShare and DecryptShare in this session
	// (spec §4.4: "used when the developer, not the end user, holds the
	// code"). Set via WithRecoveryCodeOverride before CreateAccount/
	// RecoverAccount; the core treats it as authoritative once set.
	recoveryCodeOverride string

	user    *types.User
	account *crypto.PrivateKeyAccount
}

// New creates an embedded wallet core bound to an auth server client and a
// local store.
func New(auth *authclient.Client, localStore store.LocalStore) *Wallet {
	return &Wallet{auth: auth, store: localStore}
}

// WithRecoveryCodeOverride sets recoveryCodeOverride for this
// session (spec §4.4).
func (w *Wallet) WithRecoveryCodeOverride(code string) *Wallet {
	w.recoveryCodeOverride = code
	return w
}

// Account returns the reconstructed signing account for the current
// session, or nil if no user is signed in.
func (w *Wallet) Account() *crypto.PrivateKeyAccount {
	return w.account
}

// GetUser implements spec §4.4's GetUser contract: if a User is memoized,
// return it; otherwise load the envelope, fetch status, verify the
// caller's claim matches the server, fetch the auth share, assemble the
// account, memoize and return it. Never implicitly re-authenticates.
func (w *Wallet) GetUser(ctx context.Context, claim IdentityClaim) (*types.User, error) {
	if w.user != nil {
		return w.user, nil
	}

	envelope, err := w.store.Load(ctx)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.ErrNotSignedIn
		}
		return nil, fmt.Errorf("embeddedwallet: loading envelope: %w", err)
	}
	if envelope == nil || envelope.AuthToken == "" {
		return nil, types.ErrNotSignedIn
	}

	wallet, err := w.auth.FetchUserDetails(ctx, envelope.AuthToken)
	if err != nil {
		return nil, err
	}

	if err := verifyClaim(claim, wallet); err != nil {
		return nil, err
	}

	switch wallet.Status {
	case types.WalletStatusLoggedOut:
		if clearErr := w.store.Clear(ctx); clearErr != nil {
			level.Error(global.Logger).Log("msg", "clearing envelope after server reports logged out", "err", clearErr)
		}
		return nil, types.ErrNotSignedIn
	case types.WalletStatusLoggedInUninitialized:
		return nil, types.ErrWalletUninitialized
	case types.WalletStatusLoggedInInitialized:
		// device share present locally (invariant: envelope present implies
		// device share present, spec §3-i) — fall through to assembly.
		if envelope.DeviceShare == "" {
			return nil, types.ErrWalletUninitialized
		}
	default:
		return nil, fmt.Errorf("%w: unrecognized wallet status %q", types.ErrServerProtocol, wallet.Status)
	}

	authShare, err := w.auth.FetchAuthShare(ctx, envelope.AuthToken)
	if err != nil {
		return nil, err
	}

	account, err := assembleAccount(envelope.DeviceShare, authShare)
	if err != nil {
		return nil, err
	}

	user := &types.User{
		Address: account.Address(),
		Email:   envelope.Email,
		Phone:   envelope.Phone,
	}
	w.account = account
	w.user = user
	return user, nil
}

// SignOut drops the memoized user and deletes the auth token from
// persistence. The device share is left behind — it is useless without a
// token (spec §4.4).
func (w *Wallet) SignOut(ctx context.Context) error {
	if w.account != nil {
		w.account.Zero()
	}
	w.account = nil
	w.user = nil
	return w.store.RemoveAuthToken(ctx)
}

// CreateAccount implements the enrollment branch of spec §4.4: split a
// fresh secret, upload the auth share and the encrypted recovery share,
// persist the envelope, and memoize the resulting user. Local state is
// mutated only after the upload fully succeeds.
func (w *Wallet) CreateAccount(ctx context.Context, verify *types.VerifyResult, authProvider string) (user *types.User, err error) {
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		metrics.EnrollmentsTotal.WithLabelValues(outcome).Inc()
	}()

	var secret [16]byte
	if _, err := cryptorand.Read(secret[:]); err != nil {
		return nil, fmt.Errorf("embeddedwallet: generating account secret: %w", err)
	}

	deviceShare, authShare, recoveryShare, err := shamir.Split(secret)
	if err != nil {
		return nil, fmt.Errorf("embeddedwallet: splitting secret: %w", err)
	}

	code := verify.RecoveryCode
	if w.recoveryCodeOverride != "" {
		code = w.recoveryCodeOverride
	}

	encryptedRecoveryShare, err := shamir.EncryptShare(recoveryShare, code, verify.WalletUserID)
	if err != nil {
		return nil, fmt.Errorf("embeddedwallet: encrypting recovery share: %w", err)
	}

	account, err := assembleAccount(shamir.EncodeShare(deviceShare), shamir.EncodeShare(authShare))
	if err != nil {
		return nil, err
	}

	if err := w.auth.StoreAddressAndShares(ctx, verify.AuthToken, account.Address(), shamir.EncodeShare(authShare), encryptedRecoveryShare); err != nil {
		return nil, err
	}

	envelope := &types.Envelope{
		AuthToken:    verify.AuthToken,
		DeviceShare:  shamir.EncodeShare(deviceShare),
		Email:        verify.Email,
		Phone:        verify.Phone,
		WalletUserID: verify.WalletUserID,
		AuthProvider: authProvider,
	}
	if err := w.store.Save(ctx, envelope); err != nil {
		return nil, fmt.Errorf("embeddedwallet: persisting envelope: %w", err)
	}

	user = &types.User{Address: account.Address(), Email: verify.Email, Phone: verify.Phone}
	w.account = account
	w.user = user
	return user, nil
}

// RecoverAccount implements the recovery branch of spec §4.4: fetch both
// server-held shares, decrypt the recovery share, combine to recover the
// secret, regenerate the device share, persist and memoize. Any share
// failure is fatal to the sign-in attempt and does not mutate local state
// (spec §4.4 failure policy).
func (w *Wallet) RecoverAccount(ctx context.Context, verify *types.VerifyResult, authProvider string) (user *types.User, err error) {
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		metrics.RecoveriesTotal.WithLabelValues(outcome).Inc()
	}()

	code := verify.RecoveryCode
	if w.recoveryCodeOverride != "" {
		code = w.recoveryCodeOverride
	}

	authShareText, encryptedRecoveryShareText, err := w.auth.FetchAuthAndRecoveryShares(ctx, verify.AuthToken)
	if err != nil {
		return nil, err
	}

	recoveryShare, err := shamir.DecryptShare(encryptedRecoveryShareText, code, verify.WalletUserID)
	if err != nil {
		return nil, err
	}

	authShare, err := shamir.DecodeShare(authShareText)
	if err != nil {
		return nil, err
	}

	deviceShare, err := shamir.NewShare(types.ShareIDDevice, authShare, recoveryShare)
	if err != nil {
		return nil, err
	}

	account, err := assembleAccount(shamir.EncodeShare(deviceShare), authShareText)
	if err != nil {
		return nil, err
	}

	envelope := &types.Envelope{
		AuthToken:    verify.AuthToken,
		DeviceShare:  shamir.EncodeShare(deviceShare),
		Email:        verify.Email,
		Phone:        verify.Phone,
		WalletUserID: verify.WalletUserID,
		AuthProvider: authProvider,
	}
	if err := w.store.Save(ctx, envelope); err != nil {
		return nil, fmt.Errorf("embeddedwallet: persisting envelope: %w", err)
	}

	user = &types.User{Address: account.Address(), Email: verify.Email, Phone: verify.Phone}
	w.account = account
	w.user = user
	return user, nil
}

func verifyClaim(claim IdentityClaim, wallet *types.UserWallet) error {
	if claim.Email != "" && wallet.Email != "" && claim.Email != wallet.Email {
		return types.ErrIdentityMismatch
	}
	if claim.Phone != "" && wallet.Phone != "" && claim.Phone != wallet.Phone {
		return types.ErrIdentityMismatch
	}
	if claim.AuthProvider != "" && wallet.AuthProvider != "" && claim.AuthProvider != wallet.AuthProvider {
		return types.ErrIdentityMismatch
	}
	return nil
}

// assembleAccount combines the device and auth shares (textual encoding)
// into the reconstructed 16-byte secret and derives the 32-byte secp256k1
// private key as Keccak256(secret). The split secret itself is only 16
// bytes (spec §4.1 SecretLen); stretching it through Keccak256 rather than
// zero-padding gives the key the curve's full entropy while staying a
// deterministic function of the two combined shares, so CreateAccount and
// a later RecoverAccount of the same secret always derive the same address
// (spec invariant, scenario S2).
func assembleAccount(deviceShareText, authShareText string) (*crypto.PrivateKeyAccount, error) {
	deviceShare, err := shamir.DecodeShare(deviceShareText)
	if err != nil {
		return nil, err
	}
	authShare, err := shamir.DecodeShare(authShareText)
	if err != nil {
		return nil, err
	}

	secret, err := shamir.Combine(deviceShare, authShare)
	if err != nil {
		return nil, err
	}

	var key [32]byte
	copy(key[:], crypto.Keccak256(secret[:]))
	return crypto.NewPrivateKeyAccount(key)
}
