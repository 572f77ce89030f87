package embeddedwallet

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/ewsdk/wallet-core/authclient"
	"github.com/ewsdk/wallet-core/types"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAuthServerURL = "http://auth.example.test"

func newMockAuthClient(t *testing.T) *authclient.Client {
	t.Helper()
	c := authclient.New(testAuthServerURL, 5*time.Second)
	httpmock.ActivateNonDefault(c.HTTPClient().GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

// memStore is an in-memory LocalStore fake used so embeddedwallet tests
// don't depend on the filesystem-backed store package.
type memStore struct {
	envelope *types.Envelope
}

func (m *memStore) Load(ctx context.Context) (*types.Envelope, error) {
	if m.envelope == nil {
		return nil, types.ErrNotFound
	}
	cp := *m.envelope
	return &cp, nil
}

func (m *memStore) Save(ctx context.Context, envelope *types.Envelope) error {
	cp := *envelope
	m.envelope = &cp
	return nil
}

func (m *memStore) RemoveAuthToken(ctx context.Context) error {
	if m.envelope == nil {
		return types.ErrNotFound
	}
	m.envelope.AuthToken = ""
	return nil
}

func (m *memStore) Clear(ctx context.Context) error {
	m.envelope = nil
	return nil
}

func TestGetUserFailsNotSignedInWithNoEnvelope(t *testing.T) {
	auth := newMockAuthClient(t)
	w := New(auth, &memStore{})

	_, err := w.GetUser(context.Background(), IdentityClaim{})
	assert.ErrorIs(t, err, types.ErrNotSignedIn)
}

func TestCreateAccountThenGetUserRoundTrip(t *testing.T) {
	auth := newMockAuthClient(t)

	var storedAuthShare string
	httpmock.RegisterResponder("POST", testAuthServerURL+"/v1/wallet/shares",
		func(req *http.Request) (*http.Response, error) {
			var body struct {
				AuthShare string `json:"authShare"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				return httpmock.NewStringResponse(400, ""), nil
			}
			storedAuthShare = body.AuthShare
			return httpmock.NewStringResponse(200, `{}`), nil
		})

	st := &memStore{}
	w := New(auth, st)

	verify := &types.VerifyResult{
		IsNewUser:    true,
		AuthToken:    "token-1",
		WalletUserID: "wu-1",
		RecoveryCode: "hunter2",
		Email:        "alice@example.test",
	}

	user, err := w.CreateAccount(context.Background(), verify, "email")
	require.NoError(t, err)
	assert.NotEmpty(t, user.Address)
	assert.Equal(t, "alice@example.test", user.Email)
	require.NotNil(t, st.envelope)
	assert.Equal(t, "token-1", st.envelope.AuthToken)
	require.NotEmpty(t, storedAuthShare)

	// A fresh Wallet instance reloads from the (now populated) store.
	w2 := New(auth, st)
	httpmock.RegisterResponder("GET", testAuthServerURL+"/v1/wallet/me",
		httpmock.NewStringResponder(200, `{"status":"LoggedInInitialized","email":"alice@example.test"}`))
	httpmock.RegisterResponder("GET", testAuthServerURL+"/v1/wallet/shares/auth",
		httpmock.NewStringResponder(200, `{"authShare":"`+storedAuthShare+`"}`))

	got, err := w2.GetUser(context.Background(), IdentityClaim{Email: "alice@example.test"})
	require.NoError(t, err)
	assert.Equal(t, user.Address, got.Address)
}

func TestGetUserRejectsIdentityMismatch(t *testing.T) {
	auth := newMockAuthClient(t)
	httpmock.RegisterResponder("GET", testAuthServerURL+"/v1/wallet/me",
		httpmock.NewStringResponder(200, `{"status":"LoggedInInitialized","email":"bob@example.test"}`))

	st := &memStore{envelope: &types.Envelope{
		AuthToken:    "token-1",
		DeviceShare:  "1:aa",
		WalletUserID: "wu-1",
		AuthProvider: "email",
	}}
	w := New(auth, st)

	_, err := w.GetUser(context.Background(), IdentityClaim{Email: "alice@example.test"})
	assert.ErrorIs(t, err, types.ErrIdentityMismatch)
}

func TestGetUserReportsUninitializedWallet(t *testing.T) {
	auth := newMockAuthClient(t)
	httpmock.RegisterResponder("GET", testAuthServerURL+"/v1/wallet/me",
		httpmock.NewStringResponder(200, `{"status":"LoggedInUninitialized"}`))

	st := &memStore{envelope: &types.Envelope{AuthToken: "token-1", DeviceShare: "1:aa", WalletUserID: "wu-1", AuthProvider: "email"}}
	w := New(auth, st)

	_, err := w.GetUser(context.Background(), IdentityClaim{})
	assert.ErrorIs(t, err, types.ErrWalletUninitialized)
}

func TestGetUserRejectsUnrecognizedStatus(t *testing.T) {
	auth := newMockAuthClient(t)
	httpmock.RegisterResponder("GET", testAuthServerURL+"/v1/wallet/me",
		httpmock.NewStringResponder(200, `{"status":"SomethingElse"}`))

	st := &memStore{envelope: &types.Envelope{AuthToken: "token-1", DeviceShare: "1:aa", WalletUserID: "wu-1", AuthProvider: "email"}}
	w := New(auth, st)

	_, err := w.GetUser(context.Background(), IdentityClaim{})
	assert.ErrorIs(t, err, types.ErrServerProtocol)
}

func TestSignOutClearsMemoizedUserAndToken(t *testing.T) {
	auth := newMockAuthClient(t)
	st := &memStore{envelope: &types.Envelope{AuthToken: "token-1", DeviceShare: "1:aa", WalletUserID: "wu-1", AuthProvider: "email"}}
	w := New(auth, st)
	w.user = &types.User{Address: "0xabc"}

	require.NoError(t, w.SignOut(context.Background()))
	assert.Empty(t, st.envelope.AuthToken)

	_, err := w.GetUser(context.Background(), IdentityClaim{})
	assert.ErrorIs(t, err, types.ErrNotSignedIn)
}

func TestRecoverAccountUsesOverrideCode(t *testing.T) {
	auth := newMockAuthClient(t)

	var storedAuthShare, storedRecoveryShare string
	httpmock.RegisterResponder("POST", testAuthServerURL+"/v1/wallet/shares",
		func(req *http.Request) (*http.Response, error) {
			var body struct {
				AuthShare              string `json:"authShare"`
				EncryptedRecoveryShare string `json:"encryptedRecoveryShare"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				return httpmock.NewStringResponse(400, ""), nil
			}
			storedAuthShare = body.AuthShare
			storedRecoveryShare = body.EncryptedRecoveryShare
			return httpmock.NewStringResponse(200, `{}`), nil
		})

	st := &memStore{}
	w := New(auth, st).WithRecoveryCodeOverride("dev-managed-code")

	verify := &types.VerifyResult{
		IsNewUser:    true,
		AuthToken:    "token-1",
		WalletUserID: "wu-1",
	}
	created, err := w.CreateAccount(context.Background(), verify, "email")
	require.NoError(t, err)
	// CreateAccount with an override must not fail even though
	// verify.RecoveryCode is empty - the override stands in for it.

	httpmock.RegisterResponder("GET", testAuthServerURL+"/v1/wallet/shares",
		httpmock.NewStringResponder(200, `{"authShare":"`+storedAuthShare+`","encryptedRecoveryShare":"`+storedRecoveryShare+`"}`))

	// A second device recovers with the same override and no server-issued
	// recovery code, and must reach the same address.
	w2 := New(auth, &memStore{}).WithRecoveryCodeOverride("dev-managed-code")
	recovered, err := w2.RecoverAccount(context.Background(), &types.VerifyResult{AuthToken: "token-1", WalletUserID: "wu-1"}, "email")
	require.NoError(t, err)
	assert.Equal(t, created.Address, recovered.Address)
}
