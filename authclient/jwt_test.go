package authclient

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("01234567890123456789012345678901")

func buildUnsignedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewBuilder().
		Subject("wallet-user-1").
		Expiration(exp).
		Build()
	require.NoError(t, err)
	// IsTokenLikelyExpired parses with WithVerify(false), so the signing
	// key here only needs to produce syntactically valid JWS compact form.
	raw, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, testSigningKey))
	require.NoError(t, err)
	return string(raw)
}

func TestIsTokenLikelyExpiredFalseForFreshToken(t *testing.T) {
	token := buildUnsignedToken(t, time.Now().Add(time.Hour))
	assert.False(t, IsTokenLikelyExpired(token, 0))
}

func TestIsTokenLikelyExpiredTrueForPastToken(t *testing.T) {
	token := buildUnsignedToken(t, time.Now().Add(-time.Hour))
	assert.True(t, IsTokenLikelyExpired(token, 0))
}

func TestIsTokenLikelyExpiredHonorsSkew(t *testing.T) {
	token := buildUnsignedToken(t, time.Now().Add(30*time.Second))
	assert.True(t, IsTokenLikelyExpired(token, time.Minute))
}

func TestIsTokenLikelyExpiredTrueForGarbage(t *testing.T) {
	assert.True(t, IsTokenLikelyExpired("not-a-jwt", 0))
}
