package authclient

import (
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

// IsTokenLikelyExpired inspects the unverified "exp" claim of a bearer
// token and reports whether it has already passed, or will within skew.
// This is a client-side optimization (spec §11 supplement): it lets a
// caller refresh proactively instead of discovering expiry only after a
// 401 from FetchUserDetails. It is never authoritative - the server's
// response is - so a parse failure is treated as "might be expired" rather
// than panicking or erroring the caller's flow.
func IsTokenLikelyExpired(token string, skew time.Duration) bool {
	parsed, err := jwt.ParseString(token, jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil {
		return true
	}
	exp := parsed.Expiration()
	if exp.IsZero() {
		return false
	}
	return time.Now().Add(skew).After(exp)
}
