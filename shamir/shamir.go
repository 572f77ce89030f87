// Package shamir implements component C1, the Secret Splitter: 2-of-3
// Shamir secret sharing over a 128-bit prime field, plus AES-GCM wrap/unwrap
// of the recovery share under a user-held recovery code. The split
// polynomial, field, and wire encoding are a fixed interop contract with the
// remote auth server (spec §4.1, §7) - every constant here is pinned, not
// configurable.
package shamir

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/ewsdk/wallet-core/crypto"
	"github.com/ewsdk/wallet-core/types"
)

// Prime is the fixed 128-bit field modulus: 2^128 - 159. Every share's x
// and y coordinate is reduced modulo this value; it must match the auth
// server's exactly or combined secrets will be silently wrong.
var Prime = func() *big.Int {
	p := new(big.Int).Lsh(big.NewInt(1), 128)
	p.Sub(p, big.NewInt(159))
	return p
}()

// SecretLen is the byte length of the split secret (the wallet's raw
// private key material, spec §4.1).
const SecretLen = 16

// Split divides secret into three shares on a random degree-1 polynomial
// f(x) = secret + a*x mod Prime, returning f(1) (device), f(2) (auth) and
// f(3) (recovery). Any two reconstruct secret exactly (spec invariant 1).
func Split(secret [SecretLen]byte) (device, auth, recovery types.Share, err error) {
	secretInt := new(big.Int).SetBytes(secret[:])
	secretInt.Mod(secretInt, Prime)

	a, err := randomFieldElement()
	if err != nil {
		return types.Share{}, types.Share{}, types.Share{}, fmt.Errorf("shamir: generating coefficient: %w", err)
	}

	device = evaluate(types.ShareIDDevice, secretInt, a)
	auth = evaluate(types.ShareIDAuth, secretInt, a)
	recovery = evaluate(types.ShareIDRecovery, secretInt, a)
	return device, auth, recovery, nil
}

func evaluate(id types.ShareID, secret, a *big.Int) types.Share {
	x := big.NewInt(int64(id))
	y := new(big.Int).Mul(a, x)
	y.Add(y, secret)
	y.Mod(y, Prime)
	return types.Share{ID: id, X: uint64(id), Y: padTo(y.Bytes(), SecretLen)}
}

// Combine reconstructs the secret from any two distinct shares via Lagrange
// interpolation at x=0. Fails with types.ErrShareCorrupt if the shares carry
// the same index (no unique line through one point) or are malformed.
func Combine(s1, s2 types.Share) ([SecretLen]byte, error) {
	var out [SecretLen]byte
	if s1.X == s2.X {
		return out, fmt.Errorf("%w: shares have the same index %d", types.ErrShareCorrupt, s1.X)
	}
	if len(s1.Y) == 0 || len(s2.Y) == 0 {
		return out, fmt.Errorf("%w: empty share value", types.ErrShareCorrupt)
	}

	x1 := new(big.Int).SetUint64(s1.X)
	x2 := new(big.Int).SetUint64(s2.X)
	y1 := new(big.Int).SetBytes(s1.Y)
	y2 := new(big.Int).SetBytes(s2.Y)

	secret, err := interpolateAtZero(x1, y1, x2, y2)
	if err != nil {
		return out, err
	}

	bs := padTo(secret.Bytes(), SecretLen)
	copy(out[:], bs)
	return out, nil
}

// NewShare regenerates the share at id from two known shares - used after
// recovery to rebuild the lost device share (spec §4.3).
func NewShare(id types.ShareID, s1, s2 types.Share) (types.Share, error) {
	if s1.X == s2.X {
		return types.Share{}, fmt.Errorf("%w: shares have the same index %d", types.ErrShareCorrupt, s1.X)
	}
	x1 := new(big.Int).SetUint64(s1.X)
	x2 := new(big.Int).SetUint64(s2.X)
	y1 := new(big.Int).SetBytes(s1.Y)
	y2 := new(big.Int).SetBytes(s2.Y)

	secret, err := interpolateAtZero(x1, y1, x2, y2)
	if err != nil {
		return types.Share{}, err
	}

	// Recover the slope a = (y1 - secret) / x1 (x1 != 0 since ids start at 1).
	a := new(big.Int).Sub(y1, secret)
	a.Mod(a, Prime)
	x1Inv := new(big.Int).ModInverse(x1, Prime)
	if x1Inv == nil {
		return types.Share{}, fmt.Errorf("%w: non-invertible index", types.ErrShareCorrupt)
	}
	a.Mul(a, x1Inv)
	a.Mod(a, Prime)

	return evaluate(id, secret, a), nil
}

// interpolateAtZero evaluates the unique degree-1 polynomial through
// (x1,y1) and (x2,y2) at x=0, mod Prime.
func interpolateAtZero(x1, y1, x2, y2 *big.Int) (*big.Int, error) {
	denom := new(big.Int).Sub(x2, x1)
	denom.Mod(denom, Prime)
	denomInv := new(big.Int).ModInverse(denom, Prime)
	if denomInv == nil {
		return nil, fmt.Errorf("%w: non-invertible coordinate difference", types.ErrShareCorrupt)
	}

	// secret = (y1*x2 - y2*x1) * inv(x2-x1) mod Prime
	t1 := new(big.Int).Mul(y1, x2)
	t2 := new(big.Int).Mul(y2, x1)
	numerator := new(big.Int).Sub(t1, t2)
	numerator.Mod(numerator, Prime)

	secret := new(big.Int).Mul(numerator, denomInv)
	secret.Mod(secret, Prime)
	return secret, nil
}

func randomFieldElement() (*big.Int, error) {
	// [1, Prime)
	max := new(big.Int).Sub(Prime, big.NewInt(1))
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return nil, err
	}
	return n.Add(n, big.NewInt(1)), nil
}

func padTo(b []byte, size int) []byte {
	if len(b) >= size {
		return b[len(b)-size:]
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}

// EncryptShare wraps a share's textual encoding under a 256-bit key derived
// from the recovery code (spec §4.1, §6): AES-GCM with a random 12-byte
// nonce, output base64url(nonce || ciphertext || tag).
func EncryptShare(share types.Share, recoveryCode, walletUserID string) (string, error) {
	key, err := crypto.DeriveRecoveryKey(recoveryCode, walletUserID)
	if err != nil {
		return "", err
	}
	blob, err := crypto.EncryptGCM(key, []byte(EncodeShare(share)))
	if err != nil {
		return "", err
	}
	return base64URLEncode(blob), nil
}

// DecryptShare inverts EncryptShare. Fails with types.ErrWrongRecoveryCode
// on GCM tag mismatch (wrong code) and types.ErrShareCorrupt on a malformed
// decoded payload.
func DecryptShare(blob, recoveryCode, walletUserID string) (types.Share, error) {
	key, err := crypto.DeriveRecoveryKey(recoveryCode, walletUserID)
	if err != nil {
		return types.Share{}, err
	}
	raw, err := base64URLDecode(blob)
	if err != nil {
		return types.Share{}, fmt.Errorf("%w: %v", types.ErrShareCorrupt, err)
	}
	plaintext, err := crypto.DecryptGCM(key, raw)
	if err != nil {
		return types.Share{}, fmt.Errorf("%w: %v", types.ErrWrongRecoveryCode, err)
	}
	share, err := DecodeShare(string(plaintext))
	if err != nil {
		return types.Share{}, err
	}
	return share, nil
}
