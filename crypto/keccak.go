// Package crypto implements the signing primitives of the embedded wallet
// (spec §4.5, component C5): secp256k1 key containers, personal_sign,
// eth_sign, EIP-712 v4 signing and recovery, and legacy/EIP-1559
// transaction signing. The underlying curve, hash, and AEAD are treated as
// primitives per spec §1; this package is the thin idiomatic wrapper the
// rest of the SDK calls through.
package crypto

import "golang.org/x/crypto/sha3"

// Keccak256 computes the Keccak-256 hash of the concatenation of data.
// Ethereum uses the original Keccak-256, not the NIST-standardized SHA3-256.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}
