package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dcrecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// personalSignPrefix is the EIP-191 prefix prepended before hashing a
// message for PersonalSign.
const personalSignPrefix = "\x19Ethereum Signed Message:\n"

// PrivateKeyAccount owns a 32-byte secp256k1 private key and is the
// signing primitive every other component (C4, C6, C7) reconstructs or
// wraps. Its lifetime is process memory until SignOut drops the reference;
// implementations should zero Key on Zero().
type PrivateKeyAccount struct {
	Key [32]byte
}

// NewPrivateKeyAccount wraps a raw 32-byte secp256k1 private key.
func NewPrivateKeyAccount(key [32]byte) (*PrivateKeyAccount, error) {
	var scalar secp256k1.ModNScalar
	overflow := scalar.SetByteSlice(key[:])
	if overflow || scalar.IsZero() {
		return nil, errors.New("crypto: invalid secp256k1 private key")
	}
	return &PrivateKeyAccount{Key: key}, nil
}

// GeneratePrivateKeyAccount creates a new random account. Used by callers
// that are not reconstructing from Shamir shares (e.g. tests, or a
// personal-account fallback).
func GeneratePrivateKeyAccount() (*PrivateKeyAccount, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, err
	}
	return NewPrivateKeyAccount(buf)
}

// Zero overwrites the key material in place. Callers should invoke this
// from SignOut once the account is no longer reachable.
func (a *PrivateKeyAccount) Zero() {
	for i := range a.Key {
		a.Key[i] = 0
	}
}

func (a *PrivateKeyAccount) privKey() *secp256k1.PrivateKey {
	return secp256k1.PrivKeyFromBytes(a.Key[:])
}

// Address returns the EIP-55 checksummed 20-byte Ethereum address derived
// from the account's public key.
func (a *PrivateKeyAccount) Address() string {
	pub := a.privKey().PubKey()
	return PubKeyToChecksumAddress(pub.SerializeUncompressed())
}

// PubKeyToChecksumAddress converts an uncompressed secp256k1 public key (65
// bytes, 0x04 prefix) to an EIP-55 checksum Ethereum address.
func PubKeyToChecksumAddress(pubKeyUncompressed []byte) string {
	if len(pubKeyUncompressed) != 65 || pubKeyUncompressed[0] != 0x04 {
		return ""
	}
	hash := Keccak256(pubKeyUncompressed[1:])
	addr := hash[12:]
	return "0x" + toChecksumAddress(hex.EncodeToString(addr))
}

// toChecksumAddress applies EIP-55 mixed-case checksum encoding to a
// 40-char lowercase hex address (without "0x" prefix).
func toChecksumAddress(address string) string {
	address = strings.ToLower(address)
	hash := Keccak256([]byte(address))
	result := make([]byte, len(address))
	for i, c := range address {
		if c >= '0' && c <= '9' {
			result[i] = byte(c)
			continue
		}
		var nibble byte
		hashByte := hash[i/2]
		if i%2 == 0 {
			nibble = hashByte >> 4
		} else {
			nibble = hashByte & 0x0f
		}
		if nibble >= 8 {
			result[i] = byte(c) - 32 // uppercase
		} else {
			result[i] = byte(c)
		}
	}
	return string(result)
}

// signRecoverable signs a 32-byte hash and returns a 65-byte r||s||v
// signature, v in {27,28}. This is the uniform internal signer both
// EthSign and PersonalSign build on.
func (a *PrivateKeyAccount) signRecoverable(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("crypto: hash must be 32 bytes, got %d", len(hash))
	}
	compact := dcrecdsa.SignCompact(a.privKey(), hash, false)
	// compact is recoveryByte(27+id) || r(32) || s(32); Ethereum wants r||s||v.
	sig := make([]byte, 65)
	copy(sig[0:32], compact[1:33])
	copy(sig[32:64], compact[33:65])
	sig[64] = compact[0]
	return sig, nil
}

// EthSign performs a raw ECDSA sign of Keccak256(data), with no prefix.
// Returns a 0x-prefixed 65-byte r||s||v hex string.
func (a *PrivateKeyAccount) EthSign(data []byte) (string, error) {
	sig, err := a.signRecoverable(Keccak256(data))
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// hashPrefixedMessage computes Keccak256("\x19Ethereum Signed Message:\n" ||
// len(msg) || msg), the EIP-191 personal-message hash.
func hashPrefixedMessage(msg []byte) []byte {
	prefix := fmt.Sprintf("%s%d", personalSignPrefix, len(msg))
	return Keccak256([]byte(prefix), msg)
}

// HashPersonalMessage exposes hashPrefixedMessage to other packages that
// need the EIP-191 personal-message hash without going through
// PersonalSign itself (the smart wallet facade's ERC-1271 probe, spec
// §4.7).
func HashPersonalMessage(msg []byte) []byte {
	return hashPrefixedMessage(msg)
}

// PersonalSign signs msg under the EIP-191 personal-message prefix.
// Returns a 0x-prefixed 65-byte r||s||v hex string.
func (a *PrivateKeyAccount) PersonalSign(msg []byte) (string, error) {
	sig, err := a.signRecoverable(hashPrefixedMessage(msg))
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// RecoverAddressFromPersonalSign inverts PersonalSign: given the original
// message and a 0x-prefixed 65-byte signature, returns the checksummed
// address that produced it.
func RecoverAddressFromPersonalSign(msg []byte, signatureHex string) (string, error) {
	return recoverAddress(hashPrefixedMessage(msg), signatureHex)
}

// recoverAddress recovers the checksummed address from a 32-byte hash and a
// 0x-prefixed 65-byte r||s||v signature.
func recoverAddress(hash []byte, signatureHex string) (string, error) {
	sig, err := decodeSignatureHex(signatureHex)
	if err != nil {
		return "", err
	}
	v := sig[64]
	if v >= 27 {
		v -= 27
	}
	compact := make([]byte, 65)
	compact[0] = v + 27
	copy(compact[1:33], sig[0:32])
	copy(compact[33:65], sig[32:64])

	pub, _, err := dcrecdsa.RecoverCompact(compact, hash)
	if err != nil {
		return "", fmt.Errorf("crypto: signature recovery failed: %w", err)
	}
	return PubKeyToChecksumAddress(pub.SerializeUncompressed()), nil
}

func decodeSignatureHex(signatureHex string) ([]byte, error) {
	cleaned := strings.TrimPrefix(signatureHex, "0x")
	sig, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid signature hex: %w", err)
	}
	if len(sig) != 65 {
		return nil, fmt.Errorf("crypto: signature must be 65 bytes, got %d", len(sig))
	}
	return sig, nil
}
