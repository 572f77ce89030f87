package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// Recovery-code KDF parameters, pinned per the Shamir recovery-share
// encryption decision (see DESIGN.md open question on recovery KDF cost).
// Mirrors the cost the teacher uses for its own scrypt-derived key
// (util.ScryptEmail): N=32768 was an appropriate interactive-login cost as
// of 2017 and is kept here for the same reason - deriving a key from a
// recovery code happens once per recovery, not on a hot path.
const (
	recoveryKDFN      = 32768
	recoveryKDFR      = 8
	recoveryKDFP      = 1
	recoveryKDFKeyLen = 32
)

// DeriveRecoveryKey derives a 256-bit AES key from a user's recovery code
// and their wallet user ID (used as salt, binding the derived key to the
// account it protects).
func DeriveRecoveryKey(recoveryCode, walletUserID string) ([]byte, error) {
	key, err := scrypt.Key([]byte(recoveryCode), []byte(walletUserID), recoveryKDFN, recoveryKDFR, recoveryKDFP, recoveryKDFKeyLen)
	if err != nil {
		return nil, fmt.Errorf("crypto: recovery key derivation failed: %w", err)
	}
	return key, nil
}

// EncryptGCM seals plaintext under a 256-bit key with AES-256-GCM,
// returning nonce||ciphertext||tag.
func EncryptGCM(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// DecryptGCM opens a nonce||ciphertext||tag blob produced by EncryptGCM.
func DecryptGCM(key, blob []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(blob) < gcm.NonceSize() {
		return nil, fmt.Errorf("crypto: ciphertext shorter than nonce")
	}
	nonce, ciphertext := blob[:gcm.NonceSize()], blob[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("crypto: decryption failed (wrong key or corrupt data): %w", err)
	}
	return plaintext, nil
}
