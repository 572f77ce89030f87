package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveRecoveryKeyIsDeterministic(t *testing.T) {
	k1, err := DeriveRecoveryKey("correct horse battery staple", "wallet-user-1")
	require.NoError(t, err)
	k2, err := DeriveRecoveryKey("correct horse battery staple", "wallet-user-1")
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 32)
}

func TestDeriveRecoveryKeyDiffersByWalletUserID(t *testing.T) {
	k1, err := DeriveRecoveryKey("correct horse battery staple", "wallet-user-1")
	require.NoError(t, err)
	k2, err := DeriveRecoveryKey("correct horse battery staple", "wallet-user-2")
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
}

func TestEncryptDecryptGCMRoundTrip(t *testing.T) {
	key, err := DeriveRecoveryKey("a recovery code", "wallet-user-1")
	require.NoError(t, err)

	plaintext := []byte("1:af92c1:9e41bb")
	blob, err := EncryptGCM(key, plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, blob)

	recovered, err := DecryptGCM(key, blob)
	require.NoError(t, err)
	assert.Equal(t, plaintext, recovered)
}

func TestDecryptGCMFailsWithWrongKey(t *testing.T) {
	key1, err := DeriveRecoveryKey("code-one", "wallet-user-1")
	require.NoError(t, err)
	key2, err := DeriveRecoveryKey("code-two", "wallet-user-1")
	require.NoError(t, err)

	blob, err := EncryptGCM(key1, []byte("share data"))
	require.NoError(t, err)

	_, err = DecryptGCM(key2, blob)
	assert.Error(t, err)
}
