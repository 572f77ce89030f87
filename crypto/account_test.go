package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersonalSignRoundTrip(t *testing.T) {
	account, err := GeneratePrivateKeyAccount()
	require.NoError(t, err)

	msg := []byte("sign in to wallet-core")
	sig, err := account.PersonalSign(msg)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sig, "0x"))
	assert.Len(t, sig, 132) // 0x + 65 bytes hex

	recovered, err := RecoverAddressFromPersonalSign(msg, sig)
	require.NoError(t, err)
	assert.Equal(t, account.Address(), recovered)
}

func TestPersonalSignWrongMessageDoesNotRecoverSameAddress(t *testing.T) {
	account, err := GeneratePrivateKeyAccount()
	require.NoError(t, err)

	sig, err := account.PersonalSign([]byte("original"))
	require.NoError(t, err)

	recovered, err := RecoverAddressFromPersonalSign([]byte("tampered"), sig)
	require.NoError(t, err)
	assert.NotEqual(t, account.Address(), recovered)
}

func TestAddressIsChecksummed(t *testing.T) {
	account, err := GeneratePrivateKeyAccount()
	require.NoError(t, err)

	addr := account.Address()
	assert.True(t, strings.HasPrefix(addr, "0x"))
	assert.Len(t, addr, 42)
	assert.Equal(t, addr, toChecksumAddressFull(addr))
}

func toChecksumAddressFull(addr string) string {
	return "0x" + toChecksumAddress(strings.TrimPrefix(addr, "0x"))
}

func TestZeroClearsKeyMaterial(t *testing.T) {
	account, err := GeneratePrivateKeyAccount()
	require.NoError(t, err)

	account.Zero()
	for _, b := range account.Key {
		assert.Equal(t, byte(0), b)
	}
}

func TestNewPrivateKeyAccountRejectsZeroKey(t *testing.T) {
	var zero [32]byte
	_, err := NewPrivateKeyAccount(zero)
	assert.Error(t, err)
}
