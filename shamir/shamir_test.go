package shamir

import (
	"math/big"
	"testing"

	"github.com/ewsdk/wallet-core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hexSecret(t *testing.T, s string) [SecretLen]byte {
	t.Helper()
	var out [SecretLen]byte
	n, ok := new(big.Int).SetString(s, 16)
	require.True(t, ok)
	b := n.Bytes()
	copy(out[SecretLen-len(b):], b)
	return out
}

func TestSplitCombineAllPairs(t *testing.T) {
	secret := hexSecret(t, "00112233445566778899aabbccddeeff")
	device, auth, recovery, err := Split(secret)
	require.NoError(t, err)

	pairs := [][2]types.Share{
		{device, auth},
		{device, recovery},
		{auth, recovery},
	}
	for _, pair := range pairs {
		recovered, err := Combine(pair[0], pair[1])
		require.NoError(t, err)
		assert.Equal(t, secret, recovered)
	}
}

func TestCombineRejectsCollidingIndices(t *testing.T) {
	secret := hexSecret(t, "11")
	device, _, _, err := Split(secret)
	require.NoError(t, err)

	_, err = Combine(device, device)
	assert.ErrorIs(t, err, types.ErrShareCorrupt)
}

func TestNewShareRegeneratesDeviceShare(t *testing.T) {
	secret := hexSecret(t, "deadbeefcafef00d")
	device, auth, recovery, err := Split(secret)
	require.NoError(t, err)

	regenerated, err := NewShare(types.ShareIDDevice, auth, recovery)
	require.NoError(t, err)
	assert.Equal(t, device, regenerated)
}

func TestEncodeDecodeShareRoundTrip(t *testing.T) {
	secret := hexSecret(t, "0102030405060708")
	device, _, _, err := Split(secret)
	require.NoError(t, err)

	text := EncodeShare(device)
	decoded, err := DecodeShare(text)
	require.NoError(t, err)
	assert.Equal(t, device, decoded)
}

func TestDecodeShareRejectsMalformedInput(t *testing.T) {
	_, err := DecodeShare("not-a-share")
	assert.ErrorIs(t, err, types.ErrShareCorrupt)

	_, err = DecodeShare("1:zz")
	assert.ErrorIs(t, err, types.ErrShareCorrupt)
}

func TestEncryptDecryptShareRoundTrip(t *testing.T) {
	secret := hexSecret(t, "cafebabe")
	_, _, recovery, err := Split(secret)
	require.NoError(t, err)

	blob, err := EncryptShare(recovery, "hunter2", "wallet-user-1")
	require.NoError(t, err)
	assert.NotContains(t, blob, EncodeShare(recovery))

	decrypted, err := DecryptShare(blob, "hunter2", "wallet-user-1")
	require.NoError(t, err)
	assert.Equal(t, recovery, decrypted)
}

func TestDecryptShareWrongCodeFails(t *testing.T) {
	secret := hexSecret(t, "cafebabe")
	_, _, recovery, err := Split(secret)
	require.NoError(t, err)

	blob, err := EncryptShare(recovery, "hunter2", "wallet-user-1")
	require.NoError(t, err)

	_, err = DecryptShare(blob, "wrong-code", "wallet-user-1")
	assert.ErrorIs(t, err, types.ErrWrongRecoveryCode)
}

func TestSplitProducesDistinctShares(t *testing.T) {
	secret := hexSecret(t, "aabbccddeeff0011")
	device, auth, recovery, err := Split(secret)
	require.NoError(t, err)

	assert.NotEqual(t, device.Y, auth.Y)
	assert.NotEqual(t, auth.Y, recovery.Y)
	assert.Equal(t, uint64(types.ShareIDDevice), device.X)
	assert.Equal(t, uint64(types.ShareIDAuth), auth.X)
	assert.Equal(t, uint64(types.ShareIDRecovery), recovery.X)
}
