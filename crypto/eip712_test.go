package crypto

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTypedData() *TypedData {
	return &TypedData{
		Types: map[string][]TypedDataField{
			"Mail": {
				{Name: "from", Type: "address"},
				{Name: "contents", Type: "string"},
			},
		},
		PrimaryType: "Mail",
		Domain: TypedDataDomain{
			Name:              "wallet-core",
			Version:           "1",
			ChainID:           big.NewInt(1),
			VerifyingContract: "0x0000000000000000000000000000000000000001",
		},
		Message: map[string]interface{}{
			"from":     "0x0000000000000000000000000000000000000002",
			"contents": "hello",
		},
	}
}

func TestSignTypedDataV4RoundTrip(t *testing.T) {
	account, err := GeneratePrivateKeyAccount()
	require.NoError(t, err)

	digest, err := HashTypedDataV4(sampleTypedData())
	require.NoError(t, err)
	assert.Len(t, digest, 32)

	sig, err := account.signRecoverable(digest)
	require.NoError(t, err)

	recovered, err := recoverAddress(digest, "0x"+hexEncode(sig))
	require.NoError(t, err)
	assert.Equal(t, account.Address(), recovered)
}

func TestSignTypedDataV4MethodRecoversSameAddress(t *testing.T) {
	account, err := GeneratePrivateKeyAccount()
	require.NoError(t, err)

	sig, err := account.SignTypedDataV4(sampleTypedData())
	require.NoError(t, err)

	digest, err := HashTypedDataV4(sampleTypedData())
	require.NoError(t, err)
	recovered, err := recoverAddress(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, account.Address(), recovered)
}

func TestHashTypedDataV4IsDeterministic(t *testing.T) {
	d1, err := HashTypedDataV4(sampleTypedData())
	require.NoError(t, err)
	d2, err := HashTypedDataV4(sampleTypedData())
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestHashTypedDataV4ChangesWithMessage(t *testing.T) {
	td := sampleTypedData()
	d1, err := HashTypedDataV4(td)
	require.NoError(t, err)

	td.Message["contents"] = "goodbye"
	d2, err := HashTypedDataV4(td)
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2)
}

func TestParseTypedDataJSON(t *testing.T) {
	raw := []byte(`{
		"types": {"Mail": [{"name":"from","type":"address"},{"name":"contents","type":"string"}]},
		"primaryType": "Mail",
		"domain": {"name":"wallet-core","version":"1","chainId":1,"verifyingContract":"0x0000000000000000000000000000000000000001"},
		"message": {"from":"0x0000000000000000000000000000000000000002","contents":"hello"}
	}`)
	td, err := ParseTypedDataJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, "Mail", td.PrimaryType)

	digest, err := HashTypedDataV4(td)
	require.NoError(t, err)
	assert.Len(t, digest, 32)
}

func hexEncode(b []byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexdigits[c>>4]
		out[i*2+1] = hexdigits[c&0x0f]
	}
	return string(out)
}
