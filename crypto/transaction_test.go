package crypto

import (
	"math/big"
	"testing"

	"github.com/ewsdk/wallet-core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignTransactionLegacy(t *testing.T) {
	account, err := GeneratePrivateKeyAccount()
	require.NoError(t, err)

	to := "0x0000000000000000000000000000000000000042"
	tx := &types.TransactionInput{
		ChainID:  big.NewInt(1),
		Nonce:    5,
		To:       &to,
		Value:    big.NewInt(1_000_000_000_000_000_000),
		GasLimit: 21000,
		GasPrice: big.NewInt(20_000_000_000),
	}

	raw, err := account.SignTransaction(tx)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	// A legacy tx is a bare RLP list, not a typed (0x01/0x02-prefixed) envelope.
	assert.GreaterOrEqual(t, raw[0], byte(0xc0))
}

func TestSignTransactionDynamicFee(t *testing.T) {
	account, err := GeneratePrivateKeyAccount()
	require.NoError(t, err)

	to := "0x0000000000000000000000000000000000000042"
	tx := &types.TransactionInput{
		ChainID:              big.NewInt(1),
		Nonce:                0,
		To:                   &to,
		Value:                big.NewInt(0),
		GasLimit:             100000,
		MaxFeePerGas:         big.NewInt(30_000_000_000),
		MaxPriorityFeePerGas: big.NewInt(1_000_000_000),
	}

	raw, err := account.SignTransaction(tx)
	require.NoError(t, err)
	assert.Equal(t, byte(0x02), raw[0])
}

func TestSignTransactionRequiresGasPricing(t *testing.T) {
	account, err := GeneratePrivateKeyAccount()
	require.NoError(t, err)

	_, err = account.SignTransaction(&types.TransactionInput{ChainID: big.NewInt(1)})
	assert.Error(t, err)
}

func TestRLPEncodingEmptyBytesForZero(t *testing.T) {
	assert.Equal(t, []byte{0x80}, rlpBytes(nil).rlpEncode())
	assert.Equal(t, rlpBytes{}, rlpBigInt(big.NewInt(0)))
	assert.Equal(t, rlpBytes{}, rlpUint64(0))
}
