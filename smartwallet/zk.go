package smartwallet

import (
	"encoding/hex"
	"encoding/json"
	"math/big"

	"github.com/ewsdk/wallet-core/types"
)

// zkSignedTransaction is the wire shape ZkBroadcastTransaction submits. This
// client has no RLP encoder for zkSync's EIP-712 transaction envelope (no
// example in this repo implements one), so it serializes the transaction and
// its signature as JSON and hex-wraps the bytes the same way every other
// bundler payload in this package is passed as an opaque hex string.
type zkSignedTransaction struct {
	ChainID           string `json:"chainId"`
	From              string `json:"from"`
	To                string `json:"to"`
	GasLimit          string `json:"gasLimit"`
	GasPerPubdataByte string `json:"gasPerPubdataByteLimit"`
	MaxFeePerGas      string `json:"maxFeePerGas"`
	MaxPriorityFee    string `json:"maxPriorityFeePerGas"`
	Nonce             uint64 `json:"nonce"`
	Value             string `json:"value"`
	Data              string `json:"data"`
	PaymasterAddress  string `json:"paymasterAddress,omitempty"`
	PaymasterInput    string `json:"paymasterInput,omitempty"`
	Signature         string `json:"customSignature"`
}

// encodeZkSignedTransaction packages tx and its EIP-712 signature for
// zk_broadcastTransaction.
func encodeZkSignedTransaction(tx *types.ZkTransaction, sigHex string) string {
	wire := zkSignedTransaction{
		ChainID:           bigIntString(tx.ChainID),
		From:              tx.From,
		To:                tx.To,
		GasLimit:          bigIntString(tx.GasLimit),
		GasPerPubdataByte: bigIntString(tx.GasPerPubdataByte),
		MaxFeePerGas:      bigIntString(tx.MaxFeePerGas),
		MaxPriorityFee:    bigIntString(tx.MaxPriorityFeePerGas),
		Nonce:             tx.Nonce,
		Value:             bigIntString(tx.Value),
		Data:              "0x" + hex.EncodeToString(tx.Data),
		PaymasterAddress:  tx.PaymasterAddress,
		PaymasterInput:    "0x" + hex.EncodeToString(tx.PaymasterInput),
		Signature:         sigHex,
	}
	body, _ := json.Marshal(wire) // wire is built entirely from this package's own types; cannot fail.
	return "0x" + hex.EncodeToString(body)
}

func bigIntString(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}
