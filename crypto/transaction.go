package crypto

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/ewsdk/wallet-core/types"
)

// SignTransaction RLP-encodes and signs a TransactionInput. A GasPrice
// selects the legacy EIP-155 path; MaxFeePerGas/MaxPriorityFeePerGas select
// the EIP-1559 (type 0x02) path. Returns the raw signed transaction bytes,
// ready for eth_sendRawTransaction.
func (a *PrivateKeyAccount) SignTransaction(tx *types.TransactionInput) ([]byte, error) {
	if tx.GasPrice != nil {
		return a.signLegacyTx(tx)
	}
	if tx.MaxFeePerGas != nil && tx.MaxPriorityFeePerGas != nil {
		return a.signDynamicFeeTx(tx)
	}
	return nil, errors.New("crypto: TransactionInput needs either GasPrice or MaxFeePerGas+MaxPriorityFeePerGas")
}

func (a *PrivateKeyAccount) signLegacyTx(tx *types.TransactionInput) ([]byte, error) {
	to, err := rlpTo(tx.To)
	if err != nil {
		return nil, err
	}
	signingHash := Keccak256(encodeRLP(rlpList{
		rlpUint64(tx.Nonce),
		rlpBigInt(tx.GasPrice),
		rlpUint64(tx.GasLimit),
		to,
		rlpBigInt(tx.Value),
		rlpBytes(tx.Data),
		rlpBigInt(tx.ChainID),
		rlpUint64(0),
		rlpUint64(0),
	}))

	sig, err := a.signRecoverable(signingHash)
	if err != nil {
		return nil, err
	}
	r := new(big.Int).SetBytes(sig[0:32])
	s := new(big.Int).SetBytes(sig[32:64])
	recoveryID := sig[64]
	if recoveryID >= 27 {
		recoveryID -= 27
	}

	v := new(big.Int)
	if tx.ChainID != nil {
		v.Mul(tx.ChainID, big.NewInt(2))
		v.Add(v, big.NewInt(35))
		v.Add(v, big.NewInt(int64(recoveryID)))
	} else {
		v.SetInt64(int64(recoveryID) + 27)
	}

	return encodeRLP(rlpList{
		rlpUint64(tx.Nonce),
		rlpBigInt(tx.GasPrice),
		rlpUint64(tx.GasLimit),
		to,
		rlpBigInt(tx.Value),
		rlpBytes(tx.Data),
		rlpBigInt(v),
		rlpBigInt(r),
		rlpBigInt(s),
	}), nil
}

func (a *PrivateKeyAccount) signDynamicFeeTx(tx *types.TransactionInput) ([]byte, error) {
	to, err := rlpTo(tx.To)
	if err != nil {
		return nil, err
	}
	payload := encodeRLP(rlpList{
		rlpBigInt(tx.ChainID),
		rlpUint64(tx.Nonce),
		rlpBigInt(tx.MaxPriorityFeePerGas),
		rlpBigInt(tx.MaxFeePerGas),
		rlpUint64(tx.GasLimit),
		to,
		rlpBigInt(tx.Value),
		rlpBytes(tx.Data),
		rlpList{}, // empty access list
	})
	typed := append([]byte{0x02}, payload...)
	signingHash := Keccak256(typed)

	sig, err := a.signRecoverable(signingHash)
	if err != nil {
		return nil, err
	}
	r := new(big.Int).SetBytes(sig[0:32])
	s := new(big.Int).SetBytes(sig[32:64])
	recoveryID := sig[64]
	if recoveryID >= 27 {
		recoveryID -= 27
	}

	signedPayload := encodeRLP(rlpList{
		rlpBigInt(tx.ChainID),
		rlpUint64(tx.Nonce),
		rlpBigInt(tx.MaxPriorityFeePerGas),
		rlpBigInt(tx.MaxFeePerGas),
		rlpUint64(tx.GasLimit),
		to,
		rlpBigInt(tx.Value),
		rlpBytes(tx.Data),
		rlpList{},
		rlpUint64(uint64(recoveryID)),
		rlpBigInt(r),
		rlpBigInt(s),
	})
	return append([]byte{0x02}, signedPayload...), nil
}

func rlpTo(to *string) (rlpBytes, error) {
	if to == nil {
		return rlpBytes{}, nil
	}
	return rlpBytes(hexToBytes(*to)), nil
}

// --- minimal RLP encoder -----------------------------------------------
//
// No library in this module's dependency surface implements RLP, so this
// is a small hand-rolled encode-only implementation (the wire format is
// fixed and tiny: one byte-string rule, one list rule).

type rlpItem interface {
	rlpEncode() []byte
}

type rlpBytes []byte

func (b rlpBytes) rlpEncode() []byte {
	length := len(b)
	if length == 1 && b[0] <= 0x7f {
		return []byte{b[0]}
	}
	if length <= 55 {
		out := make([]byte, 1+length)
		out[0] = 0x80 + byte(length)
		copy(out[1:], b)
		return out
	}
	lenBytes := trimmedBigEndian(uint64(length))
	out := make([]byte, 1+len(lenBytes)+length)
	out[0] = 0xb7 + byte(len(lenBytes))
	copy(out[1:], lenBytes)
	copy(out[1+len(lenBytes):], b)
	return out
}

type rlpList []rlpItem

func (l rlpList) rlpEncode() []byte {
	var payload []byte
	for _, item := range l {
		payload = append(payload, item.rlpEncode()...)
	}
	length := len(payload)
	if length <= 55 {
		out := make([]byte, 1+length)
		out[0] = 0xc0 + byte(length)
		copy(out[1:], payload)
		return out
	}
	lenBytes := trimmedBigEndian(uint64(length))
	out := make([]byte, 1+len(lenBytes)+length)
	out[0] = 0xf7 + byte(len(lenBytes))
	copy(out[1:], lenBytes)
	copy(out[1+len(lenBytes):], payload)
	return out
}

func rlpBigInt(v *big.Int) rlpBytes {
	if v == nil || v.Sign() == 0 {
		return rlpBytes{}
	}
	return rlpBytes(v.Bytes())
}

func rlpUint64(v uint64) rlpBytes {
	if v == 0 {
		return rlpBytes{}
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	for len(buf) > 1 && buf[0] == 0 {
		buf = buf[1:]
	}
	return rlpBytes(buf)
}

func encodeRLP(item rlpItem) []byte {
	return item.rlpEncode()
}

func trimmedBigEndian(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	for len(buf) > 1 && buf[0] == 0 {
		buf = buf[1:]
	}
	return buf
}
