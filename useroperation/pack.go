// Package useroperation implements component C6, the UserOperation
// Builder: assembly, packing, estimation, paymaster decoration, hashing,
// signing and submission of an ERC-4337 UserOperation across EntryPoint
// v0.6 and v0.7 (spec §4.6). The ZK-Sync native path, which builds no
// UserOperation, is in package smartwallet.
package useroperation

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/ewsdk/wallet-core/types"
)

// Pack converts a v0.7 UserOperationV7 into its hashed (packed) form:
// accountGasLimits = pad16(verificationGasLimit)||pad16(callGasLimit),
// gasFees = pad16(maxPriorityFeePerGas)||pad16(maxFeePerGas) (spec §4.6
// step 5, invariant 3).
func Pack(op *types.UserOperationV7) *types.PackedUserOperation {
	packed := &types.PackedUserOperation{
		Sender:             op.Sender,
		Nonce:              op.Nonce,
		CallData:           decodeHex(op.CallData),
		PreVerificationGas: op.PreVerificationGas,
		Signature:          decodeHex(op.Signature),
	}

	if op.Factory != "" {
		packed.InitCode = append(hexAddressBytes(op.Factory), decodeHex(op.FactoryData)...)
	}

	copy(packed.AccountGasLimits[0:16], pad16(op.VerificationGasLimit))
	copy(packed.AccountGasLimits[16:32], pad16(op.CallGasLimit))
	copy(packed.GasFees[0:16], pad16(op.MaxPriorityFeePerGas))
	copy(packed.GasFees[16:32], pad16(op.MaxFeePerGas))

	if op.Paymaster != "" {
		var paymasterAndData []byte
		paymasterAndData = append(paymasterAndData, hexAddressBytes(op.Paymaster)...)
		paymasterAndData = append(paymasterAndData, pad16(op.PaymasterVerificationGasLimit)...)
		paymasterAndData = append(paymasterAndData, pad16(op.PaymasterPostOpGasLimit)...)
		paymasterAndData = append(paymasterAndData, decodeHex(op.PaymasterData)...)
		packed.PaymasterAndData = paymasterAndData
	}

	return packed
}

// Unpack re-expands a PackedUserOperation into wire-shape gas fields -
// used to verify Pack is its own stable inverse (spec invariant 3) and by
// tests; the builder itself only ever packs forward for hashing.
func Unpack(packed *types.PackedUserOperation) (verificationGasLimit, callGasLimit, maxPriorityFeePerGas, maxFeePerGas *big.Int) {
	verificationGasLimit = new(big.Int).SetBytes(packed.AccountGasLimits[0:16])
	callGasLimit = new(big.Int).SetBytes(packed.AccountGasLimits[16:32])
	maxPriorityFeePerGas = new(big.Int).SetBytes(packed.GasFees[0:16])
	maxFeePerGas = new(big.Int).SetBytes(packed.GasFees[16:32])
	return
}

func pad16(v *big.Int) []byte {
	out := make([]byte, 16)
	if v == nil {
		return out
	}
	b := v.Bytes()
	if len(b) > 16 {
		b = b[len(b)-16:]
	}
	copy(out[16-len(b):], b)
	return out
}

func decodeHex(s string) []byte {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}

func hexAddressBytes(addr string) []byte {
	b := decodeHex(addr)
	if len(b) == 20 {
		return b
	}
	out := make([]byte, 20)
	if len(b) > 20 {
		b = b[len(b)-20:]
	}
	copy(out[20-len(b):], b)
	return out
}
