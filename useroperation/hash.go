package useroperation

import (
	"math/big"

	"github.com/ewsdk/wallet-core/crypto"
	"github.com/ewsdk/wallet-core/types"
)

// GetUserOpHashV6 computes the EntryPoint v0.6 userOpHash: the packed inner
// hash of the operation's fields, then wrapped with the EntryPoint address
// and chain id (spec §4.6 step 5).
func GetUserOpHashV6(op *types.UserOperationV6, entryPoint string, chainID *big.Int) []byte {
	var inner []byte
	inner = append(inner, hexAddressBytes(op.Sender)...)
	inner = append(inner, pad32(op.Nonce)...)
	inner = append(inner, crypto.Keccak256(decodeHex(op.InitCode))...)
	inner = append(inner, crypto.Keccak256(decodeHex(op.CallData))...)
	inner = append(inner, pad32(op.CallGasLimit)...)
	inner = append(inner, pad32(op.VerificationGasLimit)...)
	inner = append(inner, pad32(op.PreVerificationGas)...)
	inner = append(inner, pad32(op.MaxFeePerGas)...)
	inner = append(inner, pad32(op.MaxPriorityFeePerGas)...)
	inner = append(inner, crypto.Keccak256(decodeHex(op.PaymasterAndData))...)
	innerHash := crypto.Keccak256(inner)

	return wrapUserOpHash(innerHash, entryPoint, chainID)
}

// GetUserOpHashV7 computes the EntryPoint v0.7 userOpHash from the packed
// form of the operation. Hashing always operates on the packed
// representation, never the unpacked wire shape (spec §3 invariant iii).
func GetUserOpHashV7(packed *types.PackedUserOperation, entryPoint string, chainID *big.Int) []byte {
	var inner []byte
	inner = append(inner, hexAddressBytes(packed.Sender)...)
	inner = append(inner, pad32(packed.Nonce)...)
	inner = append(inner, crypto.Keccak256(packed.InitCode)...)
	inner = append(inner, crypto.Keccak256(packed.CallData)...)
	inner = append(inner, packed.AccountGasLimits[:]...)
	inner = append(inner, pad32(packed.PreVerificationGas)...)
	inner = append(inner, packed.GasFees[:]...)
	inner = append(inner, crypto.Keccak256(packed.PaymasterAndData)...)
	innerHash := crypto.Keccak256(inner)

	return wrapUserOpHash(innerHash, entryPoint, chainID)
}

func wrapUserOpHash(innerHash []byte, entryPoint string, chainID *big.Int) []byte {
	var outer []byte
	outer = append(outer, innerHash...)
	outer = append(outer, pad32FromBytes(hexAddressBytes(entryPoint))...)
	outer = append(outer, pad32(chainID)...)
	return crypto.Keccak256(outer)
}

func pad32(v *big.Int) []byte {
	out := make([]byte, 32)
	if v == nil {
		return out
	}
	b := v.Bytes()
	if len(b) > 32 {
		b = b[len(b)-32:]
	}
	copy(out[32-len(b):], b)
	return out
}

func pad32FromBytes(b []byte) []byte {
	out := make([]byte, 32)
	if len(b) > 32 {
		b = b[len(b)-32:]
	}
	copy(out[32-len(b):], b)
	return out
}
