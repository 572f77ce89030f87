package useroperation

import (
	"encoding/hex"
	"math/big"

	"github.com/ewsdk/wallet-core/crypto"
)

// selector returns the first 4 bytes of Keccak256(signature), the ABI
// function selector for the canonical "name(type,type,...)" signature.
// Mirrors smartwallet/abi.go's helper of the same name; duplicated rather
// than imported to avoid a useroperation<->smartwallet import cycle (C6
// depends on nothing in C7).
func selector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

// encodeERC20Approve builds approve(address spender, uint256 amount).
func encodeERC20Approve(spender string, amount *big.Int) string {
	var buf []byte
	buf = append(buf, selector("approve(address,uint256)")...)
	buf = append(buf, pad32FromBytes(hexAddressBytes(spender))...)
	buf = append(buf, pad32(amount)...)
	return "0x" + hex.EncodeToString(buf)
}

// encodeExecute builds execute(address target, uint256 value, bytes data),
// the account's self-call entry point (spec §4.6, §4.7). Used internally
// to wrap a one-time ERC-20 approve() call; arbitrary user-facing calldata
// stays C7's job (smartwallet/abi.go's own encodeExecute).
func encodeExecute(target string, value *big.Int, data []byte) string {
	var buf []byte
	buf = append(buf, selector("execute(address,uint256,bytes)")...)
	buf = append(buf, pad32FromBytes(hexAddressBytes(target))...)
	buf = append(buf, pad32(value)...)
	buf = append(buf, pad32(big.NewInt(0x60))...) // offset to dynamic "data" tail

	length := big.NewInt(int64(len(data)))
	buf = append(buf, pad32(length)...)

	padded := len(data)
	if r := padded % 32; r != 0 {
		padded += 32 - r
	}
	tail := make([]byte, padded)
	copy(tail, data)
	buf = append(buf, tail...)

	return "0x" + hex.EncodeToString(buf)
}
