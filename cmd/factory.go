package main

import (
	"encoding/hex"
	"strings"

	"github.com/ewsdk/wallet-core/crypto"
)

// createAccountCallData builds createAccount(address owner, bytes salt)
// calldata with an empty salt, the account-factory entry point the builder
// calls when deploying a not-yet-created smart account (spec §4.6 step 1).
func createAccountCallData(owner string) string {
	selector := crypto.Keccak256([]byte("createAccount(address,bytes)"))[:4]

	ownerBytes := hexMustDecode(strings.TrimPrefix(owner, "0x"))
	ownerWord := make([]byte, 32)
	copy(ownerWord[32-len(ownerBytes):], ownerBytes)

	offsetWord := make([]byte, 32)
	offsetWord[31] = 0x40 // two head words precede the dynamic "salt" tail

	lengthWord := make([]byte, 32) // empty salt: length 0, no data words follow

	var buf []byte
	buf = append(buf, selector...)
	buf = append(buf, ownerWord...)
	buf = append(buf, offsetWord...)
	buf = append(buf, lengthWord...)
	return "0x" + hex.EncodeToString(buf)
}
