package smartwallet

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ewsdk/wallet-core/crypto"
	"github.com/ewsdk/wallet-core/types"
)

// erc1271MagicValue is the 4-byte return value a compliant isValidSignature
// implementation returns on success (spec §6).
var erc1271MagicValue = [4]byte{0x16, 0x26, 0xba, 0x7e}

// selector returns the first 4 bytes of Keccak256(signature), the ABI
// function selector for the canonical "name(type,type,...)" signature.
func selector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

func word(b []byte) []byte {
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

func wordUint64(v uint64) []byte {
	return word(new(big.Int).SetUint64(v).Bytes())
}

func wordBigInt(v *big.Int) []byte {
	if v == nil {
		v = big.NewInt(0)
	}
	return word(v.Bytes())
}

func wordAddress(addr string) []byte {
	return word(hexAddressBytes(addr))
}

func hexAddressBytes(addr string) []byte {
	return hexDecodeBytes(addr)
}

// hexDecodeBytes strips an optional "0x" prefix and decodes the rest. Used
// both for 20-byte addresses and for arbitrary-length hex payloads like
// signatures.
func hexDecodeBytes(s string) []byte {
	clean := strings.TrimPrefix(s, "0x")
	b, _ := hex.DecodeString(clean)
	return b
}

// wordBytes32Fixed left-copies a fixed-size byte value into a left-aligned word,
// the ABI convention for bytesN (as opposed to right-aligned uintN).
func wordBytes32Fixed(b []byte) []byte {
	out := make([]byte, 32)
	copy(out, b)
	return out
}

func dynBytes(data []byte) []byte {
	out := append([]byte{}, wordUint64(uint64(len(data)))...)
	padded := len(data)
	if r := padded % 32; r != 0 {
		padded += 32 - r
	}
	buf := make([]byte, padded)
	copy(buf, data)
	return append(out, buf...)
}

func hexEncodeCalldata(parts ...[]byte) string {
	var buf []byte
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return "0x" + hex.EncodeToString(buf)
}

// encodeGetMessageHash builds getMessageHash(bytes32).
func encodeGetMessageHash(hash []byte) string {
	return hexEncodeCalldata(selector("getMessageHash(bytes32)"), wordBytes32Fixed(hash))
}

// encodeIsValidSignature builds isValidSignature(bytes32,bytes).
func encodeIsValidSignature(hash []byte, sig []byte) string {
	return hexEncodeCalldata(
		selector("isValidSignature(bytes32,bytes)"),
		wordBytes32Fixed(hash),
		wordUint64(0x40),
		dynBytes(sig),
	)
}

// encodeExecute builds execute(address,uint256,bytes).
func encodeExecute(target string, value *big.Int, data []byte) string {
	return hexEncodeCalldata(
		selector("execute(address,uint256,bytes)"),
		wordAddress(target),
		wordBigInt(value),
		wordUint64(0x60),
		dynBytes(data),
	)
}

// encodeGetAllActiveSigners builds getAllActiveSigners().
func encodeGetAllActiveSigners() string {
	return hexEncodeCalldata(selector("getAllActiveSigners()"))
}

// encodeSetPermissionsForSigner builds
// setPermissionsForSigner((address,uint8,address[],uint256,uint128,uint128,uint128,uint128,bytes32),bytes),
// the thirdweb AccountExtension permission-grant call (spec §4.7).
func encodeSetPermissionsForSigner(req types.SignerPermissionRequest, sig []byte) string {
	const tupleHeadWords = 9 // signer, isAdmin, targets-offset, limit, 4x timestamps, uid

	targetsTail := encodeAddressArray(req.ApprovedTargets)

	tupleHead := [][]byte{
		wordAddress(req.Signer),
		wordUint64(uint64(req.IsAdmin)),
		wordUint64(uint64(tupleHeadWords) * 32), // offset to approvedTargets, relative to tuple start
		wordBigInt(req.NativeTokenLimitPerTx),
		wordUint64(uint64(req.PermissionStart)),
		wordUint64(uint64(req.PermissionEnd)),
		wordUint64(uint64(req.ReqValidityStart)),
		wordUint64(uint64(req.ReqValidityEnd)),
		wordBytes32Fixed(req.UID[:]),
	}

	var tupleBody []byte
	for _, w := range tupleHead {
		tupleBody = append(tupleBody, w...)
	}
	tupleBody = append(tupleBody, targetsTail...)

	sigTail := dynBytes(sig)

	// top-level args: (tuple req, bytes signature), both dynamic -> each
	// gets an offset word, then the bodies follow in order.
	reqOffset := wordUint64(64) // two head words precede the tail
	sigOffset := wordUint64(uint64(64 + len(tupleBody)))

	return hexEncodeCalldata(
		selector("setPermissionsForSigner((address,uint8,address[],uint256,uint128,uint128,uint128,uint128,bytes32),bytes)"),
		reqOffset,
		sigOffset,
		tupleBody,
		sigTail,
	)
}

func encodeAddressArray(addrs []string) []byte {
	out := wordUint64(uint64(len(addrs)))
	for _, a := range addrs {
		out = append(out, wordAddress(a)...)
	}
	return out
}

// decodeReturnData strips the "0x" prefix from an eth_call result and
// returns the raw bytes.
func decodeReturnData(hexStr string) ([]byte, error) {
	clean := strings.TrimPrefix(hexStr, "0x")
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("smartwallet: decoding call result: %w", err)
	}
	return b, nil
}

// decodeBytes32 reads the first 32-byte word of a call result.
func decodeBytes32(hexStr string) ([]byte, error) {
	b, err := decodeReturnData(hexStr)
	if err != nil {
		return nil, err
	}
	if len(b) < 32 {
		return nil, fmt.Errorf("smartwallet: call result shorter than one word")
	}
	return b[:32], nil
}

// decodeMagicValue reads a bytes4 return value (left-aligned in its word).
func decodeMagicValue(hexStr string) ([4]byte, error) {
	var out [4]byte
	b, err := decodeBytes32(hexStr)
	if err != nil {
		return out, err
	}
	copy(out[:], b[:4])
	return out, nil
}

// decodeActiveSigners parses getAllActiveSigners()'s
// ActiveSigner[] return value: a single dynamic array of
// (address,address[],uint256,uint128,uint128) tuples.
func decodeActiveSigners(hexStr string) ([]types.ActiveSigner, error) {
	b, err := decodeReturnData(hexStr)
	if err != nil {
		return nil, err
	}
	if len(b) < 32 {
		return nil, fmt.Errorf("smartwallet: getAllActiveSigners: empty result")
	}

	arrayOffset := new(big.Int).SetBytes(b[:32]).Int64()
	if int(arrayOffset)+32 > len(b) {
		return nil, fmt.Errorf("smartwallet: getAllActiveSigners: array offset out of range")
	}
	arrayLen := new(big.Int).SetBytes(b[arrayOffset : arrayOffset+32]).Int64()
	elementsStart := arrayOffset + 32

	signers := make([]types.ActiveSigner, 0, arrayLen)
	for i := int64(0); i < arrayLen; i++ {
		elemOffsetPos := elementsStart + i*32
		if int(elemOffsetPos)+32 > len(b) {
			return nil, fmt.Errorf("smartwallet: getAllActiveSigners: truncated element offset")
		}
		elemRelOffset := new(big.Int).SetBytes(b[elemOffsetPos : elemOffsetPos+32]).Int64()
		elemStart := elementsStart + elemRelOffset

		signer, err := decodeActiveSignerTuple(b, elemStart)
		if err != nil {
			return nil, err
		}
		signers = append(signers, signer)
	}
	return signers, nil
}

func decodeActiveSignerTuple(b []byte, start int64) (types.ActiveSigner, error) {
	var out types.ActiveSigner
	if int(start)+5*32 > len(b) {
		return out, fmt.Errorf("smartwallet: active signer tuple truncated")
	}
	out.Signer = "0x" + hex.EncodeToString(b[start+12:start+32])

	targetsRelOffset := new(big.Int).SetBytes(b[start+32 : start+64]).Int64()
	targetsStart := start + targetsRelOffset
	if int(targetsStart)+32 > len(b) {
		return out, fmt.Errorf("smartwallet: approvedTargets offset out of range")
	}
	targetsLen := new(big.Int).SetBytes(b[targetsStart : targetsStart+32]).Int64()
	targets := make([]string, 0, targetsLen)
	for i := int64(0); i < targetsLen; i++ {
		pos := targetsStart + 32 + i*32
		if int(pos)+32 > len(b) {
			return out, fmt.Errorf("smartwallet: approvedTargets element truncated")
		}
		targets = append(targets, "0x"+hex.EncodeToString(b[pos+12:pos+32]))
	}
	out.ApprovedTargets = targets

	out.NativeTokenLimitPerTx = new(big.Int).SetBytes(b[start+64 : start+96])
	out.PermissionStart = new(big.Int).SetBytes(b[start+96 : start+128]).Int64()
	out.PermissionEnd = new(big.Int).SetBytes(b[start+128 : start+160]).Int64()
	return out, nil
}
