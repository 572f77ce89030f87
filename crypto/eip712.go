package crypto

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strings"
)

// TypedDataDomain is the EIP-712 domain separator input.
type TypedDataDomain struct {
	Name              string   `json:"name"`
	Version           string   `json:"version"`
	ChainID           *big.Int `json:"chainId"`
	VerifyingContract string   `json:"verifyingContract"`
}

// TypedDataField is one field of an EIP-712 struct type definition.
type TypedDataField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TypedData is a full EIP-712 v4 payload: the domain, the set of struct
// type definitions, the primary type being signed, and the message values.
// SignTypedDataV4 accepts this directly, or a JSON document shaped the
// same way (the "json" form spec §4.5 mentions).
type TypedData struct {
	Types       map[string][]TypedDataField `json:"types"`
	PrimaryType string                      `json:"primaryType"`
	Domain      TypedDataDomain             `json:"domain"`
	Message     map[string]interface{}      `json:"message"`
}

// ParseTypedDataJSON decodes the EIP-712 v4 JSON wire form into a TypedData.
func ParseTypedDataJSON(data []byte) (*TypedData, error) {
	var td TypedData
	if err := json.Unmarshal(data, &td); err != nil {
		return nil, fmt.Errorf("crypto: invalid typed data json: %w", err)
	}
	return &td, nil
}

// SignTypedDataV4 hashes td per EIP-712 v4 and ECDSA-signs the resulting
// digest (spec §4.5). Accepts either a TypedData built in code or one
// parsed from its JSON wire form via ParseTypedDataJSON.
func (a *PrivateKeyAccount) SignTypedDataV4(td *TypedData) (string, error) {
	digest, err := HashTypedDataV4(td)
	if err != nil {
		return "", err
	}
	return a.SignDigest(digest)
}

// SignDigest ECDSA-signs an already-computed 32-byte digest with no further
// hashing or prefixing. Used where a caller (or a contract) hands back a
// digest that must be signed as-is, e.g. the smart wallet facade's
// ERC-1271 message-wrapping path (spec §4.7).
func (a *PrivateKeyAccount) SignDigest(digest []byte) (string, error) {
	sig, err := a.signRecoverable(digest)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(sig), nil
}

var domainTypeFields = []TypedDataField{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

// domainTypeHash is the type hash of the four-field EIP712Domain type, used
// for domains that name a verifying contract.
func domainTypeHash() []byte {
	return Keccak256([]byte(encodeTypeSignature("EIP712Domain", domainTypeFields, nil)))
}

// HashDomain computes the EIP-712 domain separator. A domain with an empty
// VerifyingContract is hashed under the three-field EIP712Domain type
// (name, version, chainId), with no verifyingContract member.
func HashDomain(domain TypedDataDomain) []byte {
	var buf []byte
	if domain.VerifyingContract == "" {
		buf = append(buf, Keccak256([]byte(encodeTypeSignature("EIP712Domain", domainTypeFields[:3], nil)))...)
	} else {
		buf = append(buf, domainTypeHash()...)
	}
	buf = append(buf, Keccak256([]byte(domain.Name))...)
	buf = append(buf, Keccak256([]byte(domain.Version))...)
	chainID := domain.ChainID
	if chainID == nil {
		chainID = big.NewInt(0)
	}
	buf = append(buf, padLeft(chainID.Bytes(), 32)...)
	if domain.VerifyingContract != "" {
		buf = append(buf, padLeft(hexToBytes(domain.VerifyingContract), 32)...)
	}
	return Keccak256(buf)
}

// HashTypedDataV4 computes Keccak256(0x1901 || domainSeparator || structHash),
// the final digest that gets ECDSA-signed.
func HashTypedDataV4(td *TypedData) ([]byte, error) {
	structHash, err := hashStruct(td.PrimaryType, td.Message, td.Types)
	if err != nil {
		return nil, err
	}
	domainSeparator := HashDomain(td.Domain)
	buf := make([]byte, 0, 66)
	buf = append(buf, 0x19, 0x01)
	buf = append(buf, domainSeparator...)
	buf = append(buf, structHash...)
	return Keccak256(buf), nil
}

// hashStruct recursively encodes and hashes a struct value per EIP-712.
func hashStruct(primaryType string, data map[string]interface{}, types map[string][]TypedDataField) ([]byte, error) {
	fields, ok := types[primaryType]
	if !ok {
		return nil, fmt.Errorf("crypto: unknown typed-data type %q", primaryType)
	}
	typeHash := Keccak256([]byte(encodeTypeSignature(primaryType, fields, types)))
	buf := append([]byte{}, typeHash...)
	for _, f := range fields {
		encoded, err := encodeValue(f.Type, data[f.Name], types)
		if err != nil {
			return nil, fmt.Errorf("crypto: field %q: %w", f.Name, err)
		}
		buf = append(buf, encoded...)
	}
	return Keccak256(buf), nil
}

// encodeValue ABI-encodes a single EIP-712 field value into its 32-byte (or
// hashed, for dynamic types) representation.
func encodeValue(typ string, value interface{}, types map[string][]TypedDataField) ([]byte, error) {
	if strings.HasSuffix(typ, "[]") {
		elemType := strings.TrimSuffix(typ, "[]")
		arr, ok := value.([]interface{})
		if !ok {
			return nil, fmt.Errorf("expected array for type %s", typ)
		}
		var buf []byte
		for _, el := range arr {
			encoded, err := encodeValue(elemType, el, types)
			if err != nil {
				return nil, err
			}
			buf = append(buf, encoded...)
		}
		return Keccak256(buf), nil
	}

	if _, isStruct := types[typ]; isStruct {
		nested, ok := value.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("expected struct map for type %s", typ)
		}
		return hashStruct(typ, nested, types)
	}

	switch {
	case typ == "string":
		s, _ := value.(string)
		return Keccak256([]byte(s)), nil
	case typ == "bytes":
		return Keccak256(toBytes(value)), nil
	case typ == "bool":
		b, _ := value.(bool)
		if b {
			return padLeft([]byte{1}, 32), nil
		}
		return padLeft([]byte{0}, 32), nil
	case typ == "address":
		return padLeft(hexToBytes(toHexString(value)), 32), nil
	case strings.HasPrefix(typ, "bytes"):
		return padLeft(toBytes(value), 32), nil
	case strings.HasPrefix(typ, "uint"), strings.HasPrefix(typ, "int"):
		n, err := toBigInt(value)
		if err != nil {
			return nil, err
		}
		return padLeft(n.Bytes(), 32), nil
	default:
		return nil, fmt.Errorf("unsupported EIP-712 field type %q", typ)
	}
}

// encodeTypeSignature produces the canonical "Type(field type,...)"
// signature, with referenced struct types (sorted lexically, excluding the
// primary type itself) appended, per EIP-712 §encodeType.
func encodeTypeSignature(primaryType string, fields []TypedDataField, types map[string][]TypedDataField) string {
	var sb strings.Builder
	sb.WriteString(primaryType)
	sb.WriteByte('(')
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(f.Type)
		sb.WriteByte(' ')
		sb.WriteString(f.Name)
	}
	sb.WriteByte(')')

	if types != nil {
		deps := referencedTypes(primaryType, fields, types, map[string]bool{primaryType: true})
		sort.Strings(deps)
		for _, dep := range deps {
			sb.WriteString(dep)
			sb.WriteByte('(')
			for i, f := range types[dep] {
				if i > 0 {
					sb.WriteByte(',')
				}
				sb.WriteString(f.Type)
				sb.WriteByte(' ')
				sb.WriteString(f.Name)
			}
			sb.WriteByte(')')
		}
	}
	return sb.String()
}

func referencedTypes(primaryType string, fields []TypedDataField, types map[string][]TypedDataField, seen map[string]bool) []string {
	var deps []string
	for _, f := range fields {
		base := strings.TrimSuffix(f.Type, "[]")
		if _, ok := types[base]; !ok || seen[base] {
			continue
		}
		seen[base] = true
		deps = append(deps, base)
		deps = append(deps, referencedTypes(base, types[base], types, seen)...)
	}
	return deps
}

func padLeft(data []byte, size int) []byte {
	if len(data) >= size {
		return data[len(data)-size:]
	}
	out := make([]byte, size)
	copy(out[size-len(data):], data)
	return out
}

func hexToBytes(s string) []byte {
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 != 0 {
		s = "0" + s
	}
	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		hi := hexNibble(s[i*2])
		lo := hexNibble(s[i*2+1])
		out[i] = hi<<4 | lo
	}
	return out
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}

func toBytes(value interface{}) []byte {
	switch v := value.(type) {
	case []byte:
		return v
	case string:
		return hexToBytes(v)
	default:
		return nil
	}
}

func toHexString(value interface{}) string {
	s, _ := value.(string)
	return s
}

func toBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return v, nil
	case string:
		n, ok := new(big.Int).SetString(strings.TrimPrefix(v, "0x"), func() int {
			if strings.HasPrefix(v, "0x") {
				return 16
			}
			return 10
		}())
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", v)
		}
		return n, nil
	case float64:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case int:
		return big.NewInt(int64(v)), nil
	default:
		return nil, fmt.Errorf("unsupported integer value %v (%T)", value, value)
	}
}
