package types

import "math/big"

// EntryPointVersion selects which ERC-4337 EntryPoint revision a
// UserOperation targets. The two versions differ in field layout and gas
// accounting; the version selector is string-equality on the supplied
// EntryPoint address (spec §6).
type EntryPointVersion int

const (
	EntryPointV6 EntryPointVersion = 6
	EntryPointV7 EntryPointVersion = 7
)

// Canonical EntryPoint addresses. Override allowed by config.
const (
	EntryPointAddressV6 = "0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789"
	EntryPointAddressV7 = "0x0000000071727De22E5E9d8BAf0edAc6f37da032"
)

// DummySignature is a syntactically valid 65-byte r||s||v signature used to
// obtain gas estimates before the real signature is known (spec §4.6 step 4).
var DummySignature = []byte{
	0xfF, 0xfF, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0x7a, 0xaa, 0xb7, 0x11, 0x81, 0xb2, 0x4c, 0xb1, 0x1a, 0x0a, 0x3a, 0x93, 0x2c, 0x25, 0xed, 0xb3,
	0x8f, 0x4b, 0x54, 0x1a, 0x1b, 0xcd, 0xab, 0xd3, 0x74, 0x07, 0x35, 0xdf, 0x82, 0x1c, 0x0c, 0x1e,
	0x1c,
}

// UserOperationV6 is the wire shape of an ERC-4337 EntryPoint v0.6
// UserOperation: a flat initCode, paymasterAndData, and three independent
// gas fields.
type UserOperationV6 struct {
	Sender               string   `json:"sender" validate:"required"`
	Nonce                *big.Int `json:"nonce" validate:"required"`
	InitCode             string   `json:"initCode"` // "0x" when the account is already deployed
	CallData             string   `json:"callData"`
	CallGasLimit         *big.Int `json:"callGasLimit"`
	VerificationGasLimit *big.Int `json:"verificationGasLimit"`
	PreVerificationGas   *big.Int `json:"preVerificationGas"`
	MaxFeePerGas         *big.Int `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *big.Int `json:"maxPriorityFeePerGas"`
	PaymasterAndData     string   `json:"paymasterAndData"` // "0x" when self-sponsored
	Signature            string   `json:"signature"`
}

// UserOperationV7 is the wire shape of an ERC-4337 EntryPoint v0.7
// UserOperation: factory/factoryData and paymaster fields are split out
// instead of concatenated, but the wire form is still unpacked — packing
// into accountGasLimits/gasFees happens only for hashing (spec §3).
type UserOperationV7 struct {
	Sender                        string   `json:"sender" validate:"required"`
	Nonce                         *big.Int `json:"nonce" validate:"required"`
	Factory                       string   `json:"factory,omitempty"`
	FactoryData                   string   `json:"factoryData,omitempty"`
	CallData                      string   `json:"callData"`
	CallGasLimit                  *big.Int `json:"callGasLimit"`
	VerificationGasLimit          *big.Int `json:"verificationGasLimit"`
	PreVerificationGas            *big.Int `json:"preVerificationGas"`
	MaxFeePerGas                  *big.Int `json:"maxFeePerGas"`
	MaxPriorityFeePerGas          *big.Int `json:"maxPriorityFeePerGas"`
	Paymaster                     string   `json:"paymaster,omitempty"`
	PaymasterVerificationGasLimit *big.Int `json:"paymasterVerificationGasLimit,omitempty"`
	PaymasterPostOpGasLimit       *big.Int `json:"paymasterPostOpGasLimit,omitempty"`
	PaymasterData                 string   `json:"paymasterData,omitempty"`
	Signature                     string   `json:"signature"`
}

// PackedUserOperation is the hashed form of a v0.7 UserOperation: gas
// fields are packed pairwise into 32-byte slots. Hashing always operates
// on this packed form (spec §3 invariant iii, §4.6 step 5).
type PackedUserOperation struct {
	Sender             string
	Nonce              *big.Int
	InitCode           []byte // factory(20) || factoryData, or empty
	CallData           []byte
	AccountGasLimits   [32]byte // pad16(verificationGasLimit) || pad16(callGasLimit)
	PreVerificationGas *big.Int
	GasFees            [32]byte // pad16(maxPriorityFeePerGas) || pad16(maxFeePerGas)
	PaymasterAndData   []byte   // paymaster(20) || pad16(pmVerGas) || pad16(pmPostOpGas) || paymasterData, or empty
	Signature          []byte
}

// GasPrice is the response shape of thirdweb_getUserOperationGasPrice (or
// an equivalent bundler method).
type GasPrice struct {
	MaxFeePerGas         *big.Int `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *big.Int `json:"maxPriorityFeePerGas"`
}

// GasEstimate is the response shape of eth_estimateUserOperationGas.
type GasEstimate struct {
	CallGasLimit                  *big.Int `json:"callGasLimit"`
	VerificationGasLimit          *big.Int `json:"verificationGasLimit"`
	PreVerificationGas            *big.Int `json:"preVerificationGas"`
	PaymasterVerificationGasLimit *big.Int `json:"paymasterVerificationGasLimit,omitempty"`
	PaymasterPostOpGasLimit       *big.Int `json:"paymasterPostOpGasLimit,omitempty"`
}

// PaymasterResult is what a paymaster service returns for either version;
// unused fields are left zero for the version not in play.
type PaymasterResult struct {
	// v0.6
	PaymasterAndData string `json:"paymasterAndData,omitempty"`
	// v0.7
	Paymaster                     string `json:"paymaster,omitempty"`
	PaymasterData                 string `json:"paymasterData,omitempty"`
	PaymasterVerificationGasLimit string `json:"paymasterVerificationGasLimit,omitempty"`
	PaymasterPostOpGasLimit       string `json:"paymasterPostOpGasLimit,omitempty"`
}

// Receipt is the response shape of eth_getUserOperationReceipt once the
// operation has been mined.
type Receipt struct {
	UserOpHash      string `json:"userOpHash"`
	TransactionHash string `json:"transactionHash"`
	Success         bool   `json:"success"`
}

// StateOverride is one entry of the optional state-override map passed to
// eth_estimateUserOperationGas, used by the ERC-20 paymaster path to make a
// not-yet-funded account estimate as if it held the required balance.
type StateOverride struct {
	StateDiff map[string]string `json:"stateDiff,omitempty"` // storage slot (hex) -> value (hex)
}
