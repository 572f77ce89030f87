package types

import "math/big"

// TransactionInput is the abstract transaction C5's SignTransaction
// accepts. Presence of GasPrice selects legacy EIP-155 RLP; presence of
// MaxFeePerGas/MaxPriorityFeePerGas selects EIP-1559 type-2 RLP.
type TransactionInput struct {
	ChainID              *big.Int
	Nonce                uint64
	To                   *string // nil for contract creation
	Value                *big.Int
	Data                 []byte
	GasLimit             uint64
	GasPrice             *big.Int // legacy path
	MaxFeePerGas         *big.Int // EIP-1559 path
	MaxPriorityFeePerGas *big.Int // EIP-1559 path
}

// ZkTransaction is a native ZK-Sync EIP-712 transaction (transaction type
// 0x71). It has no UserOperation; the paymaster is addressed directly.
type ZkTransaction struct {
	ChainID           *big.Int
	From              string
	To                string
	GasLimit          *big.Int
	GasPerPubdataByte *big.Int
	MaxFeePerGas      *big.Int
	MaxPriorityFeePerGas *big.Int
	Nonce             uint64
	Value             *big.Int
	Data              []byte
	PaymasterAddress  string
	PaymasterInput    []byte
}

// ZkPaymasterParams is what the paymaster service returns for a gasless
// ZK-Sync transaction.
type ZkPaymasterParams struct {
	PaymasterAddress string `json:"paymasterAddress"`
	PaymasterInput   string `json:"paymasterInput"`
}
