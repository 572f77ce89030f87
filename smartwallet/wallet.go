// Package smartwallet implements component C7, the Smart Wallet Facade:
// deploy-on-first-use lifecycle, ERC-1271 signature validation over a
// counterfactual or deployed account, and session-key/admin permissioning,
// with a reduced surface on the ZK-Sync native path (spec §4.7).
package smartwallet

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/go-kit/log/level"
	"github.com/google/uuid"

	"github.com/ewsdk/wallet-core/crypto"
	"github.com/ewsdk/wallet-core/global"
	"github.com/ewsdk/wallet-core/metrics"
	"github.com/ewsdk/wallet-core/types"
	"github.com/ewsdk/wallet-core/useroperation"
)

// newRequestUID generates the uid field every SignerPermissionRequest
// carries, preventing replay of an identical permission grant/revoke.
func newRequestUID() [16]byte {
	return [16]byte(uuid.New())
}

// erc1271MagicValueHex is the "0x1626ba7e" magic value spelled out for
// error messages and tests.
const erc1271MagicValueHex = "0x1626ba7e"

// ChainReader is the minimal read-only RPC surface the facade needs beyond
// the builder: eth_call against the smart account contract.
type ChainReader interface {
	Call(ctx context.Context, to, data string) (string, error)
}

// PersonalAccount is the reconstructed (or external) signer behind the
// smart account: the same useroperation.Signer the builder uses, plus raw
// digest signing for the ERC-1271 message-wrapping path.
type PersonalAccount interface {
	useroperation.Signer
	SignDigest(digest []byte) (string, error)
}

// SmartWallet wraps a useroperation.Builder with the contract-facing
// operations a self-custodial wallet SDK exposes to callers: deployment,
// message signing against ERC-1271, and signer permissioning (spec §4.7).
// One instance corresponds to one Builder/smart-account pair; concurrency
// guarantees follow the builder's (spec §5).
type SmartWallet struct {
	Builder *useroperation.Builder
	Chain   ChainReader
	Account PersonalAccount
	ChainID *big.Int

	// IsZkSync selects the ZK-Sync native path: permissioning operations
	// are rejected and PersonalSign delegates directly to the personal
	// account rather than probing the contract (spec §4.7, §4.8).
	IsZkSync bool

	deployPollInterval time.Duration
}

func (w *SmartWallet) pollInterval() time.Duration {
	if w.deployPollInterval > 0 {
		return w.deployPollInterval
	}
	return time.Second
}

// IsDeployed reports whether the smart account currently has contract code,
// the same eth_getCode check the builder itself uses to decide whether to
// emit initCode (spec §4.7). It deliberately goes through the builder's
// EthClient rather than ChainReader's eth_call: an eth_call against the
// account address with empty calldata is not equivalent to eth_getCode on
// any real node and would always read as "undeployed".
func (w *SmartWallet) IsDeployed(ctx context.Context) (bool, error) {
	code, err := w.Builder.Eth.GetCode(ctx, w.Builder.Account)
	if err != nil {
		return false, fmt.Errorf("smartwallet: checking deployment: %w", err)
	}
	return code != "" && code != "0x", nil
}

// ForceDeploy sends a zero-value self-call UserOp, the standard way to make
// the factory's initCode land on-chain without performing any other action
// (spec §4.7).
func (w *SmartWallet) ForceDeploy(ctx context.Context) (err error) {
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		metrics.DeploymentEventsTotal.WithLabelValues(outcome).Inc()
	}()

	deployed, err := w.IsDeployed(ctx)
	if err != nil {
		return err
	}
	if deployed {
		return nil
	}

	call := useroperation.Call{
		CallData: encodeExecute(w.Builder.Account, big.NewInt(0), nil),
	}
	result, sendErr := w.Builder.SendAndWait(ctx, call)
	if sendErr != nil {
		err = fmt.Errorf("smartwallet: force deploy: %w", sendErr)
		return err
	}
	if result.TransactionHash == "" {
		err = types.ErrDeploymentFailed
		return err
	}

	deployed, err = w.IsDeployed(ctx)
	if err != nil {
		return err
	}
	if !deployed {
		err = types.ErrDeploymentFailed
		return err
	}
	return nil
}

// ensureDeployed blocks until the account has code, deploying it first if
// necessary.
func (w *SmartWallet) ensureDeployed(ctx context.Context) error {
	deployed, err := w.IsDeployed(ctx)
	if err != nil {
		return err
	}
	if deployed {
		return nil
	}
	return w.ForceDeploy(ctx)
}

// accountMessageTypedData builds the EIP-712 wrapper a contract account
// expects when it implements getMessageHash (spec §4.7): AccountMessage{
// bytes message } under domain ("Account","1",chainId,account).
func (w *SmartWallet) accountMessageTypedData(originalMsgHash []byte) *crypto.TypedData {
	return &crypto.TypedData{
		Types: map[string][]crypto.TypedDataField{
			"AccountMessage": {{Name: "message", Type: "bytes"}},
		},
		PrimaryType: "AccountMessage",
		Domain: crypto.TypedDataDomain{
			Name:              "Account",
			Version:           "1",
			ChainID:           w.ChainID,
			VerifyingContract: w.Builder.Account,
		},
		Message: map[string]interface{}{
			"message": originalMsgHash,
		},
	}
}

// PersonalSign signs msg over the smart account: on ZK-Sync it delegates
// directly to the personal account (no contract-level wrapping exists on
// that path); otherwise it ensures deployment, probes getMessageHash,
// signs the EIP-712-wrapped digest (or falls back to a plain personal
// signature if the probe fails), and verifies the result against
// isValidSignature before returning it (spec §4.7, fail closed).
func (w *SmartWallet) PersonalSign(ctx context.Context, msg []byte) (string, error) {
	if w.IsZkSync {
		return w.Account.PersonalSign(msg)
	}

	if err := w.ensureDeployed(ctx); err != nil {
		return "", err
	}

	originalMsgHash := crypto.HashPersonalMessage(msg)

	var sig string
	if digest, ok := w.probeGetMessageHash(ctx, originalMsgHash); ok {
		wrapped, err := w.Account.SignDigest(digest)
		if err != nil {
			return "", fmt.Errorf("smartwallet: signing wrapped message digest: %w", err)
		}
		sig = wrapped
	} else {
		personal, err := w.Account.PersonalSign(msg)
		if err != nil {
			return "", fmt.Errorf("smartwallet: personal sign fallback: %w", err)
		}
		sig = personal
	}

	if err := w.verifyERC1271(ctx, originalMsgHash, sig); err != nil {
		return "", err
	}
	return sig, nil
}

// probeGetMessageHash calls account.getMessageHash(originalMsgHash). If the
// call succeeds it re-derives the exact EIP-712 digest the contract expects
// by wrapping originalMsgHash in AccountMessage and hashing it locally,
// rather than trusting the raw call return as the signable digest: the
// contract's getMessageHash return value IS that digest by construction
// (it is itself computed as HashTypedDataV4 of the same wrapper), so
// re-deriving it client-side also serves as a pre-signature consistency
// check against the contract's domain separator.
func (w *SmartWallet) probeGetMessageHash(ctx context.Context, originalMsgHash []byte) ([]byte, bool) {
	calldata := encodeGetMessageHash(originalMsgHash)
	result, err := w.Chain.Call(ctx, w.Builder.Account, calldata)
	if err != nil {
		return nil, false
	}
	contractDigest, err := decodeBytes32(result)
	if err != nil {
		return nil, false
	}

	localDigest, err := crypto.HashTypedDataV4(w.accountMessageTypedData(originalMsgHash))
	if err != nil {
		level.Error(global.Logger).Log("msg", "local AccountMessage digest failed, falling back to personal sign", "err", err)
		return nil, false
	}
	if !bytesEqual(contractDigest, localDigest) {
		level.Error(global.Logger).Log("msg", "contract getMessageHash disagreed with local EIP-712 digest, falling back to personal sign")
		return nil, false
	}
	return localDigest, true
}

func (w *SmartWallet) verifyERC1271(ctx context.Context, hash []byte, sigHex string) error {
	sigBytes := hexDecodeBytes(sigHex)
	calldata := encodeIsValidSignature(hash, sigBytes)
	result, err := w.Chain.Call(ctx, w.Builder.Account, calldata)
	if err != nil {
		return fmt.Errorf("smartwallet: isValidSignature call failed: %w", err)
	}
	magic, err := decodeMagicValue(result)
	if err != nil {
		return fmt.Errorf("smartwallet: decoding isValidSignature result: %w", err)
	}
	if magic != erc1271MagicValue {
		level.Error(global.Logger).Log("msg", "ERC-1271 verification failed", "account", w.Builder.Account)
		return types.ErrInvalidSignature
	}
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// permissionDomain is the EIP-712 domain SignerPermissionRequest is signed
// under: ("Account", "1", chainId, account) (spec §3, §4.7).
func (w *SmartWallet) permissionDomain() crypto.TypedDataDomain {
	return crypto.TypedDataDomain{
		Name:              "Account",
		Version:           "1",
		ChainID:           w.ChainID,
		VerifyingContract: w.Builder.Account,
	}
}

var signerPermissionRequestFields = []crypto.TypedDataField{
	{Name: "signer", Type: "address"},
	{Name: "isAdmin", Type: "uint8"},
	{Name: "approvedTargets", Type: "address[]"},
	{Name: "nativeTokenLimitPerTx", Type: "uint256"},
	{Name: "permissionStartTimestamp", Type: "uint128"},
	{Name: "permissionEndTimestamp", Type: "uint128"},
	{Name: "reqValidityStartTimestamp", Type: "uint128"},
	{Name: "reqValidityEndTimestamp", Type: "uint128"},
	{Name: "uid", Type: "bytes32"},
}

func (w *SmartWallet) signPermissionRequest(req types.SignerPermissionRequest) (string, error) {
	td := &crypto.TypedData{
		Types: map[string][]crypto.TypedDataField{
			"SignerPermissionRequest": signerPermissionRequestFields,
		},
		PrimaryType: "SignerPermissionRequest",
		Domain:      w.permissionDomain(),
		Message: map[string]interface{}{
			"signer":                    req.Signer,
			"isAdmin":                   big.NewInt(int64(req.IsAdmin)),
			"approvedTargets":           approvedTargetsAsInterfaces(req.ApprovedTargets),
			"nativeTokenLimitPerTx":     req.NativeTokenLimitPerTx,
			"permissionStartTimestamp":  big.NewInt(req.PermissionStart),
			"permissionEndTimestamp":    big.NewInt(req.PermissionEnd),
			"reqValidityStartTimestamp": big.NewInt(req.ReqValidityStart),
			"reqValidityEndTimestamp":   big.NewInt(req.ReqValidityEnd),
			"uid":                       req.UID[:],
		},
	}
	return w.Account.SignDigest(mustHashTypedDataV4(td))
}

func mustHashTypedDataV4(td *crypto.TypedData) []byte {
	digest, err := crypto.HashTypedDataV4(td)
	if err != nil {
		// Fields are built entirely from in-process data above; a failure
		// here means signerPermissionRequestFields itself is malformed.
		panic(fmt.Sprintf("smartwallet: building permission request digest: %v", err))
	}
	return digest
}

func approvedTargetsAsInterfaces(targets []string) []interface{} {
	out := make([]interface{}, len(targets))
	for i, t := range targets {
		out[i] = t
	}
	return out
}

// submitPermissionRequest signs req and submits it via
// account.setPermissionsForSigner(req, sig) through the builder. Signing
// happens here, separately from the builder's estimation path, so a
// hardware signer is only prompted once (spec §4.7).
func (w *SmartWallet) submitPermissionRequest(ctx context.Context, req types.SignerPermissionRequest) error {
	if w.IsZkSync {
		return types.ErrNotSupportedOnZkSync
	}
	if err := w.ensureDeployed(ctx); err != nil {
		return err
	}
	sigHex, err := w.signPermissionRequest(req)
	if err != nil {
		return fmt.Errorf("smartwallet: signing permission request: %w", err)
	}
	call := useroperation.Call{
		CallData: encodeSetPermissionsForSigner(req, hexDecodeBytes(sigHex)),
	}
	_, err = w.Builder.SendAndWait(ctx, call)
	if err != nil {
		return fmt.Errorf("smartwallet: submitting permission request: %w", err)
	}
	return nil
}

// CreateSessionKey grants signer a time-boxed, spend-limited session: can
// call only approvedTargets, up to nativeTokenLimitPerTx per call, only
// within [permissionStart, permissionEnd] (spec §3, §8 S6).
func (w *SmartWallet) CreateSessionKey(ctx context.Context, signer string, approvedTargets []string, nativeTokenLimitPerTx *big.Int, permissionStart, permissionEnd int64) error {
	req := types.SignerPermissionRequest{
		Signer:                signer,
		IsAdmin:               types.SignerPermissionSession,
		ApprovedTargets:       approvedTargets,
		NativeTokenLimitPerTx: nativeTokenLimitPerTx,
		PermissionStart:       permissionStart,
		PermissionEnd:         permissionEnd,
		ReqValidityStart:      permissionStart,
		ReqValidityEnd:        permissionEnd,
		UID:                   newRequestUID(),
	}
	return w.submitPermissionRequest(ctx, req)
}

// AddAdmin grants signer unrestricted admin standing on the account.
func (w *SmartWallet) AddAdmin(ctx context.Context, signer string) error {
	now := time.Now().Unix()
	req := types.SignerPermissionRequest{
		Signer:           signer,
		IsAdmin:          types.SignerPermissionGrant,
		ReqValidityStart: now,
		ReqValidityEnd:   now + int64(time.Hour/time.Second),
		UID:              newRequestUID(),
	}
	return w.submitPermissionRequest(ctx, req)
}

// RemoveAdmin revokes signer's admin standing.
func (w *SmartWallet) RemoveAdmin(ctx context.Context, signer string) error {
	now := time.Now().Unix()
	req := types.SignerPermissionRequest{
		Signer:           signer,
		IsAdmin:          types.SignerPermissionRevoke,
		ReqValidityStart: now,
		ReqValidityEnd:   now + int64(time.Hour/time.Second),
		UID:              newRequestUID(),
	}
	return w.submitPermissionRequest(ctx, req)
}

// RevokeSessionKey ends signer's session early by zeroing its permission
// window.
func (w *SmartWallet) RevokeSessionKey(ctx context.Context, signer string) error {
	now := time.Now().Unix()
	req := types.SignerPermissionRequest{
		Signer:           signer,
		IsAdmin:          types.SignerPermissionRevoke,
		PermissionStart:  0,
		PermissionEnd:    0,
		ReqValidityStart: now,
		ReqValidityEnd:   now + int64(time.Hour/time.Second),
		UID:              newRequestUID(),
	}
	return w.submitPermissionRequest(ctx, req)
}

// GetAllActiveSigners returns every signer with standing permissions on the
// account, including any admins and unexpired session keys.
func (w *SmartWallet) GetAllActiveSigners(ctx context.Context) ([]types.ActiveSigner, error) {
	if w.IsZkSync {
		return nil, types.ErrNotSupportedOnZkSync
	}
	calldata := encodeGetAllActiveSigners()
	result, err := w.Chain.Call(ctx, w.Builder.Account, calldata)
	if err != nil {
		return nil, fmt.Errorf("smartwallet: getAllActiveSigners call failed: %w", err)
	}
	return decodeActiveSigners(result)
}

// zkDefaultGasLimit and zkGasPerPubdataByteDefault are the same conservative
// defaults the zkSync SDKs ship for a transaction whose real cost is only
// known after simulation by the sequencer, which this client does not run.
const (
	zkDefaultGasLimit          = 5_000_000
	zkGasPerPubdataByteDefault = 800
)

// zkTransactionFields is the EIP-712 type zkSync's "eip712" signature scheme
// signs over for a type-0x71 transaction (spec §1, §4.6, §166).
var zkTransactionFields = []crypto.TypedDataField{
	{Name: "txType", Type: "uint256"},
	{Name: "from", Type: "uint256"},
	{Name: "to", Type: "uint256"},
	{Name: "gasLimit", Type: "uint256"},
	{Name: "gasPerPubdataByteLimit", Type: "uint256"},
	{Name: "maxFeePerGas", Type: "uint256"},
	{Name: "maxPriorityFeePerGas", Type: "uint256"},
	{Name: "paymaster", Type: "uint256"},
	{Name: "nonce", Type: "uint256"},
	{Name: "value", Type: "uint256"},
	{Name: "data", Type: "bytes"},
	{Name: "paymasterInput", Type: "bytes"},
}

const zkTransactionType = 113 // 0x71

// zkTypedData builds the EIP-712 payload for tx under zkSync's fixed domain
// (spec §4.6: ("zkSync", "2", chainId), no verifying contract - zkSync
// transactions are signed by the account itself, not validated by one).
func (w *SmartWallet) zkTypedData(tx *types.ZkTransaction) *crypto.TypedData {
	return &crypto.TypedData{
		Types: map[string][]crypto.TypedDataField{
			"Transaction": zkTransactionFields,
		},
		PrimaryType: "Transaction",
		Domain: crypto.TypedDataDomain{
			Name:    "zkSync",
			Version: "2",
			ChainID: w.ChainID,
		},
		Message: map[string]interface{}{
			"txType":                 big.NewInt(zkTransactionType),
			"from":                   addressAsUint(tx.From),
			"to":                     addressAsUint(tx.To),
			"gasLimit":               tx.GasLimit,
			"gasPerPubdataByteLimit": tx.GasPerPubdataByte,
			"maxFeePerGas":           tx.MaxFeePerGas,
			"maxPriorityFeePerGas":   tx.MaxPriorityFeePerGas,
			"paymaster":              addressAsUint(tx.PaymasterAddress),
			"nonce":                  new(big.Int).SetUint64(tx.Nonce),
			"value":                  tx.Value,
			"data":                   tx.Data,
			"paymasterInput":         tx.PaymasterInput,
		},
	}
}

// addressAsUint reads addr (a "0x..." hex address, possibly empty) as the
// uint256 zkSync's typed-data scheme expects address-shaped fields to be
// encoded as.
func addressAsUint(addr string) *big.Int {
	if addr == "" {
		return big.NewInt(0)
	}
	return new(big.Int).SetBytes(hexDecodeBytes(addr))
}

// SendTransaction submits a call on behalf of the smart account, branching
// on IsZkSync: on ZK-Sync there is no UserOperation, only a native EIP-712
// transaction (type 0x71), optionally decorated with paymaster data fetched
// from the bundler's zk_paymasterData method; everywhere else it goes
// through the ERC-4337 builder via account.execute (spec §4.6, §166, §215).
// nonce is the account's next native transaction nonce; unlike the
// ERC-4337 path's EntryPoint nonce, this repo has no node dependency that
// tracks it, so the caller supplies it.
func (w *SmartWallet) SendTransaction(ctx context.Context, to string, value *big.Int, data []byte, nonce uint64) (*useroperation.BuildResult, error) {
	if value == nil {
		value = big.NewInt(0)
	}
	if !w.IsZkSync {
		return w.Builder.SendAndWait(ctx, useroperation.Call{
			CallData: encodeExecute(to, value, data),
		})
	}

	tx := &types.ZkTransaction{
		ChainID:           w.ChainID,
		From:              w.Builder.Account,
		To:                to,
		GasLimit:          big.NewInt(zkDefaultGasLimit),
		GasPerPubdataByte: big.NewInt(zkGasPerPubdataByteDefault),
		Nonce:             nonce,
		Value:             value,
		Data:              data,
	}

	price, err := w.Builder.Bundler.GetUserOperationGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("smartwallet: fetching zksync gas price: %w", err)
	}
	tx.MaxFeePerGas = price.MaxFeePerGas
	tx.MaxPriorityFeePerGas = price.MaxPriorityFeePerGas

	params, err := w.Builder.Bundler.ZkPaymasterData(ctx, tx)
	if err != nil {
		level.Error(global.Logger).Log("msg", "zksync paymaster data unavailable, sending self-paid", "err", err)
	} else if params.PaymasterAddress != "" {
		tx.PaymasterAddress = params.PaymasterAddress
		tx.PaymasterInput = hexDecodeBytes(params.PaymasterInput)
	}

	sigHex, err := w.Account.SignDigest(mustHashTypedDataV4(w.zkTypedData(tx)))
	if err != nil {
		return nil, fmt.Errorf("smartwallet: signing zksync transaction: %w", err)
	}

	txHash, err := w.Builder.Bundler.ZkBroadcastTransaction(ctx, encodeZkSignedTransaction(tx, sigHex))
	if err != nil {
		return nil, fmt.Errorf("smartwallet: broadcasting zksync transaction: %w", err)
	}
	return &useroperation.BuildResult{TransactionHash: txHash}, nil
}
