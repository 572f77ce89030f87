package useroperation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/log/level"

	"github.com/ewsdk/wallet-core/bundlerclient"
	"github.com/ewsdk/wallet-core/crypto"
	"github.com/ewsdk/wallet-core/global"
	"github.com/ewsdk/wallet-core/metrics"
	"github.com/ewsdk/wallet-core/types"
)

// callGasPaddingV6 and callGasPaddingV7 compensate for estimation on a
// not-yet-deployed account underestimating calldata cost (spec §4.6 step 4).
const (
	callGasPaddingV6 = 50_000
	callGasPaddingV7 = 21_000
)

// erc20AllowanceCeiling is the allowance the ERC-20 paymaster path approves,
// chosen so the account never needs to re-approve (2^96 - 1, spec §4.6).
var erc20AllowanceCeiling = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 96), big.NewInt(1))

// EthClient is the minimal chain surface the builder needs beyond the
// bundler RPC: bytecode presence, chain id, and the EntryPoint's nonce
// accounting. A production binding wraps an eth_call-capable RPC client.
type EthClient interface {
	GetCode(ctx context.Context, address string) (string, error)
	ChainID(ctx context.Context) (*big.Int, error)
	GetNonce(ctx context.Context, entryPoint, account string, key *big.Int) (*big.Int, error)
}

// Factory computes the account-factory deployment calldata for a
// not-yet-deployed smart account.
type Factory struct {
	Address string
	// CreateAccountCallData returns the calldata for createAccount(owner,
	// salt) given the owner address; salt is fixed at 0x per spec §4.6 step 1.
	CreateAccountCallData func(owner string) string
}

// Signer is the personal-account abstraction the builder signs a UserOp
// hash with (spec §4.6 step 6). External signers (EOA/injected wallets)
// stringify the hash to hex before signing; internal signers accept the raw
// bytes directly and pre-prefix them.
type Signer interface {
	Address() string
	PersonalSign(msg []byte) (string, error)
	IsExternal() bool
}

// InternalSigner wraps a PrivateKeyAccount reconstructed from Shamir shares;
// it is never an "external" signer.
type InternalSigner struct {
	Account *crypto.PrivateKeyAccount
}

func (s *InternalSigner) Address() string                       { return s.Account.Address() }
func (s *InternalSigner) PersonalSign(msg []byte) (string, error) { return s.Account.PersonalSign(msg) }
func (s *InternalSigner) IsExternal() bool                        { return false }
func (s *InternalSigner) SignDigest(digest []byte) (string, error) {
	return s.Account.SignDigest(digest)
}

// Builder assembles, packs, estimates, paymaster-decorates, hashes, signs
// and submits UserOperations for one smart account (component C6). One
// Builder instance corresponds to one SmartWallet (C7); is_deploying and
// is_approving are per-instance single-writer state under the cooperative
// scheduling model (spec §5).
type Builder struct {
	Bundler     *bundlerclient.Client
	Paymaster   *bundlerclient.Client // nil disables sponsorship
	Eth         EthClient
	EntryPoint  string
	Version     types.EntryPointVersion
	Factory     Factory
	Signer      Signer
	Account     string // smart account address

	// ERC20PaymasterToken, when non-empty, selects the ERC-20 paymaster
	// path: the builder ensures a standing allowance before the first send
	// and injects a balance state override during estimation (spec §4.6
	// ERC-20 paymaster path). Leave empty for native-gas or sponsored txs.
	ERC20PaymasterToken string

	// PaymasterAddress is the on-chain ERC-20 paymaster contract the
	// allowance above is granted to. Required whenever ERC20PaymasterToken
	// is set; the builder needs it up front to build the approve() call,
	// before any sponsorship round trip would otherwise reveal it.
	PaymasterAddress string

	mu          sync.Mutex
	isDeploying bool
	isApproving bool
	isApproved  bool
}

// BuildResult is the outcome of SendTransaction: the userOpHash and, once
// polling completes, the mined transaction hash.
type BuildResult struct {
	UserOpHash      string
	TransactionHash string
}

// Call is one target the caller wants the smart account to execute; a
// UserOp's callData is the account's execute(target, value, data) encoding,
// which the caller supplies pre-encoded (component C7 owns that ABI).
type Call struct {
	CallData string // already-encoded account.execute(...) calldata, "0x"-prefixed
}

// SendTransaction runs the full common pipeline (spec §4.6 steps 1-7) and
// returns once the bundler accepts the op, with the receipt poll continuing
// in the background via WaitMined.
func (b *Builder) SendTransaction(ctx context.Context, call Call) (result *BuildResult, err error) {
	version := "v0.6"
	if b.Version == types.EntryPointV7 {
		version = "v0.7"
	}
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		metrics.UserOpsSentTotal.WithLabelValues(version, outcome).Inc()
		if err == nil {
			metrics.UserOpSubmitLatency.Observe(float64(time.Since(start).Milliseconds()))
		}
	}()

	if b.Version == types.EntryPointV7 {
		return b.sendV7(ctx, call)
	}
	return b.sendV6(ctx, call)
}

func (b *Builder) sendV6(ctx context.Context, call Call) (*BuildResult, error) {
	initCode, err := b.resolveInitCodeV6(ctx)
	if err != nil {
		return nil, err
	}

	nonce, err := b.selectNonce(ctx)
	if err != nil {
		return nil, err
	}

	gasPrice, err := b.Bundler.GetUserOperationGasPrice(ctx)
	if err != nil {
		return nil, err
	}

	op := &types.UserOperationV6{
		Sender:               b.Account,
		Nonce:                nonce,
		InitCode:             initCode,
		CallData:             call.CallData,
		MaxFeePerGas:         gasPrice.MaxFeePerGas,
		MaxPriorityFeePerGas: gasPrice.MaxPriorityFeePerGas,
		PaymasterAndData:     "0x",
		Signature:            "0x" + hex.EncodeToString(types.DummySignature),
	}

	if err := b.estimateAndPaymasterV6(ctx, op); err != nil {
		return nil, err
	}
	op.CallGasLimit = new(big.Int).Add(op.CallGasLimit, big.NewInt(callGasPaddingV6))

	chainID, err := b.Eth.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	hash := GetUserOpHashV6(op, b.EntryPoint, chainID)

	sig, err := b.sign(hash)
	if err != nil {
		return nil, err
	}
	op.Signature = sig

	userOpHash, err := b.Bundler.SendUserOperation(ctx, op, b.EntryPoint)
	if err != nil {
		return nil, err
	}
	return &BuildResult{UserOpHash: userOpHash}, nil
}

func (b *Builder) sendV7(ctx context.Context, call Call) (*BuildResult, error) {
	factory, factoryData, err := b.resolveInitCodeV7(ctx)
	if err != nil {
		return nil, err
	}

	nonce, err := b.selectNonce(ctx)
	if err != nil {
		return nil, err
	}

	gasPrice, err := b.Bundler.GetUserOperationGasPrice(ctx)
	if err != nil {
		return nil, err
	}

	op := &types.UserOperationV7{
		Sender:               b.Account,
		Nonce:                nonce,
		Factory:              factory,
		FactoryData:          factoryData,
		CallData:             call.CallData,
		MaxFeePerGas:         gasPrice.MaxFeePerGas,
		MaxPriorityFeePerGas: gasPrice.MaxPriorityFeePerGas,
		Signature:            "0x" + hex.EncodeToString(types.DummySignature),
	}

	if b.ERC20PaymasterToken != "" {
		if err := b.ensureERC20Approval(ctx); err != nil {
			return nil, err
		}
	}

	if err := b.estimateAndPaymasterV7(ctx, op); err != nil {
		return nil, err
	}
	op.CallGasLimit = new(big.Int).Add(op.CallGasLimit, big.NewInt(callGasPaddingV7))

	chainID, err := b.Eth.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	packed := Pack(op)
	hash := GetUserOpHashV7(packed, b.EntryPoint, chainID)

	sig, err := b.sign(hash)
	if err != nil {
		return nil, err
	}
	op.Signature = sig

	userOpHash, err := b.Bundler.SendUserOperation(ctx, op, b.EntryPoint)
	if err != nil {
		return nil, err
	}
	return &BuildResult{UserOpHash: userOpHash}, nil
}

// resolveInitCodeV6 implements spec §4.6 step 1 for the flat v0.6 shape. A
// deployed account yields "0x"; otherwise the caller is mid-deploy and must
// observe is_deploying serialization (spec invariant 7).
func (b *Builder) resolveInitCodeV6(ctx context.Context) (string, error) {
	deployed, err := b.isDeployed(ctx)
	if err != nil {
		return "", err
	}
	if deployed {
		return "0x", nil
	}

	claimed, err := b.waitOrClaimDeploy(ctx)
	if err != nil {
		return "", err
	}
	if !claimed {
		return "0x", nil
	}
	defer b.releaseDeploy()

	return b.Factory.Address + strings.TrimPrefix(b.Factory.CreateAccountCallData(b.Signer.Address()), "0x"), nil
}

func (b *Builder) resolveInitCodeV7(ctx context.Context) (factory, factoryData string, err error) {
	deployed, err := b.isDeployed(ctx)
	if err != nil {
		return "", "", err
	}
	if deployed {
		return "", "", nil
	}

	claimed, err := b.waitOrClaimDeploy(ctx)
	if err != nil {
		return "", "", err
	}
	if !claimed {
		return "", "", nil
	}
	defer b.releaseDeploy()

	return b.Factory.Address, b.Factory.CreateAccountCallData(b.Signer.Address()), nil
}

func (b *Builder) isDeployed(ctx context.Context) (bool, error) {
	code, err := b.Eth.GetCode(ctx, b.Account)
	if err != nil {
		return false, err
	}
	return code != "" && code != "0x", nil
}

// waitOrClaimDeploy implements the is_deploying cooperative mutex (spec
// §4.7, invariant 7): the first caller to find the flag clear claims it
// (claimed=true) and must emit initCode; any caller that arrives while
// another deploy is in flight waits at 1 Hz until that flag clears, then
// proceeds with empty initCode of its own (claimed=false) — it never
// re-claims, since by the time the flag clears the account is deployed.
func (b *Builder) waitOrClaimDeploy(ctx context.Context) (claimed bool, err error) {
	b.mu.Lock()
	if !b.isDeploying {
		b.isDeploying = true
		b.mu.Unlock()
		return true, nil
	}
	b.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(time.Second):
		}

		b.mu.Lock()
		stillDeploying := b.isDeploying
		b.mu.Unlock()
		if !stillDeploying {
			return false, nil
		}
	}
}

func (b *Builder) releaseDeploy() {
	b.mu.Lock()
	b.isDeploying = false
	b.mu.Unlock()
}

// selectNonce implements spec §4.6 step 2: 24 random bytes reduced to a
// 192-bit key, then EntryPoint.getNonce(account, key).
func (b *Builder) selectNonce(ctx context.Context) (*big.Int, error) {
	var keyBytes [24]byte
	if _, err := rand.Read(keyBytes[:]); err != nil {
		return nil, fmt.Errorf("useroperation: generating nonce key: %w", err)
	}
	key := new(big.Int).SetBytes(keyBytes[:])
	return b.Eth.GetNonce(ctx, b.EntryPoint, b.Account, key)
}

// estimateAndPaymasterV6 implements the two-phase paymaster+estimation
// dance for v0.6 (spec §4.6 step 4).
func (b *Builder) estimateAndPaymasterV6(ctx context.Context, op *types.UserOperationV6) error {
	if b.Paymaster != nil {
		result, err := b.Paymaster.SponsorUserOperation(ctx, op, b.EntryPoint)
		if err != nil {
			return err
		}
		if result.PaymasterAndData != "" {
			op.PaymasterAndData = result.PaymasterAndData
		}
	}

	estimate, err := b.Bundler.EstimateUserOperationGas(ctx, op, b.EntryPoint, nil)
	if err != nil {
		return err
	}
	op.CallGasLimit = estimate.CallGasLimit
	op.VerificationGasLimit = estimate.VerificationGasLimit
	op.PreVerificationGas = estimate.PreVerificationGas

	if b.Paymaster != nil {
		result, err := b.Paymaster.SponsorUserOperation(ctx, op, b.EntryPoint)
		if err != nil {
			return err
		}
		if result.PaymasterAndData != "" {
			op.PaymasterAndData = result.PaymasterAndData
		}
	}
	return nil
}

// estimateAndPaymasterV7 is the v0.7 analogue, additionally injecting the
// ERC-20 paymaster balance override during estimation when approval has
// already completed (spec §4.6 ERC-20 paymaster path).
func (b *Builder) estimateAndPaymasterV7(ctx context.Context, op *types.UserOperationV7) error {
	if b.Paymaster != nil {
		if err := b.sponsorV7(ctx, op); err != nil {
			return err
		}
	}

	var override map[string]types.StateOverride
	if b.isApproved {
		override = b.erc20BalanceOverride()
	}

	estimate, err := b.Bundler.EstimateUserOperationGas(ctx, op, b.EntryPoint, override)
	if err != nil {
		return err
	}
	op.CallGasLimit = estimate.CallGasLimit
	op.VerificationGasLimit = estimate.VerificationGasLimit
	op.PreVerificationGas = estimate.PreVerificationGas
	op.PaymasterVerificationGasLimit = estimate.PaymasterVerificationGasLimit
	op.PaymasterPostOpGasLimit = estimate.PaymasterPostOpGasLimit

	if b.Paymaster != nil {
		if err := b.sponsorV7(ctx, op); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) sponsorV7(ctx context.Context, op *types.UserOperationV7) error {
	result, err := b.Paymaster.SponsorUserOperation(ctx, op, b.EntryPoint)
	if err != nil {
		return err
	}
	if result.Paymaster != "" {
		op.Paymaster = result.Paymaster
		op.PaymasterData = result.PaymasterData
	}
	return nil
}

// erc20BalanceOverride computes the state override forcing the account's
// token balance slot to erc20AllowanceCeiling so estimation succeeds
// regardless of the account's real balance (spec §4.6 ERC-20 paymaster path).
func (b *Builder) erc20BalanceOverride() map[string]types.StateOverride {
	slot := crypto.Keccak256(pad32FromBytes(hexAddressBytes(b.Account)), pad32(big.NewInt(0)))
	return map[string]types.StateOverride{
		b.ERC20PaymasterToken: {
			StateDiff: map[string]string{
				"0x" + hex.EncodeToString(slot): "0x" + hex.EncodeToString(pad32(erc20AllowanceCeiling)),
			},
		},
	}
}

// ensureERC20Approval guards the one-time ERC-20 allowance approval with
// is_approving to prevent mutual recursion through the builder (spec §4.6).
// The approval itself goes through SendTransaction, re-entering the
// builder with the paymaster disabled so the approve op cannot itself
// require the very allowance it is establishing.
func (b *Builder) ensureERC20Approval(ctx context.Context) error {
	b.mu.Lock()
	if b.isApproved || b.isApproving {
		b.mu.Unlock()
		return nil
	}
	b.isApproving = true
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.isApproving = false
		b.mu.Unlock()
	}()

	approveCalldata := encodeERC20Approve(b.PaymasterAddress, erc20AllowanceCeiling)
	callData := encodeExecute(b.ERC20PaymasterToken, big.NewInt(0), decodeHex(approveCalldata))

	savedPaymaster := b.Paymaster
	b.Paymaster = nil
	_, err := b.SendTransaction(ctx, Call{CallData: callData})
	b.Paymaster = savedPaymaster
	if err != nil {
		return fmt.Errorf("useroperation: approving erc20 paymaster allowance: %w", err)
	}

	b.mu.Lock()
	b.isApproved = true
	b.mu.Unlock()
	return nil
}

// sign implements spec §4.6 step 6: external signers sign the hex string
// form of the hash, internal signers sign the raw bytes.
func (b *Builder) sign(hash []byte) (string, error) {
	if b.Signer.IsExternal() {
		return b.Signer.PersonalSign([]byte("0x" + hex.EncodeToString(hash)))
	}
	return b.Signer.PersonalSign(hash)
}

// WaitMined polls eth_getUserOperationReceipt at 1 Hz until a transaction
// hash surfaces (spec §4.6 step 7).
func (b *Builder) WaitMined(ctx context.Context, userOpHash string) (string, error) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		receipt, err := b.Bundler.GetUserOperationReceipt(ctx, userOpHash)
		if err != nil {
			return "", err
		}
		if receipt != nil {
			return receipt.TransactionHash, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// SendAndWait combines SendTransaction and WaitMined, logging the
// submission the way the teacher instruments its own async delivery paths.
func (b *Builder) SendAndWait(ctx context.Context, call Call) (*BuildResult, error) {
	submitted := time.Now()
	result, err := b.SendTransaction(ctx, call)
	if err != nil {
		level.Error(global.Logger).Log("msg", "useroperation submission failed", "err", err)
		return nil, err
	}
	level.Info(global.Logger).Log("msg", "useroperation submitted", "userOpHash", result.UserOpHash)

	txHash, err := b.WaitMined(ctx, result.UserOpHash)
	if err != nil {
		return result, err
	}
	result.TransactionHash = txHash
	metrics.UserOpMinedLatency.Observe(float64(time.Since(submitted).Milliseconds()))
	return result, nil
}
