package useroperation

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ewsdk/wallet-core/bundlerclient"
	"github.com/ewsdk/wallet-core/types"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBundlerURL = "http://bundler.example.test"

type rpcCall struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// newMockBundler wires a bundler Client whose responder dispatches on the
// JSON-RPC method name so the builder's full pipeline can run end to end.
func newMockBundler(t *testing.T) *bundlerclient.Client {
	t.Helper()
	c := bundlerclient.New(testBundlerURL, 5*time.Second)
	httpmock.ActivateNonDefault(c.HTTPClient().GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder("POST", testBundlerURL+"/", func(req *http.Request) (*http.Response, error) {
		var call rpcCall
		if err := json.NewDecoder(req.Body).Decode(&call); err != nil {
			return httpmock.NewStringResponse(400, "bad request"), nil
		}

		var result string
		switch call.Method {
		case "thirdweb_getUserOperationGasPrice":
			result = `{"maxFeePerGas":"3000000000","maxPriorityFeePerGas":"1000000000"}`
		case "eth_estimateUserOperationGas":
			result = `{"callGasLimit":"100000","verificationGasLimit":"200000","preVerificationGas":"50000"}`
		case "pm_sponsorUserOperation":
			result = `{"paymaster":"0x3333333333333333333333333333333333333333","paymasterData":"0x"}`
		case "eth_sendUserOperation":
			result = `"0xabc123"`
		case "eth_getUserOperationReceipt":
			result = `{"userOpHash":"0xabc123","transactionHash":"0xdeadbeef","success":true}`
		default:
			return httpmock.NewStringResponse(500, "unknown method "+call.Method), nil
		}

		return httpmock.NewStringResponse(200, `{"jsonrpc":"2.0","id":1,"result":`+result+`}`), nil
	})

	return c
}

type fakeEthClient struct {
	deployed bool
}

func (f *fakeEthClient) GetCode(ctx context.Context, address string) (string, error) {
	if f.deployed {
		return "0x6080604052", nil
	}
	return "0x", nil
}

func (f *fakeEthClient) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeEthClient) GetNonce(ctx context.Context, entryPoint, account string, key *big.Int) (*big.Int, error) {
	return big.NewInt(7), nil
}

type fakeSigner struct {
	external bool
}

func (f *fakeSigner) Address() string { return "0x1111111111111111111111111111111111111111" }
func (f *fakeSigner) PersonalSign(msg []byte) (string, error) {
	return "0x" + string(make([]byte, 130)), nil
}
func (f *fakeSigner) IsExternal() bool { return f.external }

func newTestBuilder(t *testing.T, deployed bool) *Builder {
	bundler := newMockBundler(t)
	return &Builder{
		Bundler:    bundler,
		Paymaster:  bundler,
		Eth:        &fakeEthClient{deployed: deployed},
		EntryPoint: types.EntryPointAddressV7,
		Version:    types.EntryPointV7,
		Factory: Factory{
			Address: "0x2222222222222222222222222222222222222222",
			CreateAccountCallData: func(owner string) string {
				return "0xdeadbeef"
			},
		},
		Signer:  &fakeSigner{},
		Account: "0x9999999999999999999999999999999999999999",
	}
}

func TestBuilderSendTransactionDeployedAccountOmitsFactory(t *testing.T) {
	b := newTestBuilder(t, true)
	result, err := b.SendTransaction(context.Background(), Call{CallData: "0x"})
	require.NoError(t, err)
	assert.Equal(t, "0xabc123", result.UserOpHash)
}

func TestBuilderSendTransactionUndeployedAccountEmitsFactory(t *testing.T) {
	b := newTestBuilder(t, false)
	result, err := b.SendTransaction(context.Background(), Call{CallData: "0x"})
	require.NoError(t, err)
	assert.Equal(t, "0xabc123", result.UserOpHash)
}

func TestBuilderPadsCallGasLimitAfterEstimation(t *testing.T) {
	b := newTestBuilder(t, true)

	factory, factoryData, err := b.resolveInitCodeV7(context.Background())
	require.NoError(t, err)
	assert.Empty(t, factory)
	assert.Empty(t, factoryData)

	op := &types.UserOperationV7{
		Sender:               b.Account,
		Nonce:                big.NewInt(1),
		MaxFeePerGas:         big.NewInt(1),
		MaxPriorityFeePerGas: big.NewInt(1),
		Signature:            "0x" + string(make([]byte, 130)),
	}
	require.NoError(t, b.estimateAndPaymasterV7(context.Background(), op))
	op.CallGasLimit = new(big.Int).Add(op.CallGasLimit, big.NewInt(callGasPaddingV7))
	assert.Equal(t, big.NewInt(100000+callGasPaddingV7), op.CallGasLimit)
}

func TestWaitOrClaimDeploySerializesConcurrentCallers(t *testing.T) {
	b := newTestBuilder(t, false)

	claimed1, err := b.waitOrClaimDeploy(context.Background())
	require.NoError(t, err)
	assert.True(t, claimed1)

	var claimed2 bool
	var wg sync.WaitGroup
	var secondDone int32
	wg.Add(1)
	go func() {
		defer wg.Done()
		c, err := b.waitOrClaimDeploy(context.Background())
		require.NoError(t, err)
		claimed2 = c
		atomic.StoreInt32(&secondDone, 1)
	}()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&secondDone), "second caller must still be waiting while the flag is held")

	b.releaseDeploy()
	wg.Wait()
	assert.False(t, claimed2, "second caller observes the flag already cleared and does not re-claim")
}

// newMockBundlerCountingSends behaves like newMockBundler but also counts
// eth_sendUserOperation calls, so ERC-20 approval tests can assert the
// approve op and the real op were both actually submitted.
func newMockBundlerCountingSends(t *testing.T) (*bundlerclient.Client, *int32) {
	t.Helper()
	c := bundlerclient.New(testBundlerURL, 5*time.Second)
	httpmock.ActivateNonDefault(c.HTTPClient().GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	var sendCount int32
	httpmock.RegisterResponder("POST", testBundlerURL+"/", func(req *http.Request) (*http.Response, error) {
		var call rpcCall
		if err := json.NewDecoder(req.Body).Decode(&call); err != nil {
			return httpmock.NewStringResponse(400, "bad request"), nil
		}

		var result string
		switch call.Method {
		case "thirdweb_getUserOperationGasPrice":
			result = `{"maxFeePerGas":"3000000000","maxPriorityFeePerGas":"1000000000"}`
		case "eth_estimateUserOperationGas":
			result = `{"callGasLimit":"100000","verificationGasLimit":"200000","preVerificationGas":"50000","paymasterVerificationGasLimit":"10000","paymasterPostOpGasLimit":"10000"}`
		case "pm_sponsorUserOperation":
			result = `{"paymaster":"0x3333333333333333333333333333333333333333","paymasterData":"0x"}`
		case "eth_sendUserOperation":
			atomic.AddInt32(&sendCount, 1)
			result = `"0xabc123"`
		case "eth_getUserOperationReceipt":
			result = `{"userOpHash":"0xabc123","transactionHash":"0xdeadbeef","success":true}`
		default:
			return httpmock.NewStringResponse(500, "unknown method "+call.Method), nil
		}

		return httpmock.NewStringResponse(200, `{"jsonrpc":"2.0","id":1,"result":`+result+`}`), nil
	})

	return c, &sendCount
}

func TestEnsureERC20ApprovalSendsApproveThenMarksApproved(t *testing.T) {
	bundler, sendCount := newMockBundlerCountingSends(t)
	b := &Builder{
		Bundler:    bundler,
		Paymaster:  bundler,
		Eth:        &fakeEthClient{deployed: true},
		EntryPoint: types.EntryPointAddressV7,
		Version:    types.EntryPointV7,
		Factory: Factory{
			Address:               "0x2222222222222222222222222222222222222222",
			CreateAccountCallData: func(owner string) string { return "0xdeadbeef" },
		},
		Signer:              &fakeSigner{},
		Account:             "0x9999999999999999999999999999999999999999",
		ERC20PaymasterToken: "0x4444444444444444444444444444444444444444",
		PaymasterAddress:    "0x5555555555555555555555555555555555555555",
	}

	result, err := b.SendTransaction(context.Background(), Call{CallData: "0x"})
	require.NoError(t, err)
	assert.Equal(t, "0xabc123", result.UserOpHash)
	assert.True(t, b.isApproved, "approval must be marked done after a successful approve send")
	assert.Equal(t, int32(2), atomic.LoadInt32(sendCount), "the approve op and the real op must each be sent once")

	// A second send must not re-approve.
	_, err = b.SendTransaction(context.Background(), Call{CallData: "0x"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(sendCount), "a subsequent send must not re-send the approve op")
}

func TestEncodeERC20ApproveAndExecuteShapes(t *testing.T) {
	approve := encodeERC20Approve("0x5555555555555555555555555555555555555555", erc20AllowanceCeiling)
	wantApproveSelector := "0x" + hex.EncodeToString(selector("approve(address,uint256)"))
	assert.Equal(t, wantApproveSelector, approve[:10])
	assert.Len(t, approve, 2+8+64+64) // 0x + selector + 2 words

	exec := encodeExecute("0x4444444444444444444444444444444444444444", big.NewInt(0), []byte{0xde, 0xad})
	wantExecSelector := "0x" + hex.EncodeToString(selector("execute(address,uint256,bytes)"))
	assert.Equal(t, wantExecSelector, exec[:10])
}

func TestSignDispatchesExternalVsInternal(t *testing.T) {
	hash := make([]byte, 32)

	internal := &Builder{Signer: &fakeSigner{external: false}}
	_, err := internal.sign(hash)
	require.NoError(t, err)

	external := &Builder{Signer: &fakeSigner{external: true}}
	_, err = external.sign(hash)
	require.NoError(t, err)
}
