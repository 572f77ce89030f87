package bundlerclient

import (
	"context"
	"testing"
	"time"

	"github.com/ewsdk/wallet-core/types"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBundlerURL = "http://bundler.example.test"

func newMockClient(t *testing.T) *Client {
	t.Helper()
	c := New(testBundlerURL, 5*time.Second)
	httpmock.ActivateNonDefault(c.restyClient().GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func registerRPCResult(t *testing.T, result string) {
	t.Helper()
	httpmock.RegisterResponder("POST", testBundlerURL+"/",
		httpmock.NewStringResponder(200, `{"jsonrpc":"2.0","id":1,"result":`+result+`}`))
}

func TestSendUserOperation(t *testing.T) {
	c := newMockClient(t)
	registerRPCResult(t, `"0xabc123"`)

	hash, err := c.SendUserOperation(context.Background(), map[string]string{"sender": "0x1"}, types.EntryPointAddressV6)
	require.NoError(t, err)
	assert.Equal(t, "0xabc123", hash)
}

func TestSendUserOperationRPCErrorMapsToErrBundlerError(t *testing.T) {
	c := newMockClient(t)
	httpmock.RegisterResponder("POST", testBundlerURL+"/",
		httpmock.NewStringResponder(200, `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"invalid signature"}}`))

	_, err := c.SendUserOperation(context.Background(), map[string]string{}, types.EntryPointAddressV6)
	assert.ErrorIs(t, err, types.ErrBundlerError)
}

func TestGetUserOperationReceiptNotYetMined(t *testing.T) {
	c := newMockClient(t)
	registerRPCResult(t, `null`)

	receipt, err := c.GetUserOperationReceipt(context.Background(), "0xabc123")
	require.NoError(t, err)
	assert.Nil(t, receipt)
}

func TestGetUserOperationReceiptMined(t *testing.T) {
	c := newMockClient(t)
	registerRPCResult(t, `{"userOpHash":"0xabc123","transactionHash":"0xdeadbeef","success":true}`)

	receipt, err := c.GetUserOperationReceipt(context.Background(), "0xabc123")
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, "0xdeadbeef", receipt.TransactionHash)
}

func TestGetUserOperationGasPrice(t *testing.T) {
	c := newMockClient(t)
	registerRPCResult(t, `{"maxFeePerGas":"0x3b9aca00","maxPriorityFeePerGas":"0x3b9aca00"}`)

	price, err := c.GetUserOperationGasPrice(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, price.MaxFeePerGas)
}

func TestEstimateUserOperationGasWithStateOverride(t *testing.T) {
	c := newMockClient(t)
	registerRPCResult(t, `{"callGasLimit":"0x5208","verificationGasLimit":"0x186a0","preVerificationGas":"0xbb80"}`)

	estimate, err := c.EstimateUserOperationGas(context.Background(), map[string]string{"sender": "0x1"}, types.EntryPointAddressV7,
		map[string]types.StateOverride{"0xtoken": {StateDiff: map[string]string{"0xslot": "0xffffffffffffffffffffffff"}}})
	require.NoError(t, err)
	assert.NotNil(t, estimate.CallGasLimit)
}

func TestHTTPTransportErrorMapsToErrBundlerError(t *testing.T) {
	c := newMockClient(t)
	httpmock.RegisterResponder("POST", testBundlerURL+"/",
		httpmock.NewStringResponder(500, `internal error`))

	_, err := c.SendUserOperation(context.Background(), map[string]string{}, types.EntryPointAddressV6)
	assert.ErrorIs(t, err, types.ErrBundlerError)
}
