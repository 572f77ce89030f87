package main

import (
	"context"
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/ewsdk/wallet-core/bundlerclient"
	"github.com/ewsdk/wallet-core/embeddedwallet"
	"github.com/ewsdk/wallet-core/global"
	"github.com/ewsdk/wallet-core/smartwallet"
	"github.com/ewsdk/wallet-core/types"
	"github.com/ewsdk/wallet-core/useroperation"
)

var (
	claimEmail string
	claimPhone string
	account    string // smart account address
)

// addSignedInFlags registers the flags every subcommand that operates on a
// signed-in wallet needs: the identity claim GetUser verifies, and the
// smart account address to operate on.
func addSignedInFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&claimEmail, "email", "", "email claimed for the signed-in session")
	cmd.Flags().StringVar(&claimPhone, "phone", "", "phone claimed for the signed-in session")
	cmd.Flags().StringVar(&account, "account", "", "smart account address to operate on")
}

// signIn reconstructs the caller's personal account from the local session
// envelope plus the auth server, per spec §4.4's GetUser contract.
func signIn(ctx context.Context) (*embeddedwallet.Wallet, *types.User) {
	wallet := newEmbeddedWallet()
	user, err := wallet.GetUser(ctx, embeddedwallet.IdentityClaim{Email: claimEmail, Phone: claimPhone})
	check(err)
	return wallet, user
}

// newSmartWallet wires C6+C7 for the signed-in wallet's account, against
// the smart account address passed via --account.
func newSmartWallet(wallet *embeddedwallet.Wallet) *smartwallet.SmartWallet {
	if account == "" {
		check(fmt.Errorf("missing required flag --account"))
	}

	chain := newChainClient()
	entryPoint := global.Conf.Chain.EntryPointV7
	if entryPoint == "" {
		entryPoint = types.EntryPointAddressV7
	}

	signer := &useroperation.InternalSigner{Account: wallet.Account()}
	builder := &useroperation.Builder{
		Bundler:    newBundlerClient(false),
		Paymaster:  paymasterClient(),
		Eth:        chain,
		EntryPoint: entryPoint,
		Version:    types.EntryPointV7,
		Factory: useroperation.Factory{
			Address:               global.Conf.Chain.DefaultFactoryAddr,
			CreateAccountCallData: createAccountCallData,
		},
		Signer:  signer,
		Account: account,
	}

	return &smartwallet.SmartWallet{
		Builder:  builder,
		Chain:    chain,
		Account:  signer,
		ChainID:  big.NewInt(global.Conf.Chain.ChainID),
		IsZkSync: global.Conf.Chain.IsZkSync,
	}
}

func paymasterClient() *bundlerclient.Client {
	if global.Conf.Bundler.PaymasterURL == "" {
		return nil
	}
	return newBundlerClient(true)
}
