package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	addSignedInFlags(deployCmd)
	rootCmd.AddCommand(deployCmd)
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Force-deploy the smart account if it is not already on-chain",
	Run: func(cmd *cobra.Command, args []string) {
		loadConfig()
		ctx := context.Background()

		wallet, user := signIn(ctx)
		sw := newSmartWallet(wallet)

		deployed, err := sw.IsDeployed(ctx)
		check(err)
		if deployed {
			fmt.Printf("already deployed: account=%s signer=%s\n", account, user.Address)
			return
		}

		check(sw.ForceDeploy(ctx))
		fmt.Printf("deployed: account=%s signer=%s\n", account, user.Address)
	},
}
