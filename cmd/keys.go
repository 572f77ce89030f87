package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ewsdk/wallet-core/crypto"
)

var outputFile string

func init() {
	keysCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default is stdout)")
	rootCmd.AddCommand(keysCmd)
}

// keysCmd generates a standalone secp256k1 account, useful as a personal
// (non-smart-account) signer for local testing against a bundler/paymaster
// without going through enrollment.
var keysCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a secp256k1 account",
	Long:  "Generate a standalone secp256k1 account (address + private key) for use as a personal signer in local testing",
	Run: func(cmd *cobra.Command, args []string) {
		account, err := crypto.GeneratePrivateKeyAccount()
		check(err)

		keysJSON := map[string]interface{}{
			"type":       "walletctl_personal_account_secp256k1",
			"address":    account.Address(),
			"privateKey": "0x" + hex.EncodeToString(account.Key[:]),
			"created":    time.Now().UnixMilli(),
		}
		fileBytes, err := json.MarshalIndent(keysJSON, "", "  ")
		check(err)

		if outputFile != "" {
			if _, err := os.Stat(outputFile); !errors.Is(err, os.ErrNotExist) {
				fmt.Printf("File already exists: %s\n", outputFile)
				os.Exit(1)
			}
			check(os.WriteFile(outputFile, fileBytes, 0600))
			fmt.Printf("Output file: %s\n", outputFile)
		} else {
			fmt.Printf("\n%s\n", string(fileBytes))
		}
	},
}
