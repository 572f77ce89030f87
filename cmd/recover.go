package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var recoveryCodeOverride string

func init() {
	recoverCmd.Flags().StringVar(&otpKind, "kind", "email", "otp kind: email or phone")
	recoverCmd.Flags().StringVar(&otpID, "id", "", "email address or phone number the otp was sent to")
	recoverCmd.Flags().StringVar(&otpCode, "code", "", "otp code received out of band")
	recoverCmd.Flags().StringVar(&authProv, "auth-provider", "otp", "auth provider name recorded with the account")
	recoverCmd.Flags().StringVar(&recoveryCodeOverride, "recovery-code", "", "recovery code, when the device that originally enrolled is unavailable")
	recoverCmd.MarkFlagRequired("id")
	recoverCmd.MarkFlagRequired("code")
	rootCmd.AddCommand(recoverCmd)
}

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Verify an OTP and reconstruct an existing embedded wallet account",
	Run: func(cmd *cobra.Command, args []string) {
		loadConfig()
		ctx := context.Background()

		auth := newAuthClient()
		verify, err := auth.VerifyOtp(ctx, otpKind, otpID, otpCode)
		check(err)

		wallet := newEmbeddedWallet()
		if recoveryCodeOverride != "" {
			wallet = wallet.WithRecoveryCodeOverride(recoveryCodeOverride)
		}
		user, err := wallet.RecoverAccount(ctx, verify, authProv)
		check(err)

		fmt.Printf("recovered: address=%s email=%s phone=%s\n", user.Address, user.Email, user.Phone)
	},
}
