package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	otpKind  string
	otpID    string
	otpCode  string
	authProv string
)

func init() {
	enrollCmd.Flags().StringVar(&otpKind, "kind", "email", "otp kind: email or phone")
	enrollCmd.Flags().StringVar(&otpID, "id", "", "email address or phone number the otp was sent to")
	enrollCmd.Flags().StringVar(&otpCode, "code", "", "otp code received out of band")
	enrollCmd.Flags().StringVar(&authProv, "auth-provider", "otp", "auth provider name recorded with the account")
	enrollCmd.MarkFlagRequired("id")
	enrollCmd.MarkFlagRequired("code")
	rootCmd.AddCommand(enrollCmd)
}

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Verify an OTP and create a new embedded wallet account",
	Run: func(cmd *cobra.Command, args []string) {
		loadConfig()
		ctx := context.Background()

		auth := newAuthClient()
		verify, err := auth.VerifyOtp(ctx, otpKind, otpID, otpCode)
		check(err)

		wallet := newEmbeddedWallet()
		user, err := wallet.CreateAccount(ctx, verify, authProv)
		check(err)

		fmt.Printf("enrolled: address=%s email=%s phone=%s\n", user.Address, user.Email, user.Phone)
	},
}
