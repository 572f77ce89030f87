package main

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	sessionSigner      string
	sessionTargets     string
	sessionLimitWei    string
	sessionDurationSec int64
)

func init() {
	addSignedInFlags(createSessionKeyCmd)
	createSessionKeyCmd.Flags().StringVar(&sessionSigner, "signer", "", "address to grant a session key to")
	createSessionKeyCmd.Flags().StringVar(&sessionTargets, "targets", "", "comma-separated contract addresses the session key may call")
	createSessionKeyCmd.Flags().StringVar(&sessionLimitWei, "limit-wei", "0", "native token spend limit per call, in wei")
	createSessionKeyCmd.Flags().Int64Var(&sessionDurationSec, "duration-seconds", 3600, "how long the session key remains valid")
	createSessionKeyCmd.MarkFlagRequired("signer")
	rootCmd.AddCommand(createSessionKeyCmd)

	addSignedInFlags(listSignersCmd)
	rootCmd.AddCommand(listSignersCmd)
}

var createSessionKeyCmd = &cobra.Command{
	Use:   "create-session-key",
	Short: "Grant a time-boxed, spend-limited session key on the smart account",
	Run: func(cmd *cobra.Command, args []string) {
		loadConfig()
		ctx := context.Background()

		wallet, _ := signIn(ctx)
		sw := newSmartWallet(wallet)

		limit, ok := new(big.Int).SetString(sessionLimitWei, 10)
		if !ok {
			check(fmt.Errorf("invalid --limit-wei value %q", sessionLimitWei))
		}

		var targets []string
		if sessionTargets != "" {
			targets = strings.Split(sessionTargets, ",")
		}

		now := time.Now().Unix()
		check(sw.CreateSessionKey(ctx, sessionSigner, targets, limit, now, now+sessionDurationSec))

		fmt.Printf("session key granted: signer=%s targets=%v expires=%d\n", sessionSigner, targets, now+sessionDurationSec)
	},
}

var listSignersCmd = &cobra.Command{
	Use:   "list-signers",
	Short: "List every signer with standing permissions on the smart account",
	Run: func(cmd *cobra.Command, args []string) {
		loadConfig()
		ctx := context.Background()

		wallet, _ := signIn(ctx)
		sw := newSmartWallet(wallet)

		signers, err := sw.GetAllActiveSigners(ctx)
		check(err)
		for _, s := range signers {
			fmt.Printf("signer=%s targets=%v limitWei=%s start=%d end=%d\n",
				s.Signer, s.ApprovedTargets, s.NativeTokenLimitPerTx.String(), s.PermissionStart, s.PermissionEnd)
		}
	},
}
