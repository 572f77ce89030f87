package main

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/ewsdk/wallet-core/global"
	"github.com/ewsdk/wallet-core/receiptqueue"
	"github.com/ewsdk/wallet-core/useroperation"
)

var (
	callData    string
	sendTo      string
	sendZkNonce uint64
	sendAsync   bool
)

func init() {
	addSignedInFlags(sendTxCmd)
	sendTxCmd.Flags().StringVar(&callData, "calldata", "0x", "pre-encoded call data to submit")
	sendTxCmd.Flags().StringVar(&sendTo, "to", "", "call target, used only on the ZK-Sync native path")
	sendTxCmd.Flags().Uint64Var(&sendZkNonce, "zk-nonce", 0, "account's next native transaction nonce, ZK-Sync path only")
	sendTxCmd.Flags().BoolVar(&sendAsync, "async", false, "enqueue the receipt poll on the durable worker queue and return immediately, instead of blocking in-process (ERC-4337 path only)")
	rootCmd.AddCommand(sendTxCmd)
}

var sendTxCmd = &cobra.Command{
	Use:   "send-tx",
	Short: "Submit a transaction and wait for its receipt (or enqueue the wait with --async)",
	Run: func(cmd *cobra.Command, args []string) {
		loadConfig()
		ctx := context.Background()

		wallet, user := signIn(ctx)
		sw := newSmartWallet(wallet)

		if sw.IsZkSync {
			result, err := sw.SendTransaction(ctx, sendTo, big.NewInt(0), hexMustDecode(strings.TrimPrefix(callData, "0x")), sendZkNonce)
			check(err)
			fmt.Printf("signer=%s account=%s transactionHash=%s\n", user.Address, account, result.TransactionHash)
			return
		}

		if sendAsync {
			result, err := sw.Builder.SendTransaction(ctx, useroperation.Call{CallData: callData})
			check(err)

			asynqClient := asynq.NewClient(asynq.RedisClientOpt{
				Addr:     global.Conf.Redis.Addr,
				Password: global.Conf.Redis.Password,
				DB:       global.Conf.Redis.DB,
			})
			defer asynqClient.Close()

			info, err := receiptqueue.NewEnqueuer(asynqClient).Enqueue(ctx, result.UserOpHash)
			check(err)
			fmt.Printf("signer=%s account=%s userOpHash=%s taskID=%s (receipt poll enqueued, run `walletctl worker` to process it)\n", user.Address, account, result.UserOpHash, info.ID)
			return
		}

		result, err := sw.Builder.SendAndWait(ctx, useroperation.Call{CallData: callData})
		check(err)
		fmt.Printf("signer=%s account=%s userOpHash=%s transactionHash=%s\n", user.Address, account, result.UserOpHash, result.TransactionHash)
	},
}
