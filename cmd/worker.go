package main

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/ewsdk/wallet-core/global"
	"github.com/ewsdk/wallet-core/receiptqueue"
)

func init() {
	rootCmd.AddCommand(workerCmd)
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the durable UserOperation receipt-poll worker against Redis",
	Long:  "worker starts an asynq server that picks up receipt-poll tasks enqueued via receiptqueue.Enqueuer, polling eth_getUserOperationReceipt on the submitter's behalf so a CLI invocation does not need to stay alive until the transaction mines.",
	Run: func(cmd *cobra.Command, args []string) {
		loadConfig()

		redisOpt := asynq.RedisClientOpt{
			Addr:     global.Conf.Redis.Addr,
			Password: global.Conf.Redis.Password,
			DB:       global.Conf.Redis.DB,
		}
		concurrency := global.Conf.Queue.Concurrency
		if concurrency <= 0 {
			concurrency = 10
		}

		srv := asynq.NewServer(redisOpt, asynq.Config{
			Concurrency:    concurrency,
			RetryDelayFunc: receiptqueue.RetryDelayFunc,
		})

		worker := &receiptqueue.Worker{
			Bundler: newBundlerClient(false),
			OnMined: func(ctx context.Context, userOpHash, transactionHash string) {
				fmt.Printf("userOpHash=%s transactionHash=%s mined\n", userOpHash, transactionHash)
			},
		}

		mux := asynq.NewServeMux()
		mux.Handle(receiptqueue.TypeUserOpReceipt, worker)
		check(srv.Run(mux))
	},
}
