// Package receiptqueue is a durable, process-restart-surviving alternative
// to UserOperation Builder's in-process WaitMined: an asynq task that polls
// eth_getUserOperationReceipt on the caller's behalf (spec §4.6 step 7),
// so a submitting process can enqueue the wait and exit while a pool of
// workers elsewhere picks the polling back up.
package receiptqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ewsdk/wallet-core/bundlerclient"
	"github.com/ewsdk/wallet-core/global"
	"github.com/go-kit/log/level"
)

// TypeUserOpReceipt identifies the receipt-poll task in the asynq mux.
const TypeUserOpReceipt = "useroperation:receipt"

// pollInterval is how often a not-yet-mined receipt task is retried. asynq
// has no native fixed-interval retry, so RetryDelayFunc pins this task type
// to a constant delay instead of the default exponential backoff.
const pollInterval = 1 * time.Second

// maxPolls bounds how long a single submission is chased before the task
// is abandoned with DeadlineExceeded-equivalent failure.
const maxPolls = 600 // 10 minutes at 1 Hz

type payload struct {
	UserOpHash string `json:"userOpHash"`
}

// Enqueuer submits receipt-poll tasks to asynq.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer wraps an asynq client for receipt-poll task submission.
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// Enqueue schedules a receipt poll for userOpHash and returns its task info
// (inspect by ID later, or receive it out of band via a Worker callback).
func (e *Enqueuer) Enqueue(ctx context.Context, userOpHash string) (*asynq.TaskInfo, error) {
	body, err := json.Marshal(payload{UserOpHash: userOpHash})
	if err != nil {
		return nil, fmt.Errorf("receiptqueue: marshaling payload: %w", err)
	}
	task := asynq.NewTask(TypeUserOpReceipt, body, asynq.MaxRetry(maxPolls), asynq.Retention(24*time.Hour))
	info, err := e.client.EnqueueContext(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("receiptqueue: enqueueing task: %w", err)
	}
	return info, nil
}

// ReceiptHandler is invoked once a UserOperation's transaction is observed
// mined.
type ReceiptHandler func(ctx context.Context, userOpHash, transactionHash string)

// Worker processes receipt-poll tasks against a bundler client.
type Worker struct {
	Bundler *bundlerclient.Client
	OnMined ReceiptHandler
}

// errNotYetMined signals asynq to retry the task at RetryDelayFunc's pace;
// it is never returned to a caller outside this package.
type errNotYetMined struct{ userOpHash string }

func (e errNotYetMined) Error() string {
	return fmt.Sprintf("receiptqueue: %s not yet mined", e.userOpHash)
}

// ProcessTask implements asynq.Handler. A nil receipt (not yet mined)
// returns errNotYetMined so the task is retried at pollInterval; any other
// bundler error propagates and is retried at the same pollInterval, since
// RetryDelayFunc pins every receipt task to it whatever the error.
func (w *Worker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var p payload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("receiptqueue: unmarshaling payload: %v: %w", err, asynq.SkipRetry)
	}

	receipt, err := w.Bundler.GetUserOperationReceipt(ctx, p.UserOpHash)
	if err != nil {
		level.Error(global.Logger).Log("msg", "polling user operation receipt", "userOpHash", p.UserOpHash, "err", err)
		return err
	}
	if receipt == nil {
		return errNotYetMined{userOpHash: p.UserOpHash}
	}

	if w.OnMined != nil {
		w.OnMined(ctx, p.UserOpHash, receipt.TransactionHash)
	}
	return nil
}

// RetryDelayFunc pins TypeUserOpReceipt retries to a fixed 1 Hz cadence and
// falls back to an exponential backoff for every other task type sharing
// the same asynq server.
func RetryDelayFunc(n int, err error, task *asynq.Task) time.Duration {
	if task.Type() == TypeUserOpReceipt {
		return pollInterval
	}

	baseDelay := 1 * time.Minute
	maxDelay := 60 * time.Minute
	delay := baseDelay * time.Duration(1<<n)
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}
