package embeddedwallet

import (
	"context"

	"github.com/go-kit/log/level"
	"github.com/robfig/cron/v3"

	"github.com/ewsdk/wallet-core/authclient"
	"github.com/ewsdk/wallet-core/global"
)

// Scheduler runs periodic housekeeping against a Wallet's session store,
// the way the teacher's main.go wires robfig/cron for its own background
// jobs. The only job today is a proactive expiry check: catching a
// near-expired auth token between requests is cheaper than discovering it
// mid-UserOperation.
type Scheduler struct {
	cron   *cron.Cron
	wallet *Wallet
}

// NewScheduler builds a Scheduler bound to wallet. Call Start to begin
// running jobs; Stop to drain them on shutdown.
func NewScheduler(wallet *Wallet) *Scheduler {
	return &Scheduler{cron: cron.New(), wallet: wallet}
}

// Start registers the token-expiry check on the given cron spec (e.g.
// "@every 1m") and starts the scheduler's own goroutine.
func (s *Scheduler) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, s.checkTokenExpiry)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for any running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// checkTokenExpiry loads the envelope and, if its auth token looks
// expired, drops the memoized user so the next GetUser call re-fetches
// rather than failing deep inside an in-flight operation.
func (s *Scheduler) checkTokenExpiry() {
	envelope, err := s.wallet.store.Load(context.Background())
	if err != nil {
		return
	}
	if envelope.AuthToken == "" || !authclient.IsTokenLikelyExpired(envelope.AuthToken, 0) {
		return
	}
	level.Info(global.Logger).Log("msg", "auth token near expiry, clearing memoized session", "walletUserId", envelope.WalletUserID)
	s.wallet.user = nil
	s.wallet.account = nil
}
