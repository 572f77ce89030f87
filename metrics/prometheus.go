// Package metrics exposes prometheus counters and histograms around
// UserOperation submission and smart wallet deployment, in the style of
// the mail server's own request/response instrumentation.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	isMetricsInitVar uint32 = 0

	// UserOpsSentTotal counts SendTransaction attempts, by EntryPoint
	// version and outcome.
	UserOpsSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_user_ops_sent_total",
		Help: "The total number of UserOperations submitted to the bundler",
	}, []string{"version", "outcome"})

	// BundlerErrorsTotal counts JSON-RPC errors returned by the bundler or
	// paymaster endpoints, by RPC method.
	BundlerErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_bundler_errors_total",
		Help: "The total number of bundler/paymaster RPC errors",
	}, []string{"method"})

	// DeploymentEventsTotal counts deploy-on-first-use outcomes.
	DeploymentEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_deployment_events_total",
		Help: "The total number of smart account deployment attempts",
	}, []string{"outcome"})

	// UserOpSubmitLatency measures the time from SendTransaction's first
	// call to the bundler's sendUserOperation response.
	UserOpSubmitLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wallet_user_op_submit_latency_milliseconds",
		Help:    "Latency of submitting a UserOperation to the bundler",
		Buckets: prometheus.LinearBuckets(50, 100, 10),
	})

	// UserOpMinedLatency measures the time from submission to the receipt
	// poll observing the UserOperation mined.
	UserOpMinedLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wallet_user_op_mined_latency_milliseconds",
		Help:    "Latency from UserOperation submission to mined receipt",
		Buckets: prometheus.LinearBuckets(500, 1000, 10),
	})

	// EnrollmentsTotal counts CreateAccount outcomes.
	EnrollmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_enrollments_total",
		Help: "The total number of embedded wallet enrollment attempts",
	}, []string{"outcome"})

	// RecoveriesTotal counts RecoverAccount outcomes.
	RecoveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_recoveries_total",
		Help: "The total number of embedded wallet recovery attempts",
	}, []string{"outcome"})
)

func setIsMetricsInit() {
	atomic.StoreUint32(&isMetricsInitVar, 1)
}

func isMetricsInit() bool {
	return atomic.LoadUint32(&isMetricsInitVar) == 1
}

// InitMetrics registers every collector exactly once; safe to call from
// multiple entry points (CLI, library embedders).
func InitMetrics() {
	if isMetricsInit() {
		return
	}
	setIsMetricsInit()

	prometheus.MustRegister(UserOpsSentTotal)
	prometheus.MustRegister(BundlerErrorsTotal)
	prometheus.MustRegister(DeploymentEventsTotal)
	prometheus.MustRegister(UserOpSubmitLatency)
	prometheus.MustRegister(UserOpMinedLatency)
	prometheus.MustRegister(EnrollmentsTotal)
	prometheus.MustRegister(RecoveriesTotal)
}
