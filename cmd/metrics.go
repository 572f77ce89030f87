package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ewsdk/wallet-core/global"
	"github.com/ewsdk/wallet-core/metrics"
)

var metricsAddr string

func init() {
	metricsServerCmd.Flags().StringVar(&metricsAddr, "addr", ":9090", "address to serve /metrics on")
	rootCmd.AddCommand(metricsServerCmd)
}

var metricsServerCmd = &cobra.Command{
	Use:   "metrics-server",
	Short: "Serve the Prometheus /metrics endpoint for the wallet core's counters and histograms",
	Run: func(cmd *cobra.Command, args []string) {
		loadConfig()
		if !global.Conf.Prometheus.Enabled {
			check(fmt.Errorf("metrics-server: prometheus.enabled is false in config"))
		}
		metrics.InitMetrics()

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		check(http.ListenAndServe(metricsAddr, mux))
	},
}
