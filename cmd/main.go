package main

import (
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/ewsdk/wallet-core/authclient"
	"github.com/ewsdk/wallet-core/bundlerclient"
	"github.com/ewsdk/wallet-core/embeddedwallet"
	"github.com/ewsdk/wallet-core/global"
	"github.com/ewsdk/wallet-core/store"
)

func check(e error) {
	if e != nil {
		fmt.Printf("%v\n", e.Error())
		os.Exit(1)
	}
}

var configFile string
var storePath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "walletctl.yaml", "configuration file path")
	rootCmd.PersistentFlags().StringVarP(&storePath, "store", "s", "walletctl-session.json", "local session envelope path")
}

var rootCmd = &cobra.Command{
	Use:     "walletctl",
	Short:   "walletctl drives a self-custodial smart account end to end",
	Long:    "walletctl is a demonstration CLI for the embedded wallet core and smart wallet facade: enroll, recover, deploy, send a transaction, and manage session keys against a running auth server and ERC-4337 bundler.",
	Version: "0.1.0",
}

func main() {
	Execute()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}

// loadConfig loads global.Conf from configFile. Every subcommand but
// keygen needs a running auth server / bundler to talk to.
func loadConfig() {
	check(global.LoadConfig(configFile))
}

// newAuthClient builds the auth-server client from the loaded config.
func newAuthClient() *authclient.Client {
	timeout := time.Duration(global.Conf.AuthServer.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return authclient.New(global.Conf.AuthServer.BaseURL, timeout)
}

// newBundlerClient builds the bundler client from the loaded config. When
// bundler.rateLimitPerSecond is set, outgoing calls are throttled client-side
// against Redis ahead of whatever limit the bundler enforces on its own API
// key (spec §11 supplement).
func newBundlerClient(paymaster bool) *bundlerclient.Client {
	timeout := time.Duration(global.Conf.Bundler.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := global.Conf.Bundler.BaseURL
	if paymaster && global.Conf.Bundler.PaymasterURL != "" {
		baseURL = global.Conf.Bundler.PaymasterURL
	}

	if global.Conf.Bundler.RateLimitPerSec <= 0 {
		return bundlerclient.New(baseURL, timeout)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     global.Conf.Redis.Addr,
		Password: global.Conf.Redis.Password,
		DB:       global.Conf.Redis.DB,
	})
	limiter := bundlerclient.NewRedisRateLimiter(redisClient, "bundler:"+baseURL, global.Conf.Bundler.RateLimitPerSec)
	return bundlerclient.NewWithRateLimiter(baseURL, timeout, limiter)
}

// newLocalStore opens the on-disk session envelope used across invocations
// of this CLI (each subcommand is a fresh process).
func newLocalStore() store.LocalStore {
	fs, err := store.NewFileStore(storePath)
	check(err)
	return fs
}

// newEmbeddedWallet wires C2+C3 into a ready-to-use embeddedwallet.Wallet.
func newEmbeddedWallet() *embeddedwallet.Wallet {
	return embeddedwallet.New(newAuthClient(), newLocalStore())
}
