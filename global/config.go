package global

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Conf is the process-wide configuration, loaded once at startup by the
// embedding application (typically from YAML via gopkg.in/yaml.v3) and
// read thereafter by every package in this module.
var Conf Config

// LoadConfig reads and parses a YAML config file into Conf, replacing the
// teacher's go-web3-kit cfg.NewYamlConfig call (see the doc comment on
// Config) with the same gopkg.in/yaml.v3 decoding it presumably wraps.
func LoadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("global: reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &Conf); err != nil {
		return fmt.Errorf("global: parsing config file: %w", err)
	}
	return nil
}

// Config is the root configuration struct. The teacher embeds a
// cfg.YamlConfig type from a private module we do not have source for
// (go-web3-kit); BaseConfig replaces it in the same spirit (a small
// embeddable struct carrying the fields every ambient YAML config needs)
// without inventing that module's surface (see DESIGN.md).
type Config struct {
	BaseConfig `yaml:",inline"`
	AuthServer AuthServerConfig `yaml:"authServer"`
	Bundler    BundlerConfig    `yaml:"bundler"`
	Chain      ChainConfig      `yaml:"chain"`
	Store      StoreConfig      `yaml:"store"`
	Redis      RedisConfig      `yaml:"redis"`
	Queue      QueueConfig      `yaml:"queue"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
}

// BaseConfig carries the fields common to any ambient YAML-loaded service
// config: environment name and log level.
type BaseConfig struct {
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"logLevel"`
}

// AuthServerConfig points at the remote auth service (C2).
type AuthServerConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Timeout int    `yaml:"timeoutSeconds"`
}

// BundlerConfig points at the ERC-4337 bundler RPC endpoint and the
// optional paymaster service (C6).
type BundlerConfig struct {
	BaseURL         string `yaml:"baseUrl"`
	PaymasterURL    string `yaml:"paymasterUrl"`
	Timeout         int    `yaml:"timeoutSeconds"`
	RateLimitPerSec int    `yaml:"rateLimitPerSecond"` // 0 disables client-side rate limiting
}

// ChainConfig carries the chain ID and EntryPoint addresses. Canonical
// defaults live in types.EntryPointAddressV6/V7; this struct exists so a
// deployment can override them (spec §6).
type ChainConfig struct {
	ChainID            int64  `yaml:"chainId"`
	RPCURL             string `yaml:"rpcUrl"`
	EntryPointV6       string `yaml:"entryPointV6"`
	EntryPointV7       string `yaml:"entryPointV7"`
	DefaultFactoryAddr string `yaml:"defaultFactory"`
	IsZkSync           bool   `yaml:"isZkSync"`
}

// StoreConfig configures the Local Store (C3) file backend.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig backs both the receipt queue (asynq) and the optional
// bundler-side rate limiter (redis_rate).
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// QueueConfig tunes the receipt-polling worker pool.
type QueueConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// PrometheusConfig toggles metrics registration.
type PrometheusConfig struct {
	Enabled bool `yaml:"enabled"`
}
