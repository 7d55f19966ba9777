package config

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config holds the runtime settings for the burn engine, decoded from the
// environment.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR,default=:8080"`

	// LedgerRPCURL is the JSON-RPC endpoint of the ledger gateway.
	LedgerRPCURL  string        `env:"LEDGER_RPC_URL,default=http://localhost:8545"`
	LedgerTimeout time.Duration `env:"LEDGER_TIMEOUT,default=30s"`
	PollInterval  time.Duration `env:"LEDGER_POLL_INTERVAL,default=2s"`

	// SpenderAddress is the contract address approvals are granted to before
	// a burn transfer is submitted.
	SpenderAddress string `env:"SPENDER_ADDRESS,default=0x000000000000000000000000000000000000dEaD"`

	// TokensPath points at the YAML token registry. When the file is missing
	// the built-in registry is used.
	TokensPath string `env:"TOKENS_PATH,default=config/tokens.yaml"`

	// RateLimit is the sustained request rate allowed per client address.
	RateLimit      float64 `env:"RATE_LIMIT_RPS,default=10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST,default=20"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Load decodes the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.LedgerRPCURL == "" {
		return fmt.Errorf("LEDGER_RPC_URL is required")
	}
	if c.SpenderAddress == "" {
		return fmt.Errorf("SPENDER_ADDRESS is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("LEDGER_POLL_INTERVAL must be positive")
	}
	if c.RateLimit <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit settings must be positive")
	}
	return nil
}
