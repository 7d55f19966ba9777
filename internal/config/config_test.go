package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"LISTEN_ADDR", "LEDGER_RPC_URL", "LEDGER_TIMEOUT", "LEDGER_POLL_INTERVAL",
		"SPENDER_ADDRESS", "TOKENS_PATH", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"SHUTDOWN_TIMEOUT",
	} {
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("listen addr = %s", cfg.ListenAddr)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("poll interval = %s", cfg.PollInterval)
	}
	if cfg.RateLimit != 10 || cfg.RateLimitBurst != 20 {
		t.Fatalf("rate limit = %v burst %d", cfg.RateLimit, cfg.RateLimitBurst)
	}
}

func TestLoadRejectsBadPollInterval(t *testing.T) {
	t.Setenv("LEDGER_POLL_INTERVAL", "0s")
	if _, err := Load(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadTokensFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.yaml")
	data := `tokens:
  - symbol: ABC
    name: Alphabet
    address: "0x1111111111111111111111111111111111111111"
    decimals: 18
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	reg, err := LoadTokensFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(reg.Tokens) != 1 || reg.Tokens[0].Symbol != "ABC" || reg.Tokens[0].Decimals != 18 {
		t.Fatalf("tokens = %+v", reg.Tokens)
	}
}

func TestLoadTokensRejectsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.yaml")
	data := `tokens:
  - symbol: ABC
    address: "0x1111111111111111111111111111111111111111"
  - symbol: ABC
    address: "0x2222222222222222222222222222222222222222"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadTokensFromPath(path); err == nil {
		t.Fatal("expected duplicate symbol error")
	}
}

func TestLoadTokensOrDefaultFallsBack(t *testing.T) {
	reg := LoadTokensOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if len(reg.Tokens) != 3 {
		t.Fatalf("default tokens = %d", len(reg.Tokens))
	}
	if reg.Tokens[0].Symbol != "DEMO" {
		t.Fatalf("first token = %s", reg.Tokens[0].Symbol)
	}
}
