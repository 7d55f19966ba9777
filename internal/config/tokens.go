package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/blackhole-labs/burn-engine/internal/app/domain/burn"
)

// TokenRegistry is the set of tokens the engine accepts burns for.
type TokenRegistry struct {
	Tokens []burn.Token `yaml:"tokens"`
}

// LoadTokens loads the token registry from config/tokens.yaml.
func LoadTokens() (*TokenRegistry, error) {
	return LoadTokensFromPath(filepath.Join("config", "tokens.yaml"))
}

// LoadTokensFromPath loads the token registry from a specific path.
func LoadTokensFromPath(path string) (*TokenRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token registry: %w", err)
	}

	var reg TokenRegistry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse token registry: %w", err)
	}

	seen := make(map[string]bool, len(reg.Tokens))
	for i, tok := range reg.Tokens {
		if tok.Symbol == "" {
			return nil, fmt.Errorf("token %d: symbol is required", i)
		}
		if tok.Address == "" {
			return nil, fmt.Errorf("token %s: address is required", tok.Symbol)
		}
		if seen[tok.Symbol] {
			return nil, fmt.Errorf("token %s: duplicate symbol", tok.Symbol)
		}
		seen[tok.Symbol] = true
	}
	return &reg, nil
}

// LoadTokensOrDefault loads the token registry or returns the built-in set
// when the file is not present.
func LoadTokensOrDefault(path string) *TokenRegistry {
	reg, err := LoadTokensFromPath(path)
	if err != nil {
		return DefaultTokens()
	}
	return reg
}

// DefaultTokens returns the built-in token registry.
func DefaultTokens() *TokenRegistry {
	return &TokenRegistry{
		Tokens: []burn.Token{
			{
				Symbol:   "DEMO",
				Name:     "Demo Token",
				Address:  "0xA0b86a33E6441b8435b662c8C0b0E8E6C5b8B8E8",
				Decimals: 18,
			},
			{
				Symbol:   "USDT",
				Name:     "Tether USD",
				Address:  "0xdAC17F958D2ee523a2206206994597C13D831ec7",
				Decimals: 6,
			},
			{
				Symbol:   "USDC",
				Name:     "USD Coin",
				Address:  "0xA0b86a33E6441b8435b662c8C0b0E8E6C5b8B8E8",
				Decimals: 6,
			},
		},
	}
}
