package auth

import (
	"fmt"

	"tasklist/cmd/security/token"

	"github.com/caarlos0/env/v11"
)

// Config controls token issuance and header parsing.
type Config struct {
	// TokenLength is the number of alphanumeric characters per issued token.
	TokenLength int `env:"TASKLIST_TOKEN_LENGTH" envDefault:"32"`

	// IssueMaxAttempts bounds the retry loop on token digest collisions.
	IssueMaxAttempts int `env:"TASKLIST_TOKEN_ISSUE_MAX_ATTEMPTS" envDefault:"5"`

	// MaxPresentedTokenLen rejects oversized bearer values before hashing.
	MaxPresentedTokenLen int `env:"TASKLIST_TOKEN_MAX_PRESENTED_LEN" envDefault:"512"`

	// RequireTokenHMAC fails startup unless TASKLIST_TOKEN_HMAC_KEY holds >= 32 bytes.
	RequireTokenHMAC bool `env:"TASKLIST_REQUIRE_TOKEN_HMAC" envDefault:"false"`
}

// DefaultConfig mirrors the envDefault tags.
func DefaultConfig() Config {
	return Config{
		TokenLength:          token.DefaultLength,
		IssueMaxAttempts:     5,
		MaxPresentedTokenLen: 512,
	}
}

// LoadConfigFromEnv parses Config from the environment and validates it.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("auth config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the invariants issuance depends on.
func (c Config) Validate() error {
	switch {
	case c.TokenLength < token.MinLength:
		return fmt.Errorf("auth config: TASKLIST_TOKEN_LENGTH must be >= %d", token.MinLength)
	case c.IssueMaxAttempts < 1:
		return fmt.Errorf("auth config: TASKLIST_TOKEN_ISSUE_MAX_ATTEMPTS must be >= 1")
	case c.MaxPresentedTokenLen < c.TokenLength:
		return fmt.Errorf("auth config: TASKLIST_TOKEN_MAX_PRESENTED_LEN must be >= token length")
	}
	return nil
}

// TokenHasher builds the token digest function for this config.
func (c Config) TokenHasher() (token.Hasher, error) {
	h, err := token.HasherFromEnv(c.RequireTokenHMAC, 32)
	if err != nil {
		return token.Hasher{}, fmt.Errorf("auth config: %s: %w", token.HMACEnvKey, err)
	}
	return h, nil
}
