package api

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config controls request decoding and client address resolution.
type Config struct {
	// MaxBodyBytes caps every JSON request body.
	MaxBodyBytes int64 `env:"TASKLIST_API_MAX_BODY_BYTES" envDefault:"1048576"`

	// TrustProxy makes audit logs use X-Forwarded-For / X-Real-IP.
	TrustProxy bool `env:"TASKLIST_API_TRUST_PROXY" envDefault:"false"`
}

// DefaultConfig mirrors the envDefault tags.
func DefaultConfig() Config {
	return Config{MaxBodyBytes: 1 << 20}
}

// LoadConfigFromEnv parses Config from the environment.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("api config: %w", err)
	}
	if cfg.MaxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("api config: TASKLIST_API_MAX_BODY_BYTES must be > 0")
	}
	return cfg, nil
}
