package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string `env:"TASKLIST_HTTP_ADDR" envDefault:"127.0.0.1:8080"`

	LogLevel  string `env:"TASKLIST_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"TASKLIST_LOG_FORMAT" envDefault:"json"`

	ReadHeaderTimeout time.Duration `env:"TASKLIST_HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"TASKLIST_HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"TASKLIST_HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `env:"TASKLIST_HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout   time.Duration `env:"TASKLIST_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxHeaderBytes    int           `env:"TASKLIST_HTTP_MAX_HEADER_BYTES" envDefault:"1048576"`

	// DatabaseURL selects the backend by scheme. DATABASE_URL is accepted as a fallback.
	DatabaseURL string `env:"TASKLIST_DATABASE_URL"`
	DBSchema    string `env:"TASKLIST_DB_SCHEMA" envDefault:"public"`
	DBMaxConns  int32  `env:"TASKLIST_DB_MAX_CONNS" envDefault:"5"`
	DBMinConns  int32  `env:"TASKLIST_DB_MIN_CONNS" envDefault:"0"`

	// Migrate applies embedded migrations at startup.
	Migrate bool `env:"TASKLIST_MIGRATE" envDefault:"true"`

	// MetricsEnabled exposes /metrics.
	MetricsEnabled bool `env:"TASKLIST_METRICS_ENABLED" envDefault:"true"`
}

// LoadConfig reads an optional .env file, then parses Config from the
// environment. Variables already set in the process win over .env.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: .env: %w", err)
	}
	return parseConfig()
}

func parseConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail later and less clearly.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.HTTPAddr) == "":
		return errors.New("config: TASKLIST_HTTP_ADDR is required")
	case strings.TrimSpace(c.DatabaseURL) == "":
		return errors.New("config: TASKLIST_DATABASE_URL (or DATABASE_URL) is required")
	case c.DBMaxConns < 0 || c.DBMinConns < 0:
		return errors.New("config: db connection limits must be >= 0")
	case c.DBMaxConns > 0 && c.DBMinConns > c.DBMaxConns:
		return errors.New("config: TASKLIST_DB_MIN_CONNS exceeds TASKLIST_DB_MAX_CONNS")
	}
	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "json", "text", "pretty":
	default:
		return fmt.Errorf("config: unknown TASKLIST_LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}
