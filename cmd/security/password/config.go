package password

import (
	"fmt"
	"runtime"

	"github.com/caarlos0/env/v11"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy bounds acceptable passwords. MaxLength also caps hashing work per request.
type Policy struct {
	MinLength      int
	MaxLength      int
	RejectVeryWeak bool
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Argon2idParams
	Policy Policy
}

// DefaultConfig returns interactive-login Argon2id costs and a permissive policy:
// any non-empty password up to 256 characters is accepted.
func DefaultConfig() Config {
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above.
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength: 1,
			MaxLength: 256,
		},
	}
}

type envOverrides struct {
	MinLength      *int    `env:"TASKLIST_PASSWORD_MIN_LEN"`
	MaxLength      *int    `env:"TASKLIST_PASSWORD_MAX_LEN"`
	RejectVeryWeak *bool   `env:"TASKLIST_PASSWORD_REJECT_VERY_WEAK"`
	MemoryKiB      *uint32 `env:"TASKLIST_ARGON2_MEMORY_KIB"`
	Iterations     *uint32 `env:"TASKLIST_ARGON2_ITERATIONS"`
	Parallelism    *uint32 `env:"TASKLIST_ARGON2_PARALLELISM"`
	SaltLength     *uint32 `env:"TASKLIST_ARGON2_SALT_LEN"`
	KeyLength      *uint32 `env:"TASKLIST_ARGON2_KEY_LEN"`
}

// FromEnv starts from DefaultConfig and applies TASKLIST_PASSWORD_* and
// TASKLIST_ARGON2_* overrides. Out-of-range values are rejected, not clamped.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return Config{}, fmt.Errorf("password config: %w", err)
	}

	if o.MinLength != nil {
		if err := inRange("TASKLIST_PASSWORD_MIN_LEN", *o.MinLength, 1, 1024); err != nil {
			return Config{}, err
		}
		cfg.Policy.MinLength = *o.MinLength
	}
	if o.MaxLength != nil {
		if err := inRange("TASKLIST_PASSWORD_MAX_LEN", *o.MaxLength, 1, 4096); err != nil {
			return Config{}, err
		}
		cfg.Policy.MaxLength = *o.MaxLength
	}
	if o.RejectVeryWeak != nil {
		cfg.Policy.RejectVeryWeak = *o.RejectVeryWeak
	}
	if o.MemoryKiB != nil {
		if err := inRange("TASKLIST_ARGON2_MEMORY_KIB", *o.MemoryKiB, 8*1024, 1024*1024); err != nil {
			return Config{}, err
		}
		cfg.Params.MemoryKiB = *o.MemoryKiB
	}
	if o.Iterations != nil {
		if err := inRange("TASKLIST_ARGON2_ITERATIONS", *o.Iterations, 1, 20); err != nil {
			return Config{}, err
		}
		cfg.Params.Iterations = *o.Iterations
	}
	if o.Parallelism != nil {
		if err := inRange("TASKLIST_ARGON2_PARALLELISM", *o.Parallelism, 1, 64); err != nil {
			return Config{}, err
		}
		cfg.Params.Parallelism = uint8(*o.Parallelism) // #nosec G115 -- bounded to [1..64] above.
	}
	if o.SaltLength != nil {
		if err := inRange("TASKLIST_ARGON2_SALT_LEN", *o.SaltLength, 8, 64); err != nil {
			return Config{}, err
		}
		cfg.Params.SaltLength = *o.SaltLength
	}
	if o.KeyLength != nil {
		if err := inRange("TASKLIST_ARGON2_KEY_LEN", *o.KeyLength, 16, 64); err != nil {
			return Config{}, err
		}
		cfg.Params.KeyLength = *o.KeyLength
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}

	return cfg, nil
}

func inRange[T int | uint32](key string, v, lo, hi T) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s: out of range [%d..%d]", key, lo, hi)
	}
	return nil
}
