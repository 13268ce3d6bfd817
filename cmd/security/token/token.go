package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	ErrHMACKeyMissing  = errors.New("token: " + HMACEnvKey + " is not set")
	ErrHMACKeyTooShort = errors.New("token: " + HMACEnvKey + " is too short")
	ErrLengthTooShort  = errors.New("token: requested length is below MinLength")
)

const (
	// HMACEnvKey names the env var holding the token HMAC secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	HMACEnvKey = "TASKLIST_TOKEN_HMAC_KEY"

	// MinLength is the shortest token Generate will produce.
	MinLength = 16
	// DefaultLength gives ~190 bits of entropy.
	DefaultLength = 32

	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// maxUnbiased is the largest multiple of len(alphabet) that fits in a byte.
	maxUnbiased = 256 - 256%len(alphabet)
)

// Generate returns n characters drawn uniformly from [A-Za-z0-9] using crypto/rand.
func Generate(n int) (string, error) {
	if n < MinLength {
		return "", ErrLengthTooShort
	}

	out := make([]byte, 0, n)
	buf := make([]byte, n+n/4)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("token: read random: %w", err)
		}
		for _, b := range buf {
			if int(b) >= maxUnbiased {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

// IsWellFormed reports whether s only uses the token alphabet and is within bounds.
func IsWellFormed(s string, maxLen int) bool {
	if len(s) < MinLength || (maxLen > 0 && len(s) > maxLen) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(alphabet, s[i]) < 0 {
			return false
		}
	}
	return true
}

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// HMACKeyFromEnv returns the configured HMAC key, enforcing a minimum byte length.
func HMACKeyFromEnv(minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(HMACEnvKey))
	if raw == "" {
		return nil, ErrHMACKeyMissing
	}
	if minBytes > 0 && len(raw) < minBytes {
		return nil, ErrHMACKeyTooShort
	}
	return []byte(raw), nil
}

// Hasher derives the server-side digest of a bearer token.
// The zero value hashes with plain SHA-256.
type Hasher struct {
	key []byte
}

// NewHasher returns an HMAC-SHA256 hasher when key is non-empty.
func NewHasher(key []byte) Hasher {
	if len(key) == 0 {
		return Hasher{}
	}
	return Hasher{key: append([]byte(nil), key...)}
}

// HasherFromEnv builds a Hasher from TASKLIST_TOKEN_HMAC_KEY.
// With require set, a missing or short key is an error instead of a SHA-256 fallback.
func HasherFromEnv(require bool, minBytes int) (Hasher, error) {
	key, err := HMACKeyFromEnv(minBytes)
	switch {
	case err == nil:
		return NewHasher(key), nil
	case err == ErrHMACKeyMissing && !require:
		return Hasher{}, nil
	default:
		return Hasher{}, err
	}
}

// Keyed reports whether the hasher uses HMAC.
func (h Hasher) Keyed() bool { return len(h.key) > 0 }

// Hash returns the 64-char hex digest stored for tok.
func (h Hasher) Hash(tok string) string {
	if len(h.key) == 0 {
		return HashSHA256Hex(tok)
	}
	return HashHMACSHA256Hex(tok, h.key)
}
