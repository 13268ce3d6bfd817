package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	argon2Prefix  = "$argon2id$"
	argon2Version = argon2.Version
)

var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// ErrInvalidHash reports a stored hash that is neither Argon2id nor bcrypt.
var ErrInvalidHash = errors.New("password: unrecognized hash format")

// Hash validates password against the policy and returns a fresh Argon2id
// encoding. Two calls with the same input never return the same string.
func (c Config) Hash(password string) (string, error) {
	if err := c.Validate(password); err != nil {
		return "", err
	}

	salt := make([]byte, c.Params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt,
		c.Params.Iterations, c.Params.MemoryKiB, c.Params.Parallelism, c.Params.KeyLength)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Prefix,
		argon2Version,
		c.Params.MemoryKiB,
		c.Params.Iterations,
		c.Params.Parallelism,
		b64.EncodeToString(salt),
		b64.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encodedHash.
// A mismatch is (false, nil); a malformed or unsupported hash is (false, ErrInvalidHash).
func (c Config) Verify(encodedHash, password string) (bool, error) {
	switch {
	case strings.HasPrefix(encodedHash, argon2Prefix):
		return c.verifyArgon2id(encodedHash, password)
	case isBcrypt(encodedHash):
		return verifyBcrypt(encodedHash, password)
	default:
		return false, ErrInvalidHash
	}
}

// NeedsRehash reports whether encodedHash should be replaced by a fresh Hash
// on the next successful login.
func (c Config) NeedsRehash(encodedHash string) bool {
	if !strings.HasPrefix(encodedHash, argon2Prefix) {
		return true
	}
	p, _, _, err := decodeArgon2id(encodedHash)
	if err != nil {
		return true
	}
	return p.MemoryKiB < c.Params.MemoryKiB || p.Iterations < c.Params.Iterations
}

func (c Config) verifyArgon2id(encodedHash, password string) (bool, error) {
	params, salt, expected, err := decodeArgon2id(encodedHash)
	if err != nil {
		return false, err
	}
	// Stored parameters are attacker-influenced; refuse anything far above our own cost.
	if !withinReasonableBounds(params, c.Params) {
		return false, ErrInvalidHash
	}

	key := argon2.IDKey([]byte(password), salt,
		params.Iterations, params.MemoryKiB, params.Parallelism,
		uint32(len(expected)), // #nosec G115 -- bounded by withinReasonableBounds.
	)
	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}

func verifyBcrypt(encodedHash, password string) (bool, error) {
	// bcrypt only looks at the first 72 bytes; longer inputs are rejected by the library.
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, ErrInvalidHash
	}
}

func isBcrypt(s string) bool {
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func withinReasonableBounds(got, limits Argon2idParams) bool {
	return got.MemoryKiB <= limits.MemoryKiB*2 &&
		got.Iterations <= limits.Iterations*2 &&
		uint32(got.Parallelism) <= uint32(limits.Parallelism)*2 &&
		got.SaltLength >= 8 && got.SaltLength <= 64 &&
		got.KeyLength >= 16 && got.KeyLength <= 128
}

// decodeArgon2id parses $argon2id$v=19$m=..,t=..,p=..$salt$key.
func decodeArgon2id(encoded string) (Argon2idParams, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2Version) {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	var mem, iter, par uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iter, &par); err != nil {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}
	if mem == 0 || iter == 0 || par == 0 || par > 255 {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	return Argon2idParams{
		MemoryKiB:   mem,
		Iterations:  iter,
		Parallelism: uint8(par),        // #nosec G115 -- checked <= 255 above.
		SaltLength:  uint32(len(salt)), // #nosec G115 -- base64 payload of a stored hash.
		KeyLength:   uint32(len(key)),  // #nosec G115 -- base64 payload of a stored hash.
	}, salt, key, nil
}
