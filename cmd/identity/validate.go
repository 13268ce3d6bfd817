package identity

import (
	"strings"
	"time"
)

const (
	maxNameLen       = 256
	maxProfessionLen = 256
	tokenHashLen     = 64
)

func checkCreateAccount(op string, in CreateAccountInput) (CreateAccountInput, error) {
	in.Name = NormalizeName(in.Name)
	in.Profession = strings.TrimSpace(in.Profession)

	switch {
	case in.Name == "":
		return in, invalid(op, "name is required")
	case len(in.Name) > maxNameLen:
		return in, invalid(op, "name too long")
	case len(in.Profession) > maxProfessionLen:
		return in, invalid(op, "profession too long")
	case strings.TrimSpace(in.PasswordHash) == "":
		return in, invalid(op, "password hash is required")
	}

	if in.Now.IsZero() {
		in.Now = time.Now()
	}
	in.Now = in.Now.UTC().Truncate(time.Millisecond)
	return in, nil
}

func checkTokenHash(op, h string) error {
	if len(h) != tokenHashLen {
		return invalid(op, "malformed token hash")
	}
	return nil
}
