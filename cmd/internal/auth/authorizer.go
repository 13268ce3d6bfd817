package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"tasklist/cmd/identity"
	"tasklist/cmd/security/token"
)

const bearerScheme = "Bearer"

// ParseBearer extracts the token from an Authorization header value of the
// form "Bearer <token>". The scheme match is case-insensitive. Headers that
// are too short, use another scheme, or carry an empty or space-containing
// token are rejected.
func ParseBearer(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) <= len(bearerScheme) {
		return "", false
	}
	if !strings.EqualFold(header[:len(bearerScheme)], bearerScheme) {
		return "", false
	}
	rest := header[len(bearerScheme):]
	if rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	tok := strings.TrimLeft(rest, " \t")
	if tok == "" || strings.ContainsAny(tok, " \t") {
		return "", false
	}
	return tok, true
}

// Authorizer resolves bearer tokens to account ids.
type Authorizer struct {
	store  identity.Store
	hasher token.Hasher
	maxLen int
	log    *slog.Logger
}

// NewAuthorizer builds an Authorizer.
func NewAuthorizer(store identity.Store, hasher token.Hasher, cfg Config, log *slog.Logger) (*Authorizer, error) {
	if store == nil {
		return nil, errors.New("auth: nil identity store")
	}
	if log == nil {
		log = slog.Default()
	}
	maxLen := cfg.MaxPresentedTokenLen
	if maxLen <= 0 {
		maxLen = DefaultConfig().MaxPresentedTokenLen
	}
	return &Authorizer{store: store, hasher: hasher, maxLen: maxLen, log: log}, nil
}

// Authorize maps a raw Authorization header to the account id that owns the token.
func (a *Authorizer) Authorize(ctx context.Context, header string) (int64, error) {
	tok, ok := ParseBearer(header)
	if !ok || len(tok) > a.maxLen {
		return 0, ErrUnauthenticated
	}
	return a.Resolve(ctx, tok)
}

// Resolve maps an already-extracted token to its account id.
func (a *Authorizer) Resolve(ctx context.Context, tok string) (int64, error) {
	if tok == "" || len(tok) > a.maxLen {
		return 0, ErrUnauthenticated
	}

	accountID, err := a.store.LookupToken(ctx, a.hasher.Hash(tok))
	switch {
	case err == nil:
		return accountID, nil
	case identity.IsNotFound(err):
		return 0, ErrUnauthenticated
	default:
		a.log.Error("auth.authorize.lookup.fail", "err", err)
		return 0, ErrInternal
	}
}
