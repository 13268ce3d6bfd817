package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tasklist/cmd/identity"
	"tasklist/cmd/security/token"
)

// Issuer mints bearer tokens and records their digests.
type Issuer struct {
	store  identity.Store
	hasher token.Hasher
	cfg    Config
	log    *slog.Logger
	now    func() time.Time

	generate func(n int) (string, error)
}

// NewIssuer builds an Issuer. cfg is validated.
func NewIssuer(store identity.Store, hasher token.Hasher, cfg Config, log *slog.Logger) (*Issuer, error) {
	if store == nil {
		return nil, errors.New("auth: nil identity store")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Issuer{
		store:    store,
		hasher:   hasher,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		generate: token.Generate,
	}, nil
}

// Issue returns a fresh token bound to accountID. A digest collision triggers a
// new draw; after cfg.IssueMaxAttempts collisions the call fails with ErrInternal.
func (i *Issuer) Issue(ctx context.Context, accountID int64) (string, error) {
	for attempt := 1; attempt <= i.cfg.IssueMaxAttempts; attempt++ {
		tok, err := i.generate(i.cfg.TokenLength)
		if err != nil {
			i.log.Error("auth.token.generate.fail", "err", err)
			return "", ErrInternal
		}

		err = i.store.CreateToken(ctx, accountID, i.hasher.Hash(tok), i.now())
		switch {
		case err == nil:
			return tok, nil
		case identity.IsConflictOn(err, identity.FieldToken):
			i.log.Warn("auth.token.collision", "attempt", attempt)
			continue
		default:
			i.log.Error("auth.token.store.fail", "err", err, "account_id", accountID)
			return "", ErrInternal
		}
	}

	i.log.Error("auth.token.exhausted", "attempts", i.cfg.IssueMaxAttempts)
	return "", ErrInternal
}
