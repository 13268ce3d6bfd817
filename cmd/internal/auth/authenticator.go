package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tasklist/cmd/identity"
	"tasklist/cmd/security/password"
)

const maxNameLen = 256

// Authenticator registers accounts and checks name/password pairs.
type Authenticator struct {
	store identity.Store
	pw    password.Config
	log   *slog.Logger
	now   func() time.Time

	// dummyHash is verified when a name is unknown so both failure paths cost the same.
	dummyHash string
}

// NewAuthenticator builds an Authenticator. It hashes a throwaway password up
// front, which costs one Argon2id run at startup.
func NewAuthenticator(store identity.Store, pw password.Config, log *slog.Logger) (*Authenticator, error) {
	if store == nil {
		return nil, errors.New("auth: nil identity store")
	}
	if log == nil {
		log = slog.Default()
	}

	dummy, err := pw.Hash("dummy-password-for-timing-only")
	if err != nil {
		return nil, fmt.Errorf("auth: dummy hash: %w", err)
	}

	return &Authenticator{
		store:     store,
		pw:        pw,
		log:       log,
		now:       time.Now,
		dummyHash: dummy,
	}, nil
}

// Register creates an account. The password is hashed before it reaches the store.
func (a *Authenticator) Register(ctx context.Context, name, plaintext, profession string) (identity.Account, error) {
	name = identity.NormalizeName(name)
	profession = strings.TrimSpace(profession)

	switch {
	case name == "":
		return identity.Account{}, RequestError{Reason: "name is required"}
	case len(name) > maxNameLen:
		return identity.Account{}, RequestError{Reason: "name is too long"}
	case len(profession) > maxNameLen:
		return identity.Account{}, RequestError{Reason: "profession is too long"}
	}

	hash, err := a.pw.Hash(plaintext)
	if err != nil {
		switch {
		case errors.Is(err, password.ErrPasswordTooShort):
			return identity.Account{}, RequestError{Reason: "password is required"}
		case errors.Is(err, password.ErrPasswordTooLong):
			return identity.Account{}, RequestError{Reason: "password is too long"}
		case errors.Is(err, password.ErrWeakPassword):
			return identity.Account{}, RequestError{Reason: "password is too weak"}
		default:
			a.log.Error("auth.register.hash.fail", "err", err)
			return identity.Account{}, ErrInternal
		}
	}

	acct, err := a.store.CreateAccount(ctx, identity.CreateAccountInput{
		Name:         name,
		PasswordHash: hash,
		Profession:   profession,
		Now:          a.now(),
	})
	if err != nil {
		switch {
		case identity.IsConflictOn(err, identity.FieldName):
			return identity.Account{}, ErrDuplicateName
		case identity.IsInvalidInput(err):
			return identity.Account{}, RequestError{Reason: "invalid account fields"}
		default:
			a.log.Error("auth.register.store.fail", "err", err)
			return identity.Account{}, ErrInternal
		}
	}
	return acct, nil
}

// Authenticate returns the account whose name and password match.
// Unknown names and wrong passwords both yield ErrInvalidCredentials.
func (a *Authenticator) Authenticate(ctx context.Context, name, plaintext string) (identity.Account, error) {
	name = identity.NormalizeName(name)

	rec, err := a.store.GetAccountAuthByName(ctx, name)
	if err != nil {
		if !identity.IsNotFound(err) {
			a.log.Error("auth.login.lookup.fail", "err", err)
			return identity.Account{}, ErrInternal
		}
		_, _ = a.pw.Verify(a.dummyHash, plaintext)
		return identity.Account{}, ErrInvalidCredentials
	}

	ok, err := a.pw.Verify(rec.PasswordHash, plaintext)
	if err != nil {
		// A stored hash we cannot parse is a data problem, not a client one.
		a.log.Error("auth.login.verify.fail", "err", err, "account_id", rec.Account.ID)
		return identity.Account{}, ErrInternal
	}
	if !ok {
		return identity.Account{}, ErrInvalidCredentials
	}

	if a.pw.NeedsRehash(rec.PasswordHash) {
		a.upgradeHash(ctx, rec.Account.ID, plaintext)
	}
	return rec.Account, nil
}

// upgradeHash rewrites a legacy or under-cost hash. Failure keeps the old hash.
func (a *Authenticator) upgradeHash(ctx context.Context, accountID int64, plaintext string) {
	fresh, err := a.pw.Hash(plaintext)
	if err != nil {
		a.log.Warn("auth.login.rehash.skip", "err", err, "account_id", accountID)
		return
	}
	if err := a.store.UpdatePasswordHash(ctx, accountID, fresh); err != nil {
		a.log.Warn("auth.login.rehash.fail", "err", err, "account_id", accountID)
		return
	}
	a.log.Info("auth.login.rehash.ok", "account_id", accountID)
}
