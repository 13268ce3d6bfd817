package identity

import (
	"context"
	"time"
)

// Account is a registered principal. The password hash lives only in AccountAuth.
type Account struct {
	ID         int64
	Name       string
	Profession string
	CreatedAt  time.Time
}

// AccountAuth pairs an account with its stored password hash for verification.
type AccountAuth struct {
	Account      Account
	PasswordHash string
}

// CreateAccountInput describes a new account. PasswordHash is already encoded.
type CreateAccountInput struct {
	Name         string
	PasswordHash string
	Profession   string
	Now          time.Time
}

// Store is the credential persistence boundary.
type Store interface {
	// CreateAccount fails with ConflictError{Field: FieldName} when the name is taken.
	CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error)
	GetAccountAuthByName(ctx context.Context, name string) (AccountAuth, error)
	GetAccountByID(ctx context.Context, id int64) (Account, error)
	// UpdatePasswordHash replaces the stored hash, e.g. after a legacy-format rehash.
	UpdatePasswordHash(ctx context.Context, accountID int64, passwordHash string) error

	// CreateToken stores a token digest. A digest collision fails with
	// ConflictError{Field: FieldToken}; an unknown account with NotFoundError.
	CreateToken(ctx context.Context, accountID int64, tokenHash string, now time.Time) error
	// LookupToken resolves a token digest to its account id.
	LookupToken(ctx context.Context, tokenHash string) (int64, error)

	Ping(ctx context.Context) error
}
