package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL.
//
// The pgx pool is owned by the caller; this store never closes it.
// Schema and table identifiers are quoted with pgx.Identifier.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

var _ Store = (*PostgresStore)(nil)

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the schema holding the accounts and auth_tokens tables (default "public").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: "public"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

// CreateAccount inserts a new account row.
func (s *PostgresStore) CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error) {
	const op = "identity.CreateAccount"

	if s == nil || s.pool == nil {
		return Account{}, invalid(op, "nil store")
	}
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	in, err := checkCreateAccount(op, in)
	if err != nil {
		return Account{}, err
	}

	out := Account{Name: in.Name, Profession: in.Profession, CreatedAt: in.Now}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO `+s.ident("accounts")+` (name, password_hash, profession, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		in.Name, in.PasswordHash, in.Profession, in.Now,
	).Scan(&out.ID)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return Account{}, ConflictError{Op: op, Field: field}
		}
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// GetAccountAuthByName loads an account and its password hash by exact name.
func (s *PostgresStore) GetAccountAuthByName(ctx context.Context, name string) (AccountAuth, error) {
	const op = "identity.GetAccountAuthByName"

	if s == nil || s.pool == nil {
		return AccountAuth{}, invalid(op, "nil store")
	}
	if err := ctx.Err(); err != nil {
		return AccountAuth{}, err
	}
	name = NormalizeName(name)
	if name == "" {
		return AccountAuth{}, NotFoundError{Op: op, Resource: "account"}
	}

	var out AccountAuth
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, profession, created_at, password_hash
		   FROM `+s.ident("accounts")+`
		  WHERE name = $1`,
		name,
	).Scan(&out.Account.ID, &out.Account.Name, &out.Account.Profession, &out.Account.CreatedAt, &out.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountAuth{}, NotFoundError{Op: op, Resource: "account"}
		}
		return AccountAuth{}, fmt.Errorf("%s: %w", op, err)
	}
	out.Account.CreatedAt = out.Account.CreatedAt.UTC()
	return out, nil
}

// GetAccountByID loads an account by id.
func (s *PostgresStore) GetAccountByID(ctx context.Context, id int64) (Account, error) {
	const op = "identity.GetAccountByID"

	if s == nil || s.pool == nil {
		return Account{}, invalid(op, "nil store")
	}
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	var a Account
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, profession, created_at FROM `+s.ident("accounts")+` WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.Name, &a.Profession, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, NotFoundError{Op: op, Resource: "account"}
		}
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

// UpdatePasswordHash replaces the stored password hash.
func (s *PostgresStore) UpdatePasswordHash(ctx context.Context, accountID int64, passwordHash string) error {
	const op = "identity.UpdatePasswordHash"

	if s == nil || s.pool == nil {
		return invalid(op, "nil store")
	}
	if strings.TrimSpace(passwordHash) == "" {
		return invalid(op, "password hash is required")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE `+s.ident("accounts")+` SET password_hash = $2 WHERE id = $1`,
		accountID, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "account"}
	}
	return nil
}

// CreateToken stores a token digest for accountID.
func (s *PostgresStore) CreateToken(ctx context.Context, accountID int64, tokenHash string, now time.Time) error {
	const op = "identity.CreateToken"

	if s == nil || s.pool == nil {
		return invalid(op, "nil store")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkTokenHash(op, tokenHash); err != nil {
		return err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+s.ident("auth_tokens")+` (account_id, token_hash, created_at)
		 VALUES ($1, $2, $3)`,
		accountID, tokenHash, now,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return ConflictError{Op: op, Field: field}
		}
		if pgIsForeignKeyViolation(err) {
			return NotFoundError{Op: op, Resource: "account"}
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// LookupToken resolves a token digest to the owning account id.
func (s *PostgresStore) LookupToken(ctx context.Context, tokenHash string) (int64, error) {
	const op = "identity.LookupToken"

	if s == nil || s.pool == nil {
		return 0, invalid(op, "nil store")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := checkTokenHash(op, tokenHash); err != nil {
		return 0, err
	}

	var accountID int64
	err := s.pool.QueryRow(ctx,
		`SELECT account_id FROM `+s.ident("auth_tokens")+` WHERE token_hash = $1`,
		tokenHash,
	).Scan(&accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, NotFoundError{Op: op, Resource: "token"}
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return accountID, nil
}

// Ping checks that a pooled connection can be acquired.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return invalid("identity.Ping", "nil store")
	}
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) ident(table string) string {
	return pgx.Identifier{s.schema, table}.Sanitize()
}

func pgIsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23503" // foreign_key_violation
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch {
	case c == "uq_accounts_name", strings.Contains(c, "name"):
		return FieldName, true
	case c == "uq_auth_tokens_token_hash", strings.Contains(c, "token"):
		return FieldToken, true
	default:
		return "unique", true
	}
}
