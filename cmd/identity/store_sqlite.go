package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// SQLiteStore implements Store over a database/sql handle opened with modernc.org/sqlite.
// Timestamps are stored as unix milliseconds. The handle is owned by the caller.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore constructs a SQLiteStore over a migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("identity: nil db")
	}
	return &SQLiteStore{db: db}, nil
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

// CreateAccount inserts a new account row.
func (s *SQLiteStore) CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error) {
	const op = "identity.CreateAccount"

	if s == nil || s.db == nil {
		return Account{}, invalid(op, "nil store")
	}
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	in, err := checkCreateAccount(op, in)
	if err != nil {
		return Account{}, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (name, password_hash, profession, created_at) VALUES (?, ?, ?, ?)`,
		in.Name, in.PasswordHash, in.Profession, toMillis(in.Now),
	)
	if err != nil {
		if field, ok := sqliteClassifyUniqueViolation(err); ok {
			return Account{}, ConflictError{Op: op, Field: field}
		}
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Account{}, fmt.Errorf("%s: last insert id: %w", op, err)
	}
	return Account{ID: id, Name: in.Name, Profession: in.Profession, CreatedAt: in.Now}, nil
}

// GetAccountAuthByName loads an account and its password hash by exact name.
func (s *SQLiteStore) GetAccountAuthByName(ctx context.Context, name string) (AccountAuth, error) {
	const op = "identity.GetAccountAuthByName"

	if s == nil || s.db == nil {
		return AccountAuth{}, invalid(op, "nil store")
	}
	if err := ctx.Err(); err != nil {
		return AccountAuth{}, err
	}
	name = NormalizeName(name)
	if name == "" {
		return AccountAuth{}, NotFoundError{Op: op, Resource: "account"}
	}

	var (
		out     AccountAuth
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, profession, created_at, password_hash FROM accounts WHERE name = ?`,
		name,
	).Scan(&out.Account.ID, &out.Account.Name, &out.Account.Profession, &created, &out.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AccountAuth{}, NotFoundError{Op: op, Resource: "account"}
		}
		return AccountAuth{}, fmt.Errorf("%s: %w", op, err)
	}
	out.Account.CreatedAt = fromMillis(created)
	return out, nil
}

// GetAccountByID loads an account by id.
func (s *SQLiteStore) GetAccountByID(ctx context.Context, id int64) (Account, error) {
	const op = "identity.GetAccountByID"

	if s == nil || s.db == nil {
		return Account{}, invalid(op, "nil store")
	}
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	var (
		a       Account
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, profession, created_at FROM accounts WHERE id = ?`, id,
	).Scan(&a.ID, &a.Name, &a.Profession, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, NotFoundError{Op: op, Resource: "account"}
		}
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}
	a.CreatedAt = fromMillis(created)
	return a, nil
}

// UpdatePasswordHash replaces the stored password hash.
func (s *SQLiteStore) UpdatePasswordHash(ctx context.Context, accountID int64, passwordHash string) error {
	const op = "identity.UpdatePasswordHash"

	if s == nil || s.db == nil {
		return invalid(op, "nil store")
	}
	if strings.TrimSpace(passwordHash) == "" {
		return invalid(op, "password hash is required")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ? WHERE id = ?`, passwordHash, accountID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return requireAffected(op, "account", res)
}

// CreateToken stores a token digest for accountID.
func (s *SQLiteStore) CreateToken(ctx context.Context, accountID int64, tokenHash string, now time.Time) error {
	const op = "identity.CreateToken"

	if s == nil || s.db == nil {
		return invalid(op, "nil store")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkTokenHash(op, tokenHash); err != nil {
		return err
	}
	if now.IsZero() {
		now = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO auth_tokens (account_id, token_hash, created_at) VALUES (?, ?, ?)`,
		accountID, tokenHash, toMillis(now),
	)
	if err != nil {
		if field, ok := sqliteClassifyUniqueViolation(err); ok {
			return ConflictError{Op: op, Field: field}
		}
		if sqliteIsForeignKeyViolation(err) {
			return NotFoundError{Op: op, Resource: "account"}
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// LookupToken resolves a token digest to the owning account id.
func (s *SQLiteStore) LookupToken(ctx context.Context, tokenHash string) (int64, error) {
	const op = "identity.LookupToken"

	if s == nil || s.db == nil {
		return 0, invalid(op, "nil store")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := checkTokenHash(op, tokenHash); err != nil {
		return 0, err
	}

	var accountID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT account_id FROM auth_tokens WHERE token_hash = ?`, tokenHash,
	).Scan(&accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, NotFoundError{Op: op, Resource: "token"}
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return accountID, nil
}

// Ping checks the database handle.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return invalid("identity.Ping", "nil store")
	}
	return s.db.PingContext(ctx)
}

func requireAffected(op, resource string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return NotFoundError{Op: op, Resource: resource}
	}
	return nil
}

func sqliteClassifyUniqueViolation(err error) (field string, ok bool) {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return "", false
	}
	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
	default:
		return "", false
	}

	// Message shape: "UNIQUE constraint failed: accounts.name".
	msg := strings.ToLower(sqliteErr.Error())
	switch {
	case strings.Contains(msg, "accounts.name"):
		return FieldName, true
	case strings.Contains(msg, "auth_tokens.token_hash"):
		return FieldToken, true
	default:
		return "unique", true
	}
}

func sqliteIsForeignKeyViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY
}
