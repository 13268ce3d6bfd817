// Package storage opens the relational store behind the service and applies
// schema migrations. A single connection URL selects the backend:
// postgres:// and postgresql:// use pgx, sqlite: and file: use the pure-Go SQLite driver.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"
)

// Backend names a supported database engine.
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
)

// ErrNoDatabaseURL is returned when no connection URL is configured.
var ErrNoDatabaseURL = errors.New("storage: database url is required")

// Target is a parsed connection URL.
type Target struct {
	Backend Backend
	DSN     string
}

// ParseURL maps a connection URL onto a backend and driver DSN.
func ParseURL(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, ErrNoDatabaseURL
	}

	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return Target{Backend: BackendPostgres, DSN: raw}, nil
	case strings.HasPrefix(lower, "sqlite://"):
		return sqliteTarget(raw[len("sqlite://"):])
	case strings.HasPrefix(lower, "sqlite:"):
		return sqliteTarget(raw[len("sqlite:"):])
	case strings.HasPrefix(lower, "file:"):
		return sqliteTarget(raw)
	default:
		return Target{}, fmt.Errorf("storage: unsupported database url scheme")
	}
}

func sqliteTarget(path string) (Target, error) {
	if strings.TrimSpace(path) == "" {
		return Target{}, fmt.Errorf("storage: sqlite path is required")
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	return Target{Backend: BackendSQLite, DSN: dsn}, nil
}

// Options controls how Open connects.
type Options struct {
	URL      string
	MaxConns int32
	MinConns int32

	// SearchPath sets the Postgres search_path for every pooled connection.
	SearchPath string
}

// DB is an open store handle. Exactly one of Pool and SQL is set, per Backend.
type DB struct {
	Backend Backend
	Pool    *pgxpool.Pool
	SQL     *sql.DB
}

// Open connects to the configured backend and verifies connectivity.
// It does not run migrations; see Migrate.
func Open(ctx context.Context, opts Options) (*DB, error) {
	target, err := ParseURL(opts.URL)
	if err != nil {
		return nil, err
	}

	switch target.Backend {
	case BackendPostgres:
		pool, err := openPostgres(ctx, target.DSN, opts)
		if err != nil {
			return nil, err
		}
		return &DB{Backend: BackendPostgres, Pool: pool}, nil
	default:
		db, err := openSQLite(ctx, target.DSN)
		if err != nil {
			return nil, err
		}
		return &DB{Backend: BackendSQLite, SQL: db}, nil
	}
}

func openPostgres(ctx context.Context, dsn string, opts Options) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: parse postgres url: %w", err)
	}
	if opts.MaxConns > 0 {
		pcfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns >= 0 && opts.MinConns <= pcfg.MaxConns {
		pcfg.MinConns = opts.MinConns
	}
	if sp := strings.TrimSpace(opts.SearchPath); sp != "" {
		pcfg.ConnConfig.RuntimeParams["search_path"] = sp
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("storage: connect postgres: %w", err)
	}
	if err := pingPool(ctx, pool, 3*time.Second); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping postgres: %w", err)
	}
	return pool, nil
}

func openSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	// One writer connection; SQLite serializes writes anyway and this keeps
	// in-memory databases and BEGIN IMMEDIATE semantics predictable.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: ping sqlite: %w", err)
	}
	return db, nil
}

// Ping checks connectivity within timeout.
func (db *DB) Ping(parent context.Context, timeout time.Duration) error {
	if db == nil {
		return errors.New("storage: nil db")
	}
	switch db.Backend {
	case BackendPostgres:
		return pingPool(parent, db.Pool, timeout)
	default:
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		return db.SQL.PingContext(ctx)
	}
}

// Close releases the underlying pool or handle.
func (db *DB) Close() error {
	if db == nil {
		return nil
	}
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.SQL != nil {
		return db.SQL.Close()
	}
	return nil
}

// pingPool checks that a connection can be acquired within timeout.
func pingPool(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn.Release()
	return nil
}
