package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"

	"tasklist/cmd/internal/storage/migrations"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrate applies pending embedded migrations and returns the versions applied.
func Migrate(ctx context.Context, db *DB, log *slog.Logger) ([]int64, error) {
	if db == nil {
		return nil, fmt.Errorf("storage: nil db")
	}
	if log == nil {
		log = slog.Default()
	}

	var (
		sqlDB   *sql.DB
		dialect goose.Dialect
		dir     string
	)
	switch db.Backend {
	case BackendPostgres:
		// Closing this handle does not close the pool.
		sqlDB = stdlib.OpenDBFromPool(db.Pool)
		defer func() { _ = sqlDB.Close() }()
		dialect, dir = goose.DialectPostgres, "postgres"
	default:
		sqlDB = db.SQL
		dialect, dir = goose.DialectSQLite3, "sqlite"
	}

	fsys, err := fs.Sub(migrations.FS, dir)
	if err != nil {
		return nil, fmt.Errorf("storage: migrations fs: %w", err)
	}

	// The provider is not closed: Close would close sqlDB, which the caller may still own.
	provider, err := goose.NewProvider(dialect, sqlDB, fsys)
	if err != nil {
		return nil, fmt.Errorf("storage: goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: migrate up: %w", err)
	}

	applied := make([]int64, 0, len(results))
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		applied = append(applied, r.Source.Version)
		log.Info("db.migrate.applied",
			"backend", string(db.Backend),
			"version", r.Source.Version,
			"duration_ms", r.Duration.Milliseconds(),
		)
	}
	return applied, nil
}
