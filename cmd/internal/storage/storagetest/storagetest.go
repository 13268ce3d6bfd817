// Package storagetest opens migrated throwaway databases for tests.
//
// SQLite databases live in t.TempDir and always work. Postgres tests are
// opt-in via TASKLIST_TEST_DATABASE_URL; each call gets its own schema, which
// is dropped on cleanup. Outside CI an unreachable server skips the test.
package storagetest

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tasklist/cmd/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// PostgresURLEnv names the env var enabling Postgres integration tests.
const PostgresURLEnv = "TASKLIST_TEST_DATABASE_URL"

// OpenSQLite returns a migrated SQLite database in a temp directory.
func OpenSQLite(t testing.TB) *storage.DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db, err := storage.Open(ctx, storage.Options{
		URL: "sqlite:" + filepath.Join(t.TempDir(), "tasklist.db"),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := storage.Migrate(ctx, db, quietLogger()); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

// OpenPostgres returns a migrated Postgres database scoped to a fresh schema,
// along with the schema name for stores that qualify table names.
func OpenPostgres(t testing.TB) (*storage.DB, string) {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv(PostgresURLEnv))
	if raw == "" {
		t.Skipf("integration test skipped: %s is not set", PostgresURLEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	admin, err := pgxpool.New(ctx, raw)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(admin.Close)

	if err := admin.Ping(ctx); err != nil {
		if shouldSkipIntegration(err) {
			t.Skipf("integration test skipped: Postgres unreachable (%s set): %v", PostgresURLEnv, err)
		}
		t.Fatalf("ping postgres: %v", err)
	}

	schema := "tasklist_it_" + strings.ToLower(ulid.MustNew(ulid.Now(), rand.Reader).String())
	if _, err := admin.Exec(ctx, `CREATE SCHEMA `+pgx.Identifier{schema}.Sanitize()); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		dropCtx, dropCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer dropCancel()
		_, _ = admin.Exec(dropCtx, `DROP SCHEMA IF EXISTS `+pgx.Identifier{schema}.Sanitize()+` CASCADE`)
	})

	db, err := storage.Open(ctx, storage.Options{URL: raw, MaxConns: 4, SearchPath: schema})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := storage.Migrate(ctx, db, quietLogger()); err != nil {
		t.Fatalf("migrate postgres: %v", err)
	}
	return db, schema
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func shouldSkipIntegration(err error) bool {
	if err == nil {
		return false
	}
	if os.Getenv("CI") != "" {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "no such host")
}
