// Package app wires the tasklist server runtime: config, logging, storage,
// HTTP routes and metrics.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tasklist/cmd/identity"
	"tasklist/cmd/internal/api"
	"tasklist/cmd/internal/auth"
	"tasklist/cmd/internal/storage"
	"tasklist/cmd/internal/todo"
	"tasklist/cmd/security/password"
)

// App is the tasklist server runtime. It owns the database handle.
type App struct {
	cfg Config
	log Logger

	db      *storage.DB
	handler http.Handler
}

// New opens the store, applies migrations when enabled and wires every route.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	opts := storage.Options{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	}
	if cfg.DBSchema != "" && cfg.DBSchema != "public" {
		opts.SearchPath = cfg.DBSchema
	}

	db, err := storage.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	log.Info("db.open", "backend", string(db.Backend))

	a, err := wire(ctx, cfg, log, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

func wire(ctx context.Context, cfg Config, log Logger, db *storage.DB) (*App, error) {
	if cfg.Migrate {
		if _, err := storage.Migrate(ctx, db, log); err != nil {
			return nil, err
		}
	}

	ids, tasks, err := newStores(cfg, db)
	if err != nil {
		return nil, err
	}

	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}
	authCfg, err := auth.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	hasher, err := authCfg.TokenHasher()
	if err != nil {
		return nil, err
	}
	if !hasher.Keyed() {
		log.Warn("auth.token_hash.unkeyed", "hint", "set TASKLIST_TOKEN_HMAC_KEY to key token digests")
	}

	authSvc, err := auth.NewService(ids, pwCfg, hasher, authCfg, log)
	if err != nil {
		return nil, err
	}
	todoSvc, err := todo.NewService(tasks, log)
	if err != nil {
		return nil, err
	}

	apiCfg, err := api.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	m := newMetrics()
	h, err := api.NewHandler(log, apiCfg, authSvc, todoSvc, api.WithRecorder(m))
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	registerHTTP(mux, log, cfg, db, m, h)

	return &App{
		cfg:     cfg,
		log:     log,
		db:      db,
		handler: buildHandler(mux, log, m),
	}, nil
}

func newStores(cfg Config, db *storage.DB) (identity.Store, todo.Store, error) {
	switch db.Backend {
	case storage.BackendPostgres:
		schema := cfg.DBSchema
		if schema == "" {
			schema = "public"
		}
		ids, err := identity.NewPostgresStore(db.Pool, identity.WithSchema(schema))
		if err != nil {
			return nil, nil, err
		}
		tasks, err := todo.NewPostgresStore(db.Pool, todo.WithSchema(schema))
		if err != nil {
			return nil, nil, err
		}
		return ids, tasks, nil
	case storage.BackendSQLite:
		ids, err := identity.NewSQLiteStore(db.SQL)
		if err != nil {
			return nil, nil, err
		}
		tasks, err := todo.NewSQLiteStore(db.SQL)
		if err != nil {
			return nil, nil, err
		}
		return ids, tasks, nil
	default:
		return nil, nil, fmt.Errorf("app: unsupported backend %q", db.Backend)
	}
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
// The database handle is closed before Run returns.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "backend", string(a.db.Backend))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.log.Info("server.stopped")
	return nil
}

// Close releases the database handle. Later calls are no-ops.
func (a *App) Close() {
	if a == nil || a.db == nil {
		return
	}
	db := a.db
	a.db = nil
	if err := db.Close(); err != nil {
		a.log.Error("db.close.fail", "err", err)
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
