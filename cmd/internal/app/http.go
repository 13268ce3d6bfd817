package app

import (
	"net/http"
	"time"

	"tasklist/cmd/internal/api"
	"tasklist/cmd/internal/storage"
)

func registerHTTP(mux *http.ServeMux, log Logger, cfg Config, db *storage.DB, m *metrics, h *api.Handler) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context(), 2*time.Second); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			log.Info("readyz.db.not_ready", "err", err)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	if cfg.MetricsEnabled && m != nil {
		mux.Handle("GET /metrics", m.handler())
	}

	h.Register(mux)
}

// buildHandler wraps mux with the middleware chain, outermost first:
// security headers, request id, logging/metrics, panic recovery.
func buildHandler(mux http.Handler, log Logger, m *metrics) http.Handler {
	var h http.Handler = mux
	h = WithRecovery(h, log)
	h = WithRequestLogging(h, log, m)
	h = WithRequestID(h)
	h = WithSecurityHeaders(h)
	return h
}
