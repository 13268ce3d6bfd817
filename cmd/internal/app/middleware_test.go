package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRequestLogMeta(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status     int
		wantLevel  slog.Level
		wantResult string
		wantClass  string
	}{
		{status: 200, wantLevel: slog.LevelInfo, wantResult: "success", wantClass: "2xx"},
		{status: 302, wantLevel: slog.LevelInfo, wantResult: "redirect", wantClass: "3xx"},
		{status: 404, wantLevel: slog.LevelWarn, wantResult: "client_error", wantClass: "4xx"},
		{status: 503, wantLevel: slog.LevelError, wantResult: "server_error", wantClass: "5xx"},
	}

	for _, tc := range cases {
		level, result := requestLogMeta(tc.status)
		if level != tc.wantLevel || result != tc.wantResult {
			t.Fatalf("status=%d level=%v result=%q; want level=%v result=%q", tc.status, level, result, tc.wantLevel, tc.wantResult)
		}
		if got := statusClass(tc.status); got != tc.wantClass {
			t.Fatalf("statusClass(%d)=%q want=%q", tc.status, got, tc.wantClass)
		}
	}
}

func TestWithSecurityHeaders(t *testing.T) {
	h := WithSecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("missing nosniff: %q", got)
	}
	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("missing frame options: %q", got)
	}
	if got := rr.Header().Get("Referrer-Policy"); got != "no-referrer" {
		t.Fatalf("missing referrer policy: %q", got)
	}
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = requestIDFrom(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, err := ulid.ParseStrict(seen); err != nil {
		t.Fatalf("generated id %q is not a ULID: %v", seen, err)
	}
	if got := rr.Header().Get(requestIDHeader); got != seen {
		t.Fatalf("header id %q != context id %q", got, seen)
	}

	incoming := ulid.Make().String()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, incoming)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != incoming {
		t.Fatalf("incoming id not kept: got %q want %q", seen, incoming)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "<script>")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "<script>" {
		t.Fatalf("malformed incoming id must be replaced")
	}
}

func TestWithRequestLogging_LevelAndMetrics(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	m := newMetrics()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /todo/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	h := WithRequestLogging(mux, log, m)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/todo/7", nil))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if line["level"] != "WARN" {
		t.Fatalf("level=%v want WARN", line["level"])
	}
	if line["route"] != "GET /todo/{id}" {
		t.Fatalf("route=%v want pattern", line["route"])
	}
	if line["status_class"] != "4xx" {
		t.Fatalf("status_class=%v", line["status_class"])
	}

	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "GET /todo/{id}", "404")); got != 1 {
		t.Fatalf("requests counter=%v want 1", got)
	}
}

func TestWithRecovery(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := WithRecovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), log)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d want 500", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"server_error"`) {
		t.Fatalf("body=%q", rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "boom") {
		t.Fatalf("panic value leaked to client: %q", rr.Body.String())
	}
}

func TestMetrics_AuthEvent(t *testing.T) {
	t.Parallel()

	m := newMetrics()
	m.AuthEvent("login_failed")
	m.AuthEvent("login_failed")

	if got := testutil.ToFloat64(m.authEvents.WithLabelValues("login_failed")); got != 2 {
		t.Fatalf("auth events=%v want 2", got)
	}

	var nilMetrics *metrics
	nilMetrics.AuthEvent("ignored")
}
