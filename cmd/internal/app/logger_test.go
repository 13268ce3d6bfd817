package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "unknown", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}

	for _, tc := range cases {
		got := parseLogLevel(tc.in)
		if got != tc.want {
			t.Fatalf("parseLogLevel(%q)=%v want=%v", tc.in, got, tc.want)
		}
	}
}

func TestNewHandler_Formats(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	slog.New(newHandler(&buf, "info", "json")).Info("server.start", "addr", "127.0.0.1:0")
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("json format: %v (%s)", err, buf.String())
	}
	if rec["msg"] != "server.start" {
		t.Fatalf("msg=%v", rec["msg"])
	}

	buf.Reset()
	slog.New(newHandler(&buf, "info", "text")).Info("server.start")
	if !strings.Contains(buf.String(), "msg=server.start") {
		t.Fatalf("text format: %q", buf.String())
	}

	buf.Reset()
	slog.New(newHandler(&buf, "error", "pretty")).Warn("dropped")
	if buf.Len() != 0 {
		t.Fatalf("pretty handler ignored level: %q", buf.String())
	}
}
