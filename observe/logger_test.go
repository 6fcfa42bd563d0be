package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

// TestLogger_JSONFields verifies message, level and fields are written.
func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "backup listed", Field{Key: "count", Value: 3})

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e["msg"] != "backup listed" {
		t.Errorf("expected msg 'backup listed', got %v", e["msg"])
	}
	if e["level"] != "INFO" {
		t.Errorf("expected level INFO, got %v", e["level"])
	}
	if e["count"] != float64(3) {
		t.Errorf("expected count 3, got %v", e["count"])
	}
}

// TestLogger_LevelFiltering verifies records below the level are dropped.
func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{"debug", []string{"DEBUG", "INFO", "WARN", "ERROR"}},
		{"info", []string{"INFO", "WARN", "ERROR"}},
		{"warn", []string{"WARN", "ERROR"}},
		{"error", []string{"ERROR"}},
		{"bogus", []string{"INFO", "WARN", "ERROR"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(tt.level, &buf)
			ctx := context.Background()

			logger.Debug(ctx, "d")
			logger.Info(ctx, "i")
			logger.Warn(ctx, "w")
			logger.Error(ctx, "e")

			entries := decodeLines(t, &buf)
			if len(entries) != len(tt.want) {
				t.Fatalf("expected %d entries, got %d", len(tt.want), len(entries))
			}
			for i, e := range entries {
				if e["level"] != tt.want[i] {
					t.Errorf("entry %d level = %v, want %v", i, e["level"], tt.want[i])
				}
			}
		})
	}
}

// TestLogger_SecretsRedacted verifies sensitive keys never reach the output.
func TestLogger_SecretsRedacted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf)

	logger.With(Field{Key: "Authorization", Value: "Bearer abc.def.ghi"}).Info(context.Background(), "request",
		Field{Key: "token", Value: "abc.def.ghi"},
		Field{Key: "secret", Value: "hunter2"},
		Field{Key: "subject", Value: "user-17"},
	)

	out := buf.String()
	for _, leaked := range []string{"abc.def.ghi", "hunter2"} {
		if strings.Contains(out, leaked) {
			t.Errorf("log output leaks %q: %s", leaked, out)
		}
	}
	if !strings.Contains(out, "user-17") {
		t.Errorf("non-sensitive field missing: %s", out)
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Errorf("expected [REDACTED] marker: %s", out)
	}
}

// TestLogger_RequestDataStamped verifies request attributes come from the context.
func TestLogger_RequestDataStamped(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	ctx := WithRequestData(context.Background(), &RequestData{
		RequestID: "req-1",
		Method:    "GET",
		Path:      "/backups",
		Route:     "GET /backups",
	})
	SetSubject(ctx, "user-17")

	logger.Info(ctx, "request completed")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	req, ok := entries[0]["req"].(map[string]any)
	if !ok {
		t.Fatalf("expected req group, got %v", entries[0])
	}
	if req["id"] != "req-1" || req["method"] != "GET" || req["path"] != "/backups" || req["route"] != "GET /backups" {
		t.Errorf("unexpected req group: %v", req)
	}
	authGroup, ok := entries[0]["auth"].(map[string]any)
	if !ok || authGroup["subject"] != "user-17" {
		t.Errorf("expected auth.subject user-17, got %v", entries[0]["auth"])
	}
}

// TestLogger_WithAddsFields verifies With fields appear on every record.
func TestLogger_WithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).With(Field{Key: "component", Value: "dashboard"})

	logger.Info(context.Background(), "one")
	logger.Warn(context.Background(), "two")

	for _, e := range decodeLines(t, &buf) {
		if e["component"] != "dashboard" {
			t.Errorf("expected component field, got %v", e)
		}
	}
}

// TestLogger_NilContext verifies a nil context does not panic.
func TestLogger_NilContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)
	//nolint:staticcheck // exercising nil handling
	logger.Info(nil, "no context")
	if !strings.Contains(buf.String(), "no context") {
		t.Errorf("expected record, got %q", buf.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, s := range []string{"debug", "info", "warn", "error"} {
		if got := ParseLogLevel(s).String(); got != s {
			t.Errorf("ParseLogLevel(%q).String() = %q", s, got)
		}
	}
	if ParseLogLevel("loud") != LevelInfo {
		t.Error("unknown level should default to info")
	}
}

func TestNewStdLogger(t *testing.T) {
	var buf bytes.Buffer
	std := NewStdLogger(NewLoggerWithWriter("info", &buf))
	std.Print("http: TLS handshake error")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 || entries[0]["level"] != "ERROR" {
		t.Errorf("unexpected entries: %v", entries)
	}

	// Non-slog loggers are discarded without panicking.
	NewStdLogger(NopLogger()).Print("dropped")
}
