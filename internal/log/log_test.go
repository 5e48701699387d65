package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return New(Config{Level: slog.LevelDebug, Format: "json", Component: ComponentApp, Output: buf})
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid json log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogger_ComponentField(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	logger.WithComponent(ComponentWorker).InfoContext(context.Background(), "hello", FieldBatchID, "b1")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("lines = %d", len(lines))
	}
	if lines[0][FieldComponent] != ComponentWorker || lines[0][FieldBatchID] != "b1" {
		t.Errorf("line = %v", lines[0])
	}
}

func TestLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "text", Component: ComponentApp, Output: &buf})
	logger.DebugContext(context.Background(), "hidden")
	logger.InfoContext(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "msg=shown") {
		t.Errorf("output = %q", out)
	}
}

func TestFromContext_Default(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Errorf("FromContext() = %+v", l)
	}
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	var seen *Logger
	handler := middleware.RequestID(Middleware(logger, func(*http.Request) string { return "10.0.0.1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = FromContext(r.Context())
			w.WriteHeader(http.StatusBadGateway)
		})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/get-saldo?name=Max", nil))

	if seen == nil || seen.Component() != ComponentHTTP {
		t.Fatalf("request logger = %+v", seen)
	}
	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(lines))
	}
	line := lines[0]
	if line["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR for 502", line["level"])
	}
	if line[FieldStatusCode] != float64(http.StatusBadGateway) || line[FieldPath] != "/get-saldo" {
		t.Errorf("line = %v", line)
	}
	if line[FieldClientIP] != "10.0.0.1" || line[FieldRequestID] == nil {
		t.Errorf("line = %v", line)
	}
}

func TestStructuredLogger_LogEntryRecorded(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf))

	sl.LogEntryRecorded(context.Background(), "Max", "Zu spät", "normal", 1, "5,00 €")
	sl.LogError(context.Background(), "Failed", errors.New("boom"), ComponentSheets, OpRecord, nil)

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("lines = %d", len(lines))
	}
	if lines[0][FieldMember] != "Max" || lines[0][FieldComponent] != ComponentLedger || lines[0][FieldRows] != float64(1) {
		t.Errorf("entry line = %v", lines[0])
	}
	if lines[1][FieldError] != "boom" || lines[1][FieldComponent] != ComponentSheets {
		t.Errorf("error line = %v", lines[1])
	}
}
