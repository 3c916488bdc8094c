package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"omnishelf-dashboard/internal/config"
)

func TestStartSpan_UsesRequestIDAsTrace(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")

	ctx, parent := StartSpan(ctx, "GET /api/inventory")
	if parent.TraceID != "req-123" {
		t.Errorf("expected trace id req-123, got %q", parent.TraceID)
	}

	_, child := StartSpan(ctx, "backend.StockSummary")
	if child.ParentID != parent.SpanID {
		t.Errorf("expected parent id %q, got %q", parent.SpanID, child.ParentID)
	}
	if child.TraceID != parent.TraceID {
		t.Errorf("child should inherit trace id")
	}
}

func TestStartSpan_NewTrace(t *testing.T) {
	_, span := StartSpan(context.Background(), "op")
	if len(span.TraceID) != 16 || len(span.SpanID) != 16 {
		t.Errorf("expected 16-char ids, got trace=%q span=%q", span.TraceID, span.SpanID)
	}
}

func TestSpan_EndLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, config.LoggerConfig{Level: "debug", Format: "json"})

	_, span := StartSpan(context.Background(), "backend.Alerts")
	span.SetTag("http.status_code", "500")
	span.SetError(errors.New("boom"))
	span.End(logger)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("invalid log line: %v", err)
	}
	if line["level"] != "WARN" {
		t.Errorf("expected WARN, got %v", line["level"])
	}
	if line["error"] != "boom" {
		t.Errorf("expected error=boom, got %v", line["error"])
	}
	if line["http.status_code"] != "500" {
		t.Errorf("expected status tag, got %v", line["http.status_code"])
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
