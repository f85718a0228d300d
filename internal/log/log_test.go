package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

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

func TestLoggerComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Component: ComponentHTTP, Output: &buf})
	logger.Info("hello", FieldEnvelopeID, 7)

	out := buf.String()
	if !strings.Contains(out, "component=http") || !strings.Contains(out, "envelope_id=7") {
		t.Fatalf("unexpected output: %s", out)
	}

	buf.Reset()
	logger.WithComponent(ComponentStorage).Info("again")
	out = buf.String()
	if !strings.Contains(out, "component=storage") || strings.Contains(out, "component=http") {
		t.Fatalf("component not replaced: %s", out)
	}

	buf.Reset()
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at info level: %s", buf.String())
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentHTTP, Output: &buf})
	sl := NewStructuredLogger(logger)

	sl.LogHTTPEnd(context.Background(), NewFields().WithHTTPRequest("GET", "/envelopes", "", ""), 503, 12)
	out := buf.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "status_code=503") {
		t.Fatalf("unexpected output: %s", out)
	}

	buf.Reset()
	sl.LogError(context.Background(), "boom", errors.New("disk full"), OpWithdraw, nil)
	out = buf.String()
	if !strings.Contains(out, "operation=withdraw") || !strings.Contains(out, `error="disk full"`) {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext must never return nil")
	}
	logger := New(DefaultConfig())
	ctx := WithContext(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatal("expected stored logger")
	}
}
