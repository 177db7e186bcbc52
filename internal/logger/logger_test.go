package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNewHonoursLevel(t *testing.T) {
	l := New(slog.LevelInfo)
	if !l.Enabled(context.Background(), slog.LevelInfo) {
		t.Errorf("expected info level to be enabled")
	}
	if l.Enabled(context.Background(), slog.LevelDebug) {
		t.Errorf("did not expect debug level to be enabled")
	}

	if !New(slog.LevelDebug).Enabled(context.Background(), slog.LevelDebug) {
		t.Errorf("expected debug level to be enabled")
	}
	if New(slog.LevelWarn).Enabled(context.Background(), slog.LevelInfo) {
		t.Errorf("did not expect info level at warn")
	}
}

func TestLoggerWritesServiceAttribute(t *testing.T) {
	var buf bytes.Buffer
	newWithWriter(&buf, slog.LevelInfo).Info("order created", slog.Int64("order_id", 7))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["service"] != "vinylshop" || entry["msg"] != "order created" || entry["order_id"] != float64(7) {
		t.Fatalf("unexpected entry: %v", entry)
	}
}
