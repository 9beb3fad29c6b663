package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLoggerLevels(t *testing.T) {
	testCases := []struct {
		level       string
		expectDebug bool
		expectWarn  bool
		expectError bool
	}{
		{"debug", true, true, true},
		{"info", false, true, true},
		{"warn", false, true, true},
		{"warning", false, true, true},
		{"error", false, false, true},
		{"", false, true, true},
		{"loud", false, true, true},
	}

	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			logger := NewLogger(&bytes.Buffer{}, tc.level, "text")
			ctx := context.Background()
			if got := logger.Enabled(ctx, slog.LevelDebug); got != tc.expectDebug {
				t.Fatalf("debug enabled mismatch: got %v want %v", got, tc.expectDebug)
			}
			if got := logger.Enabled(ctx, slog.LevelWarn); got != tc.expectWarn {
				t.Fatalf("warn enabled mismatch: got %v want %v", got, tc.expectWarn)
			}
			if got := logger.Enabled(ctx, slog.LevelError); got != tc.expectError {
				t.Fatalf("error enabled mismatch: got %v want %v", got, tc.expectError)
			}
		})
	}
}

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "info", "json").Info("relay finished", "chat_id", int64(42))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "relay finished" || rec["chat_id"] != float64(42) {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestOpen_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "webmbot.log")
	logger, closer, err := Open("info", "text", path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	logger.Info("hello file")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello file") {
		t.Fatalf("log file missing record: %q", data)
	}
}
