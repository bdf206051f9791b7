package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		enable slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug},
		{"warn level", "warn", slog.LevelWarn},
		{"warning alias", "WARNING", slog.LevelWarn},
		{"default info", "", slog.LevelInfo},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.level)
			if !logger.Enabled(ctx, tt.enable) {
				t.Fatalf("expected level %s to be enabled", tt.enable)
			}
		})
	}
}

func TestErrorLevelSuppressesInfo(t *testing.T) {
	logger := New("error")
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("error level should not enable info")
	}
}

func TestDefaultLogger(t *testing.T) {
	logger := Default()
	logger.Info("test message", "key", "value")

	ctx := context.Background()
	if !logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("Default() should enable info level")
	}
	if logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("Default() should not enable debug level")
	}
	if logger.Logger == nil {
		t.Fatal("Default() returned Logger with nil slog.Logger")
	}
	if logger == Default() {
		t.Error("Default() returned the same instance twice")
	}
}

func TestWithCarriesAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("info", &buf).With("user_id", "15550001111")
	logger.Info("session advanced", "state", "AWAITING_NAME")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["user_id"] != "15550001111" {
		t.Fatalf("expected user_id attribute, got %v", entry["user_id"])
	}
	if entry["state"] != "AWAITING_NAME" {
		t.Fatalf("expected state attribute, got %v", entry["state"])
	}
}
