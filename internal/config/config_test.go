package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{envListenAddr, envDBPath, envLogLevel, envLogFormat, envAPITokens, envTimeUnit} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.ListenAddr != defaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, defaultListenAddr)
	}
	if cfg.DBPath != defaultDBPath {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, defaultDBPath)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelInfo)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
	if cfg.TimeUnit != time.Second {
		t.Errorf("TimeUnit = %v, want 1s", cfg.TimeUnit)
	}
	if len(cfg.APITokens) != 2 {
		t.Errorf("APITokens = %v, want the two default tokens", cfg.APITokens)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(envListenAddr, ":9090")
	t.Setenv(envDBPath, "/tmp/qc-test.db")
	t.Setenv(envLogLevel, "debug")
	t.Setenv(envLogFormat, "console")
	t.Setenv(envAPITokens, "alpha, beta,")
	t.Setenv(envTimeUnit, "25ms")

	cfg := Load()

	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, ":9090")
	}
	if cfg.DBPath != "/tmp/qc-test.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/tmp/qc-test.db")
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if cfg.LogFormat != "console" {
		t.Errorf("LogFormat = %q, want console", cfg.LogFormat)
	}
	if len(cfg.APITokens) != 2 || cfg.APITokens[0] != "alpha" || cfg.APITokens[1] != "beta" {
		t.Errorf("APITokens = %v, want [alpha beta]", cfg.APITokens)
	}
	if cfg.TimeUnit != 25*time.Millisecond {
		t.Errorf("TimeUnit = %v, want 25ms", cfg.TimeUnit)
	}
}

func TestTimeUnitRejectsInvalid(t *testing.T) {
	clearEnv(t)
	t.Setenv(envTimeUnit, "not-a-duration")

	if cfg := Load(); cfg.TimeUnit != defaultTimeUnit {
		t.Errorf("TimeUnit = %v, want default %v", cfg.TimeUnit, defaultTimeUnit)
	}

	t.Setenv(envTimeUnit, "-5s")
	if cfg := Load(); cfg.TimeUnit != defaultTimeUnit {
		t.Errorf("negative TimeUnit = %v, want default %v", cfg.TimeUnit, defaultTimeUnit)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.input); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo, "json")
	logger.Info("hello", "key", "value")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["msg"] != "hello" {
		t.Errorf("msg = %v, want hello", entry["msg"])
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want value", entry["key"])
	}
}

func TestNewLoggerConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo, "console")
	logger.Info("hello")

	if buf.Len() == 0 {
		t.Error("console logger produced no output")
	}
	if json.Valid(buf.Bytes()) {
		t.Error("console logger produced JSON, want human-readable output")
	}
}
