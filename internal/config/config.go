package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

const (
	defaultListenAddr = ":8080"
	defaultDBPath     = "quantcloud.db"
	defaultTimeUnit   = time.Second

	envListenAddr = "QUANTCLOUD_LISTEN_ADDR"
	envDBPath     = "QUANTCLOUD_DB_PATH"
	envLogLevel   = "QUANTCLOUD_LOG_LEVEL"
	envLogFormat  = "QUANTCLOUD_LOG_FORMAT"
	envAPITokens  = "QUANTCLOUD_API_TOKENS"
	envTimeUnit   = "QUANTCLOUD_TIME_UNIT"
)

// defaultTokens are the bearer tokens accepted when none are configured,
// matching what the platform's test tooling ships with.
var defaultTokens = []string{"demo-token-123", "test-token-456"}

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string
	LogLevel   slog.Level
	LogFormat  string // "json" or "console"
	APITokens  []string
	TimeUnit   time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		ListenAddr: defaultListenAddr,
		DBPath:     defaultDBPath,
		LogLevel:   slog.LevelInfo,
		LogFormat:  "json",
		APITokens:  defaultTokens,
		TimeUnit:   defaultTimeUnit,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envLogFormat); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	if v := os.Getenv(envAPITokens); v != "" {
		cfg.APITokens = splitTokens(v)
	}
	if v := os.Getenv(envTimeUnit); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.TimeUnit = d
		}
	}

	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitTokens(s string) []string {
	var tokens []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		return defaultTokens
	}
	return tokens
}

// NewLogger creates a structured logger writing to w at the given level.
// Format "console" gets a colorized tint handler, anything else JSON.
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	if format == "console" {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339,
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
