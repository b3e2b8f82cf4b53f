// Package logger builds the slog.Logger used throughout memkeeper.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/memkeeper/memkeeper/pkg/config"
)

// New creates a logger from configuration. Format "json" selects the JSON
// handler, anything else the text handler.
func New(cfg config.LogConfig) *slog.Logger {
	return slog.New(NewHandler(cfg))
}

// NewHandler creates the handler New wraps, for callers that need to stack
// further handlers on top.
func NewHandler(cfg config.LogConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.NewTextHandler(os.Stderr, opts)
}

// NewDefaultLogger creates a text logger at the given level, for tests and
// one-off tools that bypass configuration.
func NewDefaultLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
