// Package observability provides logging infrastructure.
// Logs are written to stdout as structured data.
package observability

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// LogContextKey is the type for context keys used in logging.
type LogContextKey string

const (
	// RequestIDKey is the context key for HTTP request IDs.
	RequestIDKey LogContextKey = "request_id"

	// RunIDKey is the context key for run IDs.
	RunIDKey LogContextKey = "run_id"
)

// NewLogger creates a configured slog.Logger writing to stdout.
func NewLogger(level, format string) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// ParseLevel maps a level name to a slog.Level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
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

// WithContext returns a logger with the request and run IDs found in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		logger = logger.With("request_id", reqID)
	}
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		logger = logger.With("run_id", runID)
	}
	return logger
}

// Component returns a logger scoped to a specific component.
func Component(logger *slog.Logger, name string) *slog.Logger {
	return logger.With("component", name)
}
