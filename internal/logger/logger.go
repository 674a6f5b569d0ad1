// Package logger wraps log/slog with a process-wide default logger whose
// level comes from LOG_LEVEL.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var defaultLogger atomic.Pointer[slog.Logger]

func init() {
	level := slog.LevelWarn
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = ParseLevel(env)
	}
	defaultLogger.Store(newLogger(os.Stderr, level))
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// Default returns the current process-wide logger
func Default() *slog.Logger {
	return defaultLogger.Load()
}

// SetOutput replaces the default logger, writing to w at the given level
func SetOutput(w io.Writer, level slog.Level) {
	defaultLogger.Store(newLogger(w, level))
}

// SetLevel changes the level of the default logger (stderr)
func SetLevel(level slog.Level) {
	SetOutput(os.Stderr, level)
}

// SetVerbose switches between debug and warn output, for -v flags
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(slog.LevelDebug)
		return
	}
	SetLevel(slog.LevelWarn)
}

// With returns a logger tagged with a component name
func With(component string) *slog.Logger {
	return Default().With("component", component)
}
