// Package logging builds the slog loggers used across the monitor.
//
// All output is JSON on stderr. Every record carries the module name and
// build version; debug level also records the source location.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a case-insensitive level name to a slog level.
// Unknown names fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "critical":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a JSON logger on stderr for the given module.
func New(module, version, level string) *slog.Logger {
	return NewWithWriter(os.Stderr, module, version, level)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, module, version, level string) *slog.Logger {
	lvl := ParseLevel(level)
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl <= slog.LevelDebug,
	})
	return slog.New(h).With(
		slog.String("module", module),
		slog.String("version", version),
	)
}

// SetDefault installs a module logger as the process default and returns it.
func SetDefault(module, version, level string) *slog.Logger {
	logger := New(module, version, level)
	slog.SetDefault(logger)
	return logger
}
