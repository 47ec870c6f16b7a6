// Package logging builds the structured loggers used across the pipeline.
// It is a thin layer over log/slog with module scoping.
//
// Usage:
//
//	l, err := logging.New("info", "text", os.Stderr)
//	ingestLog := logging.Module(l, "ingest")
//	ingestLog.Info("run finished", "run_id", 12, "created", 40)
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Formats accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ParseLevel maps a configured level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", level)
}

// New creates a logger writing to w.
func New(level, format string, w io.Writer) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	switch strings.ToLower(format) {
	case FormatText, "":
		h = slog.NewTextHandler(w, opts)
	case FormatJSON:
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return slog.New(h), nil
}

// Module scopes a logger to a named component.
func Module(l *slog.Logger, name string) *slog.Logger {
	if l == nil {
		l = Discard()
	}
	return l.With("module", name)
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
