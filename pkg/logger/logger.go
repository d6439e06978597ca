// Package logger builds the root slog.Logger for the notification engine.
// Development gets a human-readable text handler, everything else JSON.
package logger

import (
	"log/slog"
	"os"
)

// New constructs a logger for the given environment ("development",
// "staging", "production"). Debug enables debug-level output.
func New(env string, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch env {
	case "development":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// Err is a shorthand for attaching an error to a log record.
func Err(err error) slog.Attr {
	return slog.Attr{Key: "error", Value: slog.StringValue(err.Error())}
}
