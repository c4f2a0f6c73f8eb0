package main

import (
	"io"
	"log/slog"
)

// setupLogger configures the global slog logger with JSON output on w.
// Verbosity 3 forces debug logging.
func setupLogger(w io.Writer, level string, verbosity int) {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel(level, verbosity),
	})
	slog.SetDefault(slog.New(handler))
}

func logLevel(level string, verbosity int) slog.Level {
	if verbosity >= 3 {
		return slog.LevelDebug
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
