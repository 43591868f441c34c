package util

import (
	"log/slog"
	"os"
)

type Logger = *slog.Logger

func NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// NewQuietLogger keeps machine-readable output modes (for example --json)
// free of log noise on stdout/stderr interleaving.
func NewQuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}
