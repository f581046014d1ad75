package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. Handlers and services
// attach request-scoped attributes (request_id, certificate_id) per call.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
