// Package logging provides the process-wide structured logger.
package logging

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/mdobak/go-xerrors"
)

var (
	once   sync.Once
	logger *slog.Logger
)

// Get returns the shared logger, initialising it on first use.
func Get() *slog.Logger {
	once.Do(func() {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	})
	return logger
}

// Error logs err with a stack trace attached via go-xerrors, for use at
// I/O and decode boundaries where the original cause is worth keeping.
func Error(ctx context.Context, msg string, err error) {
	Get().ErrorContext(ctx, msg, slog.Any("error", xerrors.New(err)))
}
