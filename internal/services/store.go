package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BradenHooton/vaultgate/internal/models"
)

// DefaultStoreTimeout bounds a single store call when none is configured.
const DefaultStoreTimeout = 5 * time.Second

func storeContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// storeError logs a repository failure and hides it behind ErrStore.
// ErrNotFound is passed through since callers report it to the client.
func storeError(logger *slog.Logger, msg string, err error, attrs ...any) error {
	if errors.Is(err, models.ErrNotFound) {
		return models.ErrNotFound
	}
	logger.Error(msg, append(attrs, slog.Any("error", err))...)
	return models.ErrStore
}

// optional returns nil for blank input.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
