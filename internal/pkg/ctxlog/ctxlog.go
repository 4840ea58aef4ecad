// Package ctxlog carries a request-scoped slog.Logger through context so
// handlers and services log with the request's attributes attached.
package ctxlog

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// Attach returns a context carrying the logger.
func Attach(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger attached to the context, falling back
// to slog.Default() when none was attached.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
