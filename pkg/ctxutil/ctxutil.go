package ctxutil

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type ctxKey string

const runIDKey ctxKey = "run_id"

// WithRunID stores the refresh run ID in the context.
func WithRunID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromCtx extracts the refresh run ID from the context.
// Returns uuid.Nil and false if the value is missing, nil UUID, or wrong type.
func RunIDFromCtx(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(runIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// LoggerFromCtx returns logger annotated with the run ID, if the context has one.
func LoggerFromCtx(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id, ok := RunIDFromCtx(ctx); ok {
		return logger.With(slog.String("run_id", id.String()))
	}
	return logger
}
