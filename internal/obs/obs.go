// Package obs provides lightweight correlation-ID plumbing so log lines
// from the same tick or task invocation can be tied together without
// threading extra parameters through every call.
package obs

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey int

const (
	tickIDKey ctxKey = iota
	taskRunIDKey
)

// NewCorrelationID returns a fresh random UUID in its 36-character string
// form, for log correlation; this wrapper exists so the scheduler doesn't
// import google/uuid itself.
func NewCorrelationID() string {
	return uuid.NewString()
}

// WithTickID attaches the current tick's correlation ID to ctx.
func WithTickID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, tickIDKey, id)
}

// TickID returns the tick correlation ID, or "" if none is set.
func TickID(ctx context.Context) string {
	id, _ := ctx.Value(tickIDKey).(string)
	return id
}

// WithTaskRunID attaches the current task invocation's correlation ID to ctx.
func WithTaskRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, taskRunIDKey, id)
}

// TaskRunID returns the task-run correlation ID, or "" if none is set.
func TaskRunID(ctx context.Context) string {
	id, _ := ctx.Value(taskRunIDKey).(string)
	return id
}
