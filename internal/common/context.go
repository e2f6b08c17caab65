package common

import (
	"context"
	"time"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyBatchID    contextKey = "batch_id"
	ContextKeySourceFile contextKey = "source_file"
)

// WithBatchID adds a batch ID to the context
func WithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, ContextKeyBatchID, batchID)
}

// BatchIDFromContext extracts the batch ID from context
func BatchIDFromContext(ctx context.Context) string {
	if batchID, ok := ctx.Value(ContextKeyBatchID).(string); ok {
		return batchID
	}
	return ""
}

// WithSourceFile adds the document being processed to the context
func WithSourceFile(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, ContextKeySourceFile, source)
}

// SourceFileFromContext extracts the document name from context
func SourceFileFromContext(ctx context.Context) string {
	if source, ok := ctx.Value(ContextKeySourceFile).(string); ok {
		return source
	}
	return ""
}

// WithTimeout creates a context with the specified timeout. A non-positive timeout
// returns a cancelable context without a deadline.
func WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
