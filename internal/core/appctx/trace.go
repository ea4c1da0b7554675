// Package appctx provides request-scoped values extraction.
package appctx

import (
	"context"

	"github.com/google/uuid"
)

// TraceContext carries request tracing information.
type TraceContext struct {
	TraceID   string
	SpanID    string
	RequestID string
}

type traceContextKey struct{}

// WithTrace adds TraceContext to context.
func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// GetTrace returns TraceContext from context, or nil.
func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}

// GetRequestID returns the request ID from context or empty string.
func GetRequestID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.RequestID
	}
	return ""
}

// NewTraceContext creates a TraceContext with generated IDs.
func NewTraceContext() *TraceContext {
	return &TraceContext{
		TraceID:   uuid.New().String(),
		SpanID:    uuid.New().String()[:16],
		RequestID: uuid.New().String(),
	}
}
