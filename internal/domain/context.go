package domain

import "context"

type contextKey string

// TraceIDKey is the context key for the request trace id. The HTTP layer
// sets it; the bus and the assessment pipeline read it when no otel span
// carries a trace id.
const TraceIDKey contextKey = "traceID"

// WithTraceID returns a copy of ctx carrying traceID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// TraceIDFromContext returns the trace id stored under TraceIDKey, or "".
func TraceIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(TraceIDKey).(string); ok {
		return v
	}
	return ""
}
