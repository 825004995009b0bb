package middleware

import "context"

// Context keys populated by the gateway's bearer-token middleware.
type contextKey string

const (
	// UserIDKey is the context key for the authenticated user's ID.
	UserIDKey contextKey = "user_id"
	// TraceIDKey is the context key for the end-to-end batch trace ID.
	TraceIDKey contextKey = "trace_id"
)

// WithUserID returns a new context with the user ID set.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithTraceID returns a new context with the trace ID set.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetUserID extracts the user ID from the context.
func GetUserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(UserIDKey).(string)
	return v, ok
}

// GetTraceID extracts the trace ID from the context.
func GetTraceID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(TraceIDKey).(string)
	return v, ok
}
