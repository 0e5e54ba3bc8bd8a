package telemetry

import "context"

type traceIDKey struct{}

// WithTraceID stashes a trace id on ctx so the logger can attach it to
// every line logged with a *WithContext method, without every call site
// threading it through by hand.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// TraceIDFromContext returns the trace id stashed by WithTraceID, if any.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(traceIDKey{}).(string)
	return id, ok
}
