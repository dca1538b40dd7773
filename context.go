package authflow

import "context"

type requestIDContextKey struct{}

// WithRequestID attaches a caller-chosen request identifier to ctx. The
// Controller adds it to every log line of the operation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDContextKey{}).(string); ok {
		return v
	}
	return ""
}
