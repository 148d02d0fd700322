package logging

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// requestIDKey is the context key for storing/retrieving request IDs.
type requestIDKey struct{}

// WithRequestID returns a new context with the request ID attached, so
// components below the HTTP layer (credpool, orchestrator, ratelimit) can
// log under the same id as the inbound request without importing gin.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// GetRequestID retrieves the request ID from the context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// FromContext returns a logrus entry pre-populated with ctx's request id
// under the fieldRequestID key, ready for further .WithField/.Info/.Warn
// calls.
func FromContext(ctx context.Context) *log.Entry {
	return log.WithField(fieldRequestID, GetRequestID(ctx))
}
