package observability

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

type contextKey string

// Keys under which per-request values travel through the context.
// Each key doubles as the log field name.
const (
	TraceIDKey   contextKey = "trace_id"
	SpanIDKey    contextKey = "span_id"
	RequestIDKey contextKey = "request_id"
	ModelKey     contextKey = "model"
)

// logKeys lists the context values copied onto every contextual logger.
//
//nolint:gochecknoglobals // Read-only lookup table
var logKeys = []contextKey{TraceIDKey, SpanIDKey, RequestIDKey, ModelKey}

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

func valueOf(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// WithTraceID injects trace ID into context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return withValue(ctx, TraceIDKey, traceID)
}

// WithSpanID injects span ID into context.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return withValue(ctx, SpanIDKey, spanID)
}

// WithRequestID injects request ID into context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withValue(ctx, RequestIDKey, requestID)
}

// WithModel injects the upstream model name into context.
func WithModel(ctx context.Context, model string) context.Context {
	return withValue(ctx, ModelKey, model)
}

// GetTraceID extracts trace ID from context.
func GetTraceID(ctx context.Context) string { return valueOf(ctx, TraceIDKey) }

// GetSpanID extracts span ID from context.
func GetSpanID(ctx context.Context) string { return valueOf(ctx, SpanIDKey) }

// GetRequestID extracts request ID from context.
func GetRequestID(ctx context.Context) string { return valueOf(ctx, RequestIDKey) }

// GetModel extracts the upstream model name from context.
func GetModel(ctx context.Context) string { return valueOf(ctx, ModelKey) }

// randomHex returns n random bytes hex-encoded, or ok=false if the
// system source failed.
func randomHex(n int) (string, bool) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", false
	}
	return hex.EncodeToString(b), true
}

// GenerateTraceID generates a W3C-compatible trace ID (32 hex chars).
func GenerateTraceID() string {
	if id, ok := randomHex(16); ok {
		return id
	}
	return hex.EncodeToString(uuidBytes())
}

// GenerateSpanID generates a W3C-compatible span ID (16 hex chars).
func GenerateSpanID() string {
	if id, ok := randomHex(8); ok {
		return id
	}
	return hex.EncodeToString(uuidBytes()[:8])
}

// GenerateRequestID generates a unique request identifier (UUID).
func GenerateRequestID() string {
	return uuid.NewString()
}

func uuidBytes() []byte {
	id := uuid.New()
	return id[:]
}
