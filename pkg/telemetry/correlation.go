package telemetry

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ContextKey type for context keys
type ContextKey string

const (
	// CorrelationIDKey is the context key for correlation ID
	CorrelationIDKey ContextKey = "correlation_id"
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"
	// PageKey is the context key for the page name a request renders
	PageKey ContextKey = "page"
)

const (
	// HeaderCorrelationID is the HTTP header for correlation ID
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderRequestID is the HTTP header for request ID
	HeaderRequestID = "X-Request-ID"
)

// CorrelationMiddleware adds request and correlation IDs to every request.
// Incoming IDs are honoured so an upstream proxy can stitch logs together.
func CorrelationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		correlationID := r.Header.Get(HeaderCorrelationID)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx = context.WithValue(ctx, CorrelationIDKey, correlationID)
		ctx = context.WithValue(ctx, RequestIDKey, requestID)

		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.SetAttributes(
				attribute.String("correlation.id", correlationID),
				attribute.String("request.id", requestID),
			)
		}

		w.Header().Set(HeaderCorrelationID, correlationID)
		w.Header().Set(HeaderRequestID, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithPage tags ctx with the page being rendered.
func WithPage(ctx context.Context, page string) context.Context {
	return context.WithValue(ctx, PageKey, page)
}

// GetCorrelationID retrieves correlation ID from context
func GetCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(CorrelationIDKey).(string)
	return id
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// GetPage retrieves the page name from context
func GetPage(ctx context.Context) string {
	page, _ := ctx.Value(PageKey).(string)
	return page
}

// InjectCorrelationHeaders copies correlation IDs onto outgoing headers
func InjectCorrelationHeaders(ctx context.Context, headers http.Header) {
	if correlationID := GetCorrelationID(ctx); correlationID != "" {
		headers.Set(HeaderCorrelationID, correlationID)
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		headers.Set(HeaderRequestID, requestID)
	}
}

// EnrichLogFields adds correlation and trace IDs to log fields
func EnrichLogFields(ctx context.Context, fields map[string]interface{}) map[string]interface{} {
	enriched := make(map[string]interface{}, len(fields)+5)
	for k, v := range fields {
		enriched[k] = v
	}

	if correlationID := GetCorrelationID(ctx); correlationID != "" {
		enriched["correlation_id"] = correlationID
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		enriched["request_id"] = requestID
	}
	if page := GetPage(ctx); page != "" {
		enriched["page"] = page
	}

	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		enriched["trace_id"] = spanCtx.TraceID().String()
		enriched["span_id"] = spanCtx.SpanID().String()
	}

	return enriched
}
