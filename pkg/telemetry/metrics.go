package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names
const (
	MetricBackendRequests = "storefront.backend.requests"
	MetricBackendDuration = "storefront.backend.duration"
	MetricBulkAddItems    = "storefront.cart.bulk_add.items"
)

// APIMetrics records one data point per backend call.
type APIMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	bulk     metric.Int64Counter
}

// NewAPIMetrics registers the backend instruments on meter.
func NewAPIMetrics(meter metric.Meter) (*APIMetrics, error) {
	requests, err := meter.Int64Counter(MetricBackendRequests,
		metric.WithDescription("Backend API calls by route and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricBackendRequests, err)
	}

	duration, err := meter.Float64Histogram(MetricBackendDuration,
		metric.WithDescription("Backend API call latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricBackendDuration, err)
	}

	bulk, err := meter.Int64Counter(MetricBulkAddItems,
		metric.WithDescription("Items processed by bulk add-to-cart, by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricBulkAddItems, err)
	}

	return &APIMetrics{requests: requests, duration: duration, bulk: bulk}, nil
}

// RecordCall implements api.Recorder.
// route is the path template (e.g. /api/cart/items/{id}) to keep cardinality bounded.
func (m *APIMetrics) RecordCall(ctx context.Context, method, route, outcome string, status int, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("route", route),
		attribute.String("outcome", outcome),
		attribute.Int("http.status_code", status),
	)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(elapsed.Microseconds())/1000.0, attrs)
}

// RecordBulkAdd implements api.Recorder.
func (m *APIMetrics) RecordBulkAdd(ctx context.Context, succeeded, failed int) {
	if succeeded > 0 {
		m.bulk.Add(ctx, int64(succeeded), metric.WithAttributes(attribute.String("result", "succeeded")))
	}
	if failed > 0 {
		m.bulk.Add(ctx, int64(failed), metric.WithAttributes(attribute.String("result", "failed")))
	}
}
