// Package telemetry wires OpenTelemetry and structured logging into the
// storefront.
//
// # Traces
//
// Setup installs a global TracerProvider. Spans go to an OTLP gRPC collector
// when an endpoint is configured, to stdout in development mode, and nowhere
// otherwise. Middleware instruments incoming page requests and
// NewTracedTransport instruments outgoing backend calls, so a page view and
// the API requests it triggers share one trace.
//
// # Metrics
//
// APIMetrics counts backend calls and records their latency, labelled by
// method, route template and outcome (ok, unauthenticated, forbidden,
// not_found, validation, failed, network).
//
// # Correlation
//
// CorrelationMiddleware assigns X-Request-ID and X-Correlation-ID to every
// page request; InjectCorrelationHeaders forwards them to the backend.
//
// # Logs
//
// Logger implements core.Logger on top of logrus and adds trace and
// correlation IDs to every *WithContext call.
package telemetry
