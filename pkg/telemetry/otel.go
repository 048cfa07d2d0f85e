package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// instrumentationName names the storefront's tracer and meter.
const instrumentationName = "github.com/minimall/storefront"

// Config selects what Setup installs.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Enabled        bool
	TracingEnabled bool
	MetricsEnabled bool

	// Endpoint is an OTLP gRPC receiver (host:port). Empty means no export.
	Endpoint     string
	Insecure     bool
	SamplingRate float64

	// StdoutTraces prints spans when no endpoint is set (development).
	StdoutTraces bool
	StdoutWriter io.Writer

	// MetricReader collects metrics; tests pass a ManualReader.
	MetricReader sdkmetric.Reader
}

// Provider holds the installed providers so they can be flushed on exit.
type Provider struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
}

// Setup configures OpenTelemetry for the process. With Enabled=false it
// returns a provider backed by the global no-op implementations.
func Setup(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled || os.Getenv("OTEL_SDK_DISABLED") == "true" {
		return &Provider{
			Tracer: otel.Tracer(instrumentationName),
			Meter:  otel.Meter(instrumentationName),
		}, nil
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTEL resource: %w", err)
	}

	p := &Provider{}

	if cfg.TracingEnabled {
		tp, err := newTraceProvider(ctx, cfg, res)
		if err != nil {
			return nil, fmt.Errorf("failed to setup trace provider: %w", err)
		}
		p.TracerProvider = tp
		otel.SetTracerProvider(tp)
		p.Tracer = tp.Tracer(instrumentationName)
	} else {
		p.Tracer = otel.Tracer(instrumentationName)
	}

	if cfg.MetricsEnabled {
		opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
		if cfg.MetricReader != nil {
			opts = append(opts, sdkmetric.WithReader(cfg.MetricReader))
		}
		mp := sdkmetric.NewMeterProvider(opts...)
		p.MeterProvider = mp
		otel.SetMeterProvider(mp)
		p.Meter = mp.Meter(instrumentationName)
	} else {
		p.Meter = otel.Meter(instrumentationName)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return p, nil
}

func newResource(cfg Config) (*resource.Resource, error) {
	version := cfg.ServiceVersion
	if version == "" {
		version = "dev"
	}
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(cfg.ServiceName),
		semconv.ServiceVersionKey.String(version),
		semconv.DeploymentEnvironmentKey.String(deploymentEnvironment()),
		semconv.K8SPodNameKey.String(os.Getenv("HOSTNAME")),
		attribute.String("minimall.component", "storefront"),
	), nil
}

func newTraceProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	sampler := sdktrace.ParentBased(sdktrace.AlwaysSample())
	if cfg.SamplingRate > 0 && cfg.SamplingRate < 1 {
		sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplingRate))
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	}

	switch {
	case cfg.Endpoint != "":
		clientOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))

	case cfg.StdoutTraces:
		w := cfg.StdoutWriter
		if w == nil {
			w = os.Stdout
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithSyncer(exporter))
	}

	return sdktrace.NewTracerProvider(opts...), nil
}

// Shutdown flushes and stops the installed providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace provider: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

func deploymentEnvironment() string {
	if env := os.Getenv("DEPLOYMENT_ENVIRONMENT"); env != "" {
		return env
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return "production"
	}
	return "development"
}
