package observability

import (
	"context"

	"returnsdesk/internal/config"
	contextutils "returnsdesk/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// InitMetrics initializes OpenTelemetry metrics
func InitMetrics(cfg *config.OpenTelemetryConfig) (result0 *metric.MeterProvider, err error) {
	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otel resource: %w", err)
	}

	var exporter metric.Exporter
	switch cfg.Protocol {
	case "grpc":
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
			otlpmetricgrpc.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp grpc metric exporter: %w", err)
		}
		exporter = exp
	case "http":
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.Endpoint),
			otlpmetrichttp.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exp, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp http metric exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "unsupported otel protocol: %s", cfg.Protocol)
	}

	mp := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter)),
		metric.WithResource(res),
	)
	return mp, nil
}

// Metrics holds the domain counters. A nil *Metrics records nothing.
type Metrics struct {
	returnsCreated otelmetric.Int64Counter
	statusUpdates  otelmetric.Int64Counter
	imagesRejected otelmetric.Int64Counter
	logins         otelmetric.Int64Counter
}

// NewMetrics registers the counters on provider; a nil provider yields no-op instruments
func NewMetrics(provider otelmetric.MeterProvider) (*Metrics, error) {
	if provider == nil {
		provider = noop.NewMeterProvider()
	}
	meter := provider.Meter(instrumentationName)

	m := &Metrics{}
	var err error
	if m.returnsCreated, err = meter.Int64Counter("returns.created",
		otelmetric.WithDescription("Returns logged by customer service")); err != nil {
		return nil, contextutils.WrapError(err, "failed to create returns.created counter")
	}
	if m.statusUpdates, err = meter.Int64Counter("returns.status_updates",
		otelmetric.WithDescription("Warehouse decisions on pending returns")); err != nil {
		return nil, contextutils.WrapError(err, "failed to create returns.status_updates counter")
	}
	if m.imagesRejected, err = meter.Int64Counter("returns.images.rejected",
		otelmetric.WithDescription("Uploaded images dropped before storage")); err != nil {
		return nil, contextutils.WrapError(err, "failed to create returns.images.rejected counter")
	}
	if m.logins, err = meter.Int64Counter("auth.logins",
		otelmetric.WithDescription("Login attempts by result")); err != nil {
		return nil, contextutils.WrapError(err, "failed to create auth.logins counter")
	}
	return m, nil
}

// ReturnCreated counts a newly persisted return
func (m *Metrics) ReturnCreated(ctx context.Context, withImage bool) {
	if m == nil {
		return
	}
	m.returnsCreated.Add(ctx, 1, otelmetric.WithAttributes(attribute.Bool("with_image", withImage)))
}

// StatusUpdated counts a warehouse decision
func (m *Metrics) StatusUpdated(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.statusUpdates.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("status", status)))
}

// ImageRejected counts a dropped upload by reason ("extension", "content", "filename")
func (m *Metrics) ImageRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.imagesRejected.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("reason", reason)))
}

// Login counts a login attempt by result ("success", "failure")
func (m *Metrics) Login(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.logins.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("result", result)))
}
