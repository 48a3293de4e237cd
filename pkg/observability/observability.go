// Package observability wires OpenTelemetry tracing and RED metrics
// (rate, errors, duration) for the prediction service.
//
// A disabled Provider is fully usable: spans come from the global (no-op)
// tracer and metric recording is skipped.
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const scope = "github.com/Mindburn-Labs/screenpilot"

// Metric names.
const (
	MetricOperations = "screenpilot.operations"
	MetricFailures   = "screenpilot.failures"
	MetricLatency    = "screenpilot.latency"
	MetricInFlight   = "screenpilot.in_flight"
)

// latencyBuckets spans a sub-millisecond parse up to a slow model call.
var latencyBuckets = []float64{0.001, 0.005, 0.025, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40, 60, 120}

type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string // gRPC host:port
	SampleRate     float64
	ExportInterval time.Duration
	Enabled        bool
	Insecure       bool
}

// DefaultConfig is disabled and points at a local collector.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "screenpilot",
		ServiceVersion: "dev",
		Environment:    "development",
		OTLPEndpoint:   "localhost:4317",
		SampleRate:     1.0,
		ExportInterval: 15 * time.Second,
	}
}

// Provider owns the SDK providers and the RED instruments. All methods are
// safe on a nil or disabled Provider.
type Provider struct {
	tp     *sdktrace.TracerProvider
	mp     *sdkmetric.MeterProvider
	tracer trace.Tracer
	meter  metric.Meter
	inst   *instruments
	logger *slog.Logger
}

type instruments struct {
	operations metric.Int64Counter
	failures   metric.Int64Counter
	latency    metric.Float64Histogram
	inFlight   metric.Int64UpDownCounter
}

// Nop returns a disabled provider.
func Nop() *Provider {
	return &Provider{logger: slog.Default().With("component", "observability")}
}

// New starts OTLP gRPC exporters when cfg.Enabled and installs them as the
// global providers. A disabled config yields Nop.
func New(ctx context.Context, cfg *Config) (*Provider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if !cfg.Enabled {
		return Nop(), nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("observability resource: %w", err)
	}

	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
	}

	spanExp, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}
	metricExp, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		_ = spanExp.Shutdown(ctx)
		return nil, fmt.Errorf("metric exporter: %w", err)
	}

	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(spanExp),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler(cfg.SampleRate))),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(interval))),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	p, err := NewWithSDK(tp, mp)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, err
	}
	p.logger.InfoContext(ctx, "telemetry exporting",
		"endpoint", cfg.OTLPEndpoint, "service", cfg.ServiceName, "sample_rate", cfg.SampleRate)
	return p, nil
}

// NewWithSDK builds an enabled provider over existing SDK providers without
// touching the globals. Shutdown shuts both down.
func NewWithSDK(tp *sdktrace.TracerProvider, mp *sdkmetric.MeterProvider) (*Provider, error) {
	p := &Provider{
		tp:     tp,
		mp:     mp,
		tracer: tp.Tracer(scope),
		meter:  mp.Meter(scope),
		logger: slog.Default().With("component", "observability"),
	}
	inst, err := newInstruments(p.meter)
	if err != nil {
		return nil, fmt.Errorf("metric instruments: %w", err)
	}
	p.inst = inst
	return p, nil
}

func newInstruments(m metric.Meter) (*instruments, error) {
	ops, err := m.Int64Counter(MetricOperations, metric.WithDescription("Operations started"), metric.WithUnit("{operation}"))
	if err != nil {
		return nil, err
	}
	fails, err := m.Int64Counter(MetricFailures, metric.WithDescription("Operations that returned an error"), metric.WithUnit("{operation}"))
	if err != nil {
		return nil, err
	}
	lat, err := m.Float64Histogram(MetricLatency, metric.WithDescription("Operation latency"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...))
	if err != nil {
		return nil, err
	}
	live, err := m.Int64UpDownCounter(MetricInFlight, metric.WithDescription("Operations in progress"), metric.WithUnit("{operation}"))
	if err != nil {
		return nil, err
	}
	return &instruments{operations: ops, failures: fails, latency: lat, inFlight: live}, nil
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

func (p *Provider) Enabled() bool {
	return p != nil && p.inst != nil
}

// Shutdown flushes pending spans and metrics.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.tp != nil {
		errs = append(errs, p.tp.Shutdown(ctx))
	}
	if p.mp != nil {
		errs = append(errs, p.mp.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func (p *Provider) Tracer() trace.Tracer {
	if p == nil || p.tracer == nil {
		return otel.Tracer(scope)
	}
	return p.tracer
}

func (p *Provider) Meter() metric.Meter {
	if p == nil || p.meter == nil {
		return otel.Meter(scope)
	}
	return p.meter
}

func (p *Provider) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return p.Tracer().Start(ctx, name, opts...)
}

// RecordRequest counts one operation.
func (p *Provider) RecordRequest(ctx context.Context, attrs ...attribute.KeyValue) {
	if p.Enabled() {
		p.inst.operations.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordError counts one failed operation, tagged with the error's type.
func (p *Provider) RecordError(ctx context.Context, err error, attrs ...attribute.KeyValue) {
	if p.Enabled() {
		attrs = append(attrs[:len(attrs):len(attrs)], attribute.String("error.type", fmt.Sprintf("%T", err)))
		p.inst.failures.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (p *Provider) RecordDuration(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	if p.Enabled() {
		p.inst.latency.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
	}
}

// TrackOperation opens a span named name and counts the operation. The
// returned func must be called once with the operation's outcome.
func (p *Provider) TrackOperation(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := p.StartSpan(ctx, name, trace.WithAttributes(attrs...))

	tags := append([]attribute.KeyValue{attribute.String("operation", name)}, attrs...)
	p.RecordRequest(ctx, tags...)
	if p.Enabled() {
		p.inst.inFlight.Add(ctx, 1, metric.WithAttributes(tags...))
	}

	return ctx, func(err error) {
		if p.Enabled() {
			p.inst.inFlight.Add(ctx, -1, metric.WithAttributes(tags...))
		}
		p.RecordDuration(ctx, time.Since(start), tags...)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			p.RecordError(ctx, err, tags...)
		}
		span.End()
	}
}
