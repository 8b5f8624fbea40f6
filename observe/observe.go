package observe

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/filememo/observe/exporters"
)

// ScopeName is the instrumentation scope of every tracer and meter the
// Observer hands out.
const ScopeName = "github.com/jonwraymond/filememo"

// Config selects which telemetry signals a memoized program emits.
type Config struct {
	ServiceName string `yaml:"service_name"`
	Version     string `yaml:"version"`

	// Global also installs the providers as the otel global providers.
	Global bool `yaml:"global"`

	Tracing TracingConfig `yaml:"tracing"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// TracingConfig configures one span per memoized call.
type TracingConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Exporter  string  `yaml:"exporter"`   // otlp|jaeger|stdout|none
	SamplePct float64 `yaml:"sample_pct"` // 0.0-1.0
}

// MetricsConfig configures the call, error and store-failure counters.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // otlp|prometheus|stdout|none
}

// LoggingConfig configures the JSON decision log.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"` // debug|info|warn|error
}

var (
	tracingExporters = []string{"", "none", "stdout", "otlp", "jaeger"}
	metricsExporters = []string{"", "none", "stdout", "otlp", "prometheus"}
	logLevels        = []string{"", "debug", "info", "warn", "error"}
)

func (c TracingConfig) validate() error {
	if !c.Enabled {
		return nil
	}
	if !slices.Contains(tracingExporters, c.Exporter) {
		return fmt.Errorf("%w: %q", ErrInvalidTracingExporter, c.Exporter)
	}
	if c.SamplePct < 0 || c.SamplePct > 1 {
		return fmt.Errorf("%w, got: %f", ErrInvalidSamplePct, c.SamplePct)
	}
	return nil
}

func (c TracingConfig) sampler() sdktrace.Sampler {
	switch {
	case c.SamplePct >= 1:
		return sdktrace.AlwaysSample()
	case c.SamplePct <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(c.SamplePct)
	}
}

func (c MetricsConfig) validate() error {
	if c.Enabled && !slices.Contains(metricsExporters, c.Exporter) {
		return fmt.Errorf("%w: %q", ErrInvalidMetricsExporter, c.Exporter)
	}
	return nil
}

func (c LoggingConfig) validate() error {
	if c.Enabled && !slices.Contains(logLevels, c.Level) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Level)
	}
	return nil
}

// Validate checks the service name and every enabled section.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}
	return errors.Join(c.Tracing.validate(), c.Metrics.validate(), c.Logging.validate())
}

// Observer provides access to telemetry primitives.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Shutdown must honor cancellation/deadlines.
// - Errors: Shutdown reports every provider that failed to flush.
type Observer interface {
	Tracer() trace.Tracer
	Meter() metric.Meter
	Logger() Logger

	// Shutdown flushes and stops the providers NewObserver started.
	Shutdown(ctx context.Context) error
}

// Logger is a minimal structured logging interface.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: logging is best-effort and must not panic.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)

	// WithFunc returns a logger that adds the function's fields to
	// every entry.
	WithFunc(meta FuncMeta) Logger
}

// Field represents a structured log field.
type Field struct {
	Key   string
	Value any
}

type observer struct {
	tracer         trace.Tracer
	meter          metric.Meter
	logger         Logger
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// NewObserver starts the providers cfg enables. Disabled signals get
// no-op implementations, so callers never check for nil.
func NewObserver(ctx context.Context, cfg Config) (Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("observe: build resource: %w", err)
	}

	obs := &observer{
		tracer: tracenoop.NewTracerProvider().Tracer(ScopeName),
		meter:  noop.NewMeterProvider().Meter(ScopeName),
		logger: NopLogger(),
	}
	if cfg.Logging.Enabled {
		obs.logger = NewLogger(cfg.Logging.Level)
	}

	if cfg.Tracing.Enabled {
		exp, err := exporters.NewTracingExporter(ctx, cfg.Tracing.Exporter)
		if err != nil {
			return nil, fmt.Errorf("observe: tracing: %w", err)
		}
		obs.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(cfg.Tracing.sampler()),
			sdktrace.WithBatcher(exp),
		)
		obs.tracer = obs.tracerProvider.Tracer(ScopeName, trace.WithInstrumentationVersion(cfg.Version))
	}

	if cfg.Metrics.Enabled {
		reader, err := exporters.NewMetricsReader(ctx, cfg.Metrics.Exporter)
		if err != nil {
			_ = obs.Shutdown(ctx)
			return nil, fmt.Errorf("observe: metrics: %w", err)
		}
		obs.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(reader),
		)
		obs.meter = obs.meterProvider.Meter(ScopeName, metric.WithInstrumentationVersion(cfg.Version))
	}

	if cfg.Global {
		obs.register()
	}
	return obs, nil
}

func (o *observer) register() {
	if o.tracerProvider != nil {
		otel.SetTracerProvider(o.tracerProvider)
	}
	if o.meterProvider != nil {
		otel.SetMeterProvider(o.meterProvider)
	}
}

func (o *observer) Tracer() trace.Tracer { return o.tracer }
func (o *observer) Meter() metric.Meter  { return o.meter }
func (o *observer) Logger() Logger       { return o.logger }

func (o *observer) Shutdown(ctx context.Context) error {
	var errs []error
	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

type noopLogger struct{}

func (l *noopLogger) Info(context.Context, string, ...Field)  {}
func (l *noopLogger) Warn(context.Context, string, ...Field)  {}
func (l *noopLogger) Error(context.Context, string, ...Field) {}
func (l *noopLogger) Debug(context.Context, string, ...Field) {}
func (l *noopLogger) WithFunc(FuncMeta) Logger                { return l }

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger { return &noopLogger{} }
