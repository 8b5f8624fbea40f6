package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Instruments bundles the tracer, metrics, and logger used around every
// memoized call.
//
// Contract:
//   - Concurrency: safe for concurrent use; each Begin returns its own Call.
//   - Errors: instrumentation never changes the value or error a call returns.
type Instruments struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewInstruments builds Instruments from explicit components.
// Nil components are replaced with no-ops.
func NewInstruments(tracer Tracer, metrics Metrics, logger Logger) *Instruments {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Instruments{tracer: tracer, metrics: metrics, logger: logger}
}

// NopInstruments returns Instruments that record nothing.
func NopInstruments() *Instruments {
	return NewInstruments(nil, nil, nil)
}

// InstrumentsFromObserver creates Instruments from an Observer.
func InstrumentsFromObserver(obs Observer) (*Instruments, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewInstruments(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Tracer returns the bundled tracer.
func (in *Instruments) Tracer() Tracer { return in.tracer }

// Logger returns the bundled logger.
func (in *Instruments) Logger() Logger { return in.logger }

// Metrics returns the bundled metrics.
func (in *Instruments) Metrics() Metrics { return in.metrics }

// Call is one in-flight memoized call.
type Call struct {
	in    *Instruments
	meta  FuncMeta
	span  trace.Span
	start time.Time
}

// Begin opens a span for a call to meta's function. The returned context
// carries the span and should be handed to the wrapped function.
func (in *Instruments) Begin(ctx context.Context, meta FuncMeta) (context.Context, *Call) {
	ctx, span := in.tracer.StartSpan(ctx, meta)
	return ctx, &Call{in: in, meta: meta, span: span, start: time.Now()}
}

// End closes the call, recording the decision and the caller-visible error.
func (c *Call) End(ctx context.Context, decision string, err error) {
	duration := time.Since(c.start)

	c.in.tracer.EndSpan(c.span, decision, err)
	c.in.metrics.RecordCall(ctx, c.meta, decision, duration, err)

	logger := c.in.logger.WithFunc(c.meta)
	fields := []Field{
		{Key: "decision", Value: decision},
		{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000},
	}
	if err != nil {
		fields = append(fields, Field{Key: "error", Value: err.Error()})
	}
	logger.Debug(ctx, "memoized call", fields...)
}

// StoreError records a failed store operation. The call carries on as if
// the store were empty.
func (c *Call) StoreError(ctx context.Context, op string, err error) {
	c.in.metrics.RecordStoreError(ctx, c.meta, op)
	c.in.logger.WithFunc(c.meta).Warn(ctx, "record store failure",
		Field{Key: "op", Value: op},
		Field{Key: "error", Value: err},
	)
}
