package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Tracer wraps OpenTelemetry tracing with one span per memoized call.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a memoized call.
	StartSpan(ctx context.Context, meta FuncMeta) (context.Context, trace.Span)

	// EndSpan records the freshness decision and any error, then ends the span.
	EndSpan(span trace.Span, decision string, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with function metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta FuncMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("func.name", meta.Name),
		attribute.Int("func.version", meta.Version),
		attribute.Bool("func.error", false),
	}
	if meta.Identity != "" {
		attrs = append(attrs, attribute.String("func.identity", meta.Identity))
	}
	if meta.Dir != "" {
		attrs = append(attrs, attribute.String("func.dir", meta.Dir))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, decision string, err error) {
	span.SetAttributes(attribute.String("memo.decision", decision))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("func.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// NopTracer returns a Tracer whose spans are never recorded.
func NopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta FuncMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ string, _ error) {
	span.End()
}
