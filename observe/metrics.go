package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records memoized call metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records one call with its freshness decision, duration,
	// and the error returned to the caller.
	RecordCall(ctx context.Context, meta FuncMeta, decision string, duration time.Duration, err error)

	// RecordStoreError records a record-store failure that the call
	// survived by treating the store as empty.
	RecordStoreError(ctx context.Context, meta FuncMeta, op string)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	storeErrors  metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates Metrics on the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"memo.calls.total",
		metric.WithDescription("Total number of memoized calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"memo.calls.errors",
		metric.WithDescription("Memoized calls that returned an error, fresh or replayed"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	storeErrors, err := meter.Int64Counter(
		"memo.store.errors",
		metric.WithDescription("Record store reads or writes that failed"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"memo.call.duration_ms",
		metric.WithDescription("Memoized call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		storeErrors:  storeErrors,
		durationHist: durationHist,
	}, nil
}

func (m *metricsImpl) RecordCall(ctx context.Context, meta FuncMeta, decision string, duration time.Duration, err error) {
	base := attribute.String("func.name", meta.Name)

	m.totalCount.Add(ctx, 1, metric.WithAttributes(base, attribute.String("memo.decision", decision)))
	if err != nil {
		m.errorCount.Add(ctx, 1, metric.WithAttributes(base))
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, metric.WithAttributes(base))
}

func (m *metricsImpl) RecordStoreError(ctx context.Context, meta FuncMeta, op string) {
	m.storeErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("func.name", meta.Name),
		attribute.String("store.op", op),
	))
}

type noopMetrics struct{}

// NopMetrics returns Metrics that record nothing.
func NopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordCall(context.Context, FuncMeta, string, time.Duration, error) {}
func (noopMetrics) RecordStoreError(context.Context, FuncMeta, string)                 {}
