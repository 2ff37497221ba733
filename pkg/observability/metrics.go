package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
)

// Instrument names.
const (
	MetricCallsTotal    = "hoshi.boundary.calls.total"
	MetricCallDuration  = "hoshi.boundary.call.duration.seconds"
	MetricFailuresTotal = "hoshi.boundary.failures.total"
	MetricInflightCalls = "hoshi.boundary.inflight.calls"
	MetricHandlesLive   = "hoshi.handles.live"
)

const (
	attrStatus = "status"

	// StatusOK is the status recorded for a call that returned a value.
	StatusOK = "ok"
)

// durationBucketBoundaries covers 10µs to 10s: boundary calls range from
// table lookups to full parses of large inputs.
var durationBucketBoundaries = []float64{
	0.00001, 0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 10,
}

// BoundaryMetrics holds the rate, error and duration instruments for
// boundary calls and the live handle gauge.
type BoundaryMetrics struct {
	callsTotal    metric.Int64Counter
	callDuration  metric.Float64Histogram
	failuresTotal metric.Int64Counter
	inflightCalls metric.Int64UpDownCounter
	handlesLive   metric.Int64UpDownCounter
}

// NewBoundaryMetrics creates the instruments from mt.
func NewBoundaryMetrics(mt metric.Meter) (*BoundaryMetrics, error) {
	calls, callsErr := mt.Int64Counter(MetricCallsTotal,
		metric.WithDescription("Total number of boundary calls"), metric.WithUnit("{call}"))
	duration, durationErr := mt.Float64Histogram(MetricCallDuration,
		metric.WithDescription("Boundary call duration in seconds"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...))
	failures, failuresErr := mt.Int64Counter(MetricFailuresTotal,
		metric.WithDescription("Boundary calls that returned an exception"), metric.WithUnit("{call}"))
	inflight, inflightErr := mt.Int64UpDownCounter(MetricInflightCalls,
		metric.WithDescription("Boundary calls in progress"), metric.WithUnit("{call}"))
	live, liveErr := mt.Int64UpDownCounter(MetricHandlesLive,
		metric.WithDescription("Engine handles currently alive"), metric.WithUnit("{handle}"))

	err := errors.Join(callsErr, durationErr, failuresErr, inflightErr, liveErr)
	if err != nil {
		return nil, fmt.Errorf("create boundary metrics: %w", err)
	}

	return &BoundaryMetrics{
		callsTotal:    calls,
		callDuration:  duration,
		failuresTotal: failures,
		inflightCalls: inflight,
		handlesLive:   live,
	}, nil
}

// NoopBoundaryMetrics returns instruments that record nothing.
func NoopBoundaryMetrics() *BoundaryMetrics {
	bm, err := NewBoundaryMetrics(noopmetric.NewMeterProvider().Meter(ScopeName))
	if err != nil {
		panic(err) // the noop meter never fails.
	}

	return bm
}

// RecordCall records a completed boundary call. Any status other than
// StatusOK also counts as a failure.
func (bm *BoundaryMetrics) RecordCall(ctx context.Context, op, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	bm.callsTotal.Add(ctx, 1, attrs)
	bm.callDuration.Record(ctx, duration.Seconds(), attrs)

	if status != StatusOK {
		bm.failuresTotal.Add(ctx, 1, attrs)
	}
}

// TrackInflight increments the in-flight gauge and returns the decrement.
func (bm *BoundaryMetrics) TrackInflight(ctx context.Context, op string) func() {
	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	bm.inflightCalls.Add(ctx, 1, attrs)

	return func() {
		bm.inflightCalls.Add(ctx, -1, attrs)
	}
}

// HandleCreated counts a new live handle.
func (bm *BoundaryMetrics) HandleCreated(ctx context.Context) {
	bm.handlesLive.Add(ctx, 1)
}

// HandleDestroyed counts a released handle.
func (bm *BoundaryMetrics) HandleDestroyed(ctx context.Context) {
	bm.handlesLive.Add(ctx, -1)
}
