package relay

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/hoshi/pkg/handle"
	"github.com/Sumatoshi-tech/hoshi/pkg/observability"
)

// Relay wraps boundary calls: it recovers panics, classifies failures into
// envelopes, and records a span, metrics and a log line per call.
type Relay struct {
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.BoundaryMetrics
}

// Option configures a Relay.
type Option func(*Relay)

// WithLogger sets the logger for failed calls. Records logged during a call
// carry its op and handle.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTracer sets the tracer for call spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Relay) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

// WithMetrics sets the boundary call instruments.
func WithMetrics(metrics *observability.BoundaryMetrics) Option {
	return func(r *Relay) {
		if metrics != nil {
			r.metrics = metrics
		}
	}
}

// New creates a relay. Without options it logs to slog.Default and
// records nothing.
func New(opts ...Option) *Relay {
	r := &Relay{
		logger:  slog.Default(),
		tracer:  nooptrace.NewTracerProvider().Tracer(observability.ScopeName),
		metrics: observability.NoopBoundaryMetrics(),
	}

	for _, opt := range opts {
		opt(r)
	}

	r.logger = observability.CallLogger(r.logger)

	return r
}

// Logger returns the relay logger.
func (r *Relay) Logger() *slog.Logger {
	return r.logger
}

// Metrics returns the relay instruments.
func (r *Relay) Metrics() *observability.BoundaryMetrics {
	return r.metrics
}

// Invoke runs fn as the boundary operation op on handle h and returns its
// outcome as a Result. A panic in fn becomes an unknown-error envelope.
func Invoke[T any](
	ctx context.Context, r *Relay, op string, h handle.Handle, fn func(ctx context.Context) (T, error),
) (res Result[T]) {
	ctx, span := r.tracer.Start(observability.WithCall(ctx, op, h.String()), "hoshi."+op, trace.WithAttributes(
		attribute.String("hoshi.op", op),
		attribute.String("hoshi.handle", h.String()),
	))
	start := time.Now()
	done := r.metrics.TrackInflight(ctx, op)

	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.ErrorContext(ctx, "boundary call panicked",
				"panic", recovered, "stack", string(debug.Stack()))

			res = Fail[T](Envelope{Kind: KindUnknown, Message: fmt.Sprintf("panic: %v", recovered)})
		}

		res = res.At(op, h)
		r.finish(ctx, span, op, res.Envelope(), time.Since(start))
		done()
	}()

	value, err := fn(ctx)

	return FromError(value, err)
}

func (r *Relay) finish(ctx context.Context, span trace.Span, op string, env Envelope, elapsed time.Duration) {
	defer span.End()

	status := observability.StatusOK
	if env.Kind != KindNone {
		status = env.Kind.String()
		span.SetStatus(codes.Error, env.Message)
		span.SetAttributes(attribute.String("hoshi.exception", status))
	}

	r.metrics.RecordCall(ctx, op, status, elapsed)

	switch env.Kind {
	case KindNone:
	case KindGrammar, KindSource:
		// Expected outcomes for bad input; diagnostics carry the detail.
		r.logger.DebugContext(ctx, "boundary call rejected input", "kind", status, "message", env.Message)
	default:
		r.logger.WarnContext(ctx, "boundary call failed", "kind", status, "message", env.Message)
	}
}
