package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrOp      = "op"
	attrHandle  = "handle"
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrMode    = "mode"
)

type callKey struct{}

type call struct {
	op     string
	handle string
}

// WithCall marks ctx as running boundary operation op on handle. Records
// logged through a CallHandler under ctx carry both.
func WithCall(ctx context.Context, op, handle string) context.Context {
	return context.WithValue(ctx, callKey{}, call{op: op, handle: handle})
}

// CallHandler is an [slog.Handler] that stamps each record with the
// boundary call found in its context and with the active span's IDs.
type CallHandler struct {
	inner slog.Handler
}

// NewCallHandler wraps inner.
func NewCallHandler(inner slog.Handler) *CallHandler {
	return &CallHandler{inner: inner}
}

// CallLogger returns logger with a CallHandler in front, or logger itself
// when it already has one.
func CallLogger(logger *slog.Logger) *slog.Logger {
	if _, ok := logger.Handler().(*CallHandler); ok {
		return logger
	}

	return slog.New(NewCallHandler(logger.Handler()))
}

// NewLogger builds the process logger described by cfg, writing to out.
func NewLogger(cfg Config, out io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var inner slog.Handler
	if cfg.LogJSON {
		inner = slog.NewJSONHandler(out, opts)
	} else {
		inner = slog.NewTextHandler(out, opts)
	}

	inner = inner.WithAttrs([]slog.Attr{
		slog.String(attrService, cfg.ServiceName),
		slog.String(attrMode, string(cfg.Mode)),
	})

	return slog.New(NewCallHandler(inner))
}

// Enabled delegates to the inner handler.
func (ch *CallHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return ch.inner.Enabled(ctx, level)
}

// Handle adds the call and trace attributes, then delegates.
func (ch *CallHandler) Handle(ctx context.Context, record slog.Record) error {
	if current, ok := ctx.Value(callKey{}).(call); ok {
		record.AddAttrs(
			slog.String(attrOp, current.op),
			slog.String(attrHandle, current.handle),
		)
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	err := ch.inner.Handle(ctx, record)
	if err != nil {
		return fmt.Errorf("call handler: %w", err)
	}

	return nil
}

// WithAttrs implements [slog.Handler].
func (ch *CallHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CallHandler{inner: ch.inner.WithAttrs(attrs)}
}

// WithGroup implements [slog.Handler].
func (ch *CallHandler) WithGroup(name string) slog.Handler {
	return &CallHandler{inner: ch.inner.WithGroup(name)}
}
