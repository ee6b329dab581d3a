package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// ServiceMeta identifies a probed service for telemetry purposes.
type ServiceMeta struct {
	Name    string // Registry name (required)
	Address string // Probe target
	CheckID string // Aggregation round the probe belongs to (optional)
}

// SpanName returns the deterministic span name for a probe of this service.
// Format: health.probe.<name>
func (m ServiceMeta) SpanName() string {
	return "health.probe." + m.Name
}

// Tracer wraps OpenTelemetry tracing with probe-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for one probe.
	StartSpan(ctx context.Context, meta ServiceMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording why the service is down if err is set.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta ServiceMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("service.name", meta.Name),
		attribute.Bool("probe.down", false), // updated in EndSpan
	}
	if meta.Address != "" {
		attrs = append(attrs, attribute.String("url.full", meta.Address))
	}
	if meta.CheckID != "" {
		attrs = append(attrs, attribute.String("health.check_id", meta.CheckID))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("probe.down", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta ServiceMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
