package observe

import (
	"context"
	"time"
)

// ProbeFunc performs one probe. It reports whether the service is up and,
// when it is not, an error describing why.
type ProbeFunc func(ctx context.Context, svc ServiceMeta) (up bool, err error)

// Middleware wraps probes with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe ProbeFunc.
//   - Context: Propagates context through tracing spans.
//   - Errors: the wrapped function's outcome is recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap wraps a ProbeFunc with tracing, metrics, and logging.
func (m *Middleware) Wrap(fn ProbeFunc) ProbeFunc {
	return func(ctx context.Context, svc ServiceMeta) (bool, error) {
		ctx, span := m.tracer.StartSpan(ctx, svc)

		start := time.Now()
		up, err := fn(ctx, svc)
		latency := time.Since(start)

		spanErr := err
		if !up && spanErr == nil {
			spanErr = ErrServiceDown
		}
		m.tracer.EndSpan(span, spanErr)

		m.metrics.RecordProbe(ctx, svc, up, latency)

		fields := []Field{
			{Key: "latency_ms", Value: latency.Milliseconds()},
			{Key: "up", Value: up},
		}
		if svc.CheckID != "" {
			fields = append(fields, Field{Key: "check_id", Value: svc.CheckID})
		}

		logger := m.logger.WithService(svc)
		if up {
			logger.Debug(ctx, "probe completed", fields...)
		} else {
			fields = append(fields, Field{Key: "error", Value: spanErr.Error()})
			logger.Warn(ctx, "service down", fields...)
		}

		return up, err
	}
}

// Metrics returns the metrics recorder used by the middleware.
func (m *Middleware) Metrics() Metrics {
	return m.metrics
}

// Logger returns the logger used by the middleware.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
