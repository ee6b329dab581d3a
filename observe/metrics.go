package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records probe and aggregation metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordProbe records one probe outcome and its latency.
	RecordProbe(ctx context.Context, meta ServiceMeta, up bool, latency time.Duration)

	// RecordCheck records one aggregation round and its verdict.
	RecordCheck(ctx context.Context, systemStatus string, services int, duration time.Duration)
}

type metricsImpl struct {
	probeTotal    metric.Int64Counter
	probeDown     metric.Int64Counter
	probeLatency  metric.Float64Histogram
	checkTotal    metric.Int64Counter
	checkDuration metric.Float64Histogram
	checkServices metric.Int64Gauge
}

// NewMetrics creates a Metrics instance backed by meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	probeTotal, err := meter.Int64Counter(
		"health.probe.total",
		metric.WithDescription("Total number of service probes"),
		metric.WithUnit("{probe}"),
	)
	if err != nil {
		return nil, err
	}

	probeDown, err := meter.Int64Counter(
		"health.probe.down",
		metric.WithDescription("Number of probes that classified the service as down"),
		metric.WithUnit("{probe}"),
	)
	if err != nil {
		return nil, err
	}

	probeLatency, err := meter.Float64Histogram(
		"health.probe.latency_ms",
		metric.WithDescription("Probe latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	checkTotal, err := meter.Int64Counter(
		"health.check.total",
		metric.WithDescription("Total number of aggregated health checks"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	checkDuration, err := meter.Float64Histogram(
		"health.check.duration_ms",
		metric.WithDescription("Aggregated health check duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	checkServices, err := meter.Int64Gauge(
		"health.check.services",
		metric.WithDescription("Number of services covered by the last health check"),
		metric.WithUnit("{service}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		probeTotal:    probeTotal,
		probeDown:     probeDown,
		probeLatency:  probeLatency,
		checkTotal:    checkTotal,
		checkDuration: checkDuration,
		checkServices: checkServices,
	}, nil
}

func (m *metricsImpl) RecordProbe(ctx context.Context, meta ServiceMeta, up bool, latency time.Duration) {
	opt := metric.WithAttributes(attribute.String("service.name", meta.Name))

	m.probeTotal.Add(ctx, 1, opt)
	if !up {
		m.probeDown.Add(ctx, 1, opt)
	}
	m.probeLatency.Record(ctx, float64(latency.Milliseconds()), opt)
}

func (m *metricsImpl) RecordCheck(ctx context.Context, systemStatus string, services int, duration time.Duration) {
	opt := metric.WithAttributes(attribute.String("system_status", systemStatus))

	m.checkTotal.Add(ctx, 1, opt)
	m.checkDuration.Record(ctx, float64(duration.Milliseconds()), opt)
	m.checkServices.Record(ctx, int64(services))
}

type noopMetrics struct{}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordProbe(context.Context, ServiceMeta, bool, time.Duration) {}
func (noopMetrics) RecordCheck(context.Context, string, int, time.Duration)       {}
