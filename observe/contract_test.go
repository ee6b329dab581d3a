package observe

import (
	"context"
	"testing"
	"time"
)

func TestLoggerContract_WithService(t *testing.T) {
	if NopLogger().WithService(ServiceMeta{Name: "noop"}) == nil {
		t.Fatalf("WithService should return non-nil logger")
	}
}

func TestMetricsContract_NoPanic(t *testing.T) {
	metrics := NopMetrics()
	metrics.RecordProbe(context.Background(), ServiceMeta{Name: "noop"}, false, 10*time.Millisecond)
	metrics.RecordCheck(context.Background(), "healthy", 1, 10*time.Millisecond)
}

func TestTracerContract_NoPanic(t *testing.T) {
	tracer := newNoopTracer()
	_, span := tracer.StartSpan(context.Background(), ServiceMeta{Name: "noop"})
	tracer.EndSpan(span, nil)
}

func TestMiddlewareContract_NilComponents(t *testing.T) {
	mw := NewMiddleware(nil, nil, nil)
	up, err := mw.Wrap(func(ctx context.Context, svc ServiceMeta) (bool, error) {
		return false, nil
	})(context.Background(), ServiceMeta{Name: "noop"})
	if up || err != nil {
		t.Errorf("Wrap() = %v, %v; want false, nil", up, err)
	}
}
