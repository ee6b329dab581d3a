package health

import (
	"context"

	"github.com/jonwraymond/healthagg/observe"
	"github.com/jonwraymond/healthagg/registry"
)

type checkIDKey struct{}

// WithCheckID returns a context carrying the id of the current aggregation round.
func WithCheckID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, checkIDKey{}, id)
}

// CheckIDFromContext returns the aggregation round id stored in ctx, if any.
func CheckIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(checkIDKey{}).(string)
	return id
}

// Instrument wraps a Prober so every probe runs inside the middleware's span,
// metrics and logging. A nil middleware returns p unchanged.
func Instrument(p Prober, mw *observe.Middleware) Prober {
	if mw == nil {
		return p
	}
	return &instrumentedProber{next: p, mw: mw}
}

type instrumentedProber struct {
	next Prober
	mw   *observe.Middleware
}

func (p *instrumentedProber) Probe(ctx context.Context, entry registry.Entry) ProbeResult {
	var result ProbeResult
	probe := p.mw.Wrap(func(ctx context.Context, _ observe.ServiceMeta) (bool, error) {
		result = p.next.Probe(ctx, entry)
		return result.IsUp(), result.Err()
	})

	_, _ = probe(ctx, observe.ServiceMeta{
		Name:    entry.Name,
		Address: entry.Address,
		CheckID: CheckIDFromContext(ctx),
	})
	return result
}
