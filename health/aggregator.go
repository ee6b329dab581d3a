package health

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/healthagg/cache"
	"github.com/jonwraymond/healthagg/observe"
	"github.com/jonwraymond/healthagg/registry"
)

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Policy collapses per-service results into the system status.
	// Default: PolicyThreeTier
	Policy Policy

	// MaxConcurrency caps the number of probes in flight per round.
	// Default: 0 (unlimited)
	MaxConcurrency int

	// Prober probes individual services.
	// Default: an HTTPProber with default settings
	Prober Prober

	// Observer supplies tracing, metrics and logging.
	// Default: observe.Nop()
	Observer observe.Observer

	// ReportCache stores encoded reports between checks. Nil disables caching.
	ReportCache cache.Cache

	// CachePolicy controls how long reports stay in ReportCache.
	// Default: cache.NoCachePolicy()
	CachePolicy cache.Policy
}

// Aggregator probes every registered service and classifies the system.
//
// Contract:
//   - Concurrency: all methods are safe for concurrent use.
//   - Ownership: the registry is injected and shared with its other users.
//   - Errors: only ErrEmptyRegistry is returned; probe failures are data.
type Aggregator struct {
	registry       *registry.Registry
	prober         Prober
	policy         Policy
	maxConcurrency int
	metrics        observe.Metrics
	logger         observe.Logger
	reports        *cache.ReadThrough
	inflight       singleflight.Group
	newCheckID     func() string

	// mu guards the key of the newest cached report.
	mu            sync.Mutex
	cachedKey     string
	cachedVersion uint64
}

// NewAggregator creates a new health aggregator over reg.
func NewAggregator(reg *registry.Registry, config ...AggregatorConfig) (*Aggregator, error) {
	var cfg AggregatorConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if reg == nil {
		reg = registry.New()
	}
	if cfg.Prober == nil {
		cfg.Prober = NewHTTPProber(HTTPProberConfig{})
	}
	if cfg.Observer == nil {
		cfg.Observer = observe.Nop()
	}
	if cfg.MaxConcurrency < 0 {
		cfg.MaxConcurrency = 0
	}

	mw, err := observe.MiddlewareFromObserver(cfg.Observer)
	if err != nil {
		return nil, err
	}

	return &Aggregator{
		registry:       reg,
		prober:         Instrument(cfg.Prober, mw),
		policy:         cfg.Policy,
		maxConcurrency: cfg.MaxConcurrency,
		metrics:        mw.Metrics(),
		logger:         mw.Logger(),
		reports:        cache.NewReadThrough(cfg.ReportCache, cfg.CachePolicy),
		newCheckID:     uuid.NewString,
	}, nil
}

// Registry returns the registry the aggregator reads from.
func (a *Aggregator) Registry() *registry.Registry {
	return a.registry
}

// Policy returns the configured aggregation policy.
func (a *Aggregator) Policy() Policy {
	return a.policy
}

// Aggregate probes every entry of snap concurrently and classifies the
// results. Results follow snapshot order regardless of completion order.
// Probes are independent: one probe's failure never cancels another.
func (a *Aggregator) Aggregate(ctx context.Context, snap registry.Snapshot) (*Report, error) {
	if snap.Len() == 0 {
		return nil, ErrEmptyRegistry
	}

	checkID := a.newCheckID()
	ctx = WithCheckID(ctx, checkID)
	start := time.Now()

	entries := snap.Entries()
	results := make([]ProbeResult, len(entries))

	var g errgroup.Group
	if a.maxConcurrency > 0 {
		g.SetLimit(a.maxConcurrency)
	}
	for i, entry := range entries {
		g.Go(func() error {
			results[i] = a.prober.Probe(ctx, entry)
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{
		CheckID:      checkID,
		SystemStatus: a.policy.Evaluate(results),
		Policy:       a.policy,
		ServiceCount: len(results),
		Results:      results,
		CheckedAt:    time.Now().UTC(),
	}
	duration := time.Since(start)

	a.metrics.RecordCheck(ctx, report.SystemStatus.String(), report.ServiceCount, duration)
	a.logger.Info(ctx, "health check completed",
		observe.F("check_id", checkID),
		observe.F("system_status", report.SystemStatus.String()),
		observe.F("policy", a.policy.String()),
		observe.F("services", report.ServiceCount),
		observe.F("down", report.Down()),
		observe.F("duration_ms", duration.Milliseconds()),
	)

	return report, nil
}

// Check aggregates the registry's current snapshot.
//
// Concurrent calls against the same registry version share one probe round,
// and when a report cache is configured a report is reused until its TTL
// expires or the registry changes. The returned report is shared and must not
// be modified.
func (a *Aggregator) Check(ctx context.Context) (*Report, error) {
	snap := a.registry.Snapshot()
	if snap.Len() == 0 {
		return nil, ErrEmptyRegistry
	}

	key := cache.ReportKey(a.policy.String(), snap.Version())
	v, err, _ := a.inflight.Do(key, func() (any, error) {
		// The round outlives any single caller's cancellation.
		return a.checkSnapshot(context.WithoutCancel(ctx), key, snap)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Report), nil
}

func (a *Aggregator) checkSnapshot(ctx context.Context, key string, snap registry.Snapshot) (*Report, error) {
	if !a.reports.Enabled() {
		return a.Aggregate(ctx, snap)
	}

	var fresh *Report
	data, hit, err := a.reports.Get(ctx, key, func(ctx context.Context) ([]byte, error) {
		report, err := a.Aggregate(ctx, snap)
		if err != nil {
			return nil, err
		}
		fresh = report
		return json.Marshal(report)
	})
	if err != nil {
		return nil, err
	}
	if !hit {
		a.retire(ctx, key, snap.Version())
		return fresh, nil
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		a.logger.Warn(ctx, "discarding unreadable cached report", observe.F("error", err.Error()))
		return a.Aggregate(ctx, snap)
	}
	a.logger.Debug(ctx, "serving cached report", observe.F("check_id", report.CheckID))
	return &report, nil
}

// retire keeps only the newest registry version's report in the cache.
// Reports for older versions can never be served again.
func (a *Aggregator) retire(ctx context.Context, key string, version uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case a.cachedKey == "" || version > a.cachedVersion:
		if a.cachedKey != "" && a.cachedKey != key {
			_ = a.reports.Delete(ctx, a.cachedKey)
		}
		a.cachedKey, a.cachedVersion = key, version
	case key != a.cachedKey:
		// A slower round for an older version finished last.
		_ = a.reports.Delete(ctx, key)
	}
}
