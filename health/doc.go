// Package health probes registered services and aggregates their status.
//
// An Aggregator reads a snapshot of a registry.Registry, probes every entry
// concurrently through a Prober and collapses the per-service results into a
// single Status using a Policy.
//
// # Probing
//
// HTTPProber issues one GET per service, bounded by a timeout. The configured
// healthy status code (200 by default) classifies a service as up; any other
// code, a timeout or a transport failure classifies it as down. Probe failures
// are reported as data in the ProbeResult and never as errors.
//
// # Policies
//
//	PolicyThreeTier  nothing down: healthy, everything down: unhealthy, else degraded
//	PolicyBinary     anything down: unhealthy, else healthy
//
// # Basic Usage
//
//	reg := registry.New(registry.Entry{Name: "api", Address: "https://api.example.com/health"})
//	agg, err := health.NewAggregator(reg, health.AggregatorConfig{
//	    Policy: health.PolicyThreeTier,
//	})
//	if err != nil {
//	    return err
//	}
//
//	report, err := agg.Check(ctx)
//	if errors.Is(err, health.ErrEmptyRegistry) {
//	    // nothing to probe
//	}
//
// # HTTP Endpoints
//
// NewHandler exposes the registry mutations and the report over HTTP:
//
//	http.ListenAndServe(":8080", health.NewHandler(agg))
package health
