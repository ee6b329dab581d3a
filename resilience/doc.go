// Package resilience bounds how long a single outbound operation may run.
//
// The health prober wraps every liveness request in a Timeout so that a
// target which accepts the connection but never answers cannot hold a probe
// past its budget, even if the transport ignores context cancellation.
//
//	t := resilience.NewTimeout(resilience.TimeoutConfig{Timeout: 3 * time.Second})
//	err := t.Execute(ctx, func(ctx context.Context) error {
//	    return doRequest(ctx)
//	})
//	if errors.Is(err, resilience.ErrTimeout) {
//	    // the operation did not finish in time
//	}
package resilience
