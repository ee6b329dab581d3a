package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jonwraymond/healthagg/registry"
	"github.com/jonwraymond/healthagg/resilience"
)

// DefaultHealthyStatus is the status code that classifies a service as up.
const DefaultHealthyStatus = http.StatusOK

// Prober determines the status of a single service.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: Probe never fails; every failure is reported as a down result.
//   - Context: Probe must return promptly once ctx is done.
type Prober interface {
	Probe(ctx context.Context, entry registry.Entry) ProbeResult
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, entry registry.Entry) ProbeResult

// Probe calls f(ctx, entry).
func (f ProberFunc) Probe(ctx context.Context, entry registry.Entry) ProbeResult {
	return f(ctx, entry)
}

// HTTPProberConfig configures an HTTPProber.
type HTTPProberConfig struct {
	// Timeout bounds each probe from request start to response headers.
	// Default: 3 seconds
	Timeout time.Duration

	// HealthyStatus is the only status code treated as up.
	// Default: 200
	HealthyStatus int

	// UserAgent is sent with every probe request when non-empty.
	UserAgent string

	// Client performs the requests. Default: a client on http.DefaultTransport.
	Client *http.Client
}

// HTTPProber probes a service with a single GET request.
type HTTPProber struct {
	timeout       *resilience.Timeout
	healthyStatus int
	userAgent     string
	client        *http.Client
}

// NewHTTPProber creates a new HTTP prober.
func NewHTTPProber(config HTTPProberConfig) *HTTPProber {
	if config.HealthyStatus == 0 {
		config.HealthyStatus = DefaultHealthyStatus
	}
	if config.Client == nil {
		config.Client = &http.Client{}
	}

	return &HTTPProber{
		timeout:       resilience.NewTimeout(resilience.TimeoutConfig{Timeout: config.Timeout}),
		healthyStatus: config.HealthyStatus,
		userAgent:     config.UserAgent,
		client:        config.Client,
	}
}

// Timeout returns the per-probe budget.
func (p *HTTPProber) Timeout() time.Duration {
	return p.timeout.Config().Timeout
}

// Probe issues GET entry.Address. The response body is closed unread.
func (p *HTTPProber) Probe(ctx context.Context, entry registry.Entry) ProbeResult {
	start := time.Now()

	var code int
	err := p.timeout.Execute(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.Address, nil)
		if err != nil {
			return err
		}
		if p.userAgent != "" {
			req.Header.Set("User-Agent", p.userAgent)
		}

		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		_ = resp.Body.Close()
		code = resp.StatusCode
		return nil
	})
	latency := time.Since(start)

	if err != nil {
		return Down(entry, 0, describeProbeError(err), latency)
	}
	if code == p.healthyStatus {
		return Up(entry, code, latency)
	}
	return Down(entry, code, "", latency)
}

func describeProbeError(err error) string {
	var timeout *resilience.TimeoutError
	switch {
	case errors.As(err, &timeout):
		return fmt.Sprintf("request timed out after %s", timeout.After)
	case errors.Is(err, context.Canceled):
		return "probe cancelled"
	default:
		return err.Error()
	}
}
