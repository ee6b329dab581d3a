package health

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/healthagg/registry"
)

// Status is the aggregated health of the whole system.
type Status int

const (
	// StatusHealthy indicates every service is up.
	StatusHealthy Status = iota
	// StatusDegraded indicates some, but not all, services are down.
	StatusDegraded
	// StatusUnhealthy indicates the policy considers the system failed.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status as its string form.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status string.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "healthy":
		*s = StatusHealthy
	case "degraded":
		*s = StatusDegraded
	case "unhealthy":
		*s = StatusUnhealthy
	default:
		return fmt.Errorf("health: unknown status %q", text)
	}
	return nil
}

// ProbeStatus classifies one service.
type ProbeStatus string

const (
	// ProbeUp means the service answered with the healthy status code.
	ProbeUp ProbeStatus = "up"
	// ProbeDown means the service answered with another code or not at all.
	ProbeDown ProbeStatus = "down"
)

// ProbeResult is the outcome of probing one service. It is never mutated
// after creation.
type ProbeResult struct {
	// Service is the registry name of the probed service.
	Service string `json:"service"`

	// Address is the probed endpoint.
	Address string `json:"address"`

	// Status is up or down.
	Status ProbeStatus `json:"status"`

	// HTTPStatus is the response status code, or zero when no response
	// headers were received.
	HTTPStatus int `json:"http_status,omitempty"`

	// LatencyMS is the wall-clock time from probe start to outcome.
	LatencyMS int64 `json:"latency_ms"`

	// Error describes why the request did not complete. Empty when a
	// response was received, including non-healthy status codes.
	Error string `json:"error,omitempty"`

	// CheckedAt is when the outcome was finalized, in UTC.
	CheckedAt time.Time `json:"checked_at"`
}

// Up creates a result for a service that answered with the healthy code.
func Up(e registry.Entry, httpStatus int, latency time.Duration) ProbeResult {
	return ProbeResult{
		Service:    e.Name,
		Address:    e.Address,
		Status:     ProbeUp,
		HTTPStatus: httpStatus,
		LatencyMS:  latency.Milliseconds(),
		CheckedAt:  time.Now().UTC(),
	}
}

// Down creates a result for a service that answered with httpStatus, or, when
// httpStatus is zero, failed before answering for the reason in errText.
func Down(e registry.Entry, httpStatus int, errText string, latency time.Duration) ProbeResult {
	return ProbeResult{
		Service:    e.Name,
		Address:    e.Address,
		Status:     ProbeDown,
		HTTPStatus: httpStatus,
		Error:      errText,
		LatencyMS:  latency.Milliseconds(),
		CheckedAt:  time.Now().UTC(),
	}
}

// IsUp reports whether the service was classified up.
func (r ProbeResult) IsUp() bool {
	return r.Status == ProbeUp
}

// HasHTTPStatus reports whether response headers were received.
func (r ProbeResult) HasHTTPStatus() bool {
	return r.HTTPStatus != 0
}

// Latency returns LatencyMS as a duration.
func (r ProbeResult) Latency() time.Duration {
	return time.Duration(r.LatencyMS) * time.Millisecond
}

// Err returns the failure description as an error, or nil.
func (r ProbeResult) Err() error {
	if r.Error == "" {
		return nil
	}
	return errors.New(r.Error)
}

// Report is the aggregated outcome of one health check. Reports may be shared
// between concurrent callers and must be treated as read-only.
type Report struct {
	// CheckID identifies the aggregation round in logs and traces.
	CheckID string `json:"check_id"`

	// SystemStatus is the policy's verdict over all results.
	SystemStatus Status `json:"system_status"`

	// Policy names the policy that produced SystemStatus.
	Policy Policy `json:"policy"`

	// ServiceCount is the number of services probed.
	ServiceCount int `json:"service_count"`

	// Results holds one entry per service, in registry order.
	Results []ProbeResult `json:"results"`

	// CheckedAt is when aggregation finished, in UTC.
	CheckedAt time.Time `json:"checked_at"`
}

// Down returns the number of services classified down.
func (r *Report) Down() int {
	n := 0
	for _, res := range r.Results {
		if !res.IsUp() {
			n++
		}
	}
	return n
}
