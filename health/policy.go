package health

import "fmt"

// Policy selects how per-service results collapse into one Status.
// Policies are pure functions of the up/down classification and perform no I/O.
type Policy int

const (
	// PolicyThreeTier reports healthy when nothing is down, unhealthy when
	// everything is down, and degraded otherwise.
	PolicyThreeTier Policy = iota
	// PolicyBinary reports unhealthy when anything is down, else healthy.
	PolicyBinary
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyThreeTier:
		return "three-tier"
	case PolicyBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// ParsePolicy parses a policy name. The empty string selects PolicyThreeTier.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "three-tier", "":
		return PolicyThreeTier, nil
	case "binary":
		return PolicyBinary, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// MarshalText encodes the policy as its name.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a policy name.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Classify returns the system status for down failures out of total services.
func (p Policy) Classify(down, total int) Status {
	if down <= 0 {
		return StatusHealthy
	}
	switch p {
	case PolicyBinary:
		return StatusUnhealthy
	default:
		if down >= total {
			return StatusUnhealthy
		}
		return StatusDegraded
	}
}

// Evaluate returns the system status for a set of probe results.
func (p Policy) Evaluate(results []ProbeResult) Status {
	down := 0
	for _, r := range results {
		if !r.IsUp() {
			down++
		}
	}
	return p.Classify(down, len(results))
}
