package cache

import "time"

// Policy configures caching behavior.
type Policy struct {
	// TTL is how long a report stays valid. Zero disables caching.
	TTL time.Duration

	// MaxTTL caps TTL and override TTLs. Zero means no cap.
	MaxTTL time.Duration
}

// NoCachePolicy returns a policy that disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{}
}

// ShouldCache returns true if caching is enabled by this policy.
func (p Policy) ShouldCache() bool {
	return p.EffectiveTTL(0) > 0
}

// EffectiveTTL returns the TTL to use, applying the default and clamping.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.TTL
	}

	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}

	return ttl
}
