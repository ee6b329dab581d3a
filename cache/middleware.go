package cache

import "context"

// LoadFunc produces the value for a key on a cache miss.
type LoadFunc func(ctx context.Context) ([]byte, error)

// ReadThrough serves values from a Cache and fills it on miss.
type ReadThrough struct {
	cache  Cache
	policy Policy
}

// NewReadThrough creates a read-through cache. A nil cache or a policy with
// caching disabled makes every call go straight to the loader.
func NewReadThrough(c Cache, policy Policy) *ReadThrough {
	return &ReadThrough{cache: c, policy: policy}
}

// Enabled reports whether values are actually cached.
func (r *ReadThrough) Enabled() bool {
	return r != nil && r.cache != nil && r.policy.ShouldCache()
}

// Get returns the cached value for key or calls load and caches its result.
// The boolean reports a cache hit. Errors are never cached.
func (r *ReadThrough) Get(ctx context.Context, key string, load LoadFunc) ([]byte, bool, error) {
	if !r.Enabled() {
		v, err := load(ctx)
		return v, false, err
	}

	if cached, ok := r.cache.Get(ctx, key); ok {
		return cached, true, nil
	}

	v, err := load(ctx)
	if err != nil {
		return v, false, err
	}

	_ = r.cache.Set(ctx, key, v, r.policy.EffectiveTTL(0))
	return v, false, nil
}

// Delete drops key from the underlying cache. It is a no-op when caching is
// disabled.
func (r *ReadThrough) Delete(ctx context.Context, key string) error {
	if !r.Enabled() {
		return nil
	}
	return r.cache.Delete(ctx, key)
}
