package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// LoadFunc computes a value on a cache miss.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Loader serves JSON-encodable values through a Cache, collapsing
// concurrent misses for the same key into a single load.
type Loader[T any] struct {
	cache  Cache
	policy Policy
	group  singleflight.Group
}

// NewLoader creates a loader. A nil cache disables caching.
func NewLoader[T any](cache Cache, policy Policy) *Loader[T] {
	return &Loader[T]{cache: cache, policy: policy}
}

// Get returns the cached value for key, or runs load and caches its result.
// The second return value reports whether the value came from the cache.
// Errors are never cached, and a cache entry that fails to decode is
// treated as a miss.
func (l *Loader[T]) Get(ctx context.Context, key string, load LoadFunc[T]) (T, bool, error) {
	if l.cache == nil || !l.policy.ShouldCache() {
		v, err := load(ctx)
		return v, false, err
	}

	if raw, ok := l.cache.Get(ctx, key); ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, true, nil
		}
	}

	res, err, _ := l.group.Do(key, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		if raw, err := json.Marshal(v); err == nil {
			_ = l.cache.Set(ctx, key, raw, l.policy.EffectiveTTL(0))
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}

	v, ok := res.(T)
	if !ok {
		var zero T
		return zero, false, fmt.Errorf("cache: unexpected loader result %T", res)
	}
	return v, false, nil
}

// Invalidate removes key from the underlying cache.
func (l *Loader[T]) Invalidate(ctx context.Context, key string) error {
	if l.cache == nil {
		return ErrNilCache
	}
	return l.cache.Delete(ctx, key)
}
