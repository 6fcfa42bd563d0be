// Package cache provides TTL caching for expensive read queries such as
// dashboard aggregation.
//
// It provides a Cache interface with in-memory and Redis implementations,
// SHA-256-based key derivation scoped by caller, TTL policies, and a
// generic Loader that collapses concurrent misses.
//
//	loader := cache.NewLoader[Stats](cache.NewMemoryCache(policy), policy)
//	key, _ := cache.NewDefaultKeyer().Key("dashboard", area, nil)
//	stats, hit, err := loader.Get(ctx, key, compute)
package cache
