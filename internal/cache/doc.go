// Package cache provides a small thread-safe LRU cache with a soft limit.
//
// It memoizes specialized shader sources and compiled SPIR-V, which every
// manager on the same capabilities would otherwise regenerate:
//
//	c := cache.New[key, string](64)
//	src, err := c.GetOrCreate(k, func() (string, error) { return build(k) })
//
// Failed creations are not cached.
package cache
