// Package memo holds computed metric values until the underlying log changes.
//
// A Cache never expires entries on its own. Whoever owns the data calls
// InvalidateAll synchronously on every mutation; everything else reads through
// Get so that a value is computed at most once between two invalidations.
package memo

import (
	"sync/atomic"

	gocache "github.com/patrickmn/go-cache"
)

// Observer receives cache events, typically to export them as metrics.
type Observer interface {
	CacheHit(key string)
	CacheMiss(key string)
	CacheInvalidated(entries int)
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Entries       int    `json:"entries"`
	Hits          uint64 `json:"hits"`
	Misses        uint64 `json:"misses"`
	Invalidations uint64 `json:"invalidations"`
}

// Cache maps metric keys to computed values.
//
// Lookups are safe for concurrent use, but compute functions are not
// deduplicated across goroutines: callers that need strict at-most-once
// computation under concurrency must serialize access themselves.
type Cache struct {
	items    *gocache.Cache
	observer Observer

	hits          atomic.Uint64
	misses        atomic.Uint64
	invalidations atomic.Uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithObserver reports hits, misses and invalidations to o.
func WithObserver(o Observer) Option {
	return func(c *Cache) { c.observer = o }
}

// New returns an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{items: gocache.New(gocache.NoExpiration, 0)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value cached under key, computing and storing it first if
// absent.
func (c *Cache) Get(key string, compute func() any) any {
	if v, ok := c.items.Get(key); ok {
		c.hits.Add(1)
		if c.observer != nil {
			c.observer.CacheHit(key)
		}
		return v
	}

	c.misses.Add(1)
	if c.observer != nil {
		c.observer.CacheMiss(key)
	}
	v := compute()
	c.items.Set(key, v, gocache.NoExpiration)
	return v
}

// InvalidateAll drops every cached value.
func (c *Cache) InvalidateAll() {
	n := c.items.ItemCount()
	c.items.Flush()
	c.invalidations.Add(1)
	if c.observer != nil {
		c.observer.CacheInvalidated(n)
	}
}

// Stats reports current counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Entries:       c.items.ItemCount(),
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Invalidations: c.invalidations.Load(),
	}
}

// Load is the typed form of Cache.Get.
func Load[T any](c *Cache, key string, compute func() T) T {
	v := c.Get(key, func() any { return compute() })
	return v.(T)
}
