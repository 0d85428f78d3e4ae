// Package mcache implements the process-local, TTL-based resolution cache
// keyed by a moniker's full URI form.
package mcache

import (
	"sync"
	"time"

	"github.com/open-moniker/moniker-client/pkg/mmodel"
)

type entry struct {
	binding    mmodel.ResolvedSource
	insertedAt time.Time
}

// Cache is a concurrency-safe, unbounded map from moniker URI to its last
// resolved binding. A TTL of zero disables caching entirely: Get always
// misses and Put is a no-op.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// New builds a Cache with the given TTL.
func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the live binding for uri, if any.
func (c *Cache) Get(uri string) (mmodel.ResolvedSource, bool) {
	if c.ttl <= 0 {
		return mmodel.ResolvedSource{}, false
	}

	c.mu.RLock()
	e, ok := c.entries[uri]
	c.mu.RUnlock()

	if !ok {
		return mmodel.ResolvedSource{}, false
	}

	if c.now().Sub(e.insertedAt) >= c.ttl {
		return mmodel.ResolvedSource{}, false
	}

	return e.binding, true
}

// Put writes binding into the cache under uri with the current monotonic
// time. It is a no-op when the cache's TTL is zero.
func (c *Cache) Put(uri string, binding mmodel.ResolvedSource) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	c.entries[uri] = entry{binding: binding, insertedAt: c.now()}
	c.mu.Unlock()
}

// Flush removes every entry from the cache.
func (c *Cache) Flush() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len reports the number of entries currently held, live or expired.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
