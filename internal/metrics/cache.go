package metrics

import (
	"sync"
	"time"
)

type cacheEntry struct {
	value     Result
	expiresAt time.Time
}

// resultCache holds the latest live result per startup for a fixed TTL.
type resultCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

func newResultCache(ttl time.Duration, now func() time.Time) *resultCache {
	return &resultCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

// get returns a copy of the cached result marked Cached. Expired entries are
// evicted.
func (c *resultCache) get(id string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok {
		return Result{}, false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, id)
		return Result{}, false
	}

	v := entry.value
	v.Cached = true
	return v, true
}

func (c *resultCache) set(id string, r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r.Cached = false
	c.entries[id] = cacheEntry{value: r, expiresAt: c.now().Add(c.ttl)}
}
