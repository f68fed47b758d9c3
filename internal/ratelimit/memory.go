package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count       int64
	windowStart time.Time
}

// MemoryLimiter counts requests in process. Its results are always degraded:
// counts are lost on restart and are not shared between instances.
type MemoryLimiter struct {
	mu        sync.Mutex
	entries   map[string]*memoryEntry
	window    time.Duration
	max       int64
	now       func() time.Time
	lastSweep time.Time
}

// NewMemoryLimiter creates an in-process limiter.
func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	cfg = cfg.withDefaults()
	return &MemoryLimiter{
		entries: make(map[string]*memoryEntry),
		window:  cfg.Window,
		max:     cfg.MaxRequests,
		now:     time.Now,
	}
}

// SetClock replaces the time source.
func (m *MemoryLimiter) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Check records a request for key. A new window starts when none exists or
// the previous one has elapsed; within a window, requests beyond the
// threshold are denied without being counted.
func (m *MemoryLimiter) Check(_ context.Context, key string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	allowed := true
	e, ok := m.entries[key]
	switch {
	case !ok || now.Sub(e.windowStart) > m.window:
		m.entries[key] = &memoryEntry{count: 1, windowStart: now}
	case e.count >= m.max:
		allowed = false
	default:
		e.count++
	}

	return Result{Allowed: allowed, Source: SourceFallback, Degraded: true}
}

// Ping reports ErrNoPrimary.
func (m *MemoryLimiter) Ping(context.Context) error {
	return ErrNoPrimary
}

// sweep drops expired windows at most once per window. Caller holds mu.
func (m *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.window {
		return
	}
	for k, e := range m.entries {
		if now.Sub(e.windowStart) > m.window {
			delete(m.entries, k)
		}
	}
	m.lastSweep = now
}

// Len returns the number of tracked keys.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
