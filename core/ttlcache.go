package core

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TTLCache is a mutex-guarded map with optional per-entry expiry, a
// general-purpose holder for process-wide shared state outside the graph.
// RateClock below keeps its own limiter map and does not embed one.
type TTLCache struct {
	mu    sync.RWMutex
	store map[string]ttlEntry
}

type ttlEntry struct {
	value     interface{}
	expiresAt time.Time
}

// NewTTLCache creates an empty cache.
func NewTTLCache() *TTLCache {
	return &TTLCache{store: make(map[string]ttlEntry)}
}

// Get returns the stored value and whether it was present and unexpired.
func (c *TTLCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.store[key]
	if !ok {
		return nil, false
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

// Set stores value under key with an optional TTL (zero means no expiry).
func (c *TTLCache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := ttlEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	c.store[key] = entry
}

// Delete removes key unconditionally.
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
}

// Has reports presence without returning the value.
func (c *TTLCache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// RateClock implements RateWindow using one golang.org/x/time/rate.Limiter
// per key, refilling at the floor interval with burst 1. The limiter's
// initial free token is consumed at creation so even the first real Observe
// call waits out the floor, per spec §4.1.b. It backs the Model
// Dispatcher's process-wide rate-limit counter, which spec §5 requires to
// be guarded by a single mutex shared across concurrent dispatch calls.
type RateClock struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	floors   map[string]time.Duration
}

// NewRateClock creates an empty clock.
func NewRateClock() *RateClock {
	return &RateClock{
		limiters: make(map[string]*rate.Limiter),
		floors:   make(map[string]time.Duration),
	}
}

// Observe returns the wait duration the caller must sleep before it may use
// key, reserving the limiter's next token as a side effect.
func (r *RateClock) Observe(key string, floor, backoff time.Duration) time.Duration {
	now := time.Now()
	r.mu.Lock()
	lim, ok := r.limiters[key]
	if !ok || r.floors[key] != floor {
		interval := floor
		if interval <= 0 {
			interval = time.Nanosecond
		}
		lim = rate.NewLimiter(rate.Every(interval), 1)
		// Consume the limiter's initial free token immediately so the very
		// first real Observe call still waits out the floor, per spec
		// §4.1.b ("the first call also observes that floor when the
		// backoff is zero") rather than passing through on x/time/rate's
		// default full-burst start.
		lim.ReserveN(now, 1)
		r.limiters[key] = lim
		r.floors[key] = floor
	}
	r.mu.Unlock()

	reservation := lim.ReserveN(now, 1)
	if !reservation.OK() {
		return floor + backoff
	}
	wait := reservation.DelayFrom(now) + backoff
	if wait < 0 {
		wait = 0
	}
	return wait
}
