// Package cache provides the process-wide, read-mostly TTL cache shared by
// the fundamentals, RVOL, VWAP and market-regime providers (§5, §6).
// Grounded on the reference bot's FundingRateCache (market/data.go), which
// keyed a single numeric value per symbol behind a last-updated timestamp;
// this generalizes that to an arbitrary value type with a per-entry TTL,
// behind one lock that guards the whole map.
package cache

import (
	"sync"
	"time"

	"catalystcore/clock"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a generic, goroutine-safe cache with per-entry expiry. A
// single RWMutex guards the map; callers that need to avoid duplicate
// concurrent fetches for the same key should pair it with SingleFlight-style
// coordination at the call site (the providers in this module take a
// fetch-then-Set approach, which is an acceptable race under §5 since a
// cache miss just costs one extra upstream call).
type TTLCache[V any] struct {
	mu    sync.RWMutex
	items map[string]entry[V]
	clk   clock.Clock
}

func New[V any](clk clock.Clock) *TTLCache[V] {
	if clk == nil {
		clk = clock.Real{}
	}
	return &TTLCache[V]{items: make(map[string]entry[V]), clk: clk}
}

// Get returns the cached value for key if present and not expired.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var zero V
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if c.clk.Now().After(e.expiresAt) {
		return zero, false
	}
	return e.value, true
}

// Set stores value for key with the given TTL.
func (c *TTLCache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry[V]{value: value, expiresAt: c.clk.Now().Add(ttl)}
}

// Invalidate drops key from the cache, if present.
func (c *TTLCache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Len reports the number of entries currently stored, including expired
// ones: Get does not evict, so an entry stays until Invalidate removes it.
func (c *TTLCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
