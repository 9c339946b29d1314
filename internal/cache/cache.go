// Package cache is a TTL key-value store used by the scan orchestrator to
// bound marketplace API call volume.
package cache

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Key identifies one scan query. Semantically identical queries must land
// on the same slot no matter how the caller built the key, so lookups go
// through a single canonical string form.
type Key struct {
	Game      string
	Mode      string
	PriceFrom float64
	PriceTo   float64
}

// Normalize renders the key into its canonical string form. Zero PriceTo
// means "no upper bound" and is rendered as inf so that (g, m, 0, 0) and
// an explicitly unbounded query collide.
func (k Key) Normalize() string {
	to := k.PriceTo
	if to == 0 {
		to = math.Inf(1)
	}
	return fmt.Sprintf("%s|%s|%g|%g", k.Game, k.Mode, k.PriceFrom, to)
}

// LevelKey builds the canonical key for a per-level scan.
func LevelKey(game, level string) string {
	return fmt.Sprintf("scan_level_%s_%s", game, level)
}

type entry struct {
	value    any
	storedAt time.Time
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Size   int
	TTL    time.Duration
	Hits   int64
	Misses int64
}

// TTLCache stores values for a fixed duration and evicts oldest-inserted
// entries past MaxSize. Expired entries are treated as absent and evicted
// lazily on the next access.
type TTLCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	items   map[string]entry
	order   []string // insertion order, for FIFO eviction

	hits   int64
	misses int64

	now func() time.Time // test seam
}

func New(ttl time.Duration, maxSize int) *TTLCache {
	return &TTLCache{
		ttl:     ttl,
		maxSize: maxSize,
		items:   make(map[string]entry, 64),
		now:     time.Now,
	}
}

// Get returns the value stored under key, or ok=false when the key is
// absent or its entry has outlived the TTL. An expired hit counts as a miss.
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.items, key)
		c.dropFromOrder(key)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

// Set stores value under key, overwriting any previous entry and resetting
// its timestamp.
func (c *TTLCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; exists {
		c.dropFromOrder(key)
	}
	c.items[key] = entry{value: value, storedAt: c.now()}
	c.order = append(c.order, key)

	for c.maxSize > 0 && len(c.items) > c.maxSize {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}
}

// Clear drops every entry but keeps the hit/miss counters.
func (c *TTLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]entry, 64)
	c.order = nil
}

// Statistics returns current size, TTL and counters.
func (c *TTLCache) Statistics() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:   len(c.items),
		TTL:    c.ttl,
		Hits:   c.hits,
		Misses: c.misses,
	}
}

func (c *TTLCache) dropFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
