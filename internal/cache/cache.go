// Package cache holds generated benchmark text in memory so repeated lookups for
// the same project description do not call the text-generation provider again.
package cache

import (
	"strings"
	"sync"
	"time"
)

// DefaultTTL is how long a benchmark stays valid after it is stored.
const DefaultTTL = 30 * time.Minute

type entry struct {
	text     string
	storedAt time.Time
}

// Cache is a TTL map keyed by normalized description. Entries expire lazily on
// read; there is no background sweep.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

// New creates an empty cache. A non-positive ttl selects DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// WithClock replaces the time source. Used by tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// NormalizeKey lowercases and trims a description.
func NormalizeKey(description string) string {
	return strings.ToLower(strings.TrimSpace(description))
}

// Get returns the text stored for description if it has not expired.
func (c *Cache) Get(description string) (string, bool) {
	key := NormalizeKey(description)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		return "", false
	}
	return e.text, true
}

// Put stores text for description, restarting its TTL.
func (c *Cache) Put(description, text string) {
	key := NormalizeKey(description)

	c.mu.Lock()
	c.entries[key] = entry{text: text, storedAt: c.now()}
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len returns the number of stored entries, including ones that have expired
// but not yet been read.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}
