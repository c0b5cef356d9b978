// Package cache is a small in-process map whose entries expire. Signing
// keys fetched from an identity provider live here between refreshes.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value   V
	expires time.Time
}

// Cache maps string keys to values with a per-entry deadline.
type Cache[V any] struct {
	mu    sync.RWMutex
	items map[string]entry[V]
	now   func() time.Time
}

// New creates an empty cache.
func New[V any]() *Cache[V] {
	return &Cache[V]{items: map[string]entry[V]{}, now: time.Now}
}

// Get returns the value for key unless it is missing or expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	if !ok || !c.now().Before(e.expires) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for ttl.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry[V]{value: value, expires: c.now().Add(ttl)}
}

// Replace swaps the whole contents for values, all expiring after ttl.
// Keys absent from values are dropped, so a rotated-out key stops resolving.
func (c *Cache[V]) Replace(values map[string]V, ttl time.Duration) {
	expires := c.now().Add(ttl)
	items := make(map[string]entry[V], len(values))
	for k, v := range values {
		items[k] = entry[V]{value: v, expires: expires}
	}
	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
}

// Len counts live entries.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	n := 0
	for _, e := range c.items {
		if now.Before(e.expires) {
			n++
		}
	}
	return n
}
