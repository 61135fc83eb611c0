// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package cache

import (
	"container/list"
	"sync"
	"time"
)

// entry is a cached item with expiration. It is the value stored in the
// recency list.
type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// Cache provides a thread-safe in-memory cache with TTL support and a
// bounded number of entries. When the bound is reached the least recently
// used entry is evicted.
type Cache[V any] struct {
	mu       sync.Mutex
	items    map[string]*list.Element
	order    *list.List // front is most recently used
	ttl      time.Duration
	capacity int
	stats    Stats

	stop     chan struct{}
	stopOnce sync.Once
}

// Stats tracks cache performance metrics
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// New creates a cache whose entries live for ttl. capacity <= 0 means
// unbounded. A background goroutine removes expired entries every
// cleanupInterval until Close is called.
//
// Example:
//
//	c := cache.New[string](5*time.Minute, 1000)
//	defer c.Close()
//	c.Set("key", "value")
//	if v, ok := c.Get("key"); ok {
//	    // use v
//	}
func New[V any](ttl time.Duration, capacity int) *Cache[V] {
	return newCache[V](ttl, capacity, 5*time.Minute)
}

func newCache[V any](ttl time.Duration, capacity int, cleanupInterval time.Duration) *Cache[V] {
	c := &Cache[V]{
		items:    make(map[string]*list.Element),
		order:    list.New(),
		ttl:      ttl,
		capacity: capacity,
		stats:    Stats{LastCleanup: time.Now()},
		stop:     make(chan struct{}),
	}
	go c.cleanupLoop(cleanupInterval)
	return c
}

// Get retrieves a value. Expired entries are removed and count as misses.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return zero, false
	}

	e := el.Value.(*entry[V])
	if time.Now().After(e.expiresAt) {
		c.removeElement(el)
		c.stats.Misses++
		c.stats.Evictions++
		return zero, false
	}

	c.order.MoveToFront(el)
	c.stats.Hits++
	return e.value, true
}

// Set stores a value with the default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with a custom TTL
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(ttl)
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return
	}

	if c.capacity > 0 && c.order.Len() >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.removeElement(oldest)
			c.stats.Evictions++
		}
	}

	c.items[key] = c.order.PushFront(&entry[V]{key: key, value: value, expiresAt: expiresAt})
	c.stats.TotalKeys = int64(len(c.items))
}

// Delete removes a specific cache entry by key. Missing keys are ignored.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
		c.stats.Evictions++
	}
}

// Clear removes all entries from the cache.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Evictions += int64(len(c.items))
	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.stats.TotalKeys = 0
}

// Len returns the number of entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// GetStats returns a snapshot of current cache statistics.
func (c *Cache[V]) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// HitRate returns the cache hit rate as a percentage
func (c *Cache[V]) HitRate() float64 {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

// Close stops the cleanup goroutine. The cache stays usable.
func (c *Cache[V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache[V]) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

// cleanup removes all expired entries
func (c *Cache[V]) cleanup() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*entry[V]).expiresAt) {
			c.removeElement(el)
			c.stats.Evictions++
		}
		el = prev
	}
	c.stats.LastCleanup = now
}

// removeElement must be called with mu held.
func (c *Cache[V]) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry[V]).key)
	c.stats.TotalKeys = int64(len(c.items))
}
