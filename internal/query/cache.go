package query

import (
	"sync"
	"time"
)

type cacheEntry struct {
	value      interface{}
	expiration time.Time
}

// Cache is a size-bounded in-memory TTL cache for ask results.
type Cache struct {
	mu         sync.RWMutex
	items      map[string]*cacheEntry
	maxSize    int
	defaultTTL time.Duration
}

// NewCache creates a cache holding at most maxSize entries, each expiring
// after defaultTTL. A background goroutine sweeps out expired entries.
func NewCache(maxSize int, defaultTTL time.Duration) *Cache {
	cache := &Cache{
		items:      make(map[string]*cacheEntry),
		maxSize:    maxSize,
		defaultTTL: defaultTTL,
	}
	go cache.sweep()
	return cache
}

// Get returns the value stored under key, or nil if the key is absent or
// its entry has expired.
func (c *Cache) Get(key string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.items[key]
	if !ok || time.Now().After(entry.expiration) {
		return nil
	}
	return entry.value
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores value under key with an explicit TTL, evicting the
// entry closest to expiry when the cache is full.
func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) >= c.maxSize {
		c.evictOldest()
	}

	c.items[key] = &cacheEntry{
		value:      value,
		expiration: time.Now().Add(ttl),
	}
}

// Delete removes the entry stored under key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*cacheEntry)
}

// Len returns the number of unexpired entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	now := time.Now()
	for _, entry := range c.items {
		if !now.After(entry.expiration) {
			n++
		}
	}
	return n
}

// evictOldest drops the entry with the nearest expiration. Caller holds the
// write lock.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.items {
		if oldestKey == "" || entry.expiration.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.expiration
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}

func (c *Cache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		now := time.Now()
		for key, entry := range c.items {
			if now.After(entry.expiration) {
				delete(c.items, key)
			}
		}
		c.mu.Unlock()
	}
}
