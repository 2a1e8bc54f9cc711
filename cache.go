package compositefs

import (
	"sync"
	"time"
)

// instanceCache keeps filesystems built by a Factory, keyed by config fingerprint
type instanceCache struct {
	entries    map[string]*instanceEntry
	mu         sync.RWMutex
	ttl        time.Duration
	maxEntries int
	enabled    bool
	hits       int
	misses     int
}

// instanceEntry stores a cached filesystem
type instanceEntry struct {
	fs      Filesystem
	created time.Time
	expires time.Time
}

// newInstanceCache creates a cache. A zero ttl never expires entries and a
// zero maxEntries never evicts.
func newInstanceCache(enabled bool, ttl time.Duration, maxEntries int) *instanceCache {
	if !enabled {
		return &instanceCache{enabled: false}
	}

	return &instanceCache{
		entries:    make(map[string]*instanceEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		enabled:    true,
	}
}

// get retrieves a cached instance if available and not expired
func (c *instanceCache) get(key string) (Filesystem, bool) {
	if !c.enabled {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || c.expired(entry, time.Now()) {
		c.misses++
		return nil, false
	}
	c.hits++
	return entry.fs, true
}

func (c *instanceCache) expired(entry *instanceEntry, now time.Time) bool {
	return c.ttl > 0 && now.After(entry.expires)
}

// put stores an instance in the cache
func (c *instanceCache) put(key string, fsys Filesystem) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if _, ok := c.entries[key]; !ok && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldest(now)
	}

	c.entries[key] = &instanceEntry{
		fs:      fsys,
		created: now,
		expires: now.Add(c.ttl),
	}
}

// clear removes all cached instances
func (c *instanceCache) clear() {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*instanceEntry)
}

// evictOldest drops expired entries, or the oldest one when none has expired
func (c *instanceCache) evictOldest(now time.Time) {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.entries {
		if c.expired(entry, now) {
			delete(c.entries, key)
			continue
		}
		if oldestKey == "" || entry.created.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.created
		}
	}

	if len(c.entries) >= c.maxEntries && oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Stats returns cache statistics
func (c *instanceCache) Stats() CacheStats {
	if !c.enabled {
		return CacheStats{Enabled: false}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return CacheStats{
		Enabled:    true,
		Size:       len(c.entries),
		MaxEntries: c.maxEntries,
		TTL:        c.ttl,
		Hits:       c.hits,
		Misses:     c.misses,
	}
}

// CacheStats contains instance cache statistics
type CacheStats struct {
	Enabled    bool
	Size       int
	MaxEntries int
	TTL        time.Duration
	Hits       int
	Misses     int
}
