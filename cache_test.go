package compositefs

import (
	"testing"
	"time"
)

// TestCacheEviction tests eviction of the oldest entry when maxEntries is reached
func TestCacheEviction(t *testing.T) {
	cache := newInstanceCache(true, 5*time.Minute, 3)

	first := NewMemFS()
	cache.put("a", first)
	time.Sleep(10 * time.Millisecond)
	cache.put("b", NewMemFS())
	time.Sleep(10 * time.Millisecond)
	cache.put("c", NewMemFS())
	time.Sleep(10 * time.Millisecond)

	// This should evict "a"
	cache.put("d", NewMemFS())

	stats := cache.Stats()
	if stats.Size != 3 {
		t.Errorf("cache size %d, want 3", stats.Size)
	}
	if _, ok := cache.get("a"); ok {
		t.Error("oldest entry should be evicted")
	}
	for _, key := range []string{"b", "c", "d"} {
		if _, ok := cache.get(key); !ok {
			t.Errorf("%s should still be cached", key)
		}
	}

	// replacing an existing key never evicts
	cache.put("b", first)
	if got := cache.Stats().Size; got != 3 {
		t.Errorf("cache size after replace %d, want 3", got)
	}
	if fsys, _ := cache.get("b"); fsys != Filesystem(first) {
		t.Error("replaced entry not returned")
	}
}

// TestCacheExpiration tests that entries past their TTL are misses and evicted first
func TestCacheExpiration(t *testing.T) {
	cache := newInstanceCache(true, 20*time.Millisecond, 2)

	cache.put("old", NewMemFS())
	if _, ok := cache.get("old"); !ok {
		t.Fatal("fresh entry should be cached")
	}
	time.Sleep(40 * time.Millisecond)
	if _, ok := cache.get("old"); ok {
		t.Error("expired entry should not be returned")
	}

	cache.put("new", NewMemFS())
	cache.put("newer", NewMemFS())
	if _, ok := cache.get("new"); !ok {
		t.Error("an expired entry should be evicted before a live one")
	}

	stats := cache.Stats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("hits=%d misses=%d, want 2 and 1", stats.Hits, stats.Misses)
	}
}

// TestCacheZeroTTL tests that a zero TTL keeps entries until cleared
func TestCacheZeroTTL(t *testing.T) {
	cache := newInstanceCache(true, 0, 0)

	cache.put("k", NewMemFS())
	time.Sleep(time.Millisecond)

	if _, ok := cache.get("k"); !ok {
		t.Error("entry with zero TTL should not expire")
	}
}

// TestCacheClear tests clearing the cache
func TestCacheClear(t *testing.T) {
	cache := newInstanceCache(true, time.Minute, 10)
	cache.put("a", NewMemFS())
	cache.put("b", NewMemFS())

	cache.clear()

	if got := cache.Stats().Size; got != 0 {
		t.Errorf("cache should be empty, got %d", got)
	}
	if _, ok := cache.get("a"); ok {
		t.Error("cleared entry returned")
	}
}

// TestCacheDisabled tests operations with disabled cache
func TestCacheDisabled(t *testing.T) {
	cache := newInstanceCache(false, 0, 0)

	// All operations should be no-ops
	cache.put("k", NewMemFS())
	if _, ok := cache.get("k"); ok {
		t.Error("disabled cache should not return entries")
	}
	cache.clear()

	stats := cache.Stats()
	if stats.Enabled {
		t.Error("cache should report as disabled")
	}
	if stats.Hits != 0 || stats.Misses != 0 {
		t.Error("disabled cache should not count lookups")
	}
}
