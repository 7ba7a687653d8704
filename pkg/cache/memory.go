package cache

import (
	"context"
	"path"
	"sync"
	"time"
)

// MemoryCache is a concurrency-safe in-process cache with TTL expiry.
// It is the default cache for CLI usage and single-process servers.
//
// Expired entries are dropped lazily on Get and swept opportunistically
// on Set, so memory use tracks the working set rather than the history.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

// Get retrieves a value from the cache.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if entry.expired(time.Now()) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return entry.data, true, nil
}

// Set stores a value. A copy of data is kept, so callers may reuse their
// buffer after Set returns.
func (c *MemoryCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	entry := memoryEntry{data: append([]byte(nil), data...)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	now := time.Now()
	c.mu.Lock()
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}

// Delete removes a value from the cache.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Clear removes entries whose keys match the glob pattern. An empty
// pattern removes everything. Returns the number of entries removed.
func (c *MemoryCache) Clear(ctx context.Context, pattern string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pattern == "" {
		n := len(c.entries)
		c.entries = make(map[string]memoryEntry)
		return n, nil
	}

	n := 0
	for key := range c.entries {
		ok, err := path.Match(pattern, key)
		if err != nil {
			return n, err
		}
		if ok {
			delete(c.entries, key)
			n++
		}
	}
	return n, nil
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := time.Now()
	n := 0
	for _, e := range c.entries {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

// Close does nothing for the in-memory cache.
func (c *MemoryCache) Close() error { return nil }

// Ensure MemoryCache implements Cache.
var _ Cache = (*MemoryCache)(nil)
