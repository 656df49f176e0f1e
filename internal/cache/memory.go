package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"pagesentry/internal/common"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCache is the in-process Cache implementation. There is no size bound
// or LRU policy: entries are small and keyed by (source, URL), so TTL expiry
// is the only eviction.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	now   func() time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		items: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, source common.SourceID, key string) ([]byte, bool) {
	k := entryKey(source, key)

	c.mu.RLock()
	item, ok := c.items[k]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if !c.now().Before(item.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a Set may have raced the eviction.
		if cur, ok := c.items[k]; ok && !c.now().Before(cur.expiresAt) {
			delete(c.items, k)
		}
		c.mu.Unlock()
		return nil, false
	}
	return item.data, true
}

func (c *MemoryCache) Set(_ context.Context, source common.SourceID, key string, data []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.items[entryKey(source, key)] = memoryEntry{data: data, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

func (c *MemoryCache) Clear(_ context.Context, sources ...common.SourceID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(sources) == 0 {
		c.items = make(map[string]memoryEntry)
		return
	}
	for _, src := range sources {
		prefix := string(src) + "\x00"
		for k := range c.items {
			if strings.HasPrefix(k, prefix) {
				delete(c.items, k)
			}
		}
	}
}

// Size returns the number of live and not-yet-evicted entries.
func (c *MemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
