package price

import (
	"sync"
	"time"
)

// DefaultFreshnessWindow is how long a cached price counts as fresh.
const DefaultFreshnessWindow = 5 * time.Minute

// CacheEntry is the last successfully fetched price for a key.
type CacheEntry struct {
	Price     float64
	FetchedAt time.Time
}

// Cache maps a symbol (native asset or token address) to its last known price.
// Entries are overwritten on every successful fetch and never evicted;
// staleness is judged when reading.
type Cache struct {
	data   map[string]CacheEntry
	mutex  sync.RWMutex
	window time.Duration
	now    func() time.Time
}

// NewCache creates a cache with the given freshness window.
func NewCache(window time.Duration) *Cache {
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	return &Cache{
		data:   make(map[string]CacheEntry),
		window: window,
		now:    time.Now,
	}
}

// Get returns the entry for key regardless of its age.
func (c *Cache) Get(key string) (CacheEntry, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, ok := c.data[normalizeKey(key)]
	return entry, ok
}

// GetFresh returns the entry for key only if it is within the freshness window.
func (c *Cache) GetFresh(key string) (CacheEntry, bool) {
	entry, ok := c.Get(key)
	if !ok || c.now().Sub(entry.FetchedAt) >= c.window {
		return CacheEntry{}, false
	}
	return entry, true
}

// Set overwrites the entry for key with price, stamped with the current time.
func (c *Cache) Set(key string, price float64) CacheEntry {
	entry := CacheEntry{Price: price, FetchedAt: c.now()}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[normalizeKey(key)] = entry
	return entry
}

// Size returns the number of entries in the cache
func (c *Cache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.data)
}
