package kvfs

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// mimeCache remembers sniffed mimetypes so repeated GetMimetype calls on an
// unchanged file skip detection. Entries are keyed by path and only valid for
// the content revision they were computed from. Eviction drops the least
// recently used entry once the size limit is reached.
type mimeCache struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries map[string]*cacheEntry
	maxSize int
	hits    uint64
	misses  uint64
	enabled bool
}

type cacheEntry struct {
	rev      uint64
	mimetype string
	lastUsed time.Time
}

// newMimeCache creates a cache holding up to maxSize entries.
// A maxSize of 0 or negative disables the cache.
func newMimeCache(maxSize int, clk clock.Clock) *mimeCache {
	return &mimeCache{
		clock:   clk,
		entries: make(map[string]*cacheEntry),
		maxSize: maxSize,
		enabled: maxSize > 0,
	}
}

// Get returns the cached mimetype for path at revision rev.
func (c *mimeCache) Get(path string, rev uint64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return "", false
	}

	entry, ok := c.entries[path]
	if !ok || entry.rev != rev {
		c.misses++
		return "", false
	}

	entry.lastUsed = c.clock.Now()
	c.hits++
	return entry.mimetype, true
}

// Put records the mimetype of path at revision rev.
func (c *mimeCache) Put(path string, rev uint64, mimetype string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}

	if _, ok := c.entries[path]; !ok && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[path] = &cacheEntry{
		rev:      rev,
		mimetype: mimetype,
		lastUsed: c.clock.Now(),
	}
}

// Invalidate removes path from the cache.
func (c *mimeCache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// Flush removes all entries from the cache.
func (c *mimeCache) Flush() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
}

// Stats returns cache statistics.
func (c *mimeCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Size:    len(c.entries),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
		Enabled: c.enabled,
	}
}

// CacheStats contains statistics about cache performance.
type CacheStats struct {
	Size    int    // Current number of cached entries
	MaxSize int    // Maximum cache size
	Hits    uint64 // Number of cache hits
	Misses  uint64 // Number of cache misses
	Enabled bool   // Whether the cache is enabled
}

// HitRate returns the cache hit rate as a percentage.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// evictOldest removes the least recently used entry.
// Must be called with c.mu locked.
func (c *mimeCache) evictOldest() {
	var oldest string
	var oldestTime time.Time
	first := true

	for path, entry := range c.entries {
		if first || entry.lastUsed.Before(oldestTime) {
			oldest = path
			oldestTime = entry.lastUsed
			first = false
		}
	}

	if !first {
		delete(c.entries, oldest)
	}
}

// Enable sets the maximum size; 0 or negative disables and empties the cache.
func (c *mimeCache) Enable(maxSize int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.maxSize = maxSize
	c.enabled = maxSize > 0
	if !c.enabled {
		c.entries = make(map[string]*cacheEntry)
		return
	}
	for len(c.entries) > c.maxSize {
		c.evictOldest()
	}
}
