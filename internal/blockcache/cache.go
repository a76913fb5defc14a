// Package blockcache implements an LRU block cache with pin and dirty
// semantics for the storage engine's hot data path.
package blockcache

import (
	"container/list"
	"sync"
)

// Config tunes a Cache's capacity and eviction behavior.
type Config struct {
	MaxMemoryBytes    uint64
	MaxEntries        int
	EvictionBatchSize int
	WriteThrough      bool
}

// DefaultConfig returns sensible block cache defaults.
func DefaultConfig() Config {
	return Config{
		MaxMemoryBytes:    256 << 20,
		MaxEntries:        65536,
		EvictionBatchSize: 16,
		WriteThrough:      true,
	}
}

// Entry is one cached block.
type Entry struct {
	Key         string
	Data        []byte
	Pinned      bool
	Dirty       bool
	LastAccess  int64
	AccessCount uint64
}

// Stats records cumulative cache counters.
type Stats struct {
	Hits            uint64
	Misses          uint64
	Insertions      uint64
	Evictions       uint64
	DirtyWritebacks uint64
}

// HitRate returns hits / (hits + misses), 0 when there have been no
// accesses.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type cacheEntry struct {
	Entry
	elem *list.Element
}

// Cache is an LRU cache with pin/dirty semantics: insertion evicts the
// least-recently-used unpinned entry until the configured memory and
// entry-count budgets are satisfied; pinned entries are never
// evicted.
type Cache struct {
	mu  sync.Mutex
	cfg Config

	entries map[string]*cacheEntry
	order   *list.List // front = MRU, back = LRU

	currentMemory uint64
	stats         Stats
	clock         int64
}

// New creates an empty cache.
func New(cfg Config) *Cache {
	return &Cache{
		cfg:     cfg,
		entries: make(map[string]*cacheEntry),
		order:   list.New(),
	}
}

// tick advances and returns the cache's logical clock, used for
// last-access ordering without depending on wall time.
func (c *Cache) tick() int64 {
	c.clock++
	return c.clock
}

// Get returns the cached data for key and promotes it to MRU,
// recording a hit or miss.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ce, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	c.stats.Hits++
	ce.LastAccess = c.tick()
	ce.AccessCount++
	c.order.MoveToFront(ce.elem)
	return ce.Data, true
}

// Insert adds or replaces a clean entry, evicting as needed.
func (c *Cache) Insert(key string, data []byte) {
	c.insert(key, data, false)
}

// InsertDirty adds or replaces a dirty (awaiting-writeback) entry,
// evicting as needed.
func (c *Cache) InsertDirty(key string, data []byte) {
	c.insert(key, data, true)
}

func (c *Cache) insert(key string, data []byte, dirty bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	needed := uint64(len(data))

	if existing, ok := c.entries[key]; ok {
		// Replacement preserves the slot's pin state but refreshes its
		// MRU position and memory accounting.
		c.currentMemory -= uint64(len(existing.Data))
		existing.Data = data
		existing.Dirty = existing.Dirty || dirty
		existing.LastAccess = c.tick()
		existing.AccessCount++
		c.order.MoveToFront(existing.elem)
		c.currentMemory += needed
		c.stats.Insertions++
		c.evictUntilWithinBudget()
		return
	}

	c.evictToMakeRoom(needed)

	ce := &cacheEntry{Entry: Entry{
		Key:         key,
		Data:        data,
		Dirty:       dirty,
		LastAccess:  c.tick(),
		AccessCount: 1,
	}}
	ce.elem = c.order.PushFront(ce)
	c.entries[key] = ce
	c.currentMemory += needed
	c.stats.Insertions++

	c.evictUntilWithinBudget()
}

// evictToMakeRoom evicts LRU unpinned entries until there's room for
// an additional `needed` bytes within the memory budget, or until no
// unpinned entries remain.
func (c *Cache) evictToMakeRoom(needed uint64) {
	for c.currentMemory+needed > c.cfg.MaxMemoryBytes || len(c.entries) >= c.cfg.MaxEntries {
		if !c.evictOneLRUUnpinned() {
			return
		}
	}
}

// evictUntilWithinBudget evicts entries after a replacement until the
// cache is back within its memory/entry budgets.
func (c *Cache) evictUntilWithinBudget() {
	batch := c.cfg.EvictionBatchSize
	if batch <= 0 {
		batch = 1
	}
	for i := 0; i < batch && (c.currentMemory > c.cfg.MaxMemoryBytes || len(c.entries) > c.cfg.MaxEntries); i++ {
		if !c.evictOneLRUUnpinned() {
			return
		}
	}
}

// evictOneLRUUnpinned evicts the least-recently-used unpinned entry,
// skipping pinned entries from the tail. Returns false if no unpinned
// entry was found.
func (c *Cache) evictOneLRUUnpinned() bool {
	for elem := c.order.Back(); elem != nil; elem = elem.Prev() {
		ce := elem.Value.(*cacheEntry)
		if ce.Pinned {
			continue
		}
		c.order.Remove(elem)
		delete(c.entries, ce.Key)
		c.currentMemory -= uint64(len(ce.Data))
		c.stats.Evictions++
		return true
	}
	return false
}

// Pin marks key as protected from eviction.
func (c *Cache) Pin(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ce, ok := c.entries[key]
	if !ok {
		return false
	}
	ce.Pinned = true
	return true
}

// Unpin clears key's eviction protection.
func (c *Cache) Unpin(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ce, ok := c.entries[key]
	if !ok {
		return false
	}
	ce.Pinned = false
	return true
}

// MarkClean clears the dirty bit on key and counts a writeback.
func (c *Cache) MarkClean(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ce, ok := c.entries[key]
	if !ok || !ce.Dirty {
		return false
	}
	ce.Dirty = false
	c.stats.DirtyWritebacks++
	return true
}

// DirtyEntries returns all entries currently awaiting writeback.
func (c *Cache) DirtyEntries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Entry
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		ce := elem.Value.(*cacheEntry)
		if ce.Dirty {
			out = append(out, ce.Entry)
		}
	}
	return out
}

// Stats returns a snapshot of cumulative cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Len returns the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
