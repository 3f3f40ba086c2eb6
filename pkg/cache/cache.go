// Package cache is a bounded, expiring in-memory store for completed chat
// results.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/pario-ai/parley/pkg/clock"
	"github.com/pario-ai/parley/pkg/models"
)

// Cache holds ChatResults keyed by prompt hash. Expired entries are removed
// lazily; at capacity the oldest-inserted entry is evicted (FIFO, not LRU).
type Cache struct {
	mu      sync.Mutex
	enabled bool
	ttl     time.Duration
	maxSize int
	clock   clock.Clock
	entries map[string]*list.Element
	order   *list.List

	hits      int64
	misses    int64
	evictions int64
}

type entry struct {
	key       string
	value     models.ChatResult
	expiresAt time.Time
}

// Stats reports cache occupancy and counters.
type Stats struct {
	Entries   int
	Hits      int64
	Misses    int64
	Evictions int64
}

// New creates a Cache. A disabled cache ignores writes and always misses.
func New(enabled bool, ttl time.Duration, maxSize int, c clock.Clock) *Cache {
	if c == nil {
		c = clock.Real()
	}
	return &Cache{
		enabled: enabled,
		ttl:     ttl,
		maxSize: maxSize,
		clock:   c,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Key derives the cache key for a blocking query. An empty conversation id
// is keyed as "new". The query is length-prefixed so no pair of fields can
// hash the same bytes as another pair.
func Key(query, conversationID string) string {
	if conversationID == "" {
		conversationID = "new"
	}
	h := sha256.New()
	h.Write(binary.BigEndian.AppendUint64(nil, uint64(len(query))))
	h.Write([]byte(query))
	h.Write([]byte(conversationID))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Get returns the cached value for key. Expired entries are deleted here.
func (c *Cache) Get(key string) (models.ChatResult, bool) {
	if !c.enabled {
		return models.ChatResult{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return models.ChatResult{}, false
	}
	e := el.Value.(*entry)
	if !c.clock.Now().Before(e.expiresAt) {
		c.removeElement(el)
		c.misses++
		return models.ChatResult{}, false
	}
	c.hits++
	return e.value, true
}

// Has reports whether Get would hit. It shares Get's lazy expiry.
func (c *Cache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Set stores value under key. All expired entries are purged first; if the
// cache is still full the oldest-inserted entry is evicted. Overwriting an
// existing key keeps its insertion position and refreshes its expiry.
func (c *Cache) Set(key string, value models.ChatResult) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	c.purgeExpired(now)

	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expiresAt = now.Add(c.ttl)
		return
	}

	if c.order.Len() >= c.maxSize {
		if oldest := c.order.Front(); oldest != nil {
			c.removeElement(oldest)
			c.evictions++
		}
	}

	c.entries[key] = c.order.PushBack(&entry{key: key, value: value, expiresAt: now.Add(c.ttl)})
}

// Len returns the number of stored entries, including expired entries that
// have not been read or purged yet.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns cache performance metrics.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:   c.order.Len(),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.mu.Unlock()
}

func (c *Cache) purgeExpired(now time.Time) {
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if !now.Before(el.Value.(*entry).expiresAt) {
			c.removeElement(el)
		}
		el = next
	}
}

func (c *Cache) removeElement(el *list.Element) {
	delete(c.entries, el.Value.(*entry).key)
	c.order.Remove(el)
}
