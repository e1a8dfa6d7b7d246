package throttle

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Cache is a thread-safe, TTL-aware LRU cache for raw upstream payloads.
// It is bounded by entry count so long-running monitoring sessions with many
// distinct coordinates cannot grow it without limit.
type Cache struct {
	maxEntries int
	clock      clockwork.Clock

	mu      sync.Mutex
	entries map[string]*entry
	head    *entry // most recently used
	tail    *entry // least recently used
}

type entry struct {
	key      string
	value    []byte
	storedAt time.Time
	prev     *entry
	next     *entry
}

// NewCache creates a bounded cache. Pass a nil clock for real time.
func NewCache(maxEntries int, clock clockwork.Clock) *Cache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cache{
		maxEntries: maxEntries,
		clock:      clock,
		entries:    make(map[string]*entry),
	}
}

// Get returns the cached payload for key if it was stored within ttl.
// Expired entries are removed on access.
func (c *Cache) Get(key string, ttl time.Duration) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.clock.Since(e.storedAt) > ttl {
		c.remove(e)
		delete(c.entries, e.key)
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

// Put stores a payload, evicting the least recently used entry when full.
func (c *Cache) Put(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.storedAt = c.clock.Now()
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, storedAt: c.clock.Now()}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

// Len returns the current number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *Cache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *Cache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *Cache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}

// CoordKey builds a cache key from a source, data kind, and coordinates
// rounded to two decimals (~1 km), so nearby queries share cache entries.
func CoordKey(source, kind string, lat, lng float64) string {
	return fmt.Sprintf("%s:%s:%.2f,%.2f", source, kind, lat, lng)
}

// StaticKey builds a cache key for non-geographic queries such as the active
// hurricane list.
func StaticKey(source, kind string) string {
	return source + ":" + kind
}
