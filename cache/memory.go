package cache

import (
	"container/list"
	"sync"

	"github.com/killown/flux/internal/thumbtype"
)

// Memory is an in-memory, byte-budgeted LRU cache.
//
// The byte budget counts artifact pixel buffers plus a small per-entry
// overhead. When a Put would exceed the budget, least-recently-used entries
// are evicted until the new entry fits. Entries larger than the whole budget
// are not stored.
type Memory struct {
	maxBytes int64

	mu    sync.Mutex
	bytes int64
	ll    *list.List // front = most recently used
	items map[thumbtype.Key]*list.Element
}

type memEntry struct {
	key  thumbtype.Key
	art  *thumbtype.Artifact
	size int64
}

// NewMemory creates an in-memory LRU cache with the given byte budget.
// A budget <= 0 disables the limit.
func NewMemory(maxBytes int64) *Memory {
	return &Memory{
		maxBytes: maxBytes,
		ll:       list.New(),
		items:    make(map[thumbtype.Key]*list.Element),
	}
}

// Get retrieves the artifact for key and marks it most recently used.
func (c *Memory) Get(key thumbtype.Key) (*thumbtype.Artifact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*memEntry).art, true
}

// Put stores the artifact for key, evicting LRU entries to stay under budget.
func (c *Memory) Put(key thumbtype.Key, art *thumbtype.Artifact) error {
	if art == nil {
		return nil
	}
	size := art.SizeBytes()

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		entry := el.Value.(*memEntry)
		c.bytes += size - entry.size
		entry.art = art
		entry.size = size
		c.ll.MoveToFront(el)
		c.evictLocked()
		return nil
	}

	if c.maxBytes > 0 && size > c.maxBytes {
		return nil
	}

	el := c.ll.PushFront(&memEntry{key: key, art: art, size: size})
	c.items[key] = el
	c.bytes += size
	c.evictLocked()
	return nil
}

// Invalidate removes the entry for key.
func (c *Memory) Invalidate(key thumbtype.Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeLocked(el)
	}
	return nil
}

// Len returns the number of cached entries.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// SizeBytes returns the current cache size in bytes.
func (c *Memory) SizeBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}

// MaxBytes returns the configured byte budget (0 = unlimited).
func (c *Memory) MaxBytes() int64 {
	return c.maxBytes
}

func (c *Memory) evictLocked() {
	if c.maxBytes <= 0 {
		return
	}
	for c.bytes > c.maxBytes {
		el := c.ll.Back()
		if el == nil {
			return
		}
		c.removeLocked(el)
	}
}

func (c *Memory) removeLocked(el *list.Element) {
	entry := el.Value.(*memEntry)
	c.ll.Remove(el)
	delete(c.items, entry.key)
	c.bytes -= entry.size
}
