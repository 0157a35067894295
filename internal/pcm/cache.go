// SPDX-License-Identifier: MIT
package pcm

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache keeps recently decoded buffers keyed by track identity so that a
// resumed or restarted track skips decoding. It is owned by the caller;
// there is no package-level instance.
type Cache struct {
	entries *lru.Cache[string, *Buffer]
}

// NewCache returns a cache holding at most size buffers. Non-positive
// sizes default to 4.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = 4
	}
	entries, err := lru.New[string, *Buffer](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &Cache{entries: entries}
}

// Get returns the cached buffer for id. Empty buffers are never returned.
func (c *Cache) Get(id string) (*Buffer, bool) {
	buf, ok := c.entries.Get(id)
	if !ok || buf.Frames() == 0 {
		return nil, false
	}
	return buf, true
}

// Put stores buf under id. Empty buffers are ignored.
func (c *Cache) Put(id string, buf *Buffer) {
	if buf == nil || buf.Frames() == 0 {
		return
	}
	c.entries.Add(id, buf)
}

// Len returns the number of cached buffers.
func (c *Cache) Len() int {
	return c.entries.Len()
}
