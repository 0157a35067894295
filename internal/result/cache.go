// SPDX-License-Identifier: MIT
package result

import (
	applog "bandfx/internal/log"

	lru "github.com/hashicorp/golang-lru/v2"
)

var logger = applog.For("result")

// DefaultCacheSize bounds a Cache created with a non-positive size.
const DefaultCacheSize = 32

// Cache holds completed results keyed by a stable track identity.
// Entries are validated on the way in and again on the way out; a stored
// entry that fails validation is evicted and reported as a miss.
type Cache struct {
	entries *lru.Cache[string, *Frequency]
}

// NewCache returns a Cache holding at most size results.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, *Frequency](size)
	if err != nil {
		panic(err)
	}
	return &Cache{entries: entries}
}

// Get returns the cached result for id when it is present and valid.
func (c *Cache) Get(id string) (*Frequency, bool) {
	f, ok := c.entries.Get(id)
	if !ok {
		return nil, false
	}
	if err := f.Validate(); err != nil {
		logger.Debugf("evicting %q: %v", id, err)
		c.entries.Remove(id)
		return nil, false
	}
	return f, true
}

// Put stores f under id. Results that fail validation are refused and
// the validation error is returned.
func (c *Cache) Put(id string, f *Frequency) error {
	if err := f.Validate(); err != nil {
		return err
	}
	c.entries.Add(id, f)
	return nil
}

// Contains reports whether id has an entry, without validating it.
func (c *Cache) Contains(id string) bool {
	return c.entries.Contains(id)
}

// Remove drops id from the cache.
func (c *Cache) Remove(id string) {
	c.entries.Remove(id)
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}
