// SPDX-License-Identifier: MIT
package result

import (
	"errors"
	"testing"
	"time"
)

func TestCachePutRefusesInvalid(t *testing.T) {
	c := NewCache(4)

	if err := c.Put("loading", NewLoading(time.Now())); !errors.Is(err, ErrInvalid) {
		t.Errorf("Put(loading) = %v, want ErrInvalid", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestCacheEvictsCorruptedEntry(t *testing.T) {
	c := NewCache(4)
	f, _ := New(populated(40, 0.5), time.Time{})

	if err := c.Put("track", f); err != nil {
		t.Fatalf("Put() = %v", err)
	}
	if _, ok := c.Get("track"); !ok {
		t.Fatal("expected a hit for a valid entry")
	}

	// Simulate storage corruption: the cached arrays are zeroed in place.
	for b := range f.Bands {
		clear(f.Bands[b])
	}

	if _, ok := c.Get("track"); ok {
		t.Error("zeroed result must be treated as a miss")
	}
	if c.Contains("track") {
		t.Error("zeroed result must be evicted")
	}
}

func TestCacheIsBounded(t *testing.T) {
	c := NewCache(2)
	for _, id := range []string{"a", "b", "c"} {
		f, _ := New(populated(5, 1), time.Time{})
		if err := c.Put(id, f); err != nil {
			t.Fatal(err)
		}
	}

	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	if c.Contains("a") {
		t.Error("least recently used entry should be evicted")
	}
}
