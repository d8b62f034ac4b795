// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package lru provides a size-bounded least-recently-used cache with
// write-back support.
//
// Each cache entry is linked into two intrusive lists at once: the recency
// list, ordered from most to least recently used, and the dirty list,
// ordered by the time entries were first marked dirty. Both lists hold a
// reference on the entry, so an entry acquired by a caller stays valid after
// it has been evicted.
package lru

import (
	"fmt"

	"github.com/pkg/errors"
	"gvisor.dev/intrusive/pkg/ilist"
	"gvisor.dev/intrusive/pkg/log"
	"gvisor.dev/intrusive/pkg/refs"
	"gvisor.dev/intrusive/pkg/sync"
)

// Entry is a cached key/value pair.
//
// +stateify savable
type Entry[K comparable, V any] struct {
	refs.Refs

	lruEntry   ilist.Entry[Entry[K, V]]
	dirtyEntry ilist.Entry[Entry[K, V]]

	key   K
	value V

	// onRelease is called once the last reference is dropped.
	onRelease func(K, V)
}

// Key returns the key of e.
func (e *Entry[K, V]) Key() K {
	return e.key
}

// Value returns the value of e.
func (e *Entry[K, V]) Value() V {
	return e.value
}

// String implements fmt.Stringer.
func (e *Entry[K, V]) String() string {
	return fmt.Sprintf("%v=%v", e.key, e.value)
}

// DecRef implements refs.RefCounter.DecRef.
func (e *Entry[K, V]) DecRef() {
	e.Refs.DecRef(e.destroy)
}

func (e *Entry[K, V]) destroy() {
	e.lruEntry.CheckUnlinked()
	e.dirtyEntry.CheckUnlinked()
	if e.onRelease != nil {
		e.onRelease(e.key, e.value)
	}
}

type lruMapper[K comparable, V any] struct{}

func (lruMapper[K, V]) LinkerFor(e *Entry[K, V]) *ilist.Entry[Entry[K, V]] {
	return &e.lruEntry
}

type dirtyMapper[K comparable, V any] struct{}

func (dirtyMapper[K, V]) LinkerFor(e *Entry[K, V]) *ilist.Entry[Entry[K, V]] {
	return &e.dirtyEntry
}

// Cache is a least-recently-used cache. It is safe for concurrent use.
type Cache[K comparable, V any] struct {
	capacity  int
	onRelease func(K, V)

	mu sync.Mutex

	// index maps keys to entries in recency.
	//
	// +checklocks:mu
	index map[K]*Entry[K, V]

	// recency holds every cached entry, most recently used first.
	//
	// +checklocks:mu
	recency ilist.List[Entry[K, V], lruMapper[K, V], ilist.Shared[Entry[K, V], *Entry[K, V]], ilist.Counted]

	// dirty holds entries awaiting write back, oldest first.
	//
	// +checklocks:mu
	dirty ilist.List[Entry[K, V], dirtyMapper[K, V], ilist.Shared[Entry[K, V], *Entry[K, V]], ilist.Counted]
}

// New returns an empty cache holding at most capacity clean entries.
// onRelease, if not nil, is called with each entry once it has left the
// cache and no caller holds it anymore.
func New[K comparable, V any](capacity int, onRelease func(K, V)) *Cache[K, V] {
	if capacity <= 0 {
		panic(fmt.Sprintf("lru: invalid capacity %d", capacity))
	}
	return &Cache[K, V]{
		capacity:  capacity,
		onRelease: onRelease,
		index:     make(map[K]*Entry[K, V]),
	}
}

// Put inserts or replaces the value for key and makes it the most recently
// used entry. It may evict the least recently used clean entry.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.index[key]; ok {
		c.removeLocked(old)
	}
	e := &Entry[K, V]{key: key, value: value, onRelease: c.onRelease}
	c.recency.PushFront(e)
	// The recency list now holds the only reference besides the initial one.
	e.DecRef()
	c.index[key] = e
	c.evictLocked()
}

// Get returns the value for key and marks it as most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.touchLocked(e)
	return e.value, true
}

// Acquire returns the entry for key with a reference held by the caller,
// who must call DecRef when done with it.
func (c *Cache[K, V]) Acquire(key K) (*Entry[K, V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.index[key]
	if !ok {
		return nil, false
	}
	c.touchLocked(e)
	e.IncRef()
	return e, true
}

// Remove drops key from the cache, discarding any pending write back. It
// returns false if key was not cached.
func (c *Cache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.index[key]
	if !ok {
		return false
	}
	c.removeLocked(e)
	return true
}

// MarkDirty queues key for write back. Marking an already dirty entry keeps
// its place in the queue. It returns false if key was not cached.
func (c *Cache[K, V]) MarkDirty(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.index[key]
	if !ok {
		return false
	}
	if !e.dirtyEntry.Linked() {
		c.dirty.PushBack(e)
	}
	return true
}

// Flush writes back dirty entries in the order they were first marked. It
// stops at the first error, leaving that entry and the following ones dirty.
//
// write is called with the cache locked and must not call back into it.
func (c *Cache[K, V]) Flush(write func(K, V) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	flushed := 0
	for e := c.dirty.Front(); e != nil; e = c.dirty.Front() {
		if err := write(e.key, e.value); err != nil {
			return errors.Wrapf(err, "flushing key %v after %d entries", e.key, flushed)
		}
		c.dirty.Remove(e)
		e.DecRef()
		flushed++
	}
	if flushed > 0 {
		log.Debugf("lru: flushed %d entries", flushed)
	}
	c.evictLocked()
	return nil
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recency.Len()
}

// DirtyLen returns the number of entries awaiting write back.
func (c *Cache[K, V]) DirtyLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty.Len()
}

// Keys returns the cached keys, most recently used first.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, c.recency.Len())
	for e := range c.recency.All() {
		keys = append(keys, e.key)
	}
	return keys
}

// Close empties the cache, discarding pending write backs. Entries still
// acquired by callers are released when their last reference is dropped.
func (c *Cache[K, V]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := c.dirty.Len(); n > 0 {
		log.Warningf("lru: closing with %d dirty entries", n)
	}
	c.dirty.Drop()
	c.recency.Drop()
	clear(c.index)
}

// touchLocked makes e the most recently used entry.
//
// +checklocks:c.mu
func (c *Cache[K, V]) touchLocked(e *Entry[K, V]) {
	if c.recency.Front() == e {
		return
	}
	// Remove hands the list's reference to us and PushFront takes a new one.
	c.recency.Remove(e)
	c.recency.PushFront(e)
	e.DecRef()
}

// removeLocked unlinks e from both lists and the index.
//
// +checklocks:c.mu
func (c *Cache[K, V]) removeLocked(e *Entry[K, V]) {
	delete(c.index, e.key)
	if e.dirtyEntry.Linked() {
		c.dirty.Remove(e)
		e.DecRef()
	}
	c.recency.Remove(e)
	e.DecRef()
}

// evictLocked removes least recently used clean entries until the number of
// entries is within capacity. Dirty entries and the most recently used entry
// are never evicted; the cache may exceed its capacity until dirty entries
// are flushed.
//
// +checklocks:c.mu
func (c *Cache[K, V]) evictLocked() {
	for e := c.recency.Back(); e != nil && e != c.recency.Front() && c.recency.Len() > c.capacity; {
		prev := c.recency.Prev(e)
		if !e.dirtyEntry.Linked() {
			if log.IsLogging(log.Debug) {
				log.Debugf("lru: evicting %v", e)
			}
			c.removeLocked(e)
		}
		e = prev
	}
}
