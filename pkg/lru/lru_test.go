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

package lru

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gvisor.dev/intrusive/pkg/sync"
)

type releaseLog struct {
	mu       sync.Mutex
	released []string
}

func (r *releaseLog) onRelease(k string, v int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, fmt.Sprintf("%s=%d", k, v))
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	var rl releaseLog
	c := New[string, int](2, rl.onRelease)
	c.Put("a", 1)
	c.Put("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("Get(a) missed")
	}
	c.Put("c", 3)

	if diff := cmp.Diff([]string{"c", "a"}, c.Keys()); diff != "" {
		t.Errorf("Keys (-want +got):\n%s", diff)
	}
	if _, ok := c.Get("b"); ok {
		t.Errorf("b not evicted")
	}
	if diff := cmp.Diff([]string{"b=2"}, rl.released); diff != "" {
		t.Errorf("released (-want +got):\n%s", diff)
	}
}

func TestPutReplaces(t *testing.T) {
	var rl releaseLog
	c := New[string, int](4, rl.onRelease)
	c.Put("a", 1)
	c.Put("a", 2)
	if v, ok := c.Get("a"); !ok || v != 2 {
		t.Errorf("Get(a) = %d, %t, want 2, true", v, ok)
	}
	if n := c.Len(); n != 1 {
		t.Errorf("Len() = %d, want 1", n)
	}
	if diff := cmp.Diff([]string{"a=1"}, rl.released); diff != "" {
		t.Errorf("released (-want +got):\n%s", diff)
	}
}

func TestAcquireOutlivesEviction(t *testing.T) {
	var rl releaseLog
	c := New[string, int](1, rl.onRelease)
	c.Put("a", 1)
	e, ok := c.Acquire("a")
	if !ok {
		t.Fatalf("Acquire(a) missed")
	}
	c.Put("b", 2)
	if len(rl.released) != 0 {
		t.Fatalf("a released while acquired: %v", rl.released)
	}
	if e.Key() != "a" || e.Value() != 1 {
		t.Errorf("acquired entry = %v, want a=1", e)
	}
	e.DecRef()
	if diff := cmp.Diff([]string{"a=1"}, rl.released); diff != "" {
		t.Errorf("released (-want +got):\n%s", diff)
	}
}

func TestDirtyEntriesAreNotEvicted(t *testing.T) {
	c := New[string, int](1, nil)
	c.Put("a", 1)
	if !c.MarkDirty("a") {
		t.Fatalf("MarkDirty(a) missed")
	}
	c.Put("b", 2)
	if n := c.Len(); n != 2 {
		t.Fatalf("Len() = %d with a dirty entry, want 2", n)
	}

	var written []string
	if err := c.Flush(func(k string, v int) error {
		written = append(written, k)
		return nil
	}); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if diff := cmp.Diff([]string{"a"}, written); diff != "" {
		t.Errorf("written (-want +got):\n%s", diff)
	}
	// Once clean, a is the least recently used entry and goes.
	if diff := cmp.Diff([]string{"b"}, c.Keys()); diff != "" {
		t.Errorf("Keys (-want +got):\n%s", diff)
	}
}

func TestPutKeepsNewestWithDirtyEntries(t *testing.T) {
	var rl releaseLog
	c := New[string, int](1, rl.onRelease)
	c.Put("a", 1)
	c.MarkDirty("a")
	c.Put("b", 2)
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Fatalf("Get(b) right after Put(b) = %d, %t; Keys() = %v", v, ok, c.Keys())
	}
	c.Put("c", 3)
	if diff := cmp.Diff([]string{"c", "a"}, c.Keys()); diff != "" {
		t.Errorf("Keys (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b=2"}, rl.released); diff != "" {
		t.Errorf("released (-want +got):\n%s", diff)
	}
}

func TestFlushOrderAndError(t *testing.T) {
	c := New[string, int](8, nil)
	for i, k := range []string{"a", "b", "c", "d"} {
		c.Put(k, i)
	}
	c.MarkDirty("c")
	c.MarkDirty("a")
	c.MarkDirty("d")
	c.MarkDirty("c")
	if n := c.DirtyLen(); n != 3 {
		t.Fatalf("DirtyLen() = %d, want 3", n)
	}

	var written []string
	err := c.Flush(func(k string, v int) error {
		if k == "d" {
			return fmt.Errorf("disk full")
		}
		written = append(written, k)
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), "disk full") || !strings.Contains(err.Error(), "key d") {
		t.Errorf("Flush error = %v, want one wrapping disk full for key d", err)
	}
	if diff := cmp.Diff([]string{"c", "a"}, written); diff != "" {
		t.Errorf("written (-want +got):\n%s", diff)
	}
	if n := c.DirtyLen(); n != 1 {
		t.Errorf("DirtyLen() after failed flush = %d, want 1", n)
	}
}

func TestRemoveAndClose(t *testing.T) {
	var rl releaseLog
	c := New[string, int](8, rl.onRelease)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)
	c.MarkDirty("b")
	if !c.Remove("b") {
		t.Fatalf("Remove(b) missed")
	}
	if c.Remove("b") {
		t.Errorf("second Remove(b) hit")
	}
	if c.MarkDirty("b") {
		t.Errorf("MarkDirty on a removed key hit")
	}
	if n := c.DirtyLen(); n != 0 {
		t.Errorf("DirtyLen() = %d after Remove, want 0", n)
	}

	c.MarkDirty("a")
	c.Close()
	if n := c.Len(); n != 0 {
		t.Errorf("Len() after Close = %d", n)
	}
	if diff := cmp.Diff([]string{"a=1", "b=2", "c=3"}, rl.released, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Errorf("released (-want +got):\n%s", diff)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int, int](16, nil)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				k := (g*31 + i) % 40
				c.Put(k, i)
				c.Get(k)
				if i%7 == 0 {
					c.MarkDirty(k)
				}
				if i%50 == 0 {
					c.Flush(func(int, int) error { return nil })
				}
			}
		}(g)
	}
	wg.Wait()
	if err := c.Flush(func(int, int) error { return nil }); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if n := c.Len(); n > 16 {
		t.Errorf("Len() = %d after flushing everything, want <= 16", n)
	}
}
