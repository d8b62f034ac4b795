// Copyright 2018 The gVisor Authors.
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

package ilist

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/intrusive/pkg/refs"
)

type ownedElem struct {
	Entry[ownedElem]
	value     int
	destroyed *[]int
}

func (o *ownedElem) Destroy() {
	o.CheckUnlinked()
	*o.destroyed = append(*o.destroyed, o.value)
}

type ownedList = List[ownedElem, EntryMapper[ownedElem, *ownedElem], Owning[ownedElem, *ownedElem], Counted]

type sharedElem struct {
	Entry[sharedElem]
	refs.Refs
	value     int
	destroyed bool
}

// DecRef implements refs.RefCounter.DecRef.
func (s *sharedElem) DecRef() {
	s.Refs.DecRef(func() {
		s.CheckUnlinked()
		s.destroyed = true
	})
}

type sharedList = List[sharedElem, EntryMapper[sharedElem, *sharedElem], Shared[sharedElem, *sharedElem], Uncounted]

func TestDropBorrowing(t *testing.T) {
	es := newElems(3)
	l := listOf(es...)
	hookCalls, released := 0, 0
	l.SetDropHook(func(n int) {
		hookCalls++
		released = n
		// Every former member is unlinked by the time the hook runs.
		for _, e := range es {
			if e.Linked() {
				t.Errorf("element %v still linked in drop hook", e)
			}
		}
	})
	l.Drop()

	if hookCalls != 1 || released != 3 {
		t.Errorf("drop hook called %d times with %d, want once with 3", hookCalls, released)
	}
	if !l.Empty() || l.Len() != 0 {
		t.Errorf("list not empty after Drop")
	}
	for i, e := range es {
		if e.Linked() || e.Next() != nil || e.Prev() != nil {
			t.Errorf("element %d still linked after Drop", i)
		}
		if e.value != i {
			t.Errorf("element %d has value %d after Drop", i, e.value)
		}
	}

	// The list is reusable.
	l.PushBack(es[1])
	if diff := cmp.Diff([]int{1}, values(t, l)); diff != "" {
		t.Errorf("reuse (-want +got):\n%s", diff)
	}
}

func TestDropOwning(t *testing.T) {
	var destroyed []int
	var l ownedList
	for i := 0; i < 3; i++ {
		l.PushBack(&ownedElem{value: i, destroyed: &destroyed})
	}

	// Popped elements come back to the caller and are not destroyed.
	popped := l.PopFront()
	if len(destroyed) != 0 {
		t.Fatalf("PopFront destroyed %v", destroyed)
	}
	if popped.value != 0 || popped.Linked() {
		t.Errorf("PopFront() = %+v, want unlinked element 0", popped)
	}

	l.Drop()
	if diff := cmp.Diff([]int{1, 2}, destroyed); diff != "" {
		t.Errorf("destroyed (-want +got):\n%s", diff)
	}

	// Dropping again must not destroy anything twice.
	l.Drop()
	if diff := cmp.Diff([]int{1, 2}, destroyed); diff != "" {
		t.Errorf("destroyed after second Drop (-want +got):\n%s", diff)
	}
}

func TestSharedReferences(t *testing.T) {
	a, b := &sharedElem{value: 1}, &sharedElem{value: 2}
	var l sharedList
	l.PushBack(a)
	l.PushBack(b)
	if got := a.ReadRefs(); got != 2 {
		t.Errorf("refs after PushBack = %d, want 2", got)
	}

	// PopFront hands the list's reference over to the caller.
	if e := l.PopFront(); e != a {
		t.Fatalf("PopFront() = %v, want %v", e, a)
	}
	if got := a.ReadRefs(); got != 2 {
		t.Errorf("refs after PopFront = %d, want 2", got)
	}
	a.DecRef()

	// The caller drops its own reference; the list still holds b alive.
	b.DecRef()
	if b.destroyed {
		t.Fatalf("b destroyed while still in the list")
	}
	l.Drop()
	if !b.destroyed {
		t.Errorf("b not destroyed when the list dropped the last reference")
	}
	if a.destroyed {
		t.Errorf("a destroyed while the caller still holds a reference")
	}
	a.DecRef()
	if !a.destroyed {
		t.Errorf("a not destroyed after last DecRef")
	}
}

func TestSharedRemove(t *testing.T) {
	a := &sharedElem{value: 1}
	var l sharedList
	l.PushFront(a)
	// Only the list holds a.
	a.DecRef()

	l.Remove(a)
	if a.destroyed {
		t.Fatalf("Remove destroyed an element it handed back")
	}
	if got := a.ReadRefs(); got != 1 {
		t.Errorf("refs after Remove = %d, want 1", got)
	}
	a.DecRef()
	if !a.destroyed {
		t.Errorf("a not destroyed after last DecRef")
	}
}

func TestSharedMoveBetweenLists(t *testing.T) {
	var src, dst sharedList
	es := make([]*sharedElem, 3)
	for i := range es {
		es[i] = &sharedElem{value: i}
		src.PushBack(es[i])
		// Only the list holds the element.
		es[i].DecRef()
	}

	dst.PushBackSeq(src.Drain())
	if !src.Empty() {
		t.Fatalf("source list not empty after Drain")
	}
	var got []int
	for e := range dst.All() {
		got = append(got, e.value)
		if e.destroyed {
			t.Errorf("element %d destroyed while moving", e.value)
		}
		// Drop the references Drain handed over.
		e.DecRef()
	}
	if diff := cmp.Diff([]int{0, 1, 2}, got); diff != "" {
		t.Errorf("moved (-want +got):\n%s", diff)
	}

	for e := range dst.All() {
		if n := e.ReadRefs(); n != 1 {
			t.Errorf("element %d has %d references, want 1", e.value, n)
		}
	}
	dst.Drop()
	for _, e := range es {
		if !e.destroyed {
			t.Errorf("element %d not destroyed by Drop", e.value)
		}
	}
}

func TestDrainOwning(t *testing.T) {
	var destroyed []int
	var l ownedList
	for i := 0; i < 4; i++ {
		l.PushBack(&ownedElem{value: i, destroyed: &destroyed})
	}
	var got []int
	for e := range l.Drain() {
		got = append(got, e.value)
		if e.value == 1 {
			break
		}
	}
	if diff := cmp.Diff([]int{0, 1}, got); diff != "" {
		t.Errorf("drained (-want +got):\n%s", diff)
	}
	if n := l.Len(); n != 2 {
		t.Errorf("Len() after partial drain = %d, want 2", n)
	}
	if len(destroyed) != 0 {
		t.Errorf("Drain destroyed %v", destroyed)
	}
}
