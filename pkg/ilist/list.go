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

// Package ilist provides an intrusive doubly-linked list.
//
// Elements carry their own linkage in an embedded Entry, so a List performs
// no allocation: entries can be added to or removed from the list in O(1)
// time given a pointer to the element. An element embedding several entries
// can be a member of several lists at once, one per Mapper.
//
// The List type is parameterized by the element type, the Mapper selecting
// the entry, the ownership Policy and the Size policy:
//
//	type request struct {
//		ilist.Entry[request]
//		id int
//	}
//
//	type requestList = ilist.List[request,
//		ilist.EntryMapper[request, *request],
//		ilist.Borrowing[request],
//		ilist.Counted]
//
// Lists are not safe for concurrent use. Callers sharing a list between
// goroutines must serialize every operation, including iteration.
package ilist

import (
	"fmt"
)

// noCopy may be embedded into structs which must not be copied after first
// use. It is recognized by the copylocks check of go vet.
type noCopy struct{}

// Lock is a no-op used by go vet.
func (*noCopy) Lock() {}

// Unlock is a no-op used by go vet.
func (*noCopy) Unlock() {}

// entryOf maps an element to the entry selected by M.
//
//go:nosplit
func entryOf[T any, M Mapper[T]](elem *T) *Entry[T] {
	var m M
	return m.LinkerFor(elem)
}

// List is an intrusive list. Entries can be added to or removed from the list
// in O(1) time and with no additional memory allocations.
//
// The zero value for List is an empty list ready to use. A List must not be
// copied once elements have been added to it.
//
// To iterate over a list (where l is a List):
//
//	for e := range l.All() {
//		// do something with e.
//	}
//
// or, without an iterator:
//
//	for e := l.Front(); e != nil; e = l.Next(e) {
//		// do something with e.
//	}
//
// +stateify savable
type List[T any, M Mapper[T], P Policy[T], S Size[S]] struct {
	_ noCopy

	head *T
	tail *T
	size S

	// onDrop is invoked at the end of Drop.
	onDrop func(released int) `state:"nosave"`
}

func (l *List[T, M, P, S]) entry(elem *T) *Entry[T] {
	return entryOf[T, M](elem)
}

// checkUnlinked panics if elem is already a member of a list.
func (l *List[T, M, P, S]) checkUnlinked(elem *T, e *Entry[T]) {
	if checksEnabled && e.linked {
		panic(fmt.Sprintf("ilist: inserting element %p which is already linked", elem))
	}
}

// checkMember panics if elem is visibly not a member of l. Only the anchors
// of l can be checked in O(1): an element in the middle of another list goes
// undetected.
func (l *List[T, M, P, S]) checkMember(elem *T, e *Entry[T]) {
	if !checksEnabled {
		return
	}
	if !e.linked {
		panic(fmt.Sprintf("ilist: element %p is not linked", elem))
	}
	if (e.prev == nil && l.head != elem) || (e.next == nil && l.tail != elem) {
		panic(fmt.Sprintf("ilist: element %p is linked into another list", elem))
	}
}

// Empty returns true iff the list is empty.
//
//go:nosplit
func (l *List[T, M, P, S]) Empty() bool {
	return l.head == nil
}

// Front returns the first element of list l or nil.
//
//go:nosplit
func (l *List[T, M, P, S]) Front() *T {
	return l.head
}

// Back returns the last element of list l or nil.
//
//go:nosplit
func (l *List[T, M, P, S]) Back() *T {
	return l.tail
}

// Next returns the element following elem in l, or nil.
//
//go:nosplit
func (l *List[T, M, P, S]) Next(elem *T) *T {
	return l.entry(elem).next
}

// Prev returns the element preceding elem in l, or nil.
//
//go:nosplit
func (l *List[T, M, P, S]) Prev(elem *T) *T {
	return l.entry(elem).prev
}

// Len returns the number of elements in the list.
//
// NOTE: This is an O(n) operation for Uncounted lists.
func (l *List[T, M, P, S]) Len() int {
	if n, ok := l.size.count(); ok {
		return n
	}
	count := 0
	for e := l.head; e != nil; e = l.entry(e).next {
		count++
	}
	return count
}

// PushFront inserts the element e at the front of list l. e must not be
// linked into any list through the same Mapper.
func (l *List[T, M, P, S]) PushFront(e *T) {
	linker := l.entry(e)
	l.checkUnlinked(e, linker)
	linker.next = l.head
	linker.prev = nil
	linker.linked = true
	if l.head != nil {
		l.entry(l.head).prev = e
	} else {
		l.tail = e
	}

	l.head = e
	l.size = l.size.add(1)
	var p P
	p.acquire(e)
}

// PushBack inserts the element e at the back of list l. e must not be
// linked into any list through the same Mapper.
func (l *List[T, M, P, S]) PushBack(e *T) {
	linker := l.entry(e)
	l.checkUnlinked(e, linker)
	linker.next = nil
	linker.prev = l.tail
	linker.linked = true
	if l.tail != nil {
		l.entry(l.tail).next = e
	} else {
		l.head = e
	}

	l.tail = e
	l.size = l.size.add(1)
	var p P
	p.acquire(e)
}

// InsertAfter inserts e after b.
func (l *List[T, M, P, S]) InsertAfter(b, e *T) {
	bLinker := l.entry(b)
	eLinker := l.entry(e)
	l.checkMember(b, bLinker)
	l.checkUnlinked(e, eLinker)

	a := bLinker.next

	eLinker.next = a
	eLinker.prev = b
	eLinker.linked = true
	bLinker.next = e

	if a != nil {
		l.entry(a).prev = e
	} else {
		l.tail = e
	}
	l.size = l.size.add(1)
	var p P
	p.acquire(e)
}

// InsertBefore inserts e before a.
func (l *List[T, M, P, S]) InsertBefore(a, e *T) {
	aLinker := l.entry(a)
	eLinker := l.entry(e)
	l.checkMember(a, aLinker)
	l.checkUnlinked(e, eLinker)

	b := aLinker.prev
	eLinker.next = a
	eLinker.prev = b
	eLinker.linked = true
	aLinker.prev = e

	if b != nil {
		l.entry(b).next = e
	} else {
		l.head = e
	}
	l.size = l.size.add(1)
	var p P
	p.acquire(e)
}

// InsertWhen inserts e before the first element x of l for which before(x, e)
// is true, or at the back of l if there is none. It is O(n).
func (l *List[T, M, P, S]) InsertWhen(e *T, before func(x, e *T) bool) {
	for x := l.head; x != nil; x = l.entry(x).next {
		if before(x, e) {
			l.InsertBefore(x, e)
			return
		}
	}
	l.PushBack(e)
}

// InsertOrdered inserts e into l, sorted in ascending order by cmp, before the
// first element that is not less than e. It is O(n).
func (l *List[T, M, P, S]) InsertOrdered(e *T, cmp func(a, b *T) int) {
	l.InsertWhen(e, func(x, e *T) bool { return cmp(x, e) >= 0 })
}

// unlink splices the element owning linker out of l and clears its entry.
func (l *List[T, M, P, S]) unlink(linker *Entry[T]) {
	prev := linker.prev
	next := linker.next

	if prev != nil {
		l.entry(prev).next = next
	} else {
		l.head = next
	}

	if next != nil {
		l.entry(next).prev = prev
	} else {
		l.tail = prev
	}

	linker.Unlink()
	l.size = l.size.add(-1)
}

// Remove removes e from l. e must be a member of l. The caller gets back
// whatever the list held on e: ownership under Owning, the list's reference
// under Shared.
func (l *List[T, M, P, S]) Remove(e *T) {
	linker := l.entry(e)
	l.checkMember(e, linker)
	l.unlink(linker)
}

// PopFront removes and returns the first element of l, or nil if l is empty.
func (l *List[T, M, P, S]) PopFront() *T {
	e := l.head
	if e == nil {
		return nil
	}
	l.unlink(l.entry(e))
	return e
}

// PopBack removes and returns the last element of l, or nil if l is empty.
func (l *List[T, M, P, S]) PopBack() *T {
	e := l.tail
	if e == nil {
		return nil
	}
	l.unlink(l.entry(e))
	return e
}

// RotateForward moves the last element of l to the front. It does nothing if
// l has fewer than two elements.
func (l *List[T, M, P, S]) RotateForward() {
	e := l.tail
	if e == l.head {
		return
	}
	linker := l.entry(e)
	l.tail = linker.prev
	l.entry(l.tail).next = nil
	linker.prev = nil
	linker.next = l.head
	l.entry(l.head).prev = e
	l.head = e
}

// RotateBackward moves the first element of l to the back. It does nothing if
// l has fewer than two elements.
func (l *List[T, M, P, S]) RotateBackward() {
	e := l.head
	if e == l.tail {
		return
	}
	linker := l.entry(e)
	l.head = linker.next
	l.entry(l.head).prev = nil
	linker.next = nil
	linker.prev = l.tail
	l.entry(l.tail).next = e
	l.tail = e
}

// splice links the whole of m between prev and next, which must be adjacent
// in l (nil standing for the ends of l), and empties m.
func (l *List[T, M, P, S]) splice(prev, next *T, m *List[T, M, P, S]) {
	if checksEnabled && m == l {
		panic("ilist: splicing a list into itself")
	}
	if m.head == nil {
		return
	}
	first, last := m.head, m.tail
	l.entry(first).prev = prev
	l.entry(last).next = next
	if prev != nil {
		l.entry(prev).next = first
	} else {
		l.head = first
	}
	if next != nil {
		l.entry(next).prev = last
	} else {
		l.tail = last
	}
	if n, ok := m.size.count(); ok {
		l.size = l.size.add(n)
	}

	var zero S
	m.head = nil
	m.tail = nil
	m.size = zero
}

// PushBackList inserts list m at the end of list l, emptying m.
func (l *List[T, M, P, S]) PushBackList(m *List[T, M, P, S]) {
	l.splice(l.tail, nil, m)
}

// PushFrontList inserts list m at the front of list l, emptying m.
func (l *List[T, M, P, S]) PushFrontList(m *List[T, M, P, S]) {
	l.splice(nil, l.head, m)
}

// SpliceAfter inserts list m after mark, emptying m.
func (l *List[T, M, P, S]) SpliceAfter(mark *T, m *List[T, M, P, S]) {
	linker := l.entry(mark)
	l.checkMember(mark, linker)
	l.splice(mark, linker.next, m)
}

// SpliceBefore inserts list m before mark, emptying m.
func (l *List[T, M, P, S]) SpliceBefore(mark *T, m *List[T, M, P, S]) {
	linker := l.entry(mark)
	l.checkMember(mark, linker)
	l.splice(linker.prev, mark, m)
}

// SplitAfter moves every element following mark to the empty list into,
// leaving mark as the last element of l.
//
// NOTE: Relinking is O(1), but Counted lists walk the moved elements to keep
// both sizes exact.
func (l *List[T, M, P, S]) SplitAfter(mark *T, into *List[T, M, P, S]) {
	linker := l.entry(mark)
	l.checkMember(mark, linker)
	if checksEnabled && (into == l || into.head != nil) {
		panic("ilist: splitting into a non-empty list")
	}
	first := linker.next
	if first == nil {
		return
	}
	into.head = first
	into.tail = l.tail
	l.entry(first).prev = nil
	linker.next = nil
	l.tail = mark

	if _, ok := l.size.count(); ok {
		moved := 0
		for e := first; e != nil; e = l.entry(e).next {
			moved++
		}
		into.size = into.size.add(moved)
		l.size = l.size.add(-moved)
	}
}

// SetDropHook installs fn to be called at the end of every Drop, once all
// former members have been unlinked and released. released is the number of
// elements that were in the list.
func (l *List[T, M, P, S]) SetDropHook(fn func(released int)) {
	l.onDrop = fn
}

// Drop empties l. Every element is unlinked and then released according to
// the Policy: borrowed elements are left intact, owned elements are
// destroyed and shared elements lose the list's reference. The drop hook, if
// any, runs last. l can be reused afterwards.
func (l *List[T, M, P, S]) Drop() {
	e := l.head

	var zero S
	l.head = nil
	l.tail = nil
	l.size = zero

	var p P
	released := 0
	for e != nil {
		linker := l.entry(e)
		next := linker.next
		linker.Unlink()
		p.release(e)
		released++
		e = next
	}

	if l.onDrop != nil {
		l.onDrop(released)
	}
}
