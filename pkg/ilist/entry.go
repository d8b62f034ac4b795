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

// Entry is the linkage embedded in an element of type T. It holds the
// neighbors of the element in exactly one List.
//
// An Entry is either unlinked (both slots empty and Linked false) or linked
// into a single List. An element that wants to be a member of several lists
// at the same time carries one Entry per list, each selected by its own
// Mapper.
//
// The zero value is an unlinked Entry.
//
// +stateify savable
type Entry[T any] struct {
	next *T
	prev *T

	// linked is set while the element is a member of some list. It
	// distinguishes the sole element of a list, whose slots are both
	// empty, from an element that is not linked at all.
	linked bool
}

// Next returns the element that follows e in its list, or nil.
//
//go:nosplit
func (e *Entry[T]) Next() *T {
	return e.next
}

// Prev returns the element that precedes e in its list, or nil.
//
//go:nosplit
func (e *Entry[T]) Prev() *T {
	return e.prev
}

// Linked returns true iff the element is currently a member of a list.
//
//go:nosplit
func (e *Entry[T]) Linked() bool {
	return e.linked
}

// Unlink clears e without touching its former neighbors. It is a no-op if e
// is already unlinked.
//
// Unlink is only safe when the neighbors have been fixed up by other means,
// or when they are being torn down as well. Use List.Remove otherwise.
func (e *Entry[T]) Unlink() {
	e.next = nil
	e.prev = nil
	e.linked = false
}

// CheckUnlinked panics if e is still linked. Element destructors should call
// it before the element is recycled, since a linked element would leave
// dangling references in its neighbors.
func (e *Entry[T]) CheckUnlinked() {
	if e.linked {
		panic("ilist: element destroyed while still linked")
	}
}

// ListEntry returns e itself. It lets any type that embeds a single Entry[T]
// satisfy Linkable[T] and be used with EntryMapper.
func (e *Entry[T]) ListEntry() *Entry[T] {
	return e
}

// Mapper selects which Entry of an element a List operates on. It plays the
// role of a tag: an element type embedding several entries defines one
// Mapper per entry, typically as an empty struct:
//
//	type requestQueueMapper struct{}
//
//	func (requestQueueMapper) LinkerFor(r *request) *ilist.Entry[request] {
//		return &r.queueEntry
//	}
//
// A Mapper must always return the same Entry for a given element.
type Mapper[T any] interface {
	LinkerFor(elem *T) *Entry[T]
}

// Linkable is satisfied by *T when T embeds exactly one Entry[T].
type Linkable[T any] interface {
	*T
	ListEntry() *Entry[T]
}

// EntryMapper is the Mapper for element types embedding a single Entry. It
// is the identity mapping of the common case.
type EntryMapper[T any, L Linkable[T]] struct{}

// LinkerFor implements Mapper.LinkerFor.
//
//go:nosplit
func (EntryMapper[T, L]) LinkerFor(elem *T) *Entry[T] {
	return L(elem).ListEntry()
}
