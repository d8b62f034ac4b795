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
	"gvisor.dev/intrusive/pkg/refs"
)

// Policy describes how a List relates to the memory of its elements. The set
// of policies is closed: Borrowing, Owning and Shared.
//
// A policy is a zero-size type parameter of List, so the hooks below are
// resolved at compile time.
type Policy[T any] interface {
	// acquire is called once an element has been linked.
	acquire(elem *T)

	// release is called by Drop once an element has been unlinked.
	release(elem *T)
}

// Borrowing is the Policy of lists that never own their elements. The caller
// keeps ownership and must keep every element valid until it is removed or
// the list is dropped.
type Borrowing[T any] struct{}

func (Borrowing[T]) acquire(*T) {}
func (Borrowing[T]) release(*T) {}

// Destroyable is satisfied by *T when T has a destructor.
type Destroyable[T any] interface {
	*T
	Destroy()
}

// Owning is the Policy of lists that are the sole owner of their elements.
// Pushing an element transfers it to the list: the caller must not use it
// until it comes back from PopFront, PopBack, Remove or Drain. Drop destroys
// every element still in the list, exactly once, after unlinking it.
type Owning[T any, D Destroyable[T]] struct{}

func (Owning[T, D]) acquire(*T) {}

func (Owning[T, D]) release(elem *T) {
	D(elem).Destroy()
}

// RefCounted is satisfied by *T when T is reference counted.
type RefCounted[T any] interface {
	*T
	refs.RefCounter
}

// Shared is the Policy of lists holding one reference on each of their
// elements. Linking an element takes a reference. PopFront, PopBack, Remove
// and Drain hand the list's reference over to the caller, who must DecRef the
// element once done with it. Drop releases the references itself.
type Shared[T any, R RefCounted[T]] struct{}

func (Shared[T, R]) acquire(elem *T) {
	R(elem).IncRef()
}

func (Shared[T, R]) release(elem *T) {
	R(elem).DecRef()
}
