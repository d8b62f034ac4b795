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
	"iter"
)

// All returns an iterator over the elements of l from front to back.
//
// The iterator may be ranged over several times. The element being yielded
// may be removed from l by the loop body; any other mutation of l during
// iteration has undefined results.
func (l *List[T, M, P, S]) All() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for e := l.head; e != nil; {
			next := l.entry(e).next
			if !yield(e) {
				return
			}
			e = next
		}
	}
}

// Backward returns an iterator over the elements of l from back to front,
// with the same rules as All.
func (l *List[T, M, P, S]) Backward() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for e := l.tail; e != nil; {
			prev := l.entry(e).prev
			if !yield(e) {
				return
			}
			e = prev
		}
	}
}

// Drain returns an iterator that pops elements from the front of l until it
// is empty or the loop stops. Each element is handed back as by PopFront.
func (l *List[T, M, P, S]) Drain() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for {
			e := l.PopFront()
			if e == nil || !yield(e) {
				return
			}
		}
	}
}

// PushBackSeq appends every element of seq to l, in order.
func (l *List[T, M, P, S]) PushBackSeq(seq iter.Seq[*T]) {
	for e := range seq {
		l.PushBack(e)
	}
}
