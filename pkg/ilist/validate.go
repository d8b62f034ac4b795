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
	"github.com/pkg/errors"
)

// Validate walks l in both directions and returns an error describing the
// first structural inconsistency found: mismatched anchors, asymmetric
// links, unflagged members, cycles or a wrong tracked size.
//
// It is O(n) in time and space and meant for tests and debugging tools.
func (l *List[T, M, P, S]) Validate() error {
	if (l.head == nil) != (l.tail == nil) {
		return errors.Errorf("head %p and tail %p disagree on emptiness", l.head, l.tail)
	}
	if l.head != nil && l.entry(l.head).prev != nil {
		return errors.Errorf("head %p has a predecessor", l.head)
	}
	if l.tail != nil && l.entry(l.tail).next != nil {
		return errors.Errorf("tail %p has a successor", l.tail)
	}

	seen := make(map[*T]struct{})
	var last *T
	forward := 0
	for e := l.head; e != nil; e = l.entry(e).next {
		if _, ok := seen[e]; ok {
			return errors.Errorf("cycle at element %p after %d steps", e, forward)
		}
		seen[e] = struct{}{}
		linker := l.entry(e)
		if !linker.linked {
			return errors.Errorf("element %p at position %d is not flagged as linked", e, forward)
		}
		if linker.prev != last {
			return errors.Errorf("element %p at position %d points back to %p, want %p", e, forward, linker.prev, last)
		}
		last = e
		forward++
	}
	if last != l.tail {
		return errors.Errorf("forward walk ends at %p, want tail %p", last, l.tail)
	}

	backward := 0
	for e := l.tail; e != nil; e = l.entry(e).prev {
		backward++
		if backward > forward {
			return errors.Errorf("backward walk is longer than forward walk (%d elements)", forward)
		}
	}
	if backward != forward {
		return errors.Errorf("backward walk visits %d elements, forward walk %d", backward, forward)
	}

	if n, ok := l.size.count(); ok && n != forward {
		return errors.Errorf("tracked size is %d, list holds %d elements", n, forward)
	}
	return nil
}
