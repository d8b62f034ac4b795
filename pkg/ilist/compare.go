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
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Hash returns a hash of the sequence of elements in l. The length and the
// hash of each element, as computed by elemHash, are mixed in list order.
// Link pointers are never hashed, so lists holding equal sequences hash
// equally wherever their elements live in memory.
func (l *List[T, M, P, S]) Hash(elemHash func(*T) uint64) uint64 {
	var buf [8]byte
	d := xxhash.New()
	binary.LittleEndian.PutUint64(buf[:], uint64(l.Len()))
	d.Write(buf[:])
	for e := l.head; e != nil; e = l.entry(e).next {
		binary.LittleEndian.PutUint64(buf[:], elemHash(e))
		d.Write(buf[:])
	}
	return d.Sum64()
}

// Equal returns true iff l and m hold sequences of the same length whose
// elements are pairwise equal according to eq.
func (l *List[T, M, P, S]) Equal(m *List[T, M, P, S], eq func(a, b *T) bool) bool {
	a, b := l.head, m.head
	for a != nil && b != nil {
		if !eq(a, b) {
			return false
		}
		a, b = l.entry(a).next, m.entry(b).next
	}
	return a == nil && b == nil
}

// Compare compares the sequences held by l and m lexicographically, using
// cmp to order elements. The result is negative, zero or positive like
// cmp.Compare.
func (l *List[T, M, P, S]) Compare(m *List[T, M, P, S], cmp func(a, b *T) int) int {
	a, b := l.head, m.head
	for a != nil && b != nil {
		if c := cmp(a, b); c != 0 {
			return c
		}
		a, b = l.entry(a).next, m.entry(b).next
	}
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	default:
		return 1
	}
}

// String implements fmt.Stringer. Elements are formatted with %v.
func (l *List[T, M, P, S]) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for e := l.head; e != nil; e = l.entry(e).next {
		if e != l.head {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%v", e)
	}
	b.WriteByte(']')
	return b.String()
}
