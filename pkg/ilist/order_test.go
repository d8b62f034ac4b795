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

package ilist

import (
	"cmp"
	"testing"

	gocmp "github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestRotate(t *testing.T) {
	for _, tc := range []struct {
		name     string
		n        int
		forward  []int
		backward []int
	}{
		{name: "empty", n: 0, forward: nil, backward: nil},
		{name: "single", n: 1, forward: []int{0}, backward: []int{0}},
		{name: "pair", n: 2, forward: []int{1, 0}, backward: []int{1, 0}},
		{name: "many", n: 4, forward: []int{3, 0, 1, 2}, backward: []int{1, 2, 3, 0}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			l := listOf(newElems(tc.n)...)
			l.RotateForward()
			if diff := gocmp.Diff(tc.forward, values(t, l), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("RotateForward (-want +got):\n%s", diff)
			}
			l.RotateBackward()
			if diff := gocmp.Diff(values(t, listOf(newElems(tc.n)...)), values(t, l), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("RotateBackward did not undo RotateForward (-want +got):\n%s", diff)
			}

			l = listOf(newElems(tc.n)...)
			l.RotateBackward()
			if diff := gocmp.Diff(tc.backward, values(t, l), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("RotateBackward (-want +got):\n%s", diff)
			}
			if diff := gocmp.Diff(reverse(tc.backward), valuesBackward(t, l), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("backward walk after RotateBackward (-want +got):\n%s", diff)
			}
			if n := l.Len(); n != tc.n {
				t.Errorf("Len() = %d, want %d", n, tc.n)
			}
		})
	}
}

func reverse(vs []int) []int {
	out := make([]int, 0, len(vs))
	for i := len(vs) - 1; i >= 0; i-- {
		out = append(out, vs[i])
	}
	return out
}

func TestRotateUncounted(t *testing.T) {
	var l uncountedList
	for _, e := range newElems(3) {
		l.PushBack(e)
	}
	l.RotateForward()
	l.RotateForward()
	if diff := gocmp.Diff([]int{1, 2, 0}, walk(t, &l, l.All())); diff != "" {
		t.Errorf("values (-want +got):\n%s", diff)
	}
}

func TestInsertWhen(t *testing.T) {
	es := newElems(4)
	l := listOf(es[0], es[2])
	greater := func(x, e *testElem) bool { return x.value > e.value }

	l.InsertWhen(es[1], greater)
	l.InsertWhen(es[3], greater)
	if diff := gocmp.Diff([]int{0, 1, 2, 3}, values(t, l)); diff != "" {
		t.Errorf("values (-want +got):\n%s", diff)
	}

	// An empty list takes the element at the back.
	var empty countedList
	e := &testElem{value: 9}
	empty.InsertWhen(e, greater)
	if empty.Front() != e || empty.Len() != 1 {
		t.Errorf("InsertWhen into an empty list: front %v, len %d", empty.Front(), empty.Len())
	}
}

func TestInsertOrdered(t *testing.T) {
	byValue := func(a, b *testElem) int { return cmp.Compare(a.value, b.value) }
	var l countedList
	var inserted []*testElem
	for _, v := range []int{5, 1, 4, 1, 3, 5} {
		e := &testElem{value: v}
		inserted = append(inserted, e)
		l.InsertOrdered(e, byValue)
	}
	if diff := gocmp.Diff([]int{1, 1, 3, 4, 5, 5}, values(t, &l)); diff != "" {
		t.Errorf("values (-want +got):\n%s", diff)
	}
	// Equal elements go before the ones already there.
	if l.Front() != inserted[3] || l.Back() != inserted[0] {
		t.Errorf("equal elements not inserted before existing ones: front %p back %p", l.Front(), l.Back())
	}
}

func TestInsertWhenLinkedPanics(t *testing.T) {
	es := newElems(2)
	l := listOf(es...)
	mustPanic(t, "already linked", func() {
		l.InsertWhen(es[0], func(x, e *testElem) bool { return true })
	})
}
