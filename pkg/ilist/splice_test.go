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
	"github.com/google/go-cmp/cmp/cmpopts"
)

func listOf(es ...*testElem) *countedList {
	l := &countedList{}
	for _, e := range es {
		l.PushBack(e)
	}
	return l
}

func TestPushBackList(t *testing.T) {
	es := newElems(5)
	a := listOf(es[0], es[1])
	b := listOf(es[2], es[3], es[4])
	a.PushBackList(b)

	if diff := cmp.Diff([]int{0, 1, 2, 3, 4}, values(t, a)); diff != "" {
		t.Errorf("spliced list (-want +got):\n%s", diff)
	}
	if n := a.Len(); n != 5 {
		t.Errorf("Len() = %d, want 5", n)
	}
	if !b.Empty() || b.Len() != 0 || b.Front() != nil || b.Back() != nil {
		t.Errorf("source list not emptied: %v", b)
	}
}

func TestPushFrontList(t *testing.T) {
	es := newElems(4)
	a := listOf(es[2], es[3])
	b := listOf(es[0], es[1])
	a.PushFrontList(b)

	if diff := cmp.Diff([]int{0, 1, 2, 3}, values(t, a)); diff != "" {
		t.Errorf("spliced list (-want +got):\n%s", diff)
	}
	if !b.Empty() {
		t.Errorf("source list not emptied")
	}
}

func TestSpliceIntoEmpty(t *testing.T) {
	es := newElems(2)
	var a countedList
	b := listOf(es...)
	a.PushBackList(b)
	if diff := cmp.Diff([]int{0, 1}, values(t, &a)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	// Splicing an empty list is a no-op.
	var empty countedList
	a.PushFrontList(&empty)
	if diff := cmp.Diff([]int{0, 1}, values(t, &a)); diff != "" {
		t.Errorf("after empty splice (-want +got):\n%s", diff)
	}
}

func TestSpliceAtMark(t *testing.T) {
	for _, tc := range []struct {
		name   string
		splice func(l *countedList, mark *testElem, m *countedList)
		mark   int
		want   []int
	}{
		{"after middle", (*countedList).SpliceAfter, 0, []int{0, 10, 11, 1}},
		{"after tail", (*countedList).SpliceAfter, 1, []int{0, 1, 10, 11}},
		{"before head", (*countedList).SpliceBefore, 0, []int{10, 11, 0, 1}},
		{"before middle", (*countedList).SpliceBefore, 1, []int{0, 10, 11, 1}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			es := newElems(2)
			l := listOf(es...)
			m := listOf(&testElem{value: 10}, &testElem{value: 11})
			tc.splice(l, es[tc.mark], m)
			if diff := cmp.Diff(tc.want, values(t, l)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			if n := l.Len(); n != 4 {
				t.Errorf("Len() = %d, want 4", n)
			}
			if !m.Empty() {
				t.Errorf("source list not emptied")
			}
		})
	}
}

func TestSpliceUncounted(t *testing.T) {
	es := newElems(4)
	var a, b uncountedList
	a.PushBack(es[0])
	a.PushBack(es[1])
	b.PushBack(es[2])
	b.PushBack(es[3])
	a.PushBackList(&b)
	if n := a.Len(); n != 4 {
		t.Errorf("Len() = %d, want 4", n)
	}
	if err := a.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestSplitAfter(t *testing.T) {
	for _, mark := range []int{0, 2, 4} {
		es := newElems(5)
		l := listOf(es...)
		var tail countedList
		l.SplitAfter(es[mark], &tail)

		want := []int{0, 1, 2, 3, 4}
		if diff := cmp.Diff(want[:mark+1], values(t, l)); diff != "" {
			t.Errorf("SplitAfter(%d) head (-want +got):\n%s", mark, diff)
		}
		if diff := cmp.Diff(want[mark+1:], values(t, &tail), cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("SplitAfter(%d) tail (-want +got):\n%s", mark, diff)
		}
		if l.Len()+tail.Len() != 5 {
			t.Errorf("SplitAfter(%d): sizes %d+%d, want 5", mark, l.Len(), tail.Len())
		}

		// Splicing back restores the original list.
		l.PushBackList(&tail)
		if diff := cmp.Diff(want, values(t, l)); diff != "" {
			t.Errorf("rejoined (-want +got):\n%s", diff)
		}
	}
}

func TestSplitAfterUncounted(t *testing.T) {
	es := newElems(3)
	var l, tail uncountedList
	for _, e := range es {
		l.PushBack(e)
	}
	l.SplitAfter(es[0], &tail)
	if l.Len() != 1 || tail.Len() != 2 {
		t.Errorf("sizes = %d/%d, want 1/2", l.Len(), tail.Len())
	}
	if tail.Front() != es[1] || l.Back() != es[0] {
		t.Errorf("anchors wrong after split")
	}
}
