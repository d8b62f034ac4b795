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

// Size is the size-tracking policy of a List: Counted or Uncounted. There is
// no default; every List type names one explicitly.
type Size[S any] interface {
	// add returns the size adjusted by delta.
	add(delta int) S

	// count returns the tracked size, or false if the size is not tracked.
	count() (int, bool)
}

// Counted tracks the number of elements, making Len O(1) at the cost of one
// word in the List.
type Counted int

func (c Counted) add(delta int) Counted {
	return c + Counted(delta)
}

func (c Counted) count() (int, bool) {
	return int(c), true
}

// Uncounted does not track the number of elements. It takes no space, and
// Len walks the list.
type Uncounted struct{}

func (Uncounted) add(int) Uncounted {
	return Uncounted{}
}

func (Uncounted) count() (int, bool) {
	return 0, false
}
