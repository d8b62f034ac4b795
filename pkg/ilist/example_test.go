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

package ilist_test

import (
	"fmt"

	"gvisor.dev/intrusive/pkg/ilist"
)

// task can wait in a run queue and, at the same time, be part of the list of
// tasks owned by a process.
type task struct {
	name string

	runEntry  ilist.Entry[task]
	procEntry ilist.Entry[task]
}

func (t *task) String() string { return t.name }

type runMapper struct{}

func (runMapper) LinkerFor(t *task) *ilist.Entry[task] { return &t.runEntry }

type procMapper struct{}

func (procMapper) LinkerFor(t *task) *ilist.Entry[task] { return &t.procEntry }

type runQueue = ilist.List[task, runMapper, ilist.Borrowing[task], ilist.Counted]

type procTasks = ilist.List[task, procMapper, ilist.Borrowing[task], ilist.Uncounted]

func Example() {
	var (
		rq    runQueue
		tasks procTasks
	)
	a, b, c := &task{name: "a"}, &task{name: "b"}, &task{name: "c"}
	for _, t := range []*task{a, b, c} {
		tasks.PushBack(t)
		rq.PushBack(t)
	}

	rq.Remove(b)
	fmt.Println("run queue:", rq.String(), rq.Len())
	fmt.Println("tasks:", tasks.String())

	next := rq.PopFront()
	fmt.Println("running:", next, "left:", rq.String())

	rq.Drop()
	tasks.Drop()
	fmt.Println("linked after drop:", a.runEntry.Linked(), c.procEntry.Linked())
	// Output:
	// run queue: [a, c] 2
	// tasks: [a, b, c]
	// running: a left: [c]
	// linked after drop: false false
}
