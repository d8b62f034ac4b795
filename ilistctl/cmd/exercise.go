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

package cmd

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"runtime"
	"slices"
	"time"

	"github.com/google/subcommands"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gvisor.dev/intrusive/ilistctl/config"
	"gvisor.dev/intrusive/pkg/ilist"
	"gvisor.dev/intrusive/pkg/log"
	"gvisor.dev/intrusive/pkg/lru"
	"gvisor.dev/intrusive/pkg/refs"
)

// Exercise implements subcommands.Command for the "exercise" command.
type Exercise struct {
	workers int
	ops     int
	seed    uint64
}

// Name implements subcommands.Command.Name.
func (*Exercise) Name() string {
	return "exercise"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Exercise) Synopsis() string {
	return "run random list operations and check them against a model"
}

// Usage implements subcommands.Command.Usage.
func (*Exercise) Usage() string {
	return `exercise [flags] - run random operations on lists of every policy and size mode.

Each worker runs its own lists and checks their contents and structure after
every operation.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (e *Exercise) SetFlags(f *flag.FlagSet) {
	f.IntVar(&e.workers, "workers", runtime.GOMAXPROCS(0), "number of concurrent workers.")
	f.IntVar(&e.ops, "ops", 10000, "number of operations per worker and mode.")
	f.Uint64Var(&e.seed, "seed", 0, "random seed. 0 picks one from the current time.")
}

// Execute implements subcommands.Command.Execute.
func (e *Exercise) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 || e.workers <= 0 || e.ops < 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	seed := e.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	log.Infof("Exercising %d modes with %d workers, %d operations each, seed %d", len(modes), e.workers, e.ops, seed)

	start := time.Now()
	progress := log.BasicRateLimitedLogger(conf.ProgressInterval)
	if err := runExercise(ctx, e.workers, e.ops, seed, progress); err != nil {
		Fatalf("exercise failed with seed %d: %v", seed, err)
	}
	if leaked := refs.DoRepeatedLeakCheck(); leaked > 0 {
		Fatalf("exercise leaked %d nodes", leaked)
	}
	fmt.Printf("ok: %d workers, %d modes, %d operations each in %v\n", e.workers, len(modes), e.ops, time.Since(start))
	return subcommands.ExitSuccess
}

func runExercise(ctx context.Context, workers, ops int, seed uint64, progress log.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			r := rand.New(rand.NewPCG(seed, uint64(w)))
			for _, m := range modes {
				if err := m.run(ctx, r, ops); err != nil {
					return errors.Wrapf(err, "worker %d, %s", w, m.name)
				}
				progress.Infof("worker %d: %s passed %d operations", w, m.name, ops)
			}
			return nil
		})
	}
	return g.Wait()
}

type mode struct {
	name string
	run  func(ctx context.Context, r *rand.Rand, ops int) error
}

var modes = []mode{
	{"borrowing/counted", checkList[ilist.Borrowing[node], ilist.Counted](borrowed)},
	{"borrowing/uncounted", checkList[ilist.Borrowing[node], ilist.Uncounted](borrowed)},
	{"owning/counted", checkList[ilist.Owning[node, *node], ilist.Counted](owned)},
	{"owning/uncounted", checkList[ilist.Owning[node, *node], ilist.Uncounted](owned)},
	{"shared/counted", checkList[ilist.Shared[node, *node], ilist.Counted](shared)},
	{"shared/uncounted", checkList[ilist.Shared[node, *node], ilist.Uncounted](shared)},
	{"lru", checkCache},
}

// ownership is what the caller does around list operations under a policy.
type ownership struct {
	// pushed is called after a new node has been inserted.
	pushed func(*node)

	// taken is called after a node has been popped or removed.
	taken func(*node)

	// drops is true if Drop destroys the remaining nodes.
	drops bool
}

func keep(*node) {}

var (
	borrowed = ownership{pushed: keep, taken: (*node).Destroy}
	owned    = ownership{pushed: keep, taken: (*node).Destroy, drops: true}
	// The list holds the only reference once the creator's is dropped, and
	// hands it back with taken nodes.
	shared = ownership{pushed: (*node).DecRef, taken: (*node).DecRef, drops: true}
)

// maxLen bounds the length of exercised lists by forcing removals.
const maxLen = 64

var (
	anyOps     = []string{"push_front", "push_back", "push_back", "splice", "insert_after", "insert_before", "insert_when", "pop_front", "pop_back", "remove", "split", "rotate_forward", "rotate_backward"}
	removalOps = []string{"pop_front", "pop_back", "remove", "remove"}
)

func checkList[P ilist.Policy[node], S ilist.Size[S]](own ownership) func(context.Context, *rand.Rand, int) error {
	return func(ctx context.Context, r *rand.Rand, ops int) error {
		var (
			tr    tracker
			l     ilist.List[node, nodeMapper, P, S]
			model []*node
			next  int
		)
		push := func() *node {
			next++
			return tr.newNode(next)
		}

		for i := 0; i < ops; i++ {
			if i%64 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			op := anyOps[r.IntN(len(anyOps))]
			if len(model) >= maxLen {
				op = removalOps[r.IntN(len(removalOps))]
			}
			if len(model) == 0 && op != "push_front" && op != "splice" && op != "insert_when" {
				op = "push_back"
			}
			if r.IntN(ops/4+1) == 0 {
				op = "drain"
			}

			switch op {
			case "push_front":
				n := push()
				l.PushFront(n)
				own.pushed(n)
				model = slices.Insert(model, 0, n)
			case "push_back":
				n := push()
				l.PushBack(n)
				own.pushed(n)
				model = append(model, n)
			case "insert_after", "insert_before":
				at := r.IntN(len(model))
				n := push()
				if op == "insert_after" {
					l.InsertAfter(model[at], n)
					at++
				} else {
					l.InsertBefore(model[at], n)
				}
				own.pushed(n)
				model = slices.Insert(model, at, n)
			case "insert_when":
				n := push()
				threshold := r.IntN(next)
				l.InsertWhen(n, func(x, _ *node) bool { return x.value >= threshold })
				own.pushed(n)
				at := slices.IndexFunc(model, func(x *node) bool { return x.value >= threshold })
				if at < 0 {
					at = len(model)
				}
				model = slices.Insert(model, at, n)
			case "rotate_forward":
				l.RotateForward()
				last := model[len(model)-1]
				model = slices.Insert(model[:len(model)-1], 0, last)
			case "rotate_backward":
				l.RotateBackward()
				first := model[0]
				model = append(slices.Delete(model, 0, 1), first)
			case "pop_front", "pop_back":
				at, n := 0, (*node)(nil)
				if op == "pop_front" {
					n = l.PopFront()
				} else {
					at = len(model) - 1
					n = l.PopBack()
				}
				if n != model[at] {
					return errors.Errorf("op %d (%s) returned %v, want %v", i, op, n, model[at])
				}
				model = slices.Delete(model, at, at+1)
				own.taken(n)
			case "remove":
				at := r.IntN(len(model))
				n := model[at]
				l.Remove(n)
				model = slices.Delete(model, at, at+1)
				own.taken(n)
			case "splice":
				var (
					m     ilist.List[node, nodeMapper, P, S]
					batch []*node
				)
				for range r.IntN(4) {
					n := push()
					m.PushBack(n)
					own.pushed(n)
					batch = append(batch, n)
				}
				switch at := r.IntN(len(model) + 2); {
				case at == len(model):
					l.PushBackList(&m)
					model = append(model, batch...)
				case at == len(model)+1:
					l.PushFrontList(&m)
					model = slices.Insert(model, 0, batch...)
				case r.IntN(2) == 0:
					l.SpliceAfter(model[at], &m)
					model = slices.Insert(model, at+1, batch...)
				default:
					l.SpliceBefore(model[at], &m)
					model = slices.Insert(model, at, batch...)
				}
				if !m.Empty() {
					return errors.Errorf("op %d (%s) left %d nodes in the source list", i, op, m.Len())
				}
			case "split":
				at := r.IntN(len(model))
				var rest ilist.List[node, nodeMapper, P, S]
				l.SplitAfter(model[at], &rest)
				if err := rest.Validate(); err != nil {
					return errors.Wrapf(err, "op %d (%s): split off list", i, op)
				}
				if got, want := values(&rest), nodeValues(model[at+1:]); !slices.Equal(got, want) {
					return errors.Errorf("op %d (%s) split off %v, want %v", i, op, got, want)
				}
				l.PushBackList(&rest)
			case "drain":
				for n := range l.Drain() {
					own.taken(n)
				}
				model = model[:0]
			}

			if err := checkModel(&l, model); err != nil {
				return errors.Wrapf(err, "op %d (%s)", i, op)
			}
		}

		var dropped int
		l.SetDropHook(func(released int) { dropped = released })
		l.Drop()
		if dropped != len(model) {
			return errors.Errorf("Drop released %d nodes, want %d", dropped, len(model))
		}
		if !own.drops {
			for _, n := range model {
				n.Destroy()
			}
		}
		if tr.destroyed != tr.created {
			return errors.Errorf("%d of %d nodes destroyed", tr.destroyed, tr.created)
		}
		return nil
	}
}

func nodeValues(ns []*node) []int {
	vs := make([]int, 0, len(ns))
	for _, n := range ns {
		vs = append(vs, n.value)
	}
	return vs
}

func checkModel[P ilist.Policy[node], S ilist.Size[S]](l *ilist.List[node, nodeMapper, P, S], model []*node) error {
	if err := l.Validate(); err != nil {
		return err
	}
	want := nodeValues(model)
	if got := values(l); !slices.Equal(got, want) {
		return errors.Errorf("list is %v, want %v", got, want)
	}
	var backward []int
	for n := range l.Backward() {
		backward = append(backward, n.value)
	}
	slices.Reverse(backward)
	if !slices.Equal(backward, want) {
		return errors.Errorf("reversed backward walk is %v, want %v", backward, want)
	}
	if got := l.Len(); got != len(model) {
		return errors.Errorf("Len() = %d, want %d", got, len(model))
	}
	if l.Empty() != (len(model) == 0) {
		return errors.Errorf("Empty() = %t with %d nodes", l.Empty(), len(model))
	}
	if len(model) > 0 && (l.Front() != model[0] || l.Back() != model[len(model)-1]) {
		return errors.Errorf("Front(), Back() = %v, %v, want %v, %v", l.Front(), l.Back(), model[0], model[len(model)-1])
	}
	return nil
}

// cacheCapacity is the capacity of the exercised cache. Keys are drawn from a
// larger range so that evictions happen.
const cacheCapacity = 16

func checkCache(ctx context.Context, r *rand.Rand, ops int) error {
	var (
		released int
		puts     int
		held     *lru.Entry[int, int]
	)
	c := lru.New[int, int](cacheCapacity, func(int, int) { released++ })
	for i := 0; i < ops; i++ {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		k := r.IntN(3 * cacheCapacity)
		switch r.IntN(7) {
		case 0, 1:
			c.Put(k, i)
			puts++
			if v, ok := c.Get(k); !ok || v != i {
				return errors.Errorf("op %d: Get(%d) right after Put = %d, %t", i, k, v, ok)
			}
		case 2:
			c.Get(k)
		case 3:
			c.MarkDirty(k)
		case 4:
			c.Remove(k)
		case 5:
			if err := c.Flush(func(int, int) error { return nil }); err != nil {
				return err
			}
		case 6:
			if held != nil {
				held.DecRef()
			}
			held, _ = c.Acquire(k)
		}
		// The most recently used entry stays even when every other one is
		// dirty.
		if n, dirty := c.Len(), c.DirtyLen(); n > max(cacheCapacity, dirty+1) {
			return errors.Errorf("op %d: %d entries with %d dirty exceed capacity %d", i, n, dirty, cacheCapacity)
		}
	}
	c.Close()
	if held != nil {
		held.DecRef()
	}
	if released != puts {
		return errors.Errorf("%d of %d entries released", released, puts)
	}
	return nil
}
