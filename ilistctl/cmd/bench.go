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
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"
	"gvisor.dev/intrusive/pkg/ilist"
	"gvisor.dev/intrusive/pkg/log"
)

// Bench implements subcommands.Command for the "bench" command.
type Bench struct {
	iterations int
	length     int
}

// Name implements subcommands.Command.Name.
func (*Bench) Name() string {
	return "bench"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Bench) Synopsis() string {
	return "time list operations for counted and uncounted lists"
}

// Usage implements subcommands.Command.Usage.
func (*Bench) Usage() string {
	return `bench [flags] - time list operations and print the time per operation.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (b *Bench) SetFlags(f *flag.FlagSet) {
	f.IntVar(&b.iterations, "iterations", 1000000, "number of times each operation is run.")
	f.IntVar(&b.length, "length", 1000, "length of the list operated on, at least 3.")
}

// Execute implements subcommands.Command.Execute.
func (b *Bench) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 0 || b.iterations <= 0 || b.length < 3 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	log.Infof("Timing %d iterations on lists of %d elements", b.iterations, b.length)

	results := runBench[ilist.Counted]("counted", b.iterations, b.length)
	results = append(results, runBench[ilist.Uncounted]("uncounted", b.iterations, b.length)...)
	if err := printBench(os.Stdout, results); err != nil {
		Fatalf("writing results: %v", err)
	}
	return subcommands.ExitSuccess
}

type benchResult struct {
	op    string
	size  string
	perOp time.Duration
}

func runBench[S ilist.Size[S]](size string, iterations, length int) []benchResult {
	nodes := make([]node, length)
	for i := range nodes {
		nodes[i].value = i
	}
	var (
		l, rest ilist.List[node, nodeMapper, ilist.Borrowing[node], S]
		results []benchResult
	)
	measure := func(op string, fn func()) {
		start := time.Now()
		for range iterations {
			fn()
		}
		results = append(results, benchResult{op: op, size: size, perOp: time.Since(start) / time.Duration(iterations)})
	}

	measure("push_pop", func() {
		l.PushBack(&nodes[0])
		l.PopFront()
	})

	for i := range nodes {
		l.PushBack(&nodes[i])
	}
	mid := &nodes[length/2]
	measure("remove_insert", func() {
		prev := l.Prev(mid)
		l.Remove(mid)
		l.InsertAfter(prev, mid)
	})
	measure("len", func() {
		_ = l.Len()
	})
	measure("split_splice", func() {
		l.SplitAfter(mid, &rest)
		l.PushBackList(&rest)
	})
	measure("iterate", func() {
		for range l.All() {
		}
	})
	l.Drop()
	return results
}

func printBench(out io.Writer, results []benchResult) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OPERATION\tSIZE\tTIME/OP")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%v\n", r.op, r.size, r.perOp)
	}
	return w.Flush()
}
