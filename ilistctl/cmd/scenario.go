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
	"cmp"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/subcommands"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"gvisor.dev/intrusive/pkg/ilist"
	"gvisor.dev/intrusive/pkg/log"
)

// Scenario implements subcommands.Command for the "scenario" command.
type Scenario struct {
	backward bool
}

// Name implements subcommands.Command.Name.
func (*Scenario) Name() string {
	return "scenario"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Scenario) Synopsis() string {
	return "run a scripted sequence of list operations"
}

// Usage implements subcommands.Command.Usage.
func (*Scenario) Usage() string {
	return `scenario [flags] <file.toml|file.yaml> - run the steps of a script and print the lists after each step as JSON.

A script is a sequence of steps operating on named lists, for example:

  [[step]]
  op = "push_back"
  list = "a"
  values = [1, 2, 3]

  [[step]]
  op = "split_after"
  list = "a"
  mark = 1
  from = "b"

Scripts ending in .yaml or .yml are read as YAML with the same keys.
Elements are identified by their value. Operations: push_front, push_back,
insert_after, insert_before, insert_ordered, pop_front, pop_back, remove,
rotate_forward, rotate_backward, push_back_list, push_front_list,
splice_after, splice_before, split_after, drain.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *Scenario) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&s.backward, "backward", false, "also print each list walked from back to front.")
}

// Execute implements subcommands.Command.Execute.
func (s *Scenario) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	path := f.Arg(0)

	sc, err := loadScript(path)
	if err != nil {
		Fatalf("%v", err)
	}
	log.Debugf("Running %d steps from %q", len(sc.Steps), path)
	if err := sc.run(os.Stdout, s.backward); err != nil {
		Fatalf("%s: %v", path, err)
	}
	return subcommands.ExitSuccess
}

// script is the TOML representation of a scenario.
type script struct {
	Steps []step `toml:"step" yaml:"step"`
}

type step struct {
	Op string `toml:"op" yaml:"op"`

	// List is the list operated on. It defaults to "a".
	List string `toml:"list" yaml:"list"`

	// From is the other list of list operations.
	From string `toml:"from" yaml:"from"`

	// Mark is the value of the element that positional operations are
	// relative to.
	Mark int `toml:"mark" yaml:"mark"`

	Values []int `toml:"values" yaml:"values"`
}

func loadScript(path string) (*script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	format := "toml"
	if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
		format = "yaml"
	}
	sc, err := parseScript(string(data), format)
	if err != nil {
		return nil, errors.Wrapf(err, "script %q", path)
	}
	return sc, nil
}

// parseScript decodes a script written in format, either "toml" or "yaml".
// Unknown keys are rejected.
func parseScript(data, format string) (*script, error) {
	var sc script
	switch format {
	case "toml":
		md, err := toml.Decode(data, &sc)
		if err != nil {
			return nil, errors.Wrap(err, "decoding script")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.Errorf("script has unknown keys %v", undecoded)
		}
	case "yaml":
		dec := yaml.NewDecoder(strings.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&sc); err != nil && err != io.EOF {
			return nil, errors.Wrap(err, "decoding script")
		}
	default:
		return nil, errors.Errorf("unknown script format %q", format)
	}
	return &sc, nil
}

type scenarioList = ilist.List[node, nodeMapper, ilist.Borrowing[node], ilist.Counted]

// listState is the JSON representation of a list after a step.
type listState struct {
	Values   []int  `json:"values"`
	Backward []int  `json:"backward,omitempty"`
	Len      int    `json:"len"`
	Hash     string `json:"hash"`
}

// stepResult is the JSON representation of a step.
type stepResult struct {
	Step   int                  `json:"step"`
	Op     string               `json:"op"`
	Popped []int                `json:"popped,omitempty"`
	Lists  map[string]listState `json:"lists"`
}

// scenario holds the lists of a running script.
type scenario struct {
	lists map[string]*scenarioList
}

func (sc *script) run(out io.Writer, backward bool) error {
	s := scenario{lists: make(map[string]*scenarioList)}
	defer func() {
		for _, l := range s.lists {
			l.Drop()
		}
	}()

	enc := json.NewEncoder(out)
	for i, st := range sc.Steps {
		popped, err := s.apply(st)
		if err != nil {
			return errors.Wrapf(err, "step %d (%s)", i+1, st.Op)
		}
		res := stepResult{
			Step:   i + 1,
			Op:     st.Op,
			Popped: popped,
			Lists:  make(map[string]listState, len(s.lists)),
		}
		for name, l := range s.lists {
			res.Lists[name] = stateOf(l, backward)
		}
		if err := enc.Encode(&res); err != nil {
			return err
		}
	}
	return nil
}

func stateOf(l *scenarioList, backward bool) listState {
	st := listState{
		Values: values(l),
		Len:    l.Len(),
		Hash:   fmt.Sprintf("%016x", l.Hash(func(n *node) uint64 { return uint64(n.value) })),
	}
	if backward {
		st.Backward = []int{}
		for n := range l.Backward() {
			st.Backward = append(st.Backward, n.value)
		}
	}
	return st
}

func (s *scenario) list(name string) *scenarioList {
	if name == "" {
		name = "a"
	}
	l, ok := s.lists[name]
	if !ok {
		l = new(scenarioList)
		s.lists[name] = l
	}
	return l
}

func (s *scenario) find(l *scenarioList, value int) (*node, error) {
	for n := range l.All() {
		if n.value == value {
			return n, nil
		}
	}
	return nil, errors.Errorf("no element with value %d", value)
}

// apply runs a single step and returns the values it took out of the list.
func (s *scenario) apply(st step) ([]int, error) {
	l := s.list(st.List)
	switch st.Op {
	case "push_front":
		for _, v := range st.Values {
			l.PushFront(&node{value: v})
		}
	case "push_back":
		for _, v := range st.Values {
			l.PushBack(&node{value: v})
		}
	case "insert_after", "insert_before":
		mark, err := s.find(l, st.Mark)
		if err != nil {
			return nil, err
		}
		for _, v := range st.Values {
			n := &node{value: v}
			if st.Op == "insert_after" {
				l.InsertAfter(mark, n)
				mark = n
			} else {
				l.InsertBefore(mark, n)
			}
		}
	case "insert_ordered":
		for _, v := range st.Values {
			l.InsertOrdered(&node{value: v}, compareNodes)
		}
	case "rotate_forward":
		l.RotateForward()
	case "rotate_backward":
		l.RotateBackward()
	case "pop_front", "pop_back":
		var n *node
		if st.Op == "pop_front" {
			n = l.PopFront()
		} else {
			n = l.PopBack()
		}
		if n == nil {
			return nil, nil
		}
		return []int{n.value}, nil
	case "remove":
		var removed []int
		for _, v := range st.Values {
			n, err := s.find(l, v)
			if err != nil {
				return removed, err
			}
			l.Remove(n)
			removed = append(removed, v)
		}
		return removed, nil
	case "push_back_list", "push_front_list", "splice_after", "splice_before", "split_after":
		return nil, s.applyListOp(l, st)
	case "drain":
		var drained []int
		for n := range l.Drain() {
			drained = append(drained, n.value)
		}
		return drained, nil
	default:
		return nil, errors.Errorf("unknown operation %q", st.Op)
	}
	return nil, nil
}

func compareNodes(a, b *node) int {
	return cmp.Compare(a.value, b.value)
}

func (s *scenario) applyListOp(l *scenarioList, st step) error {
	if st.From == "" {
		return errors.New("missing from")
	}
	m := s.list(st.From)
	if m == l {
		return errors.Errorf("list %q used as both list and from", st.From)
	}
	switch st.Op {
	case "push_back_list":
		l.PushBackList(m)
		return nil
	case "push_front_list":
		l.PushFrontList(m)
		return nil
	}

	mark, err := s.find(l, st.Mark)
	if err != nil {
		return err
	}
	switch st.Op {
	case "splice_after":
		l.SpliceAfter(mark, m)
	case "splice_before":
		l.SpliceBefore(mark, m)
	case "split_after":
		if !m.Empty() {
			return errors.Errorf("list %q is not empty", st.From)
		}
		l.SplitAfter(mark, m)
	}
	return nil
}
