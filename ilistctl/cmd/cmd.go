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

// Package cmd holds implementations of the ilistctl commands.
package cmd

import (
	"fmt"
	"os"

	"gvisor.dev/intrusive/pkg/ilist"
	"gvisor.dev/intrusive/pkg/log"
	"gvisor.dev/intrusive/pkg/refs"
)

// Fatalf logs to stderr and exits with a failure status code.
func Fatalf(format string, args ...any) {
	log.Warningf("FATAL ERROR: "+format, args...)
	fmt.Fprintf(os.Stderr, "FATAL ERROR: "+format+"\n", args...)
	os.Exit(128)
}

// node is the element type manipulated by the commands. It can be stored
// under every ownership policy: it is destroyable for owning lists and
// reference counted for shared ones.
type node struct {
	refs.Refs
	ilist.Entry[node]

	value int

	// tr accounts for destroyed nodes. It may be nil.
	tr *tracker

	destroyed  bool
	registered bool
}

type nodeMapper = ilist.EntryMapper[node, *node]

// String implements fmt.Stringer.
func (n *node) String() string {
	return fmt.Sprint(n.value)
}

// Destroy implements ilist.Destroyable.Destroy.
func (n *node) Destroy() {
	n.CheckUnlinked()
	if n.destroyed {
		panic(fmt.Sprintf("node %d destroyed twice", n.value))
	}
	n.destroyed = true
	if n.tr != nil {
		n.tr.destroyed++
	}
	if n.registered {
		refs.Unregister(n)
	}
}

// DecRef implements refs.RefCounter.DecRef.
func (n *node) DecRef() {
	n.Refs.DecRef(n.Destroy)
}

// RefType implements refs.CheckedObject.RefType.
func (n *node) RefType() string {
	return "node"
}

// LeakMessage implements refs.CheckedObject.LeakMessage.
func (n *node) LeakMessage() string {
	return fmt.Sprintf("[node %p] value %d has %d references", n, n.value, n.ReadRefs())
}

// LogRefs implements refs.CheckedObject.LogRefs.
func (n *node) LogRefs() bool {
	return false
}

// tracker counts the nodes created and destroyed by a single goroutine.
type tracker struct {
	created   int
	destroyed int
}

func (tr *tracker) newNode(value int) *node {
	n := &node{value: value, tr: tr}
	tr.created++
	if refs.LeakCheckEnabled() {
		refs.Register(n)
		n.registered = true
	}
	return n
}

func values[P ilist.Policy[node], S ilist.Size[S]](l *ilist.List[node, nodeMapper, P, S]) []int {
	vs := []int{}
	for n := range l.All() {
		vs = append(vs, n.value)
	}
	return vs
}
