// Copyright 2025 Poiesic Systems
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


package compile

import (
	"errors"

	"github.com/poiesic/loom/core"
	"github.com/poiesic/loom/provider"
	"github.com/poiesic/loom/transform"
)

// Role describes what a compiled node does at run time.
type Role string

const (
	// RoleSource streams items from a connected provider.
	RoleSource Role = "source"
	// RoleProcessor transforms item batches.
	RoleProcessor Role = "processor"
	// RoleSink persists item batches to a connected provider.
	RoleSink Role = "sink"
	// RoleRelay forwards batches unchanged. Cache-slot endpoints compile
	// to relays; the slot itself has no storage.
	RoleRelay Role = "relay"
)

// Node is one compiled graph vertex. Exactly one of Source, Processor,
// Sink is non-nil, matching Role; relays carry none.
type Node struct {
	ID        core.NodeID
	Role      Role
	Source    provider.Source
	Processor transform.Processor
	Sink      provider.Sink
}

// Wire is a resolved item channel between two nodes. Cached wires were
// synthesized from a cache-slot producer/consumer pair and carry the
// slot name for observability.
type Wire struct {
	From     core.NodeID
	To       core.NodeID
	FromPort string
	ToPort   string
	Cached   bool
	Slot     string
}

// Graph is the executable form of a Definition: compiled nodes, their
// wires, and a topological order. A Graph is immutable after compile
// and owns the provider clients it connected.
type Graph struct {
	name    string
	nodes   map[core.NodeID]*Node
	order   []core.NodeID
	wires   []Wire
	clients []provider.Client
}

// Name returns the definition name the graph was compiled from.
func (g *Graph) Name() string {
	return g.name
}

// Node returns the compiled node for an id.
func (g *Graph) Node(id core.NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Order returns the node ids in topological order. The slice is shared;
// callers must not modify it.
func (g *Graph) Order() []core.NodeID {
	return g.order
}

// Wires returns every resolved wire. The slice is shared; callers must
// not modify it.
func (g *Graph) Wires() []Wire {
	return g.wires
}

// Len returns the number of compiled nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Inputs returns the wires delivering into the given node.
func (g *Graph) Inputs(id core.NodeID) []Wire {
	var in []Wire
	for _, w := range g.wires {
		if w.To == id {
			in = append(in, w)
		}
	}
	return in
}

// Outputs returns the wires leaving the given node.
func (g *Graph) Outputs(id core.NodeID) []Wire {
	var out []Wire
	for _, w := range g.wires {
		if w.From == id {
			out = append(out, w)
		}
	}
	return out
}

// Close releases every provider client the compile opened. Safe to call
// once per graph; the graph must not be run afterwards.
func (g *Graph) Close() error {
	var errs []error
	for _, c := range g.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
