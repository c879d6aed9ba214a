// Package graph lowers a board.Board snapshot into an ExecutionGraph: the
// runtime structure a scheduler actually drives. Peers are resolved by id
// through the owning graph rather than held as direct pointers to each
// other, since Go has no raw weak references and runtime nodes/pins must
// not keep each other alive in a cycle.
//
// Grounded on oriys-nova's internal/workflow/dag.go ValidateDAG (edge/
// cycle validation via Kahn's-algorithm topological sort over node keys),
// repurposed from node-to-node edge validation to pin pull-dependency
// closures.
package graph

import (
	"fmt"

	"github.com/evalgo/flowengine/board"
	"github.com/evalgo/flowengine/node"
	"github.com/evalgo/flowengine/pin"
	"github.com/evalgo/flowengine/registry"
	"github.com/evalgo/flowengine/variable"
)

// ValueSlot holds one pin's current value plus whether it has ever been
// set, so PinNotReady can be distinguished from "set to the zero value".
type ValueSlot struct {
	value []byte
	ready bool
}

// Get returns the slot's value and readiness.
func (s *ValueSlot) Get() ([]byte, bool) {
	return s.value, s.ready
}

// Set stores v and marks the slot ready.
func (s *ValueSlot) Set(v []byte) {
	s.value = v
	s.ready = true
}

// RuntimePin is the runtime counterpart of pin.Pin. Peer pins are resolved
// lazily through Graph.Pins by id.
type RuntimePin struct {
	ID     string
	NodeID string
	Decl   *pin.Pin
	Slot   *ValueSlot

	graph *ExecutionGraph
}

// ConnectedTo resolves this pin's wired peers by id.
func (rp *RuntimePin) ConnectedTo() []*RuntimePin {
	return rp.graph.resolveAll(rp.Decl.ConnectedTo)
}

// DependsOn resolves this pin's producers by id.
func (rp *RuntimePin) DependsOn() []*RuntimePin {
	return rp.graph.resolveAll(rp.Decl.DependsOn)
}

// Node resolves the owning node by id.
func (rp *RuntimePin) Node() *RuntimeNode {
	return rp.graph.Nodes[rp.NodeID]
}

// RuntimeNode is the runtime counterpart of node.Node: an immutable clone
// taken at build time, so in-flight runs are never disturbed by further
// authoring edits to the live board.
type RuntimeNode struct {
	ID        string
	Snapshot  *node.Node
	PinIDs    []string
	Logic     registry.Logic
	NameIndex map[string][]*RuntimePin

	graph *ExecutionGraph
}

// Pins returns every runtime pin owned by this node.
func (rn *RuntimeNode) Pins() []*RuntimePin {
	out := make([]*RuntimePin, 0, len(rn.PinIDs))
	for _, id := range rn.PinIDs {
		out = append(out, rn.graph.Pins[id])
	}
	return out
}

// PinByID resolves a single pin owned by this node.
func (rn *RuntimeNode) PinByID(id string) (*RuntimePin, bool) {
	rp, ok := rn.graph.Pins[id]
	if !ok || rp.NodeID != rn.ID {
		return nil, false
	}
	return rp, true
}

// ExecutionGraph is the full runtime lowering of one board snapshot,
// scoped to a single run.
type ExecutionGraph struct {
	Nodes     map[string]*RuntimeNode
	Pins      map[string]*RuntimePin
	Variables map[string]*variable.RuntimeVariable

	// Dependencies holds, per pure node id, the reverse-topological transitive
	// pure predecessors, precomputed only when BuildOptions.PrecomputeDependencies
	// is set.
	Dependencies map[string][]*RuntimeNode

	// Seed is the node id the triggering RunPayload named, or empty if the
	// board's Start nodes should seed the run instead.
	Seed string
}

func (g *ExecutionGraph) resolveAll(ids []string) []*RuntimePin {
	out := make([]*RuntimePin, 0, len(ids))
	for _, id := range ids {
		if rp, ok := g.Pins[id]; ok {
			out = append(out, rp)
		}
	}
	return out
}

// RunPayload names the entry point and optional seed value for a run.
type RunPayload struct {
	NodeID string
	Value  *[]byte
}

// BuildOptions controls optional, more expensive precomputation.
type BuildOptions struct {
	PrecomputeDependencies bool
}

// Build lowers b into a fresh ExecutionGraph. Node kinds must all be
// registered in reg; any dangling pin reference surviving board.FixPins is
// a programming error in the caller and is reported rather than silently
// skipped.
func Build(b *board.Board, reg *registry.Registry, payload RunPayload, opts BuildOptions) (*ExecutionGraph, error) {
	g := &ExecutionGraph{
		Nodes:     make(map[string]*RuntimeNode, len(b.Nodes)),
		Pins:      make(map[string]*RuntimePin),
		Variables: make(map[string]*variable.RuntimeVariable, len(b.Variables)),
		Seed:      payload.NodeID,
	}

	for id, decl := range b.Variables {
		g.Variables[id] = variable.NewRuntimeVariable(decl)
	}

	for id, n := range b.Nodes {
		logic, ok := reg.Lookup(n.Kind)
		if !ok {
			return nil, fmt.Errorf("graph: board %s: unknown node kind %q for node %s", b.ID, n.Kind, id)
		}
		clone := n.Clone()
		pinIDs := make([]string, 0, len(clone.Pins))
		for pid := range clone.Pins {
			pinIDs = append(pinIDs, pid)
		}
		g.Nodes[id] = &RuntimeNode{
			ID:        id,
			Snapshot:  clone,
			PinIDs:    pinIDs,
			Logic:     logic,
			NameIndex: make(map[string][]*RuntimePin),
			graph:     g,
		}
	}

	for nid, rn := range g.Nodes {
		for pid, decl := range rn.Snapshot.Pins {
			rp := &RuntimePin{
				ID:     pid,
				NodeID: nid,
				Decl:   decl,
				Slot:   &ValueSlot{},
				graph:  g,
			}
			if len(decl.Default) > 0 {
				rp.Slot.Set(decl.Default)
			}
			g.Pins[pid] = rp
			rn.NameIndex[decl.Name] = append(rn.NameIndex[decl.Name], rp)
		}
	}

	for _, rp := range g.Pins {
		for _, peerID := range rp.Decl.ConnectedTo {
			if _, ok := g.Pins[peerID]; !ok {
				return nil, fmt.Errorf("graph: dangling pin reference %s -> %s", rp.ID, peerID)
			}
		}
		for _, peerID := range rp.Decl.DependsOn {
			if _, ok := g.Pins[peerID]; !ok {
				return nil, fmt.Errorf("graph: dangling pin reference %s <- %s", rp.ID, peerID)
			}
		}
	}

	if payload.NodeID != "" {
		if _, ok := g.Nodes[payload.NodeID]; !ok {
			return nil, fmt.Errorf("graph: run payload names unknown node %s", payload.NodeID)
		}
		if payload.Value != nil {
			// payload.Value is accepted but not written to any pin of the
			// named node.
		}
	}

	if opts.PrecomputeDependencies {
		deps, err := PureDependencyClosures(g)
		if err != nil {
			return nil, err
		}
		g.Dependencies = deps
	}

	return g, nil
}
