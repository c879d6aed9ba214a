// Package node defines the authoring-time node model: a typed unit of
// behavior carrying a set of pins, owned by exactly one board.
package node

import (
	"fmt"

	"github.com/evalgo/flowengine/pin"
)

// Node is the authoring-time representation of one board node. Its Logic
// (the registered behavior for Kind) lives in package registry, never on
// the node itself.
type Node struct {
	ID          string
	Kind        string
	Name        string
	Description string
	Category    string
	Pins        map[string]*pin.Pin
	Start       bool
	LongRunning bool
	LastError   *string
	Comment     string
	X, Y        float64
}

// New creates an empty node of the given kind, ready for pins to be added.
func New(id, kind string) *Node {
	return &Node{
		ID:   id,
		Kind: kind,
		Pins: make(map[string]*pin.Pin),
	}
}

// Pure reports whether the node has no Execution pin, meaning it is
// evaluated on-demand by its consumers rather than through control
// propagation.
func (n *Node) Pure() bool {
	for _, p := range n.Pins {
		if p.IsExecution() {
			return false
		}
	}
	return true
}

// AddPin attaches p to the node, owning it, and keeps p.NodeID consistent.
func (n *Node) AddPin(p *pin.Pin) {
	p.NodeID = n.ID
	n.Pins[p.ID] = p
}

// PinByName returns the first pin matching name and direction, or nil.
func (n *Node) PinByName(name string, dir pin.Direction) *pin.Pin {
	for _, p := range n.Pins {
		if p.Name == name && p.Direction == dir {
			return p
		}
	}
	return nil
}

// PinsByName returns every pin matching name and direction, preserving no
// particular order; used for Execution inputs that merge multiple wires.
func (n *Node) PinsByName(name string, dir pin.Direction) []*pin.Pin {
	var out []*pin.Pin
	for _, p := range n.Pins {
		if p.Name == name && p.Direction == dir {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks structural invariants that do not require board context.
func (n *Node) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("node: empty id")
	}
	if n.Kind == "" {
		return fmt.Errorf("node %s: empty kind", n.ID)
	}
	for id, p := range n.Pins {
		if p.ID != id {
			return fmt.Errorf("node %s: pin map key %q does not match pin id %q", n.ID, id, p.ID)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("node %s: %w", n.ID, err)
		}
	}
	return nil
}

// Clone returns a deep copy of n, including its pins, safe to mutate
// independently.
func (n *Node) Clone() *Node {
	c := *n
	c.Pins = make(map[string]*pin.Pin, len(n.Pins))
	for id, p := range n.Pins {
		c.Pins[id] = p.Clone()
	}
	if n.LastError != nil {
		e := *n.LastError
		c.LastError = &e
	}
	return &c
}
