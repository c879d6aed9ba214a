// Package pin defines the typed connection points carried by every board
// node: the unit a board wires together and a run evaluates.
package pin

import "fmt"

// Direction distinguishes a pin that receives a value from one that
// produces one.
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// Kind is the data type carried by a pin. Execution is special: it carries
// no value, only control flow between impure nodes.
type Kind string

const (
	KindExecution Kind = "execution"
	KindBoolean   Kind = "boolean"
	KindInteger   Kind = "integer"
	KindFloat     Kind = "float"
	KindByte      Kind = "byte"
	KindString    Kind = "string"
	KindDate      Kind = "date"
	KindPathBuf   Kind = "path_buf"
	KindStruct    Kind = "struct"
	KindGeneric   Kind = "generic"
)

// ValueShape describes the container a pin's value is held in.
type ValueShape string

const (
	ShapeNormal  ValueShape = "normal"
	ShapeArray   ValueShape = "array"
	ShapeHashSet ValueShape = "hash_set"
	ShapeHashMap ValueShape = "hash_map"
)

// Pin is the authoring-time, serializable representation of a connection
// point on a node. Runtime resolution of peers happens in package graph,
// by id, never by embedding a *Pin inside another Pin.
type Pin struct {
	ID         string     `json:"id"`
	NodeID     string     `json:"node_id"`
	Name       string     `json:"name"`
	Direction  Direction  `json:"direction"`
	Kind       Kind       `json:"kind"`
	ValueShape ValueShape `json:"value_shape"`
	SchemaRef  *string    `json:"schema_ref,omitempty"`
	Default    []byte     `json:"default,omitempty"`
	Value      []byte     `json:"value,omitempty"`

	// ConnectedTo holds ids of pins on the opposite side of a wire: for an
	// output, the inputs it feeds. A non-Execution input's single producer
	// is recorded in DependsOn (board.Connect refuses a second one), not
	// here; Execution inputs may carry several entries (a merge point).
	ConnectedTo []string `json:"connected_to,omitempty"`

	// DependsOn mirrors ConnectedTo from the consumer's perspective and is
	// kept in lockstep by board.FixPins: every id here has this pin's id in
	// its own ConnectedTo, and vice versa.
	DependsOn []string `json:"depends_on,omitempty"`

	Index int `json:"index"`
}

// IsExecution reports whether this pin carries control flow rather than a
// value.
func (p *Pin) IsExecution() bool {
	return p.Kind == KindExecution
}

// CompatibleWith reports whether a value produced by other may flow into p.
// Execution only connects to Execution; every other kind must match kind
// and value shape exactly, except KindGeneric which accepts and produces
// any kind/shape pairing.
func (p *Pin) CompatibleWith(other *Pin) bool {
	if p.IsExecution() != other.IsExecution() {
		return false
	}
	if p.IsExecution() {
		return true
	}
	if p.Kind == KindGeneric || other.Kind == KindGeneric {
		return true
	}
	return p.Kind == other.Kind && p.ValueShape == other.ValueShape
}

// Validate checks the pin's own invariants, independent of its peers.
func (p *Pin) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("pin: empty id")
	}
	if p.Direction != DirectionInput && p.Direction != DirectionOutput {
		return fmt.Errorf("pin %s: invalid direction %q", p.ID, p.Direction)
	}
	if p.IsExecution() && len(p.Default) != 0 {
		return fmt.Errorf("pin %s: execution pins cannot carry a default value", p.ID)
	}
	if p.Direction == DirectionOutput && len(p.Default) != 0 {
		return fmt.Errorf("pin %s: output pins cannot carry a default value", p.ID)
	}
	return nil
}

// Clone returns a deep copy safe to mutate independently of p.
func (p *Pin) Clone() *Pin {
	c := *p
	c.Default = append([]byte(nil), p.Default...)
	c.Value = append([]byte(nil), p.Value...)
	c.ConnectedTo = append([]string(nil), p.ConnectedTo...)
	c.DependsOn = append([]string(nil), p.DependsOn...)
	if p.SchemaRef != nil {
		ref := *p.SchemaRef
		c.SchemaRef = &ref
	}
	return &c
}
