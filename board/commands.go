package board

import (
	"fmt"

	"github.com/evalgo/flowengine/node"
	"github.com/evalgo/flowengine/pin"
	"github.com/evalgo/flowengine/variable"
)

// Effect carries whatever a Command needs to remember to undo itself.
type Effect map[string]any

// CommandState threads caller-supplied context (id allocation, etc.)
// through a batch of commands; currently unused by any concrete command
// but kept so commands can be extended without breaking the interface.
type CommandState struct{}

// Command is one reversible mutation applied to a Board.
type Command interface {
	Execute(b *Board, state *CommandState) (Effect, error)
	Undo(b *Board, state *CommandState, effect Effect) error
}

// AddNode inserts n into the board.
type AddNode struct {
	Node *node.Node
}

func (c *AddNode) Execute(b *Board, _ *CommandState) (Effect, error) {
	if _, exists := b.Nodes[c.Node.ID]; exists {
		return nil, fmt.Errorf("board %s: node %s already exists", b.ID, c.Node.ID)
	}
	b.Nodes[c.Node.ID] = c.Node
	b.Touch()
	return Effect{"id": c.Node.ID}, nil
}

func (c *AddNode) Undo(b *Board, _ *CommandState, effect Effect) error {
	delete(b.Nodes, effect["id"].(string))
	b.Touch()
	return nil
}

// RemoveNode deletes a node and disconnects every wire touching it.
type RemoveNode struct {
	NodeID string
}

func (c *RemoveNode) Execute(b *Board, _ *CommandState) (Effect, error) {
	n, ok := b.Nodes[c.NodeID]
	if !ok {
		return nil, fmt.Errorf("board %s: node %s not found", b.ID, c.NodeID)
	}
	for _, p := range n.Pins {
		disconnectPeers(b, p)
	}
	delete(b.Nodes, c.NodeID)
	b.Touch()
	return Effect{"node": n}, nil
}

func (c *RemoveNode) Undo(b *Board, _ *CommandState, effect Effect) error {
	n := effect["node"].(*node.Node)
	b.Nodes[n.ID] = n
	b.Touch()
	return nil
}

func disconnectPeers(b *Board, p *pin.Pin) {
	for _, peerID := range append(append([]string(nil), p.ConnectedTo...), p.DependsOn...) {
		peer := findPin(b, peerID)
		if peer == nil {
			continue
		}
		peer.ConnectedTo = removeID(peer.ConnectedTo, p.ID)
		peer.DependsOn = removeID(peer.DependsOn, p.ID)
	}
}

func findPin(b *Board, pinID string) *pin.Pin {
	for _, n := range b.Nodes {
		if p, ok := n.Pins[pinID]; ok {
			return p
		}
	}
	return nil
}

func removeID(ids []string, target string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// MoveNode repositions a node on the authoring canvas.
type MoveNode struct {
	NodeID string
	X, Y   float64
}

func (c *MoveNode) Execute(b *Board, _ *CommandState) (Effect, error) {
	n, ok := b.Nodes[c.NodeID]
	if !ok {
		return nil, fmt.Errorf("board %s: node %s not found", b.ID, c.NodeID)
	}
	prev := Effect{"x": n.X, "y": n.Y}
	n.X, n.Y = c.X, c.Y
	b.Touch()
	return prev, nil
}

func (c *MoveNode) Undo(b *Board, _ *CommandState, effect Effect) error {
	n, ok := b.Nodes[c.NodeID]
	if !ok {
		return nil
	}
	n.X = effect["x"].(float64)
	n.Y = effect["y"].(float64)
	b.Touch()
	return nil
}

// Connect wires an output pin to an input pin, validating kind/shape
// compatibility first.
type Connect struct {
	FromPinID string
	ToPinID   string
}

func (c *Connect) Execute(b *Board, _ *CommandState) (Effect, error) {
	from := findPin(b, c.FromPinID)
	to := findPin(b, c.ToPinID)
	if from == nil || to == nil {
		return nil, fmt.Errorf("board %s: connect: unknown pin(s) %s -> %s", b.ID, c.FromPinID, c.ToPinID)
	}
	if from.Direction != pin.DirectionOutput || to.Direction != pin.DirectionInput {
		return nil, fmt.Errorf("board %s: connect: must wire an output to an input", b.ID)
	}
	if !from.CompatibleWith(to) {
		return nil, fmt.Errorf("board %s: connect: pin kind/shape mismatch between %s and %s", b.ID, from.ID, to.ID)
	}
	if !to.IsExecution() && len(to.DependsOn) > 0 {
		return nil, fmt.Errorf("board %s: connect: input pin %s already has a producer", b.ID, to.ID)
	}
	from.ConnectedTo = append(from.ConnectedTo, to.ID)
	to.DependsOn = append(to.DependsOn, from.ID)
	b.Touch()
	return Effect{"from": from.ID, "to": to.ID}, nil
}

func (c *Connect) Undo(b *Board, _ *CommandState, effect Effect) error {
	d := &Disconnect{FromPinID: effect["from"].(string), ToPinID: effect["to"].(string)}
	_, err := d.Execute(b, nil)
	return err
}

// Disconnect removes one wire between two pins.
type Disconnect struct {
	FromPinID string
	ToPinID   string
}

func (c *Disconnect) Execute(b *Board, _ *CommandState) (Effect, error) {
	from := findPin(b, c.FromPinID)
	to := findPin(b, c.ToPinID)
	if from == nil || to == nil {
		return nil, fmt.Errorf("board %s: disconnect: unknown pin(s) %s -> %s", b.ID, c.FromPinID, c.ToPinID)
	}
	from.ConnectedTo = removeID(from.ConnectedTo, to.ID)
	to.DependsOn = removeID(to.DependsOn, from.ID)
	b.Touch()
	return Effect{"from": from.ID, "to": to.ID}, nil
}

func (c *Disconnect) Undo(b *Board, _ *CommandState, effect Effect) error {
	cn := &Connect{FromPinID: effect["from"].(string), ToPinID: effect["to"].(string)}
	_, err := cn.Execute(b, nil)
	return err
}

// UpsertVariable inserts or replaces a board variable declaration.
type UpsertVariable struct {
	Variable *variable.Variable
}

func (c *UpsertVariable) Execute(b *Board, _ *CommandState) (Effect, error) {
	prev := b.Variables[c.Variable.ID]
	b.Variables[c.Variable.ID] = c.Variable
	b.Touch()
	return Effect{"prev": prev, "id": c.Variable.ID}, nil
}

func (c *UpsertVariable) Undo(b *Board, _ *CommandState, effect Effect) error {
	if prev, ok := effect["prev"].(*variable.Variable); ok && prev != nil {
		b.Variables[effect["id"].(string)] = prev
	} else {
		delete(b.Variables, effect["id"].(string))
	}
	b.Touch()
	return nil
}

// UpsertPin adds or replaces a pin on an existing node.
type UpsertPin struct {
	NodeID string
	Pin    *pin.Pin
}

func (c *UpsertPin) Execute(b *Board, _ *CommandState) (Effect, error) {
	n, ok := b.Nodes[c.NodeID]
	if !ok {
		return nil, fmt.Errorf("board %s: node %s not found", b.ID, c.NodeID)
	}
	prev := n.Pins[c.Pin.ID]
	n.AddPin(c.Pin)
	b.Touch()
	return Effect{"node": c.NodeID, "prev": prev, "id": c.Pin.ID}, nil
}

func (c *UpsertPin) Undo(b *Board, _ *CommandState, effect Effect) error {
	n, ok := b.Nodes[effect["node"].(string)]
	if !ok {
		return nil
	}
	if prev, ok := effect["prev"].(*pin.Pin); ok && prev != nil {
		n.Pins[prev.ID] = prev
	} else {
		delete(n.Pins, effect["id"].(string))
	}
	b.Touch()
	return nil
}

// UpsertComment adds or replaces a canvas comment.
type UpsertComment struct {
	Comment *Comment
}

func (c *UpsertComment) Execute(b *Board, _ *CommandState) (Effect, error) {
	prev := b.Comments[c.Comment.ID]
	b.Comments[c.Comment.ID] = c.Comment
	b.Touch()
	return Effect{"prev": prev, "id": c.Comment.ID}, nil
}

func (c *UpsertComment) Undo(b *Board, _ *CommandState, effect Effect) error {
	if prev, ok := effect["prev"].(*Comment); ok && prev != nil {
		b.Comments[effect["id"].(string)] = prev
	} else {
		delete(b.Comments, effect["id"].(string))
	}
	b.Touch()
	return nil
}

// UpsertLayer adds or replaces a canvas layer.
type UpsertLayer struct {
	Layer *Layer
}

func (c *UpsertLayer) Execute(b *Board, _ *CommandState) (Effect, error) {
	prev := b.Layers[c.Layer.ID]
	b.Layers[c.Layer.ID] = c.Layer
	b.Touch()
	return Effect{"prev": prev, "id": c.Layer.ID}, nil
}

func (c *UpsertLayer) Undo(b *Board, _ *CommandState, effect Effect) error {
	if prev, ok := effect["prev"].(*Layer); ok && prev != nil {
		b.Layers[effect["id"].(string)] = prev
	} else {
		delete(b.Layers, effect["id"].(string))
	}
	b.Touch()
	return nil
}

// PasteGroup inserts a batch of nodes produced by a copy/paste operation as
// a single undoable step.
type PasteGroup struct {
	Nodes []*node.Node
}

func (c *PasteGroup) Execute(b *Board, state *CommandState) (Effect, error) {
	added := make([]string, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		add := &AddNode{Node: n}
		if _, err := add.Execute(b, state); err != nil {
			for _, id := range added {
				delete(b.Nodes, id)
			}
			return nil, fmt.Errorf("paste group: %w", err)
		}
		added = append(added, n.ID)
	}
	return Effect{"ids": added}, nil
}

func (c *PasteGroup) Undo(b *Board, _ *CommandState, effect Effect) error {
	for _, id := range effect["ids"].([]string) {
		delete(b.Nodes, id)
	}
	b.Touch()
	return nil
}
