package nodekit

import (
	"encoding/json"
	"fmt"

	"github.com/evalgo/flowengine/board"
	"github.com/evalgo/flowengine/node"
	"github.com/evalgo/flowengine/pin"
	"github.com/evalgo/flowengine/registry"
)

// AddLogic is a pure node: two integer inputs, one integer output, no
// Execution pins, so consumers pull it on demand rather than it being
// driven by control flow. Left unmemoized on purpose: two consumers
// pulling the same wave each cause a fresh activation.
type AddLogic struct{}

func (l *AddLogic) Template() *node.Node {
	n := node.New("", "add")
	n.AddPin(&pin.Pin{ID: "a", Name: "a", Direction: pin.DirectionInput, Kind: pin.KindInteger, Default: []byte("2")})
	n.AddPin(&pin.Pin{ID: "b", Name: "b", Direction: pin.DirectionInput, Kind: pin.KindInteger, Default: []byte("3")})
	n.AddPin(&pin.Pin{ID: "sum", Name: "sum", Direction: pin.DirectionOutput, Kind: pin.KindInteger})
	return n
}

func (l *AddLogic) Run(ctx registry.Runner) error {
	araw, err := ctx.EvaluatePinRaw("a")
	if err != nil {
		return fmt.Errorf("nodekit: add: pin a: %w", err)
	}
	braw, err := ctx.EvaluatePinRaw("b")
	if err != nil {
		return fmt.Errorf("nodekit: add: pin b: %w", err)
	}

	var a, b int
	if err := json.Unmarshal(araw, &a); err != nil {
		return fmt.Errorf("nodekit: add: decode a: %w", err)
	}
	if err := json.Unmarshal(braw, &b); err != nil {
		return fmt.Errorf("nodekit: add: decode b: %w", err)
	}

	sum, err := json.Marshal(a + b)
	if err != nil {
		return fmt.Errorf("nodekit: add: encode sum: %w", err)
	}
	return ctx.SetPinValueRaw("sum", sum)
}

func (l *AddLogic) Reshape(*node.Node, *board.Board) error  { return nil }
func (l *AddLogic) OnDelete(*node.Node, *board.Board) error { return nil }
