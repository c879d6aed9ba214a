package nodekit

import (
	"encoding/json"
	"fmt"

	"github.com/evalgo/flowengine/board"
	"github.com/evalgo/flowengine/node"
	"github.com/evalgo/flowengine/pin"
	"github.com/evalgo/flowengine/registry"
)

// PrintLogic is impure: it is driven by an Execution input, logs its
// string input at info level, then activates its own Execution output so
// it can sit mid-chain as well as at the end of one.
type PrintLogic struct{}

func (l *PrintLogic) Template() *node.Node {
	n := node.New("", "print")
	n.AddPin(&pin.Pin{ID: "in", Name: "in", Direction: pin.DirectionInput, Kind: pin.KindExecution})
	n.AddPin(&pin.Pin{ID: "s_in", Name: "s_in", Direction: pin.DirectionInput, Kind: pin.KindString})
	n.AddPin(&pin.Pin{ID: "then", Name: "then", Direction: pin.DirectionOutput, Kind: pin.KindExecution})
	return n
}

func (l *PrintLogic) Run(ctx registry.Runner) error {
	raw, err := ctx.EvaluatePinRaw("s_in")
	if err != nil {
		return fmt.Errorf("nodekit: print: pin s_in: %w", err)
	}
	var s string
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("nodekit: print: decode s_in: %w", err)
		}
	}
	ctx.Log(int(board.LogLevelInfo), s, nil)
	ctx.ActivateExecPin("then")
	return nil
}

func (l *PrintLogic) Reshape(*node.Node, *board.Board) error  { return nil }
func (l *PrintLogic) OnDelete(*node.Node, *board.Board) error { return nil }
