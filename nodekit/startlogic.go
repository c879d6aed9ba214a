package nodekit

import (
	"github.com/evalgo/flowengine/board"
	"github.com/evalgo/flowengine/node"
	"github.com/evalgo/flowengine/pin"
	"github.com/evalgo/flowengine/registry"
)

// StartLogic is the entry trigger: it carries no inputs and activates its
// single Execution output unconditionally whenever the scheduler seeds it,
// the role played by "start" across every linear-chain scenario.
type StartLogic struct{}

func (l *StartLogic) Template() *node.Node {
	n := node.New("", "start")
	n.Start = true
	n.AddPin(&pin.Pin{ID: "then", Name: "then", Direction: pin.DirectionOutput, Kind: pin.KindExecution})
	return n
}

func (l *StartLogic) Run(ctx registry.Runner) error {
	ctx.ActivateExecPin("then")
	return nil
}

func (l *StartLogic) Reshape(*node.Node, *board.Board) error  { return nil }
func (l *StartLogic) OnDelete(*node.Node, *board.Board) error { return nil }
