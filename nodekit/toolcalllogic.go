package nodekit

import (
	"fmt"

	"github.com/evalgo/flowengine/board"
	"github.com/evalgo/flowengine/execctx"
	"github.com/evalgo/flowengine/node"
	"github.com/evalgo/flowengine/pin"
	"github.com/evalgo/flowengine/registry"
)

// toolSequence names the Execution output pins ToolCallLogic drives, in
// the fixed order it drives them: one sub-context per pin, never run
// concurrently, so they activate in a single, reproducible order.
var toolSequence = []string{"t1", "t2"}

// ToolCallLogic models a node that hands control to one or more tools in
// sequence, each as a nested activation rather than a normal exec-pin
// handoff left to the scheduler: the scheduler's own Activate runs one
// node with no further successor propagation, which is exactly the
// isolation a tool call needs. Requires a concrete *execctx.Context (not
// just the Runner subset) for CreateSubContext/PushSubContext, which
// registry.Runner deliberately omits to avoid a registry<->execctx import
// cycle.
type ToolCallLogic struct{}

func (l *ToolCallLogic) Template() *node.Node {
	n := node.New("", "tool_call")
	n.AddPin(&pin.Pin{ID: "in", Name: "in", Direction: pin.DirectionInput, Kind: pin.KindExecution})
	n.AddPin(&pin.Pin{ID: "prompt", Name: "prompt", Direction: pin.DirectionInput, Kind: pin.KindString})
	n.AddPin(&pin.Pin{ID: "t1", Name: "t1", Direction: pin.DirectionOutput, Kind: pin.KindExecution})
	n.AddPin(&pin.Pin{ID: "t2", Name: "t2", Direction: pin.DirectionOutput, Kind: pin.KindExecution})
	n.AddPin(&pin.Pin{ID: "response", Name: "response", Direction: pin.DirectionOutput, Kind: pin.KindString})
	n.AddPin(&pin.Pin{ID: "then", Name: "then", Direction: pin.DirectionOutput, Kind: pin.KindExecution})
	return n
}

func (l *ToolCallLogic) Run(ctx registry.Runner) error {
	ec, ok := ctx.(*execctx.Context)
	if !ok {
		return fmt.Errorf("nodekit: tool_call: requires *execctx.Context, got %T", ctx)
	}

	for _, name := range toolSequence {
		rp, ok := ec.PinByName(name, pin.DirectionOutput)
		if !ok {
			continue
		}
		for _, peer := range rp.ConnectedTo() {
			child := ec.CreateSubContext(peer.Node())
			if err := ec.PushSubContext(child); err != nil {
				return fmt.Errorf("nodekit: tool_call: sub-context %s on pin %s: %w", peer.Node().ID, name, err)
			}
			ec.Log(int(board.LogLevelDebug), fmt.Sprintf("tool call %s completed", peer.Node().ID), nil)
		}
	}

	if err := execctx.SetPinValue(ec, "response", "ok"); err != nil {
		return fmt.Errorf("nodekit: tool_call: set response: %w", err)
	}
	ec.ActivateExecPin("then")
	return nil
}

func (l *ToolCallLogic) Reshape(*node.Node, *board.Board) error  { return nil }
func (l *ToolCallLogic) OnDelete(*node.Node, *board.Board) error { return nil }
