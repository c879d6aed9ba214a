package nodekit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boardpkg "github.com/evalgo/flowengine/board"
	"github.com/evalgo/flowengine/execctx"
	"github.com/evalgo/flowengine/graph"
	"github.com/evalgo/flowengine/node"
	"github.com/evalgo/flowengine/pin"
	"github.com/evalgo/flowengine/registry"
	"github.com/evalgo/flowengine/tracelog"
)

// toolStepLogic stands in for a real tool invocation: it logs its own node
// id so a test can observe both the activation order and that each ran as
// a nested, not a top-level, activation.
type toolStepLogic struct{}

func (l *toolStepLogic) Template() *node.Node { return node.New("", "tool_step") }
func (l *toolStepLogic) Run(ctx registry.Runner) error {
	ctx.Log(int(boardpkg.LogLevelDebug), "step", nil)
	return nil
}
func (l *toolStepLogic) Reshape(*node.Node, *boardpkg.Board) error  { return nil }
func (l *toolStepLogic) OnDelete(*node.Node, *boardpkg.Board) error { return nil }

func toolCallBoard() (*boardpkg.Board, *registry.Registry) {
	b := boardpkg.New("b1", "app1", "toolcall")

	call := node.New("call", "tool_call")
	callIn := &pin.Pin{ID: "call.in", Name: "in", Direction: pin.DirectionInput, Kind: pin.KindExecution}
	callPrompt := &pin.Pin{ID: "call.prompt", Name: "prompt", Direction: pin.DirectionInput, Kind: pin.KindString}
	callT1 := &pin.Pin{ID: "call.t1", Name: "t1", Direction: pin.DirectionOutput, Kind: pin.KindExecution}
	callT2 := &pin.Pin{ID: "call.t2", Name: "t2", Direction: pin.DirectionOutput, Kind: pin.KindExecution}
	callResponse := &pin.Pin{ID: "call.response", Name: "response", Direction: pin.DirectionOutput, Kind: pin.KindString}
	callThen := &pin.Pin{ID: "call.then", Name: "then", Direction: pin.DirectionOutput, Kind: pin.KindExecution}
	call.AddPin(callIn)
	call.AddPin(callPrompt)
	call.AddPin(callT1)
	call.AddPin(callT2)
	call.AddPin(callResponse)
	call.AddPin(callThen)
	b.Nodes["call"] = call

	t1 := node.New("t1", "tool_step")
	t1In := &pin.Pin{ID: "t1.in", Name: "in", Direction: pin.DirectionInput, Kind: pin.KindExecution}
	t1.AddPin(t1In)
	b.Nodes["t1"] = t1

	t2 := node.New("t2", "tool_step")
	t2In := &pin.Pin{ID: "t2.in", Name: "in", Direction: pin.DirectionInput, Kind: pin.KindExecution}
	t2.AddPin(t2In)
	b.Nodes["t2"] = t2

	callT1.ConnectedTo = []string{"t1.in"}
	t1In.ConnectedTo = []string{"call.t1"}
	callT2.ConnectedTo = []string{"t2.in"}
	t2In.ConnectedTo = []string{"call.t2"}

	reg := registry.New()
	Register(reg)
	reg.Push(registry.Registration{Kind: "tool_step", Factory: func() registry.Logic { return &toolStepLogic{} }})
	return b, reg
}

func TestToolCallLogicActivatesSubContextsInOrder(t *testing.T) {
	b, reg := toolCallBoard()
	g, err := graph.Build(b, reg, graph.RunPayload{NodeID: "call"}, graph.BuildOptions{})
	require.NoError(t, err)

	rec := tracelog.NewRecorder("run1")
	act := &recordingActivator{graph: g, log: rec}
	ctx := execctx.New(g, g.Nodes["call"], act, nil, rec, nil)
	require.NoError(t, g.Nodes["call"].Logic.Run(ctx))

	logs := rec.Logs()
	require.Len(t, logs, 4)
	assert.Equal(t, "t1", logs[0].NodeID)
	assert.Equal(t, "step", logs[0].Message)
	assert.Equal(t, "call", logs[1].NodeID)
	assert.Equal(t, "t2", logs[2].NodeID)
	assert.Equal(t, "step", logs[2].Message)
	assert.Equal(t, "call", logs[3].NodeID)

	raw, ready := g.Pins["call.response"].Slot.Get()
	require.True(t, ready)
	assert.Equal(t, `"ok"`, string(raw))
	assert.Contains(t, ctx.ActiveExecPins(), "then")
}

// recordingActivator runs a node's own Logic directly, mirroring
// scheduler.Run.Activate's single-node, no-successor-propagation
// contract closely enough for a sub-context test.
type recordingActivator struct {
	graph *graph.ExecutionGraph
	log   execctx.LogSink
}

func (a *recordingActivator) Activate(rn *graph.RuntimeNode) error {
	ctx := execctx.New(a.graph, rn, a, nil, a.log, nil)
	return rn.Logic.Run(ctx)
}
