package scheduler

import (
	"context"
	"testing"

	boardpkg "github.com/evalgo/flowengine/board"
	"github.com/evalgo/flowengine/graph"
	"github.com/evalgo/flowengine/node"
	"github.com/evalgo/flowengine/pin"
	"github.com/evalgo/flowengine/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startLogic activates its Execution output unconditionally, modeling an
// entry node with no inputs.
type startLogic struct{}

func (startLogic) Template() *node.Node { return node.New("", "start") }
func (startLogic) Run(ctx registry.Runner) error {
	ctx.ActivateExecPin("then")
	return nil
}
func (startLogic) Reshape(*node.Node, *boardpkg.Board) error  { return nil }
func (startLogic) OnDelete(*node.Node, *boardpkg.Board) error { return nil }

// countLogic records every activation by node id into a shared log, for
// asserting wave ordering and exec propagation.
type countLogic struct {
	id    string
	calls *[]string
}

func (l countLogic) Template() *node.Node { return node.New("", "count") }
func (l countLogic) Run(ctx registry.Runner) error {
	*l.calls = append(*l.calls, l.id)
	return nil
}
func (l countLogic) Reshape(*node.Node, *boardpkg.Board) error  { return nil }
func (l countLogic) OnDelete(*node.Node, *boardpkg.Board) error { return nil }

// failLogic always errors, for exercising the DependencyFailed/
// ExecutionFailed path.
type failLogic struct{}

func (failLogic) Template() *node.Node                     { return node.New("", "fail") }
func (failLogic) Run(registry.Runner) error                { return assertErr("boom") }
func (failLogic) Reshape(*node.Node, *boardpkg.Board) error { return nil }
func (failLogic) OnDelete(*node.Node, *boardpkg.Board) error {
	return nil
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func execChainBoard(t *testing.T, calls *[]string) (*boardpkg.Board, *registry.Registry) {
	t.Helper()
	b := boardpkg.New("b1", "app1", "chain")

	start := node.New("start", "start")
	startThen := &pin.Pin{ID: "start.then", Name: "then", Direction: pin.DirectionOutput, Kind: pin.KindExecution}
	start.AddPin(startThen)
	start.Start = true
	b.Nodes["start"] = start

	mid := node.New("mid", "count")
	midIn := &pin.Pin{ID: "mid.in", Name: "in", Direction: pin.DirectionInput, Kind: pin.KindExecution}
	mid.AddPin(midIn)
	b.Nodes["mid"] = mid

	startThen.ConnectedTo = []string{"mid.in"}
	midIn.ConnectedTo = []string{"start.then"}

	reg := registry.New()
	reg.Push(registry.Registration{Kind: "start", Factory: func() registry.Logic { return startLogic{} }})
	reg.Push(registry.Registration{Kind: "count", Factory: func() registry.Logic { return countLogic{id: "mid", calls: calls} }})
	return b, reg
}

func TestRunDrivesExecChainToCompletion(t *testing.T) {
	var calls []string
	b, reg := execChainBoard(t, &calls)
	g, err := graph.Build(b, reg, graph.RunPayload{NodeID: "start"}, graph.BuildOptions{})
	require.NoError(t, err)

	run := NewRun("run1", g, nil, nil, nil, nil, 0)
	status, err := run.Run(context.Background(), []string{"start"}, 1)

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, status)
	assert.Equal(t, []string{"mid"}, calls)
}

func TestRunExecutionFailurePropagatesFlowError(t *testing.T) {
	b := boardpkg.New("b1", "app1", "fail-chain")

	start := node.New("start", "start")
	startThen := &pin.Pin{ID: "start.then", Name: "then", Direction: pin.DirectionOutput, Kind: pin.KindExecution}
	start.AddPin(startThen)
	start.Start = true
	b.Nodes["start"] = start

	boom := node.New("boom", "fail")
	boomIn := &pin.Pin{ID: "boom.in", Name: "in", Direction: pin.DirectionInput, Kind: pin.KindExecution}
	boom.AddPin(boomIn)
	b.Nodes["boom"] = boom

	startThen.ConnectedTo = []string{"boom.in"}
	boomIn.ConnectedTo = []string{"start.then"}

	reg := registry.New()
	reg.Push(registry.Registration{Kind: "start", Factory: func() registry.Logic { return startLogic{} }})
	reg.Push(registry.Registration{Kind: "fail", Factory: func() registry.Logic { return failLogic{} }})
	g, err := graph.Build(b, reg, graph.RunPayload{NodeID: "start"}, graph.BuildOptions{})
	require.NoError(t, err)

	run := NewRun("run6", g, nil, nil, nil, nil, 0)
	status, err := run.Run(context.Background(), []string{"start"}, 1)

	require.Error(t, err)
	var flowErr *FlowError
	require.ErrorAs(t, err, &flowErr)
	assert.Equal(t, KindExecutionFailed, flowErr.Kind)
	assert.Equal(t, "boom", flowErr.NodeID)
	assert.Equal(t, StatusFailed, status)
}

func TestRunFailsOnUnknownSeedNode(t *testing.T) {
	b := boardpkg.New("b1", "app1", "stall")
	reg := registry.New()
	reg.Push(registry.Registration{Kind: "missing", Factory: func() registry.Logic { return startLogic{} }})
	g, err := graph.Build(b, reg, graph.RunPayload{}, graph.BuildOptions{})
	require.NoError(t, err)

	run := NewRun("run2", g, nil, nil, nil, nil, 0)
	status, err := run.Run(context.Background(), []string{"does-not-exist"}, 1)

	require.Error(t, err)
	assert.Equal(t, StatusFailed, status)
}

// TestRunFixpointCatchesExecSelfLoop exercises a node whose Execution
// output feeds its own Execution input: the stack converges to the same
// single-element content every wave, so the hash-based fixpoint detector
// must fail the run rather than spinning forever.
func TestRunFixpointCatchesExecSelfLoop(t *testing.T) {
	b := boardpkg.New("b1", "app1", "recurse")
	n := node.New("self", "loop")
	then := &pin.Pin{ID: "self.then", Name: "then", Direction: pin.DirectionOutput, Kind: pin.KindExecution}
	in := &pin.Pin{ID: "self.in", Name: "in", Direction: pin.DirectionInput, Kind: pin.KindExecution}
	n.AddPin(then)
	n.AddPin(in)
	then.ConnectedTo = []string{"self.in"}
	in.ConnectedTo = []string{"self.then"}
	n.Start = true
	b.Nodes["self"] = n

	reg := registry.New()
	reg.Push(registry.Registration{Kind: "loop", Factory: func() registry.Logic { return loopLogic{} }})
	g, err := graph.Build(b, reg, graph.RunPayload{NodeID: "self"}, graph.BuildOptions{})
	require.NoError(t, err)

	run := NewRun("run3", g, nil, nil, nil, nil, 0)
	status, err := run.Run(context.Background(), []string{"self"}, 4)

	require.Error(t, err)
	assert.Equal(t, StatusFailed, status)
}

// loopLogic always re-activates its own Execution output, modeling a
// self-recursive node.
type loopLogic struct{}

func (loopLogic) Template() *node.Node { return node.New("", "loop") }
func (loopLogic) Run(ctx registry.Runner) error {
	ctx.ActivateExecPin("then")
	return nil
}
func (loopLogic) Reshape(*node.Node, *boardpkg.Board) error  { return nil }
func (loopLogic) OnDelete(*node.Node, *boardpkg.Board) error { return nil }

// TestActivateConcurrencyLimitBreaksPullRecursion exercises two pure nodes
// whose input pins depend on each other: pulling one's value recurses
// through the other via EvaluatePinRaw's on-demand activation, and without
// the per-node entry guard this would recurse forever.
func TestActivateConcurrencyLimitBreaksPullRecursion(t *testing.T) {
	b := boardpkg.New("b1", "app1", "mutual-pull")

	a := node.New("a", "mutual")
	aIn := &pin.Pin{ID: "a.in", Name: "in", Direction: pin.DirectionInput, Kind: pin.KindInteger}
	aOut := &pin.Pin{ID: "a.out", Name: "out", Direction: pin.DirectionOutput, Kind: pin.KindInteger}
	a.AddPin(aIn)
	a.AddPin(aOut)
	b.Nodes["a"] = a

	bn := node.New("b", "mutual")
	bIn := &pin.Pin{ID: "b.in", Name: "in", Direction: pin.DirectionInput, Kind: pin.KindInteger}
	bOut := &pin.Pin{ID: "b.out", Name: "out", Direction: pin.DirectionOutput, Kind: pin.KindInteger}
	bn.AddPin(bIn)
	bn.AddPin(bOut)
	b.Nodes["b"] = bn

	aIn.DependsOn = []string{"b.out"}
	bIn.DependsOn = []string{"a.out"}

	reg := registry.New()
	reg.Push(registry.Registration{Kind: "mutual", Factory: func() registry.Logic { return mutualPullLogic{} }})
	g, err := graph.Build(b, reg, graph.RunPayload{}, graph.BuildOptions{})
	require.NoError(t, err)

	run := NewRun("run5", g, nil, nil, nil, nil, 3)
	err = run.Activate(g.Nodes["a"])

	require.Error(t, err)
}

// mutualPullLogic pulls its own "in" pin, which has no local value,
// forcing EvaluatePinRaw to recurse into the dependency's producer.
type mutualPullLogic struct{}

func (mutualPullLogic) Template() *node.Node { return node.New("", "mutual") }
func (mutualPullLogic) Run(ctx registry.Runner) error {
	_, err := ctx.EvaluatePinRaw("in")
	return err
}
func (mutualPullLogic) Reshape(*node.Node, *boardpkg.Board) error  { return nil }
func (mutualPullLogic) OnDelete(*node.Node, *boardpkg.Board) error { return nil }

func TestHookCompletionEventFiresOnceAfterDrain(t *testing.T) {
	var calls []string
	b, reg := execChainBoard(t, &calls)
	g, err := graph.Build(b, reg, graph.RunPayload{NodeID: "start"}, graph.BuildOptions{})
	require.NoError(t, err)

	run := NewRun("run4", g, nil, nil, nil, nil, 0)

	fired := 0
	run.HookCompletionEvent(func() { fired++ })

	status, err := run.Run(context.Background(), []string{"start"}, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, status)
	assert.Equal(t, 1, fired)
}
