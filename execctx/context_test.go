package execctx

import (
	"testing"
	"time"

	boardpkg "github.com/evalgo/flowengine/board"
	"github.com/evalgo/flowengine/graph"
	"github.com/evalgo/flowengine/node"
	"github.com/evalgo/flowengine/pin"
	"github.com/evalgo/flowengine/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeActivator struct {
	activated []string
	fail      map[string]bool
}

func (a *fakeActivator) Activate(rn *graph.RuntimeNode) error {
	a.activated = append(a.activated, rn.ID)
	for _, rp := range rn.Pins() {
		if rp.Decl.Direction == pin.DirectionOutput {
			rp.Slot.Set([]byte(`42`))
		}
	}
	if a.fail[rn.ID] {
		return assertError("boom")
	}
	return nil
}

type assertError string

func (e assertError) Error() string { return string(e) }

type passthroughLogic struct{ kind string }

func (l passthroughLogic) Template() *node.Node                     { return node.New("", l.kind) }
func (l passthroughLogic) Run(registry.Runner) error                { return nil }
func (l passthroughLogic) Reshape(*node.Node, *boardpkg.Board) error { return nil }
func (l passthroughLogic) OnDelete(*node.Node, *boardpkg.Board) error {
	return nil
}

func twoNodeFixture(t *testing.T) (*boardpkg.Board, *registry.Registry) {
	t.Helper()
	b := boardpkg.New("b1", "app1", "test")

	src := node.New("src", "const")
	out := &pin.Pin{ID: "src.out", Name: "out", Direction: pin.DirectionOutput, Kind: pin.KindInteger}
	src.AddPin(out)
	b.Nodes["src"] = src

	dst := node.New("dst", "add")
	in := &pin.Pin{ID: "dst.in", Name: "in", Direction: pin.DirectionInput, Kind: pin.KindInteger}
	dst.AddPin(in)
	then := &pin.Pin{ID: "dst.then", Name: "then", Direction: pin.DirectionOutput, Kind: pin.KindExecution}
	dst.AddPin(then)
	b.Nodes["dst"] = dst

	out.ConnectedTo = []string{"dst.in"}
	in.DependsOn = []string{"src.out"}

	reg := registry.New()
	reg.Push(registry.Registration{Kind: "const", Factory: func() registry.Logic { return passthroughLogic{"const"} }})
	reg.Push(registry.Registration{Kind: "add", Factory: func() registry.Logic { return passthroughLogic{"add"} }})
	return b, reg
}

type memCache struct{ m map[string][]byte }

func (c *memCache) Get(key string) ([]byte, bool) { v, ok := c.m[key]; return v, ok }
func (c *memCache) Set(key string, v []byte, _ time.Duration) {
	if c.m == nil {
		c.m = map[string][]byte{}
	}
	c.m[key] = v
}

type memLog struct{ entries []string }

func (l *memLog) Append(nodeID string, level int, message string, payload any) {
	l.entries = append(l.entries, message)
}

func TestEvaluatePinActivatesProducer(t *testing.T) {
	b, reg := twoNodeFixture(t)
	g, err := graph.Build(b, reg, graph.RunPayload{}, graph.BuildOptions{})
	require.NoError(t, err)

	act := &fakeActivator{}
	lg := &memLog{}
	ctx := New(g, g.Nodes["dst"], act, &memCache{}, lg, nil)

	v, err := ctx.EvaluatePinRaw("in")
	require.NoError(t, err)
	assert.Equal(t, "42", string(v))
	assert.Contains(t, act.activated, "src")
}

func TestCacheRoundTrip(t *testing.T) {
	b, reg := twoNodeFixture(t)
	g, _ := graph.Build(b, reg, graph.RunPayload{}, graph.BuildOptions{})
	ctx := New(g, g.Nodes["dst"], &fakeActivator{}, &memCache{}, &memLog{}, nil)

	ctx.SetCache("k", []byte("v"), time.Minute)
	got, ok := ctx.GetCache("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))
}

func TestActivateExecPin(t *testing.T) {
	b, reg := twoNodeFixture(t)
	g, _ := graph.Build(b, reg, graph.RunPayload{}, graph.BuildOptions{})
	ctx := New(g, g.Nodes["dst"], &fakeActivator{}, &memCache{}, &memLog{}, nil)

	ctx.ActivateExecPin("then")
	assert.Contains(t, ctx.ActiveExecPins(), "then")
	ctx.DeactivateExecPin("then")
	assert.NotContains(t, ctx.ActiveExecPins(), "then")
}
