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

func TestCastStringLogicFormatsInteger(t *testing.T) {
	b := boardpkg.New("b1", "app1", "cast")

	n := node.New("cast1", "cast_string")
	n.AddPin(&pin.Pin{ID: "cast1.value", Name: "value", Direction: pin.DirectionInput, Kind: pin.KindGeneric, Default: []byte("5")})
	n.AddPin(&pin.Pin{ID: "cast1.s", Name: "s", Direction: pin.DirectionOutput, Kind: pin.KindString})
	b.Nodes["cast1"] = n

	reg := registry.New()
	Register(reg)

	g, err := graph.Build(b, reg, graph.RunPayload{NodeID: "cast1"}, graph.BuildOptions{})
	require.NoError(t, err)

	rec := tracelog.NewRecorder("run1")
	ctx := execctx.New(g, g.Nodes["cast1"], noopActivator{}, nil, rec, nil)
	require.NoError(t, g.Nodes["cast1"].Logic.Run(ctx))

	raw, ready := g.Pins["cast1.s"].Slot.Get()
	require.True(t, ready)
	assert.Equal(t, `"5"`, string(raw))
}
