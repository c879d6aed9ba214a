package registry

import (
	"testing"

	"github.com/evalgo/flowengine/board"
	"github.com/evalgo/flowengine/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLogic struct{}

func (stubLogic) Template() *node.Node                            { return node.New("", "stub") }
func (stubLogic) Run(Runner) error                                { return nil }
func (stubLogic) Reshape(*node.Node, *board.Board) error          { return nil }
func (stubLogic) OnDelete(*node.Node, *board.Board) error         { return nil }

func TestLookupMissing(t *testing.T) {
	r := New()
	_, ok := r.Lookup("missing")
	assert.False(t, ok)
}

func TestPushAndLookup(t *testing.T) {
	r := New()
	r.Push(Registration{Kind: "stub", Factory: func() Logic { return stubLogic{} }})
	logic, ok := r.Lookup("stub")
	require.True(t, ok)
	assert.NotNil(t, logic)
}

func TestFixateRejectsUnknownKind(t *testing.T) {
	b := board.New("b1", "app", "test")
	b.Nodes["n1"] = node.New("n1", "unregistered")
	r := New()
	err := Fixate(b, r)
	require.Error(t, err)
}

func TestHandlesEviction(t *testing.T) {
	h := NewHandles[int]()
	h.Put("a", 1)
	v, ok := h.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	h.Delete("a")
	_, ok = h.Get("a")
	assert.False(t, ok)
}
