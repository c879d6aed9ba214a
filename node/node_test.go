package node

import (
	"testing"

	"github.com/evalgo/flowengine/pin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPureDetection(t *testing.T) {
	n := New("n1", "add")
	n.AddPin(&pin.Pin{ID: "a", Direction: pin.DirectionInput, Kind: pin.KindInteger})
	assert.True(t, n.Pure())

	n.AddPin(&pin.Pin{ID: "exec", Direction: pin.DirectionInput, Kind: pin.KindExecution})
	assert.False(t, n.Pure())
}

func TestValidateCatchesKeyMismatch(t *testing.T) {
	n := New("n1", "add")
	n.Pins["wrong-key"] = &pin.Pin{ID: "a"}
	require.Error(t, n.Validate())
}

func TestCloneIsDeep(t *testing.T) {
	n := New("n1", "add")
	n.AddPin(&pin.Pin{ID: "a", Name: "a"})
	clone := n.Clone()
	clone.Pins["a"].Name = "changed"
	assert.Equal(t, "a", n.Pins["a"].Name)
}
