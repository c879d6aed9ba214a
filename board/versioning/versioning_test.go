package versioning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgo/flowengine/board"
	"github.com/evalgo/flowengine/node"
	"github.com/evalgo/flowengine/objectstore/memstore"
)

func TestBumpRollsOverLowerComponents(t *testing.T) {
	assert.Equal(t, [3]int{2, 0, 0}, Bump([3]int{1, 4, 7}, Major))
	assert.Equal(t, [3]int{1, 5, 0}, Bump([3]int{1, 4, 7}, Minor))
	assert.Equal(t, [3]int{1, 4, 8}, Bump([3]int{1, 4, 7}, Patch))
}

func TestFingerprintStableUnderNodeMapOrdering(t *testing.T) {
	b1 := board.New("b1", "app1", "Board")
	b1.Nodes["a"] = node.New("a", "add")
	b1.Nodes["b"] = node.New("b", "print")

	b2 := board.New("b1", "app1", "Board")
	b2.Nodes["b"] = node.New("b", "print")
	b2.Nodes["a"] = node.New("a", "add")

	assert.Equal(t, Fingerprint(b1), Fingerprint(b2))
}

func TestFingerprintChangesWithNodeSet(t *testing.T) {
	b1 := board.New("b1", "app1", "Board")
	b1.Nodes["a"] = node.New("a", "add")

	b2 := board.New("b1", "app1", "Board")
	b2.Nodes["a"] = node.New("a", "add")
	b2.Nodes["c"] = node.New("c", "print")

	assert.NotEqual(t, Fingerprint(b1), Fingerprint(b2))
}

func TestUpsertFirstSaveSetsVersionOneZeroZero(t *testing.T) {
	candidate := board.New("b1", "app1", "Board")
	store := memstore.New()

	require.NoError(t, Upsert(context.Background(), store, nil, candidate, Patch, false))
	assert.Equal(t, [3]int{1, 0, 0}, candidate.Version)
}

func TestUpsertUnchangedFingerprintKeepsVersion(t *testing.T) {
	existing := board.New("b1", "app1", "Board")
	existing.Nodes["a"] = node.New("a", "add")
	existing.Version = [3]int{1, 2, 3}

	candidate := board.New("b1", "app1", "Board")
	candidate.Nodes["a"] = node.New("a", "add")

	store := memstore.New()
	require.NoError(t, Upsert(context.Background(), store, existing, candidate, Patch, false))
	assert.Equal(t, [3]int{1, 2, 3}, candidate.Version)
}

func TestUpsertChangedFingerprintArchivesAndBumps(t *testing.T) {
	existing := board.New("b1", "app1", "Board")
	existing.Nodes["a"] = node.New("a", "add")
	existing.Version = [3]int{1, 0, 0}

	candidate := board.New("b1", "app1", "Board")
	candidate.Nodes["a"] = node.New("a", "add")
	candidate.Nodes["b"] = node.New("b", "print")

	store := memstore.New()
	require.NoError(t, Upsert(context.Background(), store, existing, candidate, Minor, false))
	assert.Equal(t, [3]int{1, 1, 0}, candidate.Version)

	archived, err := store.Get(context.Background(), "apps/app1/versions/b1/1.0.0")
	require.NoError(t, err)
	assert.NotEmpty(t, archived)
}

func TestUpsertForceBumpsEvenWithoutFingerprintChange(t *testing.T) {
	existing := board.New("b1", "app1", "Board")
	existing.Version = [3]int{1, 0, 0}
	candidate := board.New("b1", "app1", "Board")

	store := memstore.New()
	require.NoError(t, Upsert(context.Background(), store, existing, candidate, Major, true))
	assert.Equal(t, [3]int{2, 0, 0}, candidate.Version)
}
