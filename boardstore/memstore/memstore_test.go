package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgo/flowengine/boardstore"
)

func TestSaveGetBoardRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.SaveBoard(ctx, boardstore.BoardDoc{
		ID:    "board1",
		AppID: "app1",
		Name:  "My Board",
		Stage: "dev",
	}))

	got, err := s.GetBoard(ctx, "board1")
	require.NoError(t, err)
	assert.Equal(t, "My Board", got.Name)
	assert.Equal(t, "app1", got.AppID)
}

func TestGetMissingBoardErrors(t *testing.T) {
	s := New()
	_, err := s.GetBoard(context.Background(), "nope")
	assert.Error(t, err)
}

func TestListNodeSnapshotsScopesToRun(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.SaveNodeSnapshot(ctx, boardstore.NodeSnapshot{
		BoardID: "board1", RunID: "run1", NodeID: "n1", Status: "success",
	}))
	require.NoError(t, s.SaveNodeSnapshot(ctx, boardstore.NodeSnapshot{
		BoardID: "board1", RunID: "run1", NodeID: "n2", Status: "success",
	}))
	require.NoError(t, s.SaveNodeSnapshot(ctx, boardstore.NodeSnapshot{
		BoardID: "board1", RunID: "run2", NodeID: "n1", Status: "failed",
	}))

	snaps, err := s.ListNodeSnapshots(ctx, "board1", "run1")
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "n1", snaps[0].NodeID)
	assert.Equal(t, "n2", snaps[1].NodeID)
}

func TestDeleteRunSnapshotsRemovesOnlyThatRun(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.SaveNodeSnapshot(ctx, boardstore.NodeSnapshot{BoardID: "b", RunID: "r1", NodeID: "n1"}))
	require.NoError(t, s.SaveNodeSnapshot(ctx, boardstore.NodeSnapshot{BoardID: "b", RunID: "r2", NodeID: "n1"}))

	require.NoError(t, s.DeleteRunSnapshots(ctx, "b", "r1"))

	r1, err := s.ListNodeSnapshots(ctx, "b", "r1")
	require.NoError(t, err)
	assert.Empty(t, r1)

	r2, err := s.ListNodeSnapshots(ctx, "b", "r2")
	require.NoError(t, err)
	assert.Len(t, r2, 1)
}

func TestListBoardsRespectsLimit(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.SaveBoard(ctx, boardstore.BoardDoc{ID: "a"}))
	require.NoError(t, s.SaveBoard(ctx, boardstore.BoardDoc{ID: "b"}))
	require.NoError(t, s.SaveBoard(ctx, boardstore.BoardDoc{ID: "c"}))

	boards, err := s.ListBoards(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, boards, 2)
}
