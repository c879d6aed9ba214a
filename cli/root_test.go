package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgo/flowengine/board"
	"github.com/evalgo/flowengine/boardstore"
	"github.com/evalgo/flowengine/node"
	"github.com/evalgo/flowengine/objectstore"
	"github.com/evalgo/flowengine/scheduler"
)

func TestSeedNodeIDsPrefersNamedNode(t *testing.T) {
	b := &board.Board{Nodes: map[string]*node.Node{
		"n1": {ID: "n1", Start: true},
		"n2": {ID: "n2"},
	}}

	ids, err := seedNodeIDs(b, "n2")
	require.NoError(t, err)
	assert.Equal(t, []string{"n2"}, ids)
}

func TestSeedNodeIDsRejectsUnknownNamedNode(t *testing.T) {
	b := &board.Board{Nodes: map[string]*node.Node{"n1": {ID: "n1"}}}

	_, err := seedNodeIDs(b, "missing")
	assert.Error(t, err)
}

func TestSeedNodeIDsFallsBackToStartNodes(t *testing.T) {
	b := &board.Board{ID: "b1", Nodes: map[string]*node.Node{
		"n1": {ID: "n1", Start: true},
		"n2": {ID: "n2", Start: false},
		"n3": {ID: "n3", Start: true},
	}}

	ids, err := seedNodeIDs(b, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"n1", "n3"}, ids)
}

func TestSeedNodeIDsErrorsWhenNoStartNodes(t *testing.T) {
	b := &board.Board{ID: "b1", Nodes: map[string]*node.Node{"n1": {ID: "n1"}}}

	_, err := seedNodeIDs(b, "")
	assert.Error(t, err)
}

type fakeBoardStore struct {
	boards map[string]boardstore.BoardDoc
	getErr error
}

func (f *fakeBoardStore) SaveBoard(ctx context.Context, b boardstore.BoardDoc) error { return nil }
func (f *fakeBoardStore) GetBoard(ctx context.Context, boardID string) (boardstore.BoardDoc, error) {
	if f.getErr != nil {
		return boardstore.BoardDoc{}, f.getErr
	}
	doc, ok := f.boards[boardID]
	if !ok {
		return boardstore.BoardDoc{}, errors.New("not found")
	}
	return doc, nil
}
func (f *fakeBoardStore) DeleteBoard(ctx context.Context, boardID string) error { return nil }
func (f *fakeBoardStore) ListBoards(ctx context.Context, limit int) ([]boardstore.BoardDoc, error) {
	return nil, nil
}
func (f *fakeBoardStore) SaveNodeSnapshot(ctx context.Context, snap boardstore.NodeSnapshot) error {
	return nil
}
func (f *fakeBoardStore) ListNodeSnapshots(ctx context.Context, boardID, runID string) ([]boardstore.NodeSnapshot, error) {
	return nil, nil
}
func (f *fakeBoardStore) DeleteRunSnapshots(ctx context.Context, boardID, runID string) error {
	return nil
}
func (f *fakeBoardStore) Close() error { return nil }

func TestLoadBoardUnmarshalsDocIntoBoard(t *testing.T) {
	store := &fakeBoardStore{boards: map[string]boardstore.BoardDoc{
		"b1": {
			ID:    "b1",
			AppID: "app1",
			Doc: map[string]interface{}{
				"ID":    "b1",
				"AppID": "app1",
				"Name":  "demo",
			},
		},
	}}

	b, err := loadBoard(context.Background(), store, "b1")
	require.NoError(t, err)
	assert.Equal(t, "b1", b.ID)
	assert.Equal(t, "app1", b.AppID)
	assert.Equal(t, "demo", b.Name)
}

func TestLoadBoardPropagatesStoreError(t *testing.T) {
	store := &fakeBoardStore{getErr: errors.New("boom")}

	_, err := loadBoard(context.Background(), store, "missing")
	assert.Error(t, err)
}

type fakeObjectStore struct {
	puts map[string][]byte
}

func (f *fakeObjectStore) Get(ctx context.Context, path string) ([]byte, error) { return nil, nil }
func (f *fakeObjectStore) Put(ctx context.Context, path string, body []byte) error {
	if f.puts == nil {
		f.puts = map[string][]byte{}
	}
	f.puts[path] = body
	return nil
}
func (f *fakeObjectStore) PutMultipart(ctx context.Context, path string, body io.Reader) error {
	return nil
}
func (f *fakeObjectStore) Delete(ctx context.Context, path string) error { return nil }
func (f *fakeObjectStore) List(ctx context.Context, prefix string) ([]objectstore.ObjectInfo, error) {
	return nil, nil
}
func (f *fakeObjectStore) Head(ctx context.Context, path string) (objectstore.ObjectInfo, error) {
	return objectstore.ObjectInfo{}, nil
}
func (f *fakeObjectStore) Sign(ctx context.Context, method, path string, ttl time.Duration) (string, error) {
	return "", nil
}

func TestArchiveResultWritesResultJSONUnderRunResultPath(t *testing.T) {
	objects := &fakeObjectStore{}

	err := archiveResult(context.Background(), objects, "app1", "board1", "run1", scheduler.StatusSuccess, nil, 2*time.Second)
	require.NoError(t, err)

	body, ok := objects.puts[objectstore.RunResultPath("app1", "board1", "run1")]
	require.True(t, ok)

	var res runResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, "run1", res.RunID)
	assert.Equal(t, string(scheduler.StatusSuccess), res.Status)
	assert.Empty(t, res.Error)
}

func TestArchiveResultRecordsRunError(t *testing.T) {
	objects := &fakeObjectStore{}

	err := archiveResult(context.Background(), objects, "app1", "board1", "run1", scheduler.StatusFailed, errors.New("node exploded"), time.Second)
	require.NoError(t, err)

	body := objects.puts[objectstore.RunResultPath("app1", "board1", "run1")]
	var res runResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, "node exploded", res.Error)
}

