// Package memstore is an in-memory boardstore.Store for tests, sparing
// callers a live CouchDB instance for unit coverage of board/run-snapshot
// command logic.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/evalgo/flowengine/boardstore"
)

// Store is a goroutine-safe in-memory boardstore.Store.
type Store struct {
	mu        sync.RWMutex
	boards    map[string]boardstore.BoardDoc
	snapshots map[string]boardstore.NodeSnapshot
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		boards:    make(map[string]boardstore.BoardDoc),
		snapshots: make(map[string]boardstore.NodeSnapshot),
	}
}

// SaveBoard implements boardstore.Store.
func (s *Store) SaveBoard(_ context.Context, b boardstore.BoardDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boards[b.ID] = b
	return nil
}

// GetBoard implements boardstore.Store.
func (s *Store) GetBoard(_ context.Context, boardID string) (boardstore.BoardDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.boards[boardID]
	if !ok {
		return boardstore.BoardDoc{}, fmt.Errorf("memstore: board not found: %s", boardID)
	}
	return b, nil
}

// DeleteBoard implements boardstore.Store.
func (s *Store) DeleteBoard(_ context.Context, boardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.boards, boardID)
	return nil
}

// ListBoards implements boardstore.Store.
func (s *Store) ListBoards(_ context.Context, limit int) ([]boardstore.BoardDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.boards))
	for id := range s.boards {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	out := make([]boardstore.BoardDoc, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.boards[id])
	}
	return out, nil
}

// SaveNodeSnapshot implements boardstore.Store.
func (s *Store) SaveNodeSnapshot(_ context.Context, snap boardstore.NodeSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshotKey(snap.BoardID, snap.RunID, snap.NodeID)] = snap
	return nil
}

// ListNodeSnapshots implements boardstore.Store.
func (s *Store) ListNodeSnapshots(_ context.Context, boardID, runID string) ([]boardstore.NodeSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix := boardID + "/" + runID + "/"
	var out []boardstore.NodeSnapshot
	for key, snap := range s.snapshots {
		if strings.HasPrefix(key, prefix) {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out, nil
}

// DeleteRunSnapshots implements boardstore.Store.
func (s *Store) DeleteRunSnapshots(_ context.Context, boardID, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := boardID + "/" + runID + "/"
	for key := range s.snapshots {
		if strings.HasPrefix(key, prefix) {
			delete(s.snapshots, key)
		}
	}
	return nil
}

// Close implements boardstore.Store.
func (s *Store) Close() error { return nil }

func snapshotKey(boardID, runID, nodeID string) string {
	return fmt.Sprintf("%s/%s/%s", boardID, runID, nodeID)
}
