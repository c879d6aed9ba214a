// Package couchstore implements boardstore.Store against CouchDB via
// kivik. No pack repo uses a document database (the closest analogue,
// oriys-nova's internal/store, is Postgres/Redis only), so kivik is named
// here as a deliberate out-of-pack addition to the storage tier rather
// than grounded against it; CouchDB's native revision-on-update and
// startkey/endkey range scan give boardstore.Store's path-based id scheme
// a backend that supports it directly.
package couchstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	kivik "github.com/go-kivik/kivik/v4"
	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/evalgo/flowengine/boardstore"
)

// Store is a CouchDB-backed boardstore.Store. Boards live at document id
// "{boardID}"; node snapshots for a run live at
// "{boardID}/{runID}/{nodeID}", letting ListNodeSnapshots range-scan a
// single run without a secondary index.
type Store struct {
	client *kivik.Client
	db     *kivik.DB
}

// New connects to CouchDB at url (embedding basic auth credentials if user
// and password are non-empty) and opens database, creating it if absent.
func New(ctx context.Context, url, database, user, password string) (*Store, error) {
	connectionURL := url
	if user != "" && password != "" && !strings.Contains(connectionURL, "@") {
		parts := strings.SplitN(connectionURL, "://", 2)
		if len(parts) == 2 {
			connectionURL = fmt.Sprintf("%s://%s:%s@%s", parts[0], user, password, parts[1])
		}
	}

	client, err := kivik.New("couch", connectionURL)
	if err != nil {
		return nil, fmt.Errorf("couchstore: create client: %w", err)
	}

	db := client.DB(database)
	if err := db.Err(); err != nil {
		if err := client.CreateDB(ctx, database); err != nil {
			return nil, fmt.Errorf("couchstore: create database %s: %w", database, err)
		}
		db = client.DB(database)
	}

	return &Store{client: client, db: db}, nil
}

func (s *Store) put(ctx context.Context, docID string, docMap map[string]interface{}) error {
	docMap["_id"] = docID

	var existing map[string]interface{}
	if err := s.db.Get(ctx, docID).ScanDoc(&existing); err == nil {
		if rev, ok := existing["_rev"].(string); ok {
			docMap["_rev"] = rev
		}
	}

	_, err := s.db.Put(ctx, docID, docMap)
	return err
}

// SaveBoard implements boardstore.Store.
func (s *Store) SaveBoard(ctx context.Context, b boardstore.BoardDoc) error {
	docMap := docFromBoard(b)
	if err := s.put(ctx, b.ID, docMap); err != nil {
		return fmt.Errorf("couchstore: save board %s: %w", b.ID, err)
	}
	return nil
}

// GetBoard implements boardstore.Store.
func (s *Store) GetBoard(ctx context.Context, boardID string) (boardstore.BoardDoc, error) {
	var docMap map[string]interface{}
	err := s.db.Get(ctx, boardID).ScanDoc(&docMap)
	if err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return boardstore.BoardDoc{}, fmt.Errorf("couchstore: board not found: %s", boardID)
		}
		return boardstore.BoardDoc{}, fmt.Errorf("couchstore: get board %s: %w", boardID, err)
	}
	return boardFromDoc(docMap), nil
}

// DeleteBoard implements boardstore.Store.
func (s *Store) DeleteBoard(ctx context.Context, boardID string) error {
	var doc map[string]interface{}
	if err := s.db.Get(ctx, boardID).ScanDoc(&doc); err != nil {
		return fmt.Errorf("couchstore: get board %s for deletion: %w", boardID, err)
	}
	rev, _ := doc["_rev"].(string)
	if _, err := s.db.Delete(ctx, boardID, rev); err != nil {
		return fmt.Errorf("couchstore: delete board %s: %w", boardID, err)
	}
	return nil
}

// ListBoards implements boardstore.Store, skipping design documents and
// node-snapshot documents (which carry a "/" in their id).
func (s *Store) ListBoards(ctx context.Context, limit int) ([]boardstore.BoardDoc, error) {
	params := []kivik.Option{kivik.Param("include_docs", true)}
	if limit > 0 {
		params = append(params, kivik.Param("limit", limit))
	}

	rows := s.db.AllDocs(ctx, params...)
	defer rows.Close()

	var boards []boardstore.BoardDoc
	for rows.Next() {
		var docMap map[string]interface{}
		if err := rows.ScanDoc(&docMap); err != nil {
			continue
		}
		docID, ok := docMap["_id"].(string)
		if !ok || strings.HasPrefix(docID, "_") || strings.Contains(docID, "/") {
			continue
		}
		boards = append(boards, boardFromDoc(docMap))
	}
	return boards, rows.Err()
}

// SaveNodeSnapshot implements boardstore.Store.
func (s *Store) SaveNodeSnapshot(ctx context.Context, snap boardstore.NodeSnapshot) error {
	docID := snapshotDocID(snap.BoardID, snap.RunID, snap.NodeID)
	docMap := map[string]interface{}{
		"board_id": snap.BoardID,
		"run_id":   snap.RunID,
		"node_id":  snap.NodeID,
		"status":   snap.Status,
		"inputs":   snap.Inputs,
		"outputs":  snap.Outputs,
	}
	if err := s.put(ctx, docID, docMap); err != nil {
		return fmt.Errorf("couchstore: save node snapshot %s: %w", docID, err)
	}
	return nil
}

// ListNodeSnapshots implements boardstore.Store via a startkey/endkey range
// scan over "{boardID}/{runID}/", the same pattern RuntimeRepository uses
// for ListActionsByWorkflow.
func (s *Store) ListNodeSnapshots(ctx context.Context, boardID, runID string) ([]boardstore.NodeSnapshot, error) {
	prefix := fmt.Sprintf("%s/%s/", boardID, runID)
	rows := s.db.AllDocs(ctx,
		kivik.Param("include_docs", true),
		kivik.Param("startkey", prefix),
		kivik.Param("endkey", prefix+"\ufff0"),
	)
	defer rows.Close()

	var snaps []boardstore.NodeSnapshot
	for rows.Next() {
		var docMap map[string]interface{}
		if err := rows.ScanDoc(&docMap); err != nil {
			continue
		}
		data, err := json.Marshal(docMap)
		if err != nil {
			continue
		}
		var snap struct {
			BoardID string                 `json:"board_id"`
			RunID   string                 `json:"run_id"`
			NodeID  string                 `json:"node_id"`
			Status  string                 `json:"status"`
			Inputs  map[string]interface{} `json:"inputs"`
			Outputs map[string]interface{} `json:"outputs"`
		}
		if err := json.Unmarshal(data, &snap); err != nil {
			continue
		}
		snaps = append(snaps, boardstore.NodeSnapshot(snap))
	}
	return snaps, rows.Err()
}

// DeleteRunSnapshots implements boardstore.Store by deleting every node
// snapshot document under "{boardID}/{runID}/".
func (s *Store) DeleteRunSnapshots(ctx context.Context, boardID, runID string) error {
	snaps, err := s.ListNodeSnapshots(ctx, boardID, runID)
	if err != nil {
		return fmt.Errorf("couchstore: list snapshots for deletion: %w", err)
	}
	for _, snap := range snaps {
		docID := snapshotDocID(snap.BoardID, snap.RunID, snap.NodeID)
		var doc map[string]interface{}
		if err := s.db.Get(ctx, docID).ScanDoc(&doc); err != nil {
			continue
		}
		rev, _ := doc["_rev"].(string)
		if _, err := s.db.Delete(ctx, docID, rev); err != nil {
			return fmt.Errorf("couchstore: delete snapshot %s: %w", docID, err)
		}
	}
	return nil
}

// Close implements boardstore.Store.
func (s *Store) Close() error {
	return s.client.Close()
}

func snapshotDocID(boardID, runID, nodeID string) string {
	return fmt.Sprintf("%s/%s/%s", boardID, runID, nodeID)
}

func docFromBoard(b boardstore.BoardDoc) map[string]interface{} {
	docMap := map[string]interface{}{}
	for k, v := range b.Doc {
		docMap[k] = v
	}
	docMap["app_id"] = b.AppID
	docMap["name"] = b.Name
	docMap["version"] = b.Version
	docMap["stage"] = b.Stage
	return docMap
}

func boardFromDoc(docMap map[string]interface{}) boardstore.BoardDoc {
	doc := boardstore.BoardDoc{Doc: docMap}
	if id, ok := docMap["_id"].(string); ok {
		doc.ID = id
	}
	if appID, ok := docMap["app_id"].(string); ok {
		doc.AppID = appID
	}
	if name, ok := docMap["name"].(string); ok {
		doc.Name = name
	}
	if stage, ok := docMap["stage"].(string); ok {
		doc.Stage = stage
	}
	if v, ok := docMap["version"].([]interface{}); ok && len(v) == 3 {
		for i := 0; i < 3; i++ {
			if n, ok := v[i].(float64); ok {
				doc.Version[i] = int(n)
			}
		}
	}
	return doc
}
