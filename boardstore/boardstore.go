// Package boardstore is the durable home for board.Board documents and the
// per-run node-activation snapshots a run leaves behind. No pack example
// runs a document database, so the storage tier here is an out-of-pack
// choice (couchstore, below); the path-based id scheme it uses ("{board}"
// for the board itself, "{board}/{run}/{node}" for a run's node
// snapshots) generalizes the string-prefix key namespacing oriys-nova's
// internal/store/redis.go uses (funcKeyPrefix/funcListKey) into a scheme
// that also supports range scans.
package boardstore

import "context"

// NodeSnapshot is the per-node record a run leaves behind: the state of one
// node's pins after it last ran, keyed under its owning board and run.
type NodeSnapshot struct {
	BoardID string
	RunID   string
	NodeID  string
	Status  string
	Inputs  map[string]interface{}
	Outputs map[string]interface{}
}

// Store persists board.Board documents and the NodeSnapshots a run produces.
// Implementations use path-based document ids, mirroring the scheme
// RuntimeRepository uses for workflows and actions.
type Store interface {
	SaveBoard(ctx context.Context, b BoardDoc) error
	GetBoard(ctx context.Context, boardID string) (BoardDoc, error)
	DeleteBoard(ctx context.Context, boardID string) error
	ListBoards(ctx context.Context, limit int) ([]BoardDoc, error)

	SaveNodeSnapshot(ctx context.Context, snap NodeSnapshot) error
	ListNodeSnapshots(ctx context.Context, boardID, runID string) ([]NodeSnapshot, error)
	DeleteRunSnapshots(ctx context.Context, boardID, runID string) error

	Close() error
}

// BoardDoc is the wire shape a board.Board is persisted as: the store
// package does not import package board to avoid a dependency from a
// low-level persistence adapter back up to the authoring model, so callers
// marshal a board.Board into this shape (or back) at the boundary.
type BoardDoc struct {
	ID      string
	AppID   string
	Name    string
	Version [3]int
	Stage   string
	Doc     map[string]interface{}
}
