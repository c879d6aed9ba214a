// Package board is the authoring-time container for a flow graph: nodes,
// variables, comments, layers and the version/stage metadata that travels
// with a saved board.
package board

import (
	"fmt"
	"time"

	"github.com/evalgo/flowengine/node"
	"github.com/evalgo/flowengine/variable"
)

// Stage is the deployment stage a board snapshot belongs to.
type Stage string

const (
	StageDev     Stage = "dev"
	StageInt     Stage = "int"
	StageQA      Stage = "qa"
	StagePreProd Stage = "preprod"
	StageProd    Stage = "prod"
)

// LogLevel mirrors the verbosity levels a run can be executed at.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

// Comment is a free-floating annotation on the board canvas.
type Comment struct {
	ID     string
	Text   string
	X, Y   float64
	Layer  string
	Width  float64
	Height float64
}

// Layer groups nodes/comments for show/hide in the authoring surface.
type Layer struct {
	ID      string
	Name    string
	Visible bool
}

// Board is the authoring-time flow definition. Pins are owned by their
// Node, never duplicated at board level; Refs holds interned strings
// produced by Cleanup.
type Board struct {
	ID          string
	AppID       string
	Name        string
	Description string

	Nodes     map[string]*node.Node
	Variables map[string]*variable.Variable
	Comments  map[string]*Comment
	Layers    map[string]*Layer

	ViewportX, ViewportY float64
	ViewportZoom         float64

	Version  [3]int
	Stage    Stage
	LogLevel LogLevel

	// Refs interns long strings (descriptions, schema blobs) referenced by
	// hash elsewhere in the board, keyed by the hash Cleanup produced.
	Refs map[string]string

	UpdatedAt time.Time
}

// New creates an empty board ready to receive commands.
func New(id, appID, name string) *Board {
	return &Board{
		ID:           id,
		AppID:        appID,
		Name:         name,
		Nodes:        make(map[string]*node.Node),
		Variables:    make(map[string]*variable.Variable),
		Comments:     make(map[string]*Comment),
		Layers:       make(map[string]*Layer),
		Refs:         make(map[string]string),
		Stage:        StageDev,
		LogLevel:     LogLevelInfo,
		ViewportZoom: 1,
		UpdatedAt:    time.Now(),
	}
}

// Touch bumps UpdatedAt; called by every successful command.
func (b *Board) Touch() {
	b.UpdatedAt = time.Now()
}

// NodeIDs returns the ids of every node on the board, for callers that need
// a stable iteration order (sorted by caller if required).
func (b *Board) NodeIDs() []string {
	ids := make([]string, 0, len(b.Nodes))
	for id := range b.Nodes {
		ids = append(ids, id)
	}
	return ids
}

// StartNodes returns every node marked as a run entry point.
func (b *Board) StartNodes() []*node.Node {
	var out []*node.Node
	for _, n := range b.Nodes {
		if n.Start {
			out = append(out, n)
		}
	}
	return out
}

// Validate checks structural invariants that FixPins does not repair on its
// own, surfacing anything that would make graph.Build fail.
func (b *Board) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("board: empty id")
	}
	for id, n := range b.Nodes {
		if n.ID != id {
			return fmt.Errorf("board %s: node map key %q does not match node id %q", b.ID, id, n.ID)
		}
		if err := n.Validate(); err != nil {
			return fmt.Errorf("board %s: %w", b.ID, err)
		}
	}
	return nil
}
