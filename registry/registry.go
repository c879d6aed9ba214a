// Package registry maps node kinds to their behavior (Logic) and hosts a
// post-edit fixation pass over a board.
//
// Grounded on oriys-nova's internal/triggers/manager.go Manager: a
// sync.RWMutex-guarded map from a kind string to the implementation
// registered for it (there, trigger type to Connector; here, node kind to
// Logic), generalized from a single register-on-use map to a kind-keyed
// map with atomic reader snapshots so lookups never block a concurrent
// Push.
package registry

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/evalgo/flowengine/board"
	"github.com/evalgo/flowengine/node"
)

// Logic is the behavior registered for one node kind. execctx.Context is
// referenced through the minimal Runner interface below rather than
// imported directly, so registry has no dependency on execctx and
// execctx can depend on registry for Lookup without a cycle.
type Logic interface {
	// Template returns a fresh node instance matching this kind's default
	// pin layout, used when a node of this kind is added to a board.
	Template() *node.Node

	// Run executes the node's behavior against an already-built context.
	Run(ctx Runner) error

	// Reshape normalizes n (e.g. recomputing a variadic pin count) against
	// the rest of the board. It must be idempotent.
	Reshape(n *node.Node, b *board.Board) error

	// OnDelete runs cleanup when n is removed from a board.
	OnDelete(n *node.Node, b *board.Board) error
}

// Runner is the subset of execctx.Context a Logic implementation needs.
// Defined here to break the registry<->execctx import cycle: execctx.Context
// satisfies this interface structurally.
type Runner interface {
	EvaluatePinRaw(name string) ([]byte, error)
	SetPinValueRaw(name string, v []byte) error
	ActivateExecPin(name string)
	DeactivateExecPin(name string)
	Log(level int, message string, payload any)
}

// Factory produces a fresh Logic instance; kept separate from Logic so a
// single registered kind can be instantiated per-node when it carries
// per-node state.
type Factory func() Logic

// Registration pairs a node kind name with its factory.
type Registration struct {
	Kind    string
	Factory Factory
}

// Registry is the process-wide kind -> Logic lookup table. Writes are rare
// (startup-time registration) and guarded by a mutex; reads go through an
// atomic snapshot so concurrent node activation never blocks on the write
// lock.
type Registry struct {
	mu   sync.Mutex
	snap atomic.Value // map[string]Factory
}

// New creates an empty registry.
func New() *Registry {
	r := &Registry{}
	r.snap.Store(map[string]Factory{})
	return r
}

// Push registers one or more kinds, replacing any existing factory for the
// same kind.
func (r *Registry) Push(regs ...Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.snap.Load().(map[string]Factory)
	next := make(map[string]Factory, len(current)+len(regs))
	for k, v := range current {
		next[k] = v
	}
	for _, reg := range regs {
		next[reg.Kind] = reg.Factory
	}
	r.snap.Store(next)
}

// Lookup returns a fresh Logic instance for kind, or false if unregistered.
func (r *Registry) Lookup(kind string) (Logic, bool) {
	factories := r.snap.Load().(map[string]Factory)
	factory, ok := factories[kind]
	if !ok {
		return nil, false
	}
	return factory(), true
}

// Kinds returns every registered kind name.
func (r *Registry) Kinds() []string {
	factories := r.snap.Load().(map[string]Factory)
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	return out
}

// Fixate runs the post-edit fixation pass on b: reshape every node through
// its registered logic, repair dangling pin references, then intern long
// strings into Refs.
func Fixate(b *board.Board, reg *Registry) error {
	for _, n := range b.Nodes {
		logic, ok := reg.Lookup(n.Kind)
		if !ok {
			return fmt.Errorf("board %s: no registered logic for node kind %q", b.ID, n.Kind)
		}
		if err := logic.Reshape(n, b); err != nil {
			return fmt.Errorf("board %s: reshape node %s: %w", b.ID, n.ID, err)
		}
	}
	board.FixPins(b)
	board.Cleanup(b)
	b.Touch()
	return nil
}
