// Package execctx implements the capabilities a node's Logic sees while
// running: pulling dependency values, setting outputs, propagating
// execution, touching variables and the run-wide cache, logging, emitting
// toasts, and spawning sub-contexts for tool-calling nodes.
//
// Grounded on oriys-nova's internal/checkpoint.Store (mutex-guarded
// map[string]*State keyed by request id, tracking a current execution
// step) and internal/statefn's key-scoped Entry/StateStore abstraction,
// neither copied verbatim: this package is new, combining both textures
// into the pull/push capability surface a node needs.
package execctx

import (
	"fmt"
	"sync"
	"time"

	"github.com/evalgo/flowengine/graph"
	"github.com/evalgo/flowengine/pin"
)

// Activator pulls a pure node's value by running its Logic, honoring the
// same per-node concurrency guard and recursion-break rules as any other
// activation. Implemented by package scheduler; defined here to avoid a
// scheduler<->execctx import cycle.
type Activator interface {
	Activate(rn *graph.RuntimeNode) error
}

// Cache is the run-wide cacheable-resource capability backing
// GetCache/SetCache. Implemented by execctx/rediscache for production use
// and by an in-memory map in tests.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
}

// LogSink receives every LogMessage a node emits.
type LogSink interface {
	Append(nodeID string, level int, message string, payload any)
}

// EventSink carries run progress and ad hoc toast notifications out of the
// engine.
type EventSink interface {
	Toast(message string, level int)
}

// CompletionSink collects completion hooks for invocation once after the
// scheduler drains the whole run, regardless of which node's context
// registered them. Implemented by scheduler.Run; left unset a context
// falls back to running its own hooks on Close, which suits tests and
// standalone sub-context use.
type CompletionSink interface {
	HookCompletionEvent(fn func())
}

// Context is the capability surface exposed to one node activation.
type Context struct {
	Graph      *graph.ExecutionGraph
	Node       *graph.RuntimeNode
	Parent     *Context
	Activator  Activator
	Cache      Cache
	LogSink    LogSink
	EventSink  EventSink
	Completion CompletionSink

	mu           sync.Mutex
	activeExec   map[string]bool
	completeHook []func()
	resources    *ResourceScope
}

// New creates a root context for activating rn.
func New(g *graph.ExecutionGraph, rn *graph.RuntimeNode, activator Activator, cache Cache, logs LogSink, events EventSink) *Context {
	return &Context{
		Graph:      g,
		Node:       rn,
		Activator:  activator,
		Cache:      cache,
		LogSink:    logs,
		EventSink:  events,
		activeExec: make(map[string]bool),
	}
}

// CreateSubContext builds a child context scoped to rn, sharing the parent's
// graph, cache, log sink and event sink. Used by tool-calling nodes that
// need to hand control to another node (or an externally resolved logic)
// while keeping a single trace lineage.
func (c *Context) CreateSubContext(rn *graph.RuntimeNode) *Context {
	child := New(c.Graph, rn, c.Activator, c.Cache, c.LogSink, c.EventSink)
	child.Parent = c
	child.Completion = c.Completion
	return child
}

// SetCompletionSink routes this context's completion hooks to sink instead
// of running them locally on Close. The scheduler calls this on every root
// context it creates so hooks registered by any node in a run are gathered
// into the one run-wide callback list spec'd for hook_completion_event.
func (c *Context) SetCompletionSink(sink CompletionSink) {
	c.Completion = sink
}

// PushSubContext activates child's node immediately through c's Activator
// and returns whatever error the activation produced. The child's
// activation is not attached to c's trace: under the scheduler it is
// recorded as a trace of its own, with no parent/child link.
func (c *Context) PushSubContext(child *Context) error {
	return c.Activator.Activate(child.Node)
}

func (c *Context) inputPin(name string) (*graph.RuntimePin, error) {
	for _, rp := range c.Node.NameIndex[name] {
		if rp.Decl.Direction == pin.DirectionInput {
			return rp, nil
		}
	}
	return nil, fmt.Errorf("execctx: node %s has no input pin named %q", c.Node.ID, name)
}

func (c *Context) outputPin(name string) (*graph.RuntimePin, error) {
	for _, rp := range c.Node.NameIndex[name] {
		if rp.Decl.Direction == pin.DirectionOutput {
			return rp, nil
		}
	}
	return nil, fmt.Errorf("execctx: node %s has no output pin named %q", c.Node.ID, name)
}

// EvaluatePinRaw pulls the named input pin's current value, activating its
// pure producer on demand. Never memoized: a second call in the same wave
// re-activates the producer rather than reusing a cached result, matching
// the documented no-memoization behavior for concurrent consumers pulling
// the same wave.
func (c *Context) EvaluatePinRaw(name string) ([]byte, error) {
	rp, err := c.inputPin(name)
	if err != nil {
		return nil, err
	}
	deps := rp.DependsOn()
	if len(deps) == 0 {
		v, ready := rp.Slot.Get()
		if !ready {
			return nil, &PinNotReadyError{PinID: rp.ID}
		}
		return v, nil
	}
	producer := deps[0]
	producerNode := producer.Node()
	if producerNode.Snapshot.Pure() {
		if err := c.Activator.Activate(producerNode); err != nil {
			return nil, fmt.Errorf("execctx: dependency %s failed: %w", producerNode.ID, err)
		}
	}
	v, ready := producer.Slot.Get()
	if !ready {
		return nil, &PinNotReadyError{PinID: producer.ID}
	}
	return v, nil
}

// EvaluatePin pulls and JSON-decodes the named input pin's value into T.
func EvaluatePin[T any](c *Context, name string) (T, error) {
	var zero T
	raw, err := c.EvaluatePinRaw(name)
	if err != nil {
		return zero, err
	}
	return decodeJSON[T](raw)
}

// SetPinValueRaw stores v on the named output pin.
func (c *Context) SetPinValueRaw(name string, v []byte) error {
	rp, err := c.outputPin(name)
	if err != nil {
		return err
	}
	rp.Slot.Set(v)
	return nil
}

// SetPinValue JSON-encodes v and stores it on the named output pin.
func SetPinValue[T any](c *Context, name string, v T) error {
	raw, err := encodeJSON(v)
	if err != nil {
		return err
	}
	return c.SetPinValueRaw(name, raw)
}

// ActivateExecPin marks the named Execution output pin active, so the
// scheduler follows it to its connected successors once this node
// finishes.
func (c *Context) ActivateExecPin(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeExec[name] = true
}

// DeactivateExecPin clears a previously activated Execution output pin.
func (c *Context) DeactivateExecPin(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.activeExec, name)
}

// ActiveExecPins returns the names of every currently activated Execution
// output pin, for the scheduler to resolve into successor nodes.
func (c *Context) ActiveExecPins() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.activeExec))
	for name := range c.activeExec {
		out = append(out, name)
	}
	return out
}

// PinByName returns the first pin matching name and direction on this
// node.
func (c *Context) PinByName(name string, dir pin.Direction) (*graph.RuntimePin, bool) {
	for _, rp := range c.Node.NameIndex[name] {
		if rp.Decl.Direction == dir {
			return rp, true
		}
	}
	return nil, false
}

// PinsByName returns every pin matching name and direction, for Execution
// inputs that merge multiple incoming wires.
func (c *Context) PinsByName(name string, dir pin.Direction) []*graph.RuntimePin {
	var out []*graph.RuntimePin
	for _, rp := range c.Node.NameIndex[name] {
		if rp.Decl.Direction == dir {
			out = append(out, rp)
		}
	}
	return out
}

// PinByID resolves any pin in the graph by id, not just ones on this node.
func (c *Context) PinByID(id string) (*graph.RuntimePin, bool) {
	rp, ok := c.Graph.Pins[id]
	return rp, ok
}

// Log appends one message to this node's trace.
func (c *Context) Log(level int, message string, payload any) {
	if c.LogSink == nil {
		return
	}
	c.LogSink.Append(c.Node.ID, level, message, payload)
}

// GetVariable returns the raw value of the board variable named name.
func (c *Context) GetVariable(name string) ([]byte, bool) {
	for _, rv := range c.Graph.Variables {
		if rv.Decl.Name == name {
			return rv.Get(), true
		}
	}
	return nil, false
}

// SetVariable overwrites the raw value of the board variable named name.
func (c *Context) SetVariable(name string, value []byte) bool {
	for _, rv := range c.Graph.Variables {
		if rv.Decl.Name == name {
			rv.Set(value)
			return true
		}
	}
	return false
}

// GetCache reads key from the run-wide cache capability.
func (c *Context) GetCache(key string) ([]byte, bool) {
	if c.Cache == nil {
		return nil, false
	}
	return c.Cache.Get(key)
}

// SetCache writes key to the run-wide cache capability with the given TTL.
func (c *Context) SetCache(key string, value []byte, ttl time.Duration) {
	if c.Cache == nil {
		return
	}
	c.Cache.Set(key, value, ttl)
}

// HookCompletionEvent registers fn as a completion hook, run regardless of
// outcome. With a CompletionSink set (the scheduler sets one on every
// context it creates) fn is handed to the sink, which runs it once the
// whole run has drained; otherwise fn runs when this context is closed.
func (c *Context) HookCompletionEvent(fn func()) {
	if c.Completion != nil {
		c.Completion.HookCompletionEvent(fn)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completeHook = append(c.completeHook, fn)
}

// Toast surfaces an ephemeral, non-trace notification.
func (c *Context) Toast(message string, level int) {
	if c.EventSink == nil {
		return
	}
	c.EventSink.Toast(message, level)
}

// Close runs every registered completion hook and releases scoped
// resources. Safe to call even if no resources were ever acquired.
func (c *Context) Close() {
	c.mu.Lock()
	hooks := c.completeHook
	c.completeHook = nil
	scope := c.resources
	c.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
	if scope != nil {
		scope.Close()
	}
}

// PinNotReadyError reports that a pin was read before anything produced a
// value for it.
type PinNotReadyError struct {
	PinID string
}

func (e *PinNotReadyError) Error() string {
	return fmt.Sprintf("pin %s not ready", e.PinID)
}
