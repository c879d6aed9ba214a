// Package scheduler is the outer drive loop: it seeds a WorkStack from a
// run's entry point, activates nodes wave by wave, and drains until the
// stack empties or a fixpoint proves the run can never converge.
//
// Grounded on the Yoriyoi reference engine's Engine.executeNodes
// (other_examples, semaphore-bounded goroutine fan-out over a dependency
// graph; naming/structure grounding only, not copied) and oriys-nova's
// internal/workflow/engine.go worker pool (poll, acquire, execute with a
// timeout, release), reshaped from workflow-node polling to pin/
// execution-pin propagation over a graph.ExecutionGraph.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/evalgo/flowengine/execctx"
	"github.com/evalgo/flowengine/graph"
	"github.com/evalgo/flowengine/pin"
	"github.com/evalgo/flowengine/runevent"
	"github.com/evalgo/flowengine/tracelog"
	"github.com/sirupsen/logrus"
)

// traceAppender is the richer subset of execctx.LogSink that both
// tracelog.Recorder and tracelog.StoreSink implement, letting the
// scheduler record each node activation's lifecycle without requiring
// every LogSink implementation to carry it.
type traceAppender interface {
	AppendTrace(tr tracelog.Trace) error
}

// DefaultConcurrencyLimit bounds how many times the same node id may be
// in-flight at once within a run; it is the loop/recursion break guard.
const DefaultConcurrencyLimit = 10

// Status is the terminal outcome of a run.
type Status string

const (
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Run drives one ExecutionGraph to completion (or failure) and collects
// the capability instances every node activation's Context needs.
type Run struct {
	ID    string
	Graph *graph.ExecutionGraph

	Cache     execctx.Cache
	LogSink   execctx.LogSink
	EventSink execctx.EventSink
	Bus       runevent.Bus

	ConcurrencyLimit int

	log *logrus.Entry

	mu            sync.Mutex
	counts        map[string]int
	hooks         []func()
	status        Status
	startedAt     time.Time
	pendingTraces []tracelog.Trace
}

// NewRun creates a Run ready to drive g, defaulting ConcurrencyLimit to
// DefaultConcurrencyLimit when limit is zero.
func NewRun(id string, g *graph.ExecutionGraph, cache execctx.Cache, logs execctx.LogSink, events execctx.EventSink, bus runevent.Bus, limit int) *Run {
	if limit <= 0 {
		limit = DefaultConcurrencyLimit
	}
	return &Run{
		ID:               id,
		Graph:            g,
		Cache:            cache,
		LogSink:          logs,
		EventSink:        events,
		Bus:              bus,
		ConcurrencyLimit: limit,
		log:              logrus.WithField("component", "scheduler").WithField("run_id", id),
		counts:           make(map[string]int),
		status:           StatusRunning,
	}
}

// HookCompletionEvent implements execctx.CompletionSink: handlers registered
// by any node's context during this run accumulate here and fire once,
// in registration order, after the scheduler drains.
func (r *Run) HookCompletionEvent(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, fn)
}

func (r *Run) runCompletionCallbacks() {
	r.mu.Lock()
	hooks := r.hooks
	r.hooks = nil
	r.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
}

func (r *Run) enter(nodeID string) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts[nodeID] >= r.ConcurrencyLimit {
		return nil, &FlowError{Kind: KindConcurrencyLimitReached, NodeID: nodeID}
	}
	r.counts[nodeID]++
	return func() {
		r.mu.Lock()
		r.counts[nodeID]--
		r.mu.Unlock()
	}, nil
}

func (r *Run) emit(method runevent.Method, nodeIDs []string) {
	if r.Bus == nil {
		return
	}
	r.Bus.PublishRunUpdate(r.ID, runevent.RunUpdateEvent{
		RunID:   r.ID,
		NodeIDs: nodeIDs,
		Method:  method,
	})
}

// newContext builds a root execctx.Context for rn, wired to this run's
// capabilities and completion sink.
func (r *Run) newContext(rn *graph.RuntimeNode) *execctx.Context {
	ctx := execctx.New(r.Graph, rn, r, r.Cache, r.LogSink, r.EventSink)
	ctx.SetCompletionSink(r)
	return ctx
}

// Activate implements execctx.Activator: it runs the internal node
// activation algorithm for rn without successor propagation, the mode
// EvaluatePinRaw uses to pull a pure producer's value on demand.
func (r *Run) Activate(rn *graph.RuntimeNode) error {
	_, err := r.activate(rn, false)
	return err
}

// activate runs one node activation: the per-node entry guard, the Add
// event, Logic.Run, the trace record and Remove event, then successor
// collection. Pure dependencies are not pulled beforehand; EvaluatePinRaw
// pulls them during Logic.Run. withSuccessors
// controls whether successor collection runs; the scheduler's
// top-level wave stepping wants successors, while a dependency pull from
// inside EvaluatePinRaw does not.
func (r *Run) activate(rn *graph.RuntimeNode, withSuccessors bool) ([]*graph.RuntimeNode, error) {
	release, err := r.enter(rn.ID)
	if err != nil {
		r.log.WithField("node_id", rn.ID).Warn("concurrency limit reached")
		return nil, err
	}
	defer release()

	r.emit(runevent.MethodAdd, []string{rn.ID})
	ctx := r.newContext(rn)
	defer ctx.Close()

	start := time.Now()
	runErr := rn.Logic.Run(ctx)
	r.recordTrace(rn.ID, start, runErr)

	if runErr != nil {
		ctx.Log(3, fmt.Sprintf("activation error: %v", runErr), nil)
	}
	r.emit(runevent.MethodRemove, []string{rn.ID})

	if runErr != nil {
		return nil, &FlowError{Kind: KindExecutionFailed, NodeID: rn.ID, Err: runErr}
	}

	if !withSuccessors {
		return nil, nil
	}

	active := ctx.ActiveExecPins()
	var successors []*graph.RuntimeNode
	seen := make(map[string]bool)
	for _, rp := range rn.Pins() {
		if !rp.Decl.IsExecution() || rp.Decl.Direction != pin.DirectionOutput {
			continue
		}
		if !contains(active, rp.Decl.Name) {
			continue
		}
		for _, peer := range rp.ConnectedTo() {
			successorID := peer.NodeID
			if seen[successorID] {
				continue
			}
			seen[successorID] = true
			successors = append(successors, r.Graph.Nodes[successorID])
		}
	}
	return successors, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Run seeds a WorkStack from the seeds node ids (Graph.Seed is not
// consulted) and drains it wave by wave until the stack
// empties (success) or a fixpoint proves no further progress is possible
// (failure). stepParallel keeps at most cpus*3 activations in flight; pass
// 0 for cpus to default to runtime.NumCPU.
func (r *Run) Run(ctx context.Context, seeds []string, cpus int) (Status, error) {
	if cpus <= 0 {
		cpus = runtime.NumCPU()
	}

	stack := &WorkStack{}
	for _, id := range seeds {
		stack.Push(id)
	}

	stackHash := stack.Hash()
	iter := 0
	var runErr error

loop:
	for !stack.Empty() {
		select {
		case <-ctx.Done():
			runErr = &FlowError{Kind: KindCancelled, Err: ctx.Err()}
			break loop
		default:
		}

		wave := stack.PopWave(len(stack.ids))
		var next *WorkStack
		var err error
		if len(wave) == 1 {
			next, err = r.stepSingle(wave[0])
		} else {
			next, err = r.stepParallel(wave, cpus)
		}
		if err != nil {
			runErr = err
			break
		}
		for _, id := range next.ids {
			stack.Push(id)
		}

		iter++
		if iter%20 == 0 {
			r.flush(false)
		}

		newHash := stack.Hash()
		if newHash == stackHash && !stack.Empty() {
			runErr = &FlowError{Kind: KindFatal, Err: fmt.Errorf("scheduler: no progress after %d iterations", iter)}
			break
		}
		stackHash = newHash
	}

	r.runCompletionCallbacks()
	r.flush(true)

	r.mu.Lock()
	if runErr != nil {
		r.status = StatusFailed
	} else {
		r.status = StatusSuccess
	}
	status := r.status
	r.mu.Unlock()

	return status, runErr
}

func (r *Run) stepSingle(nodeID string) (*WorkStack, error) {
	rn, ok := r.Graph.Nodes[nodeID]
	if !ok {
		return nil, fmt.Errorf("scheduler: unknown node %s", nodeID)
	}
	return r.stepCore(rn)
}

func (r *Run) stepParallel(nodeIDs []string, cpus int) (*WorkStack, error) {
	sem := make(chan struct{}, cpus*3)
	var wg sync.WaitGroup
	var mu sync.Mutex
	merged := &WorkStack{}
	var firstErr error

	for _, id := range nodeIDs {
		rn, ok := r.Graph.Nodes[id]
		if !ok {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(rn *graph.RuntimeNode) {
			defer wg.Done()
			defer func() { <-sem }()

			next, err := r.stepCore(rn)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			for _, succID := range next.ids {
				merged.Push(succID)
			}
		}(rn)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return merged, nil
}

// stepCore is the single-node activation plus successor collection that
// both step_single and step_parallel share.
func (r *Run) stepCore(rn *graph.RuntimeNode) (*WorkStack, error) {
	successors, err := r.activate(rn, true)
	next := &WorkStack{}
	if err != nil {
		var flowErr *FlowError
		if errors.As(err, &flowErr) && flowErr.Kind == KindConcurrencyLimitReached {
			return next, nil
		}
		return nil, err
	}
	for _, succ := range successors {
		next.Push(succ.ID)
	}
	return next, nil
}

// recordTrace buffers one node's activation lifecycle for the next flush
// rather than writing through immediately, so a long run doesn't pay a
// store round trip per node.
func (r *Run) recordTrace(nodeID string, start time.Time, runErr error) {
	tr := tracelog.Trace{
		RunID:  r.ID,
		NodeID: nodeID,
		Start:  start,
		End:    time.Now(),
		Status: string(StatusSuccess),
	}
	if runErr != nil {
		tr.Status = string(StatusFailed)
		tr.Err = runErr.Error()
	}
	r.mu.Lock()
	r.pendingTraces = append(r.pendingTraces, tr)
	r.mu.Unlock()
}

// flush drains pendingTraces into LogSink when it implements traceAppender.
// A dropped trace never aborts the run; it's logged and the rest of the
// batch still goes through.
func (r *Run) flush(finalize bool) {
	if finalize {
		r.log.Debug("finalizing log flush")
	} else {
		r.log.Debug("periodic log flush")
	}

	sink, ok := r.LogSink.(traceAppender)
	if !ok {
		r.mu.Lock()
		r.pendingTraces = nil
		r.mu.Unlock()
		return
	}

	r.mu.Lock()
	batch := r.pendingTraces
	r.pendingTraces = nil
	r.mu.Unlock()

	for _, tr := range batch {
		if err := sink.AppendTrace(tr); err != nil {
			r.log.WithError(err).WithField("node_id", tr.NodeID).Warn("append trace")
		}
	}
}
