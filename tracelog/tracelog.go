// Package tracelog defines the run-scoped log and trace records the engine
// produces, independent of where they end up persisted. execctx.Context
// writes through the LogSink interface it already defines; StoreSink over
// tracelog/pgstore gives that interface a backing table, and
// tracelog/dynamostore is a separate metering sink fed from recorded
// traces.
//
// Grounded on oriys-nova's internal/logsink (LogSink interface,
// PostgresSink/MultiSink implementations) and internal/logging.Logger: a
// plain record type (RequestLog there, LogMessage/Trace here) kept
// separate from the store that persists it, so the engine can log against
// an in-memory Recorder in tests and a Postgres store in production
// without changing call sites.
package tracelog

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// LogMessage is one line a node emitted during activation.
type LogMessage struct {
	RunID     string    `json:"run_id"`
	NodeID    string    `json:"node_id"`
	Level     int       `json:"log_level"`
	Message   string    `json:"message"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Trace is one node activation's lifecycle, from the scheduler's
// perspective: when it started, when it finished, and how it ended.
type Trace struct {
	RunID     string     `json:"run_id"`
	NodeID    string     `json:"node_id"`
	Start     time.Time  `json:"start"`
	End       time.Time  `json:"end,omitempty"`
	Status    string     `json:"status"`
	Err       string     `json:"error,omitempty"`
}

// LogMeta summarizes a run for listing without loading its full log table.
type LogMeta struct {
	RunID     string    `json:"run_id"`
	BoardID   string    `json:"board_id"`
	Status    string    `json:"status"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end,omitempty"`
	LineCount int       `json:"line_count"`
}

// Store is the persistence contract pgstore satisfies, and the one a test
// fake needs to implement to stand in for it. dynamostore does not
// implement it.
type Store interface {
	AppendLog(msg LogMessage) error
	AppendTrace(tr Trace) error
	Logs(runID string) ([]LogMessage, error)
	Traces(runID string) ([]Trace, error)
}

// Recorder is an in-memory execctx.LogSink scoped to a single run, used
// directly by tests and as the default when no durable store is
// configured.
type Recorder struct {
	runID string

	mu     sync.Mutex
	logs   []LogMessage
	traces []Trace
}

// NewRecorder creates a Recorder scoped to one run.
func NewRecorder(runID string) *Recorder {
	return &Recorder{runID: runID}
}

// Append implements execctx.LogSink.
func (r *Recorder) Append(nodeID string, level int, message string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, LogMessage{
		RunID:     r.runID,
		NodeID:    nodeID,
		Level:     level,
		Message:   message,
		Payload:   payload,
		Timestamp: time.Now(),
	})
}

// AppendTrace records a node activation's lifecycle.
func (r *Recorder) AppendTrace(tr Trace) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traces = append(r.traces, tr)
	return nil
}

// Logs returns every message appended so far, in append order.
func (r *Recorder) Logs() []LogMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LogMessage, len(r.logs))
	copy(out, r.logs)
	return out
}

// Traces returns every trace appended so far, in append order.
func (r *Recorder) Traces() []Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Trace, len(r.traces))
	copy(out, r.traces)
	return out
}

// StoreSink adapts a Store into execctx.LogSink, for runs that write
// straight through to a durable store instead of buffering in memory like
// Recorder does. AppendTrace is exposed directly since scheduler writes
// traces through the same Store, not through the LogSink interface.
type StoreSink struct {
	runID string
	store Store
	log   *logrus.Entry
}

// NewStoreSink wraps store for run runID. Append errors are logged, not
// returned, since execctx.LogSink.Append has no error return: a node's
// own run must not fail because its log line didn't make it to Postgres.
func NewStoreSink(runID string, store Store) *StoreSink {
	return &StoreSink{
		runID: runID,
		store: store,
		log:   logrus.WithField("component", "tracelog").WithField("run_id", runID),
	}
}

// Append implements execctx.LogSink.
func (s *StoreSink) Append(nodeID string, level int, message string, payload any) {
	err := s.store.AppendLog(LogMessage{
		RunID:     s.runID,
		NodeID:    nodeID,
		Level:     level,
		Message:   message,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		s.log.WithError(err).WithField("node_id", nodeID).Warn("append log")
	}
}

// AppendTrace gives the scheduler, which looks for this method on its
// LogSink, a trace path into the Store.
func (s *StoreSink) AppendTrace(tr Trace) error {
	return s.store.AppendTrace(tr)
}
