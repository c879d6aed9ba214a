// Package flowlog wires the engine's process-wide structured logging,
// grounded on a logrus.Hook in the same shape oriys-nova's
// internal/logging.Logger batches RequestLog writes: StoreHook forwards
// entries carrying run_id/node_id fields into a tracelog.Store in the
// background, so a long run's CLI output and its durable trace log stay
// in sync without every log call taking a store round trip.
package flowlog

import (
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/evalgo/flowengine/tracelog"
)

// New builds a logrus.Logger at the given level ("error", "warn", "info",
// "debug", "trace"; unrecognized values fall back to "info"), formatted as
// JSON when json is true and as logrus's human-readable text formatter
// otherwise.
func New(level string, json bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if json {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return log
}

// StoreHook is a logrus.Hook that buffers entries carrying a run_id field
// and flushes them into a tracelog.Store in batches, grounded on
// oriys-nova's internal/executor/invocation_log_batcher.go
// invocationLogBatcher (channel-buffered entries flushed on batch size or
// flushInterval, whichever comes first).
type StoreHook struct {
	store tracelog.Store

	mu            sync.Mutex
	buffer        []tracelog.LogMessage
	bufferSize    int
	flushInterval time.Duration
	flushChan     chan struct{}
	stopChan      chan struct{}
	doneChan      chan struct{}
}

// NewStoreHook creates a StoreHook writing through to store, buffering up
// to bufferSize entries or flushInterval, whichever comes first.
func NewStoreHook(store tracelog.Store, bufferSize int, flushInterval time.Duration) *StoreHook {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}

	h := &StoreHook{
		store:         store,
		bufferSize:    bufferSize,
		flushInterval: flushInterval,
		flushChan:     make(chan struct{}, 1),
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
	}
	go h.run()
	return h
}

// Levels implements logrus.Hook for every level; filtering by severity is
// the logger's own SetLevel, not the hook's job.
func (h *StoreHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook, buffering entries that name a run_id;
// process-level log lines with no run context are left to the logger's own
// output and never reach the store.
func (h *StoreHook) Fire(entry *logrus.Entry) error {
	runID, ok := entry.Data["run_id"].(string)
	if !ok || runID == "" {
		return nil
	}
	nodeID, _ := entry.Data["node_id"].(string)

	h.mu.Lock()
	h.buffer = append(h.buffer, tracelog.LogMessage{
		RunID:     runID,
		NodeID:    nodeID,
		Level:     levelToInt(entry.Level),
		Message:   entry.Message,
		Timestamp: entry.Time,
	})
	full := len(h.buffer) >= h.bufferSize
	h.mu.Unlock()

	if full {
		h.Flush()
	}
	return nil
}

// Flush requests an immediate buffer drain.
func (h *StoreHook) Flush() {
	select {
	case h.flushChan <- struct{}{}:
	default:
	}
}

// Stop flushes any remaining buffered entries and stops the flush loop.
func (h *StoreHook) Stop() {
	close(h.stopChan)
	<-h.doneChan
}

func (h *StoreHook) run() {
	defer close(h.doneChan)

	ticker := time.NewTicker(h.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopChan:
			h.doFlush()
			return
		case <-h.flushChan:
			h.doFlush()
		case <-ticker.C:
			h.doFlush()
		}
	}
}

func (h *StoreHook) doFlush() {
	h.mu.Lock()
	if len(h.buffer) == 0 {
		h.mu.Unlock()
		return
	}
	batch := make([]tracelog.LogMessage, len(h.buffer))
	copy(batch, h.buffer)
	h.buffer = h.buffer[:0]
	h.mu.Unlock()

	for _, msg := range batch {
		// Best-effort: a dropped log line should never abort a run, so
		// errors here are swallowed rather than propagated.
		_ = h.store.AppendLog(msg)
	}
}

func levelToInt(level logrus.Level) int {
	switch level {
	case logrus.TraceLevel:
		return 4
	case logrus.DebugLevel:
		return 3
	case logrus.InfoLevel:
		return 2
	case logrus.WarnLevel:
		return 1
	default:
		return 0
	}
}
