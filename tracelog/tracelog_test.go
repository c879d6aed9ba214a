package tracelog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderAppendsLogsAndTraces(t *testing.T) {
	rec := NewRecorder("run1")
	rec.Append("n1", 2, "hello", map[string]any{"k": "v"})
	require.NoError(t, rec.AppendTrace(Trace{RunID: "run1", NodeID: "n1", Status: "success"}))

	logs := rec.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, "run1", logs[0].RunID)
	assert.Equal(t, "hello", logs[0].Message)

	traces := rec.Traces()
	require.Len(t, traces, 1)
	assert.Equal(t, "n1", traces[0].NodeID)
}

type fakeStore struct {
	logs   []LogMessage
	traces []Trace
	logErr error
}

func (s *fakeStore) AppendLog(msg LogMessage) error {
	if s.logErr != nil {
		return s.logErr
	}
	s.logs = append(s.logs, msg)
	return nil
}

func (s *fakeStore) AppendTrace(tr Trace) error {
	s.traces = append(s.traces, tr)
	return nil
}

func (s *fakeStore) Logs(runID string) ([]LogMessage, error)  { return s.logs, nil }
func (s *fakeStore) Traces(runID string) ([]Trace, error)     { return s.traces, nil }

func TestStoreSinkAppendWritesThroughToStore(t *testing.T) {
	store := &fakeStore{}
	sink := NewStoreSink("run1", store)

	sink.Append("n1", 1, "started", nil)
	require.Len(t, store.logs, 1)
	assert.Equal(t, "run1", store.logs[0].RunID)
	assert.Equal(t, "n1", store.logs[0].NodeID)

	require.NoError(t, sink.AppendTrace(Trace{RunID: "run1", NodeID: "n1", Status: "success"}))
	require.Len(t, store.traces, 1)
}

func TestStoreSinkAppendSwallowsStoreError(t *testing.T) {
	store := &fakeStore{logErr: errors.New("boom")}
	sink := NewStoreSink("run1", store)

	assert.NotPanics(t, func() {
		sink.Append("n1", 1, "started", nil)
	})
	assert.Empty(t, store.logs)
}
