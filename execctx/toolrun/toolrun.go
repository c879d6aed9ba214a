// Package toolrun dispatches a tool-calling node's call to an external tool
// service resolved through toolcatalog.Registry, adapted from oriys-nova's
// internal/executor.Executor invocation pipeline: a single Invoke entry
// point, a Result-shaped outcome, and metrics/log side-effects kept
// separate from the dispatch itself, narrowed from a VM-acquiring,
// circuit-breaker-guarded pipeline down to one HTTP-backed Executor
// calling a catalog service by name with a JSON request/response body.
package toolrun

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/evalgo/flowengine/toolcatalog"
)

// Status is the outcome of one tool call, narrowed to what an HTTP round
// trip can reach.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Result is what a tool call returns to the node that invoked it.
type Result struct {
	Output    json.RawMessage
	Status    Status
	Err       string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// Executor is the capability a tool-calling node's Logic depends on,
// satisfied by HTTPExecutor in production and a fake in tests.
type Executor interface {
	Execute(ctx context.Context, tool string, input json.RawMessage) (*Result, error)
}

// HTTPExecutor resolves tool by name in a toolcatalog.Registry and POSTs
// input as the request body, expecting a JSON response body back.
type HTTPExecutor struct {
	catalog *toolcatalog.Registry
	client  *http.Client
}

// NewHTTPExecutor creates an HTTPExecutor. A nil client defaults to
// http.DefaultClient.
func NewHTTPExecutor(catalog *toolcatalog.Registry, client *http.Client) *HTTPExecutor {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPExecutor{catalog: catalog, client: client}
}

// Execute implements Executor.
func (e *HTTPExecutor) Execute(ctx context.Context, tool string, input json.RawMessage) (*Result, error) {
	start := time.Now()

	svc, err := e.catalog.Get(tool)
	if err != nil {
		return &Result{
			Status: StatusFailed, Err: err.Error(),
			StartTime: start, EndTime: time.Now(),
		}, fmt.Errorf("toolrun: resolve tool %s: %w", tool, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.URL, bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("toolrun: build request for tool %s: %w", tool, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		end := time.Now()
		return &Result{
			Status: StatusFailed, Err: err.Error(),
			StartTime: start, EndTime: end, Duration: end.Sub(start),
		}, fmt.Errorf("toolrun: call tool %s: %w", tool, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("toolrun: read response from tool %s: %w", tool, err)
	}

	end := time.Now()
	result := &Result{
		Output:    body,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
	}
	if resp.StatusCode >= 400 {
		result.Status = StatusFailed
		result.Err = fmt.Sprintf("tool %s returned status %d", tool, resp.StatusCode)
		return result, fmt.Errorf("toolrun: %s", result.Err)
	}
	result.Status = StatusCompleted
	return result, nil
}
