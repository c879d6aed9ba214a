package toolrun

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgo/flowengine/toolcatalog"
)

func newCatalog(t *testing.T, serviceURL string) *toolcatalog.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.json")
	reg, err := toolcatalog.NewRegistry(path)
	require.NoError(t, err)
	require.NoError(t, reg.Register(&toolcatalog.Service{
		ID:  "echo",
		URL: serviceURL,
	}))
	return reg
}

func TestHTTPExecutorReturnsCompletedOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	exec := NewHTTPExecutor(newCatalog(t, srv.URL), nil)
	result, err := exec.Execute(context.Background(), "echo", json.RawMessage(`{"x":1}`))
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.JSONEq(t, `{"ok":true}`, string(result.Output))
}

func TestHTTPExecutorReturnsFailedOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	exec := NewHTTPExecutor(newCatalog(t, srv.URL), nil)
	result, err := exec.Execute(context.Background(), "echo", json.RawMessage(`{}`))
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, StatusFailed, result.Status)
}

func TestHTTPExecutorErrorsOnUnknownTool(t *testing.T) {
	exec := NewHTTPExecutor(newCatalog(t, "http://example.invalid"), nil)
	_, err := exec.Execute(context.Background(), "missing", nil)
	assert.Error(t, err)
}
