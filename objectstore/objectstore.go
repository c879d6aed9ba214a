// Package objectstore is the blob-addressable capability boards, runs, and
// uploaded assets are persisted through: board/app manifests, versioned
// snapshots, run logs, and content-addressed upload blobs all live behind
// one Store interface, concrete backends under objectstore/s3store (AWS
// S3, production) and objectstore/memstore (in-memory, tests).
package objectstore

import (
	"context"
	"fmt"
	"io"
	"time"
)

// ObjectInfo describes one stored object without fetching its body.
type ObjectInfo struct {
	Path         string
	Size         int64
	ETag         string
	LastModified time.Time
}

// Store is the capability every backend implements: get/put a whole
// object, stream a large one in parts, delete, list by prefix, fetch
// metadata without the body, and mint a time-limited signed URL.
type Store interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Put(ctx context.Context, path string, body []byte) error
	PutMultipart(ctx context.Context, path string, body io.Reader) error
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Head(ctx context.Context, path string) (ObjectInfo, error)
	Sign(ctx context.Context, method, path string, ttl time.Duration) (string, error)
}

// Canonical path helpers. Every caller building a path goes through these
// rather than formatting ad hoc strings, so a layout change is a one-file
// edit.
func ManifestPath(app string) string { return fmt.Sprintf("apps/%s/manifest.app", app) }

func BoardPath(app, board string) string {
	return fmt.Sprintf("apps/%s/%s.board", app, board)
}

func BoardVersionPath(app, board, version string) string {
	return fmt.Sprintf("apps/%s/versions/%s/%s", app, board, version)
}

func EventPath(app, event string) string {
	return fmt.Sprintf("apps/%s/events/%s.event", app, event)
}

func EventVersionPath(app, event, version string) string {
	return fmt.Sprintf("apps/%s/events/versions/%s/%s", app, event, version)
}

func MetadataPath(app, lang string) string {
	return fmt.Sprintf("apps/%s/metadata/%s.meta", app, lang)
}

func RunNamespace(app, board string) string {
	return fmt.Sprintf("runs/%s/%s", app, board)
}

// RunResultPath is where a completed run's summary (status, timing, the
// trace it produced) is archived, under that run's namespace.
func RunResultPath(app, board, runID string) string {
	return fmt.Sprintf("%s/%s/result.json", RunNamespace(app, board), runID)
}

func BlobPath(etag string) string { return fmt.Sprintf("bits/%s", etag) }
