// Package memstore is an in-memory objectstore.Store for tests, grounded
// on oriys-nova's internal/cache/InMemoryCache: a mutex-guarded map
// keyed by string, same "satisfy the interface with a plain map" shape,
// retargeted from cacheable byte blobs with TTL expiry to objects keyed
// by path with no expiry.
package memstore

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/evalgo/flowengine/objectstore"
)

type object struct {
	body         []byte
	etag         string
	lastModified time.Time
}

// Store is a goroutine-safe in-memory objectstore.Store.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object

	// Signed records every Sign call, for tests asserting a presigned URL
	// was requested for a given path without standing up a real endpoint.
	Signed []string
}

// New creates an empty Store.
func New() *Store {
	return &Store{objects: make(map[string]object)}
}

// Get implements objectstore.Store.
func (s *Store) Get(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	if !ok {
		return nil, fmt.Errorf("memstore: %s: not found", path)
	}
	out := make([]byte, len(obj.body))
	copy(out, obj.body)
	return out, nil
}

// Put implements objectstore.Store.
func (s *Store) Put(_ context.Context, path string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(body))
	copy(stored, body)
	s.objects[path] = object{
		body:         stored,
		etag:         fmt.Sprintf("%x", len(stored)),
		lastModified: time.Now(),
	}
	return nil
}

// PutMultipart implements objectstore.Store by draining body into memory;
// tests never deal with bodies large enough for true streaming.
func (s *Store) PutMultipart(ctx context.Context, path string, body io.Reader) error {
	buf, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("memstore: read multipart body for %s: %w", path, err)
	}
	return s.Put(ctx, path, buf)
}

// Delete implements objectstore.Store.
func (s *Store) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, path)
	return nil
}

// List implements objectstore.Store.
func (s *Store) List(_ context.Context, prefix string) ([]objectstore.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var infos []objectstore.ObjectInfo
	for path, obj := range s.objects {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		infos = append(infos, objectstore.ObjectInfo{
			Path:         path,
			Size:         int64(len(obj.body)),
			ETag:         obj.etag,
			LastModified: obj.lastModified,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
	return infos, nil
}

// Head implements objectstore.Store.
func (s *Store) Head(_ context.Context, path string) (objectstore.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	if !ok {
		return objectstore.ObjectInfo{}, fmt.Errorf("memstore: %s: not found", path)
	}
	return objectstore.ObjectInfo{
		Path:         path,
		Size:         int64(len(obj.body)),
		ETag:         obj.etag,
		LastModified: obj.lastModified,
	}, nil
}

// Sign implements objectstore.Store by returning a fake local URL and
// recording the request, rather than talking to a real signing endpoint.
func (s *Store) Sign(_ context.Context, method, path string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	s.Signed = append(s.Signed, method+" "+path)
	s.mu.Unlock()
	return fmt.Sprintf("memstore://%s?method=%s&ttl=%s", path, method, ttl), nil
}
