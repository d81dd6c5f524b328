package archive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// MemoryBlobStore keeps objects in a map for tests.
type MemoryBlobStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryBlobStore returns an empty in-memory blob store.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{objects: make(map[string][]byte)}
}

// PutObject stores the object bytes and returns a mem:// URI.
func (s *MemoryBlobStore) PutObject(_ context.Context, objectPath, _ string, r io.Reader) (string, error) {
	if strings.TrimSpace(objectPath) == "" {
		return "", fmt.Errorf("object path is required")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read object data: %w", err)
	}
	s.mu.Lock()
	s.objects[objectPath] = data
	s.mu.Unlock()
	return "mem://" + objectPath, nil
}

// Objects returns a copy of the stored objects keyed by path.
func (s *MemoryBlobStore) Objects() map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte, len(s.objects))
	for k, v := range s.objects {
		out[k] = append([]byte(nil), v...)
	}
	return out
}
