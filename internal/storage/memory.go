package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory BlobStore used in tests and memory-store runs.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Store(_ context.Context, ownerScope, name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	locator := ownerScope + "/" + uuid.NewString() + "-" + name
	cp := make([]byte, len(data))
	copy(cp, data)
	s.blobs[locator] = cp
	return locator, nil
}

func (s *MemoryStore) Fetch(_ context.Context, locator string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[locator]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", locator)
	}
	return data, nil
}
