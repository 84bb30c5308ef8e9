package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"medfund/pkg/platform/sentinel"
)

// InMemoryStore is a content-addressed blob store for tests and local
// development. Refs are "sha256:<hex>", so storing the same bytes twice
// yields the same ref and documents stay deduplicated by content.
type InMemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{blobs: make(map[string][]byte)}
}

func (s *InMemoryStore) Put(_ context.Context, content []byte) (string, error) {
	sum := sha256.Sum256(content)
	ref := "sha256:" + hex.EncodeToString(sum[:])

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.blobs[ref]; !exists {
		copied := make([]byte, len(content))
		copy(copied, content)
		s.blobs[ref] = copied
	}
	return ref, nil
}

func (s *InMemoryStore) Get(_ context.Context, ref string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, exists := s.blobs[ref]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	copied := make([]byte, len(blob))
	copy(copied, blob)
	return copied, nil
}
