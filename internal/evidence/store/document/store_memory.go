package document

import (
	"context"
	"sync"

	"medfund/internal/evidence/models"
	id "medfund/pkg/domain"
	"medfund/pkg/platform/sentinel"
)

// InMemoryStore is an in-memory Store for tests and local development.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[id.DocumentID]*models.Document
	byOwner map[string][]id.DocumentID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[id.DocumentID]*models.Document),
		byOwner: make(map[string][]id.DocumentID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[doc.ID]; exists {
		return sentinel.ErrConflict
	}
	copied := *doc
	s.byID[doc.ID] = &copied
	key := doc.Owner.Key()
	s.byOwner[key] = append(s.byOwner[key], doc.ID)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, documentID id.DocumentID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.byID[documentID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

// ListByOwner returns the owner's documents in attachment order.
func (s *InMemoryStore) ListByOwner(_ context.Context, owner models.OwnerRef) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byOwner[owner.Key()]
	docs := make([]*models.Document, 0, len(ids))
	for _, documentID := range ids {
		copied := *s.byID[documentID]
		docs = append(docs, &copied)
	}
	return docs, nil
}

func (s *InMemoryStore) ExistsByOwnerAndType(_ context.Context, owner models.OwnerRef, docType models.DocumentType) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, documentID := range s.byOwner[owner.Key()] {
		if s.byID[documentID].Type == docType {
			return true, nil
		}
	}
	return false, nil
}
