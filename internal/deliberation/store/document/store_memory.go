// Package document holds the document store backends.
package document

import (
	"context"
	"sort"
	"sync"

	"agora/internal/deliberation/models"
	id "agora/pkg/domain"
	"agora/pkg/platform/sentinel"
)

// InMemory is the mutex-guarded document store.
type InMemory struct {
	mu        sync.RWMutex
	documents map[id.DocumentID]models.Document
}

// NewInMemory constructs an empty in-memory document store.
func NewInMemory() *InMemory {
	return &InMemory{documents: make(map[id.DocumentID]models.Document)}
}

func (s *InMemory) Create(_ context.Context, d *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.documents[d.ID]; exists {
		return sentinel.ErrConflict
	}
	s.documents[d.ID] = *d
	return nil
}

func (s *InMemory) FindByID(_ context.Context, documentID id.DocumentID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[documentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &d, nil
}

func (s *InMemory) ListByUploader(_ context.Context, uploader id.PrincipalID) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Document
	for _, d := range s.documents {
		if d.Uploader == uploader {
			cp := d
			out = append(out, &cp)
		}
	}
	sortDocuments(out)
	return out, nil
}

func (s *InMemory) ListByDeliberation(_ context.Context, deliberationID id.DeliberationID) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Document
	for _, d := range s.documents {
		if d.DeliberationID == deliberationID {
			cp := d
			out = append(out, &cp)
		}
	}
	sortDocuments(out)
	return out, nil
}

func sortDocuments(out []*models.Document) {
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
}
