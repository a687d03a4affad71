// Package deliberation holds the deliberation store backends.
package deliberation

import (
	"context"
	"sort"
	"sync"

	"agora/internal/deliberation/models"
	id "agora/pkg/domain"
	"agora/pkg/platform/sentinel"
)

// InMemory is the mutex-guarded deliberation store.
type InMemory struct {
	mu            sync.RWMutex
	deliberations map[id.DeliberationID]models.Deliberation
}

// NewInMemory constructs an empty in-memory deliberation store.
func NewInMemory() *InMemory {
	return &InMemory{deliberations: make(map[id.DeliberationID]models.Deliberation)}
}

func (s *InMemory) Create(_ context.Context, d *models.Deliberation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.deliberations[d.ID]; exists {
		return sentinel.ErrConflict
	}
	s.deliberations[d.ID] = *d
	return nil
}

func (s *InMemory) FindByID(_ context.Context, deliberationID id.DeliberationID) (*models.Deliberation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deliberations[deliberationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &d, nil
}

func (s *InMemory) List(_ context.Context) ([]*models.Deliberation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Deliberation, 0, len(s.deliberations))
	for _, d := range s.deliberations {
		cp := d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) Execute(
	_ context.Context,
	deliberationID id.DeliberationID,
	validate func(d *models.Deliberation) error,
	mutate func(d *models.Deliberation),
) (*models.Deliberation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deliberations[deliberationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(&d); err != nil {
		return nil, err
	}
	mutate(&d)
	s.deliberations[deliberationID] = d
	return &d, nil
}
