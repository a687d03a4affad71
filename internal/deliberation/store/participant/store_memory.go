// Package participant holds the membership store backends.
package participant

import (
	"context"
	"sort"
	"sync"

	"agora/internal/deliberation/models"
	id "agora/pkg/domain"
	"agora/pkg/platform/sentinel"
)

type key struct {
	deliberation id.DeliberationID
	principal    id.PrincipalID
}

// InMemory is the mutex-guarded participant store.
type InMemory struct {
	mu   sync.RWMutex
	rows map[key]models.Participant
}

// NewInMemory constructs an empty in-memory participant store.
func NewInMemory() *InMemory {
	return &InMemory{rows: make(map[key]models.Participant)}
}

func (s *InMemory) Add(_ context.Context, p *models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{p.DeliberationID, p.PrincipalID}
	if _, exists := s.rows[k]; exists {
		return sentinel.ErrConflict
	}
	s.rows[k] = *p
	return nil
}

func (s *InMemory) Find(_ context.Context, deliberationID id.DeliberationID, principalID id.PrincipalID) (*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.rows[key{deliberationID, principalID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

func (s *InMemory) ListByDeliberation(_ context.Context, deliberationID id.DeliberationID) ([]*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Participant
	for k, p := range s.rows {
		if k.deliberation == deliberationID {
			cp := p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (s *InMemory) ListDeliberationsByPrincipal(_ context.Context, principalID id.PrincipalID) ([]id.DeliberationID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []id.DeliberationID
	for k := range s.rows {
		if k.principal == principalID {
			out = append(out, k.deliberation)
		}
	}
	return out, nil
}

func (s *InMemory) Remove(_ context.Context, deliberationID id.DeliberationID, principalID id.PrincipalID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{deliberationID, principalID}
	if _, ok := s.rows[k]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.rows, k)
	return nil
}
