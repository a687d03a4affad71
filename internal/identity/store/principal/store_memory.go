package principal

import (
	"context"
	"sort"
	"sync"

	"agora/internal/identity/models"
	"agora/internal/identity/store"
	id "agora/pkg/domain"
	"agora/pkg/platform/sentinel"
)

// InMemory is the mutex-guarded principal store used in tests and single-node
// development. Execute holds the write lock across validate and mutate, which
// makes the escalation guard's check-then-write atomic without a database.
type InMemory struct {
	mu         sync.RWMutex
	principals map[id.PrincipalID]models.Principal
}

// NewInMemory constructs an empty in-memory principal store.
func NewInMemory() *InMemory {
	return &InMemory{principals: make(map[id.PrincipalID]models.Principal)}
}

func (s *InMemory) Create(_ context.Context, principal *models.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.principals[principal.ID]; exists {
		return sentinel.ErrConflict
	}
	s.principals[principal.ID] = *principal
	return nil
}

func (s *InMemory) FindByID(_ context.Context, principalID id.PrincipalID) (*models.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.principals[principalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

func (s *InMemory) List(_ context.Context) ([]*models.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Principal, 0, len(s.principals))
	for _, p := range s.principals {
		if p.Archived {
			continue
		}
		cp := p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) AdminExists(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adminExistsLocked(), nil
}

func (s *InMemory) IsAdmin(_ context.Context, principalID id.PrincipalID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isAdminLocked(principalID), nil
}

func (s *InMemory) Execute(
	_ context.Context,
	principalID id.PrincipalID,
	validate func(p *models.Principal, snap store.Snapshot) error,
	mutate func(p *models.Principal),
) (*models.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.principals[principalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(&p, memorySnapshot{s}); err != nil {
		return nil, err
	}
	mutate(&p)
	s.principals[principalID] = p
	return &p, nil
}

func (s *InMemory) adminExistsLocked() bool {
	for _, p := range s.principals {
		if p.IsAdmin() {
			return true
		}
	}
	return false
}

func (s *InMemory) isAdminLocked(principalID id.PrincipalID) bool {
	p, ok := s.principals[principalID]
	return ok && p.IsAdmin()
}

// memorySnapshot reads store-wide facts while the Execute lock is held.
type memorySnapshot struct {
	s *InMemory
}

func (m memorySnapshot) AdminExists() (bool, error) {
	return m.s.adminExistsLocked(), nil
}

func (m memorySnapshot) IsAdmin(principalID id.PrincipalID) (bool, error) {
	return m.s.isAdminLocked(principalID), nil
}
