// Package message holds the message store backends.
package message

import (
	"context"
	"sort"
	"sync"

	"agora/internal/deliberation/models"
	id "agora/pkg/domain"
	"agora/pkg/platform/sentinel"
)

// InMemory is the mutex-guarded message store.
type InMemory struct {
	mu       sync.RWMutex
	messages map[id.MessageID]models.Message
}

// NewInMemory constructs an empty in-memory message store.
func NewInMemory() *InMemory {
	return &InMemory{messages: make(map[id.MessageID]models.Message)}
}

func (s *InMemory) Create(_ context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.messages[m.ID]; exists {
		return sentinel.ErrConflict
	}
	s.messages[m.ID] = *m
	return nil
}

func (s *InMemory) FindByID(_ context.Context, messageID id.MessageID) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[messageID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &m, nil
}

func (s *InMemory) ListByDeliberation(_ context.Context, deliberationID id.DeliberationID) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Message
	for _, m := range s.messages {
		if m.DeliberationID == deliberationID {
			cp := m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) Execute(
	_ context.Context,
	messageID id.MessageID,
	validate func(m *models.Message) error,
	mutate func(m *models.Message),
) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[messageID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(&m); err != nil {
		return nil, err
	}
	mutate(&m)
	s.messages[messageID] = m
	return &m, nil
}
