// Package agentconfig holds the agent-configuration store backends.
package agentconfig

import (
	"context"
	"sort"
	"sync"

	"agora/internal/deliberation/models"
	id "agora/pkg/domain"
	"agora/pkg/platform/sentinel"
)

// InMemory is the mutex-guarded agent-config store.
type InMemory struct {
	mu      sync.RWMutex
	configs map[id.AgentConfigID]models.AgentConfig
}

// NewInMemory constructs an empty in-memory agent-config store.
func NewInMemory() *InMemory {
	return &InMemory{configs: make(map[id.AgentConfigID]models.AgentConfig)}
}

func (s *InMemory) Create(_ context.Context, c *models.AgentConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.configs[c.ID]; exists {
		return sentinel.ErrConflict
	}
	s.configs[c.ID] = *c
	return nil
}

func (s *InMemory) FindByID(_ context.Context, configID id.AgentConfigID) (*models.AgentConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.configs[configID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

func (s *InMemory) ListGlobal(_ context.Context) ([]*models.AgentConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.AgentConfig
	for _, c := range s.configs {
		if c.Global() {
			cp := c
			out = append(out, &cp)
		}
	}
	sortConfigs(out)
	return out, nil
}

func (s *InMemory) ListByDeliberation(_ context.Context, deliberationID id.DeliberationID) ([]*models.AgentConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.AgentConfig
	for _, c := range s.configs {
		if c.DeliberationID == deliberationID {
			cp := c
			out = append(out, &cp)
		}
	}
	sortConfigs(out)
	return out, nil
}

func (s *InMemory) Execute(
	_ context.Context,
	configID id.AgentConfigID,
	validate func(c *models.AgentConfig) error,
	mutate func(c *models.AgentConfig),
) (*models.AgentConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.configs[configID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(&c); err != nil {
		return nil, err
	}
	mutate(&c)
	s.configs[configID] = c
	return &c, nil
}

func sortConfigs(out []*models.AgentConfig) {
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
}
