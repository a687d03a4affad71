// Package graph holds the argument-graph store backends.
package graph

import (
	"context"
	"sort"
	"sync"

	"agora/internal/deliberation/models"
	id "agora/pkg/domain"
	"agora/pkg/platform/sentinel"
)

// InMemory is the mutex-guarded graph store. Nodes and edges share one lock
// so edge creation can see a consistent node set.
type InMemory struct {
	mu    sync.RWMutex
	nodes map[id.NodeID]models.GraphNode
	edges map[id.EdgeID]models.GraphEdge
}

// NewInMemory constructs an empty in-memory graph store.
func NewInMemory() *InMemory {
	return &InMemory{
		nodes: make(map[id.NodeID]models.GraphNode),
		edges: make(map[id.EdgeID]models.GraphEdge),
	}
}

func (s *InMemory) CreateNode(_ context.Context, n *models.GraphNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.nodes[n.ID]; exists {
		return sentinel.ErrConflict
	}
	s.nodes[n.ID] = *n
	return nil
}

func (s *InMemory) FindNodeByID(_ context.Context, nodeID id.NodeID) (*models.GraphNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[nodeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &n, nil
}

func (s *InMemory) ListNodesByDeliberation(_ context.Context, deliberationID id.DeliberationID) ([]*models.GraphNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.GraphNode
	for _, n := range s.nodes {
		if n.DeliberationID == deliberationID {
			cp := n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) ExecuteNode(
	_ context.Context,
	nodeID id.NodeID,
	validate func(n *models.GraphNode) error,
	mutate func(n *models.GraphNode),
) (*models.GraphNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[nodeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(&n); err != nil {
		return nil, err
	}
	mutate(&n)
	s.nodes[nodeID] = n
	return &n, nil
}

func (s *InMemory) CreateEdge(_ context.Context, e *models.GraphEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.edges[e.ID]; exists {
		return sentinel.ErrConflict
	}
	s.edges[e.ID] = *e
	return nil
}

func (s *InMemory) FindEdgeByID(_ context.Context, edgeID id.EdgeID) (*models.GraphEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.edges[edgeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &e, nil
}

func (s *InMemory) ListEdgesByDeliberation(_ context.Context, deliberationID id.DeliberationID) ([]*models.GraphEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.GraphEdge
	for _, e := range s.edges {
		if e.DeliberationID == deliberationID {
			cp := e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
