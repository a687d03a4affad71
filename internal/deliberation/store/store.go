// Package store defines the persistence contracts for the deliberation
// domain. Implementations live in the backend subpackages; services depend
// on these interfaces only.
//
// Lookup methods here are elevated: they return rows without policy gating.
// The services own every external entry point and consult the policy
// evaluator before touching a store, so gating happens exactly once, above
// this layer.
package store

import (
	"context"

	"agora/internal/deliberation/models"
	id "agora/pkg/domain"
)

// DeliberationStore persists deliberations.
type DeliberationStore interface {
	Create(ctx context.Context, d *models.Deliberation) error
	FindByID(ctx context.Context, deliberationID id.DeliberationID) (*models.Deliberation, error)
	List(ctx context.Context) ([]*models.Deliberation, error)
	// Execute atomically loads, validates and mutates one deliberation.
	Execute(
		ctx context.Context,
		deliberationID id.DeliberationID,
		validate func(d *models.Deliberation) error,
		mutate func(d *models.Deliberation),
	) (*models.Deliberation, error)
}

// ParticipantStore persists membership rows. ListDeliberationsByPrincipal is
// the participation index's backing lookup.
type ParticipantStore interface {
	Add(ctx context.Context, p *models.Participant) error
	Find(ctx context.Context, deliberationID id.DeliberationID, principalID id.PrincipalID) (*models.Participant, error)
	ListByDeliberation(ctx context.Context, deliberationID id.DeliberationID) ([]*models.Participant, error)
	ListDeliberationsByPrincipal(ctx context.Context, principalID id.PrincipalID) ([]id.DeliberationID, error)
	Remove(ctx context.Context, deliberationID id.DeliberationID, principalID id.PrincipalID) error
}

// MessageStore persists discussion messages.
type MessageStore interface {
	Create(ctx context.Context, m *models.Message) error
	FindByID(ctx context.Context, messageID id.MessageID) (*models.Message, error)
	ListByDeliberation(ctx context.Context, deliberationID id.DeliberationID) ([]*models.Message, error)
	Execute(
		ctx context.Context,
		messageID id.MessageID,
		validate func(m *models.Message) error,
		mutate func(m *models.Message),
	) (*models.Message, error)
}

// GraphStore persists argument-graph nodes and edges.
type GraphStore interface {
	CreateNode(ctx context.Context, n *models.GraphNode) error
	FindNodeByID(ctx context.Context, nodeID id.NodeID) (*models.GraphNode, error)
	ListNodesByDeliberation(ctx context.Context, deliberationID id.DeliberationID) ([]*models.GraphNode, error)
	ExecuteNode(
		ctx context.Context,
		nodeID id.NodeID,
		validate func(n *models.GraphNode) error,
		mutate func(n *models.GraphNode),
	) (*models.GraphNode, error)
	CreateEdge(ctx context.Context, e *models.GraphEdge) error
	FindEdgeByID(ctx context.Context, edgeID id.EdgeID) (*models.GraphEdge, error)
	ListEdgesByDeliberation(ctx context.Context, deliberationID id.DeliberationID) ([]*models.GraphEdge, error)
}

// AgentConfigStore persists agent configurations.
type AgentConfigStore interface {
	Create(ctx context.Context, c *models.AgentConfig) error
	FindByID(ctx context.Context, configID id.AgentConfigID) (*models.AgentConfig, error)
	ListGlobal(ctx context.Context) ([]*models.AgentConfig, error)
	ListByDeliberation(ctx context.Context, deliberationID id.DeliberationID) ([]*models.AgentConfig, error)
	Execute(
		ctx context.Context,
		configID id.AgentConfigID,
		validate func(c *models.AgentConfig) error,
		mutate func(c *models.AgentConfig),
	) (*models.AgentConfig, error)
}

// DocumentStore persists uploaded document records.
type DocumentStore interface {
	Create(ctx context.Context, d *models.Document) error
	FindByID(ctx context.Context, documentID id.DocumentID) (*models.Document, error)
	ListByUploader(ctx context.Context, uploader id.PrincipalID) ([]*models.Document, error)
	ListByDeliberation(ctx context.Context, deliberationID id.DeliberationID) ([]*models.Document, error)
}
