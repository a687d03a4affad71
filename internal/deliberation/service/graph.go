package service

import (
	"context"
	"errors"

	"agora/internal/audit"
	"agora/internal/deliberation/models"
	id "agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
	"agora/pkg/platform/sentinel"
	"agora/pkg/requestcontext"
)

// CreateNode adds an issue, position or argument to the graph. Participant
// or admin only; the deliberation must be active.
func (s *Service) CreateNode(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID, kind models.NodeKind, label, detail string) (*models.GraphNode, error) {
	d, err := s.loadDeliberation(ctx, deliberationID)
	if err != nil {
		return nil, err
	}
	if d.Status != models.StatusActive {
		return nil, dErrors.New(dErrors.CodeConflict, "deliberation graph is frozen")
	}

	n := models.NewGraphNode(deliberationID, actor.ID, kind, label, detail, requestcontext.Now(ctx))
	if err := n.Validate(); err != nil {
		return nil, err
	}
	decision, err := s.evaluator.CanWriteNode(ctx, actor, n)
	if err != nil {
		return nil, err
	}
	if err := decision.Err(); err != nil {
		return nil, err
	}

	if err := s.graph.CreateNode(ctx, n); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create node")
	}
	s.record(ctx, audit.Event{
		Actor:        actor.ID,
		Action:       audit.ActionNodeCreated,
		ResourceType: "graph_node",
		ResourceID:   n.ID.String(),
		After:        audit.Snapshot(n),
	})
	return n, nil
}

// GetNode returns a node if readable; denied reads report not-found.
func (s *Service) GetNode(ctx context.Context, actor requestcontext.PrincipalContext, nodeID id.NodeID) (*models.GraphNode, error) {
	n, err := s.graph.FindNodeByID(ctx, nodeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "node not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load node")
	}
	decision, err := s.evaluator.CanReadNode(ctx, actor, n)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, dErrors.New(dErrors.CodeNotFound, "node not found")
	}
	return n, nil
}

// ListGraph returns a deliberation's nodes and edges when the actor may read
// them, otherwise empty results.
func (s *Service) ListGraph(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID) ([]*models.GraphNode, []*models.GraphEdge, error) {
	probe := &models.GraphNode{DeliberationID: deliberationID}
	decision, err := s.evaluator.CanReadNode(ctx, actor, probe)
	if err != nil {
		return nil, nil, err
	}
	if !decision.Allowed {
		return nil, nil, nil
	}

	nodes, err := s.graph.ListNodesByDeliberation(ctx, deliberationID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list nodes")
	}
	edges, err := s.graph.ListEdgesByDeliberation(ctx, deliberationID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list edges")
	}
	return nodes, edges, nil
}

// EditNode updates a node's label and detail. Participant or admin only;
// the deliberation must be active and agent-authored nodes are untouchable
// through this path.
func (s *Service) EditNode(ctx context.Context, actor requestcontext.PrincipalContext, nodeID id.NodeID, label, detail string) (*models.GraphNode, error) {
	now := requestcontext.Now(ctx)

	var before *models.GraphNode
	n, err := s.graph.ExecuteNode(ctx, nodeID,
		func(n *models.GraphNode) error {
			d, err := s.loadDeliberation(ctx, n.DeliberationID)
			if err != nil {
				return err
			}
			if d.Status != models.StatusActive {
				return dErrors.New(dErrors.CodeConflict, "deliberation graph is frozen")
			}
			decision, err := s.evaluator.CanWriteNode(ctx, actor, n)
			if err != nil {
				return err
			}
			if err := decision.Err(); err != nil {
				return err
			}
			cp := *n
			before = &cp
			return n.CanEdit(label)
		},
		func(n *models.GraphNode) {
			n.ApplyEdit(label, detail, now)
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "node not found")
		}
		return nil, err
	}

	s.record(ctx, audit.Event{
		Actor:        actor.ID,
		Action:       audit.ActionNodeUpdated,
		ResourceType: "graph_node",
		ResourceID:   nodeID.String(),
		Before:       audit.Snapshot(before),
		After:        audit.Snapshot(n),
	})
	return n, nil
}

// CreateEdge links two nodes of the same deliberation. Participant or admin
// only; the deliberation must be active.
func (s *Service) CreateEdge(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID, from, to id.NodeID, kind models.EdgeKind) (*models.GraphEdge, error) {
	d, err := s.loadDeliberation(ctx, deliberationID)
	if err != nil {
		return nil, err
	}
	if d.Status != models.StatusActive {
		return nil, dErrors.New(dErrors.CodeConflict, "deliberation graph is frozen")
	}

	e := models.NewGraphEdge(deliberationID, actor.ID, from, to, kind, requestcontext.Now(ctx))
	if err := e.Validate(); err != nil {
		return nil, err
	}
	decision, err := s.evaluator.CanWriteEdge(ctx, actor, e)
	if err != nil {
		return nil, err
	}
	if err := decision.Err(); err != nil {
		return nil, err
	}

	for _, nodeID := range []id.NodeID{from, to} {
		n, err := s.graph.FindNodeByID(ctx, nodeID)
		if err != nil || n.DeliberationID != deliberationID {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "edge endpoints must belong to the deliberation")
		}
	}

	if err := s.graph.CreateEdge(ctx, e); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create edge")
	}
	s.record(ctx, audit.Event{
		Actor:        actor.ID,
		Action:       audit.ActionEdgeCreated,
		ResourceType: "graph_edge",
		ResourceID:   e.ID.String(),
		After:        audit.Snapshot(e),
	})
	return e, nil
}
