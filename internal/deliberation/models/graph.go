package models

import (
	"fmt"
	"time"

	id "agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
)

// NodeKind classifies argument-graph nodes per the IBIS vocabulary.
type NodeKind string

const (
	NodeIssue    NodeKind = "issue"
	NodePosition NodeKind = "position"
	NodeArgument NodeKind = "argument"
)

// ParseNodeKind validates a node kind value.
func ParseNodeKind(s string) (NodeKind, error) {
	switch NodeKind(s) {
	case NodeIssue, NodePosition, NodeArgument:
		return NodeKind(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("invalid node kind %q", s))
	}
}

// EdgeKind classifies relationships between graph nodes.
type EdgeKind string

const (
	EdgeSupports EdgeKind = "supports"
	EdgeObjects  EdgeKind = "objects"
	EdgeRespond  EdgeKind = "responds_to"
)

// ParseEdgeKind validates an edge kind value.
func ParseEdgeKind(s string) (EdgeKind, error) {
	switch EdgeKind(s) {
	case EdgeSupports, EdgeObjects, EdgeRespond:
		return EdgeKind(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("invalid edge kind %q", s))
	}
}

// GraphNode is an issue, position or argument in a deliberation's argument
// graph. Owner is nil for agent-authored nodes.
type GraphNode struct {
	ID             id.NodeID
	DeliberationID id.DeliberationID
	Owner          id.PrincipalID
	Kind           NodeKind
	Label          string
	Detail         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewGraphNode constructs a graph node.
func NewGraphNode(deliberationID id.DeliberationID, owner id.PrincipalID, kind NodeKind, label, detail string, now time.Time) *GraphNode {
	return &GraphNode{
		ID:             id.NewNodeID(),
		DeliberationID: deliberationID,
		Owner:          owner,
		Kind:           kind,
		Label:          label,
		Detail:         detail,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Validate checks construction invariants.
func (n *GraphNode) Validate() error {
	if n.Label == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "node label is required")
	}
	if n.DeliberationID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "node deliberation is required")
	}
	return nil
}

// AgentAuthored reports whether the node has no owning principal.
func (n *GraphNode) AgentAuthored() bool {
	return n.Owner.IsNil()
}

// CanEdit validates a label/detail update.
func (n *GraphNode) CanEdit(label string) error {
	if label == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "node label is required")
	}
	return nil
}

// ApplyEdit replaces label and detail. Call CanEdit first.
func (n *GraphNode) ApplyEdit(label, detail string, now time.Time) {
	n.Label = label
	n.Detail = detail
	n.UpdatedAt = now
}

// GraphEdge is a typed relationship between two nodes of one deliberation.
type GraphEdge struct {
	ID             id.EdgeID
	DeliberationID id.DeliberationID
	Owner          id.PrincipalID
	From           id.NodeID
	To             id.NodeID
	Kind           EdgeKind
	CreatedAt      time.Time
}

// NewGraphEdge constructs a graph edge.
func NewGraphEdge(deliberationID id.DeliberationID, owner id.PrincipalID, from, to id.NodeID, kind EdgeKind, now time.Time) *GraphEdge {
	return &GraphEdge{
		ID:             id.NewEdgeID(),
		DeliberationID: deliberationID,
		Owner:          owner,
		From:           from,
		To:             to,
		Kind:           kind,
		CreatedAt:      now,
	}
}

// Validate checks construction invariants. Both endpoints must be set and
// distinct; endpoint deliberation matching is enforced by the service.
func (e *GraphEdge) Validate() error {
	if e.From.IsNil() || e.To.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "edge endpoints are required")
	}
	if e.From == e.To {
		return dErrors.New(dErrors.CodeInvalidInput, "edge endpoints must differ")
	}
	return nil
}
