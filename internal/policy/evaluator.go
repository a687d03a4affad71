package policy

import (
	"context"
	"fmt"

	"agora/internal/deliberation/models"
	id "agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
	"agora/pkg/requestcontext"
)

// DecisionMetrics is the counter surface the evaluator reports to.
type DecisionMetrics interface {
	IncrementDecisions(resource, operation, outcome string)
}

// Evaluator holds one decision function per resource type, each composed
// from the role oracle, the participation index and resource lifecycle
// rules. Rules are evaluated in priority order; the first match wins.
//
// The evaluator only reads facts already loaded by the caller plus the two
// elevated lookups. It never fetches resources itself, so no decision can
// trigger another policy check.
type Evaluator struct {
	oracle        *RoleOracle
	participation Index
	metrics       DecisionMetrics
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithDecisionMetrics sets the metrics sink.
func WithDecisionMetrics(m DecisionMetrics) EvaluatorOption {
	return func(e *Evaluator) { e.metrics = m }
}

// NewEvaluator constructs an Evaluator.
func NewEvaluator(oracle *RoleOracle, participation Index, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{oracle: oracle, participation: participation}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CanReadDeliberation applies the visibility ladder: admin, then
// active-and-public, then concluded-for-participants, then facilitator.
// Draft and archived deliberations are admin-or-facilitator only; concluded
// ones are never visible to non-participants even if they were public while
// active.
func (e *Evaluator) CanReadDeliberation(ctx context.Context, principal requestcontext.PrincipalContext, d *models.Deliberation) (Decision, error) {
	return e.count(ctx, ResourceDeliberation, OperationRead, func(ctx context.Context) (Decision, error) {
		isAdmin, err := e.oracle.IsAdmin(ctx, principal.ID)
		if err != nil {
			return Decision{}, err
		}
		if isAdmin {
			return Allow(), nil
		}
		if d.Status == models.StatusActive && d.Public {
			return Allow(), nil
		}
		if d.Status == models.StatusConcluded {
			participates, err := e.participation.Participates(ctx, principal.ID, d.ID)
			if err != nil {
				return Decision{}, err
			}
			if participates {
				return Allow(), nil
			}
		}
		if !principal.ID.IsNil() && principal.ID == d.Facilitator {
			return Allow(), nil
		}
		return Deny(fmt.Sprintf("deliberation in status %s is not visible", d.Status)), nil
	})
}

// CanWriteDeliberation allows admins and the facilitator.
func (e *Evaluator) CanWriteDeliberation(ctx context.Context, principal requestcontext.PrincipalContext, d *models.Deliberation) (Decision, error) {
	return e.count(ctx, ResourceDeliberation, OperationWrite, func(ctx context.Context) (Decision, error) {
		isAdmin, err := e.oracle.IsAdmin(ctx, principal.ID)
		if err != nil {
			return Decision{}, err
		}
		if isAdmin {
			return Allow(), nil
		}
		if !principal.ID.IsNil() && principal.ID == d.Facilitator {
			return Allow(), nil
		}
		return Deny("only the facilitator or an admin may modify a deliberation"), nil
	})
}

// CanReadParticipant allows admins, the row's own principal, and peers in
// the same deliberation.
func (e *Evaluator) CanReadParticipant(ctx context.Context, principal requestcontext.PrincipalContext, row *models.Participant) (Decision, error) {
	return e.count(ctx, ResourceParticipant, OperationRead, func(ctx context.Context) (Decision, error) {
		isAdmin, err := e.oracle.IsAdmin(ctx, principal.ID)
		if err != nil {
			return Decision{}, err
		}
		if isAdmin {
			return Allow(), nil
		}
		if !principal.ID.IsNil() && principal.ID == row.PrincipalID {
			return Allow(), nil
		}
		participates, err := e.participation.Participates(ctx, principal.ID, row.DeliberationID)
		if err != nil {
			return Decision{}, err
		}
		if participates {
			return Allow(), nil
		}
		return Deny("participant rows are visible to peers and admins only"), nil
	})
}

// CanInsertParticipant lets any resolved principal insert itself. Inserting
// someone else requires admin.
func (e *Evaluator) CanInsertParticipant(ctx context.Context, principal requestcontext.PrincipalContext, row *models.Participant) (Decision, error) {
	return e.count(ctx, ResourceParticipant, OperationWrite, func(ctx context.Context) (Decision, error) {
		if principal.ID.IsNil() {
			return Deny("joining requires a resolved principal"), nil
		}
		if principal.ID == row.PrincipalID {
			return Allow(), nil
		}
		isAdmin, err := e.oracle.IsAdmin(ctx, principal.ID)
		if err != nil {
			return Decision{}, err
		}
		if isAdmin {
			return Allow(), nil
		}
		return Deny("principals may only join on their own behalf"), nil
	})
}

// CanDeleteParticipant allows the row owner and admins.
func (e *Evaluator) CanDeleteParticipant(ctx context.Context, principal requestcontext.PrincipalContext, row *models.Participant) (Decision, error) {
	return e.count(ctx, ResourceParticipant, OperationWrite, func(ctx context.Context) (Decision, error) {
		if !principal.ID.IsNil() && principal.ID == row.PrincipalID {
			return Allow(), nil
		}
		isAdmin, err := e.oracle.IsAdmin(ctx, principal.ID)
		if err != nil {
			return Decision{}, err
		}
		if isAdmin {
			return Allow(), nil
		}
		return Deny("only the participant or an admin may remove a membership"), nil
	})
}

// CanReadMessage allows admins, the owner, and participants of the message's
// deliberation.
func (e *Evaluator) CanReadMessage(ctx context.Context, principal requestcontext.PrincipalContext, m *models.Message) (Decision, error) {
	return e.count(ctx, ResourceMessage, OperationRead, func(ctx context.Context) (Decision, error) {
		isAdmin, err := e.oracle.IsAdmin(ctx, principal.ID)
		if err != nil {
			return Decision{}, err
		}
		if isAdmin {
			return Allow(), nil
		}
		if !principal.ID.IsNil() && principal.ID == m.Owner {
			return Allow(), nil
		}
		participates, err := e.participation.Participates(ctx, principal.ID, m.DeliberationID)
		if err != nil {
			return Decision{}, err
		}
		if participates {
			return Allow(), nil
		}
		return Deny("messages are visible to participants and admins only"), nil
	})
}

// CanPostMessage requires the declared owner to be the resolved principal
// and a participant of the target deliberation.
func (e *Evaluator) CanPostMessage(ctx context.Context, principal requestcontext.PrincipalContext, m *models.Message) (Decision, error) {
	return e.count(ctx, ResourceMessage, OperationWrite, func(ctx context.Context) (Decision, error) {
		if principal.ID.IsNil() {
			return Deny("posting requires a resolved principal"), nil
		}
		if m.Owner != principal.ID {
			return Deny("message owner must be the posting principal"), nil
		}
		participates, err := e.participation.Participates(ctx, principal.ID, m.DeliberationID)
		if err != nil {
			return Decision{}, err
		}
		if !participates {
			return Deny("only participants may post"), nil
		}
		return Allow(), nil
	})
}

// CanEditMessage allows the owner and admins. Agent-authored messages are
// written only by the agent pipeline, which does not pass through here.
func (e *Evaluator) CanEditMessage(ctx context.Context, principal requestcontext.PrincipalContext, m *models.Message) (Decision, error) {
	return e.count(ctx, ResourceMessage, OperationWrite, func(ctx context.Context) (Decision, error) {
		if m.AgentAuthored() {
			return Deny("agent-authored messages are not editable"), nil
		}
		if !principal.ID.IsNil() && principal.ID == m.Owner {
			return Allow(), nil
		}
		isAdmin, err := e.oracle.IsAdmin(ctx, principal.ID)
		if err != nil {
			return Decision{}, err
		}
		if isAdmin {
			return Allow(), nil
		}
		return Deny("only the owner or an admin may edit a message"), nil
	})
}

// CanReadNode allows admins and participants of the node's deliberation.
func (e *Evaluator) CanReadNode(ctx context.Context, principal requestcontext.PrincipalContext, n *models.GraphNode) (Decision, error) {
	return e.graphRead(ctx, ResourceGraphNode, principal, n.DeliberationID)
}

// CanWriteNode allows participants and admins, except agent-authored nodes,
// which only the agent pipeline writes.
func (e *Evaluator) CanWriteNode(ctx context.Context, principal requestcontext.PrincipalContext, n *models.GraphNode) (Decision, error) {
	return e.count(ctx, ResourceGraphNode, OperationWrite, func(ctx context.Context) (Decision, error) {
		if n.AgentAuthored() {
			return Deny("agent-authored nodes are not writable by principals"), nil
		}
		return e.graphWriteDecision(ctx, principal, n.DeliberationID)
	})
}

// CanReadEdge allows admins and participants of the edge's deliberation.
func (e *Evaluator) CanReadEdge(ctx context.Context, principal requestcontext.PrincipalContext, edge *models.GraphEdge) (Decision, error) {
	return e.graphRead(ctx, ResourceGraphEdge, principal, edge.DeliberationID)
}

// CanWriteEdge allows participants and admins.
func (e *Evaluator) CanWriteEdge(ctx context.Context, principal requestcontext.PrincipalContext, edge *models.GraphEdge) (Decision, error) {
	return e.count(ctx, ResourceGraphEdge, OperationWrite, func(ctx context.Context) (Decision, error) {
		return e.graphWriteDecision(ctx, principal, edge.DeliberationID)
	})
}

// CanReadAgentConfig: global configs are readable by everyone; scoped
// configs by participants and admins.
func (e *Evaluator) CanReadAgentConfig(ctx context.Context, principal requestcontext.PrincipalContext, c *models.AgentConfig) (Decision, error) {
	return e.count(ctx, ResourceAgentConfig, OperationRead, func(ctx context.Context) (Decision, error) {
		if c.Global() {
			return Allow(), nil
		}
		isAdmin, err := e.oracle.IsAdmin(ctx, principal.ID)
		if err != nil {
			return Decision{}, err
		}
		if isAdmin {
			return Allow(), nil
		}
		participates, err := e.participation.Participates(ctx, principal.ID, c.DeliberationID)
		if err != nil {
			return Decision{}, err
		}
		if participates {
			return Allow(), nil
		}
		return Deny("scoped agent configs are visible to participants and admins only"), nil
	})
}

// CanWriteAgentConfig: admins always; otherwise the declared creator, when
// the config is scoped to a deliberation they participate in.
func (e *Evaluator) CanWriteAgentConfig(ctx context.Context, principal requestcontext.PrincipalContext, c *models.AgentConfig) (Decision, error) {
	return e.count(ctx, ResourceAgentConfig, OperationWrite, func(ctx context.Context) (Decision, error) {
		isAdmin, err := e.oracle.IsAdmin(ctx, principal.ID)
		if err != nil {
			return Decision{}, err
		}
		if isAdmin {
			return Allow(), nil
		}
		if c.Global() {
			return Deny("global agent configs are admin managed"), nil
		}
		if principal.ID.IsNil() || principal.ID != c.Creator {
			return Deny("only the creator or an admin may modify an agent config"), nil
		}
		participates, err := e.participation.Participates(ctx, principal.ID, c.DeliberationID)
		if err != nil {
			return Decision{}, err
		}
		if !participates {
			return Deny("agent config creator no longer participates in its deliberation"), nil
		}
		return Allow(), nil
	})
}

// CanReadDocument allows admins and the uploader.
func (e *Evaluator) CanReadDocument(ctx context.Context, principal requestcontext.PrincipalContext, d *models.Document) (Decision, error) {
	return e.count(ctx, ResourceDocument, OperationRead, func(ctx context.Context) (Decision, error) {
		isAdmin, err := e.oracle.IsAdmin(ctx, principal.ID)
		if err != nil {
			return Decision{}, err
		}
		if isAdmin {
			return Allow(), nil
		}
		if !principal.ID.IsNil() && principal.ID == d.Uploader {
			return Allow(), nil
		}
		return Deny("documents are visible to their uploader and admins only"), nil
	})
}

// CanUploadDocument requires the declared uploader to be the resolved
// principal.
func (e *Evaluator) CanUploadDocument(ctx context.Context, principal requestcontext.PrincipalContext, d *models.Document) (Decision, error) {
	return e.count(ctx, ResourceDocument, OperationWrite, func(ctx context.Context) (Decision, error) {
		if principal.ID.IsNil() {
			return Deny("uploading requires a resolved principal"), nil
		}
		if d.Uploader != principal.ID {
			return Deny("document uploader must be the uploading principal"), nil
		}
		return Allow(), nil
	})
}

// Authorize is the generic permission check consumed by callers that hold a
// loaded resource but do not care which typed rule applies. Writes map to
// the update rule of each resource; insert paths use the typed methods.
func (e *Evaluator) Authorize(ctx context.Context, principal requestcontext.PrincipalContext, op Operation, resource any) (Decision, error) {
	switch r := resource.(type) {
	case *models.Deliberation:
		if op == OperationRead {
			return e.CanReadDeliberation(ctx, principal, r)
		}
		return e.CanWriteDeliberation(ctx, principal, r)
	case *models.Participant:
		if op == OperationRead {
			return e.CanReadParticipant(ctx, principal, r)
		}
		return e.CanDeleteParticipant(ctx, principal, r)
	case *models.Message:
		if op == OperationRead {
			return e.CanReadMessage(ctx, principal, r)
		}
		return e.CanEditMessage(ctx, principal, r)
	case *models.GraphNode:
		if op == OperationRead {
			return e.CanReadNode(ctx, principal, r)
		}
		return e.CanWriteNode(ctx, principal, r)
	case *models.GraphEdge:
		if op == OperationRead {
			return e.CanReadEdge(ctx, principal, r)
		}
		return e.CanWriteEdge(ctx, principal, r)
	case *models.AgentConfig:
		if op == OperationRead {
			return e.CanReadAgentConfig(ctx, principal, r)
		}
		return e.CanWriteAgentConfig(ctx, principal, r)
	case *models.Document:
		if op == OperationRead {
			return e.CanReadDocument(ctx, principal, r)
		}
		return e.CanUploadDocument(ctx, principal, r)
	default:
		return Decision{}, dErrors.New(dErrors.CodeInternal, fmt.Sprintf("no policy for resource type %T", resource))
	}
}

func (e *Evaluator) graphRead(ctx context.Context, resource ResourceType, principal requestcontext.PrincipalContext, deliberationID id.DeliberationID) (Decision, error) {
	return e.count(ctx, resource, OperationRead, func(ctx context.Context) (Decision, error) {
		isAdmin, err := e.oracle.IsAdmin(ctx, principal.ID)
		if err != nil {
			return Decision{}, err
		}
		if isAdmin {
			return Allow(), nil
		}
		participates, err := e.participation.Participates(ctx, principal.ID, deliberationID)
		if err != nil {
			return Decision{}, err
		}
		if participates {
			return Allow(), nil
		}
		return Deny("the argument graph is visible to participants and admins only"), nil
	})
}

func (e *Evaluator) graphWriteDecision(ctx context.Context, principal requestcontext.PrincipalContext, deliberationID id.DeliberationID) (Decision, error) {
	isAdmin, err := e.oracle.IsAdmin(ctx, principal.ID)
	if err != nil {
		return Decision{}, err
	}
	if isAdmin {
		return Allow(), nil
	}
	participates, err := e.participation.Participates(ctx, principal.ID, deliberationID)
	if err != nil {
		return Decision{}, err
	}
	if participates {
		return Allow(), nil
	}
	return Deny("only participants or admins may modify the argument graph"), nil
}

func (e *Evaluator) count(ctx context.Context, resource ResourceType, op Operation, eval func(ctx context.Context) (Decision, error)) (Decision, error) {
	d, err := eval(ctx)
	if err != nil {
		return Decision{}, err
	}
	if e.metrics != nil {
		outcome := "deny"
		if d.Allowed {
			outcome = "allow"
		}
		e.metrics.IncrementDecisions(string(resource), string(op), outcome)
	}
	return d, nil
}
