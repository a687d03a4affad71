package audit

import (
	"encoding/json"
	"time"

	id "agora/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. Categories
// drive retention and routing downstream of the outbox.
type EventCategory string

const (
	// CategoryCompliance covers events with governance significance: tier
	// changes, enrollment binding, archival. Long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to monitoring and forensics:
	// escalation denials, code misuse.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// Event is an append-only record of a privileged mutation. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID           string
	Category     EventCategory
	Timestamp    time.Time
	Actor        id.PrincipalID // nil for anonymous or system actors
	Action       Action
	ResourceType string
	ResourceID   string
	Before       json.RawMessage
	After        json.RawMessage
	Reason       string
	RequestID    string
}

// Action tags an audit event. The category is derived from the action; the
// action is the source of truth.
type Action string

const (
	ActionPrincipalProvisioned Action = "principal_provisioned"
	ActionPrincipalArchived    Action = "principal_archived"
	ActionTierChanged          Action = "tier_changed"
	ActionEscalationDenied     Action = "escalation_denied"

	ActionCodeIssued      Action = "code_issued"
	ActionCodeRedeemed    Action = "code_redeemed"
	ActionCodeReset       Action = "code_reset"
	ActionCodeDeactivated Action = "code_deactivated"

	ActionDeliberationCreated Action = "deliberation_created"
	ActionDeliberationStatus  Action = "deliberation_status_changed"
	ActionParticipantJoined   Action = "participant_joined"
	ActionParticipantLeft     Action = "participant_left"

	ActionMessagePosted    Action = "message_posted"
	ActionMessageUpdated   Action = "message_updated"
	ActionNodeCreated      Action = "node_created"
	ActionNodeUpdated      Action = "node_updated"
	ActionEdgeCreated      Action = "edge_created"
	ActionConfigCreated    Action = "agent_config_created"
	ActionConfigUpdated    Action = "agent_config_updated"
	ActionDocumentUploaded Action = "document_uploaded"
)

var actionCategories = map[Action]EventCategory{
	ActionPrincipalProvisioned: CategoryCompliance,
	ActionPrincipalArchived:    CategoryCompliance,
	ActionTierChanged:          CategoryCompliance,
	ActionCodeRedeemed:         CategoryCompliance,
	ActionCodeReset:            CategoryCompliance,

	ActionEscalationDenied: CategorySecurity,
	ActionCodeDeactivated:  CategorySecurity,

	ActionCodeIssued:          CategoryOperations,
	ActionDeliberationCreated: CategoryOperations,
	ActionDeliberationStatus:  CategoryOperations,
	ActionParticipantJoined:   CategoryOperations,
	ActionParticipantLeft:     CategoryOperations,
	ActionMessagePosted:       CategoryOperations,
	ActionMessageUpdated:      CategoryOperations,
	ActionNodeCreated:         CategoryOperations,
	ActionNodeUpdated:         CategoryOperations,
	ActionEdgeCreated:         CategoryOperations,
	ActionConfigCreated:       CategoryOperations,
	ActionConfigUpdated:       CategoryOperations,
	ActionDocumentUploaded:    CategoryOperations,
}

// Category returns the category for an action. Unknown actions default to
// operations.
func (a Action) Category() EventCategory {
	if c, ok := actionCategories[a]; ok {
		return c
	}
	return CategoryOperations
}

// Snapshot marshals a before/after state for an event. Marshal failures yield
// a null snapshot rather than blocking the mutation being audited.
func Snapshot(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`null`)
	}
	return b
}
