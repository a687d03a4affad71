// Package domain defines the typed identifiers shared across services. Each
// resource family gets its own UUID-backed type so a principal id can never be
// passed where a deliberation id is expected.
package domain

import (
	"fmt"

	"github.com/google/uuid"

	dErrors "agora/pkg/domain-errors"
)

type (
	// PrincipalID identifies a canonical principal.
	PrincipalID uuid.UUID
	// DeliberationID identifies a deliberation.
	DeliberationID uuid.UUID
	// MessageID identifies a message.
	MessageID uuid.UUID
	// NodeID identifies an argument-graph node.
	NodeID uuid.UUID
	// EdgeID identifies an argument-graph edge.
	EdgeID uuid.UUID
	// AgentConfigID identifies an agent configuration.
	AgentConfigID uuid.UUID
	// DocumentID identifies an uploaded document.
	DocumentID uuid.UUID
)

func NewPrincipalID() PrincipalID       { return PrincipalID(uuid.New()) }
func NewDeliberationID() DeliberationID { return DeliberationID(uuid.New()) }
func NewMessageID() MessageID           { return MessageID(uuid.New()) }
func NewNodeID() NodeID                 { return NodeID(uuid.New()) }
func NewEdgeID() EdgeID                 { return EdgeID(uuid.New()) }
func NewAgentConfigID() AgentConfigID   { return AgentConfigID(uuid.New()) }
func NewDocumentID() DocumentID         { return DocumentID(uuid.New()) }

func (id PrincipalID) String() string    { return uuid.UUID(id).String() }
func (id DeliberationID) String() string { return uuid.UUID(id).String() }
func (id MessageID) String() string      { return uuid.UUID(id).String() }
func (id NodeID) String() string         { return uuid.UUID(id).String() }
func (id EdgeID) String() string         { return uuid.UUID(id).String() }
func (id AgentConfigID) String() string  { return uuid.UUID(id).String() }
func (id DocumentID) String() string     { return uuid.UUID(id).String() }

// IsNil reports whether the id is the zero UUID. A nil PrincipalID is the
// anonymous principal.
func (id PrincipalID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id DeliberationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id MessageID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id NodeID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id EdgeID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id AgentConfigID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

func (id PrincipalID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id DeliberationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id MessageID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id NodeID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id EdgeID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id AgentConfigID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id DocumentID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }

func (id *PrincipalID) UnmarshalText(text []byte) error {
	u, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = PrincipalID(u)
	return nil
}

func (id *DeliberationID) UnmarshalText(text []byte) error {
	u, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = DeliberationID(u)
	return nil
}

func (id *MessageID) UnmarshalText(text []byte) error {
	u, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = MessageID(u)
	return nil
}

func (id *NodeID) UnmarshalText(text []byte) error {
	u, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = NodeID(u)
	return nil
}

func (id *EdgeID) UnmarshalText(text []byte) error {
	u, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = EdgeID(u)
	return nil
}

func (id *AgentConfigID) UnmarshalText(text []byte) error {
	u, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = AgentConfigID(u)
	return nil
}

func (id *DocumentID) UnmarshalText(text []byte) error {
	u, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = DocumentID(u)
	return nil
}

// parseUUID enforces the shared parsing invariant: ids arriving at trust
// boundaries must be valid, non-nil UUIDs.
func parseUUID(kind, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%s id is required", kind))
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("invalid %s id", kind))
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%s id must not be the nil uuid", kind))
	}
	return u, nil
}

func ParsePrincipalID(raw string) (PrincipalID, error) {
	u, err := parseUUID("principal", raw)
	return PrincipalID(u), err
}

func ParseDeliberationID(raw string) (DeliberationID, error) {
	u, err := parseUUID("deliberation", raw)
	return DeliberationID(u), err
}

func ParseMessageID(raw string) (MessageID, error) {
	u, err := parseUUID("message", raw)
	return MessageID(u), err
}

func ParseNodeID(raw string) (NodeID, error) {
	u, err := parseUUID("node", raw)
	return NodeID(u), err
}

func ParseEdgeID(raw string) (EdgeID, error) {
	u, err := parseUUID("edge", raw)
	return EdgeID(u), err
}

func ParseAgentConfigID(raw string) (AgentConfigID, error) {
	u, err := parseUUID("agent config", raw)
	return AgentConfigID(u), err
}

func ParseDocumentID(raw string) (DocumentID, error) {
	u, err := parseUUID("document", raw)
	return DocumentID(u), err
}
