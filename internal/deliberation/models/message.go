package models

import (
	"time"

	id "agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
)

// Message is a discussion post inside a deliberation. Owner is nil for
// agent-authored messages; those are only ever written through the agent
// pipeline, never by ordinary principals.
type Message struct {
	ID             id.MessageID
	DeliberationID id.DeliberationID
	Owner          id.PrincipalID
	ParentID       id.MessageID
	Body           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewMessage constructs a message. A nil owner marks an agent-authored post.
func NewMessage(deliberationID id.DeliberationID, owner id.PrincipalID, parentID id.MessageID, body string, now time.Time) *Message {
	return &Message{
		ID:             id.NewMessageID(),
		DeliberationID: deliberationID,
		Owner:          owner,
		ParentID:       parentID,
		Body:           body,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Validate checks construction invariants.
func (m *Message) Validate() error {
	if m.Body == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "message body is required")
	}
	if m.DeliberationID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "message deliberation is required")
	}
	return nil
}

// AgentAuthored reports whether the message has no owning principal.
func (m *Message) AgentAuthored() bool {
	return m.Owner.IsNil()
}

// CanEdit validates a body update.
func (m *Message) CanEdit(body string) error {
	if body == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "message body is required")
	}
	return nil
}

// ApplyEdit replaces the body. Call CanEdit first.
func (m *Message) ApplyEdit(body string, now time.Time) {
	m.Body = body
	m.UpdatedAt = now
}
