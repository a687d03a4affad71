package models

import (
	"time"

	id "agora/pkg/domain"
)

// ParticipantRole distinguishes the facilitator row from ordinary members.
type ParticipantRole string

const (
	RoleParticipant ParticipantRole = "participant"
	RoleFacilitator ParticipantRole = "facilitator"
)

// Participant is a membership row binding a principal to a deliberation.
// The pair (DeliberationID, PrincipalID) is unique.
type Participant struct {
	DeliberationID id.DeliberationID
	PrincipalID    id.PrincipalID
	Role           ParticipantRole
	JoinedAt       time.Time
}

// NewParticipant constructs a membership row.
func NewParticipant(deliberationID id.DeliberationID, principalID id.PrincipalID, role ParticipantRole, now time.Time) *Participant {
	return &Participant{
		DeliberationID: deliberationID,
		PrincipalID:    principalID,
		Role:           role,
		JoinedAt:       now,
	}
}
