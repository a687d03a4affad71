package policy

import (
	"context"

	id "agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
)

// MembershipReader is the elevated participant lookup the index wraps. It
// reads membership rows directly, bypassing the participant-row policy.
type MembershipReader interface {
	ListDeliberationsByPrincipal(ctx context.Context, principalID id.PrincipalID) ([]id.DeliberationID, error)
}

// Index answers "which deliberations does this principal participate in".
// Implementations must not re-enter the evaluator.
type Index interface {
	DeliberationsFor(ctx context.Context, principalID id.PrincipalID) ([]id.DeliberationID, error)
	Participates(ctx context.Context, principalID id.PrincipalID, deliberationID id.DeliberationID) (bool, error)
}

// ParticipationIndex is the store-backed Index.
type ParticipationIndex struct {
	memberships MembershipReader
}

// NewParticipationIndex constructs an index over an elevated membership
// lookup.
func NewParticipationIndex(memberships MembershipReader) *ParticipationIndex {
	return &ParticipationIndex{memberships: memberships}
}

// DeliberationsFor returns the deliberations the principal belongs to.
// Anonymous principals participate in nothing.
func (i *ParticipationIndex) DeliberationsFor(ctx context.Context, principalID id.PrincipalID) ([]id.DeliberationID, error) {
	if principalID.IsNil() {
		return nil, nil
	}
	ids, err := i.memberships.ListDeliberationsByPrincipal(ctx, principalID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve participation")
	}
	return ids, nil
}

// Participates reports membership in one deliberation.
func (i *ParticipationIndex) Participates(ctx context.Context, principalID id.PrincipalID, deliberationID id.DeliberationID) (bool, error) {
	ids, err := i.DeliberationsFor(ctx, principalID)
	if err != nil {
		return false, err
	}
	for _, d := range ids {
		if d == deliberationID {
			return true, nil
		}
	}
	return false, nil
}
