package models

import (
	"time"

	id "agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
)

// Tier is a principal's privilege level. There are exactly two: standard and
// admin. Anything finer-grained (facilitator, participant roles) is expressed
// per-deliberation, not on the principal.
type Tier string

const (
	TierStandard Tier = "standard"
	TierAdmin    Tier = "admin"
)

// ParseTier validates a tier string.
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierStandard, TierAdmin:
		return Tier(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "tier must be standard or admin")
	}
}

// Principal is the canonical identity the authorization layer reasons about.
//
// Invariants:
//   - ID is immutable after construction
//   - Tier is mutated only through the escalation guard
//     (identity.Service.SetTier), never written directly by callers
//   - Archived principals stay in the store so audit history keeps resolving,
//     but they are excluded from listings and resolve to anonymous
type Principal struct {
	ID        id.PrincipalID
	Tier      Tier
	Archived  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPrincipal constructs a standard-tier principal.
func NewPrincipal(principalID id.PrincipalID, now time.Time) *Principal {
	return &Principal{
		ID:        principalID,
		Tier:      TierStandard,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsAdmin reports whether the principal holds the admin tier.
func (p *Principal) IsAdmin() bool {
	return p.Tier == TierAdmin && !p.Archived
}

// CanSetTier checks whether the tier transition is meaningful. Use with
// ApplySetTier inside a store Execute callback.
func (p *Principal) CanSetTier(tier Tier) error {
	if p.Archived {
		return dErrors.New(dErrors.CodeConflict, "cannot change tier of an archived principal")
	}
	if p.Tier == tier {
		return dErrors.New(dErrors.CodeConflict, "principal already holds this tier")
	}
	return nil
}

// ApplySetTier transitions the principal to the given tier. Call CanSetTier
// first; the escalation check itself lives in the identity service.
func (p *Principal) ApplySetTier(tier Tier, now time.Time) {
	p.Tier = tier
	p.UpdatedAt = now
}

// CanArchive checks whether the principal can be soft-deleted.
func (p *Principal) CanArchive() error {
	if p.Archived {
		return dErrors.New(dErrors.CodeConflict, "principal is already archived")
	}
	return nil
}

// ApplyArchive soft-deletes the principal.
func (p *Principal) ApplyArchive(now time.Time) {
	p.Archived = true
	p.UpdatedAt = now
}
