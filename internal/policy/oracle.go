package policy

import (
	"context"

	id "agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
)

// TierReader is the elevated principal-tier lookup the oracle wraps. It reads
// the tier column directly and is never gated by per-row policy.
type TierReader interface {
	IsAdmin(ctx context.Context, principalID id.PrincipalID) (bool, error)
	AdminExists(ctx context.Context) (bool, error)
}

// RoleOracle answers "is this principal an admin". It is consumed only by the
// evaluator and the escalation guard; handlers never call it directly.
type RoleOracle struct {
	tiers TierReader
}

// NewRoleOracle constructs a RoleOracle over an elevated tier lookup.
func NewRoleOracle(tiers TierReader) *RoleOracle {
	return &RoleOracle{tiers: tiers}
}

// IsAdmin reports the principal's admin standing. Anonymous (nil) principals
// are never admin and skip the lookup.
func (o *RoleOracle) IsAdmin(ctx context.Context, principalID id.PrincipalID) (bool, error) {
	if principalID.IsNil() {
		return false, nil
	}
	isAdmin, err := o.tiers.IsAdmin(ctx, principalID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve principal tier")
	}
	return isAdmin, nil
}
