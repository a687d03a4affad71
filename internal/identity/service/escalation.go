package service

import (
	"context"
	"errors"

	"agora/internal/audit"
	"agora/internal/identity/models"
	"agora/internal/identity/store"
	id "agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
	"agora/pkg/platform/sentinel"
	"agora/pkg/requestcontext"
)

// SetTier mutates a principal's privilege tier through the escalation guard.
//
// The guard has two states, derived from the store rather than kept anywhere
// mutable: while no admin exists (bootstrap) any tier mutation is allowed,
// since that is the only path to the first administrator. Once any admin exists,
// only an admin actor may mutate tiers; everyone else gets escalation-denied
// and the row is untouched.
//
// The admin-existence check, the actor-tier check and the write all happen
// inside the store's Execute, which holds its lock (or transaction) for the
// whole sequence: two concurrent writers can never both observe the bootstrap
// state.
func (s *Service) SetTier(ctx context.Context, actor requestcontext.PrincipalContext, target id.PrincipalID, tier models.Tier) (*models.Principal, error) {
	if target.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "principal id is required")
	}
	now := requestcontext.Now(ctx)

	var before *models.Principal
	var updated *models.Principal
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.principals.Execute(ctx, target,
			func(p *models.Principal, snap store.Snapshot) error {
				if err := p.CanSetTier(tier); err != nil {
					return err
				}
				adminExists, err := snap.AdminExists()
				if err != nil {
					return err
				}
				if adminExists {
					actorIsAdmin, err := snap.IsAdmin(actor.ID)
					if err != nil {
						return err
					}
					if !actorIsAdmin {
						return dErrors.New(dErrors.CodeEscalationDenied, "tier mutation requires an admin actor")
					}
				}
				cp := *p
				before = &cp
				return nil
			},
			func(p *models.Principal) {
				p.ApplySetTier(tier, now)
			},
		)
		if err != nil {
			return err
		}
		updated = p

		s.record(ctx, audit.Event{
			Actor:        actor.ID,
			Action:       audit.ActionTierChanged,
			ResourceType: "principal",
			ResourceID:   target.String(),
			Before:       audit.Snapshot(before),
			After:        audit.Snapshot(updated),
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "principal not found")
		}
		if dErrors.HasCode(err, dErrors.CodeEscalationDenied) {
			s.record(ctx, audit.Event{
				Actor:        actor.ID,
				Action:       audit.ActionEscalationDenied,
				ResourceType: "principal",
				ResourceID:   target.String(),
				Reason:       "non-admin tier mutation while an admin exists",
			})
			if s.metrics != nil {
				s.metrics.IncrementEscalationDenials()
			}
		}
		return nil, err
	}
	return updated, nil
}
