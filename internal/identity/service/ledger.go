package service

import (
	"context"
	"errors"

	"agora/internal/audit"
	"agora/internal/identity/models"
	id "agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
	"agora/pkg/platform/sentinel"
	"agora/pkg/requestcontext"
)

// IssueCode mints a new user-type enrollment code. Admin only. Admin-type
// codes never pass through here; they are seeded from config so no runtime
// path can create one.
func (s *Service) IssueCode(ctx context.Context, actor requestcontext.PrincipalContext, maxUses int) (*models.EnrollmentCode, error) {
	isAdmin, err := s.principals.IsAdmin(ctx, actor.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check actor tier")
	}
	if !isAdmin {
		return nil, dErrors.New(dErrors.CodeAuthorizationDenied, "only admins may issue enrollment codes")
	}

	code, err := s.createCode(ctx, models.CodeTypeUser, maxUses)
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.Event{
		Actor:        actor.ID,
		Action:       audit.ActionCodeIssued,
		ResourceType: "enrollment_code",
		ResourceID:   code.Code,
		After:        audit.Snapshot(code),
	})
	return code, nil
}

// SeedAdminCode installs the bootstrap admin code from configuration.
// Idempotent: an already-seeded code is left untouched, bindings included.
func (s *Service) SeedAdminCode(ctx context.Context, codeValue string) error {
	if err := ValidateCodeValue(codeValue); err != nil {
		return err
	}
	code := models.NewEnrollmentCode(codeValue, models.CodeTypeAdmin, 1, requestcontext.Now(ctx))
	if err := s.codes.Create(ctx, code); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed admin code")
	}
	return nil
}

// Redeem claims an enrollment code and returns its bound principal.
//
// An unbound code binds to a freshly minted principal; a bound multi-use code
// re-resolves to its existing principal and counts the use. The claim itself
// is a single atomic step in the store, so two concurrent redemptions of a
// single-use code see exactly one winner; the loser gets the
// already-redeemed error and must use a different code.
func (s *Service) Redeem(ctx context.Context, codeValue string) (*models.Principal, error) {
	existing, err := s.codes.FindByCode(ctx, codeValue)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "unknown enrollment code")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load enrollment code")
	}

	candidate := existing.BoundPrincipal
	fresh := false
	if candidate.IsNil() {
		candidate = id.NewPrincipalID()
		fresh = true
	}

	var principal *models.Principal
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		claimed, err := s.codes.Claim(ctx, codeValue, candidate)
		if err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeCodeAlreadyRedeemed, "enrollment code already redeemed")
			}
			return err
		}

		// The winner of the claim owns the binding; a lost race shows up as
		// a claim bound to someone else.
		if claimed.BoundPrincipal != candidate {
			return dErrors.New(dErrors.CodeCodeAlreadyRedeemed, "enrollment code bound to another principal")
		}

		if fresh {
			p := models.NewPrincipal(candidate, requestcontext.Now(ctx))
			if err := s.principals.Create(ctx, p); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to provision principal for code")
			}
			principal = p
		} else {
			p, err := s.principals.FindByID(ctx, claimed.BoundPrincipal)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load bound principal")
			}
			principal = p
		}

		s.record(ctx, audit.Event{
			Actor:        principal.ID,
			Action:       audit.ActionCodeRedeemed,
			ResourceType: "enrollment_code",
			ResourceID:   codeValue,
			After:        audit.Snapshot(claimed),
		})
		return nil
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementCodeRedemptions("denied")
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementCodeRedemptions("ok")
	}

	// An admin code escalates its principal through the guard. During
	// bootstrap this creates the first administrator; once an admin exists a
	// stale seeded code enrolls a standard principal and the denial is
	// recorded, not surfaced.
	if existing.Type == models.CodeTypeAdmin && fresh {
		actor := requestcontext.PrincipalContext{ID: principal.ID, Method: requestcontext.ResolvedByCode}
		escalated, err := s.SetTier(ctx, actor, principal.ID, models.TierAdmin)
		if err == nil {
			principal = escalated
		} else if !dErrors.HasCode(err, dErrors.CodeEscalationDenied) {
			return nil, err
		}
	}
	return principal, nil
}

// ResetCode clears a code's binding so it can be claimed again. Admin only;
// this is the single sanctioned way a code changes principal.
func (s *Service) ResetCode(ctx context.Context, actor requestcontext.PrincipalContext, codeValue string) (*models.EnrollmentCode, error) {
	return s.mutateCode(ctx, actor, codeValue, audit.ActionCodeReset,
		func(c *models.EnrollmentCode) error { return c.CanReset() },
		func(c *models.EnrollmentCode) { c.ApplyReset() },
	)
}

// DeactivateCode disables a code without touching its binding.
func (s *Service) DeactivateCode(ctx context.Context, actor requestcontext.PrincipalContext, codeValue string) (*models.EnrollmentCode, error) {
	return s.mutateCode(ctx, actor, codeValue, audit.ActionCodeDeactivated,
		func(c *models.EnrollmentCode) error {
			if !c.Active {
				return dErrors.New(dErrors.CodeConflict, "enrollment code is already inactive")
			}
			return nil
		},
		func(c *models.EnrollmentCode) { c.Active = false },
	)
}

func (s *Service) mutateCode(
	ctx context.Context,
	actor requestcontext.PrincipalContext,
	codeValue string,
	action audit.Action,
	validate func(c *models.EnrollmentCode) error,
	mutate func(c *models.EnrollmentCode),
) (*models.EnrollmentCode, error) {
	isAdmin, err := s.principals.IsAdmin(ctx, actor.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check actor tier")
	}
	if !isAdmin {
		return nil, dErrors.New(dErrors.CodeAuthorizationDenied, "only admins may manage enrollment codes")
	}

	var before *models.EnrollmentCode
	code, err := s.codes.Execute(ctx, codeValue,
		func(c *models.EnrollmentCode) error {
			cp := *c
			before = &cp
			return validate(c)
		},
		mutate,
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "unknown enrollment code")
		}
		return nil, err
	}

	s.record(ctx, audit.Event{
		Actor:        actor.ID,
		Action:       action,
		ResourceType: "enrollment_code",
		ResourceID:   codeValue,
		Before:       audit.Snapshot(before),
		After:        audit.Snapshot(code),
	})
	return code, nil
}

func (s *Service) createCode(ctx context.Context, codeType models.CodeType, maxUses int) (*models.EnrollmentCode, error) {
	now := requestcontext.Now(ctx)
	for attempt := 0; attempt < codeGenerationAttempts; attempt++ {
		value, err := GenerateCodeValue()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
		}
		code := models.NewEnrollmentCode(value, codeType, maxUses, now)
		err = s.codes.Create(ctx, code)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store code")
		}
		// Collision; regenerate.
	}
	return nil, dErrors.New(dErrors.CodeInternal, "exhausted code generation attempts")
}
