package service

import (
	"sync"

	"agora/internal/audit"
	"agora/internal/identity/models"
	id "agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
)

const seededAdminCode = "ADMNBTSTRAP2"

// =============================================================================
// Code Issuance and Seeding
// =============================================================================

func (s *ServiceSuite) TestIssueCode() {
	s.Run("admin issues a single-use user code", func() {
		admin := s.provision(models.TierAdmin)
		code, err := s.service.IssueCode(s.ctx, s.asPrincipal(admin.ID), 1)
		s.Require().NoError(err)
		s.Equal(models.CodeTypeUser, code.Type)
		s.True(code.Active)
		s.True(code.SingleUse())
		s.Len(code.Code, CodeLength)
		s.Contains(s.auditActions(), audit.ActionCodeIssued)
	})

	s.Run("non-admin is denied", func() {
		standard := s.provision(models.TierStandard)
		_, err := s.service.IssueCode(s.ctx, s.asPrincipal(standard.ID), 1)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAuthorizationDenied))
	})

	s.Run("anonymous is denied", func() {
		_, err := s.service.IssueCode(s.ctx, s.asPrincipal(id.PrincipalID{}), 1)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAuthorizationDenied))
	})
}

func (s *ServiceSuite) TestSeedAdminCode() {
	s.Run("seeds an admin-type code", func() {
		s.Require().NoError(s.service.SeedAdminCode(s.ctx, seededAdminCode))
		code, err := s.codes.FindByCode(s.ctx, seededAdminCode)
		s.Require().NoError(err)
		s.Equal(models.CodeTypeAdmin, code.Type)
	})

	s.Run("re-seeding is idempotent and keeps bindings", func() {
		s.Require().NoError(s.service.SeedAdminCode(s.ctx, seededAdminCode))
		p, err := s.service.Redeem(s.ctx, seededAdminCode)
		s.Require().NoError(err)

		s.Require().NoError(s.service.SeedAdminCode(s.ctx, seededAdminCode))
		code, err := s.codes.FindByCode(s.ctx, seededAdminCode)
		s.Require().NoError(err)
		s.Equal(p.ID, code.BoundPrincipal)
	})

	s.Run("rejects malformed values", func() {
		err := s.service.SeedAdminCode(s.ctx, "short")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// =============================================================================
// Redemption
// =============================================================================

func (s *ServiceSuite) issueUserCode(maxUses int) *models.EnrollmentCode {
	admin := s.provision(models.TierAdmin)
	code, err := s.service.IssueCode(s.ctx, s.asPrincipal(admin.ID), maxUses)
	s.Require().NoError(err)
	return code
}

func (s *ServiceSuite) TestRedeem() {
	s.Run("unknown code is not-found", func() {
		_, err := s.service.Redeem(s.ctx, "NOSUCHCODE42")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("first redemption provisions and binds a fresh principal", func() {
		code := s.issueUserCode(1)
		p, err := s.service.Redeem(s.ctx, code.Code)
		s.Require().NoError(err)
		s.Equal(models.TierStandard, p.Tier)

		bound, err := s.codes.FindByCode(s.ctx, code.Code)
		s.Require().NoError(err)
		s.Equal(p.ID, bound.BoundPrincipal)
		s.True(bound.Used)
		s.Equal(1, s.metrics.redemptions["ok"])
		s.Contains(s.auditActions(), audit.ActionCodeRedeemed)
	})

	s.Run("second redemption of a single-use code is rejected", func() {
		code := s.issueUserCode(1)
		_, err := s.service.Redeem(s.ctx, code.Code)
		s.Require().NoError(err)

		_, err = s.service.Redeem(s.ctx, code.Code)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeCodeAlreadyRedeemed))
		s.Equal(1, s.metrics.redemptions["denied"])
	})

	s.Run("multi-use code re-resolves to the same principal", func() {
		code := s.issueUserCode(3)
		first, err := s.service.Redeem(s.ctx, code.Code)
		s.Require().NoError(err)
		second, err := s.service.Redeem(s.ctx, code.Code)
		s.Require().NoError(err)
		s.Equal(first.ID, second.ID)

		claimed, err := s.codes.FindByCode(s.ctx, code.Code)
		s.Require().NoError(err)
		s.Equal(2, claimed.Uses)
	})

	s.Run("multi-use code exhausts after max uses", func() {
		code := s.issueUserCode(2)
		_, err := s.service.Redeem(s.ctx, code.Code)
		s.Require().NoError(err)
		_, err = s.service.Redeem(s.ctx, code.Code)
		s.Require().NoError(err)

		_, err = s.service.Redeem(s.ctx, code.Code)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeCodeAlreadyRedeemed))
	})

	s.Run("deactivated code is rejected as inactive", func() {
		admin := s.provision(models.TierAdmin)
		code := s.issueUserCode(1)
		_, err := s.service.DeactivateCode(s.ctx, s.asPrincipal(admin.ID), code.Code)
		s.Require().NoError(err)

		_, err = s.service.Redeem(s.ctx, code.Code)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeCodeInactive))
	})
}

// TestRedeem_ConcurrentSingleUse verifies exactly one winner under concurrent
// redemption of the same single-use code.
func (s *ServiceSuite) TestRedeem_ConcurrentSingleUse() {
	code := s.issueUserCode(1)
	const attempts = 16

	var wg sync.WaitGroup
	winners := make([]*models.Principal, attempts)
	failures := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := s.service.Redeem(s.ctx, code.Code)
			winners[i], failures[i] = p, err
		}(i)
	}
	wg.Wait()

	var won int
	for i := 0; i < attempts; i++ {
		if failures[i] == nil {
			won++
			s.NotNil(winners[i])
		} else {
			s.True(dErrors.HasCode(failures[i], dErrors.CodeCodeAlreadyRedeemed),
				"loser must see already-redeemed, got %v", failures[i])
		}
	}
	s.Equal(1, won)
}

// =============================================================================
// Admin Code Bootstrap
// =============================================================================

func (s *ServiceSuite) TestRedeem_AdminCode() {
	s.Run("seeded code creates the first administrator", func() {
		s.Require().NoError(s.service.SeedAdminCode(s.ctx, seededAdminCode))
		p, err := s.service.Redeem(s.ctx, seededAdminCode)
		s.Require().NoError(err)
		s.Equal(models.TierAdmin, p.Tier)
	})

	s.Run("stale seeded code enrolls a standard principal once an admin exists", func() {
		s.provision(models.TierAdmin)
		s.Require().NoError(s.service.SeedAdminCode(s.ctx, "SECNDADMNXY2"))

		p, err := s.service.Redeem(s.ctx, "SECNDADMNXY2")
		s.Require().NoError(err)
		s.Equal(models.TierStandard, p.Tier)
		s.Contains(s.auditActions(), audit.ActionEscalationDenied)
	})
}

// =============================================================================
// Reset and Deactivation
// =============================================================================

func (s *ServiceSuite) TestResetCode() {
	admin := s.provision(models.TierAdmin)
	code := s.issueUserCode(1)
	first, err := s.service.Redeem(s.ctx, code.Code)
	s.Require().NoError(err)

	s.Run("non-admin may not reset", func() {
		standard := s.provision(models.TierStandard)
		_, err := s.service.ResetCode(s.ctx, s.asPrincipal(standard.ID), code.Code)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAuthorizationDenied))
	})

	s.Run("reset clears the binding so the code can rebind", func() {
		reset, err := s.service.ResetCode(s.ctx, s.asPrincipal(admin.ID), code.Code)
		s.Require().NoError(err)
		s.False(reset.Bound())
		s.False(reset.Used)
		s.Contains(s.auditActions(), audit.ActionCodeReset)

		second, err := s.service.Redeem(s.ctx, code.Code)
		s.Require().NoError(err)
		s.NotEqual(first.ID, second.ID)
	})

	s.Run("unbound code cannot be reset", func() {
		fresh := s.issueUserCode(1)
		_, err := s.service.ResetCode(s.ctx, s.asPrincipal(admin.ID), fresh.Code)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestDeactivateCode() {
	admin := s.provision(models.TierAdmin)
	code := s.issueUserCode(1)

	s.Run("deactivation keeps the binding untouched", func() {
		_, err := s.service.Redeem(s.ctx, code.Code)
		s.Require().NoError(err)

		deactivated, err := s.service.DeactivateCode(s.ctx, s.asPrincipal(admin.ID), code.Code)
		s.Require().NoError(err)
		s.False(deactivated.Active)
		s.True(deactivated.Bound())
		s.Contains(s.auditActions(), audit.ActionCodeDeactivated)
	})

	s.Run("double deactivation conflicts", func() {
		_, err := s.service.DeactivateCode(s.ctx, s.asPrincipal(admin.ID), code.Code)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}
