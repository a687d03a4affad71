//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Package service owns principals and enrollment codes: provisioning,
// archival, the escalation guard around tier mutations, and the enrollment
// ledger. It is the only writer of the Principal.Tier field.
package service

import (
	"context"
	"errors"
	"log/slog"

	"agora/internal/audit"
	"agora/internal/identity/models"
	"agora/internal/identity/store"
	id "agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
	"agora/pkg/platform/sentinel"
	"agora/pkg/requestcontext"
)

// PrincipalStore is the subset of the identity store contract this service
// consumes; see internal/identity/store.
type PrincipalStore interface {
	Create(ctx context.Context, principal *models.Principal) error
	FindByID(ctx context.Context, principalID id.PrincipalID) (*models.Principal, error)
	List(ctx context.Context) ([]*models.Principal, error)
	AdminExists(ctx context.Context) (bool, error)
	IsAdmin(ctx context.Context, principalID id.PrincipalID) (bool, error)
	Execute(
		ctx context.Context,
		principalID id.PrincipalID,
		validate func(p *models.Principal, snap store.Snapshot) error,
		mutate func(p *models.Principal),
	) (*models.Principal, error)
}

// EnrollmentStore is the enrollment-code persistence contract.
type EnrollmentStore interface {
	Create(ctx context.Context, code *models.EnrollmentCode) error
	FindByCode(ctx context.Context, code string) (*models.EnrollmentCode, error)
	Claim(ctx context.Context, code string, candidate id.PrincipalID) (*models.EnrollmentCode, error)
	Execute(
		ctx context.Context,
		code string,
		validate func(c *models.EnrollmentCode) error,
		mutate func(c *models.EnrollmentCode),
	) (*models.EnrollmentCode, error)
}

// AuditRecorder records privileged outcomes. Recording never fails; see
// internal/audit.
type AuditRecorder interface {
	Record(ctx context.Context, event audit.Event)
}

// Metrics is the counter surface the service reports to.
type Metrics interface {
	IncrementCodeRedemptions(outcome string)
	IncrementEscalationDenials()
}

// Service orchestrates principal and enrollment-code lifecycle.
type Service struct {
	principals PrincipalStore
	codes      EnrollmentStore
	auditor    AuditRecorder
	metrics    Metrics
	logger     *slog.Logger
	tx         TxRunner
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditRecorder sets the audit recorder.
func WithAuditRecorder(a AuditRecorder) Option {
	return func(s *Service) { s.auditor = a }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTx sets the transactional boundary. Defaults to NopTx for the
// in-memory stores.
func WithTx(tx TxRunner) Option {
	return func(s *Service) {
		if tx != nil {
			s.tx = tx
		}
	}
}

// New constructs an identity Service.
func New(principals PrincipalStore, codes EnrollmentStore, opts ...Option) *Service {
	s := &Service{
		principals: principals,
		codes:      codes,
		logger:     slog.Default(),
		tx:         NopTx{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provision creates a fresh standard-tier principal.
func (s *Service) Provision(ctx context.Context) (*models.Principal, error) {
	p := models.NewPrincipal(id.NewPrincipalID(), requestcontext.Now(ctx))
	if err := s.principals.Create(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to provision principal")
	}
	s.record(ctx, audit.Event{
		Actor:        p.ID,
		Action:       audit.ActionPrincipalProvisioned,
		ResourceType: "principal",
		ResourceID:   p.ID.String(),
		After:        audit.Snapshot(p),
	})
	return p, nil
}

// EnsureProvisioned returns the principal with the given id, creating it on
// first sight. The resolver middleware calls this for bearer identities whose
// rows the external auth provider has not materialized yet.
func (s *Service) EnsureProvisioned(ctx context.Context, principalID id.PrincipalID) (*models.Principal, error) {
	p, err := s.principals.FindByID(ctx, principalID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load principal")
	}

	p = models.NewPrincipal(principalID, requestcontext.Now(ctx))
	if err := s.principals.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost a provisioning race; the row exists now.
			return s.principals.FindByID(ctx, principalID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to provision principal")
	}
	s.record(ctx, audit.Event{
		Actor:        p.ID,
		Action:       audit.ActionPrincipalProvisioned,
		ResourceType: "principal",
		ResourceID:   p.ID.String(),
		After:        audit.Snapshot(p),
	})
	return p, nil
}

// Get returns a principal. Admins may read anyone; everyone else only
// themselves. A denied read reports not-found so existence does not leak.
func (s *Service) Get(ctx context.Context, actor requestcontext.PrincipalContext, principalID id.PrincipalID) (*models.Principal, error) {
	if principalID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "principal id is required")
	}
	if actor.ID != principalID {
		isAdmin, err := s.principals.IsAdmin(ctx, actor.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check actor tier")
		}
		if !isAdmin {
			return nil, dErrors.New(dErrors.CodeNotFound, "principal not found")
		}
	}
	p, err := s.principals.FindByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "principal not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load principal")
	}
	return p, nil
}

// List returns all non-archived principals. Admin only; non-admins get an
// empty result, not an error, matching the read-degradation policy.
func (s *Service) List(ctx context.Context, actor requestcontext.PrincipalContext) ([]*models.Principal, error) {
	isAdmin, err := s.principals.IsAdmin(ctx, actor.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check actor tier")
	}
	if !isAdmin {
		return nil, nil
	}
	return s.principals.List(ctx)
}

// Archive soft-deletes a principal. Allowed for the principal itself or an
// admin. Audit history keeps referring to the archived id.
func (s *Service) Archive(ctx context.Context, actor requestcontext.PrincipalContext, target id.PrincipalID) error {
	if target.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "principal id is required")
	}
	now := requestcontext.Now(ctx)

	var before *models.Principal
	p, err := s.principals.Execute(ctx, target,
		func(p *models.Principal, snap store.Snapshot) error {
			if actor.ID != target {
				actorIsAdmin, err := snap.IsAdmin(actor.ID)
				if err != nil {
					return err
				}
				if !actorIsAdmin {
					return dErrors.New(dErrors.CodeAuthorizationDenied, "only the principal or an admin may archive")
				}
			}
			cp := *p
			before = &cp
			return p.CanArchive()
		},
		func(p *models.Principal) {
			p.ApplyArchive(now)
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "principal not found")
		}
		return err
	}

	s.record(ctx, audit.Event{
		Actor:        actor.ID,
		Action:       audit.ActionPrincipalArchived,
		ResourceType: "principal",
		ResourceID:   target.String(),
		Before:       audit.Snapshot(before),
		After:        audit.Snapshot(p),
	})
	return nil
}

func (s *Service) record(ctx context.Context, event audit.Event) {
	if s.auditor != nil {
		s.auditor.Record(ctx, event)
	}
}
