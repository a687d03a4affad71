// Package service orchestrates the deliberation domain: lifecycle,
// membership, messages, the argument graph, agent configs and documents.
// Every external entry point consults the policy evaluator before touching a
// store; denied reads degrade to not-found or empty results, denied writes
// surface the authorization error.
package service

import (
	"context"
	"errors"
	"log/slog"

	"agora/internal/audit"
	"agora/internal/deliberation/models"
	"agora/internal/deliberation/store"
	"agora/internal/policy"
	id "agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
	"agora/pkg/platform/sentinel"
	"agora/pkg/requestcontext"
)

// AuditRecorder records privileged outcomes; see internal/audit.
type AuditRecorder interface {
	Record(ctx context.Context, event audit.Event)
}

// ParticipationInvalidator drops cached participation after membership
// writes. Satisfied by policy.CachedIndex.
type ParticipationInvalidator interface {
	Invalidate(ctx context.Context, principalID id.PrincipalID)
}

// TxRunner is the transactional boundary for multi-row writes.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopTx runs the callback without a transaction, for the in-memory stores.
type NopTx struct{}

// RunInTx implements TxRunner.
func (NopTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Service is the policy-gated facade over the deliberation domain.
type Service struct {
	deliberations store.DeliberationStore
	participants  store.ParticipantStore
	messages      store.MessageStore
	graph         store.GraphStore
	configs       store.AgentConfigStore
	documents     store.DocumentStore

	evaluator   *policy.Evaluator
	auditor     AuditRecorder
	invalidator ParticipationInvalidator
	tx          TxRunner
	logger      *slog.Logger
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

// WithParticipationInvalidator sets the cache invalidation hook.
func WithParticipationInvalidator(inv ParticipationInvalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

// WithTx sets the transactional boundary. Defaults to NopTx.
func WithTx(tx TxRunner) Option {
	return func(s *Service) {
		if tx != nil {
			s.tx = tx
		}
	}
}

// Stores bundles the domain's persistence backends.
type Stores struct {
	Deliberations store.DeliberationStore
	Participants  store.ParticipantStore
	Messages      store.MessageStore
	Graph         store.GraphStore
	Configs       store.AgentConfigStore
	Documents     store.DocumentStore
}

// New constructs a deliberation Service.
func New(stores Stores, evaluator *policy.Evaluator, opts ...Option) *Service {
	s := &Service{
		deliberations: stores.Deliberations,
		participants:  stores.Participants,
		messages:      stores.Messages,
		graph:         stores.Graph,
		configs:       stores.Configs,
		documents:     stores.Documents,
		evaluator:     evaluator,
		tx:            NopTx{},
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a draft deliberation facilitated by the actor. The
// facilitator is inserted as a participant in the same transaction, so the
// participation index covers them from the first moment.
func (s *Service) Create(ctx context.Context, actor requestcontext.PrincipalContext, title, description string, public bool) (*models.Deliberation, error) {
	if actor.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeAuthorizationDenied, "creating a deliberation requires a resolved principal")
	}
	now := requestcontext.Now(ctx)
	d := models.NewDeliberation(title, description, public, actor.ID, now)
	if err := d.Validate(); err != nil {
		return nil, err
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.deliberations.Create(ctx, d); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create deliberation")
		}
		row := models.NewParticipant(d.ID, actor.ID, models.RoleFacilitator, now)
		if err := s.participants.Add(ctx, row); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to add facilitator membership")
		}
		s.record(ctx, audit.Event{
			Actor:        actor.ID,
			Action:       audit.ActionDeliberationCreated,
			ResourceType: "deliberation",
			ResourceID:   d.ID.String(),
			After:        audit.Snapshot(d),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, actor.ID)
	return d, nil
}

// Get returns a deliberation if the actor may read it; denied reads report
// not-found.
func (s *Service) Get(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID) (*models.Deliberation, error) {
	d, err := s.loadDeliberation(ctx, deliberationID)
	if err != nil {
		return nil, err
	}
	decision, err := s.evaluator.CanReadDeliberation(ctx, actor, d)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, dErrors.New(dErrors.CodeNotFound, "deliberation not found")
	}
	return d, nil
}

// List returns the deliberations visible to the actor. Denials filter rows
// instead of failing the call.
func (s *Service) List(ctx context.Context, actor requestcontext.PrincipalContext) ([]*models.Deliberation, error) {
	all, err := s.deliberations.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list deliberations")
	}
	visible := make([]*models.Deliberation, 0, len(all))
	for _, d := range all {
		decision, err := s.evaluator.CanReadDeliberation(ctx, actor, d)
		if err != nil {
			return nil, err
		}
		if decision.Allowed {
			visible = append(visible, d)
		}
	}
	return visible, nil
}

// Transition moves a deliberation through its lifecycle. Facilitator or
// admin only.
func (s *Service) Transition(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID, target models.Status) (*models.Deliberation, error) {
	now := requestcontext.Now(ctx)

	var before *models.Deliberation
	d, err := s.deliberations.Execute(ctx, deliberationID,
		func(d *models.Deliberation) error {
			decision, err := s.evaluator.CanWriteDeliberation(ctx, actor, d)
			if err != nil {
				return err
			}
			if err := decision.Err(); err != nil {
				return err
			}
			cp := *d
			before = &cp
			return d.CanTransition(target)
		},
		func(d *models.Deliberation) {
			d.ApplyTransition(target, now)
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "deliberation not found")
		}
		return nil, err
	}

	s.record(ctx, audit.Event{
		Actor:        actor.ID,
		Action:       audit.ActionDeliberationStatus,
		ResourceType: "deliberation",
		ResourceID:   deliberationID.String(),
		Before:       audit.Snapshot(before),
		After:        audit.Snapshot(d),
	})
	return d, nil
}

// Join inserts the actor into a deliberation's roster. The target must be
// readable by the actor and currently active.
func (s *Service) Join(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID) (*models.Participant, error) {
	d, err := s.loadDeliberation(ctx, deliberationID)
	if err != nil {
		return nil, err
	}
	readable, err := s.evaluator.CanReadDeliberation(ctx, actor, d)
	if err != nil {
		return nil, err
	}
	if !readable.Allowed {
		return nil, dErrors.New(dErrors.CodeNotFound, "deliberation not found")
	}
	if d.Status != models.StatusActive {
		return nil, dErrors.New(dErrors.CodeConflict, "deliberation is not accepting participants")
	}

	row := models.NewParticipant(deliberationID, actor.ID, models.RoleParticipant, requestcontext.Now(ctx))
	decision, err := s.evaluator.CanInsertParticipant(ctx, actor, row)
	if err != nil {
		return nil, err
	}
	if err := decision.Err(); err != nil {
		return nil, err
	}

	if err := s.participants.Add(ctx, row); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "already a participant")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to join deliberation")
	}
	s.invalidate(ctx, actor.ID)

	s.record(ctx, audit.Event{
		Actor:        actor.ID,
		Action:       audit.ActionParticipantJoined,
		ResourceType: "participant",
		ResourceID:   deliberationID.String(),
		After:        audit.Snapshot(row),
	})
	return row, nil
}

// Leave removes a membership row. Row owner or admin only.
func (s *Service) Leave(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID, principalID id.PrincipalID) error {
	row, err := s.participants.Find(ctx, deliberationID, principalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "participant not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load participant")
	}

	decision, err := s.evaluator.CanDeleteParticipant(ctx, actor, row)
	if err != nil {
		return err
	}
	if err := decision.Err(); err != nil {
		return err
	}

	if err := s.participants.Remove(ctx, deliberationID, principalID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "participant not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove participant")
	}
	s.invalidate(ctx, principalID)

	s.record(ctx, audit.Event{
		Actor:        actor.ID,
		Action:       audit.ActionParticipantLeft,
		ResourceType: "participant",
		ResourceID:   deliberationID.String(),
		Before:       audit.Snapshot(row),
	})
	return nil
}

// ListParticipants returns the roster rows the actor may see. Non-peers get
// an empty result.
func (s *Service) ListParticipants(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID) ([]*models.Participant, error) {
	rows, err := s.participants.ListByDeliberation(ctx, deliberationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list participants")
	}
	visible := make([]*models.Participant, 0, len(rows))
	for _, row := range rows {
		decision, err := s.evaluator.CanReadParticipant(ctx, actor, row)
		if err != nil {
			return nil, err
		}
		if decision.Allowed {
			visible = append(visible, row)
		}
	}
	return visible, nil
}

func (s *Service) loadDeliberation(ctx context.Context, deliberationID id.DeliberationID) (*models.Deliberation, error) {
	d, err := s.deliberations.FindByID(ctx, deliberationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "deliberation not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load deliberation")
	}
	return d, nil
}

func (s *Service) record(ctx context.Context, event audit.Event) {
	if s.auditor != nil {
		s.auditor.Record(ctx, event)
	}
}

func (s *Service) invalidate(ctx context.Context, principalID id.PrincipalID) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, principalID)
	}
}
