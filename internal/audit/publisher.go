package audit

import (
	"context"
	"log/slog"

	id "agora/pkg/domain"
	"agora/pkg/requestcontext"

	"github.com/google/uuid"
)

// Store is the audit persistence contract. The postgres implementation writes
// a transactional outbox; the memory implementation appends to a slice.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByActor(ctx context.Context, actor id.PrincipalID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// FailureCounter observes audit append failures so operators see them even
// though the triggering mutation proceeds.
type FailureCounter interface {
	IncrementAuditFailures()
}

// Publisher records audit events. Record is fire-and-forget with respect to
// the mutation that triggered it: append failures are logged and counted,
// never propagated, so audit trouble cannot roll back or block a mutation.
type Publisher struct {
	store   Store
	logger  *slog.Logger
	metrics FailureCounter
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithLogger sets the failure logger.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithFailureCounter sets the failure metric.
func WithFailureCounter(m FailureCounter) PublisherOption {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// NewPublisher constructs a Publisher.
func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Record appends an audit event. Missing id, timestamp, category and request
// id are filled from context. Never returns an error; see Publisher docs.
func (p *Publisher) Record(ctx context.Context, event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Category == "" {
		event.Category = event.Action.Category()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	if err := p.store.Append(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "audit append failed",
			"error", err,
			"action", string(event.Action),
			"resource_type", event.ResourceType,
			"resource_id", event.ResourceID,
			"request_id", event.RequestID,
		)
		if p.metrics != nil {
			p.metrics.IncrementAuditFailures()
		}
	}
}

// ListByActor returns events recorded for one actor.
func (p *Publisher) ListByActor(ctx context.Context, actor id.PrincipalID) ([]Event, error) {
	return p.store.ListByActor(ctx, actor)
}

// ListRecent returns the most recent events. Callers gate this behind the
// role oracle; the audit log itself performs no policy checks to avoid a
// circular dependency on the evaluator.
func (p *Publisher) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	return p.store.ListRecent(ctx, limit)
}
