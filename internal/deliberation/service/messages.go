package service

import (
	"context"
	"errors"

	"agora/internal/audit"
	"agora/internal/deliberation/models"
	id "agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
	"agora/pkg/platform/sentinel"
	"agora/pkg/requestcontext"
)

// PostMessage creates a message owned by the actor. The deliberation must be
// active and the actor a participant.
func (s *Service) PostMessage(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID, parentID id.MessageID, body string) (*models.Message, error) {
	d, err := s.loadDeliberation(ctx, deliberationID)
	if err != nil {
		return nil, err
	}
	if d.Status != models.StatusActive {
		return nil, dErrors.New(dErrors.CodeConflict, "deliberation is not accepting messages")
	}

	m := models.NewMessage(deliberationID, actor.ID, parentID, body, requestcontext.Now(ctx))
	if err := m.Validate(); err != nil {
		return nil, err
	}
	decision, err := s.evaluator.CanPostMessage(ctx, actor, m)
	if err != nil {
		return nil, err
	}
	if err := decision.Err(); err != nil {
		return nil, err
	}
	if !parentID.IsNil() {
		parent, err := s.messages.FindByID(ctx, parentID)
		if err != nil || parent.DeliberationID != deliberationID {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "parent message is not in this deliberation")
		}
	}

	if err := s.messages.Create(ctx, m); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create message")
	}
	s.record(ctx, audit.Event{
		Actor:        actor.ID,
		Action:       audit.ActionMessagePosted,
		ResourceType: "message",
		ResourceID:   m.ID.String(),
		After:        audit.Snapshot(m),
	})
	return m, nil
}

// GetMessage returns a message if readable; denied reads report not-found.
func (s *Service) GetMessage(ctx context.Context, actor requestcontext.PrincipalContext, messageID id.MessageID) (*models.Message, error) {
	m, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "message not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load message")
	}
	decision, err := s.evaluator.CanReadMessage(ctx, actor, m)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, dErrors.New(dErrors.CodeNotFound, "message not found")
	}
	return m, nil
}

// ListMessages returns a deliberation's messages when the actor may read
// them, otherwise an empty result. One check covers the whole listing since
// every message shares the deliberation's visibility.
func (s *Service) ListMessages(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID) ([]*models.Message, error) {
	probe := &models.Message{DeliberationID: deliberationID}
	decision, err := s.evaluator.CanReadMessage(ctx, actor, probe)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, nil
	}
	msgs, err := s.messages.ListByDeliberation(ctx, deliberationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list messages")
	}
	return msgs, nil
}

// EditMessage updates a message body. Owner or admin only; agent-authored
// messages are immutable through this path.
func (s *Service) EditMessage(ctx context.Context, actor requestcontext.PrincipalContext, messageID id.MessageID, body string) (*models.Message, error) {
	now := requestcontext.Now(ctx)

	var before *models.Message
	m, err := s.messages.Execute(ctx, messageID,
		func(m *models.Message) error {
			decision, err := s.evaluator.CanEditMessage(ctx, actor, m)
			if err != nil {
				return err
			}
			if err := decision.Err(); err != nil {
				return err
			}
			cp := *m
			before = &cp
			return m.CanEdit(body)
		},
		func(m *models.Message) {
			m.ApplyEdit(body, now)
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "message not found")
		}
		return nil, err
	}

	s.record(ctx, audit.Event{
		Actor:        actor.ID,
		Action:       audit.ActionMessageUpdated,
		ResourceType: "message",
		ResourceID:   messageID.String(),
		Before:       audit.Snapshot(before),
		After:        audit.Snapshot(m),
	})
	return m, nil
}
