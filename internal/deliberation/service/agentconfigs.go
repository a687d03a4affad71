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

// CreateAgentConfig registers an agent configuration. Global configs are
// admin only; scoped configs may also be created by a participant of the
// target deliberation, who becomes the declared creator.
func (s *Service) CreateAgentConfig(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID, name, model, systemPrompt string, temperature float64) (*models.AgentConfig, error) {
	c := models.NewAgentConfig(name, deliberationID, actor.ID, model, systemPrompt, temperature, requestcontext.Now(ctx))
	if err := c.Validate(); err != nil {
		return nil, err
	}
	decision, err := s.evaluator.CanWriteAgentConfig(ctx, actor, c)
	if err != nil {
		return nil, err
	}
	if err := decision.Err(); err != nil {
		return nil, err
	}

	if err := s.configs.Create(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create agent config")
	}
	s.record(ctx, audit.Event{
		Actor:        actor.ID,
		Action:       audit.ActionConfigCreated,
		ResourceType: "agent_config",
		ResourceID:   c.ID.String(),
		After:        audit.Snapshot(c),
	})
	return c, nil
}

// GetAgentConfig returns a config if readable; denied reads report
// not-found.
func (s *Service) GetAgentConfig(ctx context.Context, actor requestcontext.PrincipalContext, configID id.AgentConfigID) (*models.AgentConfig, error) {
	c, err := s.configs.FindByID(ctx, configID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "agent config not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agent config")
	}
	decision, err := s.evaluator.CanReadAgentConfig(ctx, actor, c)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, dErrors.New(dErrors.CodeNotFound, "agent config not found")
	}
	return c, nil
}

// ListAgentConfigs returns the global defaults plus the scoped configs of
// one deliberation the actor may see.
func (s *Service) ListAgentConfigs(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID) ([]*models.AgentConfig, error) {
	global, err := s.configs.ListGlobal(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list agent configs")
	}
	out := global

	if !deliberationID.IsNil() {
		scoped, err := s.configs.ListByDeliberation(ctx, deliberationID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list agent configs")
		}
		for _, c := range scoped {
			decision, err := s.evaluator.CanReadAgentConfig(ctx, actor, c)
			if err != nil {
				return nil, err
			}
			if decision.Allowed {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

// EditAgentConfig updates a config's model, prompt and temperature. Admin or
// the scoped creator.
func (s *Service) EditAgentConfig(ctx context.Context, actor requestcontext.PrincipalContext, configID id.AgentConfigID, model, systemPrompt string, temperature float64) (*models.AgentConfig, error) {
	now := requestcontext.Now(ctx)

	var before *models.AgentConfig
	c, err := s.configs.Execute(ctx, configID,
		func(c *models.AgentConfig) error {
			decision, err := s.evaluator.CanWriteAgentConfig(ctx, actor, c)
			if err != nil {
				return err
			}
			if err := decision.Err(); err != nil {
				return err
			}
			cp := *c
			before = &cp
			return c.CanEdit(model, systemPrompt)
		},
		func(c *models.AgentConfig) {
			c.ApplyEdit(model, systemPrompt, temperature, now)
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "agent config not found")
		}
		return nil, err
	}

	s.record(ctx, audit.Event{
		Actor:        actor.ID,
		Action:       audit.ActionConfigUpdated,
		ResourceType: "agent_config",
		ResourceID:   configID.String(),
		Before:       audit.Snapshot(before),
		After:        audit.Snapshot(c),
	})
	return c, nil
}
