package models

import (
	"time"

	id "agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
)

// AgentConfig parameterizes an AI agent. A nil DeliberationID marks a global
// default readable by everyone; scoped configs belong to one deliberation.
type AgentConfig struct {
	ID             id.AgentConfigID
	Name           string
	DeliberationID id.DeliberationID
	Creator        id.PrincipalID
	Model          string
	SystemPrompt   string
	Temperature    float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewAgentConfig constructs an agent configuration. Pass a nil deliberation
// id for a global default.
func NewAgentConfig(name string, deliberationID id.DeliberationID, creator id.PrincipalID, model, systemPrompt string, temperature float64, now time.Time) *AgentConfig {
	return &AgentConfig{
		ID:             id.NewAgentConfigID(),
		Name:           name,
		DeliberationID: deliberationID,
		Creator:        creator,
		Model:          model,
		SystemPrompt:   systemPrompt,
		Temperature:    temperature,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Validate checks construction invariants.
func (c *AgentConfig) Validate() error {
	if c.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "agent config name is required")
	}
	if c.Model == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "agent config model is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return dErrors.New(dErrors.CodeInvalidInput, "agent config temperature must be between 0 and 2")
	}
	return nil
}

// Global reports whether the config is a shared default rather than scoped
// to one deliberation.
func (c *AgentConfig) Global() bool {
	return c.DeliberationID.IsNil()
}

// CanEdit validates a prompt/model update.
func (c *AgentConfig) CanEdit(model, systemPrompt string) error {
	if model == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "agent config model is required")
	}
	return nil
}

// ApplyEdit replaces the mutable fields. Call CanEdit first.
func (c *AgentConfig) ApplyEdit(model, systemPrompt string, temperature float64, now time.Time) {
	c.Model = model
	c.SystemPrompt = systemPrompt
	c.Temperature = temperature
	c.UpdatedAt = now
}
