// Package models defines the deliberation domain entities: deliberations,
// their participant rosters, discussion messages, the argument graph, agent
// configurations and uploaded documents. Entities carry their own state
// machines; access rules live in internal/policy.
package models

import (
	"fmt"
	"time"

	id "agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
)

// Status is the deliberation lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusConcluded Status = "concluded"
	StatusArchived  Status = "archived"
)

// ParseStatus validates a lifecycle state value.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusDraft, StatusActive, StatusConcluded, StatusArchived:
		return Status(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("invalid deliberation status %q", s))
	}
}

// statusTransitions is the allowed lifecycle graph. Archived is terminal.
var statusTransitions = map[Status][]Status{
	StatusDraft:     {StatusActive, StatusArchived},
	StatusActive:    {StatusConcluded, StatusArchived},
	StatusConcluded: {StatusArchived},
	StatusArchived:  {},
}

// Deliberation is a structured multi-party discussion.
type Deliberation struct {
	ID          id.DeliberationID
	Title       string
	Description string
	Status      Status
	Public      bool
	Facilitator id.PrincipalID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewDeliberation constructs a draft deliberation owned by its facilitator.
func NewDeliberation(title, description string, public bool, facilitator id.PrincipalID, now time.Time) *Deliberation {
	return &Deliberation{
		ID:          id.NewDeliberationID(),
		Title:       title,
		Description: description,
		Status:      StatusDraft,
		Public:      public,
		Facilitator: facilitator,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate checks construction invariants.
func (d *Deliberation) Validate() error {
	if d.Title == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "deliberation title is required")
	}
	if d.Facilitator.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "deliberation facilitator is required")
	}
	return nil
}

// CanTransition validates a lifecycle transition without applying it.
func (d *Deliberation) CanTransition(target Status) error {
	for _, allowed := range statusTransitions[d.Status] {
		if allowed == target {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeConflict,
		fmt.Sprintf("cannot transition deliberation from %s to %s", d.Status, target))
}

// ApplyTransition moves the deliberation to the target state. Call
// CanTransition first.
func (d *Deliberation) ApplyTransition(target Status, now time.Time) {
	d.Status = target
	d.UpdatedAt = now
}
