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

// UploadDocument records an upload. The uploader must be the actor and a
// participant of the target deliberation.
func (s *Service) UploadDocument(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID, name, contentType string, sizeBytes int64) (*models.Document, error) {
	d := models.NewDocument(deliberationID, actor.ID, name, contentType, sizeBytes, requestcontext.Now(ctx))
	decision, err := s.evaluator.CanUploadDocument(ctx, actor, d)
	if err != nil {
		return nil, err
	}
	if err := decision.Err(); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	if err := s.documents.Create(ctx, d); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record document")
	}
	s.record(ctx, audit.Event{
		Actor:        actor.ID,
		Action:       audit.ActionDocumentUploaded,
		ResourceType: "document",
		ResourceID:   d.ID.String(),
		After:        audit.Snapshot(d),
	})
	return d, nil
}

// GetDocument returns a document record if readable; denied reads report
// not-found.
func (s *Service) GetDocument(ctx context.Context, actor requestcontext.PrincipalContext, documentID id.DocumentID) (*models.Document, error) {
	d, err := s.documents.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document")
	}
	decision, err := s.evaluator.CanReadDocument(ctx, actor, d)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
	}
	return d, nil
}

// ListDocuments returns the deliberation's documents the actor may see.
// Uploaders see their own; admins see all; everyone else gets an empty
// result.
func (s *Service) ListDocuments(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID) ([]*models.Document, error) {
	docs, err := s.documents.ListByDeliberation(ctx, deliberationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list documents")
	}
	visible := make([]*models.Document, 0, len(docs))
	for _, d := range docs {
		decision, err := s.evaluator.CanReadDocument(ctx, actor, d)
		if err != nil {
			return nil, err
		}
		if decision.Allowed {
			visible = append(visible, d)
		}
	}
	return visible, nil
}
