package models

import (
	"time"

	id "agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
)

// maxDocumentSize caps uploads at 32 MiB.
const maxDocumentSize = 32 << 20

// Document is an uploaded file attached to a deliberation. Visibility is
// restricted to the uploader and admins.
type Document struct {
	ID             id.DocumentID
	DeliberationID id.DeliberationID
	Uploader       id.PrincipalID
	Name           string
	ContentType    string
	SizeBytes      int64
	CreatedAt      time.Time
}

// NewDocument constructs a document record.
func NewDocument(deliberationID id.DeliberationID, uploader id.PrincipalID, name, contentType string, sizeBytes int64, now time.Time) *Document {
	return &Document{
		ID:             id.NewDocumentID(),
		DeliberationID: deliberationID,
		Uploader:       uploader,
		Name:           name,
		ContentType:    contentType,
		SizeBytes:      sizeBytes,
		CreatedAt:      now,
	}
}

// Validate checks construction invariants.
func (d *Document) Validate() error {
	if d.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "document name is required")
	}
	if d.Uploader.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "document uploader is required")
	}
	if d.SizeBytes <= 0 || d.SizeBytes > maxDocumentSize {
		return dErrors.New(dErrors.CodeInvalidInput, "document size is out of range")
	}
	return nil
}
