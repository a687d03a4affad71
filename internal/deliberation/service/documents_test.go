package service

import (
	"agora/internal/audit"
	dErrors "agora/pkg/domain-errors"
)

func (s *DeliberationServiceSuite) TestUploadDocument() {
	d := s.activeDeliberation(true)

	s.Run("participant records an upload", func() {
		doc, err := s.service.UploadDocument(s.ctx, s.bob, d.ID, "budget.pdf", "application/pdf", 2048)
		s.Require().NoError(err)
		s.Equal(s.bob.ID, doc.Uploader)
		s.Contains(s.auditActions(), audit.ActionDocumentUploaded)
	})

	s.Run("anonymous may not upload", func() {
		_, err := s.service.UploadDocument(s.ctx, s.anonUser, d.ID, "x.pdf", "application/pdf", 1)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAuthorizationDenied))
	})

	s.Run("zero-byte upload is rejected", func() {
		_, err := s.service.UploadDocument(s.ctx, s.bob, d.ID, "empty.pdf", "application/pdf", 0)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *DeliberationServiceSuite) TestGetDocument_Degradation() {
	d := s.activeDeliberation(true)
	doc, err := s.service.UploadDocument(s.ctx, s.bob, d.ID, "budget.pdf", "application/pdf", 2048)
	s.Require().NoError(err)

	s.Run("uploader reads their record", func() {
		got, err := s.service.GetDocument(s.ctx, s.bob, doc.ID)
		s.Require().NoError(err)
		s.Equal(doc.ID, got.ID)
	})

	s.Run("admin reads any record", func() {
		_, err := s.service.GetDocument(s.ctx, s.admin, doc.ID)
		s.NoError(err)
	})

	s.Run("peers do not see each other's documents", func() {
		_, err := s.service.GetDocument(s.ctx, s.alice, doc.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *DeliberationServiceSuite) TestListDocuments_FiltersByUploader() {
	d := s.activeDeliberation(true)
	_, err := s.service.UploadDocument(s.ctx, s.bob, d.ID, "bob.pdf", "application/pdf", 100)
	s.Require().NoError(err)
	_, err = s.service.UploadDocument(s.ctx, s.alice, d.ID, "alice.pdf", "application/pdf", 100)
	s.Require().NoError(err)

	s.Run("uploader sees only their own", func() {
		docs, err := s.service.ListDocuments(s.ctx, s.bob, d.ID)
		s.Require().NoError(err)
		s.Require().Len(docs, 1)
		s.Equal("bob.pdf", docs[0].Name)
	})

	s.Run("admin sees all", func() {
		docs, err := s.service.ListDocuments(s.ctx, s.admin, d.ID)
		s.Require().NoError(err)
		s.Len(docs, 2)
	})

	s.Run("stranger sees none", func() {
		docs, err := s.service.ListDocuments(s.ctx, s.mallory, d.ID)
		s.Require().NoError(err)
		s.Empty(docs)
	})
}
