package service

import (
	"agora/internal/audit"
	"agora/internal/deliberation/models"
	id "agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
)

// seedAgentMessage plants an agent-authored message directly in the store,
// the way the agent pipeline would.
func (s *DeliberationServiceSuite) seedAgentMessage(deliberationID id.DeliberationID) *models.Message {
	m := models.NewMessage(deliberationID, id.PrincipalID{}, id.MessageID{}, "synthesis", s.now)
	s.Require().NoError(s.messages.Create(s.ctx, m))
	return m
}

func (s *DeliberationServiceSuite) TestPostMessage() {
	d := s.activeDeliberation(true)

	s.Run("participant posts", func() {
		m, err := s.service.PostMessage(s.ctx, s.bob, d.ID, id.MessageID{}, "first point")
		s.Require().NoError(err)
		s.Equal(s.bob.ID, m.Owner)
		s.Contains(s.auditActions(), audit.ActionMessagePosted)
	})

	s.Run("reply references a parent in the same deliberation", func() {
		parent, err := s.service.PostMessage(s.ctx, s.alice, d.ID, id.MessageID{}, "root")
		s.Require().NoError(err)

		reply, err := s.service.PostMessage(s.ctx, s.bob, d.ID, parent.ID, "reply")
		s.Require().NoError(err)
		s.Equal(parent.ID, reply.ParentID)
	})

	s.Run("parent from another deliberation is rejected", func() {
		other := s.activeDeliberation(true)
		foreign, err := s.service.PostMessage(s.ctx, s.bob, other.ID, id.MessageID{}, "elsewhere")
		s.Require().NoError(err)

		_, err = s.service.PostMessage(s.ctx, s.bob, d.ID, foreign.ID, "cross-thread")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("non-participant may not post", func() {
		_, err := s.service.PostMessage(s.ctx, s.mallory, d.ID, id.MessageID{}, "drive-by")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAuthorizationDenied))
	})

	s.Run("empty body is rejected", func() {
		_, err := s.service.PostMessage(s.ctx, s.bob, d.ID, id.MessageID{}, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("non-active deliberation rejects posts", func() {
		_, err := s.service.Transition(s.ctx, s.alice, d.ID, models.StatusConcluded)
		s.Require().NoError(err)

		_, err = s.service.PostMessage(s.ctx, s.bob, d.ID, id.MessageID{}, "too late")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *DeliberationServiceSuite) TestGetMessage_Degradation() {
	d := s.activeDeliberation(true)
	m, err := s.service.PostMessage(s.ctx, s.bob, d.ID, id.MessageID{}, "visible to peers")
	s.Require().NoError(err)

	s.Run("peer reads", func() {
		got, err := s.service.GetMessage(s.ctx, s.alice, m.ID)
		s.Require().NoError(err)
		s.Equal(m.ID, got.ID)
	})

	s.Run("stranger gets not-found", func() {
		_, err := s.service.GetMessage(s.ctx, s.mallory, m.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("owner who left still reads their own message", func() {
		s.Require().NoError(s.service.Leave(s.ctx, s.bob, d.ID, s.bob.ID))
		got, err := s.service.GetMessage(s.ctx, s.bob, m.ID)
		s.Require().NoError(err)
		s.Equal(m.ID, got.ID)
	})
}

func (s *DeliberationServiceSuite) TestListMessages_Degradation() {
	d := s.activeDeliberation(true)
	_, err := s.service.PostMessage(s.ctx, s.bob, d.ID, id.MessageID{}, "one")
	s.Require().NoError(err)
	_, err = s.service.PostMessage(s.ctx, s.alice, d.ID, id.MessageID{}, "two")
	s.Require().NoError(err)

	s.Run("participant sees the thread", func() {
		msgs, err := s.service.ListMessages(s.ctx, s.bob, d.ID)
		s.Require().NoError(err)
		s.Len(msgs, 2)
	})

	s.Run("stranger gets an empty thread, not an error", func() {
		msgs, err := s.service.ListMessages(s.ctx, s.mallory, d.ID)
		s.Require().NoError(err)
		s.Empty(msgs)
	})

	s.Run("admin sees everything", func() {
		msgs, err := s.service.ListMessages(s.ctx, s.admin, d.ID)
		s.Require().NoError(err)
		s.Len(msgs, 2)
	})
}

func (s *DeliberationServiceSuite) TestEditMessage() {
	d := s.activeDeliberation(true)
	m, err := s.service.PostMessage(s.ctx, s.bob, d.ID, id.MessageID{}, "draft wording")
	s.Require().NoError(err)

	s.Run("owner edits", func() {
		got, err := s.service.EditMessage(s.ctx, s.bob, m.ID, "final wording")
		s.Require().NoError(err)
		s.Equal("final wording", got.Body)
		s.Contains(s.auditActions(), audit.ActionMessageUpdated)
	})

	s.Run("admin edits someone else's message", func() {
		_, err := s.service.EditMessage(s.ctx, s.admin, m.ID, "moderated")
		s.NoError(err)
	})

	s.Run("peer may not edit", func() {
		_, err := s.service.EditMessage(s.ctx, s.alice, m.ID, "hijack")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAuthorizationDenied))
	})

	s.Run("agent-authored message is immutable even for admins", func() {
		agent := s.seedAgentMessage(d.ID)
		_, err := s.service.EditMessage(s.ctx, s.admin, agent.ID, "rewrite")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAuthorizationDenied))
	})

	s.Run("unknown message reports not-found", func() {
		_, err := s.service.EditMessage(s.ctx, s.bob, id.NewMessageID(), "ghost")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// denied edits must not leak through to storage
func (s *DeliberationServiceSuite) TestEditMessage_DenialLeavesRowUnchanged() {
	d := s.activeDeliberation(true)
	m, err := s.service.PostMessage(s.ctx, s.bob, d.ID, id.MessageID{}, "original")
	s.Require().NoError(err)

	_, err = s.service.EditMessage(s.ctx, s.mallory, m.ID, "tampered")
	s.Require().Error(err)

	got, err := s.messages.FindByID(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Equal("original", got.Body)
}
