package service

import (
	id "agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
)

func (s *DeliberationServiceSuite) TestCreateAgentConfig() {
	d := s.activeDeliberation(true)

	s.Run("admin creates a global default", func() {
		c, err := s.service.CreateAgentConfig(s.ctx, s.admin, id.DeliberationID{}, "moderator", "gpt-4", "keep it civil", 0.7)
		s.Require().NoError(err)
		s.True(c.Global())
	})

	s.Run("global configs are admin managed", func() {
		_, err := s.service.CreateAgentConfig(s.ctx, s.alice, id.DeliberationID{}, "rogue", "gpt-4", "", 0.7)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAuthorizationDenied))
	})

	s.Run("participant creates a scoped config", func() {
		c, err := s.service.CreateAgentConfig(s.ctx, s.bob, d.ID, "summarizer", "gpt-4", "summarize threads", 0.3)
		s.Require().NoError(err)
		s.Equal(s.bob.ID, c.Creator)
		s.False(c.Global())
	})

	s.Run("non-participant may not scope a config to the deliberation", func() {
		_, err := s.service.CreateAgentConfig(s.ctx, s.mallory, d.ID, "infiltrator", "gpt-4", "", 0.3)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAuthorizationDenied))
	})

	s.Run("temperature out of range is rejected", func() {
		_, err := s.service.CreateAgentConfig(s.ctx, s.admin, id.DeliberationID{}, "hot", "gpt-4", "", 2.5)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *DeliberationServiceSuite) TestGetAgentConfig_Degradation() {
	d := s.activeDeliberation(true)
	global, err := s.service.CreateAgentConfig(s.ctx, s.admin, id.DeliberationID{}, "moderator", "gpt-4", "", 0.7)
	s.Require().NoError(err)
	scoped, err := s.service.CreateAgentConfig(s.ctx, s.bob, d.ID, "summarizer", "gpt-4", "", 0.3)
	s.Require().NoError(err)

	s.Run("global config is readable by anonymous", func() {
		got, err := s.service.GetAgentConfig(s.ctx, s.anonUser, global.ID)
		s.Require().NoError(err)
		s.Equal(global.ID, got.ID)
	})

	s.Run("scoped config is readable by peers", func() {
		got, err := s.service.GetAgentConfig(s.ctx, s.alice, scoped.ID)
		s.Require().NoError(err)
		s.Equal(scoped.ID, got.ID)
	})

	s.Run("scoped config is hidden from strangers", func() {
		_, err := s.service.GetAgentConfig(s.ctx, s.mallory, scoped.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *DeliberationServiceSuite) TestListAgentConfigs() {
	d := s.activeDeliberation(true)
	_, err := s.service.CreateAgentConfig(s.ctx, s.admin, id.DeliberationID{}, "moderator", "gpt-4", "", 0.7)
	s.Require().NoError(err)
	_, err = s.service.CreateAgentConfig(s.ctx, s.bob, d.ID, "summarizer", "gpt-4", "", 0.3)
	s.Require().NoError(err)

	s.Run("participant sees global plus scoped", func() {
		out, err := s.service.ListAgentConfigs(s.ctx, s.alice, d.ID)
		s.Require().NoError(err)
		s.Len(out, 2)
	})

	s.Run("stranger sees only the global defaults", func() {
		out, err := s.service.ListAgentConfigs(s.ctx, s.mallory, d.ID)
		s.Require().NoError(err)
		s.Require().Len(out, 1)
		s.True(out[0].Global())
	})
}

func (s *DeliberationServiceSuite) TestEditAgentConfig() {
	d := s.activeDeliberation(true)
	scoped, err := s.service.CreateAgentConfig(s.ctx, s.bob, d.ID, "summarizer", "gpt-4", "", 0.3)
	s.Require().NoError(err)

	s.Run("creator tunes their config", func() {
		got, err := s.service.EditAgentConfig(s.ctx, s.bob, scoped.ID, "gpt-4-turbo", "shorter summaries", 0.2)
		s.Require().NoError(err)
		s.Equal("gpt-4-turbo", got.Model)
	})

	s.Run("peer may not edit someone else's config", func() {
		_, err := s.service.EditAgentConfig(s.ctx, s.alice, scoped.ID, "gpt-4", "", 0.2)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAuthorizationDenied))
	})

	s.Run("admin edits any config", func() {
		_, err := s.service.EditAgentConfig(s.ctx, s.admin, scoped.ID, "gpt-4", "moderated prompt", 0.5)
		s.NoError(err)
	})

	s.Run("creator who left loses write access", func() {
		s.Require().NoError(s.service.Leave(s.ctx, s.bob, d.ID, s.bob.ID))
		_, err := s.service.EditAgentConfig(s.ctx, s.bob, scoped.ID, "gpt-4", "", 0.2)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAuthorizationDenied))
	})

	s.Run("unknown config reports not-found", func() {
		_, err := s.service.EditAgentConfig(s.ctx, s.admin, id.NewAgentConfigID(), "gpt-4", "", 0.2)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
