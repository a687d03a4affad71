package service

import (
	"agora/internal/audit"
	"agora/internal/deliberation/models"
	id "agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
)

// seedAgentNode plants an agent-authored node directly in the store.
func (s *DeliberationServiceSuite) seedAgentNode(deliberationID id.DeliberationID) *models.GraphNode {
	n := models.NewGraphNode(deliberationID, id.PrincipalID{}, models.NodePosition, "synthesized position", "", s.now)
	s.Require().NoError(s.graph.CreateNode(s.ctx, n))
	return n
}

func (s *DeliberationServiceSuite) TestCreateNode() {
	d := s.activeDeliberation(true)

	s.Run("participant maps an issue", func() {
		n, err := s.service.CreateNode(s.ctx, s.bob, d.ID, models.NodeIssue, "funding gap", "where does the money come from")
		s.Require().NoError(err)
		s.Equal(s.bob.ID, n.Owner)
		s.Contains(s.auditActions(), audit.ActionNodeCreated)
	})

	s.Run("non-participant may not add nodes", func() {
		_, err := s.service.CreateNode(s.ctx, s.mallory, d.ID, models.NodeIssue, "noise", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAuthorizationDenied))
	})

	s.Run("label is required", func() {
		_, err := s.service.CreateNode(s.ctx, s.bob, d.ID, models.NodeArgument, "", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("concluded deliberation freezes the graph", func() {
		_, err := s.service.Transition(s.ctx, s.alice, d.ID, models.StatusConcluded)
		s.Require().NoError(err)

		_, err = s.service.CreateNode(s.ctx, s.bob, d.ID, models.NodeIssue, "late entry", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *DeliberationServiceSuite) TestEditNode() {
	d := s.activeDeliberation(true)
	n, err := s.service.CreateNode(s.ctx, s.bob, d.ID, models.NodePosition, "raise taxes", "")
	s.Require().NoError(err)

	s.Run("participant edits", func() {
		got, err := s.service.EditNode(s.ctx, s.bob, n.ID, "raise property taxes", "narrower scope")
		s.Require().NoError(err)
		s.Equal("raise property taxes", got.Label)
		s.Contains(s.auditActions(), audit.ActionNodeUpdated)
	})

	s.Run("stranger may not edit", func() {
		_, err := s.service.EditNode(s.ctx, s.mallory, n.ID, "vandalized", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAuthorizationDenied))
	})

	s.Run("agent-authored node is untouchable even for admins", func() {
		agent := s.seedAgentNode(d.ID)
		_, err := s.service.EditNode(s.ctx, s.admin, agent.ID, "rewrite", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAuthorizationDenied))
	})

	s.Run("unknown node reports not-found", func() {
		_, err := s.service.EditNode(s.ctx, s.bob, id.NewNodeID(), "ghost", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("concluded deliberation freezes edits", func() {
		_, err := s.service.Transition(s.ctx, s.alice, d.ID, models.StatusConcluded)
		s.Require().NoError(err)

		_, err = s.service.EditNode(s.ctx, s.bob, n.ID, "late revision", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *DeliberationServiceSuite) TestCreateEdge() {
	d := s.activeDeliberation(true)
	issue, err := s.service.CreateNode(s.ctx, s.bob, d.ID, models.NodeIssue, "funding gap", "")
	s.Require().NoError(err)
	position, err := s.service.CreateNode(s.ctx, s.alice, d.ID, models.NodePosition, "raise taxes", "")
	s.Require().NoError(err)

	s.Run("participant links two nodes", func() {
		e, err := s.service.CreateEdge(s.ctx, s.bob, d.ID, position.ID, issue.ID, models.EdgeRespond)
		s.Require().NoError(err)
		s.Equal(position.ID, e.From)
		s.Contains(s.auditActions(), audit.ActionEdgeCreated)
	})

	s.Run("self loop is rejected", func() {
		_, err := s.service.CreateEdge(s.ctx, s.bob, d.ID, issue.ID, issue.ID, models.EdgeSupports)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("endpoints must belong to the deliberation", func() {
		other := s.activeDeliberation(true)
		foreign, err := s.service.CreateNode(s.ctx, s.bob, other.ID, models.NodeIssue, "elsewhere", "")
		s.Require().NoError(err)

		_, err = s.service.CreateEdge(s.ctx, s.bob, d.ID, issue.ID, foreign.ID, models.EdgeObjects)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("non-participant may not link", func() {
		_, err := s.service.CreateEdge(s.ctx, s.mallory, d.ID, issue.ID, position.ID, models.EdgeSupports)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAuthorizationDenied))
	})

	s.Run("concluded deliberation freezes linking", func() {
		_, err := s.service.Transition(s.ctx, s.alice, d.ID, models.StatusConcluded)
		s.Require().NoError(err)

		_, err = s.service.CreateEdge(s.ctx, s.bob, d.ID, issue.ID, position.ID, models.EdgeObjects)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *DeliberationServiceSuite) TestListGraph_Degradation() {
	d := s.activeDeliberation(true)
	issue, err := s.service.CreateNode(s.ctx, s.bob, d.ID, models.NodeIssue, "funding gap", "")
	s.Require().NoError(err)
	position, err := s.service.CreateNode(s.ctx, s.alice, d.ID, models.NodePosition, "raise taxes", "")
	s.Require().NoError(err)
	_, err = s.service.CreateEdge(s.ctx, s.alice, d.ID, position.ID, issue.ID, models.EdgeRespond)
	s.Require().NoError(err)

	s.Run("participant sees nodes and edges", func() {
		nodes, edges, err := s.service.ListGraph(s.ctx, s.bob, d.ID)
		s.Require().NoError(err)
		s.Len(nodes, 2)
		s.Len(edges, 1)
	})

	s.Run("stranger gets an empty graph, not an error", func() {
		nodes, edges, err := s.service.ListGraph(s.ctx, s.mallory, d.ID)
		s.Require().NoError(err)
		s.Empty(nodes)
		s.Empty(edges)
	})

	s.Run("agent-authored nodes are still readable", func() {
		agent := s.seedAgentNode(d.ID)
		got, err := s.service.GetNode(s.ctx, s.bob, agent.ID)
		s.Require().NoError(err)
		s.True(got.AgentAuthored())
	})
}
