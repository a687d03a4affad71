package policy_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	delibmodels "agora/internal/deliberation/models"
	participantstore "agora/internal/deliberation/store/participant"
	identitymodels "agora/internal/identity/models"
	principalstore "agora/internal/identity/store/principal"
	"agora/internal/policy"
	id "agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
	"agora/pkg/requestcontext"
	"agora/pkg/testutil"
)

// countingMetrics records decision outcomes for assertion.
type countingMetrics struct {
	allows int
	denies int
}

func (m *countingMetrics) IncrementDecisions(_, _, outcome string) {
	if outcome == "allow" {
		m.allows++
	} else {
		m.denies++
	}
}

type EvaluatorSuite struct {
	suite.Suite
	principals   *principalstore.InMemory
	participants *participantstore.InMemory
	metrics      *countingMetrics
	evaluator    *policy.Evaluator

	now         time.Time
	admin       id.PrincipalID
	facilitator id.PrincipalID
	member      id.PrincipalID
	stranger    id.PrincipalID
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorSuite))
}

func (s *EvaluatorSuite) SetupTest() {
	s.principals = principalstore.NewInMemory()
	s.participants = participantstore.NewInMemory()
	s.metrics = &countingMetrics{}
	s.evaluator = policy.NewEvaluator(
		policy.NewRoleOracle(s.principals),
		policy.NewParticipationIndex(s.participants),
		policy.WithDecisionMetrics(s.metrics),
	)

	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.admin = s.newPrincipal(identitymodels.TierAdmin)
	s.facilitator = s.newPrincipal(identitymodels.TierStandard)
	s.member = s.newPrincipal(identitymodels.TierStandard)
	s.stranger = s.newPrincipal(identitymodels.TierStandard)
}

func (s *EvaluatorSuite) newPrincipal(tier identitymodels.Tier) id.PrincipalID {
	p := identitymodels.NewPrincipal(id.NewPrincipalID(), s.now)
	p.Tier = tier
	s.Require().NoError(s.principals.Create(context.Background(), p))
	return p.ID
}

func (s *EvaluatorSuite) newDeliberation(status delibmodels.Status, public bool) *delibmodels.Deliberation {
	d := delibmodels.NewDeliberation("budget review", "", public, s.facilitator, s.now)
	d.Status = status
	s.join(d.ID, s.member)
	return d
}

func (s *EvaluatorSuite) join(deliberationID id.DeliberationID, principalID id.PrincipalID) {
	row := delibmodels.NewParticipant(deliberationID, principalID, delibmodels.RoleParticipant, s.now)
	s.Require().NoError(s.participants.Add(context.Background(), row))
}

func principalCtx(principalID id.PrincipalID) requestcontext.PrincipalContext {
	if principalID.IsNil() {
		return requestcontext.Anonymous()
	}
	return testutil.PrincipalFor(principalID)
}

// =============================================================================
// Deliberation Visibility
// =============================================================================

func (s *EvaluatorSuite) TestDeliberationRead() {
	ctx := context.Background()

	cases := []struct {
		name   string
		status delibmodels.Status
		public bool
		actor  func() id.PrincipalID
		want   bool
	}{
		{"active public visible to anonymous", delibmodels.StatusActive, true, func() id.PrincipalID { return id.PrincipalID{} }, true},
		{"active public visible to stranger", delibmodels.StatusActive, true, func() id.PrincipalID { return s.stranger }, true},
		{"active private hidden from stranger", delibmodels.StatusActive, false, func() id.PrincipalID { return s.stranger }, false},
		{"active private hidden from anonymous", delibmodels.StatusActive, false, func() id.PrincipalID { return id.PrincipalID{} }, false},
		{"active private visible to facilitator", delibmodels.StatusActive, false, func() id.PrincipalID { return s.facilitator }, true},
		{"active private visible to admin", delibmodels.StatusActive, false, func() id.PrincipalID { return s.admin }, true},
		{"concluded public hidden from stranger", delibmodels.StatusConcluded, true, func() id.PrincipalID { return s.stranger }, false},
		{"concluded public hidden from anonymous", delibmodels.StatusConcluded, true, func() id.PrincipalID { return id.PrincipalID{} }, false},
		{"concluded visible to participant", delibmodels.StatusConcluded, true, func() id.PrincipalID { return s.member }, true},
		{"concluded private visible to participant", delibmodels.StatusConcluded, false, func() id.PrincipalID { return s.member }, true},
		{"concluded visible to admin", delibmodels.StatusConcluded, false, func() id.PrincipalID { return s.admin }, true},
		{"draft hidden from participant", delibmodels.StatusDraft, true, func() id.PrincipalID { return s.member }, false},
		{"draft visible to facilitator", delibmodels.StatusDraft, true, func() id.PrincipalID { return s.facilitator }, true},
		{"draft visible to admin", delibmodels.StatusDraft, false, func() id.PrincipalID { return s.admin }, true},
		{"archived hidden from participant", delibmodels.StatusArchived, true, func() id.PrincipalID { return s.member }, false},
		{"archived visible to facilitator", delibmodels.StatusArchived, false, func() id.PrincipalID { return s.facilitator }, true},
		{"archived visible to admin", delibmodels.StatusArchived, false, func() id.PrincipalID { return s.admin }, true},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			d := s.newDeliberation(tc.status, tc.public)
			decision, err := s.evaluator.CanReadDeliberation(ctx, principalCtx(tc.actor()), d)
			s.Require().NoError(err)
			s.Equal(tc.want, decision.Allowed)
			if !decision.Allowed {
				s.NotEmpty(decision.Reason)
			}
		})
	}
}

func (s *EvaluatorSuite) TestDeliberationWrite() {
	ctx := context.Background()
	d := s.newDeliberation(delibmodels.StatusActive, true)

	s.Run("facilitator may write", func() {
		decision, err := s.evaluator.CanWriteDeliberation(ctx, principalCtx(s.facilitator), d)
		s.Require().NoError(err)
		s.True(decision.Allowed)
	})

	s.Run("admin may write", func() {
		decision, err := s.evaluator.CanWriteDeliberation(ctx, principalCtx(s.admin), d)
		s.Require().NoError(err)
		s.True(decision.Allowed)
	})

	s.Run("participant may not write", func() {
		decision, err := s.evaluator.CanWriteDeliberation(ctx, principalCtx(s.member), d)
		s.Require().NoError(err)
		s.False(decision.Allowed)
	})

	s.Run("anonymous may not write", func() {
		decision, err := s.evaluator.CanWriteDeliberation(ctx, principalCtx(id.PrincipalID{}), d)
		s.Require().NoError(err)
		s.False(decision.Allowed)
	})
}

// =============================================================================
// Participant Rows
// =============================================================================

func (s *EvaluatorSuite) TestParticipantRules() {
	ctx := context.Background()
	d := s.newDeliberation(delibmodels.StatusActive, true)
	row := delibmodels.NewParticipant(d.ID, s.member, delibmodels.RoleParticipant, s.now)

	s.Run("row owner may read own row", func() {
		decision, err := s.evaluator.CanReadParticipant(ctx, principalCtx(s.member), row)
		s.Require().NoError(err)
		s.True(decision.Allowed)
	})

	s.Run("peer in same deliberation may read", func() {
		peer := s.newPrincipal(identitymodels.TierStandard)
		s.join(d.ID, peer)
		decision, err := s.evaluator.CanReadParticipant(ctx, principalCtx(peer), row)
		s.Require().NoError(err)
		s.True(decision.Allowed)
	})

	s.Run("stranger may not read", func() {
		decision, err := s.evaluator.CanReadParticipant(ctx, principalCtx(s.stranger), row)
		s.Require().NoError(err)
		s.False(decision.Allowed)
	})

	s.Run("principal may insert itself", func() {
		self := delibmodels.NewParticipant(d.ID, s.stranger, delibmodels.RoleParticipant, s.now)
		decision, err := s.evaluator.CanInsertParticipant(ctx, principalCtx(s.stranger), self)
		s.Require().NoError(err)
		s.True(decision.Allowed)
	})

	s.Run("principal may not insert someone else", func() {
		other := delibmodels.NewParticipant(d.ID, s.stranger, delibmodels.RoleParticipant, s.now)
		decision, err := s.evaluator.CanInsertParticipant(ctx, principalCtx(s.member), other)
		s.Require().NoError(err)
		s.False(decision.Allowed)
	})

	s.Run("admin may insert anyone", func() {
		other := delibmodels.NewParticipant(d.ID, s.stranger, delibmodels.RoleParticipant, s.now)
		decision, err := s.evaluator.CanInsertParticipant(ctx, principalCtx(s.admin), other)
		s.Require().NoError(err)
		s.True(decision.Allowed)
	})

	s.Run("anonymous may not insert", func() {
		anon := delibmodels.NewParticipant(d.ID, id.PrincipalID{}, delibmodels.RoleParticipant, s.now)
		decision, err := s.evaluator.CanInsertParticipant(ctx, principalCtx(id.PrincipalID{}), anon)
		s.Require().NoError(err)
		s.False(decision.Allowed)
	})

	s.Run("row owner may delete own row", func() {
		decision, err := s.evaluator.CanDeleteParticipant(ctx, principalCtx(s.member), row)
		s.Require().NoError(err)
		s.True(decision.Allowed)
	})

	s.Run("peer may not delete another row", func() {
		peer := s.newPrincipal(identitymodels.TierStandard)
		s.join(d.ID, peer)
		decision, err := s.evaluator.CanDeleteParticipant(ctx, principalCtx(peer), row)
		s.Require().NoError(err)
		s.False(decision.Allowed)
	})
}

// =============================================================================
// Messages
// =============================================================================

func (s *EvaluatorSuite) TestMessageRules() {
	ctx := context.Background()
	d := s.newDeliberation(delibmodels.StatusActive, true)
	msg := delibmodels.NewMessage(d.ID, s.member, id.MessageID{}, "opening statement", s.now)

	s.Run("participant may read", func() {
		decision, err := s.evaluator.CanReadMessage(ctx, principalCtx(s.member), msg)
		s.Require().NoError(err)
		s.True(decision.Allowed)
	})

	s.Run("stranger may not read", func() {
		decision, err := s.evaluator.CanReadMessage(ctx, principalCtx(s.stranger), msg)
		s.Require().NoError(err)
		s.False(decision.Allowed)
	})

	s.Run("owner who left still reads own message", func() {
		left := delibmodels.NewMessage(d.ID, s.stranger, id.MessageID{}, "ghost", s.now)
		decision, err := s.evaluator.CanReadMessage(ctx, principalCtx(s.stranger), left)
		s.Require().NoError(err)
		s.True(decision.Allowed)
	})

	s.Run("participant may post as self", func() {
		post := delibmodels.NewMessage(d.ID, s.member, id.MessageID{}, "reply", s.now)
		decision, err := s.evaluator.CanPostMessage(ctx, principalCtx(s.member), post)
		s.Require().NoError(err)
		s.True(decision.Allowed)
	})

	s.Run("participant may not post as someone else", func() {
		forged := delibmodels.NewMessage(d.ID, s.stranger, id.MessageID{}, "forged", s.now)
		decision, err := s.evaluator.CanPostMessage(ctx, principalCtx(s.member), forged)
		s.Require().NoError(err)
		s.False(decision.Allowed)
	})

	s.Run("non-participant may not post", func() {
		post := delibmodels.NewMessage(d.ID, s.stranger, id.MessageID{}, "outsider", s.now)
		decision, err := s.evaluator.CanPostMessage(ctx, principalCtx(s.stranger), post)
		s.Require().NoError(err)
		s.False(decision.Allowed)
	})

	s.Run("owner may edit", func() {
		decision, err := s.evaluator.CanEditMessage(ctx, principalCtx(s.member), msg)
		s.Require().NoError(err)
		s.True(decision.Allowed)
	})

	s.Run("admin may edit", func() {
		decision, err := s.evaluator.CanEditMessage(ctx, principalCtx(s.admin), msg)
		s.Require().NoError(err)
		s.True(decision.Allowed)
	})

	s.Run("agent-authored message not editable even by admin", func() {
		agent := delibmodels.NewMessage(d.ID, id.PrincipalID{}, id.MessageID{}, "synthesis", s.now)
		decision, err := s.evaluator.CanEditMessage(ctx, principalCtx(s.admin), agent)
		s.Require().NoError(err)
		s.False(decision.Allowed)
	})
}

// =============================================================================
// Argument Graph
// =============================================================================

func (s *EvaluatorSuite) TestGraphRules() {
	ctx := context.Background()
	d := s.newDeliberation(delibmodels.StatusActive, true)
	node := delibmodels.NewGraphNode(d.ID, s.member, delibmodels.NodeIssue, "costs", "", s.now)

	s.Run("participant may read and write nodes", func() {
		read, err := s.evaluator.CanReadNode(ctx, principalCtx(s.member), node)
		s.Require().NoError(err)
		s.True(read.Allowed)

		write, err := s.evaluator.CanWriteNode(ctx, principalCtx(s.member), node)
		s.Require().NoError(err)
		s.True(write.Allowed)
	})

	s.Run("stranger may not read or write nodes", func() {
		read, err := s.evaluator.CanReadNode(ctx, principalCtx(s.stranger), node)
		s.Require().NoError(err)
		s.False(read.Allowed)

		write, err := s.evaluator.CanWriteNode(ctx, principalCtx(s.stranger), node)
		s.Require().NoError(err)
		s.False(write.Allowed)
	})

	s.Run("agent-authored node not writable even by admin", func() {
		agentNode := delibmodels.NewGraphNode(d.ID, id.PrincipalID{}, delibmodels.NodePosition, "summary", "", s.now)
		write, err := s.evaluator.CanWriteNode(ctx, principalCtx(s.admin), agentNode)
		s.Require().NoError(err)
		s.False(write.Allowed)
	})

	s.Run("agent-authored node still readable by participant", func() {
		agentNode := delibmodels.NewGraphNode(d.ID, id.PrincipalID{}, delibmodels.NodePosition, "summary", "", s.now)
		read, err := s.evaluator.CanReadNode(ctx, principalCtx(s.member), agentNode)
		s.Require().NoError(err)
		s.True(read.Allowed)
	})

	s.Run("edge rules follow node membership rules", func() {
		from := delibmodels.NewGraphNode(d.ID, s.member, delibmodels.NodePosition, "a", "", s.now)
		edge := delibmodels.NewGraphEdge(d.ID, s.member, from.ID, node.ID, delibmodels.EdgeSupports, s.now)

		write, err := s.evaluator.CanWriteEdge(ctx, principalCtx(s.member), edge)
		s.Require().NoError(err)
		s.True(write.Allowed)

		denied, err := s.evaluator.CanWriteEdge(ctx, principalCtx(s.stranger), edge)
		s.Require().NoError(err)
		s.False(denied.Allowed)
	})
}

// =============================================================================
// Agent Configs and Documents
// =============================================================================

func (s *EvaluatorSuite) TestAgentConfigRules() {
	ctx := context.Background()
	d := s.newDeliberation(delibmodels.StatusActive, true)

	global := delibmodels.NewAgentConfig("default", id.DeliberationID{}, s.admin, "gpt-4", "", 0.7, s.now)
	scoped := delibmodels.NewAgentConfig("scoped", d.ID, s.member, "gpt-4", "", 0.7, s.now)

	s.Run("global config readable by anonymous", func() {
		decision, err := s.evaluator.CanReadAgentConfig(ctx, principalCtx(id.PrincipalID{}), global)
		s.Require().NoError(err)
		s.True(decision.Allowed)
	})

	s.Run("scoped config readable by participants only", func() {
		allowed, err := s.evaluator.CanReadAgentConfig(ctx, principalCtx(s.member), scoped)
		s.Require().NoError(err)
		s.True(allowed.Allowed)

		denied, err := s.evaluator.CanReadAgentConfig(ctx, principalCtx(s.stranger), scoped)
		s.Require().NoError(err)
		s.False(denied.Allowed)
	})

	s.Run("global config writable by admin only", func() {
		allowed, err := s.evaluator.CanWriteAgentConfig(ctx, principalCtx(s.admin), global)
		s.Require().NoError(err)
		s.True(allowed.Allowed)

		denied, err := s.evaluator.CanWriteAgentConfig(ctx, principalCtx(s.member), global)
		s.Require().NoError(err)
		s.False(denied.Allowed)
	})

	s.Run("scoped creator who participates may write", func() {
		decision, err := s.evaluator.CanWriteAgentConfig(ctx, principalCtx(s.member), scoped)
		s.Require().NoError(err)
		s.True(decision.Allowed)
	})

	s.Run("scoped creator who left may not write", func() {
		orphan := delibmodels.NewAgentConfig("orphan", d.ID, s.stranger, "gpt-4", "", 0.7, s.now)
		decision, err := s.evaluator.CanWriteAgentConfig(ctx, principalCtx(s.stranger), orphan)
		s.Require().NoError(err)
		s.False(decision.Allowed)
	})
}

func (s *EvaluatorSuite) TestDocumentRules() {
	ctx := context.Background()
	d := s.newDeliberation(delibmodels.StatusActive, true)
	doc := delibmodels.NewDocument(d.ID, s.member, "notes.pdf", "application/pdf", 1024, s.now)

	s.Run("uploader may read", func() {
		decision, err := s.evaluator.CanReadDocument(ctx, principalCtx(s.member), doc)
		s.Require().NoError(err)
		s.True(decision.Allowed)
	})

	s.Run("admin may read", func() {
		decision, err := s.evaluator.CanReadDocument(ctx, principalCtx(s.admin), doc)
		s.Require().NoError(err)
		s.True(decision.Allowed)
	})

	s.Run("other participants may not read", func() {
		peer := s.newPrincipal(identitymodels.TierStandard)
		s.join(d.ID, peer)
		decision, err := s.evaluator.CanReadDocument(ctx, principalCtx(peer), doc)
		s.Require().NoError(err)
		s.False(decision.Allowed)
	})

	s.Run("upload requires uploader to be the principal", func() {
		own := delibmodels.NewDocument(d.ID, s.member, "own.pdf", "application/pdf", 10, s.now)
		allowed, err := s.evaluator.CanUploadDocument(ctx, principalCtx(s.member), own)
		s.Require().NoError(err)
		s.True(allowed.Allowed)

		forged := delibmodels.NewDocument(d.ID, s.stranger, "forged.pdf", "application/pdf", 10, s.now)
		denied, err := s.evaluator.CanUploadDocument(ctx, principalCtx(s.member), forged)
		s.Require().NoError(err)
		s.False(denied.Allowed)
	})
}

// =============================================================================
// Dispatch and Metrics
// =============================================================================

func (s *EvaluatorSuite) TestAuthorizeDispatch() {
	ctx := context.Background()
	d := s.newDeliberation(delibmodels.StatusActive, true)

	s.Run("dispatches by resource type", func() {
		decision, err := s.evaluator.Authorize(ctx, principalCtx(s.stranger), policy.OperationRead, d)
		s.Require().NoError(err)
		s.True(decision.Allowed)
	})

	s.Run("unknown resource type is an internal error", func() {
		_, err := s.evaluator.Authorize(ctx, principalCtx(s.stranger), policy.OperationRead, struct{}{})
		s.Error(err)
	})
}

func (s *EvaluatorSuite) TestDecisionMetrics() {
	ctx := context.Background()
	d := s.newDeliberation(delibmodels.StatusActive, false)

	_, err := s.evaluator.CanReadDeliberation(ctx, principalCtx(s.admin), d)
	s.Require().NoError(err)
	_, err = s.evaluator.CanReadDeliberation(ctx, principalCtx(s.stranger), d)
	s.Require().NoError(err)

	s.Equal(1, s.metrics.allows)
	s.Equal(1, s.metrics.denies)
}

func (s *EvaluatorSuite) TestDecisionErr() {
	s.NoError(policy.Allow().Err())

	err := policy.Deny("nope").Err()
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeAuthorizationDenied))
}
