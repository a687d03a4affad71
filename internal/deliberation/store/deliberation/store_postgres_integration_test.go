//go:build integration

package deliberation_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"agora/internal/deliberation/models"
	"agora/internal/deliberation/store/deliberation"
	identitymodels "agora/internal/identity/models"
	"agora/internal/identity/store/principal"
	id "agora/pkg/domain"
	"agora/pkg/platform/sentinel"
	"agora/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres   *containers.PostgresContainer
	store      *deliberation.Postgres
	principals *principal.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = deliberation.NewPostgres(s.postgres.DB)
	s.principals = principal.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "participants", "deliberations", "principals")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newFacilitator() id.PrincipalID {
	p := identitymodels.NewPrincipal(id.NewPrincipalID(), time.Now().UTC())
	s.Require().NoError(s.principals.Create(context.Background(), p))
	return p.ID
}

func (s *PostgresStoreSuite) seedDeliberation(title string) *models.Deliberation {
	d := models.NewDeliberation(title, "", true, s.newFacilitator(), time.Now().UTC())
	s.Require().NoError(s.store.Create(context.Background(), d))
	return d
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	d := s.seedDeliberation("transit plan")

	found, err := s.store.FindByID(ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(d.ID, found.ID)
	s.Equal(models.StatusDraft, found.Status)
	s.Equal(d.Facilitator, found.Facilitator)

	s.ErrorIs(s.store.Create(ctx, d), sentinel.ErrConflict)

	_, err = s.store.FindByID(ctx, id.NewDeliberationID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListOrdersByCreation() {
	ctx := context.Background()
	first := s.seedDeliberation("first")
	second := s.seedDeliberation("second")

	out, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(out, 2)
	s.Equal(first.ID, out[0].ID)
	s.Equal(second.ID, out[1].ID)
}

func (s *PostgresStoreSuite) TestExecuteTransition() {
	ctx := context.Background()
	d := s.seedDeliberation("lifecycle")
	later := time.Now().UTC().Add(time.Minute)

	updated, err := s.store.Execute(ctx, d.ID,
		func(d *models.Deliberation) error { return d.CanTransition(models.StatusActive) },
		func(d *models.Deliberation) { d.ApplyTransition(models.StatusActive, later) },
	)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, updated.Status)

	found, err := s.store.FindByID(ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, found.Status)
}

func (s *PostgresStoreSuite) TestExecuteValidationRollsBack() {
	ctx := context.Background()
	d := s.seedDeliberation("guarded")

	_, err := s.store.Execute(ctx, d.ID,
		func(*models.Deliberation) error { return sentinel.ErrInvalidState },
		func(d *models.Deliberation) { d.Status = models.StatusArchived },
	)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	found, err := s.store.FindByID(ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusDraft, found.Status)
}

// TestExecute_ConcurrentTransitions pins row locking: racing transitions on
// one row serialize, so exactly one draft-to-active transition succeeds.
func (s *PostgresStoreSuite) TestExecute_ConcurrentTransitions() {
	ctx := context.Background()
	d := s.seedDeliberation("raced")
	now := time.Now().UTC()

	const goroutines = 8
	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(ctx, d.ID,
				func(d *models.Deliberation) error { return d.CanTransition(models.StatusActive) },
				func(d *models.Deliberation) { d.ApplyTransition(models.StatusActive, now) },
			)
			if err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load(), "draft to active is a one-shot transition")
}
