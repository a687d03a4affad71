package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agora/internal/audit"
	"agora/internal/audit/store/memory"
	id "agora/pkg/domain"
	"agora/pkg/requestcontext"
	"agora/pkg/testutil"
)

// failingStore always rejects appends.
type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("disk full")
}
func (failingStore) ListByActor(context.Context, id.PrincipalID) ([]audit.Event, error) {
	return nil, nil
}
func (failingStore) ListRecent(context.Context, int) ([]audit.Event, error) {
	return nil, nil
}

type failureCounter struct{ count int }

func (c *failureCounter) IncrementAuditFailures() { c.count++ }

func TestRecord_FillsDefaults(t *testing.T) {
	store := memory.NewInMemoryStore()
	publisher := audit.NewPublisher(store)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithRequestID(testutil.ContextAt(now), "req-123")

	actor := id.NewPrincipalID()
	publisher.Record(ctx, audit.Event{
		Actor:        actor,
		Action:       audit.ActionTierChanged,
		ResourceType: "principal",
		ResourceID:   actor.String(),
	})

	events, err := store.ListByActor(ctx, actor)
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, now, e.Timestamp)
	assert.Equal(t, audit.CategoryCompliance, e.Category)
	assert.Equal(t, "req-123", e.RequestID)
}

// TestRecord_FailureIsSwallowed pins the fire-and-forget contract: an append
// failure is counted but never surfaces to the caller.
func TestRecord_FailureIsSwallowed(t *testing.T) {
	counter := &failureCounter{}
	publisher := audit.NewPublisher(failingStore{}, audit.WithFailureCounter(counter))

	publisher.Record(context.Background(), audit.Event{
		Action:       audit.ActionCodeRedeemed,
		ResourceType: "enrollment_code",
	})

	assert.Equal(t, 1, counter.count)
}

func TestActionCategories(t *testing.T) {
	assert.Equal(t, audit.CategoryCompliance, audit.ActionTierChanged.Category())
	assert.Equal(t, audit.CategorySecurity, audit.ActionEscalationDenied.Category())
	assert.Equal(t, audit.CategoryOperations, audit.ActionMessagePosted.Category())
	assert.Equal(t, audit.CategoryOperations, audit.Action("unknown").Category())
}

func TestListRecent_NewestFirst(t *testing.T) {
	store := memory.NewInMemoryStore()
	publisher := audit.NewPublisher(store)
	ctx := context.Background()

	publisher.Record(ctx, audit.Event{ID: "first", Action: audit.ActionCodeIssued})
	publisher.Record(ctx, audit.Event{ID: "second", Action: audit.ActionCodeIssued})
	publisher.Record(ctx, audit.Event{ID: "third", Action: audit.ActionCodeIssued})

	events, err := publisher.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "third", events[0].ID)
	assert.Equal(t, "second", events[1].ID)
}
