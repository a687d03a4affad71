//go:build integration

package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agora/pkg/testutil/containers"
)

func setupSource(t *testing.T) (*containers.PostgresContainer, *PostgresSource) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pg := containers.GetManager().GetPostgres(t)
	require.NoError(t, pg.TruncateTables(context.Background(), "outbox"))
	return pg, NewPostgresSource(pg.DB)
}

func insertOutboxRow(t *testing.T, pg *containers.PostgresContainer, eventType string, at time.Time) string {
	t.Helper()
	rowID := uuid.NewString()
	_, err := pg.DB.ExecContext(context.Background(), `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, 'principal', $2, $3, '{}', $4)
	`, rowID, uuid.NewString(), eventType, at)
	require.NoError(t, err)
	return rowID
}

func TestPostgresSource_FetchOrdersByCreation(t *testing.T) {
	pg, source := setupSource(t)
	base := time.Now().UTC().Add(-time.Minute)

	oldest := insertOutboxRow(t, pg, "tier_changed", base)
	insertOutboxRow(t, pg, "code_redeemed", base.Add(time.Second))
	insertOutboxRow(t, pg, "code_issued", base.Add(2*time.Second))

	entries, err := source.Fetch(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, oldest, entries[0].ID)
	assert.Equal(t, "tier_changed", entries[0].EventType)
}

func TestPostgresSource_DeleteRemovesDelivered(t *testing.T) {
	pg, source := setupSource(t)
	now := time.Now().UTC()

	delivered := insertOutboxRow(t, pg, "tier_changed", now)
	kept := insertOutboxRow(t, pg, "code_redeemed", now.Add(time.Second))

	require.NoError(t, source.Delete(context.Background(), []string{delivered}))

	entries, err := source.Fetch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, kept, entries[0].ID)

	require.NoError(t, source.Delete(context.Background(), nil), "empty delete is a noop")
}

// TestWorkerDrain_AgainstPostgres runs the worker loop against the real
// outbox table with an in-memory producer.
func TestWorkerDrain_AgainstPostgres(t *testing.T) {
	pg, source := setupSource(t)
	now := time.Now().UTC()

	insertOutboxRow(t, pg, "tier_changed", now)
	insertOutboxRow(t, pg, "code_redeemed", now.Add(time.Second))

	producer := &fakeProducer{}
	w := NewWorker(source, producer, "agora.audit.events")

	require.NoError(t, w.Drain(context.Background()))
	assert.Len(t, producer.produced, 2)

	entries, err := source.Fetch(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries, "drained entries must leave the table")
}
