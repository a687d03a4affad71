package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"agora/internal/audit"
	id "agora/pkg/domain"
	txcontext "agora/pkg/platform/tx"

	"github.com/google/uuid"
)

// Store persists audit events in PostgreSQL. Append writes the queryable
// audit_events row and a transactional outbox row in the same executor: when
// the caller runs inside a transaction, both commit (or vanish) with the
// mutation they describe, so an aborted request leaves no partial audit
// entry. The outbox worker drains the outbox to Kafka.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// outboxPayload is the JSON structure published to Kafka. Field names match
// audit.Event for deserialization by downstream consumers.
type outboxPayload struct {
	ID           string          `json:"ID"`
	Category     string          `json:"Category"`
	Timestamp    string          `json:"Timestamp"`
	Actor        string          `json:"Actor,omitempty"`
	Action       string          `json:"Action"`
	ResourceType string          `json:"ResourceType,omitempty"`
	ResourceID   string          `json:"ResourceID,omitempty"`
	Before       json.RawMessage `json:"Before,omitempty"`
	After        json.RawMessage `json:"After,omitempty"`
	Reason       string          `json:"Reason,omitempty"`
	RequestID    string          `json:"RequestID,omitempty"`
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	exec := txcontext.ExecutorFrom(ctx, s.db)

	var actor any
	var actorStr string
	if !event.Actor.IsNil() {
		actor = uuid.UUID(event.Actor)
		actorStr = event.Actor.String()
	}

	insertEvent := `
		INSERT INTO audit_events
			(id, category, timestamp, actor, action, resource_type, resource_id,
			 before_state, after_state, reason, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if _, err := exec.ExecContext(ctx, insertEvent,
		event.ID,
		string(event.Category),
		event.Timestamp,
		actor,
		string(event.Action),
		event.ResourceType,
		event.ResourceID,
		nullableJSON(event.Before),
		nullableJSON(event.After),
		event.Reason,
		event.RequestID,
	); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}

	payload := outboxPayload{
		ID:           event.ID,
		Category:     string(event.Category),
		Timestamp:    event.Timestamp.Format(time.RFC3339Nano),
		Actor:        actorStr,
		Action:       string(event.Action),
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		Before:       event.Before,
		After:        event.After,
		Reason:       event.Reason,
		RequestID:    event.RequestID,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	insertOutbox := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	aggregateType, aggregateID := "audit", event.ID
	if event.ResourceType != "" {
		aggregateType, aggregateID = event.ResourceType, event.ResourceID
	}
	if _, err := exec.ExecContext(ctx, insertOutbox,
		uuid.New(),
		aggregateType,
		aggregateID,
		string(event.Action),
		payloadBytes,
		event.Timestamp,
	); err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *Store) ListByActor(ctx context.Context, actor id.PrincipalID) ([]audit.Event, error) {
	query := selectEvent + ` WHERE actor = $1 ORDER BY timestamp`
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, uuid.UUID(actor))
	if err != nil {
		return nil, fmt.Errorf("list audit events by actor: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := selectEvent + ` ORDER BY timestamp DESC LIMIT $1`
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

const selectEvent = `
	SELECT id, category, timestamp, actor, action, resource_type, resource_id,
	       before_state, after_state, reason, request_id
	FROM audit_events`

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var out []audit.Event
	for rows.Next() {
		var e audit.Event
		var category, action string
		var actor uuid.NullUUID
		var before, after []byte
		if err := rows.Scan(&e.ID, &category, &e.Timestamp, &actor, &action,
			&e.ResourceType, &e.ResourceID, &before, &after, &e.Reason, &e.RequestID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return out, nil
			}
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		e.Action = audit.Action(action)
		if actor.Valid {
			e.Actor = id.PrincipalID(actor.UUID)
		}
		e.Before = json.RawMessage(before)
		e.After = json.RawMessage(after)
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
