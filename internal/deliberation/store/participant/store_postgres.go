package participant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"agora/internal/deliberation/models"
	id "agora/pkg/domain"
	"agora/pkg/platform/sentinel"
	txcontext "agora/pkg/platform/tx"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Postgres persists membership rows in PostgreSQL. The table carries a
// primary key on (deliberation_id, principal_id).
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed participant store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Add(ctx context.Context, p *models.Participant) error {
	query := `
		INSERT INTO participants (deliberation_id, principal_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(p.DeliberationID),
		uuid.UUID(p.PrincipalID),
		string(p.Role),
		p.JoinedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

func (s *Postgres) Find(ctx context.Context, deliberationID id.DeliberationID, principalID id.PrincipalID) (*models.Participant, error) {
	query := `
		SELECT deliberation_id, principal_id, role, joined_at
		FROM participants
		WHERE deliberation_id = $1 AND principal_id = $2
	`
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query,
		uuid.UUID(deliberationID), uuid.UUID(principalID))
	return scanParticipant(row)
}

func (s *Postgres) ListByDeliberation(ctx context.Context, deliberationID id.DeliberationID) ([]*models.Participant, error) {
	query := `
		SELECT deliberation_id, principal_id, role, joined_at
		FROM participants
		WHERE deliberation_id = $1
		ORDER BY joined_at
	`
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, uuid.UUID(deliberationID))
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var out []*models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Postgres) ListDeliberationsByPrincipal(ctx context.Context, principalID id.PrincipalID) ([]id.DeliberationID, error) {
	query := `
		SELECT deliberation_id
		FROM participants
		WHERE principal_id = $1
	`
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, uuid.UUID(principalID))
	if err != nil {
		return nil, fmt.Errorf("list participation: %w", err)
	}
	defer rows.Close()

	var out []id.DeliberationID
	for rows.Next() {
		var raw uuid.UUID
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan participation: %w", err)
		}
		out = append(out, id.DeliberationID(raw))
	}
	return out, rows.Err()
}

func (s *Postgres) Remove(ctx context.Context, deliberationID id.DeliberationID, principalID id.PrincipalID) error {
	result, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx,
		`DELETE FROM participants WHERE deliberation_id = $1 AND principal_id = $2`,
		uuid.UUID(deliberationID), uuid.UUID(principalID))
	if err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row rowScanner) (*models.Participant, error) {
	var p models.Participant
	var rawDeliberation, rawPrincipal uuid.UUID
	var role string
	if err := row.Scan(&rawDeliberation, &rawPrincipal, &role, &p.JoinedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan participant: %w", err)
	}
	p.DeliberationID = id.DeliberationID(rawDeliberation)
	p.PrincipalID = id.PrincipalID(rawPrincipal)
	p.Role = models.ParticipantRole(role)
	return &p, nil
}
