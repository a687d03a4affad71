package deliberation

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

// Postgres persists deliberations in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed deliberation store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, d *models.Deliberation) error {
	query := `
		INSERT INTO deliberations (id, title, description, status, public, facilitator, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(d.ID),
		d.Title,
		d.Description,
		string(d.Status),
		d.Public,
		uuid.UUID(d.Facilitator),
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert deliberation: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, deliberationID id.DeliberationID) (*models.Deliberation, error) {
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		selectDeliberation+` WHERE id = $1`, uuid.UUID(deliberationID))
	return scanDeliberation(row)
}

func (s *Postgres) List(ctx context.Context) ([]*models.Deliberation, error) {
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx,
		selectDeliberation+` ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list deliberations: %w", err)
	}
	defer rows.Close()

	var out []*models.Deliberation
	for rows.Next() {
		d, err := scanDeliberation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Postgres) Execute(
	ctx context.Context,
	deliberationID id.DeliberationID,
	validate func(d *models.Deliberation) error,
	mutate func(d *models.Deliberation),
) (*models.Deliberation, error) {
	var out *models.Deliberation
	run := func(ctx context.Context) error {
		exec := txcontext.ExecutorFrom(ctx, s.db)

		d, err := scanDeliberation(exec.QueryRowContext(ctx,
			selectDeliberation+` WHERE id = $1 FOR UPDATE`, uuid.UUID(deliberationID)))
		if err != nil {
			return err
		}

		if err := validate(d); err != nil {
			return err
		}
		mutate(d)

		update := `
			UPDATE deliberations
			SET title = $2, description = $3, status = $4, public = $5, updated_at = $6
			WHERE id = $1
		`
		if _, err := exec.ExecContext(ctx, update,
			uuid.UUID(d.ID), d.Title, d.Description, string(d.Status), d.Public, d.UpdatedAt); err != nil {
			return fmt.Errorf("update deliberation: %w", err)
		}
		out = d
		return nil
	}

	if _, ok := txcontext.From(ctx); ok {
		if err := run(ctx); err != nil {
			return nil, err
		}
		return out, nil
	}
	if err := txcontext.Run(ctx, s.db, run); err != nil {
		return nil, err
	}
	return out, nil
}

const selectDeliberation = `
	SELECT id, title, description, status, public, facilitator, created_at, updated_at
	FROM deliberations`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeliberation(row rowScanner) (*models.Deliberation, error) {
	var d models.Deliberation
	var rawID, rawFacilitator uuid.UUID
	var status string
	if err := row.Scan(&rawID, &d.Title, &d.Description, &status, &d.Public, &rawFacilitator, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan deliberation: %w", err)
	}
	d.ID = id.DeliberationID(rawID)
	d.Facilitator = id.PrincipalID(rawFacilitator)
	d.Status = models.Status(status)
	return &d, nil
}
