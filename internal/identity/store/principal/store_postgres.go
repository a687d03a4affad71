package principal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"agora/internal/identity/models"
	"agora/internal/identity/store"
	id "agora/pkg/domain"
	"agora/pkg/platform/sentinel"
	txcontext "agora/pkg/platform/tx"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// tierMutationLockKey serializes Execute calls across connections. Row locks
// alone cannot serialize the bootstrap race: when zero admins exist there is
// no admin row to lock, so two writers could both observe "no admin" and both
// escalate. The advisory lock is transaction-scoped and released on
// commit/rollback.
const tierMutationLockKey = 0x61676f7261 // "agora"

// Postgres persists principals in PostgreSQL. Execute expects to run inside a
// transaction provided via pkg/platform/tx; without one it opens its own.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed principal store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, principal *models.Principal) error {
	query := `
		INSERT INTO principals (id, tier, archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(principal.ID),
		string(principal.Tier),
		principal.Archived,
		principal.CreatedAt,
		principal.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert principal: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, principalID id.PrincipalID) (*models.Principal, error) {
	query := `
		SELECT id, tier, archived, created_at, updated_at
		FROM principals
		WHERE id = $1
	`
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(principalID))
	return scanPrincipal(row)
}

func (s *Postgres) List(ctx context.Context) ([]*models.Principal, error) {
	query := `
		SELECT id, tier, archived, created_at, updated_at
		FROM principals
		WHERE NOT archived
		ORDER BY created_at
	`
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list principals: %w", err)
	}
	defer rows.Close()

	var out []*models.Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Postgres) AdminExists(ctx context.Context) (bool, error) {
	var exists bool
	err := txcontext.ExecutorFrom(ctx, s.db).
		QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM principals WHERE tier = 'admin' AND NOT archived)`).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check admin existence: %w", err)
	}
	return exists, nil
}

func (s *Postgres) IsAdmin(ctx context.Context, principalID id.PrincipalID) (bool, error) {
	var isAdmin bool
	err := txcontext.ExecutorFrom(ctx, s.db).
		QueryRowContext(ctx,
			`SELECT tier = 'admin' AND NOT archived FROM principals WHERE id = $1`,
			uuid.UUID(principalID)).
		Scan(&isAdmin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check principal tier: %w", err)
	}
	return isAdmin, nil
}

func (s *Postgres) Execute(
	ctx context.Context,
	principalID id.PrincipalID,
	validate func(p *models.Principal, snap store.Snapshot) error,
	mutate func(p *models.Principal),
) (*models.Principal, error) {
	var out *models.Principal
	run := func(ctx context.Context) error {
		exec := txcontext.ExecutorFrom(ctx, s.db)

		if _, err := exec.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, tierMutationLockKey); err != nil {
			return fmt.Errorf("acquire tier mutation lock: %w", err)
		}

		query := `
			SELECT id, tier, archived, created_at, updated_at
			FROM principals
			WHERE id = $1
			FOR UPDATE
		`
		p, err := scanPrincipal(exec.QueryRowContext(ctx, query, uuid.UUID(principalID)))
		if err != nil {
			return err
		}

		if err := validate(p, postgresSnapshot{ctx: ctx, exec: exec, s: s}); err != nil {
			return err
		}
		mutate(p)

		update := `
			UPDATE principals
			SET tier = $2, archived = $3, updated_at = $4
			WHERE id = $1
		`
		if _, err := exec.ExecContext(ctx, update,
			uuid.UUID(p.ID), string(p.Tier), p.Archived, p.UpdatedAt); err != nil {
			return fmt.Errorf("update principal: %w", err)
		}
		out = p
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

// postgresSnapshot reads store-wide facts through the Execute transaction so
// the guard check and the mutation observe one snapshot.
type postgresSnapshot struct {
	ctx  context.Context
	exec txcontext.Executor
	s    *Postgres
}

func (p postgresSnapshot) AdminExists() (bool, error) {
	var exists bool
	err := p.exec.
		QueryRowContext(p.ctx, `SELECT EXISTS (SELECT 1 FROM principals WHERE tier = 'admin' AND NOT archived)`).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check admin existence: %w", err)
	}
	return exists, nil
}

func (p postgresSnapshot) IsAdmin(principalID id.PrincipalID) (bool, error) {
	var isAdmin bool
	err := p.exec.
		QueryRowContext(p.ctx,
			`SELECT tier = 'admin' AND NOT archived FROM principals WHERE id = $1`,
			uuid.UUID(principalID)).
		Scan(&isAdmin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check principal tier: %w", err)
	}
	return isAdmin, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrincipal(row rowScanner) (*models.Principal, error) {
	var p models.Principal
	var rawID uuid.UUID
	var tier string
	if err := row.Scan(&rawID, &tier, &p.Archived, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan principal: %w", err)
	}
	p.ID = id.PrincipalID(rawID)
	p.Tier = models.Tier(tier)
	return &p, nil
}
