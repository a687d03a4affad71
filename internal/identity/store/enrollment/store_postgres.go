package enrollment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agora/internal/identity/models"
	id "agora/pkg/domain"
	"agora/pkg/platform/sentinel"
	txcontext "agora/pkg/platform/tx"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Postgres persists enrollment codes in PostgreSQL. Claim is a single UPDATE
// with every redemption precondition in its WHERE clause, so the claim is a
// database-level compare-and-set: concurrent redeemers race on one row write,
// not on a read followed by a write.
type Postgres struct {
	db    *sql.DB
	clock func() time.Time
}

// PostgresOption configures a Postgres store.
type PostgresOption func(*Postgres)

// WithPostgresClock sets the clock function for testability.
func WithPostgresClock(clock func() time.Time) PostgresOption {
	return func(s *Postgres) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewPostgres constructs a PostgreSQL-backed enrollment store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *Postgres {
	s := &Postgres{db: db, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Postgres) Create(ctx context.Context, code *models.EnrollmentCode) error {
	query := `
		INSERT INTO enrollment_codes
			(code, code_type, active, used, max_uses, uses, bound_principal, redeemed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		code.Code,
		string(code.Type),
		code.Active,
		code.Used,
		code.MaxUses,
		code.Uses,
		boundPrincipalParam(code.BoundPrincipal),
		code.RedeemedAt,
		code.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert enrollment code: %w", err)
	}
	return nil
}

func (s *Postgres) FindByCode(ctx context.Context, code string) (*models.EnrollmentCode, error) {
	query := selectCode + ` WHERE code = $1`
	return scanCode(txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query, code))
}

func (s *Postgres) Claim(ctx context.Context, code string, candidate id.PrincipalID) (*models.EnrollmentCode, error) {
	now := s.clock()
	query := `
		UPDATE enrollment_codes
		SET uses = uses + 1,
		    used = used OR max_uses <= 1,
		    bound_principal = COALESCE(bound_principal, $2),
		    redeemed_at = COALESCE(redeemed_at, $3)
		WHERE code = $1
		  AND active
		  AND ((max_uses <= 1 AND NOT used) OR (max_uses > 1 AND uses < max_uses))
		  AND (bound_principal IS NULL OR bound_principal = $2)
		RETURNING code, code_type, active, used, max_uses, uses, bound_principal, redeemed_at, created_at
	`
	claimed, err := scanCode(txcontext.ExecutorFrom(ctx, s.db).
		QueryRowContext(ctx, query, code, uuid.UUID(candidate), now))
	if err == nil {
		return claimed, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	// The CAS missed. Re-read to report why; CanRedeemBy reproduces the
	// precondition that failed.
	existing, findErr := s.FindByCode(ctx, code)
	if findErr != nil {
		return nil, findErr
	}
	if verr := existing.CanRedeemBy(candidate); verr != nil {
		return nil, verr
	}
	// The code became redeemable between the two statements; the caller may
	// retry, but this claim has lost.
	return nil, sentinel.ErrConflict
}

func (s *Postgres) Execute(
	ctx context.Context,
	code string,
	validate func(c *models.EnrollmentCode) error,
	mutate func(c *models.EnrollmentCode),
) (*models.EnrollmentCode, error) {
	var out *models.EnrollmentCode
	run := func(ctx context.Context) error {
		exec := txcontext.ExecutorFrom(ctx, s.db)

		c, err := scanCode(exec.QueryRowContext(ctx, selectCode+` WHERE code = $1 FOR UPDATE`, code))
		if err != nil {
			return err
		}
		if err := validate(c); err != nil {
			return err
		}
		mutate(c)

		update := `
			UPDATE enrollment_codes
			SET active = $2, used = $3, uses = $4, bound_principal = $5, redeemed_at = $6
			WHERE code = $1
		`
		if _, err := exec.ExecContext(ctx, update,
			c.Code, c.Active, c.Used, c.Uses,
			boundPrincipalParam(c.BoundPrincipal), c.RedeemedAt); err != nil {
			return fmt.Errorf("update enrollment code: %w", err)
		}
		out = c
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

const selectCode = `
	SELECT code, code_type, active, used, max_uses, uses, bound_principal, redeemed_at, created_at
	FROM enrollment_codes`

func boundPrincipalParam(principalID id.PrincipalID) any {
	if principalID.IsNil() {
		return nil
	}
	return uuid.UUID(principalID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCode(row rowScanner) (*models.EnrollmentCode, error) {
	var c models.EnrollmentCode
	var codeType string
	var bound uuid.NullUUID
	var redeemedAt sql.NullTime
	err := row.Scan(&c.Code, &codeType, &c.Active, &c.Used, &c.MaxUses, &c.Uses, &bound, &redeemedAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan enrollment code: %w", err)
	}
	c.Type = models.CodeType(codeType)
	if bound.Valid {
		c.BoundPrincipal = id.PrincipalID(bound.UUID)
	}
	if redeemedAt.Valid {
		t := redeemedAt.Time
		c.RedeemedAt = &t
	}
	return &c, nil
}
