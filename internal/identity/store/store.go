// Package store defines the persistence contracts for the identity subsystem.
// Implementations live in the principal and enrollment subpackages, one
// in-memory and one PostgreSQL-backed each. Services and the policy layer
// depend on these interfaces only.
package store

import (
	"context"

	"agora/internal/identity/models"
	id "agora/pkg/domain"
)

// Snapshot gives Execute callbacks a consistent view of store-wide facts,
// read under the same lock (or transaction) as the mutation itself. The
// escalation guard depends on this: the admin-existence check and the tier
// write must observe one snapshot, or two concurrent writers can both see
// "no admin exists".
//
// Snapshot is also the privileged, non-recursive read path the role oracle
// uses: it reads the tier column directly and never re-enters policy
// evaluation.
type Snapshot interface {
	// AdminExists reports whether any non-archived admin principal exists.
	// A read failure aborts the surrounding Execute; it is never reported
	// as "no admin".
	AdminExists() (bool, error)
	// IsAdmin reports whether the given principal holds the admin tier.
	// Unknown and archived principals are not admins.
	IsAdmin(principalID id.PrincipalID) (bool, error)
}

// PrincipalStore persists canonical principals.
type PrincipalStore interface {
	// Create inserts a new principal. Returns sentinel.ErrConflict when the
	// id is already taken.
	Create(ctx context.Context, principal *models.Principal) error

	// FindByID returns the principal or sentinel.ErrNotFound. Archived
	// principals are returned; callers decide whether archival matters.
	FindByID(ctx context.Context, principalID id.PrincipalID) (*models.Principal, error)

	// List returns all non-archived principals.
	List(ctx context.Context) ([]*models.Principal, error)

	// AdminExists reports whether any non-archived admin exists. This is the
	// unlocked variant for read paths; mutations use the Snapshot passed to
	// their Execute callback instead.
	AdminExists(ctx context.Context) (bool, error)

	// IsAdmin reads the tier of a single principal without any policy
	// gating. Exposed to the role oracle only.
	IsAdmin(ctx context.Context, principalID id.PrincipalID) (bool, error)

	// Execute atomically loads the principal, runs validate with a
	// consistent snapshot, applies mutate and persists the result. The store
	// holds its lock (mutex in memory, row lock plus an advisory lock in
	// postgres) for the whole sequence, so no intermediate state is
	// observable. A validate error aborts with the row unchanged.
	Execute(
		ctx context.Context,
		principalID id.PrincipalID,
		validate func(p *models.Principal, snap Snapshot) error,
		mutate func(p *models.Principal),
	) (*models.Principal, error)
}

// EnrollmentStore persists enrollment codes.
type EnrollmentStore interface {
	// Create inserts a new code. Returns sentinel.ErrConflict when the code
	// value collides; the ledger retries generation on collision.
	Create(ctx context.Context, code *models.EnrollmentCode) error

	// FindByCode returns the code or sentinel.ErrNotFound.
	FindByCode(ctx context.Context, code string) (*models.EnrollmentCode, error)

	// Claim atomically redeems the code for the candidate principal:
	// preconditions (active, unclaimed or bound to the same candidate, uses
	// remaining) are checked and the bind applied in one indivisible step.
	// Under two concurrent claims on a single-use code exactly one succeeds;
	// the loser gets the coded redemption error.
	Claim(ctx context.Context, code string, candidate id.PrincipalID) (*models.EnrollmentCode, error)

	// Execute atomically loads, validates and mutates a code. Used for reset
	// and deactivation.
	Execute(
		ctx context.Context,
		code string,
		validate func(c *models.EnrollmentCode) error,
		mutate func(c *models.EnrollmentCode),
	) (*models.EnrollmentCode, error)
}
