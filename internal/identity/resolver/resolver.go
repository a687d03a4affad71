// Package resolver normalizes request credentials to a canonical principal.
//
// Two credential schemes exist: a provider-issued bearer token whose subject
// is the principal UUID, and an enrollment-code reference that maps to its
// bound principal through the ledger. Both funnel through Resolve, which
// returns one canonical PrincipalContext. Every downstream component operates
// on that id exclusively, so no other layer ever compares raw tokens or code
// values.
//
// Resolution never fails a request: a bad, expired or unknown credential
// degrades to the anonymous context, and the policy layer treats anonymous as
// a standard-tier principal with empty participation.
package resolver

import (
	"context"
	"log/slog"

	"agora/internal/identity/models"
	"agora/internal/jwtauth"
	id "agora/pkg/domain"
	"agora/pkg/requestcontext"
)

// Credential carries whichever raw credential the request presented. At most
// one field is set; bearer wins when both are.
type Credential struct {
	Bearer         string
	EnrollmentCode string
}

// TokenValidator verifies bearer tokens; see internal/jwtauth.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwtauth.Claims, error)
}

// PrincipalReader is the read-only principal lookup the resolver needs.
type PrincipalReader interface {
	FindByID(ctx context.Context, principalID id.PrincipalID) (*models.Principal, error)
}

// CodeReader is the read-only enrollment-code lookup the resolver needs.
type CodeReader interface {
	FindByCode(ctx context.Context, code string) (*models.EnrollmentCode, error)
}

// Provisioner materializes principal rows for bearer identities on first
// sight. Optional; without it an unknown bearer subject resolves anonymous.
type Provisioner interface {
	EnsureProvisioned(ctx context.Context, principalID id.PrincipalID) (*models.Principal, error)
}

// Resolver resolves request credentials to principals.
type Resolver struct {
	tokens      TokenValidator
	principals  PrincipalReader
	codes       CodeReader
	provisioner Provisioner
	logger      *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithProvisioner enables first-sight provisioning of bearer identities.
func WithProvisioner(p Provisioner) Option {
	return func(r *Resolver) { r.provisioner = p }
}

// New constructs a Resolver.
func New(tokens TokenValidator, principals PrincipalReader, codes CodeReader, opts ...Option) *Resolver {
	r := &Resolver{
		tokens:     tokens,
		principals: principals,
		codes:      codes,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps a credential to the canonical principal context. It never
// returns an error; every failure path degrades to anonymous.
func (r *Resolver) Resolve(ctx context.Context, cred Credential) requestcontext.PrincipalContext {
	if cred.Bearer != "" {
		return r.resolveBearer(ctx, cred.Bearer)
	}
	if cred.EnrollmentCode != "" {
		return r.resolveCode(ctx, cred.EnrollmentCode)
	}
	return requestcontext.Anonymous()
}

func (r *Resolver) resolveBearer(ctx context.Context, token string) requestcontext.PrincipalContext {
	claims, err := r.tokens.ValidateToken(token)
	if err != nil {
		r.logger.DebugContext(ctx, "bearer resolution failed", "error", err)
		return requestcontext.Anonymous()
	}

	p, err := r.principals.FindByID(ctx, claims.PrincipalID)
	if err != nil {
		if r.provisioner == nil {
			r.logger.DebugContext(ctx, "bearer subject has no principal row", "principal_id", claims.PrincipalID.String())
			return requestcontext.Anonymous()
		}
		p, err = r.provisioner.EnsureProvisioned(ctx, claims.PrincipalID)
		if err != nil {
			r.logger.WarnContext(ctx, "bearer provisioning failed",
				"error", err,
				"principal_id", claims.PrincipalID.String(),
			)
			return requestcontext.Anonymous()
		}
	}
	if p.Archived {
		return requestcontext.Anonymous()
	}
	return requestcontext.PrincipalContext{ID: p.ID, Method: requestcontext.ResolvedByBearer}
}

func (r *Resolver) resolveCode(ctx context.Context, codeValue string) requestcontext.PrincipalContext {
	code, err := r.codes.FindByCode(ctx, codeValue)
	if err != nil {
		r.logger.DebugContext(ctx, "code resolution failed", "error", err)
		return requestcontext.Anonymous()
	}
	if !code.Active || !code.Bound() {
		return requestcontext.Anonymous()
	}

	p, err := r.principals.FindByID(ctx, code.BoundPrincipal)
	if err != nil || p.Archived {
		return requestcontext.Anonymous()
	}
	return requestcontext.PrincipalContext{ID: p.ID, Method: requestcontext.ResolvedByCode}
}
