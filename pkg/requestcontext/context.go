// Package requestcontext provides HTTP-independent accessors for
// request-scoped values.
//
// The resolved principal for a request travels here, and only here: it is set
// once by the principal-resolution middleware and read by services through
// Principal(ctx). There is no process-wide "current user": two concurrent
// requests can never observe each other's principal because each carries its
// own context.
//
// Usage in services (read values):
//
//	pc := requestcontext.Principal(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithPrincipal(ctx, pc)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
package requestcontext

import (
	"context"
	"time"

	id "agora/pkg/domain"
)

// ResolutionMethod records which credential scheme produced a principal.
type ResolutionMethod string

const (
	ResolvedByBearer ResolutionMethod = "bearer"
	ResolvedByCode   ResolutionMethod = "enrollment_code"
	ResolvedByNone   ResolutionMethod = "none"
)

// PrincipalContext is the normalized identity attached to a request. A failed
// or absent credential yields the anonymous context, never an error: the
// policy layer treats anonymous as a standard-tier principal with empty
// participation, so public resources stay reachable.
type PrincipalContext struct {
	ID     id.PrincipalID
	Method ResolutionMethod
}

// Anonymous is the principal context for unauthenticated requests.
func Anonymous() PrincipalContext {
	return PrincipalContext{Method: ResolvedByNone}
}

// Authenticated reports whether the context carries a resolved principal.
func (pc PrincipalContext) Authenticated() bool {
	return !pc.ID.IsNil()
}

// Context key types (unexported for encapsulation).
type (
	principalKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyPrincipal   = principalKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Principal retrieves the resolved principal from the context. Returns the
// anonymous context when no middleware ran.
func Principal(ctx context.Context) PrincipalContext {
	if pc, ok := ctx.Value(ContextKeyPrincipal).(PrincipalContext); ok {
		return pc
	}
	return Anonymous()
}

// WithPrincipal injects a resolved principal into the context.
func WithPrincipal(ctx context.Context, pc PrincipalContext) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, pc)
}

// RequestID retrieves the request correlation ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context. Falls back to
// time.Now() for non-HTTP contexts (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests and for workers that need consistent time within a batch.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
