package testutil

import (
	"context"
	"time"

	id "agora/pkg/domain"
	"agora/pkg/requestcontext"
)

// PrincipalFor builds an authenticated principal context for tests.
func PrincipalFor(principalID id.PrincipalID) requestcontext.PrincipalContext {
	return requestcontext.PrincipalContext{ID: principalID, Method: requestcontext.ResolvedByBearer}
}

// ContextAt returns a context pinned to a fixed request time.
func ContextAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}
