package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"agora/internal/identity/resolver"
	"agora/pkg/requestcontext"
)

const enrollmentCodeHeader = "X-Enrollment-Code"

// PrincipalResolver maps request credentials to a principal context.
type PrincipalResolver interface {
	Resolve(ctx context.Context, cred resolver.Credential) requestcontext.PrincipalContext
}

// ResolvePrincipal resolves the request's credential and stores the
// principal context for downstream handlers. Requests never fail here: an
// unusable credential yields the anonymous context and the policy layer
// takes it from there.
func ResolvePrincipal(r PrincipalResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			cred := resolver.Credential{
				EnrollmentCode: req.Header.Get(enrollmentCodeHeader),
			}
			if after, ok := strings.CutPrefix(req.Header.Get("Authorization"), "Bearer "); ok {
				cred.Bearer = after
			}

			ctx := req.Context()
			principal := r.Resolve(ctx, cred)
			if !principal.Authenticated() && (cred.Bearer != "" || cred.EnrollmentCode != "") {
				logger.DebugContext(ctx, "credential did not resolve, continuing as anonymous",
					"request_id", requestcontext.RequestID(ctx),
				)
			}

			next.ServeHTTP(w, req.WithContext(requestcontext.WithPrincipal(ctx, principal)))
		})
	}
}
