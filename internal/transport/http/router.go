package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agora/pkg/platform/middleware"
	"agora/pkg/requestcontext"
)

// RouterDeps bundles everything the router mounts.
type RouterDeps struct {
	Identity      *IdentityHandler
	Deliberations *DeliberationHandler
	Audit         *AuditHandler
	Resolver      middleware.PrincipalResolver
	Logger        *slog.Logger
	Health        func() error
}

// NewRouter wires the middleware chain and all endpoints. Every request gets
// a request id, a request-scoped timestamp and a resolved (possibly
// anonymous) principal before reaching a handler.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(withRequestTime)
	r.Use(middleware.ResolvePrincipal(deps.Resolver, deps.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if deps.Health != nil {
			if err := deps.Health(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		deps.Identity.Register(r)
		deps.Deliberations.Register(r)
		deps.Audit.Register(r)
	})
	return r
}

// withRequestTime pins one timestamp per request so every write in a request
// shares it.
func withRequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
