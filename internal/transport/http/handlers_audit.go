package httptransport

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"agora/internal/audit"
	id "agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
	"agora/pkg/requestcontext"
)

// AuditQueries is the read surface over the audit log.
type AuditQueries interface {
	ListByActor(ctx context.Context, actor id.PrincipalID) ([]audit.Event, error)
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
}

// AdminChecker gates the audit query surface.
type AdminChecker interface {
	IsAdmin(ctx context.Context, principalID id.PrincipalID) (bool, error)
}

// AuditHandler serves the admin-only audit query endpoints.
type AuditHandler struct {
	queries AuditQueries
	admins  AdminChecker
}

// NewAuditHandler constructs an AuditHandler.
func NewAuditHandler(queries AuditQueries, admins AdminChecker) *AuditHandler {
	return &AuditHandler{queries: queries, admins: admins}
}

// Register mounts the audit routes.
func (h *AuditHandler) Register(r chi.Router) {
	r.Get("/audit/events", h.handleListRecent)
	r.Get("/audit/events/actor/{principalID}", h.handleListByActor)
}

func (h *AuditHandler) requireAdmin(r *http.Request) error {
	actor := requestcontext.Principal(r.Context())
	isAdmin, err := h.admins.IsAdmin(r.Context(), actor.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check actor tier")
	}
	if !isAdmin {
		return dErrors.New(dErrors.CodeAuthorizationDenied, "audit queries are admin only")
	}
	return nil
}

type eventResponse struct {
	ID           string `json:"id"`
	Category     string `json:"category"`
	Timestamp    string `json:"timestamp"`
	Actor        string `json:"actor,omitempty"`
	Action       string `json:"action"`
	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`
	Reason       string `json:"reason,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
}

func toEventResponses(events []audit.Event) []eventResponse {
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		resp := eventResponse{
			ID:           e.ID,
			Category:     string(e.Category),
			Timestamp:    e.Timestamp.UTC().Format(time.RFC3339Nano),
			Action:       string(e.Action),
			ResourceType: e.ResourceType,
			ResourceID:   e.ResourceID,
			Reason:       e.Reason,
			RequestID:    e.RequestID,
		}
		if !e.Actor.IsNil() {
			resp.Actor = e.Actor.String()
		}
		out = append(out, resp)
	}
	return out
}

func (h *AuditHandler) handleListRecent(w http.ResponseWriter, r *http.Request) {
	if err := h.requireAdmin(r); err != nil {
		writeError(w, err)
		return
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	events, err := h.queries.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query audit log"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": toEventResponses(events)})
}

func (h *AuditHandler) handleListByActor(w http.ResponseWriter, r *http.Request) {
	if err := h.requireAdmin(r); err != nil {
		writeError(w, err)
		return
	}
	actor, err := id.ParsePrincipalID(chi.URLParam(r, "principalID"))
	if err != nil {
		writeError(w, err)
		return
	}
	events, err := h.queries.ListByActor(r.Context(), actor)
	if err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query audit log"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": toEventResponses(events)})
}
