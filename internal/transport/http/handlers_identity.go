// Package httptransport is the thin HTTP layer. Handlers decode, delegate to
// domain services and encode; no business logic lives here.
package httptransport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	identityModels "agora/internal/identity/models"
	id "agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
	"agora/pkg/requestcontext"
)

// IdentityService is the identity surface the handlers consume.
type IdentityService interface {
	Get(ctx context.Context, actor requestcontext.PrincipalContext, principalID id.PrincipalID) (*identityModels.Principal, error)
	List(ctx context.Context, actor requestcontext.PrincipalContext) ([]*identityModels.Principal, error)
	Archive(ctx context.Context, actor requestcontext.PrincipalContext, target id.PrincipalID) error
	SetTier(ctx context.Context, actor requestcontext.PrincipalContext, target id.PrincipalID, tier identityModels.Tier) (*identityModels.Principal, error)
	IssueCode(ctx context.Context, actor requestcontext.PrincipalContext, maxUses int) (*identityModels.EnrollmentCode, error)
	Redeem(ctx context.Context, codeValue string) (*identityModels.Principal, error)
	ResetCode(ctx context.Context, actor requestcontext.PrincipalContext, codeValue string) (*identityModels.EnrollmentCode, error)
	DeactivateCode(ctx context.Context, actor requestcontext.PrincipalContext, codeValue string) (*identityModels.EnrollmentCode, error)
}

// TokenIssuer mints bearer tokens after a successful redemption so clients
// can switch to the bearer scheme immediately.
type TokenIssuer interface {
	IssueToken(principalID id.PrincipalID, ttl time.Duration) (string, error)
}

const redemptionTokenTTL = 24 * time.Hour

// IdentityHandler serves principal and enrollment-code endpoints.
type IdentityHandler struct {
	identity IdentityService
	tokens   TokenIssuer
}

// NewIdentityHandler constructs an IdentityHandler.
func NewIdentityHandler(identity IdentityService, tokens TokenIssuer) *IdentityHandler {
	return &IdentityHandler{identity: identity, tokens: tokens}
}

// Register mounts the identity routes.
func (h *IdentityHandler) Register(r chi.Router) {
	r.Get("/principals/me", h.handleMe)
	r.Get("/principals", h.handleList)
	r.Get("/principals/{principalID}", h.handleGet)
	r.Post("/principals/{principalID}/archive", h.handleArchive)
	r.Put("/principals/{principalID}/tier", h.handleSetTier)

	r.Post("/enrollment-codes", h.handleIssueCode)
	r.Post("/enrollment-codes/redeem", h.handleRedeem)
	r.Post("/enrollment-codes/{code}/reset", h.handleResetCode)
	r.Post("/enrollment-codes/{code}/deactivate", h.handleDeactivateCode)
}

type principalResponse struct {
	ID       string `json:"id"`
	Tier     string `json:"tier"`
	Archived bool   `json:"archived"`
}

func toPrincipalResponse(p *identityModels.Principal) principalResponse {
	return principalResponse{ID: p.ID.String(), Tier: string(p.Tier), Archived: p.Archived}
}

type codeResponse struct {
	Code           string `json:"code"`
	Type           string `json:"type"`
	Active         bool   `json:"active"`
	MaxUses        int    `json:"max_uses"`
	Uses           int    `json:"uses"`
	BoundPrincipal string `json:"bound_principal,omitempty"`
}

func toCodeResponse(c *identityModels.EnrollmentCode) codeResponse {
	out := codeResponse{
		Code:    c.Code,
		Type:    string(c.Type),
		Active:  c.Active,
		MaxUses: c.MaxUses,
		Uses:    c.Uses,
	}
	if !c.BoundPrincipal.IsNil() {
		out.BoundPrincipal = c.BoundPrincipal.String()
	}
	return out
}

func (h *IdentityHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	actor := requestcontext.Principal(r.Context())
	if !actor.Authenticated() {
		writeError(w, dErrors.New(dErrors.CodeUnauthenticated, "no resolvable principal"))
		return
	}
	p, err := h.identity.Get(r.Context(), actor, actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPrincipalResponse(p))
}

func (h *IdentityHandler) handleList(w http.ResponseWriter, r *http.Request) {
	actor := requestcontext.Principal(r.Context())
	principals, err := h.identity.List(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]principalResponse, 0, len(principals))
	for _, p := range principals {
		out = append(out, toPrincipalResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"principals": out})
}

func (h *IdentityHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	principalID, err := id.ParsePrincipalID(chi.URLParam(r, "principalID"))
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := h.identity.Get(r.Context(), requestcontext.Principal(r.Context()), principalID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPrincipalResponse(p))
}

func (h *IdentityHandler) handleArchive(w http.ResponseWriter, r *http.Request) {
	principalID, err := id.ParsePrincipalID(chi.URLParam(r, "principalID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.identity.Archive(r.Context(), requestcontext.Principal(r.Context()), principalID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *IdentityHandler) handleSetTier(w http.ResponseWriter, r *http.Request) {
	principalID, err := id.ParsePrincipalID(chi.URLParam(r, "principalID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Tier string `json:"tier"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	tier, err := identityModels.ParseTier(req.Tier)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := h.identity.SetTier(r.Context(), requestcontext.Principal(r.Context()), principalID, tier)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPrincipalResponse(p))
}

func (h *IdentityHandler) handleIssueCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MaxUses int `json:"max_uses"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	code, err := h.identity.IssueCode(r.Context(), requestcontext.Principal(r.Context()), req.MaxUses)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCodeResponse(code))
}

func (h *IdentityHandler) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.identity.Redeem(r.Context(), req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{"principal": toPrincipalResponse(p)}
	if h.tokens != nil {
		token, err := h.tokens.IssueToken(p.ID, redemptionTokenTTL)
		if err == nil {
			resp["token"] = token
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *IdentityHandler) handleResetCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.identity.ResetCode(r.Context(), requestcontext.Principal(r.Context()), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCodeResponse(code))
}

func (h *IdentityHandler) handleDeactivateCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.identity.DeactivateCode(r.Context(), requestcontext.Principal(r.Context()), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCodeResponse(code))
}
