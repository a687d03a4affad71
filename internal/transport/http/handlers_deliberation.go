package httptransport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agora/internal/deliberation/models"
	id "agora/pkg/domain"
	"agora/pkg/requestcontext"
)

// DeliberationService is the deliberation surface the handlers consume.
type DeliberationService interface {
	Create(ctx context.Context, actor requestcontext.PrincipalContext, title, description string, public bool) (*models.Deliberation, error)
	Get(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID) (*models.Deliberation, error)
	List(ctx context.Context, actor requestcontext.PrincipalContext) ([]*models.Deliberation, error)
	Transition(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID, target models.Status) (*models.Deliberation, error)
	Join(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID) (*models.Participant, error)
	Leave(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID, principalID id.PrincipalID) error
	ListParticipants(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID) ([]*models.Participant, error)

	PostMessage(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID, parentID id.MessageID, body string) (*models.Message, error)
	GetMessage(ctx context.Context, actor requestcontext.PrincipalContext, messageID id.MessageID) (*models.Message, error)
	ListMessages(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID) ([]*models.Message, error)
	EditMessage(ctx context.Context, actor requestcontext.PrincipalContext, messageID id.MessageID, body string) (*models.Message, error)

	CreateNode(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID, kind models.NodeKind, label, detail string) (*models.GraphNode, error)
	GetNode(ctx context.Context, actor requestcontext.PrincipalContext, nodeID id.NodeID) (*models.GraphNode, error)
	ListGraph(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID) ([]*models.GraphNode, []*models.GraphEdge, error)
	EditNode(ctx context.Context, actor requestcontext.PrincipalContext, nodeID id.NodeID, label, detail string) (*models.GraphNode, error)
	CreateEdge(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID, from, to id.NodeID, kind models.EdgeKind) (*models.GraphEdge, error)

	CreateAgentConfig(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID, name, model, systemPrompt string, temperature float64) (*models.AgentConfig, error)
	GetAgentConfig(ctx context.Context, actor requestcontext.PrincipalContext, configID id.AgentConfigID) (*models.AgentConfig, error)
	ListAgentConfigs(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID) ([]*models.AgentConfig, error)
	EditAgentConfig(ctx context.Context, actor requestcontext.PrincipalContext, configID id.AgentConfigID, model, systemPrompt string, temperature float64) (*models.AgentConfig, error)

	UploadDocument(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID, name, contentType string, sizeBytes int64) (*models.Document, error)
	GetDocument(ctx context.Context, actor requestcontext.PrincipalContext, documentID id.DocumentID) (*models.Document, error)
	ListDocuments(ctx context.Context, actor requestcontext.PrincipalContext, deliberationID id.DeliberationID) ([]*models.Document, error)
}

// DeliberationHandler serves deliberation, message, graph, agent-config and
// document endpoints.
type DeliberationHandler struct {
	svc DeliberationService
}

// NewDeliberationHandler constructs a DeliberationHandler.
func NewDeliberationHandler(svc DeliberationService) *DeliberationHandler {
	return &DeliberationHandler{svc: svc}
}

// Register mounts the deliberation routes.
func (h *DeliberationHandler) Register(r chi.Router) {
	r.Post("/deliberations", h.handleCreate)
	r.Get("/deliberations", h.handleList)
	r.Get("/deliberations/{deliberationID}", h.handleGet)
	r.Put("/deliberations/{deliberationID}/status", h.handleTransition)

	r.Post("/deliberations/{deliberationID}/participants", h.handleJoin)
	r.Get("/deliberations/{deliberationID}/participants", h.handleListParticipants)
	r.Delete("/deliberations/{deliberationID}/participants/{principalID}", h.handleLeave)

	r.Post("/deliberations/{deliberationID}/messages", h.handlePostMessage)
	r.Get("/deliberations/{deliberationID}/messages", h.handleListMessages)
	r.Get("/messages/{messageID}", h.handleGetMessage)
	r.Put("/messages/{messageID}", h.handleEditMessage)

	r.Post("/deliberations/{deliberationID}/nodes", h.handleCreateNode)
	r.Get("/deliberations/{deliberationID}/graph", h.handleListGraph)
	r.Get("/nodes/{nodeID}", h.handleGetNode)
	r.Put("/nodes/{nodeID}", h.handleEditNode)
	r.Post("/deliberations/{deliberationID}/edges", h.handleCreateEdge)

	r.Post("/agent-configs", h.handleCreateConfig)
	r.Get("/agent-configs", h.handleListConfigs)
	r.Get("/agent-configs/{configID}", h.handleGetConfig)
	r.Put("/agent-configs/{configID}", h.handleEditConfig)

	r.Post("/deliberations/{deliberationID}/documents", h.handleUploadDocument)
	r.Get("/deliberations/{deliberationID}/documents", h.handleListDocuments)
	r.Get("/documents/{documentID}", h.handleGetDocument)
}

func deliberationParam(r *http.Request) (id.DeliberationID, error) {
	return id.ParseDeliberationID(chi.URLParam(r, "deliberationID"))
}

type deliberationResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Public      bool   `json:"public"`
	Facilitator string `json:"facilitator"`
}

func toDeliberationResponse(d *models.Deliberation) deliberationResponse {
	return deliberationResponse{
		ID:          d.ID.String(),
		Title:       d.Title,
		Description: d.Description,
		Status:      string(d.Status),
		Public:      d.Public,
		Facilitator: d.Facilitator.String(),
	}
}

func (h *DeliberationHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Public      bool   `json:"public"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	d, err := h.svc.Create(r.Context(), requestcontext.Principal(r.Context()), req.Title, req.Description, req.Public)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDeliberationResponse(d))
}

func (h *DeliberationHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ds, err := h.svc.List(r.Context(), requestcontext.Principal(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]deliberationResponse, 0, len(ds))
	for _, d := range ds {
		out = append(out, toDeliberationResponse(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"deliberations": out})
}

func (h *DeliberationHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	deliberationID, err := deliberationParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	d, err := h.svc.Get(r.Context(), requestcontext.Principal(r.Context()), deliberationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeliberationResponse(d))
}

func (h *DeliberationHandler) handleTransition(w http.ResponseWriter, r *http.Request) {
	deliberationID, err := deliberationParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	d, err := h.svc.Transition(r.Context(), requestcontext.Principal(r.Context()), deliberationID, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeliberationResponse(d))
}

func (h *DeliberationHandler) handleJoin(w http.ResponseWriter, r *http.Request) {
	deliberationID, err := deliberationParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	row, err := h.svc.Join(r.Context(), requestcontext.Principal(r.Context()), deliberationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"deliberation_id": row.DeliberationID.String(),
		"principal_id":    row.PrincipalID.String(),
		"role":            string(row.Role),
	})
}

func (h *DeliberationHandler) handleListParticipants(w http.ResponseWriter, r *http.Request) {
	deliberationID, err := deliberationParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rows, err := h.svc.ListParticipants(r.Context(), requestcontext.Principal(r.Context()), deliberationID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, map[string]string{
			"principal_id": row.PrincipalID.String(),
			"role":         string(row.Role),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"participants": out})
}

func (h *DeliberationHandler) handleLeave(w http.ResponseWriter, r *http.Request) {
	deliberationID, err := deliberationParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	principalID, err := id.ParsePrincipalID(chi.URLParam(r, "principalID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.Leave(r.Context(), requestcontext.Principal(r.Context()), deliberationID, principalID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type messageResponse struct {
	ID             string `json:"id"`
	DeliberationID string `json:"deliberation_id"`
	Owner          string `json:"owner,omitempty"`
	ParentID       string `json:"parent_id,omitempty"`
	Body           string `json:"body"`
}

func toMessageResponse(m *models.Message) messageResponse {
	out := messageResponse{
		ID:             m.ID.String(),
		DeliberationID: m.DeliberationID.String(),
		Body:           m.Body,
	}
	if !m.Owner.IsNil() {
		out.Owner = m.Owner.String()
	}
	if !m.ParentID.IsNil() {
		out.ParentID = m.ParentID.String()
	}
	return out
}

func (h *DeliberationHandler) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	deliberationID, err := deliberationParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		ParentID string `json:"parent_id"`
		Body     string `json:"body"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	var parentID id.MessageID
	if req.ParentID != "" {
		parentID, err = id.ParseMessageID(req.ParentID)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	m, err := h.svc.PostMessage(r.Context(), requestcontext.Principal(r.Context()), deliberationID, parentID, req.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessageResponse(m))
}

func (h *DeliberationHandler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	deliberationID, err := deliberationParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	msgs, err := h.svc.ListMessages(r.Context(), requestcontext.Principal(r.Context()), deliberationID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": out})
}

func (h *DeliberationHandler) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	messageID, err := id.ParseMessageID(chi.URLParam(r, "messageID"))
	if err != nil {
		writeError(w, err)
		return
	}
	m, err := h.svc.GetMessage(r.Context(), requestcontext.Principal(r.Context()), messageID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessageResponse(m))
}

func (h *DeliberationHandler) handleEditMessage(w http.ResponseWriter, r *http.Request) {
	messageID, err := id.ParseMessageID(chi.URLParam(r, "messageID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Body string `json:"body"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	m, err := h.svc.EditMessage(r.Context(), requestcontext.Principal(r.Context()), messageID, req.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessageResponse(m))
}

type nodeResponse struct {
	ID             string `json:"id"`
	DeliberationID string `json:"deliberation_id"`
	Owner          string `json:"owner,omitempty"`
	Kind           string `json:"kind"`
	Label          string `json:"label"`
	Detail         string `json:"detail,omitempty"`
}

func toNodeResponse(n *models.GraphNode) nodeResponse {
	out := nodeResponse{
		ID:             n.ID.String(),
		DeliberationID: n.DeliberationID.String(),
		Kind:           string(n.Kind),
		Label:          n.Label,
		Detail:         n.Detail,
	}
	if !n.Owner.IsNil() {
		out.Owner = n.Owner.String()
	}
	return out
}

type edgeResponse struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
	Kind string `json:"kind"`
}

func toEdgeResponse(e *models.GraphEdge) edgeResponse {
	return edgeResponse{
		ID:   e.ID.String(),
		From: e.From.String(),
		To:   e.To.String(),
		Kind: string(e.Kind),
	}
}

func (h *DeliberationHandler) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	deliberationID, err := deliberationParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Kind   string `json:"kind"`
		Label  string `json:"label"`
		Detail string `json:"detail"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	kind, err := models.ParseNodeKind(req.Kind)
	if err != nil {
		writeError(w, err)
		return
	}
	n, err := h.svc.CreateNode(r.Context(), requestcontext.Principal(r.Context()), deliberationID, kind, req.Label, req.Detail)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toNodeResponse(n))
}

func (h *DeliberationHandler) handleListGraph(w http.ResponseWriter, r *http.Request) {
	deliberationID, err := deliberationParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	nodes, edges, err := h.svc.ListGraph(r.Context(), requestcontext.Principal(r.Context()), deliberationID)
	if err != nil {
		writeError(w, err)
		return
	}
	outNodes := make([]nodeResponse, 0, len(nodes))
	for _, n := range nodes {
		outNodes = append(outNodes, toNodeResponse(n))
	}
	outEdges := make([]edgeResponse, 0, len(edges))
	for _, e := range edges {
		outEdges = append(outEdges, toEdgeResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": outNodes, "edges": outEdges})
}

func (h *DeliberationHandler) handleGetNode(w http.ResponseWriter, r *http.Request) {
	nodeID, err := id.ParseNodeID(chi.URLParam(r, "nodeID"))
	if err != nil {
		writeError(w, err)
		return
	}
	n, err := h.svc.GetNode(r.Context(), requestcontext.Principal(r.Context()), nodeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toNodeResponse(n))
}

func (h *DeliberationHandler) handleEditNode(w http.ResponseWriter, r *http.Request) {
	nodeID, err := id.ParseNodeID(chi.URLParam(r, "nodeID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Label  string `json:"label"`
		Detail string `json:"detail"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	n, err := h.svc.EditNode(r.Context(), requestcontext.Principal(r.Context()), nodeID, req.Label, req.Detail)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toNodeResponse(n))
}

func (h *DeliberationHandler) handleCreateEdge(w http.ResponseWriter, r *http.Request) {
	deliberationID, err := deliberationParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		From string `json:"from"`
		To   string `json:"to"`
		Kind string `json:"kind"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	from, err := id.ParseNodeID(req.From)
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := id.ParseNodeID(req.To)
	if err != nil {
		writeError(w, err)
		return
	}
	kind, err := models.ParseEdgeKind(req.Kind)
	if err != nil {
		writeError(w, err)
		return
	}
	e, err := h.svc.CreateEdge(r.Context(), requestcontext.Principal(r.Context()), deliberationID, from, to, kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEdgeResponse(e))
}

type configResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	DeliberationID string  `json:"deliberation_id,omitempty"`
	Creator        string  `json:"creator,omitempty"`
	Model          string  `json:"model"`
	SystemPrompt   string  `json:"system_prompt,omitempty"`
	Temperature    float64 `json:"temperature"`
}

func toConfigResponse(c *models.AgentConfig) configResponse {
	out := configResponse{
		ID:           c.ID.String(),
		Name:         c.Name,
		Model:        c.Model,
		SystemPrompt: c.SystemPrompt,
		Temperature:  c.Temperature,
	}
	if !c.DeliberationID.IsNil() {
		out.DeliberationID = c.DeliberationID.String()
	}
	if !c.Creator.IsNil() {
		out.Creator = c.Creator.String()
	}
	return out
}

func (h *DeliberationHandler) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string  `json:"name"`
		DeliberationID string  `json:"deliberation_id"`
		Model          string  `json:"model"`
		SystemPrompt   string  `json:"system_prompt"`
		Temperature    float64 `json:"temperature"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	var deliberationID id.DeliberationID
	if req.DeliberationID != "" {
		var err error
		deliberationID, err = id.ParseDeliberationID(req.DeliberationID)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	c, err := h.svc.CreateAgentConfig(r.Context(), requestcontext.Principal(r.Context()),
		deliberationID, req.Name, req.Model, req.SystemPrompt, req.Temperature)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toConfigResponse(c))
}

func (h *DeliberationHandler) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	var deliberationID id.DeliberationID
	if raw := r.URL.Query().Get("deliberation_id"); raw != "" {
		var err error
		deliberationID, err = id.ParseDeliberationID(raw)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	configs, err := h.svc.ListAgentConfigs(r.Context(), requestcontext.Principal(r.Context()), deliberationID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]configResponse, 0, len(configs))
	for _, c := range configs {
		out = append(out, toConfigResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"agent_configs": out})
}

func (h *DeliberationHandler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configID, err := id.ParseAgentConfigID(chi.URLParam(r, "configID"))
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := h.svc.GetAgentConfig(r.Context(), requestcontext.Principal(r.Context()), configID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toConfigResponse(c))
}

func (h *DeliberationHandler) handleEditConfig(w http.ResponseWriter, r *http.Request) {
	configID, err := id.ParseAgentConfigID(chi.URLParam(r, "configID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Model        string  `json:"model"`
		SystemPrompt string  `json:"system_prompt"`
		Temperature  float64 `json:"temperature"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.svc.EditAgentConfig(r.Context(), requestcontext.Principal(r.Context()),
		configID, req.Model, req.SystemPrompt, req.Temperature)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toConfigResponse(c))
}

type documentResponse struct {
	ID             string `json:"id"`
	DeliberationID string `json:"deliberation_id"`
	Uploader       string `json:"uploader"`
	Name           string `json:"name"`
	ContentType    string `json:"content_type"`
	SizeBytes      int64  `json:"size_bytes"`
}

func toDocumentResponse(d *models.Document) documentResponse {
	return documentResponse{
		ID:             d.ID.String(),
		DeliberationID: d.DeliberationID.String(),
		Uploader:       d.Uploader.String(),
		Name:           d.Name,
		ContentType:    d.ContentType,
		SizeBytes:      d.SizeBytes,
	}
}

func (h *DeliberationHandler) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	deliberationID, err := deliberationParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Name        string `json:"name"`
		ContentType string `json:"content_type"`
		SizeBytes   int64  `json:"size_bytes"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	d, err := h.svc.UploadDocument(r.Context(), requestcontext.Principal(r.Context()),
		deliberationID, req.Name, req.ContentType, req.SizeBytes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDocumentResponse(d))
}

func (h *DeliberationHandler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	deliberationID, err := deliberationParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	docs, err := h.svc.ListDocuments(r.Context(), requestcontext.Principal(r.Context()), deliberationID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}

func (h *DeliberationHandler) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	documentID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	d, err := h.svc.GetDocument(r.Context(), requestcontext.Principal(r.Context()), documentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(d))
}
