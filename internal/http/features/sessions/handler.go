package sessions

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tendant/simple-tenancy/internal/http/features/common"
	"github.com/tendant/simple-tenancy/internal/http/middleware"
	"github.com/tendant/simple-tenancy/internal/httputil"
	"github.com/tendant/simple-tenancy/internal/metrics"
	"github.com/tendant/simple-tenancy/pkg/domain"
	"github.com/tendant/simple-tenancy/pkg/license"
	"github.com/tendant/simple-tenancy/pkg/sessions"
)

// Handler handles conversation session endpoints.
type Handler struct {
	logger   *slog.Logger
	store    *sessions.Store
	licenses *license.Engine
	denials  *prometheus.CounterVec
}

// NewHandler creates a new sessions handler. denials may be nil.
func NewHandler(logger *slog.Logger, store *sessions.Store, licenses *license.Engine, denials *prometheus.CounterVec) *Handler {
	return &Handler{logger: logger, store: store, licenses: licenses, denials: denials}
}

// CreateRequest is the body of Create.
type CreateRequest struct {
	ID      string `json:"id"`
	Channel string `json:"channel"`
}

// UpdateRequest is the body of Update.
type UpdateRequest struct {
	Status   *domain.SessionStatus `json:"status"`
	Metadata *map[string]any       `json:"metadata"`
}

// MessageRequest is the body of AppendMessage.
type MessageRequest struct {
	Role     domain.MessageRole `json:"role"`
	Content  string             `json:"content"`
	Metadata map[string]any     `json:"metadata"`
}

// Create opens a session for the caller. A new session must fit the
// conversation ceiling of the tenant's license, counting active sessions.
// POST /v1/sessions
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var req CreateRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	status := http.StatusOK
	if _, exists := h.store.Get(req.ID); req.ID == "" || !exists {
		// Check and insert are separate steps, so racing creates may overshoot.
		lic, _ := middleware.GetLicense(r.Context())
		active := h.store.Count(user.TenantID, sessions.Filter{Status: domain.SessionActive})
		if lic == nil || !h.licenses.ValidateUsage(lic.ID, 0, active+1) {
			if h.denials != nil {
				h.denials.WithLabelValues(metrics.ReasonConversations).Inc()
			}
			httputil.Error(w, http.StatusForbidden, "license conversation limit reached")
			return
		}
		status = http.StatusCreated
	}

	session, err := h.store.Create(r.Context(), sessions.CreateParams{
		ID:       req.ID,
		TenantID: user.TenantID,
		UserID:   user.ID,
		Channel:  req.Channel,
	})
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, status, session)
}

// List returns the tenant's sessions by ?user_id, ?status, ?limit, ?offset.
// GET /v1/sessions
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.GetTenantID(r.Context())
	f := sessions.Filter{
		UserID: r.URL.Query().Get("user_id"),
		Status: domain.SessionStatus(r.URL.Query().Get("status")),
		Limit:  httputil.QueryInt(r, "limit", sessions.DefaultListLimit),
		Offset: httputil.QueryInt(r, "offset", 0),
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"sessions": h.store.List(tenantID, f),
		"total":    h.store.Count(tenantID, f),
	})
}

// Get returns one session of the tenant.
// GET /v1/sessions/{sessionID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.owned(r)
	if !ok {
		httputil.Error(w, http.StatusNotFound, "session not found")
		return
	}
	httputil.JSON(w, http.StatusOK, session)
}

// Update changes a session's status or metadata.
// PATCH /v1/sessions/{sessionID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	session, ok := h.owned(r)
	if !ok {
		httputil.Error(w, http.StatusNotFound, "session not found")
		return
	}
	var req UpdateRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	if _, err := h.store.Update(r.Context(), session.ID, sessions.Patch{Status: req.Status, Metadata: req.Metadata}); err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	updated, _ := h.store.Get(session.ID)
	httputil.JSON(w, http.StatusOK, updated)
}

// Delete removes a session with its messages.
// DELETE /v1/sessions/{sessionID}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	session, ok := h.owned(r)
	if !ok {
		httputil.Error(w, http.StatusNotFound, "session not found")
		return
	}
	if _, err := h.store.Delete(r.Context(), session.ID); err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	httputil.NoContent(w)
}

// AppendMessage adds a message to an active session.
// POST /v1/sessions/{sessionID}/messages
func (h *Handler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.owned(r)
	if !ok {
		httputil.Error(w, http.StatusNotFound, "session not found")
		return
	}
	var req MessageRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.Content == "" {
		common.WriteError(w, h.logger, domain.ErrContentRequired)
		return
	}

	msg, _, err := h.store.AppendMessage(r.Context(), session.ID, req.Role, req.Content, req.Metadata)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, msg)
}

// Messages returns a session's messages, the last ?limit when set.
// GET /v1/sessions/{sessionID}/messages
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	session, ok := h.owned(r)
	if !ok {
		httputil.Error(w, http.StatusNotFound, "session not found")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"messages": h.store.Messages(session.ID, httputil.QueryInt(r, "limit", 0)),
	})
}

func (h *Handler) owned(r *http.Request) (*domain.Session, bool) {
	tenantID, _ := middleware.GetTenantID(r.Context())
	session, ok := h.store.Get(chi.URLParam(r, "sessionID"))
	if !ok || session.TenantID != tenantID {
		return nil, false
	}
	return session, true
}
