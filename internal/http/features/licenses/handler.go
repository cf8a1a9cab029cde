package licenses

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-tenancy/internal/http/features/common"
	"github.com/tendant/simple-tenancy/internal/httputil"
	"github.com/tendant/simple-tenancy/pkg/domain"
	"github.com/tendant/simple-tenancy/pkg/license"
)

// Handler handles operator license endpoints.
type Handler struct {
	logger *slog.Logger
	engine *license.Engine
}

// NewHandler creates a new licenses handler.
func NewHandler(logger *slog.Logger, engine *license.Engine) *Handler {
	return &Handler{logger: logger, engine: engine}
}

// IssueRequest is the body of Issue.
type IssueRequest struct {
	TenantID         string             `json:"tenant_id"`
	Type             domain.LicenseType `json:"license_type"`
	MaxUsers         int                `json:"max_users"`
	MaxConversations int                `json:"max_conversations"`
	Days             int                `json:"days"`
	Features         map[string]bool    `json:"features"`
}

// IssueResponse carries the activation key, shown only once.
type IssueResponse struct {
	License    *domain.License `json:"license"`
	LicenseKey string          `json:"license_key"`
}

// LicenseResponse is a license with its computed validity.
type LicenseResponse struct {
	*domain.License
	IsValid       bool `json:"is_valid"`
	DaysRemaining int  `json:"days_remaining"`
}

// ActivateRequest is the body of Activate.
type ActivateRequest struct {
	LicenseKey string `json:"license_key"`
}

// Issue creates a license.
// POST /v1/admin/licenses
func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	var req IssueRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	lic, key, err := h.engine.Create(r.Context(), license.CreateParams{
		TenantID:         req.TenantID,
		Type:             req.Type,
		MaxUsers:         req.MaxUsers,
		MaxConversations: req.MaxConversations,
		Days:             req.Days,
		Features:         req.Features,
	})
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	h.logger.Info("license issued", "tenant_id", lic.TenantID, "license_id", lic.ID, "type", lic.Type)
	httputil.JSON(w, http.StatusCreated, IssueResponse{License: lic, LicenseKey: key})
}

// List returns all licenses, or those of ?tenant_id.
// GET /v1/admin/licenses
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var out []*domain.License
	if tenantID := r.URL.Query().Get("tenant_id"); tenantID != "" {
		out = h.engine.ListByTenant(tenantID)
	} else {
		out = h.engine.List()
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"licenses": out})
}

// Get returns one license with its validity.
// GET /v1/admin/licenses/{licenseID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "licenseID")
	lic, ok := h.engine.Get(id)
	if !ok {
		httputil.Error(w, http.StatusNotFound, "license not found")
		return
	}
	httputil.JSON(w, http.StatusOK, LicenseResponse{
		License:       lic,
		IsValid:       h.engine.IsValid(id),
		DaysRemaining: h.engine.DaysRemaining(id),
	})
}

// Activate reactivates an expired license by its key.
// POST /v1/admin/licenses/activate
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	var req ActivateRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.LicenseKey == "" {
		httputil.Error(w, http.StatusBadRequest, "license_key is required")
		return
	}

	lic, found, err := h.engine.Activate(r.Context(), req.LicenseKey)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	if !found {
		httputil.Error(w, http.StatusNotFound, "license not found")
		return
	}
	httputil.JSON(w, http.StatusOK, lic)
}

// Revoke permanently revokes a license.
// POST /v1/admin/licenses/{licenseID}/revoke
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "revoked", h.engine.Revoke)
}

// Suspend puts a license on hold.
// POST /v1/admin/licenses/{licenseID}/suspend
func (h *Handler) Suspend(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "suspended", h.engine.Suspend)
}

// Sweep expires overdue licenses now.
// POST /v1/admin/licenses/sweep
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	n, err := h.engine.ExpireOverdue(r.Context())
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]int{"expired": n})
}

func (h *Handler) transition(
	w http.ResponseWriter,
	r *http.Request,
	verb string,
	apply func(ctx context.Context, id string) (bool, error),
) {
	id := chi.URLParam(r, "licenseID")
	found, err := apply(r.Context(), id)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	if !found {
		httputil.Error(w, http.StatusNotFound, "license not found")
		return
	}
	h.logger.Info("license "+verb, "license_id", id)
	lic, _ := h.engine.Get(id)
	httputil.JSON(w, http.StatusOK, lic)
}
