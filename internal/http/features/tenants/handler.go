package tenants

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-tenancy/internal/http/features/common"
	"github.com/tendant/simple-tenancy/internal/httputil"
	"github.com/tendant/simple-tenancy/pkg/domain"
	"github.com/tendant/simple-tenancy/pkg/tenant"
)

// Handler handles operator tenant endpoints.
type Handler struct {
	logger    *slog.Logger
	directory *tenant.Directory
}

// NewHandler creates a new tenants handler.
func NewHandler(logger *slog.Logger, directory *tenant.Directory) *Handler {
	return &Handler{logger: logger, directory: directory}
}

// TenantRequest is the body of create and update.
type TenantRequest struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	LLMProvider string          `json:"llm_provider"`
	LLMModel    string          `json:"llm_model"`
	Settings    map[string]any  `json:"settings"`
	Features    map[string]bool `json:"features"`
}

func (req TenantRequest) tenant() *domain.Tenant {
	return &domain.Tenant{
		ID:          req.ID,
		Name:        req.Name,
		LLMProvider: req.LLMProvider,
		LLMModel:    req.LLMModel,
		Settings:    req.Settings,
		Features:    req.Features,
	}
}

// Create adds or replaces a tenant.
// POST /v1/admin/tenants
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req TenantRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	t, err := h.directory.Create(r.Context(), req.tenant())
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	h.logger.Info("tenant saved", "tenant_id", t.ID)
	httputil.JSON(w, http.StatusCreated, t)
}

// List returns all tenants.
// GET /v1/admin/tenants
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]any{"tenants": h.directory.List()})
}

// Get returns one tenant.
// GET /v1/admin/tenants/{tenantID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	t, ok := h.directory.Get(chi.URLParam(r, "tenantID"))
	if !ok {
		httputil.Error(w, http.StatusNotFound, "tenant not found")
		return
	}
	httputil.JSON(w, http.StatusOK, t)
}

// Update replaces a tenant's configuration.
// PUT /v1/admin/tenants/{tenantID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tenantID")
	var req TenantRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	found, err := h.directory.Update(r.Context(), id, req.tenant())
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	if !found {
		httputil.Error(w, http.StatusNotFound, "tenant not found")
		return
	}
	t, _ := h.directory.Get(id)
	httputil.JSON(w, http.StatusOK, t)
}

// Delete removes a tenant.
// DELETE /v1/admin/tenants/{tenantID}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tenantID")
	found, err := h.directory.Delete(r.Context(), id)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	if !found {
		httputil.Error(w, http.StatusNotFound, "tenant not found")
		return
	}
	h.logger.Info("tenant deleted", "tenant_id", id)
	httputil.NoContent(w)
}
