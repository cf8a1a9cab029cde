package market

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-tenancy/internal/http/features/common"
	"github.com/tendant/simple-tenancy/internal/http/middleware"
	"github.com/tendant/simple-tenancy/internal/httputil"
	"github.com/tendant/simple-tenancy/pkg/skills"
)

// Handler handles skill market endpoints.
type Handler struct {
	logger *slog.Logger
	market *skills.Market
}

// NewHandler creates a new market handler.
func NewHandler(logger *slog.Logger, market *skills.Market) *Handler {
	return &Handler{logger: logger, market: market}
}

// InstallRequest is the body of Install.
type InstallRequest struct {
	Namespace string `json:"namespace"`
}

// Browse lists public skills of other tenants by ?category, ?q, ?limit.
// GET /v1/market
func (h *Handler) Browse(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.GetTenantID(r.Context())
	listings := h.market.Browse(tenantID, skills.BrowseQuery{
		Category: r.URL.Query().Get("category"),
		Query:    r.URL.Query().Get("q"),
		Limit:    httputil.QueryInt(r, "limit", skills.DefaultBrowseLimit),
	})
	httputil.JSON(w, http.StatusOK, map[string]any{"listings": listings})
}

// Install copies a public skill into the caller's tenant.
// POST /v1/market/{skillID}/install
func (h *Handler) Install(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.GetTenantID(r.Context())
	var req InstallRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	sourceID := chi.URLParam(r, "skillID")
	skill, found, err := h.market.Install(r.Context(), sourceID, tenantID, req.Namespace)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	if !found {
		httputil.Error(w, http.StatusNotFound, "skill not found in market")
		return
	}
	h.logger.Info("skill installed", "tenant_id", tenantID, "source_id", sourceID, "skill_id", skill.ID)
	httputil.JSON(w, http.StatusOK, skill)
}

// Uninstall removes an installed skill of the caller's tenant.
// DELETE /v1/market/installed/{skillID}
func (h *Handler) Uninstall(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.GetTenantID(r.Context())
	found, err := h.market.Uninstall(r.Context(), tenantID, chi.URLParam(r, "skillID"))
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	if !found {
		httputil.Error(w, http.StatusNotFound, "skill not found")
		return
	}
	httputil.NoContent(w)
}
