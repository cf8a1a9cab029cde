package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tendant/simple-tenancy/internal/http/features/common"
	"github.com/tendant/simple-tenancy/internal/httputil"
	"github.com/tendant/simple-tenancy/internal/metrics"
	"github.com/tendant/simple-tenancy/pkg/auth"
	"github.com/tendant/simple-tenancy/pkg/domain"
	"github.com/tendant/simple-tenancy/pkg/license"
)

// Handler handles operator user endpoints.
type Handler struct {
	logger   *slog.Logger
	gate     *auth.Gate
	licenses *license.Engine
	denials  *prometheus.CounterVec
}

// NewHandler creates a new users handler. denials may be nil.
func NewHandler(logger *slog.Logger, gate *auth.Gate, licenses *license.Engine, denials *prometheus.CounterVec) *Handler {
	return &Handler{logger: logger, gate: gate, licenses: licenses, denials: denials}
}

// RegisterRequest is the body of Register.
type RegisterRequest struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Permissions []string `json:"permissions"`
}

// Register adds a user to a tenant. New users must fit the user ceiling of
// the tenant's valid license; updates to existing users always pass.
// POST /v1/admin/tenants/{tenantID}/users
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	var req RegisterRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	existing, exists := h.gate.GetUser(req.ID)
	if !exists || existing.TenantID != tenantID {
		lic, ok := h.licenses.GetByTenant(tenantID)
		if !ok {
			h.deny(metrics.ReasonNoLicense)
			httputil.Error(w, http.StatusForbidden, "no valid license")
			return
		}
		// Soft ceiling: concurrent registrations may overshoot it.
		if !h.licenses.ValidateUsage(lic.ID, h.gate.CountUsers(tenantID)+1, 0) {
			h.deny(metrics.ReasonUserCeiling)
			httputil.Error(w, http.StatusForbidden, "license user limit reached")
			return
		}
	}

	user, err := h.gate.RegisterUser(r.Context(), &domain.User{
		ID:          req.ID,
		TenantID:    tenantID,
		Name:        req.Name,
		Email:       req.Email,
		Permissions: req.Permissions,
	})
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	h.logger.Info("user registered", "tenant_id", tenantID, "user_id", user.ID)
	httputil.JSON(w, http.StatusCreated, user)
}

// List returns a tenant's users.
// GET /v1/admin/tenants/{tenantID}/users
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	httputil.JSON(w, http.StatusOK, map[string]any{
		"users": h.gate.ListUsers(tenantID),
		"count": h.gate.CountUsers(tenantID),
	})
}

// Delete removes a user of the tenant.
// DELETE /v1/admin/tenants/{tenantID}/users/{userID}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	userID := chi.URLParam(r, "userID")

	user, ok := h.gate.GetUser(userID)
	if !common.Owned(ok, tenantUnlessNil(user), tenantID) {
		httputil.Error(w, http.StatusNotFound, "user not found")
		return
	}
	if _, err := h.gate.DeleteUser(r.Context(), userID); err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	httputil.NoContent(w)
}

func (h *Handler) deny(reason string) {
	if h.denials != nil {
		h.denials.WithLabelValues(reason).Inc()
	}
}

func tenantUnlessNil(u *domain.User) string {
	if u == nil {
		return ""
	}
	return u.TenantID
}
