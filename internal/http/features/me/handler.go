package me

import (
	"log/slog"
	"net/http"

	"github.com/tendant/simple-tenancy/internal/http/middleware"
	"github.com/tendant/simple-tenancy/internal/httputil"
	"github.com/tendant/simple-tenancy/pkg/domain"
	"github.com/tendant/simple-tenancy/pkg/license"
	"github.com/tendant/simple-tenancy/pkg/tenant"
)

// Handler handles the caller's own profile.
type Handler struct {
	logger    *slog.Logger
	directory *tenant.Directory
	licenses  *license.Engine
}

// NewHandler creates a new me handler.
func NewHandler(logger *slog.Logger, directory *tenant.Directory, licenses *license.Engine) *Handler {
	return &Handler{logger: logger, directory: directory, licenses: licenses}
}

// LicenseSummary is the part of the license a tenant user may see.
type LicenseSummary struct {
	Type             domain.LicenseType `json:"license_type"`
	MaxUsers         int                `json:"max_users"`
	MaxConversations int                `json:"max_conversations"`
	DaysRemaining    int                `json:"days_remaining"`
	Features         map[string]bool    `json:"features"`
}

// TenantSummary is the part of the tenant a tenant user may see.
type TenantSummary struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	LLMProvider string          `json:"llm_provider,omitempty"`
	LLMModel    string          `json:"llm_model,omitempty"`
	Features    map[string]bool `json:"features"`
}

// MeResponse represents the caller's profile.
type MeResponse struct {
	User    *domain.User    `json:"user"`
	Tenant  *TenantSummary  `json:"tenant,omitempty"`
	License *LicenseSummary `json:"license,omitempty"`
}

// GetMe returns the current user with their tenant and license.
// GET /v1/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	resp := MeResponse{User: user}
	if t, ok := h.directory.Get(user.TenantID); ok {
		resp.Tenant = &TenantSummary{
			ID:          t.ID,
			Name:        t.Name,
			LLMProvider: t.LLMProvider,
			LLMModel:    t.LLMModel,
			Features:    t.Features,
		}
	}
	if lic, ok := middleware.GetLicense(r.Context()); ok {
		resp.License = &LicenseSummary{
			Type:             lic.Type,
			MaxUsers:         lic.MaxUsers,
			MaxConversations: lic.MaxConversations,
			DaysRemaining:    h.licenses.DaysRemaining(lic.ID),
			Features:         lic.Features,
		}
	}
	httputil.JSON(w, http.StatusOK, resp)
}

// Permissions answers whether the caller holds ?permission.
// GET /v1/me/permissions
func (h *Handler) Permissions(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	p := r.URL.Query().Get("permission")
	if p == "" {
		httputil.JSON(w, http.StatusOK, map[string]any{"permissions": user.Permissions})
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"permission": p, "granted": user.HasPermission(p)})
}
