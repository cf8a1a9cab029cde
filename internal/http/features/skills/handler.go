package skills

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-tenancy/internal/http/features/common"
	"github.com/tendant/simple-tenancy/internal/http/middleware"
	"github.com/tendant/simple-tenancy/internal/httputil"
	"github.com/tendant/simple-tenancy/pkg/domain"
	"github.com/tendant/simple-tenancy/pkg/skills"
)

// PermissionWrite is required to change a tenant's skills.
const PermissionWrite = "skills:write"

// Handler handles tenant skill registry endpoints.
type Handler struct {
	logger   *slog.Logger
	registry *skills.Registry
}

// NewHandler creates a new skills handler.
func NewHandler(logger *slog.Logger, registry *skills.Registry) *Handler {
	return &Handler{logger: logger, registry: registry}
}

// RegisterRequest is the body of Register.
type RegisterRequest struct {
	Name                string         `json:"name"`
	Namespace           string         `json:"namespace"`
	Description         string         `json:"description"`
	Version             string         `json:"version"`
	Manifest            string         `json:"manifest"`
	IsPublic            bool           `json:"is_public"`
	RequiredPermissions []string       `json:"required_permissions"`
	Author              string         `json:"author"`
	Tags                []string       `json:"tags"`
	Config              map[string]any `json:"config"`
}

// UpdateRequest is the body of Update. Absent fields are left alone.
type UpdateRequest struct {
	Manifest    *string         `json:"manifest"`
	Description *string         `json:"description"`
	Version     *string         `json:"version"`
	IsActive    *bool           `json:"is_active"`
	IsPublic    *bool           `json:"is_public"`
	Tags        *[]string       `json:"tags"`
	Config      *map[string]any `json:"config"`
}

// Register adds or overwrites a skill of the caller's tenant.
// POST /v1/skills
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var req RegisterRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	author := req.Author
	if author == "" {
		author = user.ID
	}

	skill, err := h.registry.Register(r.Context(), skills.RegisterParams{
		TenantID:            user.TenantID,
		Name:                req.Name,
		Namespace:           req.Namespace,
		Description:         req.Description,
		Version:             req.Version,
		Manifest:            req.Manifest,
		IsPublic:            req.IsPublic,
		RequiredPermissions: req.RequiredPermissions,
		Author:              author,
		Tags:                req.Tags,
		Config:              req.Config,
	})
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	h.logger.Info("skill registered", "tenant_id", skill.TenantID, "skill", skill.Name, "namespace", skill.Namespace)
	httputil.JSON(w, http.StatusCreated, skill)
}

// List lists the tenant's skills by ?namespace, ?active, ?tags, ?limit,
// adding other tenants' public skills with ?include_public=true.
// GET /v1/skills
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.GetTenantID(r.Context())
	q := r.URL.Query()
	query := skills.ListQuery{
		Namespace: q.Get("namespace"),
		Tags:      common.SplitList(q.Get("tags")),
		Limit:     httputil.QueryInt(r, "limit", skills.DefaultListLimit),
	}
	if active, ok := httputil.QueryBool(r, "active"); ok {
		query.Active = &active
	}
	query.IncludePublic, _ = httputil.QueryBool(r, "include_public")

	httputil.JSON(w, http.StatusOK, map[string]any{
		"skills": h.registry.List(tenantID, query),
		"total":  h.registry.Count(tenantID, query),
	})
}

// Search matches ?q against names and descriptions of the tenant's skills
// and all public skills.
// GET /v1/skills/search
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.GetTenantID(r.Context())
	activeOnly, _ := httputil.QueryBool(r, "active_only")
	results := h.registry.Search(tenantID, skills.SearchQuery{
		Query:      r.URL.Query().Get("q"),
		Tags:       common.SplitList(r.URL.Query().Get("tags")),
		ActiveOnly: activeOnly,
		Limit:      httputil.QueryInt(r, "limit", skills.DefaultSearchLimit),
	})
	httputil.JSON(w, http.StatusOK, map[string]any{"skills": results})
}

// Get returns a skill the tenant owns, or any public skill.
// GET /v1/skills/{skillID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.GetTenantID(r.Context())
	skill, ok := h.registry.Get(chi.URLParam(r, "skillID"))
	if !ok || (skill.TenantID != tenantID && !skill.IsPublic) {
		httputil.Error(w, http.StatusNotFound, "skill not found")
		return
	}
	httputil.JSON(w, http.StatusOK, skill)
}

// GetByName returns the tenant's skill by namespace and name.
// GET /v1/skills/by-name/{namespace}/{name}
func (h *Handler) GetByName(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.GetTenantID(r.Context())
	skill, ok := h.registry.GetByName(tenantID, chi.URLParam(r, "name"), chi.URLParam(r, "namespace"))
	if !ok {
		httputil.Error(w, http.StatusNotFound, "skill not found")
		return
	}
	httputil.JSON(w, http.StatusOK, skill)
}

// Permitted reports whether the caller may use a skill.
// GET /v1/skills/{skillID}/permitted
func (h *Handler) Permitted(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	id := chi.URLParam(r, "skillID")
	skill, ok := h.registry.Get(id)
	if !ok || (skill.TenantID != user.TenantID && !skill.IsPublic) {
		httputil.Error(w, http.StatusNotFound, "skill not found")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]bool{"permitted": h.registry.CheckPermission(id, user.Permissions)})
}

// Update patches a skill of the tenant.
// PATCH /v1/skills/{skillID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	skill, ok := h.owned(r)
	if !ok {
		httputil.Error(w, http.StatusNotFound, "skill not found")
		return
	}
	var req UpdateRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	if _, err := h.registry.Update(r.Context(), skill.ID, skills.Patch{
		Manifest:    req.Manifest,
		Description: req.Description,
		Version:     req.Version,
		IsActive:    req.IsActive,
		IsPublic:    req.IsPublic,
		Tags:        req.Tags,
		Config:      req.Config,
	}); err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	updated, _ := h.registry.Get(skill.ID)
	httputil.JSON(w, http.StatusOK, updated)
}

// Delete removes a skill of the tenant.
// DELETE /v1/skills/{skillID}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	skill, ok := h.owned(r)
	if !ok {
		httputil.Error(w, http.StatusNotFound, "skill not found")
		return
	}
	if _, err := h.registry.Delete(r.Context(), skill.ID); err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	httputil.NoContent(w)
}

func (h *Handler) owned(r *http.Request) (*domain.Skill, bool) {
	tenantID, _ := middleware.GetTenantID(r.Context())
	skill, ok := h.registry.Get(chi.URLParam(r, "skillID"))
	if !common.Owned(ok, tenantOf(skill), tenantID) {
		return nil, false
	}
	return skill, true
}

func tenantOf(s *domain.Skill) string {
	if s == nil {
		return ""
	}
	return s.TenantID
}
