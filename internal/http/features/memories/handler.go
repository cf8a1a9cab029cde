package memories

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-tenancy/internal/http/features/common"
	"github.com/tendant/simple-tenancy/internal/http/middleware"
	"github.com/tendant/simple-tenancy/internal/httputil"
	"github.com/tendant/simple-tenancy/pkg/domain"
	"github.com/tendant/simple-tenancy/pkg/memory"
)

// Handler handles tenant memory endpoints.
type Handler struct {
	logger *slog.Logger
	store  *memory.Store
}

// NewHandler creates a new memories handler.
func NewHandler(logger *slog.Logger, store *memory.Store) *Handler {
	return &Handler{logger: logger, store: store}
}

// AddRequest is the body of Add. UserID defaults to the caller.
type AddRequest struct {
	UserID     string            `json:"user_id"`
	Content    string            `json:"content"`
	Type       domain.MemoryType `json:"memory_type"`
	Tags       []string          `json:"tags"`
	Importance int               `json:"importance"`
	Embedding  []float32         `json:"embedding"`
}

// UpdateRequest is the body of Update. Absent fields are left alone.
type UpdateRequest struct {
	Content    *string   `json:"content"`
	Tags       *[]string `json:"tags"`
	Importance *int      `json:"importance"`
	IsPinned   *bool     `json:"is_pinned"`
}

// Add remembers content for the caller's tenant.
// POST /v1/memories
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var req AddRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		req.UserID = user.ID
	}

	item, err := h.store.Add(r.Context(), memory.AddParams{
		TenantID:   user.TenantID,
		UserID:     req.UserID,
		Content:    req.Content,
		Type:       req.Type,
		Tags:       req.Tags,
		Importance: req.Importance,
		Embedding:  req.Embedding,
	})
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, item)
}

// Search lists the tenant's memories by ?q, ?type, ?tags, ?user_id, ?limit.
// GET /v1/memories
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.GetTenantID(r.Context())
	f := filterFrom(r)
	items := h.store.Search(tenantID, memory.Query{
		Filter: f,
		Limit:  httputil.QueryInt(r, "limit", memory.DefaultSearchLimit),
	})
	httputil.JSON(w, http.StatusOK, map[string]any{
		"memories": items,
		"total":    h.store.Count(tenantID, f),
	})
}

// Count counts the tenant's memories with the same filters as Search.
// GET /v1/memories/count
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.GetTenantID(r.Context())
	httputil.JSON(w, http.StatusOK, map[string]int{"count": h.store.Count(tenantID, filterFrom(r))})
}

// Mine lists the caller's memories, most recently updated first.
// GET /v1/me/memories
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	items := h.store.GetByUser(user.TenantID, user.ID, httputil.QueryInt(r, "limit", memory.DefaultUserLimit))
	httputil.JSON(w, http.StatusOK, map[string]any{"memories": items})
}

// ClearMine deletes all of the caller's memories.
// DELETE /v1/me/memories
func (h *Handler) ClearMine(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	n, err := h.store.ClearUserMemories(r.Context(), user.TenantID, user.ID)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// Get returns one memory of the tenant.
// GET /v1/memories/{memoryID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	item, ok := h.owned(r)
	if !ok {
		httputil.Error(w, http.StatusNotFound, "memory not found")
		return
	}
	httputil.JSON(w, http.StatusOK, item)
}

// Update patches one memory of the tenant.
// PATCH /v1/memories/{memoryID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	item, ok := h.owned(r)
	if !ok {
		httputil.Error(w, http.StatusNotFound, "memory not found")
		return
	}
	var req UpdateRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	if _, err := h.store.Update(r.Context(), item.ID, memory.Patch{
		Content:    req.Content,
		Tags:       req.Tags,
		Importance: req.Importance,
		IsPinned:   req.IsPinned,
	}); err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	updated, _ := h.store.GetForTenant(item.TenantID, item.ID)
	httputil.JSON(w, http.StatusOK, updated)
}

// Delete removes one memory of the tenant.
// DELETE /v1/memories/{memoryID}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.owned(r)
	if !ok {
		httputil.Error(w, http.StatusNotFound, "memory not found")
		return
	}
	if _, err := h.store.Delete(r.Context(), item.ID); err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	httputil.NoContent(w)
}

func (h *Handler) owned(r *http.Request) (*domain.MemoryItem, bool) {
	tenantID, _ := middleware.GetTenantID(r.Context())
	return h.store.GetForTenant(tenantID, chi.URLParam(r, "memoryID"))
}

func filterFrom(r *http.Request) memory.Filter {
	q := r.URL.Query()
	return memory.Filter{
		UserID: q.Get("user_id"),
		Type:   domain.MemoryType(q.Get("type")),
		Tags:   common.SplitList(q.Get("tags")),
		Query:  q.Get("q"),
	}
}
