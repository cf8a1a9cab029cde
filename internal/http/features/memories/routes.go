package memories

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers the memory routes on a tenant router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/memories", h.Add)
	r.Get("/memories", h.Search)
	r.Get("/memories/count", h.Count)
	r.Get("/memories/{memoryID}", h.Get)
	r.Patch("/memories/{memoryID}", h.Update)
	r.Delete("/memories/{memoryID}", h.Delete)
	r.Get("/me/memories", h.Mine)
	r.Delete("/me/memories", h.ClearMine)
}
