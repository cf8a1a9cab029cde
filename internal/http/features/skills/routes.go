package skills

import (
	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-tenancy/internal/http/middleware"
)

// RegisterRoutes registers the skill routes on a tenant router. Changes
// require PermissionWrite.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/skills", h.List)
	r.Get("/skills/search", h.Search)
	r.Get("/skills/by-name/{namespace}/{name}", h.GetByName)
	r.Get("/skills/{skillID}", h.Get)
	r.Get("/skills/{skillID}/permitted", h.Permitted)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(PermissionWrite))
		r.Post("/skills", h.Register)
		r.Patch("/skills/{skillID}", h.Update)
		r.Delete("/skills/{skillID}", h.Delete)
	})
}
