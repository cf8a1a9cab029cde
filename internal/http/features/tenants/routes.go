package tenants

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers the tenant routes on an admin router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/tenants", h.Create)
	r.Get("/tenants", h.List)
	r.Get("/tenants/{tenantID}", h.Get)
	r.Put("/tenants/{tenantID}", h.Update)
	r.Delete("/tenants/{tenantID}", h.Delete)
}
