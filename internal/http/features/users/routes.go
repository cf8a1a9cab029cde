package users

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers the user routes on an admin router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/tenants/{tenantID}/users", h.Register)
	r.Get("/tenants/{tenantID}/users", h.List)
	r.Delete("/tenants/{tenantID}/users/{userID}", h.Delete)
}
