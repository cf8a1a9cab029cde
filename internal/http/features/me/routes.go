package me

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers the profile routes on a tenant router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.GetMe)
	r.Get("/me/permissions", h.Permissions)
}
