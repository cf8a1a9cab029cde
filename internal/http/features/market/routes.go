package market

import (
	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-tenancy/internal/http/middleware"
)

// RegisterRoutes registers the market routes on a tenant router. Installing
// and uninstalling require permission.
func (h *Handler) RegisterRoutes(r chi.Router, permission string) {
	r.Get("/market", h.Browse)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(permission))
		r.Post("/market/{skillID}/install", h.Install)
		r.Delete("/market/installed/{skillID}", h.Uninstall)
	})
}
