package licenses

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers the license routes on an admin router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/licenses", h.Issue)
	r.Get("/licenses", h.List)
	r.Post("/licenses/activate", h.Activate)
	r.Post("/licenses/sweep", h.Sweep)
	r.Get("/licenses/{licenseID}", h.Get)
	r.Post("/licenses/{licenseID}/revoke", h.Revoke)
	r.Post("/licenses/{licenseID}/suspend", h.Suspend)
}
