package sessions

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers the session routes on a tenant router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.Create)
	r.Get("/sessions", h.List)
	r.Get("/sessions/{sessionID}", h.Get)
	r.Patch("/sessions/{sessionID}", h.Update)
	r.Delete("/sessions/{sessionID}", h.Delete)
	r.Post("/sessions/{sessionID}/messages", h.AppendMessage)
	r.Get("/sessions/{sessionID}/messages", h.Messages)
}
