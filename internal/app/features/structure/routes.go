// internal/app/features/structure/routes.go
package structure

import "github.com/go-chi/chi/v5"

// Register adds the clipboard and edge endpoints to the root API router.
func Register(r chi.Router, h *Handler) {
	r.Route("/clipboard", func(cr chi.Router) {
		cr.Get("/", h.ServeClipboard)
		cr.Delete("/", h.ServeClear)
		cr.Post("/select", h.ServeSelect)
		cr.Post("/attach/{parentID}", h.ServeAttach)
	})

	r.Route("/edges/{edgeID}", func(er chi.Router) {
		er.Delete("/", h.ServeDetach)
		er.Post("/up", h.ServeUp)
		er.Post("/down", h.ServeDown)
	})
}
