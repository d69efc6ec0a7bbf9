// internal/app/features/shorten/routes.go
package shorten

import "github.com/go-chi/chi/v5"

// Register adds the deletion endpoints to the root API router.
func Register(r chi.Router, h *Handler) {
	r.Get("/groups/{groupID}/shorten", h.ServeCheck)
	r.Post("/groups/{groupID}/shorten", h.ServeShorten)
	r.Delete("/educationgroupyears/{egyID}", h.ServeDeleteYear)
}
