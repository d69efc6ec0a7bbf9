// internal/app/features/tree/routes.go
package tree

import "github.com/go-chi/chi/v5"

// Register adds the read-only endpoints to the root API router.
func Register(r chi.Router, h *Handler) {
	r.Get("/trees/{rootID}", h.ServeTree)
	r.Get("/learningunits/{luyID}/formations", h.ServeFormations)
	r.Get("/educationgroupyears/{egyID}/ascendants", h.ServeAscendants)
	r.Get("/educationgroupyears/{egyID}/mandataries", h.ServeMandataries)
}
