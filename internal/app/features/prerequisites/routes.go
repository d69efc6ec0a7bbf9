// internal/app/features/prerequisites/routes.go
package prerequisites

import "github.com/go-chi/chi/v5"

// Routes mounts the prerequisite endpoints (typically under /prerequisites).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Put("/", h.ServeSave)
	r.Get("/{rootID}", h.ServeList)
	return r
}
