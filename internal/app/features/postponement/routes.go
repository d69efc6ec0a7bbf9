// internal/app/features/postponement/routes.go
package postponement

import "github.com/go-chi/chi/v5"

// Routes mounts the postponement endpoints (typically under /postponement).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/years", h.ServeYears)
	r.Post("/content/{rootID}", h.ServeContent)
	return r
}
