// internal/app/features/imports/routes.go
package imports

import "github.com/go-chi/chi/v5"

// Routes mounts the import endpoints (typically under /imports).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/admission", h.ServeAdmission)
	r.Post("/admission/duplicate", h.ServeDuplicate)
	r.Post("/common", h.ServeCommon)
	r.Post("/rules", h.ServeRules)
	return r
}
