// internal/app/features/auditlog/routes.go
package auditlog

import "github.com/go-chi/chi/v5"

// Routes mounts all audit log routes under the path where this
// router is mounted (typically "/audit" from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Delete("/filters", h.ServeClearFilters)
	return r
}
