// internal/app/features/formrules/routes.go
package formrules

import "github.com/go-chi/chi/v5"

// Routes mounts the form endpoints (typically under /formrules).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{egyID}", h.ServeForm)
	r.Post("/{egyID}/validate", h.ServeValidate)
	return r
}
