// internal/app/system/authz/authz.go
package authz

import (
	"context"
	"errors"
	"net/http"
	"strings"

	personstore "github.com/dalemusser/catalog/internal/app/store/persons"
	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.uber.org/zap"
)

// UserHeader carries the caller identity. It is set by the authentication
// layer in front of the catalogue.
const UserHeader = "X-User-ID"

type ctxKey struct{}

// UserID returns the caller identity of r and whether one was sent.
func UserID(r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get(UserHeader))
	return id, id != ""
}

// CurrentPerson returns the person loaded by Middleware.LoadPerson.
func CurrentPerson(r *http.Request) (models.Person, bool) {
	p, ok := r.Context().Value(ctxKey{}).(models.Person)
	return p, ok
}

// WithPerson returns a copy of r carrying p, as LoadPerson does.
func WithPerson(r *http.Request, p models.Person) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ctxKey{}, p))
}

// Middleware resolves the caller of each request to a Person.
type Middleware struct {
	persons *personstore.Store
	log     *zap.Logger
}

// NewMiddleware creates the identity middleware.
func NewMiddleware(persons *personstore.Store, logger *zap.Logger) *Middleware {
	return &Middleware{persons: persons, log: logger}
}

// LoadPerson rejects requests without identity with 401 and attaches the
// caller's Person to the rest. A caller unknown to the person store gets an
// empty Person: no role, no permission.
func (m *Middleware) LoadPerson(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r)
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized","message":"Please sign in to continue."}` + "\n"))
			return
		}
		p, err := m.persons.GetByUserID(r.Context(), userID)
		switch {
		case errors.Is(err, catalogerr.ErrNotFound):
			p = models.Person{UserID: userID}
		case err != nil:
			m.log.Error("load person failed", zap.String("user_id", userID), zap.Error(err))
			http.Error(w, `{"error":"internal","message":"internal error"}`, http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, WithPerson(r, p))
	})
}
