package apierr

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dalemusser/catalog/internal/app/system/authz"
	"github.com/dalemusser/catalog/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PathID parses the chi URL parameter key as an ObjectID. On failure it
// writes a 400 and returns false.
func PathID(w http.ResponseWriter, r *http.Request, key string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, key))
	if err != nil {
		BadRequest(w, "invalid "+key)
		return primitive.NilObjectID, false
	}
	return id, true
}

// QueryYear parses the query parameter key as a year. On failure it writes a
// 400 and returns false.
func QueryYear(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	year, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || year < 1900 || year > 9999 {
		BadRequest(w, "invalid "+key)
		return 0, false
	}
	return year, true
}

// DecodeJSON decodes the body of r into v. On failure it writes a 400 and
// returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		BadRequest(w, "invalid JSON body")
		return false
	}
	return true
}

// Person returns the caller attached by the identity middleware. Without one
// it writes a 401 and returns false.
func Person(w http.ResponseWriter, r *http.Request) (models.Person, bool) {
	p, ok := authz.CurrentPerson(r)
	if !ok {
		Unauthorized(w)
		return models.Person{}, false
	}
	return p, true
}
