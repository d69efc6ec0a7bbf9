// internal/app/system/authz/roles.go
package authz

import (
	"net/http"
)

// HasAnyRole reports whether the current request's person has any of the given roles.
// Returns false if no person is present.
func HasAnyRole(r *http.Request, roles ...string) bool {
	p, ok := CurrentPerson(r)
	if !ok {
		return false
	}
	for _, want := range roles {
		if p.HasRole(want) {
			return true
		}
	}
	return false
}

// HasRole is a convenience wrapper for a single role.
func HasRole(r *http.Request, role string) bool {
	return HasAnyRole(r, role)
}

// HasPerm reports whether the current request's person was granted perm.
func HasPerm(r *http.Request, perm string) bool {
	p, ok := CurrentPerson(r)
	return ok && p.HasPerm(perm)
}
