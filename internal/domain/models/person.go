// internal/domain/models/person.go
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Person roles consumed by the catalogue permission checks.
const (
	RoleCentralManager = "central_manager"
	RoleProgramManager = "program_manager"
	RoleFacultyManager = "faculty_manager"
)

// Permission codes granted to persons.
const (
	PermAddEducationGroup    = "base.add_educationgroup"
	PermChangeEducationGroup = "base.change_educationgroup"
	PermDeleteEducationGroup = "base.delete_educationgroup"
	PermChangeCommonPages    = "base.change_commonpedagogyinformation"
	PermCanAccessCatalog     = "base.can_access_catalog"
	PermEditAdministrative   = "base.can_edit_education_group_administrative_data"
)

// Person is the user record seen by the catalogue.
type Person struct {
	ID          primitive.ObjectID   `bson:"_id" json:"id"`
	UserID      string               `bson:"user_id" json:"user_id"`
	FirstName   string               `bson:"first_name" json:"first_name"`
	LastName    string               `bson:"last_name" json:"last_name"`
	Roles       []string             `bson:"roles,omitempty" json:"roles,omitempty"`
	Permissions []string             `bson:"permissions,omitempty" json:"permissions,omitempty"`
	EntityIDs   []primitive.ObjectID `bson:"entity_ids,omitempty" json:"entity_ids,omitempty"`
}

// HasRole reports whether the person holds role.
func (p Person) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasPerm reports whether the person was granted perm.
func (p Person) HasPerm(perm string) bool {
	for _, x := range p.Permissions {
		if x == perm {
			return true
		}
	}
	return false
}

// IsAttachedTo reports whether the person is attached to entity.
func (p Person) IsAttachedTo(entity primitive.ObjectID) bool {
	for _, e := range p.EntityIDs {
		if e == entity {
			return true
		}
	}
	return false
}
