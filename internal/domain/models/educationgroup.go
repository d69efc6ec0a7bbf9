// internal/domain/models/educationgroup.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EducationGroup is the identity of an offer across academic years. Its
// per-year content lives in EducationGroupYear documents.
//
// EndYear is inclusive; nil means the offer has no planned end.
type EducationGroup struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	StartYear int                `bson:"start_year" json:"start_year"`
	EndYear   *int               `bson:"end_year,omitempty" json:"end_year,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// EndsBefore reports whether the group has an end year strictly lower than year.
func (g EducationGroup) EndsBefore(year int) bool {
	return g.EndYear != nil && *g.EndYear < year
}
