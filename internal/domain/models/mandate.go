// internal/domain/models/mandate.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mandate functions.
const (
	FunctionPresident = "PRESIDENT"
	FunctionSecretary = "SECRETARY"
	FunctionSignatory = "SIGNATORY"
)

// Mandate is an office held over an education group.
type Mandate struct {
	ID               primitive.ObjectID `bson:"_id" json:"id"`
	EducationGroupID primitive.ObjectID `bson:"education_group_id" json:"education_group_id"`
	Function         string             `bson:"function" json:"function" validate:"required,oneof=PRESIDENT SECRETARY SIGNATORY"`
	Qualification    string             `bson:"qualification,omitempty" json:"qualification,omitempty"`
}

// Mandatary is the person activating a mandate over a date interval.
type Mandatary struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	MandateID primitive.ObjectID `bson:"mandate_id" json:"mandate_id"`
	PersonID  primitive.ObjectID `bson:"person_id" json:"person_id"`
	StartDate time.Time          `bson:"start_date" json:"start_date"`
	EndDate   time.Time          `bson:"end_date" json:"end_date"`
}

// ValidFor reports whether the interval covers the whole academic year.
func (m Mandatary) ValidFor(y AcademicYear) bool {
	return !m.StartDate.After(y.StartDate) && !m.EndDate.Before(y.EndDate)
}
