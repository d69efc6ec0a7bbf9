// internal/domain/models/learningunit.go
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LearningUnit is the identity of a course across years.
type LearningUnit struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	StartYear int                `bson:"start_year" json:"start_year"`
	EndYear   *int               `bson:"end_year,omitempty" json:"end_year,omitempty"`
}

// LearningUnitYear is the per-year leaf referenced by group element years.
type LearningUnitYear struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	LearningUnitID primitive.ObjectID `bson:"learning_unit_id" json:"learning_unit_id"`
	AcademicYearID primitive.ObjectID `bson:"academic_year_id" json:"academic_year_id"`
	AcademicYear   int                `bson:"academic_year" json:"academic_year"`
	Acronym        string             `bson:"acronym" json:"acronym"`
	SpecificTitle  string             `bson:"specific_title,omitempty" json:"specific_title,omitempty"`
	Credits        *float64           `bson:"credits,omitempty" json:"credits,omitempty"`
}
