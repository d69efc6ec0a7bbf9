// internal/domain/models/enrollment.go
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OfferEnrollment registers a student in a year-version. The catalogue only
// counts them.
type OfferEnrollment struct {
	ID                   primitive.ObjectID `bson:"_id" json:"id"`
	EducationGroupYearID primitive.ObjectID `bson:"education_group_year_id" json:"education_group_year_id"`
	StudentID            primitive.ObjectID `bson:"student_id" json:"student_id"`
}

// LearningUnitEnrollment registers an offer enrollment in a learning unit year.
type LearningUnitEnrollment struct {
	ID                 primitive.ObjectID `bson:"_id" json:"id"`
	OfferEnrollmentID  primitive.ObjectID `bson:"offer_enrollment_id" json:"offer_enrollment_id"`
	LearningUnitYearID primitive.ObjectID `bson:"learning_unit_year_id" json:"learning_unit_year_id"`
}
