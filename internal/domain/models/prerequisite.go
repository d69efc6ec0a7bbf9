// internal/domain/models/prerequisite.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Prerequisite binds an expression to a learning unit year inside one
// training root. (LearningUnitYearID, EducationGroupYearID) is unique.
type Prerequisite struct {
	ID                   primitive.ObjectID `bson:"_id" json:"id"`
	LearningUnitYearID   primitive.ObjectID `bson:"learning_unit_year_id" json:"learning_unit_year_id"`
	EducationGroupYearID primitive.ObjectID `bson:"education_group_year_id" json:"education_group_year_id"`
	Expression           string             `bson:"prerequisite" json:"prerequisite"`
	ChangedAt            time.Time          `bson:"changed_at" json:"changed_at"`
}
