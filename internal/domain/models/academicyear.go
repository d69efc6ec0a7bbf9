// internal/domain/models/academicyear.go
package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AcademicYear is the yearly validity window every catalogue version is bound
// to. Years are ordered by Year; the successor of Y is the year Y+1.
type AcademicYear struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Year      int                `bson:"year" json:"year"`
	StartDate time.Time          `bson:"start_date" json:"start_date"`
	EndDate   time.Time          `bson:"end_date" json:"end_date"`
}

// String renders the year the way operators read it ("2018-19").
func (y AcademicYear) String() string {
	return fmt.Sprintf("%d-%02d", y.Year, (y.Year+1)%100)
}

// AcademicCalendar is a dated window of an academic year during which a given
// kind of operation is open (e.g. education group edition).
type AcademicCalendar struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	AcademicYearID primitive.ObjectID `bson:"academic_year_id" json:"academic_year_id"`
	Reference      string             `bson:"reference" json:"reference"`
	Title          string             `bson:"title" json:"title"`
	StartDate      time.Time          `bson:"start_date" json:"start_date"`
	EndDate        time.Time          `bson:"end_date" json:"end_date"`
}

// Calendar references.
const (
	CalendarEducationGroupEdition = "EDUCATION_GROUP_EDITION"
)

// OpenAt reports whether t falls inside the calendar window (bounds inclusive).
func (c AcademicCalendar) OpenAt(t time.Time) bool {
	return !t.Before(c.StartDate) && !t.After(c.EndDate)
}
