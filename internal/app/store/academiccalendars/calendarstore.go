// internal/app/store/academiccalendars/calendarstore.go
package calendarstore

import (
	"context"
	"time"

	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("academic_calendars")}
}

func (s *Store) Create(ctx context.Context, cal models.AcademicCalendar) (models.AcademicCalendar, error) {
	if cal.ID.IsZero() {
		cal.ID = primitive.NewObjectID()
	}
	if _, err := s.c.InsertOne(ctx, cal); err != nil {
		return models.AcademicCalendar{}, catalogerr.FromMongo(err)
	}
	return cal, nil
}

// FindOpen returns the calendar with reference whose window contains at.
func (s *Store) FindOpen(ctx context.Context, reference string, at time.Time) (models.AcademicCalendar, error) {
	var cal models.AcademicCalendar
	err := s.c.FindOne(ctx, bson.M{
		"reference":  reference,
		"start_date": bson.M{"$lte": at},
		"end_date":   bson.M{"$gte": at},
	}).Decode(&cal)
	if err != nil {
		return models.AcademicCalendar{}, catalogerr.FromMongo(err)
	}
	return cal, nil
}

// IsOpen reports whether a calendar with reference is open at at.
func (s *Store) IsOpen(ctx context.Context, reference string, at time.Time) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{
		"reference":  reference,
		"start_date": bson.M{"$lte": at},
		"end_date":   bson.M{"$gte": at},
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
