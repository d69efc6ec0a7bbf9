// internal/app/store/academicyears/academicyearstore.go
package academicyearstore

import (
	"context"
	"time"

	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("academic_years")}
}

// Create inserts y. Years are unique; a duplicate surfaces as ErrIntegrity.
func (s *Store) Create(ctx context.Context, y models.AcademicYear) (models.AcademicYear, error) {
	if y.ID.IsZero() {
		y.ID = primitive.NewObjectID()
	}
	if _, err := s.c.InsertOne(ctx, y); err != nil {
		return models.AcademicYear{}, catalogerr.FromMongo(err)
	}
	return y, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.AcademicYear, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByYear returns the academic year starting in year.
func (s *Store) GetByYear(ctx context.Context, year int) (models.AcademicYear, error) {
	return s.findOne(ctx, bson.M{"year": year})
}

// Next returns the successor of y.
func (s *Store) Next(ctx context.Context, y models.AcademicYear) (models.AcademicYear, error) {
	return s.GetByYear(ctx, y.Year+1)
}

// Past returns the predecessor of y.
func (s *Store) Past(ctx context.Context, y models.AcademicYear) (models.AcademicYear, error) {
	return s.GetByYear(ctx, y.Year-1)
}

// At returns the academic year whose window contains t. When t falls between
// two windows the latest year already started is returned.
func (s *Store) At(ctx context.Context, t time.Time) (models.AcademicYear, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "start_date", Value: -1}})
	return s.findOne(ctx, bson.M{"start_date": bson.M{"$lte": t}}, opts)
}

// List returns every academic year ordered by year.
func (s *Store) List(ctx context.Context) ([]models.AcademicYear, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "year", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.AcademicYear
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (models.AcademicYear, error) {
	var y models.AcademicYear
	if err := s.c.FindOne(ctx, filter, opts...).Decode(&y); err != nil {
		return models.AcademicYear{}, catalogerr.FromMongo(err)
	}
	return y, nil
}
