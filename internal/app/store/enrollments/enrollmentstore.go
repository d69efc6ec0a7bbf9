// internal/app/store/enrollments/enrollmentstore.go
package enrollmentstore

import (
	"context"

	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store exposes enrollment counts. Enrollments are written by the
// registration system; the catalogue only reads them.
type Store struct {
	offers *mongo.Collection
	units  *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		offers: db.Collection("offer_enrollments"),
		units:  db.Collection("learning_unit_enrollments"),
	}
}

func (s *Store) CreateOffer(ctx context.Context, oe models.OfferEnrollment) (models.OfferEnrollment, error) {
	if oe.ID.IsZero() {
		oe.ID = primitive.NewObjectID()
	}
	if _, err := s.offers.InsertOne(ctx, oe); err != nil {
		return models.OfferEnrollment{}, catalogerr.FromMongo(err)
	}
	return oe, nil
}

func (s *Store) CreateLearningUnit(ctx context.Context, le models.LearningUnitEnrollment) (models.LearningUnitEnrollment, error) {
	if le.ID.IsZero() {
		le.ID = primitive.NewObjectID()
	}
	if _, err := s.units.InsertOne(ctx, le); err != nil {
		return models.LearningUnitEnrollment{}, catalogerr.FromMongo(err)
	}
	return le, nil
}

// CountByEGY returns the number of offer enrollments of egyID.
func (s *Store) CountByEGY(ctx context.Context, egyID primitive.ObjectID) (int64, error) {
	return s.offers.CountDocuments(ctx, bson.M{"education_group_year_id": egyID})
}

// CountByEGYs returns the offer enrollment counts keyed by year-version.
// Year-versions without enrollment are absent.
func (s *Store) CountByEGYs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]int64, error) {
	out := make(map[primitive.ObjectID]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.offers.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"education_group_year_id": bson.M{"$in": ids}}}},
		{{Key: "$group", Value: bson.M{"_id": "$education_group_year_id", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
			N  int64              `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.N
	}
	return out, cur.Err()
}
