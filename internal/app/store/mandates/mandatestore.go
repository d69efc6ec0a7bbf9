// internal/app/store/mandates/mandatestore.go
package mandatestore

import (
	"context"

	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	mandates    *mongo.Collection
	mandataries *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		mandates:    db.Collection("mandates"),
		mandataries: db.Collection("mandataries"),
	}
}

func (s *Store) CreateMandate(ctx context.Context, m models.Mandate) (models.Mandate, error) {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if _, err := s.mandates.InsertOne(ctx, m); err != nil {
		return models.Mandate{}, catalogerr.FromMongo(err)
	}
	return m, nil
}

func (s *Store) AddMandatary(ctx context.Context, m models.Mandatary) (models.Mandatary, error) {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if _, err := s.mandataries.InsertOne(ctx, m); err != nil {
		return models.Mandatary{}, catalogerr.FromMongo(err)
	}
	return m, nil
}

// Holder is a mandatary valid for an academic year, with its mandate and
// person resolved.
type Holder struct {
	Function      string `bson:"function" json:"function"`
	Qualification string `bson:"qualification" json:"qualification"`
	FirstName     string `bson:"first_name" json:"first_name"`
	LastName      string `bson:"last_name" json:"last_name"`
}

// ListValidFor returns the holders of the mandates of groupID whose interval
// covers the whole year, ordered by function then last name.
func (s *Store) ListValidFor(ctx context.Context, groupID primitive.ObjectID, year models.AcademicYear) ([]Holder, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"education_group_id": groupID}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         s.mandataries.Name(),
			"localField":   "_id",
			"foreignField": "mandate_id",
			"as":           "m",
		}}},
		{{Key: "$unwind", Value: "$m"}},
		{{Key: "$match", Value: bson.M{
			"m.start_date": bson.M{"$lte": year.StartDate},
			"m.end_date":   bson.M{"$gte": year.EndDate},
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "persons",
			"localField":   "m.person_id",
			"foreignField": "_id",
			"as":           "p",
		}}},
		{{Key: "$unwind", Value: "$p"}},
		{{Key: "$project", Value: bson.M{
			"function":      1,
			"qualification": 1,
			"first_name":    "$p.first_name",
			"last_name":     "$p.last_name",
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "function", Value: 1}, {Key: "last_name", Value: 1}}}},
	}
	cur, err := s.mandates.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Holder
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
