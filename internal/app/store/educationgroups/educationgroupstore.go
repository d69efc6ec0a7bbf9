// internal/app/store/educationgroups/educationgroupstore.go
package educationgroupstore

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
	return &Store{c: db.Collection("education_groups")}
}

func (s *Store) Create(ctx context.Context, g models.EducationGroup) (models.EducationGroup, error) {
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		return models.EducationGroup{}, catalogerr.FromMongo(err)
	}
	return g, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.EducationGroup, error) {
	var g models.EducationGroup
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return models.EducationGroup{}, catalogerr.FromMongo(err)
	}
	return g, nil
}

// GetByIDs returns the groups keyed by id. Unknown ids are absent.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.EducationGroup, error) {
	out := make(map[primitive.ObjectID]models.EducationGroup, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var g models.EducationGroup
		if err := cur.Decode(&g); err != nil {
			return nil, err
		}
		out[g.ID] = g
	}
	return out, cur.Err()
}

// SetEndYear sets the inclusive end year. A nil year clears it.
func (s *Store) SetEndYear(ctx context.Context, id primitive.ObjectID, endYear *int) error {
	update := bson.M{"$set": bson.M{"updated_at": time.Now().UTC()}}
	if endYear == nil {
		update["$unset"] = bson.M{"end_year": ""}
	} else {
		update["$set"].(bson.M)["end_year"] = *endYear
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return catalogerr.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return catalogerr.ErrNotFound
	}
	return nil
}
