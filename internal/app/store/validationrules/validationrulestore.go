// internal/app/store/validationrules/validationrulestore.go
package validationrulestore

import (
	"context"

	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("validation_rules")}
}

// Upsert stores r under its field reference. created reports an insert.
func (s *Store) Upsert(ctx context.Context, r models.ValidationRule) (created bool, err error) {
	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": r.FieldReference}, r, options.Replace().SetUpsert(true))
	if err != nil {
		return false, catalogerr.FromMongo(err)
	}
	return res.UpsertedCount > 0, nil
}

func (s *Store) Get(ctx context.Context, fieldReference string) (models.ValidationRule, error) {
	var r models.ValidationRule
	if err := s.c.FindOne(ctx, bson.M{"_id": fieldReference}).Decode(&r); err != nil {
		return models.ValidationRule{}, catalogerr.FromMongo(err)
	}
	return r, nil
}

// List returns every rule ordered by field reference.
func (s *Store) List(ctx context.Context) ([]models.ValidationRule, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ValidationRule
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
