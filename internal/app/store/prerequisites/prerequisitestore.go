// internal/app/store/prerequisites/prerequisitestore.go
package prerequisitestore

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
	return &Store{c: db.Collection("prerequisites")}
}

// Upsert stores expr for (rootID, luyID). There is at most one row per pair.
func (s *Store) Upsert(ctx context.Context, rootID, luyID primitive.ObjectID, expr string) (models.Prerequisite, error) {
	var p models.Prerequisite
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"education_group_year_id": rootID, "learning_unit_year_id": luyID},
		bson.M{
			"$set":         bson.M{"prerequisite": expr, "changed_at": time.Now().UTC()},
			"$setOnInsert": bson.M{"_id": primitive.NewObjectID()},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		return models.Prerequisite{}, catalogerr.FromMongo(err)
	}
	return p, nil
}

func (s *Store) Get(ctx context.Context, rootID, luyID primitive.ObjectID) (models.Prerequisite, error) {
	var p models.Prerequisite
	err := s.c.FindOne(ctx, bson.M{"education_group_year_id": rootID, "learning_unit_year_id": luyID}).Decode(&p)
	if err != nil {
		return models.Prerequisite{}, catalogerr.FromMongo(err)
	}
	return p, nil
}

// ListByRoot returns every prerequisite row bound to rootID.
func (s *Store) ListByRoot(ctx context.Context, rootID primitive.ObjectID) ([]models.Prerequisite, error) {
	cur, err := s.c.Find(ctx, bson.M{"education_group_year_id": rootID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Prerequisite
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LeavesWithPrerequisites returns the learning unit years that carry a
// non-empty expression inside rootID.
func (s *Store) LeavesWithPrerequisites(ctx context.Context, rootID primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	ids, err := s.c.Distinct(ctx, "learning_unit_year_id", bson.M{
		"education_group_year_id": rootID,
		"prerequisite":            bson.M{"$nin": bson.A{"", nil}},
	})
	if err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID]bool, len(ids))
	for _, v := range ids {
		if id, ok := v.(primitive.ObjectID); ok {
			out[id] = true
		}
	}
	return out, nil
}

// ListByRootsAndLeaves returns the non-empty rows binding any of luyIDs
// inside any of rootIDs.
func (s *Store) ListByRootsAndLeaves(ctx context.Context, rootIDs, luyIDs []primitive.ObjectID) ([]models.Prerequisite, error) {
	if len(rootIDs) == 0 || len(luyIDs) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{
		"education_group_year_id": bson.M{"$in": rootIDs},
		"learning_unit_year_id":   bson.M{"$in": luyIDs},
		"prerequisite":            bson.M{"$nin": bson.A{"", nil}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Prerequisite
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByEducationGroupYear removes every row owned by the year-version.
func (s *Store) DeleteByEducationGroupYear(ctx context.Context, egyID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"education_group_year_id": egyID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
