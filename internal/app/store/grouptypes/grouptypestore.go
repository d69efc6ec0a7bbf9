// internal/app/store/grouptypes/grouptypestore.go
package grouptypestore

import (
	"context"

	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store reads education group types and the relationship tables that decide
// which type may be attached under which.
type Store struct {
	types        *mongo.Collection
	authorized   *mongo.Collection
	unauthorized *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		types:        db.Collection("education_group_types"),
		authorized:   db.Collection("authorized_relationships"),
		unauthorized: db.Collection("unauthorized_relationships"),
	}
}

func (s *Store) Create(ctx context.Context, gt models.EducationGroupType) (models.EducationGroupType, error) {
	if gt.ID.IsZero() {
		gt.ID = primitive.NewObjectID()
	}
	if _, err := s.types.InsertOne(ctx, gt); err != nil {
		return models.EducationGroupType{}, catalogerr.FromMongo(err)
	}
	return gt, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.EducationGroupType, error) {
	var gt models.EducationGroupType
	if err := s.types.FindOne(ctx, bson.M{"_id": id}).Decode(&gt); err != nil {
		return models.EducationGroupType{}, catalogerr.FromMongo(err)
	}
	return gt, nil
}

func (s *Store) GetByCategoryName(ctx context.Context, category, name string) (models.EducationGroupType, error) {
	var gt models.EducationGroupType
	if err := s.types.FindOne(ctx, bson.M{"category": category, "name": name}).Decode(&gt); err != nil {
		return models.EducationGroupType{}, catalogerr.FromMongo(err)
	}
	return gt, nil
}

// ListByIDs returns the types keyed by id.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.EducationGroupType, error) {
	out := make(map[primitive.ObjectID]models.EducationGroupType, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.types.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var gt models.EducationGroupType
		if err := cur.Decode(&gt); err != nil {
			return nil, err
		}
		out[gt.ID] = gt
	}
	return out, cur.Err()
}

// Authorize allows childType under parentType. Authorizing an existing pair
// is a no-op.
func (s *Store) Authorize(ctx context.Context, parentType, childType primitive.ObjectID) error {
	return upsertPair(ctx, s.authorized, parentType, childType)
}

// Unauthorize records a negative exception overriding an authorization.
func (s *Store) Unauthorize(ctx context.Context, parentType, childType primitive.ObjectID) error {
	return upsertPair(ctx, s.unauthorized, parentType, childType)
}

// IsAuthorized reports whether childType may be attached under parentType:
// an authorized pair exists and no unauthorized pair overrides it.
func (s *Store) IsAuthorized(ctx context.Context, parentType, childType primitive.ObjectID) (bool, error) {
	pair := bson.M{"parent_type_id": parentType, "child_type_id": childType}
	n, err := s.authorized.CountDocuments(ctx, pair)
	if err != nil || n == 0 {
		return false, err
	}
	n, err = s.unauthorized.CountDocuments(ctx, pair)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

func upsertPair(ctx context.Context, c *mongo.Collection, parentType, childType primitive.ObjectID) error {
	pair := bson.M{"parent_type_id": parentType, "child_type_id": childType}
	_, err := c.UpdateOne(ctx, pair,
		bson.M{"$setOnInsert": bson.M{"_id": primitive.NewObjectID()}},
		options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return err
	}
	return nil
}
