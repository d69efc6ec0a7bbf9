// internal/app/store/persons/personstore.go
package personstore

import (
	"context"
	"errors"

	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store is the user/role lookup consumed by the permission checks.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("persons")}
}

func (s *Store) Create(ctx context.Context, p models.Person) (models.Person, error) {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Person{}, catalogerr.FromMongo(err)
	}
	return p, nil
}

func (s *Store) GetByUserID(ctx context.Context, userID string) (models.Person, error) {
	var p models.Person
	if err := s.c.FindOne(ctx, bson.M{"user_id": userID}).Decode(&p); err != nil {
		return models.Person{}, catalogerr.FromMongo(err)
	}
	return p, nil
}

// IsCentralManager reports whether userID holds the central manager role.
// Unknown users are not managers.
func (s *Store) IsCentralManager(ctx context.Context, userID string) (bool, error) {
	return s.hasRole(ctx, userID, models.RoleCentralManager)
}

// IsProgramManager reports whether userID holds the program manager role.
func (s *Store) IsProgramManager(ctx context.Context, userID string) (bool, error) {
	return s.hasRole(ctx, userID, models.RoleProgramManager)
}

// EntitiesOf returns the entities userID is attached to.
func (s *Store) EntitiesOf(ctx context.Context, userID string) ([]primitive.ObjectID, error) {
	p, err := s.GetByUserID(ctx, userID)
	if errors.Is(err, catalogerr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p.EntityIDs, nil
}

func (s *Store) hasRole(ctx context.Context, userID, role string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"user_id": userID, "roles": role})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetByUserIDs returns the known persons among userIDs keyed by user id.
func (s *Store) GetByUserIDs(ctx context.Context, userIDs []string) (map[string]models.Person, error) {
	out := make(map[string]models.Person, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"user_id": bson.M{"$in": userIDs}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var persons []models.Person
	if err := cur.All(ctx, &persons); err != nil {
		return nil, err
	}
	for _, p := range persons {
		out[p.UserID] = p
	}
	return out, nil
}
