// internal/app/store/filtercache/store.go
package filtercache

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store remembers the last search filter a user applied on a page, keyed by
// (user, url).
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("filter_caches")}
}

type entry struct {
	UserID    string            `bson:"user_id"`
	URL       string            `bson:"url"`
	Filters   map[string]string `bson:"filters"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

// Save replaces the cached filters of (userID, url).
func (s *Store) Save(ctx context.Context, userID, url string, filters map[string]string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": userID, "url": url},
		bson.M{"$set": bson.M{"filters": filters, "updated_at": time.Now().UTC()}},
		options.Update().SetUpsert(true))
	return err
}

// Get returns the cached filters of (userID, url), or nil when none.
func (s *Store) Get(ctx context.Context, userID, url string) (map[string]string, error) {
	var e entry
	err := s.c.FindOne(ctx, bson.M{"user_id": userID, "url": url}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e.Filters, nil
}

// Clear removes the cached filters of (userID, url).
func (s *Store) Clear(ctx context.Context, userID, url string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"user_id": userID, "url": url})
	return err
}
