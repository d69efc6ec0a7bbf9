// internal/app/store/clipboard/store.go
package clipboard

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Kind is the type of object held in a clipboard.
type Kind string

const (
	KindLearningUnitYear   Kind = "learningunityear"
	KindEducationGroupYear Kind = "educationgroupyear"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindLearningUnitYear || k == KindEducationGroupYear
}

// ErrInvalidKind is returned by Select for an unknown kind.
var ErrInvalidKind = errors.New("clipboard: invalid selection kind")

// Selection is the object a user picked to attach somewhere else.
type Selection struct {
	Kind Kind               `bson:"kind" json:"kind"`
	ID   primitive.ObjectID `bson:"id" json:"id"`
}

type entry struct {
	UserID    string    `bson:"_id"`
	Selection Selection `bson:"selection"`
	ExpiresAt time.Time `bson:"expires_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Store keeps one selection per user. Entries expire after TTL.
type Store struct {
	c   *mongo.Collection
	ttl time.Duration
}

// New creates a clipboard Store. A non-positive ttl defaults to 24h.
func New(db *mongo.Database, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{c: db.Collection("clipboards"), ttl: ttl}
}

// EnsureIndexes creates the TTL index used for automatic cleanup.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_clipboard_ttl"),
	})
	return err
}

// Select overwrites the selection of userID.
func (s *Store) Select(ctx context.Context, userID string, sel Selection) error {
	if !sel.Kind.Valid() {
		return ErrInvalidKind
	}
	now := time.Now().UTC()
	_, err := s.c.ReplaceOne(ctx, bson.M{"_id": userID}, entry{
		UserID:    userID,
		Selection: sel,
		ExpiresAt: now.Add(s.ttl),
		UpdatedAt: now,
	}, options.Replace().SetUpsert(true))
	return err
}

// Get returns the selection of userID. ok is false when the clipboard is
// empty or expired.
func (s *Store) Get(ctx context.Context, userID string) (sel Selection, ok bool, err error) {
	var e entry
	err = s.c.FindOne(ctx, bson.M{
		"_id":        userID,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Selection{}, false, nil
	}
	if err != nil {
		return Selection{}, false, err
	}
	return e.Selection, true, nil
}

// Clear empties the clipboard of userID.
func (s *Store) Clear(ctx context.Context, userID string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": userID})
	return err
}

// CleanupExpired removes expired entries. It backs up the TTL index, whose
// monitor only runs once a minute.
func (s *Store) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
