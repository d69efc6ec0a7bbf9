// internal/app/store/groupelementyears/geystore.go
package geystore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/catalog/internal/app/system/txn"
	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MaxOrderAttempts bounds the retries of GetOrCreate when a concurrent insert
// took the computed order.
const MaxOrderAttempts = 5

// ErrOrderContention is returned when no free order was found within
// MaxOrderAttempts.
var ErrOrderContention = errors.New("could not allocate an order for the new element")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("group_element_years")}
}

var byOrder = options.Find().SetSort(bson.D{{Key: "parent_id", Value: 1}, {Key: "order", Value: 1}})

// Create validates gey and inserts it as is.
func (s *Store) Create(ctx context.Context, gey models.GroupElementYear) (models.GroupElementYear, error) {
	gey.Block = models.NormalizeBlock(gey.Block)
	if err := gey.Validate(); err != nil {
		return models.GroupElementYear{}, err
	}
	if gey.ID.IsZero() {
		gey.ID = primitive.NewObjectID()
	}
	gey.ChangedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, gey); err != nil {
		return models.GroupElementYear{}, catalogerr.FromMongo(err)
	}
	return gey, nil
}

// Update validates gey and replaces the stored edge.
func (s *Store) Update(ctx context.Context, gey models.GroupElementYear) error {
	gey.Block = models.NormalizeBlock(gey.Block)
	if err := gey.Validate(); err != nil {
		return err
	}
	gey.ChangedAt = time.Now().UTC()
	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": gey.ID}, gey)
	if err != nil {
		return catalogerr.FromMongo(err)
	}
	if res.MatchedCount == 0 {
		return catalogerr.ErrNotFound
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.GroupElementYear, error) {
	var gey models.GroupElementYear
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&gey); err != nil {
		return models.GroupElementYear{}, catalogerr.FromMongo(err)
	}
	return gey, nil
}

// Find returns the edge from parent to the child set on tmpl.
func (s *Store) Find(ctx context.Context, tmpl models.GroupElementYear) (models.GroupElementYear, error) {
	var gey models.GroupElementYear
	if err := s.c.FindOne(ctx, childFilter(tmpl)).Decode(&gey); err != nil {
		return models.GroupElementYear{}, catalogerr.FromMongo(err)
	}
	return gey, nil
}

// GetOrCreate returns the edge from tmpl.ParentID to tmpl's child, creating
// it with tmpl's attributes when missing. A new edge is placed after the
// parent's last child. created reports whether an insert happened.
//
// Outside a transaction a lost order race is retried up to MaxOrderAttempts
// times. Inside one the duplicate key has already aborted the transaction, so
// a single attempt is made and ErrOrderContention tells the caller to rerun
// its whole transaction.
func (s *Store) GetOrCreate(ctx context.Context, tmpl models.GroupElementYear) (gey models.GroupElementYear, created bool, err error) {
	attempts := MaxOrderAttempts
	if txn.Active(ctx) {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		existing, err := s.Find(ctx, tmpl)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, catalogerr.ErrNotFound) {
			return models.GroupElementYear{}, false, err
		}

		next, err := s.nextOrder(ctx, tmpl.ParentID)
		if err != nil {
			return models.GroupElementYear{}, false, err
		}
		candidate := tmpl
		candidate.ID = primitive.NilObjectID
		candidate.Order = next

		gey, err = s.Create(ctx, candidate)
		if err == nil {
			return gey, true, nil
		}
		if !errors.Is(err, catalogerr.ErrIntegrity) {
			return models.GroupElementYear{}, false, err
		}
		// Either the same edge or the same order was inserted concurrently;
		// the next attempt tells them apart.
	}
	return models.GroupElementYear{}, false, ErrOrderContention
}

func (s *Store) nextOrder(ctx context.Context, parentID primitive.ObjectID) (int, error) {
	var last struct {
		Order int `bson:"order"`
	}
	err := s.c.FindOne(ctx, bson.M{"parent_id": parentID},
		options.FindOne().SetSort(bson.D{{Key: "order", Value: -1}}).SetProjection(bson.M{"order": 1}),
	).Decode(&last)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return last.Order + 1, nil
}

func childFilter(tmpl models.GroupElementYear) bson.M {
	f := bson.M{"parent_id": tmpl.ParentID}
	if tmpl.ChildBranchID != nil {
		f["child_branch_id"] = *tmpl.ChildBranchID
	} else if tmpl.ChildLeafID != nil {
		f["child_leaf_id"] = *tmpl.ChildLeafID
	}
	return f
}

// ListByParent returns the children of parentID ordered by Order.
func (s *Store) ListByParent(ctx context.Context, parentID primitive.ObjectID) ([]models.GroupElementYear, error) {
	return s.find(ctx, bson.M{"parent_id": parentID})
}

// ListByParents returns the children of every parent in ids.
func (s *Store) ListByParents(ctx context.Context, ids []primitive.ObjectID) ([]models.GroupElementYear, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"parent_id": bson.M{"$in": ids}})
}

// ListByYear returns every edge of the academic year.
func (s *Store) ListByYear(ctx context.Context, year int) ([]models.GroupElementYear, error) {
	return s.find(ctx, bson.M{"academic_year": year})
}

// ListByChildBranch returns the edges pointing at the year-version id.
func (s *Store) ListByChildBranch(ctx context.Context, id primitive.ObjectID) ([]models.GroupElementYear, error) {
	return s.find(ctx, bson.M{"child_branch_id": id})
}

// ListByChildBranches returns the edges pointing at any of ids.
func (s *Store) ListByChildBranches(ctx context.Context, ids []primitive.ObjectID) ([]models.GroupElementYear, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"child_branch_id": bson.M{"$in": ids}})
}

// ListByChildLeaves returns the edges pointing at any of the learning unit
// years ids.
func (s *Store) ListByChildLeaves(ctx context.Context, ids []primitive.ObjectID) ([]models.GroupElementYear, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"child_leaf_id": bson.M{"$in": ids}})
}

// CountByParent returns how many children parentID has.
func (s *Store) CountByParent(ctx context.Context, parentID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"parent_id": parentID})
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

// DeleteByChildBranch removes every edge pointing at the year-version id.
func (s *Store) DeleteByChildBranch(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"child_branch_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByParent removes every child edge of parentID.
func (s *Store) DeleteByParent(ctx context.Context, parentID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"parent_id": parentID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Sibling returns the edge of the same parent immediately before (dir < 0) or
// after (dir > 0) gey.
func (s *Store) Sibling(ctx context.Context, gey models.GroupElementYear, dir int) (models.GroupElementYear, error) {
	filter := bson.M{"parent_id": gey.ParentID}
	sort := 1
	if dir < 0 {
		filter["order"] = bson.M{"$lt": gey.Order}
		sort = -1
	} else {
		filter["order"] = bson.M{"$gt": gey.Order}
	}
	var sib models.GroupElementYear
	err := s.c.FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "order", Value: sort}})).Decode(&sib)
	if err != nil {
		return models.GroupElementYear{}, catalogerr.FromMongo(err)
	}
	return sib, nil
}

// SwapOrder exchanges the orders of a and b. Both must share a parent; run it
// inside a transaction so the parking slot is never observed.
func (s *Store) SwapOrder(ctx context.Context, a, b models.GroupElementYear) error {
	if a.ParentID != b.ParentID {
		return errors.New("swap order: elements have different parents")
	}
	now := time.Now().UTC()
	steps := []struct {
		id    primitive.ObjectID
		order int
	}{
		{a.ID, -1 - a.Order - b.Order},
		{b.ID, a.Order},
		{a.ID, b.Order},
	}
	for _, st := range steps {
		_, err := s.c.UpdateOne(ctx, bson.M{"_id": st.id}, bson.M{"$set": bson.M{"order": st.order, "changed_at": now}})
		if err != nil {
			if wafflemongo.IsDup(err) {
				return catalogerr.FromMongo(err)
			}
			return err
		}
	}
	return nil
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.GroupElementYear, error) {
	cur, err := s.c.Find(ctx, filter, byOrder)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.GroupElementYear
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
