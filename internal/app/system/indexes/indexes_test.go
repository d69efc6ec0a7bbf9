package indexes_test

import (
	"testing"

	"github.com/dalemusser/catalog/internal/app/system/indexes"
	"github.com/dalemusser/catalog/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func indexNames(t *testing.T, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var ix bson.M
		if err := cur.Decode(&ix); err != nil {
			continue
		}
		if name, ok := ix["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesEdgeIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names := indexNames(t, db, "group_element_years")
	for _, want := range []string{"uniq_gey_parent_order", "uniq_gey_parent_branch", "uniq_gey_parent_leaf", "idx_gey_year"} {
		if !names[want] {
			t.Errorf("missing index %s", want)
		}
	}
}

func TestEnsureAll_SiblingOrderIsUnique(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	parent := primitive.NewObjectID()
	c := db.Collection("group_element_years")
	if _, err := c.InsertOne(ctx, bson.M{"parent_id": parent, "child_leaf_id": primitive.NewObjectID(), "order": 0}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	_, err := c.InsertOne(ctx, bson.M{"parent_id": parent, "child_leaf_id": primitive.NewObjectID(), "order": 0})
	if !mongo.IsDuplicateKeyError(err) {
		t.Errorf("expected duplicate key error, got %v", err)
	}
}

func TestEnsureAll_RenamesMismatchedIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := db.Collection("persons").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}},
	})
	if err != nil {
		t.Fatalf("seed index failed: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	if !indexNames(t, db, "persons")["uniq_persons_user"] {
		t.Error("expected uniq_persons_user after reconciliation")
	}
}
