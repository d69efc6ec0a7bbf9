package validators_test

import (
	"testing"

	"github.com/dalemusser/catalog/internal/app/system/validators"
	"github.com/dalemusser/catalog/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func setup(t *testing.T) *mongo.Database {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	return db
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := make(map[string]bool)
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"education_group_years", "group_element_years", "prerequisites", "clipboards", "audit_events"} {
		if !have[want] {
			t.Errorf("expected collection %q to exist", want)
		}
	}
}

func TestGroupElementYearsValidator(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	c := db.Collection("group_element_years")

	tests := []struct {
		name    string
		doc     bson.M
		wantErr bool
	}{
		{"leaf only", bson.M{"parent_id": primitive.NewObjectID(), "child_leaf_id": primitive.NewObjectID(), "order": 0}, false},
		{"branch only", bson.M{"parent_id": primitive.NewObjectID(), "child_branch_id": primitive.NewObjectID(), "order": 0}, false},
		{"both children", bson.M{"parent_id": primitive.NewObjectID(), "child_leaf_id": primitive.NewObjectID(), "child_branch_id": primitive.NewObjectID(), "order": 0}, true},
		{"no child", bson.M{"parent_id": primitive.NewObjectID(), "order": 0}, true},
		{"unsorted block", bson.M{"parent_id": primitive.NewObjectID(), "child_leaf_id": primitive.NewObjectID(), "order": 0, "block": "21"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.InsertOne(ctx, tt.doc)
			if (err != nil) != tt.wantErr {
				t.Errorf("InsertOne err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEducationGroupYearsValidator_Acronym(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	doc := func(acronym string) bson.M {
		return bson.M{
			"education_group_id":      primitive.NewObjectID(),
			"academic_year_id":        primitive.NewObjectID(),
			"academic_year":           2018,
			"acronym":                 acronym,
			"title":                   "Bachelier",
			"education_group_type_id": primitive.NewObjectID(),
		}
	}
	if _, err := db.Collection("education_group_years").InsertOne(ctx, doc("DROI1BA")); err != nil {
		t.Errorf("valid acronym rejected: %v", err)
	}
	if _, err := db.Collection("education_group_years").InsertOne(ctx, doc("common-bacs")); err != nil {
		t.Errorf("common acronym rejected: %v", err)
	}
	if _, err := db.Collection("education_group_years").InsertOne(ctx, doc("d1")); err == nil {
		t.Error("expected lowercase acronym to be rejected")
	}
}
