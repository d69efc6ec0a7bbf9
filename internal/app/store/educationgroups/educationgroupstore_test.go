package educationgroupstore_test

import (
	"errors"
	"testing"

	educationgroupstore "github.com/dalemusser/catalog/internal/app/store/educationgroups"
	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"github.com/dalemusser/catalog/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_SetEndYear(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := educationgroupstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g, err := store.Create(ctx, models.EducationGroup{StartYear: 2015})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	end := 2020
	if err := store.SetEndYear(ctx, g.ID, &end); err != nil {
		t.Fatalf("SetEndYear failed: %v", err)
	}
	got, _ := store.GetByID(ctx, g.ID)
	if got.EndYear == nil || *got.EndYear != 2020 {
		t.Errorf("EndYear = %v, want 2020", got.EndYear)
	}
	if !got.EndsBefore(2021) || got.EndsBefore(2020) {
		t.Errorf("EndsBefore is inconsistent with an inclusive end year")
	}

	if err := store.SetEndYear(ctx, g.ID, nil); err != nil {
		t.Fatalf("clearing end year failed: %v", err)
	}
	got, _ = store.GetByID(ctx, g.ID)
	if got.EndYear != nil {
		t.Errorf("EndYear = %v, want nil", *got.EndYear)
	}

	if err := store.SetEndYear(ctx, primitive.NewObjectID(), &end); !errors.Is(err, catalogerr.ErrNotFound) {
		t.Errorf("unknown group: expected ErrNotFound, got %v", err)
	}

	byID, err := store.GetByIDs(ctx, []primitive.ObjectID{g.ID, primitive.NewObjectID()})
	if err != nil || len(byID) != 1 {
		t.Errorf("GetByIDs = %v, %v", byID, err)
	}
}
