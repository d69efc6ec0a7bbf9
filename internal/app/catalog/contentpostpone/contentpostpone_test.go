package contentpostpone_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/catalog/internal/app/catalog/academiccal"
	"github.com/dalemusser/catalog/internal/app/catalog/contentpostpone"
	"github.com/dalemusser/catalog/internal/app/catalog/postponement"
	geystore "github.com/dalemusser/catalog/internal/app/store/groupelementyears"
	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"github.com/dalemusser/catalog/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func start(ctx context.Context, db *mongo.Database, rootID primitive.ObjectID) (*contentpostpone.Content, error) {
	cal := academiccal.New(db, 6).WithClock(func() time.Time {
		return time.Date(2018, 10, 1, 0, 0, 0, 0, time.UTC)
	})
	return contentpostpone.New(ctx, db, zap.NewNop(), postponement.New(db, zap.NewNop(), cal), rootID)
}

func expectRefusal(t *testing.T, err error, msg string) {
	t.Helper()
	var npe *catalogerr.NotPostponeError
	if !errors.As(err, &npe) {
		t.Fatalf("expected NotPostponeError %q, got %v", msg, err)
	}
	if npe.Msg != msg {
		t.Errorf("message = %q, want %q", npe.Msg, msg)
	}
}

func TestPostpone_RebindsLeavesAndDuplicatesBranches(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	bachelor := fx.GroupType(ctx, models.CategoryTraining, models.TypeBachelor)
	group := fx.EducationGroup(ctx, 2018, nil)
	root := fx.EducationGroupYear(ctx, group, 2018, "DROI1BA", bachelor)
	next := fx.EducationGroupYear(ctx, group, 2019, "DROI1BA", bachelor)

	branch := fx.Group(ctx, "LDRO100T", 2018)
	withNext := fx.LearningUnitYear(ctx, "LDRO1001", 2018)
	withNextN1 := fx.LearningUnitYear(ctx, "LDRO1001", 2019)
	withoutNext := fx.LearningUnitYear(ctx, "LDRO1002", 2018)
	nested := fx.LearningUnitYear(ctx, "LDRO1003", 2018)

	toBranch := fx.Branch(ctx, root, branch)
	fx.Leaf(ctx, root, withNext)
	fx.Leaf(ctx, root, withoutNext)
	fx.Leaf(ctx, branch, nested)

	c, err := start(ctx, db, root.ID)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c.Next().ID != next.ID {
		t.Fatalf("Next() = %s, want %s", c.Next().ID.Hex(), next.ID.Hex())
	}

	res, err := c.Postpone(ctx)
	if err != nil {
		t.Fatalf("Postpone failed: %v", err)
	}
	if len(res.Edges) != 4 {
		t.Fatalf("expected 4 new edges, got %d", len(res.Edges))
	}
	if len(res.Branches) != 1 || res.Branches[0].AcademicYear != 2019 || res.Branches[0].Acronym != "LDRO100T" {
		t.Fatalf("expected one duplicated branch in 2019, got %+v", res.Branches)
	}
	newBranch := res.Branches[0]

	geys := geystore.New(db)
	under, err := geys.ListByParent(ctx, next.ID)
	if err != nil {
		t.Fatalf("ListByParent failed: %v", err)
	}
	if len(under) != 3 {
		t.Fatalf("expected 3 edges under the next root, got %d", len(under))
	}
	for _, e := range under {
		if e.AcademicYear != 2019 {
			t.Errorf("edge %s has year %d", e.ID.Hex(), e.AcademicYear)
		}
		if e.IsLeaf() == e.IsBranch() {
			t.Errorf("edge %s must have exactly one child", e.ID.Hex())
		}
	}
	if *under[0].ChildBranchID != newBranch.ID || under[0].Order != toBranch.Order {
		t.Errorf("first edge should point at the new branch with the same order")
	}
	if *under[1].ChildLeafID != withNextN1.ID {
		t.Errorf("leaf with a next year should be rebound")
	}
	if *under[2].ChildLeafID != withoutNext.ID {
		t.Errorf("leaf without a next year should be kept")
	}

	inBranch, err := geys.ListByParent(ctx, newBranch.ID)
	if err != nil {
		t.Fatalf("ListByParent failed: %v", err)
	}
	if len(inBranch) != 1 || *inBranch[0].ChildLeafID != nested.ID {
		t.Errorf("the new branch should receive the old branch content, got %+v", inBranch)
	}

	// Source edges are untouched.
	if n, _ := geys.CountByParent(ctx, root.ID); n != 3 {
		t.Errorf("source root lost edges: %d", n)
	}

	_, err = start(ctx, db, root.ID)
	expectRefusal(t, err, catalogerr.MsgContentAlreadyCopied)
}

func TestPostpone_ReusesExistingNextBranch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	bachelor := fx.GroupType(ctx, models.CategoryTraining, models.TypeBachelor)
	core := fx.GroupType(ctx, models.CategoryGroup, models.TypeCommonCore)
	rootGroup := fx.EducationGroup(ctx, 2018, nil)
	root := fx.EducationGroupYear(ctx, rootGroup, 2018, "DROI1BA", bachelor)
	next := fx.EducationGroupYear(ctx, rootGroup, 2019, "DROI1BA", bachelor)
	branchGroup := fx.EducationGroup(ctx, 2018, nil)
	branch := fx.EducationGroupYear(ctx, branchGroup, 2018, "LDRO100T", core)
	branchN1 := fx.EducationGroupYear(ctx, branchGroup, 2019, "LDRO100T", core)
	fx.Branch(ctx, root, branch)
	fx.Leaf(ctx, branch, fx.LearningUnitYear(ctx, "LDRO1001", 2018))

	c, err := start(ctx, db, root.ID)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	res, err := c.Postpone(ctx)
	if err != nil {
		t.Fatalf("Postpone failed: %v", err)
	}
	if len(res.Edges) != 1 || len(res.Branches) != 0 {
		t.Fatalf("expected one edge and no new branch, got %d edges and %d branches", len(res.Edges), len(res.Branches))
	}
	if *res.Edges[0].ChildBranchID != branchN1.ID || res.Edges[0].ParentID != next.ID {
		t.Errorf("edge should bind the existing next-year branch")
	}
}

func TestNew_Preconditions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	bachelor := fx.GroupType(ctx, models.CategoryTraining, models.TypeBachelor)
	luy := fx.LearningUnitYear(ctx, "LDRO1001", 2018)
	fx.AcademicYear(ctx, 2019)

	grp := fx.Group(ctx, "LDRO100T", 2018)
	_, err := start(ctx, db, grp.ID)
	expectRefusal(t, err, catalogerr.MsgNotATraining)

	ended := fx.EducationGroup(ctx, 2018, testutil.IntPtr(2018))
	endedRoot := fx.EducationGroupYear(ctx, ended, 2018, "HIST1BA", bachelor)
	fx.Leaf(ctx, endedRoot, luy)
	_, err = start(ctx, db, endedRoot.ID)
	expectRefusal(t, err, catalogerr.MsgEndDateTooSmall)

	emptyGroup := fx.EducationGroup(ctx, 2018, nil)
	empty := fx.EducationGroupYear(ctx, emptyGroup, 2018, "PHIL1BA", bachelor)
	fx.EducationGroupYear(ctx, emptyGroup, 2019, "PHIL1BA", bachelor)
	_, err = start(ctx, db, empty.ID)
	expectRefusal(t, err, catalogerr.MsgNoContent)

	lonely := fx.Training(ctx, "ECON1BA", 2018)
	fx.Leaf(ctx, lonely, luy)
	_, err = start(ctx, db, lonely.ID)
	expectRefusal(t, err, catalogerr.MsgRootMissingNextYear)

	_, err = start(ctx, db, primitive.NewObjectID())
	if !errors.Is(err, catalogerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound for an unknown root, got %v", err)
	}
}
