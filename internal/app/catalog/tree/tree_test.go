package tree_test

import (
	"errors"
	"testing"

	"github.com/dalemusser/catalog/internal/app/catalog/tree"
	"github.com/dalemusser/catalog/internal/domain/models"
	"github.com/dalemusser/catalog/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestReader_Load(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	root := fx.Training(ctx, "DROI1BA", 2018)
	core := fx.Group(ctx, "LDROI100T", 2018)
	opt := fx.Group(ctx, "LDROI101G", 2018)
	l1 := fx.LearningUnitYear(ctx, "LDRO1001", 2018)
	l2 := fx.LearningUnitYear(ctx, "LDRO1002", 2018)
	l3 := fx.LearningUnitYear(ctx, "LDRO1003", 2018)

	fx.Branch(ctx, root, core)
	fx.Leaf(ctx, root, l1)
	fx.Leaf(ctx, core, l2)
	fx.Branch(ctx, core, opt)
	fx.Leaf(ctx, opt, l3)
	fx.Prerequisite(ctx, root, l2, "LDRO1001")
	fx.Prerequisite(ctx, root, l3, "")

	// Unrelated edge in the same year must not leak into the tree.
	other := fx.Training(ctx, "ECON1BA", 2018)
	fx.Leaf(ctx, other, fx.LearningUnitYear(ctx, "LECO1001", 2018))

	tr, err := tree.NewReader(db).Load(ctx, root.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	rootEdges := tr.ChildrenOf(root.ID)
	if len(rootEdges) != 2 {
		t.Fatalf("expected 2 root edges, got %d", len(rootEdges))
	}
	if !rootEdges[0].IsBranch() || *rootEdges[0].ChildBranchID != core.ID {
		t.Errorf("first root edge should be the common core")
	}
	if !rootEdges[1].IsLeaf() || *rootEdges[1].ChildLeafID != l1.ID {
		t.Errorf("second root edge should be %s", l1.Acronym)
	}
	if len(tr.Branches) != 2 {
		t.Errorf("expected 2 branches, got %d", len(tr.Branches))
	}
	if len(tr.Leaves) != 3 {
		t.Errorf("expected 3 leaves, got %d", len(tr.Leaves))
	}
	if len(tr.Edges()) != 5 {
		t.Errorf("expected 5 edges, got %d", len(tr.Edges()))
	}

	for _, e := range tr.Edges() {
		if !e.IsLeaf() {
			continue
		}
		want := *e.ChildLeafID == l2.ID
		if e.HasPrerequisites != want {
			t.Errorf("leaf %s: HasPrerequisites = %v, want %v", tr.Leaves[*e.ChildLeafID].Acronym, e.HasPrerequisites, want)
		}
	}

	acronyms := tr.LeafAcronyms()
	if acronyms["LECO1001"] || !acronyms["LDRO1003"] {
		t.Errorf("unexpected leaf acronyms: %v", acronyms)
	}
}

func TestReader_AscendantsOfBranch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.Training(ctx, "DROI1BA", 2018)
	b := fx.Training(ctx, "DROI2M", 2018)
	mid := fx.Group(ctx, "LDROI100T", 2018)
	low := fx.Group(ctx, "LDROI101G", 2018)
	fx.Branch(ctx, a, mid)
	fx.Branch(ctx, b, mid)
	fx.Branch(ctx, mid, low)
	fx.Branch(ctx, a, low)

	got, err := tree.NewReader(db).AscendantsOfBranch(ctx, low.ID)
	if err != nil {
		t.Fatalf("AscendantsOfBranch failed: %v", err)
	}
	want := map[primitive.ObjectID]bool{a.ID: true, b.ID: true, mid.ID: true}
	if len(got) != len(want) {
		t.Fatalf("expected %d ascendants, got %d", len(want), len(got))
	}
	for _, id := range got {
		if !want[id] {
			t.Errorf("unexpected ascendant %s", id.Hex())
		}
	}

	none, err := tree.NewReader(db).AscendantsOfBranch(ctx, a.ID)
	if err != nil {
		t.Fatalf("AscendantsOfBranch failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("a root has no ascendants, got %d", len(none))
	}
}

func TestReader_FindLearningUnitFormations(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	bachelor := fx.Training(ctx, "DROI1BA", 2018)
	minorType := fx.GroupType(ctx, models.CategoryMiniTraining, models.TypeOpenMinor)
	optionType := fx.GroupType(ctx, models.CategoryMiniTraining, models.TypeOption)
	minor := fx.EducationGroupYear(ctx, fx.EducationGroup(ctx, 2018, nil), 2018, "MINDROI", minorType)
	option := fx.EducationGroupYear(ctx, fx.EducationGroup(ctx, 2018, nil), 2018, "OPTDROI", optionType)
	core := fx.Group(ctx, "LDROI100T", 2018)
	orphan := fx.Group(ctx, "LORPH100T", 2018)

	// bachelor -> core -> minor -> l1 ; bachelor -> option -> l1 ; core -> l2
	fx.Branch(ctx, bachelor, core)
	fx.Branch(ctx, core, minor)
	fx.Branch(ctx, bachelor, option)
	l1 := fx.LearningUnitYear(ctx, "LDRO1001", 2018)
	l2 := fx.LearningUnitYear(ctx, "LDRO1002", 2018)
	lone := fx.LearningUnitYear(ctx, "LDRO1009", 2018)
	fx.Leaf(ctx, minor, l1)
	fx.Leaf(ctx, option, l1)
	fx.Leaf(ctx, core, l2)

	r := tree.NewReader(db)
	got, err := r.FindLearningUnitFormations(ctx, []tree.Object{
		tree.LeafObject(l1), tree.LeafObject(l2), tree.LeafObject(lone),
	})
	if err != nil {
		t.Fatalf("FindLearningUnitFormations failed: %v", err)
	}

	// The minor stops the walk; the option does not.
	assertIDs(t, "l1", got[l1.ID], minor.ID, bachelor.ID)
	assertIDs(t, "l2", got[l2.ID], bachelor.ID)
	assertIDs(t, "lone", got[lone.ID])

	branches, err := r.FindLearningUnitFormations(ctx, []tree.Object{tree.BranchObject(core), tree.BranchObject(orphan)})
	if err != nil {
		t.Fatalf("FindLearningUnitFormations failed: %v", err)
	}
	assertIDs(t, "core", branches[core.ID], bachelor.ID)
	assertIDs(t, "orphan", branches[orphan.ID], orphan.ID)

	empty, err := r.FindLearningUnitFormations(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty input: got %v, %v", empty, err)
	}
}

func TestReader_FindLearningUnitFormations_RejectsMixedInput(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	// Input is rejected before any query, so the client never dials.
	client, err := mongo.Connect(ctx, options.Client().ApplyURI("mongodb://127.0.0.1:1"))
	if err != nil {
		t.Fatalf("mongo.Connect: %v", err)
	}
	defer client.Disconnect(ctx)
	r := tree.NewReader(client.Database("unused"))

	luy := models.LearningUnitYear{ID: primitive.NewObjectID(), AcademicYear: 2018}
	egy := models.EducationGroupYear{ID: primitive.NewObjectID(), AcademicYear: 2018}
	_, err = r.FindLearningUnitFormations(ctx, []tree.Object{tree.LeafObject(luy), tree.BranchObject(egy)})
	if !errors.Is(err, tree.ErrMixedObjects) {
		t.Errorf("expected ErrMixedObjects, got %v", err)
	}

	other := models.LearningUnitYear{ID: primitive.NewObjectID(), AcademicYear: 2019}
	_, err = r.FindLearningUnitFormations(ctx, []tree.Object{tree.LeafObject(luy), tree.LeafObject(other)})
	if !errors.Is(err, tree.ErrMixedAcademicYears) {
		t.Errorf("expected ErrMixedAcademicYears, got %v", err)
	}
}

func assertIDs(t *testing.T, label string, got []primitive.ObjectID, want ...primitive.ObjectID) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("%s: expected %d roots, got %d", label, len(want), len(got))
		return
	}
	set := make(map[primitive.ObjectID]bool, len(got))
	for _, id := range got {
		set[id] = true
	}
	for _, id := range want {
		if !set[id] {
			t.Errorf("%s: missing root %s", label, id.Hex())
		}
	}
}
