package postponement_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/catalog/internal/app/catalog/academiccal"
	"github.com/dalemusser/catalog/internal/app/catalog/postponement"
	egystore "github.com/dalemusser/catalog/internal/app/store/educationgroupyears"
	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"github.com/dalemusser/catalog/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// The clock sits in academic year 2018, so the horizon is 2024 and the
// penultimate year 2023.
func newPostponer(t *testing.T, db *mongo.Database) *postponement.Postponer {
	t.Helper()
	cal := academiccal.New(db, 6).WithClock(func() time.Time {
		return time.Date(2019, 2, 1, 0, 0, 0, 0, time.UTC)
	})
	return postponement.New(db, zap.NewNop(), cal)
}

type recordingSink struct {
	before []postponement.Result
	after  []postponement.Result
}

func (s *recordingSink) SendBefore(_ context.Context, r postponement.Result) {
	s.before = append(s.before, r)
}

func (s *recordingSink) SendAfter(_ context.Context, r postponement.Result) {
	s.after = append(s.after, r)
}

func TestRunner_PartitionsAndExtends(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.AcademicYears(ctx, 2017, 2024)

	bachelor := fx.GroupType(ctx, models.CategoryTraining, models.TypeBachelor)
	core := fx.GroupType(ctx, models.CategoryGroup, models.TypeCommonCore)

	toExtend := fx.EducationGroupYear(ctx, fx.EducationGroup(ctx, 2018, nil), 2023, "DROI1BA", bachelor)

	alreadyGroup := fx.EducationGroup(ctx, 2018, nil)
	fx.EducationGroupYear(ctx, alreadyGroup, 2023, "ECON1BA", bachelor)
	fx.EducationGroupYear(ctx, alreadyGroup, 2024, "ECON1BA", bachelor)

	fx.EducationGroupYear(ctx, fx.EducationGroup(ctx, 2018, testutil.IntPtr(2023)), 2023, "HIST1BA", bachelor)
	fx.EducationGroupYear(ctx, fx.EducationGroup(ctx, 2018, nil), 2023, "LDROI100T", core)

	broken := fx.EducationGroupYear(ctx, fx.EducationGroup(ctx, 2018, nil), 2023, "PHIL1BA", bachelor)
	// A constraint type without bounds cannot be saved again.
	if _, err := db.Collection("education_group_years").UpdateOne(ctx,
		bson.M{"_id": broken.ID}, bson.M{"$set": bson.M{"constraint_type": models.ConstraintCredits}}); err != nil {
		t.Fatalf("corrupt fixture: %v", err)
	}

	sink := &recordingSink{}
	runner := postponement.NewRunner(newPostponer(t, db), sink)

	res, err := runner.Run(ctx, egystore.Filter{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Target.Year != 2024 {
		t.Errorf("target year = %d, want 2024", res.Target.Year)
	}
	if len(res.ToDuplicate) != 2 || len(res.AlreadyDuplicated) != 1 || len(res.NotDuplicated) != 1 {
		t.Errorf("partition = %d/%d/%d, want 2/1/1",
			len(res.ToDuplicate), len(res.AlreadyDuplicated), len(res.NotDuplicated))
	}
	if len(res.Created) != 1 || res.Created[0].EducationGroupID != toExtend.EducationGroupID {
		t.Fatalf("created = %+v", res.Created)
	}
	if len(res.Errors) != 1 || res.Errors[0].Source.ID != broken.ID {
		t.Fatalf("errors = %+v", res.Errors)
	}
	var ve *catalogerr.ValidationError
	if !errors.As(res.Errors[0].Err, &ve) {
		t.Errorf("expected a validation error, got %v", res.Errors[0].Err)
	}
	if got := res.Message(); got != "1 education group(s) extended and 1 error(s)" {
		t.Errorf("Message = %q", got)
	}
	if labels := res.ErrorLabels(); len(labels) != 1 || labels[0] != "PHIL1BA - 2023-24" {
		t.Errorf("ErrorLabels = %v", labels)
	}
	if len(sink.before) != 1 || len(sink.after) != 1 {
		t.Fatalf("sink calls = %d/%d, want 1/1", len(sink.before), len(sink.after))
	}
	if len(sink.before[0].Created) != 0 || len(sink.after[0].Created) != 1 {
		t.Errorf("sink received unexpected results")
	}

	created := res.Created[0]
	if created.Acronym != "DROI1BA" || created.AcademicYear != 2024 || created.Title != toExtend.Title {
		t.Errorf("postponed copy = %+v", created)
	}

	// Running again is idempotent: the extended group is now already there.
	again, err := runner.Run(ctx, egystore.Filter{})
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if len(again.Created) != 0 || len(again.AlreadyDuplicated) != 2 {
		t.Errorf("second run: created %d, already %d", len(again.Created), len(again.AlreadyDuplicated))
	}
}

func TestRunner_StopsOnCancel(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.AcademicYears(ctx, 2017, 2024)
	bachelor := fx.GroupType(ctx, models.CategoryTraining, models.TypeBachelor)
	fx.EducationGroupYear(ctx, fx.EducationGroup(ctx, 2018, nil), 2023, "DROI1BA", bachelor)

	runCtx, stop := context.WithCancel(ctx)
	sink := &cancellingSink{cancel: stop}
	_, err := postponement.NewRunner(newPostponer(t, db), sink).Run(runCtx, egystore.Filter{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

type cancellingSink struct{ cancel context.CancelFunc }

func (s *cancellingSink) SendBefore(context.Context, postponement.Result) { s.cancel() }
func (s *cancellingSink) SendAfter(context.Context, postponement.Result)  {}

func TestDuplicate_ConsistencyError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	bachelor := fx.GroupType(ctx, models.CategoryTraining, models.TypeBachelor)
	g := fx.EducationGroup(ctx, 2018, nil)
	src := fx.EducationGroupYear(ctx, g, 2018, "DROI1BA", bachelor)
	next := fx.EducationGroupYear(ctx, g, 2019, "DROI1BA", bachelor)
	y19 := fx.AcademicYear(ctx, 2019)
	p := newPostponer(t, db)

	initial := src
	edited := src
	edited.Title = "Bachelier en droit"

	// Untouched target: overwritten.
	got, created, err := p.Duplicate(ctx, src, y19, &edited, &initial)
	if err != nil || created {
		t.Fatalf("Duplicate = created %v err %v", created, err)
	}
	if got.ID != next.ID || got.Title != "Bachelier en droit" {
		t.Errorf("target not updated: %+v", got)
	}

	// Target now differs from the snapshot on title.
	_, _, err = p.Duplicate(ctx, src, y19, &edited, &initial)
	var ce *catalogerr.ConsistencyError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConsistencyError, got %v", err)
	}
	if len(ce.Differences) != 1 || ce.Differences[0] != "title" {
		t.Errorf("Differences = %v", ce.Differences)
	}
	if w := ce.Warnings(); len(w) != 1 || w[0] != "Consistency error in 2019-20 : title has been already modified." {
		t.Errorf("Warnings = %v", w)
	}
}

func TestComputeEndYear(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.AcademicYears(ctx, 2017, 2026)
	bachelor := fx.GroupType(ctx, models.CategoryTraining, models.TypeBachelor)
	p := newPostponer(t, db)

	open := fx.EducationGroup(ctx, 2018, nil)
	fx.EducationGroupYear(ctx, open, 2018, "DROI1BA", bachelor)

	ending := fx.EducationGroup(ctx, 2018, testutil.IntPtr(2020))
	fx.EducationGroupYear(ctx, ending, 2018, "ECON1BA", bachelor)

	// An existing version past the horizon wins over it.
	late := fx.EducationGroup(ctx, 2018, testutil.IntPtr(2020))
	fx.EducationGroupYear(ctx, late, 2026, "HIST1BA", bachelor)

	tests := []struct {
		name  string
		group models.EducationGroup
		want  int
	}{
		{"no end year", open, 2024},
		{"end year caps", ending, 2020},
		{"latest stored version wins", late, 2026},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ComputeEndYear(ctx, tt.group)
			if err != nil {
				t.Fatalf("ComputeEndYear failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ComputeEndYear = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSave_PropagatesAndWarns(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.AcademicYears(ctx, 2017, 2024)

	bachelor := fx.GroupType(ctx, models.CategoryTraining, models.TypeBachelor)
	g := fx.EducationGroup(ctx, 2018, testutil.IntPtr(2021))
	y18 := fx.EducationGroupYear(ctx, g, 2018, "DROI1BA", bachelor)
	fx.EducationGroupYear(ctx, g, 2019, "DROI1BA", bachelor)
	y20 := fx.EducationGroupYear(ctx, g, 2020, "DROI1BA", bachelor)

	// 2020 was edited on its own.
	if _, err := db.Collection("education_group_years").UpdateOne(ctx,
		bson.M{"_id": y20.ID}, bson.M{"$set": bson.M{"title": "Modified"}}); err != nil {
		t.Fatalf("edit 2020: %v", err)
	}

	edited := y18
	edited.Title = "Bachelier en droit"
	_, out, err := newPostponer(t, db).Save(ctx, edited)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// 2019 updated, 2020 skipped, 2021 created.
	if len(out.Postponed) != 2 {
		t.Fatalf("postponed %d versions, want 2", len(out.Postponed))
	}
	if out.Postponed[0].AcademicYear != 2019 || out.Postponed[1].AcademicYear != 2021 {
		t.Errorf("postponed years = %d, %d", out.Postponed[0].AcademicYear, out.Postponed[1].AcademicYear)
	}
	for _, egy := range out.Postponed {
		if egy.Title != "Bachelier en droit" {
			t.Errorf("%d title = %q", egy.AcademicYear, egy.Title)
		}
	}
	if len(out.Warnings) != 1 || out.Warnings[0] != "Consistency error in 2020-21 : title has been already modified." {
		t.Errorf("Warnings = %v", out.Warnings)
	}

	store := egystore.New(db)
	kept, _ := store.GetByID(ctx, y20.ID)
	if kept.Title != "Modified" {
		t.Errorf("2020 was overwritten: %q", kept.Title)
	}
}
