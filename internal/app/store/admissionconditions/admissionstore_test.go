package admissionstore_test

import (
	"errors"
	"testing"

	admissionstore "github.com/dalemusser/catalog/internal/app/store/admissionconditions"
	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"github.com/dalemusser/catalog/internal/testutil"
)

func TestStore_UpsertLineByExternalID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := admissionstore.New(db)
	egy := fx.Training(ctx, "DROI2M", 2018)
	ac, err := store.GetOrCreate(ctx, egy.ID)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	first, err := store.UpsertLineByExternalID(ctx, ac.ID, models.SectionUniversityBachelors, "ext-1",
		func(l *models.AdmissionConditionLine) { l.Diploma = "Bachelier en droit" })
	if err != nil {
		t.Fatalf("UpsertLineByExternalID failed: %v", err)
	}
	second, err := store.UpsertLineByExternalID(ctx, ac.ID, models.SectionUniversityBachelors, "ext-2",
		func(l *models.AdmissionConditionLine) { l.Diploma = "Bachelier en criminologie" })
	if err != nil {
		t.Fatalf("UpsertLineByExternalID failed: %v", err)
	}
	if first.Order != 0 || second.Order != 1 {
		t.Errorf("orders = %d, %d; want 0, 1", first.Order, second.Order)
	}

	updated, err := store.UpsertLineByExternalID(ctx, ac.ID, models.SectionUniversityBachelors, "ext-1",
		func(l *models.AdmissionConditionLine) { l.DiplomaEn = "Bachelor of laws" })
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.ID != first.ID || updated.Diploma != "Bachelier en droit" || updated.DiplomaEn != "Bachelor of laws" {
		t.Errorf("unexpected updated line: %+v", updated)
	}

	lines, _ := store.ListLines(ctx, ac.ID)
	if len(lines) != 2 {
		t.Errorf("expected 2 lines, got %d", len(lines))
	}
}

func TestStore_Duplicate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := admissionstore.New(db)
	src := fx.Training(ctx, "DROI2M", 2018)
	dst := fx.Training(ctx, "DROI2M", 2019)

	ac, _ := store.GetOrCreate(ctx, src.ID)
	for _, f := range models.AdmissionConditionFields {
		ac.SetText(f, models.LangFR, "fr "+f)
		ac.SetText(f, models.LangEN, "en "+f)
	}
	if err := store.Save(ctx, ac); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	_, _ = store.UpsertLineByExternalID(ctx, ac.ID, models.SectionUniversityBachelors, "ext-1",
		func(l *models.AdmissionConditionLine) { l.Diploma = "Bachelier" })

	if err := store.Duplicate(ctx, src.ID, dst.ID); err != nil {
		t.Fatalf("Duplicate failed: %v", err)
	}
	// Running twice keeps one line per slot.
	if err := store.Duplicate(ctx, src.ID, dst.ID); err != nil {
		t.Fatalf("second Duplicate failed: %v", err)
	}

	got, err := store.GetByEGY(ctx, dst.ID)
	if err != nil {
		t.Fatalf("GetByEGY failed: %v", err)
	}
	for _, f := range models.AdmissionConditionFields {
		if got.Text(f, models.LangFR) != "fr "+f || got.Text(f, models.LangEN) != "en "+f {
			t.Errorf("field %s not duplicated", f)
		}
	}
	lines, _ := store.ListLines(ctx, got.ID)
	if len(lines) != 1 || lines[0].Diploma != "Bachelier" {
		t.Errorf("unexpected duplicated lines: %+v", lines)
	}

	if err := store.Duplicate(ctx, fx.Training(ctx, "ECON1BA", 2018).ID, dst.ID); !errors.Is(err, catalogerr.ErrNotFound) {
		t.Errorf("source without condition: expected ErrNotFound, got %v", err)
	}
}

func TestStore_Duplicate_ReplacesTargetLines(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := admissionstore.New(db)
	src := fx.Training(ctx, "DROI2M", 2018)
	dst := fx.Training(ctx, "DROI2M", 2019)

	srcAC, _ := store.GetOrCreate(ctx, src.ID)
	_, _ = store.UpsertLineByExternalID(ctx, srcAC.ID, models.SectionUniversityBachelors, "ext-1",
		func(l *models.AdmissionConditionLine) { l.Diploma = "Bachelier" })

	// The target already holds more lines than the source, in two sections.
	dstAC, _ := store.GetOrCreate(ctx, dst.ID)
	for _, ext := range []string{"old-1", "old-2", "old-3"} {
		_, _ = store.UpsertLineByExternalID(ctx, dstAC.ID, models.SectionUniversityBachelors, ext,
			func(l *models.AdmissionConditionLine) { l.Diploma = "stale" })
	}
	_, _ = store.UpsertLineByExternalID(ctx, dstAC.ID, models.SectionNonUniversityBachelors, "old-4",
		func(l *models.AdmissionConditionLine) { l.Diploma = "stale" })

	if err := store.Duplicate(ctx, src.ID, dst.ID); err != nil {
		t.Fatalf("Duplicate failed: %v", err)
	}
	lines, err := store.ListLines(ctx, dstAC.ID)
	if err != nil {
		t.Fatalf("ListLines failed: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected exactly the source line, got %+v", lines)
	}
	if lines[0].Diploma != "Bachelier" || lines[0].ExternalID != "ext-1" || lines[0].Order != 0 {
		t.Errorf("unexpected line: %+v", lines[0])
	}
}

func TestStore_Save_RejectsUnknownField(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := admissionstore.New(db)
	egy := fx.Training(ctx, "DROI2M", 2018)
	ac, _ := store.GetOrCreate(ctx, egy.ID)
	ac.SetText("free", models.LangFR, "ok")
	ac.SetText("ca_maitrise_fr", models.LangFR, "not a field")

	err := store.Save(ctx, ac)
	var ve *catalogerr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := ve.Fields["text_ca_maitrise_fr"]; !ok {
		t.Errorf("fields = %v", ve.Fields)
	}

	got, _ := store.GetByEGY(ctx, egy.ID)
	if len(got.Texts) != 0 {
		t.Errorf("nothing should be stored, got %v", got.Texts)
	}
}

func TestStore_DeleteByEGY(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := admissionstore.New(db)
	egy := fx.Training(ctx, "DROI2M", 2018)
	ac, _ := store.GetOrCreate(ctx, egy.ID)
	_, _ = store.UpsertLineByExternalID(ctx, ac.ID, models.SectionUniversityBachelors, "ext-1",
		func(l *models.AdmissionConditionLine) {})

	if err := store.DeleteByEGY(ctx, egy.ID); err != nil {
		t.Fatalf("DeleteByEGY failed: %v", err)
	}
	if _, err := store.GetByEGY(ctx, egy.ID); !errors.Is(err, catalogerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteByEGY(ctx, egy.ID); err != nil {
		t.Errorf("deleting twice should be a no-op, got %v", err)
	}
}
