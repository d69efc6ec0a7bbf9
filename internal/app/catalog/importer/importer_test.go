package importer_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/dalemusser/catalog/internal/app/catalog/importer"
	admissionstore "github.com/dalemusser/catalog/internal/app/store/admissionconditions"
	egystore "github.com/dalemusser/catalog/internal/app/store/educationgroupyears"
	validationrulestore "github.com/dalemusser/catalog/internal/app/store/validationrules"
	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"github.com/dalemusser/catalog/internal/testutil"
	"go.uber.org/zap"
)

const admissionExport = `[
  {
    "year": 2018,
    "acronym": "bacs",
    "info": {
      "alert_message": {"text-common": "Read carefully"},
      "ca_bacs_cond_generales": {"text-common": "<p>General</p><script>x()</script>"}
    }
  },
  {
    "year": 2018,
    "acronym": "droi2m",
    "info": {
      "diplomas": [
        {"type": "table", "title": "university_bachelors", "external_id": "ext-1",
         "diploma": "  Bachelor in law \n  UCL ", "conditions": null, "access": "direct", "remarks": "none"},
        {"type": "text", "section": "non_university_bachelors", "text": "Ask the faculty"}
      ],
      "texts": {
        "introduction": {"text": "Welcome"},
        "personalized_access": null
      }
    }
  },
  {
    "year": 2018,
    "acronym": "UNKNOWN2M",
    "info": {}
  }
]`

func TestImportAdmission(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	common := fx.Training(ctx, "common-bacs", 2018)
	master := fx.Training(ctx, "DROI2M", 2018)

	im := importer.New(db, zap.NewNop())
	rep, err := im.ImportAdmission(ctx, strings.NewReader(admissionExport), models.LangFR)
	if err != nil {
		t.Fatalf("ImportAdmission failed: %v", err)
	}
	if rep.Conditions != 2 || rep.Lines != 1 {
		t.Errorf("report = %+v", rep)
	}
	if len(rep.UnknownAcronyms) != 1 || rep.UnknownAcronyms[0] != "UNKNOWN2M" {
		t.Errorf("unknown acronyms = %v", rep.UnknownAcronyms)
	}

	store := admissionstore.New(db)
	bacs, err := store.GetByEGY(ctx, common.ID)
	if err != nil {
		t.Fatalf("GetByEGY(common): %v", err)
	}
	if got := bacs.Text("alert_message", models.LangFR); got != "<p>Read carefully</p>" {
		t.Errorf("alert_message = %q", got)
	}
	if unknown := bacs.UnknownTextKeys(); len(unknown) != 0 {
		t.Errorf("labels without field were stored: %v", unknown)
	}

	ac, err := store.GetByEGY(ctx, master.ID)
	if err != nil {
		t.Fatalf("GetByEGY(master): %v", err)
	}
	if got := ac.Text("free", models.LangFR); got != "<p>Welcome</p>" {
		t.Errorf("free = %q", got)
	}
	if got := ac.Text("non_university_bachelors", models.LangFR); got != "<p>Ask the faculty</p>" {
		t.Errorf("non_university_bachelors = %q", got)
	}
	lines, err := store.ListLines(ctx, ac.ID)
	if err != nil {
		t.Fatalf("ListLines: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].Diploma != "Bachelor in law\nUCL" || lines[0].Access != "direct" || lines[0].Conditions != "" {
		t.Errorf("line = %+v", lines[0])
	}

	// Importing the English export of the same line updates it in place.
	en := `[{"year": 2018, "acronym": "DROI2M", "info": {"diplomas": [
	  {"type": "table", "title": "university_bachelors", "external_id": "ext-1",
	   "diploma": "Law bachelor", "conditions": "None", "access": "direct", "remarks": ""}]}}]`
	if _, err := im.ImportAdmission(ctx, strings.NewReader(en), models.LangEN); err != nil {
		t.Fatalf("ImportAdmission(en) failed: %v", err)
	}
	lines, _ = store.ListLines(ctx, ac.ID)
	if len(lines) != 1 || lines[0].DiplomaEn != "Law bachelor" || lines[0].Diploma != "Bachelor in law\nUCL" {
		t.Errorf("after english import lines = %+v", lines)
	}
}

func TestImportAdmission_CreatesCommonBachelor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.AcademicYear(ctx, 2018)
	payload := `[{"year": 2018, "acronym": "bacs", "info": {
	  "alert_message": {"text-common": "Read carefully"},
	  "ca_bacs_examen_langue": {"text-common": "Language exam"}}}]`

	im := importer.New(db, zap.NewNop())
	rep, err := im.ImportAdmission(ctx, strings.NewReader(payload), models.LangFR)
	if err != nil {
		t.Fatalf("ImportAdmission failed: %v", err)
	}
	if rep.Conditions != 1 {
		t.Errorf("report = %+v", rep)
	}

	egy, err := egystore.New(db).FindByAcronym(ctx, 2018, "common-bacs")
	if err != nil {
		t.Fatalf("common-bacs was not created: %v", err)
	}
	if egy.Title != "common-bacs" || egy.TitleEnglish != "common-bacs" {
		t.Errorf("titles = %q / %q", egy.Title, egy.TitleEnglish)
	}
	if egy.Category != models.CategoryTraining || egy.TypeName != models.TypeBachelor {
		t.Errorf("type = %s/%s", egy.Category, egy.TypeName)
	}

	store := admissionstore.New(db)
	ac, err := store.GetByEGY(ctx, egy.ID)
	if err != nil {
		t.Fatalf("GetByEGY: %v", err)
	}
	if got := ac.Text("alert_message", models.LangFR); got != "<p>Read carefully</p>" {
		t.Errorf("alert_message = %q", got)
	}
	if unknown := ac.UnknownTextKeys(); len(unknown) != 0 {
		t.Errorf("labels without field were stored: %v", unknown)
	}

	// A second import reuses the version created by the first one.
	if _, err := im.ImportAdmission(ctx, strings.NewReader(payload), models.LangEN); err != nil {
		t.Fatalf("second ImportAdmission failed: %v", err)
	}
	n, err := db.Collection("education_group_years").CountDocuments(ctx, map[string]any{"acronym": "common-bacs"})
	if err != nil || n != 1 {
		t.Errorf("common-bacs versions = %d (%v), want 1", n, err)
	}
}

func TestImportAdmission_CommonBachelorNeedsAcademicYear(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	payload := `[{"year": 2030, "acronym": "bacs", "info": {"alert_message": {"text-common": "x"}}}]`
	_, err := importer.New(db, zap.NewNop()).ImportAdmission(ctx, strings.NewReader(payload), models.LangFR)
	if !errors.Is(err, catalogerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a missing academic year, got %v", err)
	}
}

func TestImportAdmission_UnknownTextKeyWithoutContent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.Training(ctx, "DROI2M", 2018)
	for _, texts := range []string{`{"events": null}`, `{"events": {"text": ""}}`} {
		payload := `[{"year": 2018, "acronym": "DROI2M", "info": {"texts": ` + texts + `}}]`
		_, err := importer.New(db, zap.NewNop()).ImportAdmission(ctx, strings.NewReader(payload), models.LangFR)
		if !errors.Is(err, importer.ErrUnhandledKey) {
			t.Errorf("%s: expected ErrUnhandledKey, got %v", texts, err)
		}
	}
}

func TestImportAdmission_UnhandledKeyAborts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.Training(ctx, "DROI2M", 2018)
	payload := `[{"year": 2018, "acronym": "DROI2M", "info": {"texts": {"events": {"text": "x"}}}}]`

	_, err := importer.New(db, zap.NewNop()).ImportAdmission(ctx, strings.NewReader(payload), models.LangFR)
	if !errors.Is(err, importer.ErrUnhandledKey) {
		t.Fatalf("expected ErrUnhandledKey, got %v", err)
	}
}

func TestImportAdmission_RejectsLanguage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := importer.New(db, zap.NewNop()).ImportAdmission(ctx, strings.NewReader("[]"), "nl")
	if !errors.Is(err, importer.ErrUnsupportedLanguage) {
		t.Fatalf("expected ErrUnsupportedLanguage, got %v", err)
	}
}

func TestImportCommon(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	master := fx.Training(ctx, "common-2m", 2018)
	cert := fx.Training(ctx, "common-ce", 2018)

	payload := `{"year": 2018, "2m.introduction": "Masters", "2m.alert_message": "Mind the date",
	  "9ce.alert_message": "Certificate", "9ce.ca_maitrise_fr": "French B2"}`
	rep, err := importer.New(db, zap.NewNop()).ImportCommon(ctx, strings.NewReader(payload), models.LangEN)
	if err != nil {
		t.Fatalf("ImportCommon failed: %v", err)
	}
	if rep.Conditions != 2 {
		t.Errorf("conditions = %d, want 2", rep.Conditions)
	}

	store := admissionstore.New(db)
	ac, err := store.GetByEGY(ctx, master.ID)
	if err != nil {
		t.Fatalf("GetByEGY: %v", err)
	}
	if got := ac.Text("standard", models.LangEN); got != "<p>Masters</p>" {
		t.Errorf("standard = %q", got)
	}
	ce, err := store.GetByEGY(ctx, cert.ID)
	if err != nil {
		t.Fatalf("GetByEGY(ce): %v", err)
	}
	if got := ce.Text("alert_message", models.LangEN); got != "<p>Certificate</p>" {
		t.Errorf("alert_message = %q", got)
	}
	if unknown := ce.UnknownTextKeys(); len(unknown) != 0 {
		t.Errorf("labels without field were stored: %v", unknown)
	}

	// A missing common version of a known offer type is created.
	fx.AcademicYear(ctx, 2018)
	if _, err := importer.New(db, zap.NewNop()).ImportCommon(ctx, strings.NewReader(`{"year": 2018, "2a.introduction": "Agregation"}`), models.LangFR); err != nil {
		t.Fatalf("ImportCommon(2a) failed: %v", err)
	}
	agreg, err := egystore.New(db).FindByAcronym(ctx, 2018, "common-2a")
	if err != nil {
		t.Fatalf("common-2a was not created: %v", err)
	}
	if agreg.TypeName != models.TypeAgregation {
		t.Errorf("common-2a type = %s", agreg.TypeName)
	}

	bad := `{"year": 2018, "2m.unknown_label": "x"}`
	if _, err := importer.New(db, zap.NewNop()).ImportCommon(ctx, strings.NewReader(bad), models.LangFR); !errors.Is(err, importer.ErrUnhandledKey) {
		t.Errorf("expected ErrUnhandledKey, got %v", err)
	}
}

func TestImportRules(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	im := importer.New(db, zap.NewNop())
	csv := "label,field_reference,status_field,initial_value,regex_rule,regex_error_message\n" +
		"Acronym,GroupForm.acronym,REQUIRED,,^[A-Z]+$,Upper case only\n" +
		"Credits,GroupForm.credits,FIXED,15,,\n"

	rep, err := im.ImportRules(ctx, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ImportRules failed: %v", err)
	}
	if rep.Created != 2 || rep.Updated != 0 {
		t.Errorf("first load = %+v", rep)
	}

	rep, err = im.ImportRules(ctx, strings.NewReader("Acronym,GroupForm.acronym,DISABLED\n"))
	if err != nil {
		t.Fatalf("ImportRules (update) failed: %v", err)
	}
	if rep.Created != 0 || rep.Updated != 1 {
		t.Errorf("second load = %+v", rep)
	}
	r, err := validationrulestore.New(db).Get(ctx, "GroupForm.acronym")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if r.StatusField != "DISABLED" || r.RegexRule != "" {
		t.Errorf("rule = %+v", r)
	}

	_, err = im.ImportRules(ctx, strings.NewReader("Acronym,,REQUIRED\n"))
	var rowsErr *importer.RowsError
	if !errors.As(err, &rowsErr) || len(rowsErr.Rows) != 1 {
		t.Errorf("expected RowsError with one row, got %v", err)
	}
}

func TestDuplicateAdmission(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	bachelor := fx.GroupType(ctx, models.CategoryTraining, models.TypeBachelor)
	group := fx.EducationGroup(ctx, 2018, nil)
	src := fx.EducationGroupYear(ctx, group, 2018, "DROI1BA", bachelor)
	dst := fx.EducationGroupYear(ctx, group, 2019, "DROI1BA", bachelor)
	fx.Training(ctx, "ECON1BA", 2018) // no admission condition, no 2019 version

	store := admissionstore.New(db)
	ac, err := store.GetOrCreate(ctx, src.ID)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	ac.SetText("free", models.LangFR, "<p>Libre</p>")
	if err := store.Save(ctx, ac); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rep, err := importer.New(db, zap.NewNop()).DuplicateAdmission(ctx, 2018, 2019)
	if err != nil {
		t.Fatalf("DuplicateAdmission failed: %v", err)
	}
	if rep.Copied != 1 || rep.MissingTarget != 1 {
		t.Errorf("report = %+v", rep)
	}
	copied, err := store.GetByEGY(ctx, dst.ID)
	if err != nil {
		t.Fatalf("GetByEGY: %v", err)
	}
	if copied.Text("free", models.LangFR) != "<p>Libre</p>" {
		t.Errorf("free = %q", copied.Text("free", models.LangFR))
	}
}
