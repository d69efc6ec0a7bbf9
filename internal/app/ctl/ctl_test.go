package ctl_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dalemusser/catalog/internal/app/catalog/academiccal"
	"github.com/dalemusser/catalog/internal/app/ctl"
	"github.com/dalemusser/catalog/internal/app/store/audit"
	"github.com/dalemusser/catalog/internal/app/system/auditlog"
	"github.com/dalemusser/catalog/internal/domain/models"
	"github.com/dalemusser/catalog/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newRunner(t *testing.T, db *mongo.Database) (*ctl.Runner, *bytes.Buffer) {
	t.Helper()
	cal := academiccal.New(db, 6).WithClock(func() time.Time {
		return time.Date(2019, 2, 1, 0, 0, 0, 0, time.UTC)
	})
	out := &bytes.Buffer{}
	return &ctl.Runner{
		DB:    db,
		Cal:   cal,
		Audit: auditlog.New(audit.New(db), zap.NewNop(), auditlog.Config{Postponement: "db", Structure: "off"}),
		Log:   zap.NewNop(),
		Out:   out,
	}, out
}

func TestRun_UnknownCommand(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r, _ := newRunner(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := r.Run(ctx, ctl.Options{Command: "postpone-everything"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ctl.ErrUnknownCommand))
	assert.Contains(t, err.Error(), "postpone-years")
}

func TestRun_PostponeYearsDryRun(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.AcademicYears(ctx, 2017, 2024)

	bachelor := fx.GroupType(ctx, models.CategoryTraining, models.TypeBachelor)
	fx.EducationGroupYear(ctx, fx.EducationGroup(ctx, 2018, nil), 2023, "DROI1BA", bachelor)

	r, out := newRunner(t, db)
	require.NoError(t, r.Run(ctx, ctl.Options{Command: "postpone-years", DryRun: true}))

	var got struct {
		TargetYear  int   `json:"target_year"`
		DryRun      bool  `json:"dry_run"`
		ToDuplicate int   `json:"to_duplicate"`
		Created     []any `json:"created"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, 2024, got.TargetYear)
	assert.True(t, got.DryRun)
	assert.Equal(t, 1, got.ToDuplicate)
	assert.Empty(t, got.Created)

	n, err := db.Collection("education_group_years").CountDocuments(ctx, map[string]any{"academic_year": 2024})
	require.NoError(t, err)
	assert.Zero(t, n, "dry run must not write")
}

func TestRun_ShortenRequiresArguments(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r, _ := newRunner(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assert.Error(t, r.Run(ctx, ctl.Options{Command: "shorten", GroupID: "nope", Until: 2020}))
	assert.Error(t, r.Run(ctx, ctl.Options{Command: "shorten", GroupID: "5f1d7f1e2c3b4a5d6e7f8a9b"}))
}

func TestRun_DuplicateAdmissionRejectsSameYear(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r, _ := newRunner(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assert.Error(t, r.Run(ctx, ctl.Options{Command: "duplicate-admission", From: 2020, To: 2020}))
}

func TestRun_ImportRulesFromFile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	path := filepath.Join(t.TempDir(), "rules.csv")
	csv := "label,field_reference,status_field,initial_value,regex_rule,regex_error_message\n" +
		"Acronym,GroupForm.acronym,REQUIRED,,^[A-Z]+$,Upper case only\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	r, out := newRunner(t, db)
	require.NoError(t, r.Run(ctx, ctl.Options{Command: "import-rules", File: path}))
	assert.Contains(t, out.String(), `"created": 1`)

	events, err := db.Collection("audit_events").CountDocuments(ctx, map[string]any{"event_type": audit.EventImportCompleted})
	require.NoError(t, err)
	assert.Equal(t, int64(1), events)
}

func TestRun_ImportRequiresFile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r, _ := newRunner(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := r.Run(ctx, ctl.Options{Command: "import-admission", Lang: models.LangFR})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--file")
}
