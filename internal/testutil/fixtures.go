package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/catalog/internal/app/system/indexes"
	"github.com/dalemusser/catalog/internal/app/system/validators"
	"github.com/dalemusser/catalog/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// EnsureSchema installs the collection validators and indexes on db.
func EnsureSchema(t *testing.T, db *mongo.Database) {
	t.Helper()
	ctx, cancel := TestContext()
	defer cancel()
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("ensure validators: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
}

// Fixtures provides helper methods for creating catalogue test data.
// Documents are inserted directly so fixtures do not depend on the stores
// under test.
type Fixtures struct {
	db    *mongo.Database
	t     *testing.T
	years map[int]models.AcademicYear
	types map[string]models.EducationGroupType
	units map[string]primitive.ObjectID
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{
		db:    db,
		t:     t,
		years: map[int]models.AcademicYear{},
		types: map[string]models.EducationGroupType{},
		units: map[string]primitive.ObjectID{},
	}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert into %s: %v", coll, err)
	}
}

// AcademicYear returns the academic year starting in year, creating it on
// first use. The window runs from 15 September to 14 September.
func (f *Fixtures) AcademicYear(ctx context.Context, year int) models.AcademicYear {
	f.t.Helper()
	if y, ok := f.years[year]; ok {
		return y
	}
	y := models.AcademicYear{
		ID:        primitive.NewObjectID(),
		Year:      year,
		StartDate: time.Date(year, 9, 15, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(year+1, 9, 14, 0, 0, 0, 0, time.UTC),
	}
	f.insert(ctx, "academic_years", y)
	f.years[year] = y
	return y
}

// AcademicYears creates every year in [from, to].
func (f *Fixtures) AcademicYears(ctx context.Context, from, to int) {
	f.t.Helper()
	for y := from; y <= to; y++ {
		f.AcademicYear(ctx, y)
	}
}

// GroupType returns the education group type (category, name), creating it
// on first use.
func (f *Fixtures) GroupType(ctx context.Context, category, name string) models.EducationGroupType {
	f.t.Helper()
	key := category + "/" + name
	if gt, ok := f.types[key]; ok {
		return gt
	}
	gt := models.EducationGroupType{ID: primitive.NewObjectID(), Category: category, Name: name}
	f.insert(ctx, "education_group_types", gt)
	f.types[key] = gt
	return gt
}

// Authorize allows child under parent.
func (f *Fixtures) Authorize(ctx context.Context, parent, child models.EducationGroupType) {
	f.t.Helper()
	f.insert(ctx, "authorized_relationships", models.AuthorizedRelationship{
		ID:           primitive.NewObjectID(),
		ParentTypeID: parent.ID,
		ChildTypeID:  child.ID,
	})
}

// Unauthorize records a negative exception for (parent, child).
func (f *Fixtures) Unauthorize(ctx context.Context, parent, child models.EducationGroupType) {
	f.t.Helper()
	f.insert(ctx, "unauthorized_relationships", models.UnauthorizedRelationship{
		ID:           primitive.NewObjectID(),
		ParentTypeID: parent.ID,
		ChildTypeID:  child.ID,
	})
}

// EducationGroup creates a group identity. endYear may be nil.
func (f *Fixtures) EducationGroup(ctx context.Context, startYear int, endYear *int) models.EducationGroup {
	f.t.Helper()
	now := time.Now().UTC()
	g := models.EducationGroup{
		ID:        primitive.NewObjectID(),
		StartYear: startYear,
		EndYear:   endYear,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "education_groups", g)
	return g
}

// EducationGroupYear creates the version of group in year.
func (f *Fixtures) EducationGroupYear(ctx context.Context, group models.EducationGroup, year int, acronym string, gt models.EducationGroupType) models.EducationGroupYear {
	f.t.Helper()
	ay := f.AcademicYear(ctx, year)
	egy := models.EducationGroupYear{
		ID:                   primitive.NewObjectID(),
		EducationGroupID:     group.ID,
		AcademicYearID:       ay.ID,
		AcademicYear:         year,
		Acronym:              acronym,
		AcronymCI:            text.Fold(acronym),
		Title:                "Title of " + acronym,
		EducationGroupTypeID: gt.ID,
		Category:             gt.Category,
		TypeName:             gt.Name,
		ChangedAt:            time.Now().UTC(),
	}
	f.insert(ctx, "education_group_years", egy)
	return egy
}

// Training creates a bachelor group and its version in year.
func (f *Fixtures) Training(ctx context.Context, acronym string, year int) models.EducationGroupYear {
	f.t.Helper()
	g := f.EducationGroup(ctx, year, nil)
	return f.EducationGroupYear(ctx, g, year, acronym, f.GroupType(ctx, models.CategoryTraining, models.TypeBachelor))
}

// Group creates a common-core group and its version in year.
func (f *Fixtures) Group(ctx context.Context, acronym string, year int) models.EducationGroupYear {
	f.t.Helper()
	g := f.EducationGroup(ctx, year, nil)
	return f.EducationGroupYear(ctx, g, year, acronym, f.GroupType(ctx, models.CategoryGroup, models.TypeCommonCore))
}

// LearningUnitYear creates the version of the learning unit acronym in
// year. Calls with the same acronym share one LearningUnit identity.
func (f *Fixtures) LearningUnitYear(ctx context.Context, acronym string, year int) models.LearningUnitYear {
	f.t.Helper()
	luID, ok := f.units[acronym]
	if !ok {
		luID = primitive.NewObjectID()
		f.insert(ctx, "learning_units", models.LearningUnit{ID: luID, StartYear: year})
		f.units[acronym] = luID
	}
	ay := f.AcademicYear(ctx, year)
	luy := models.LearningUnitYear{
		ID:             primitive.NewObjectID(),
		LearningUnitID: luID,
		AcademicYearID: ay.ID,
		AcademicYear:   year,
		Acronym:        acronym,
		SpecificTitle:  "Course " + acronym,
	}
	f.insert(ctx, "learning_unit_years", luy)
	return luy
}

// nextOrder returns max(order)+1 among the edges of parent.
func (f *Fixtures) nextOrder(ctx context.Context, parent primitive.ObjectID) int {
	f.t.Helper()
	n, err := f.db.Collection("group_element_years").CountDocuments(ctx, bson.M{"parent_id": parent})
	if err != nil {
		f.t.Fatalf("count edges: %v", err)
	}
	return int(n)
}

// Branch attaches child under parent.
func (f *Fixtures) Branch(ctx context.Context, parent, child models.EducationGroupYear) models.GroupElementYear {
	f.t.Helper()
	childID := child.ID
	gey := models.GroupElementYear{
		ID:            primitive.NewObjectID(),
		ParentID:      parent.ID,
		ChildBranchID: &childID,
		AcademicYear:  parent.AcademicYear,
		Order:         f.nextOrder(ctx, parent.ID),
		ChangedAt:     time.Now().UTC(),
	}
	f.insert(ctx, "group_element_years", gey)
	return gey
}

// Leaf attaches the learning unit year luy under parent.
func (f *Fixtures) Leaf(ctx context.Context, parent models.EducationGroupYear, luy models.LearningUnitYear) models.GroupElementYear {
	f.t.Helper()
	luyID := luy.ID
	gey := models.GroupElementYear{
		ID:           primitive.NewObjectID(),
		ParentID:     parent.ID,
		ChildLeafID:  &luyID,
		AcademicYear: parent.AcademicYear,
		Order:        f.nextOrder(ctx, parent.ID),
		ChangedAt:    time.Now().UTC(),
	}
	f.insert(ctx, "group_element_years", gey)
	return gey
}

// Prerequisite binds expr to luy inside root.
func (f *Fixtures) Prerequisite(ctx context.Context, root models.EducationGroupYear, luy models.LearningUnitYear, expr string) models.Prerequisite {
	f.t.Helper()
	p := models.Prerequisite{
		ID:                   primitive.NewObjectID(),
		LearningUnitYearID:   luy.ID,
		EducationGroupYearID: root.ID,
		Expression:           expr,
		ChangedAt:            time.Now().UTC(),
	}
	f.insert(ctx, "prerequisites", p)
	return p
}

// Enroll registers n students in egy.
func (f *Fixtures) Enroll(ctx context.Context, egy models.EducationGroupYear, n int) []models.OfferEnrollment {
	f.t.Helper()
	out := make([]models.OfferEnrollment, 0, n)
	for i := 0; i < n; i++ {
		oe := models.OfferEnrollment{
			ID:                   primitive.NewObjectID(),
			EducationGroupYearID: egy.ID,
			StudentID:            primitive.NewObjectID(),
		}
		f.insert(ctx, "offer_enrollments", oe)
		out = append(out, oe)
	}
	return out
}

// EnrollInLearningUnit registers the offer enrollment oe in luy.
func (f *Fixtures) EnrollInLearningUnit(ctx context.Context, oe models.OfferEnrollment, luy models.LearningUnitYear) {
	f.t.Helper()
	f.insert(ctx, "learning_unit_enrollments", models.LearningUnitEnrollment{
		ID:                 primitive.NewObjectID(),
		OfferEnrollmentID:  oe.ID,
		LearningUnitYearID: luy.ID,
	})
}

// Person creates a person identified by userID with roles and permissions.
func (f *Fixtures) Person(ctx context.Context, userID string, roles, perms []string) models.Person {
	f.t.Helper()
	p := models.Person{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		FirstName:   "Test",
		LastName:    userID,
		Roles:       roles,
		Permissions: perms,
	}
	f.insert(ctx, "persons", p)
	return p
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
