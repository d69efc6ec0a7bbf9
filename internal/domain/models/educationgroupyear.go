// internal/domain/models/educationgroupyear.go
package models

import (
	"reflect"
	"regexp"
	"time"

	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Constraint types.
const (
	ConstraintCredits = "CREDITS"
	ConstraintNumber  = "NUMBER"
)

// Duration units.
const (
	DurationQuadrimester = "QUADRIMESTER"
	DurationTrimester    = "TRIMESTER"
	DurationMonth        = "MONTH"
	DurationWeek         = "WEEK"
	DurationDay          = "DAY"
)

// AcronymPattern is the shape every year-version acronym must match.
var AcronymPattern = regexp.MustCompile(`^([A-Z]{2,4})([0-9]?)(.*)$`)

// CommonAcronymPattern matches the pseudo year-versions that carry the
// texts shared by every offer of a type ("common-2m", "common-bacs").
var CommonAcronymPattern = regexp.MustCompile(`^common-[a-z0-9]+$`)

// EducationGroupYear is the version of an EducationGroup in one academic year.
//
// AcademicYear, Category and TypeName are denormalized from the academic
// year and the education group type so the tree reader and the postponement
// partition can filter without joins.
type EducationGroupYear struct {
	ID               primitive.ObjectID `bson:"_id" json:"id"`
	EducationGroupID primitive.ObjectID `bson:"education_group_id" json:"education_group_id" validate:"required"`
	AcademicYearID   primitive.ObjectID `bson:"academic_year_id" json:"academic_year_id" validate:"required"`
	AcademicYear     int                `bson:"academic_year" json:"academic_year" validate:"required"`

	Acronym        string `bson:"acronym" json:"acronym" validate:"required,max=40"`
	AcronymCI      string `bson:"acronym_ci" json:"-"`
	PartialAcronym string `bson:"partial_acronym,omitempty" json:"partial_acronym,omitempty" validate:"max=15"`
	Title          string `bson:"title" json:"title" validate:"required,max=255"`
	TitleEnglish   string `bson:"title_english,omitempty" json:"title_english,omitempty" validate:"max=240"`

	EducationGroupTypeID primitive.ObjectID `bson:"education_group_type_id" json:"education_group_type_id" validate:"required"`
	Category             string             `bson:"category" json:"category"`
	TypeName             string             `bson:"type_name" json:"type_name"`

	Credits        *float64 `bson:"credits,omitempty" json:"credits,omitempty" validate:"omitempty,gte=0,lte=999"`
	MinConstraint  *int     `bson:"min_constraint,omitempty" json:"min_constraint,omitempty" validate:"omitempty,gte=1"`
	MaxConstraint  *int     `bson:"max_constraint,omitempty" json:"max_constraint,omitempty" validate:"omitempty,gte=1"`
	ConstraintType string   `bson:"constraint_type,omitempty" json:"constraint_type,omitempty" validate:"omitempty,oneof=CREDITS NUMBER"`

	Remark          string `bson:"remark,omitempty" json:"remark,omitempty"`
	RemarkEnglish   string `bson:"remark_english,omitempty" json:"remark_english,omitempty"`
	Active          string `bson:"active,omitempty" json:"active,omitempty" validate:"omitempty,oneof=ACTIVE INACTIVE RE_REGISTRATION"`
	ScheduleType    string `bson:"schedule_type,omitempty" json:"schedule_type,omitempty" validate:"omitempty,oneof=DAILY SHIFTED ADAPTED"`
	Internship      string `bson:"internship,omitempty" json:"internship,omitempty" validate:"omitempty,oneof=YES NO OPTIONAL"`
	Duration        *int   `bson:"duration,omitempty" json:"duration,omitempty" validate:"omitempty,gte=1"`
	DurationUnit    string `bson:"duration_unit,omitempty" json:"duration_unit,omitempty" validate:"omitempty,oneof=QUADRIMESTER TRIMESTER MONTH WEEK DAY"`
	PrimaryLanguage string `bson:"primary_language,omitempty" json:"primary_language,omitempty"`

	ManagementEntityID     *primitive.ObjectID `bson:"management_entity_id,omitempty" json:"management_entity_id,omitempty"`
	AdministrationEntityID *primitive.ObjectID `bson:"administration_entity_id,omitempty" json:"administration_entity_id,omitempty"`

	// Many-to-many links, copied only when a postponed version is created.
	SecondaryDomains []primitive.ObjectID `bson:"secondary_domains,omitempty" json:"secondary_domains,omitempty"`
	Languages        []string             `bson:"languages,omitempty" json:"languages,omitempty"`
	CertificateAims  []primitive.ObjectID `bson:"certificate_aims,omitempty" json:"certificate_aims,omitempty"`

	ExternalID string    `bson:"external_id,omitempty" json:"external_id,omitempty"`
	ChangedAt  time.Time `bson:"changed_at" json:"changed_at"`
}

// String renders the year-version the way operators read it
// ("DROI1BA - 2018-19").
func (e EducationGroupYear) String() string {
	return e.Acronym + " - " + AcademicYear{Year: e.AcademicYear}.String()
}

// IsTraining reports whether the year-version belongs to category TRAINING.
func (e EducationGroupYear) IsTraining() bool {
	return e.Category == CategoryTraining
}

// IsFormation reports whether the year-version is a formation root.
func (e EducationGroupYear) IsFormation() bool {
	return IsFormation(e.Category, e.TypeName)
}

// Validate checks field formats and the joint-field rules. It returns nil or
// a *catalogerr.ValidationError.
func (e EducationGroupYear) Validate() error {
	ve := catalogerr.NewValidationError()
	checkStruct(e, ve)

	if e.Acronym != "" && !AcronymPattern.MatchString(e.Acronym) && !CommonAcronymPattern.MatchString(e.Acronym) {
		ve.Add("acronym", "Invalid code.")
	}

	if e.ConstraintType != "" {
		if e.MinConstraint == nil {
			ve.Add("min_constraint", "This field is required.")
		}
		if e.MaxConstraint == nil {
			ve.Add("max_constraint", "This field is required.")
		}
		if e.MinConstraint != nil && e.MaxConstraint != nil && *e.MinConstraint > *e.MaxConstraint {
			ve.Add("max_constraint", "The maximum must be greater than or equal to the minimum.")
		}
	} else {
		if e.MinConstraint != nil {
			ve.Add("min_constraint", "This field must be empty when no constraint type is set.")
		}
		if e.MaxConstraint != nil {
			ve.Add("max_constraint", "This field must be empty when no constraint type is set.")
		}
	}

	if (e.Duration == nil) != (e.DurationUnit == "") {
		if e.Duration == nil {
			ve.Add("duration", "This field is required when the duration unit is set.")
		} else {
			ve.Add("duration_unit", "This field is required when the duration is set.")
		}
	}

	seen := make(map[primitive.ObjectID]bool, len(e.CertificateAims))
	for _, aim := range e.CertificateAims {
		if seen[aim] {
			ve.Add("certificate_aims", "A certificate aim can only be linked once.")
			break
		}
		seen[aim] = true
	}

	return ve.OrNil()
}

/* --------------------------- postponed field list -------------------------- */

type postponedField struct {
	name string
	get  func(e *EducationGroupYear) any
}

func field[T any](name string, ptr func(e *EducationGroupYear) *T) postponedField {
	return postponedField{name: name, get: func(e *EducationGroupYear) any { return ptr(e) }}
}

// postponedFields enumerates the values carried from a year-version to its
// postponed copy. Identity, year binding and many-to-many links are excluded.
var postponedFields = []postponedField{
	field("acronym", func(e *EducationGroupYear) *string { return &e.Acronym }),
	field("partial_acronym", func(e *EducationGroupYear) *string { return &e.PartialAcronym }),
	field("title", func(e *EducationGroupYear) *string { return &e.Title }),
	field("title_english", func(e *EducationGroupYear) *string { return &e.TitleEnglish }),
	field("education_group_type_id", func(e *EducationGroupYear) *primitive.ObjectID { return &e.EducationGroupTypeID }),
	field("category", func(e *EducationGroupYear) *string { return &e.Category }),
	field("type_name", func(e *EducationGroupYear) *string { return &e.TypeName }),
	field("credits", func(e *EducationGroupYear) **float64 { return &e.Credits }),
	field("min_constraint", func(e *EducationGroupYear) **int { return &e.MinConstraint }),
	field("max_constraint", func(e *EducationGroupYear) **int { return &e.MaxConstraint }),
	field("constraint_type", func(e *EducationGroupYear) *string { return &e.ConstraintType }),
	field("remark", func(e *EducationGroupYear) *string { return &e.Remark }),
	field("remark_english", func(e *EducationGroupYear) *string { return &e.RemarkEnglish }),
	field("active", func(e *EducationGroupYear) *string { return &e.Active }),
	field("schedule_type", func(e *EducationGroupYear) *string { return &e.ScheduleType }),
	field("internship", func(e *EducationGroupYear) *string { return &e.Internship }),
	field("duration", func(e *EducationGroupYear) **int { return &e.Duration }),
	field("duration_unit", func(e *EducationGroupYear) *string { return &e.DurationUnit }),
	field("primary_language", func(e *EducationGroupYear) *string { return &e.PrimaryLanguage }),
	field("management_entity_id", func(e *EducationGroupYear) **primitive.ObjectID { return &e.ManagementEntityID }),
	field("administration_entity_id", func(e *EducationGroupYear) **primitive.ObjectID { return &e.AdministrationEntityID }),
}

// EducationGroupYearPostponedFields returns the names of the fields copied by
// postponement, in declaration order.
func EducationGroupYearPostponedFields() []string {
	out := make([]string, 0, len(postponedFields))
	for _, f := range postponedFields {
		out = append(out, f.name)
	}
	return out
}

// CopyPostponedFields copies every postponed field from src into dst.
func CopyPostponedFields(dst *EducationGroupYear, src EducationGroupYear) {
	for _, f := range postponedFields {
		d := reflect.ValueOf(f.get(dst)).Elem()
		s := reflect.ValueOf(f.get(&src)).Elem()
		d.Set(s)
	}
}

// PostponedDifferences lists the postponed fields whose values differ between
// a and b. Pointer fields compare by pointed-to value.
func PostponedDifferences(a, b EducationGroupYear) []string {
	var diffs []string
	for _, f := range postponedFields {
		av := reflect.ValueOf(f.get(&a)).Elem().Interface()
		bv := reflect.ValueOf(f.get(&b)).Elem().Interface()
		if !reflect.DeepEqual(av, bv) {
			diffs = append(diffs, f.name)
		}
	}
	return diffs
}

// CopyLinks copies the many-to-many links from src into dst.
func CopyLinks(dst *EducationGroupYear, src EducationGroupYear) {
	dst.SecondaryDomains = append([]primitive.ObjectID(nil), src.SecondaryDomains...)
	dst.Languages = append([]string(nil), src.Languages...)
	dst.CertificateAims = append([]primitive.ObjectID(nil), src.CertificateAims...)
}
