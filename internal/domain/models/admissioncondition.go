// internal/domain/models/admissioncondition.go
package models

import (
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Language codes of translated content.
const (
	LangFR = "fr-be"
	LangEN = "en"
)

// AdmissionConditionFields is the frozen list of rich-text fields carried by
// an admission condition, each stored once per language.
var AdmissionConditionFields = []string{
	"bachelor",
	"alert_message",
	"standard",
	"free",
	"university_bachelors",
	"non_university_bachelors",
	"holders_second_university_degree",
	"holders_non_university_second_degree",
	"adults_taking_up_university_training",
	"personalized_access",
	"admission_enrollment_procedures",
}

// AdmissionCondition holds the admission texts of one year-version. Texts is
// keyed text_<field> for French and text_<field>_en for English.
type AdmissionCondition struct {
	ID                   primitive.ObjectID `bson:"_id" json:"id"`
	EducationGroupYearID primitive.ObjectID `bson:"education_group_year_id" json:"education_group_year_id"`
	Texts                map[string]string  `bson:",inline" json:"texts"`
}

// TextKey returns the storage key of field in lang.
func TextKey(field, lang string) string {
	if lang == LangEN {
		return "text_" + field + "_en"
	}
	return "text_" + field
}

// IsAdmissionConditionField reports whether field is in the frozen list.
func IsAdmissionConditionField(field string) bool {
	for _, f := range AdmissionConditionFields {
		if f == field {
			return true
		}
	}
	return false
}

// Text returns the value of field in lang.
func (a AdmissionCondition) Text(field, lang string) string {
	return a.Texts[TextKey(field, lang)]
}

// SetText stores value for field in lang.
func (a *AdmissionCondition) SetText(field, lang, value string) {
	if a.Texts == nil {
		a.Texts = map[string]string{}
	}
	a.Texts[TextKey(field, lang)] = value
}

// UnknownTextKeys returns the stored keys that do not name an enumerated
// field in either language, sorted.
func (a AdmissionCondition) UnknownTextKeys() []string {
	known := make(map[string]bool, 2*len(AdmissionConditionFields))
	for _, f := range AdmissionConditionFields {
		known[TextKey(f, LangFR)] = true
		known[TextKey(f, LangEN)] = true
	}
	var out []string
	for k := range a.Texts {
		if !known[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// DuplicateAdmissionCondition copies every enumerated text field, in both
// languages, from src onto dst. Keys outside the list are left untouched.
func DuplicateAdmissionCondition(src AdmissionCondition, dst *AdmissionCondition) {
	for _, f := range AdmissionConditionFields {
		for _, lang := range []string{LangFR, LangEN} {
			dst.SetText(f, lang, src.Text(f, lang))
		}
	}
}

// Admission condition line sections.
const (
	SectionUniversityBachelors              = "university_bachelors"
	SectionNonUniversityBachelors           = "non_university_bachelors"
	SectionHoldersSecondUniversityDegree    = "holders_second_university_degree"
	SectionHoldersNonUniversitySecondDegree = "holders_non_university_second_degree"
)

// AdmissionConditionLine is an ordered row of a section. Order is unique per
// (AdmissionConditionID, Section).
type AdmissionConditionLine struct {
	ID                   primitive.ObjectID `bson:"_id" json:"id"`
	AdmissionConditionID primitive.ObjectID `bson:"admission_condition_id" json:"admission_condition_id"`
	Section              string             `bson:"section" json:"section"`
	ExternalID           string             `bson:"external_id,omitempty" json:"external_id,omitempty"`
	Order                int                `bson:"order" json:"order"`

	Diploma    string `bson:"diploma" json:"diploma"`
	Conditions string `bson:"conditions" json:"conditions"`
	Access     string `bson:"access" json:"access"`
	Remarks    string `bson:"remarks" json:"remarks"`

	DiplomaEn    string `bson:"diploma_en" json:"diploma_en"`
	ConditionsEn string `bson:"conditions_en" json:"conditions_en"`
	AccessEn     string `bson:"access_en" json:"access_en"`
	RemarksEn    string `bson:"remarks_en" json:"remarks_en"`
}

// DuplicateLine returns a copy of l attached to conditionID.
func DuplicateLine(l AdmissionConditionLine, conditionID primitive.ObjectID) AdmissionConditionLine {
	l.ID = primitive.NilObjectID
	l.AdmissionConditionID = conditionID
	return l
}
