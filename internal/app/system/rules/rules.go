// internal/app/system/rules/rules.go
//
// Package rules decides, per editing context, which form fields a person may
// change, and applies the configured validation rules to submitted values.
package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dalemusser/catalog/internal/domain/models"
)

// Context names the situation in which an education group form is edited.
type Context string

const (
	TrainingDailyManagement        Context = "TRAINING_DAILY_MANAGEMENT"
	TrainingProposalManagement     Context = "TRAINING_PROPOSAL_MANAGEMENT"
	TrainingPgrmEncodingPeriod     Context = "TRAINING_PGRM_ENCODING_PERIOD"
	MiniTrainingDailyManagement    Context = "MINI_TRAINING_DAILY_MANAGEMENT"
	MiniTrainingProposalManagement Context = "MINI_TRAINING_PROPOSAL_MANAGEMENT"
	MiniTrainingPgrmEncodingPeriod Context = "MINI_TRAINING_PGRM_ENCODING_PERIOD"
	GroupDailyManagement           Context = "GROUP_DAILY_MANAGEMENT"
	GroupProposalManagement        Context = "GROUP_PROPOSAL_MANAGEMENT"
	GroupPgrmEncodingPeriod        Context = "GROUP_PGRM_ENCODING_PERIOD"
)

// Stage is the phase of the catalogue life cycle a form is used in.
type Stage string

const (
	StageDaily        Stage = "DAILY_MANAGEMENT"
	StageProposal     Stage = "PROPOSAL_MANAGEMENT"
	StagePgrmEncoding Stage = "PGRM_ENCODING_PERIOD"
)

var contexts = map[string]map[Stage]Context{
	models.CategoryTraining: {
		StageDaily:        TrainingDailyManagement,
		StageProposal:     TrainingProposalManagement,
		StagePgrmEncoding: TrainingPgrmEncodingPeriod,
	},
	models.CategoryMiniTraining: {
		StageDaily:        MiniTrainingDailyManagement,
		StageProposal:     MiniTrainingProposalManagement,
		StagePgrmEncoding: MiniTrainingPgrmEncodingPeriod,
	},
	models.CategoryGroup: {
		StageDaily:        GroupDailyManagement,
		StageProposal:     GroupProposalManagement,
		StagePgrmEncoding: GroupPgrmEncodingPeriod,
	},
}

// ContextFor returns the context of editing a year-version of category at
// stage.
func ContextFor(category string, stage Stage) (Context, error) {
	c, ok := contexts[category][stage]
	if !ok {
		return "", fmt.Errorf("no editing context for %s at %s", category, stage)
	}
	return c, nil
}

// Valid reports whether c is a known context.
func (c Context) Valid() bool {
	for _, byStage := range contexts {
		for _, known := range byStage {
			if known == c {
				return true
			}
		}
	}
	return false
}

// FieldReference grants the edition of Field in Context to the holders of
// any of Roles or any of Permissions. A field listed for a context and not
// granted to a person is disabled for them.
type FieldReference struct {
	Context     Context
	Field       string
	Roles       []string
	Permissions []string
}

// Table is the (context, field) → grants lookup.
type Table []FieldReference

// allows reports whether p holds one of the grants of f. Roles are checked
// first.
func (f FieldReference) allows(p models.Person) bool {
	for _, r := range f.Roles {
		if p.HasRole(r) {
			return true
		}
	}
	for _, perm := range f.Permissions {
		if p.HasPerm(perm) {
			return true
		}
	}
	return false
}

// DisabledFields returns, sorted, the fields of ctx that p may not edit.
func (t Table) DisabledFields(ctx Context, p models.Person) []string {
	set := map[string]bool{}
	granted := map[string]bool{}
	for _, f := range t {
		if f.Context != ctx {
			continue
		}
		if f.allows(p) {
			granted[f.Field] = true
			continue
		}
		set[f.Field] = true
	}
	out := make([]string, 0, len(set))
	for field := range set {
		if !granted[field] {
			out = append(out, field)
		}
	}
	sort.Strings(out)
	return out
}

// DefaultTable restricts the identity and administrative fields of trainings
// and mini-trainings to central managers during daily management, and
// leaves every field of the encoding period to program managers too.
func DefaultTable() Table {
	central := []string{models.RoleCentralManager}
	var t Table
	for _, ctx := range []Context{TrainingDailyManagement, MiniTrainingDailyManagement, GroupDailyManagement} {
		for _, field := range []string{"acronym", "partial_acronym", "education_group_type", "management_entity", "administration_entity", "active"} {
			t = append(t, FieldReference{Context: ctx, Field: field, Roles: central})
		}
	}
	for _, ctx := range []Context{TrainingPgrmEncodingPeriod, MiniTrainingPgrmEncodingPeriod, GroupPgrmEncodingPeriod} {
		for _, field := range []string{"credits", "min_constraint", "max_constraint", "constraint_type", "remark", "remark_english"} {
			t = append(t, FieldReference{
				Context:     ctx,
				Field:       field,
				Roles:       []string{models.RoleCentralManager, models.RoleProgramManager},
				Permissions: []string{models.PermChangeEducationGroup},
			})
		}
	}
	return t
}

/* ---------------------------- validation rules ---------------------------- */

// Field statuses of a validation rule.
const (
	StatusDisabled    = "DISABLED"
	StatusRequired    = "REQUIRED"
	StatusNotRequired = "NOT_REQUIRED"
	StatusFixed       = "FIXED"
	StatusAlert       = "ALERT"
)

// MsgRequired is reported for a required field left empty.
const MsgRequired = "This field is required."

// Check validates value against r. It returns the operator message, or ""
// when the value is accepted. Disabled and fixed fields are not checked.
func Check(r models.ValidationRule, value string) string {
	switch r.StatusField {
	case StatusDisabled, StatusFixed:
		return ""
	}
	if strings.TrimSpace(value) == "" {
		if r.StatusField == StatusRequired {
			return MsgRequired
		}
		return ""
	}
	if r.RegexRule == "" {
		return ""
	}
	re, err := regexp.Compile(r.RegexRule)
	if err != nil || !re.MatchString(value) {
		if r.RegexErrorMessage != "" {
			return r.RegexErrorMessage
		}
		return "Invalid format."
	}
	return ""
}

// Form returns the rules whose field reference starts with "<form>.", keyed
// by field name.
func Form(all []models.ValidationRule, form string) map[string]models.ValidationRule {
	prefix := form + "."
	out := map[string]models.ValidationRule{}
	for _, r := range all {
		if field, ok := strings.CutPrefix(r.FieldReference, prefix); ok {
			out[field] = r
		}
	}
	return out
}
