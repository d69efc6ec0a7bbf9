package rules

import (
	"testing"

	"github.com/dalemusser/catalog/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextFor(t *testing.T) {
	c, err := ContextFor(models.CategoryMiniTraining, StageProposal)
	require.NoError(t, err)
	assert.Equal(t, MiniTrainingProposalManagement, c)
	assert.True(t, c.Valid())

	_, err = ContextFor("UNKNOWN", StageDaily)
	assert.Error(t, err)
	assert.False(t, Context("SOMETHING").Valid())
}

func TestTable_DisabledFields(t *testing.T) {
	table := Table{
		{Context: TrainingDailyManagement, Field: "acronym", Roles: []string{models.RoleCentralManager}},
		{Context: TrainingDailyManagement, Field: "title", Permissions: []string{models.PermChangeEducationGroup}},
		{Context: TrainingDailyManagement, Field: "credits", Roles: []string{models.RoleCentralManager}},
		{Context: TrainingDailyManagement, Field: "credits", Roles: []string{models.RoleProgramManager}},
		{Context: GroupDailyManagement, Field: "remark", Roles: []string{models.RoleCentralManager}},
	}

	tests := []struct {
		name   string
		person models.Person
		want   []string
	}{
		{
			name:   "nobody",
			person: models.Person{},
			want:   []string{"acronym", "credits", "title"},
		},
		{
			name:   "central manager",
			person: models.Person{Roles: []string{models.RoleCentralManager}},
			want:   []string{"title"},
		},
		{
			name: "program manager with change permission",
			person: models.Person{
				Roles:       []string{models.RoleProgramManager},
				Permissions: []string{models.PermChangeEducationGroup},
			},
			want: []string{"acronym"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, table.DisabledFields(TrainingDailyManagement, tt.person))
		})
	}
}

func TestDefaultTable(t *testing.T) {
	table := DefaultTable()
	central := models.Person{Roles: []string{models.RoleCentralManager}}
	assert.Empty(t, table.DisabledFields(TrainingDailyManagement, central))
	assert.Contains(t, table.DisabledFields(TrainingDailyManagement, models.Person{}), "acronym")

	pm := models.Person{Roles: []string{models.RoleProgramManager}}
	assert.Empty(t, table.DisabledFields(TrainingPgrmEncodingPeriod, pm))
	assert.Empty(t, table.DisabledFields(TrainingProposalManagement, models.Person{}))
}

func TestCheck(t *testing.T) {
	acronym := models.ValidationRule{
		FieldReference:    "GroupForm.acronym",
		StatusField:       StatusRequired,
		RegexRule:         "^[A-Z]+$",
		RegexErrorMessage: "Upper case only",
	}
	tests := []struct {
		name  string
		rule  models.ValidationRule
		value string
		want  string
	}{
		{"valid", acronym, "DROI", ""},
		{"required empty", acronym, "  ", MsgRequired},
		{"regex mismatch", acronym, "droi", "Upper case only"},
		{"optional empty", models.ValidationRule{StatusField: StatusNotRequired, RegexRule: "^x$"}, "", ""},
		{"disabled ignores value", models.ValidationRule{StatusField: StatusDisabled, RegexRule: "^x$"}, "y", ""},
		{"default message", models.ValidationRule{StatusField: StatusAlert, RegexRule: "^[0-9]+$"}, "a", "Invalid format."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Check(tt.rule, tt.value))
		})
	}
}

func TestForm(t *testing.T) {
	all := []models.ValidationRule{
		{FieldReference: "GroupForm.acronym"},
		{FieldReference: "GroupForm.credits"},
		{FieldReference: "TrainingForm.acronym"},
	}
	got := Form(all, "GroupForm")
	assert.Len(t, got, 2)
	assert.Contains(t, got, "acronym")
	assert.Contains(t, got, "credits")
}
