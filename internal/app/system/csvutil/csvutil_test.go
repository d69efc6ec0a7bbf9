package csvutil

import (
	"strings"
	"testing"
)

func TestParseRulesCSV_ValidRows(t *testing.T) {
	csv := `label,field_reference,status_field,initial_value,regex_rule,regex_error_message
Acronym,GroupForm.acronym,REQUIRED,,^[A-Z]+$,Upper case only
Credits,GroupForm.credits,NOT_REQUIRED,15,,
Remark,GroupForm.remark,DISABLED,,,`

	result, err := ParseRulesCSV(strings.NewReader(csv), DefaultParseOptions())
	if err != nil {
		t.Fatalf("ParseRulesCSV() error = %v", err)
	}

	if len(result.Rows) != 3 {
		t.Errorf("ParseRulesCSV() got %d rows, want 3", len(result.Rows))
	}

	if result.HasErrors() {
		t.Errorf("ParseRulesCSV() unexpected errors: %v", result.Errors)
	}

	first := result.Rows[0]
	if first.FieldReference != "GroupForm.acronym" {
		t.Errorf("Row 0 FieldReference = %q", first.FieldReference)
	}
	if first.RegexRule != "^[A-Z]+$" || first.RegexErrorMessage != "Upper case only" {
		t.Errorf("Row 0 regex = %q / %q", first.RegexRule, first.RegexErrorMessage)
	}
	if result.Rows[1].InitialValue != "15" {
		t.Errorf("Row 1 InitialValue = %q, want 15", result.Rows[1].InitialValue)
	}
}

func TestParseRulesCSV_NoHeader(t *testing.T) {
	csv := `Acronym,GroupForm.acronym,REQUIRED,,,
Credits,GroupForm.credits,,,,`

	result, err := ParseRulesCSV(strings.NewReader(csv), DefaultParseOptions())
	if err != nil {
		t.Fatalf("ParseRulesCSV() error = %v", err)
	}

	if len(result.Rows) != 2 {
		t.Errorf("ParseRulesCSV() got %d rows, want 2", len(result.Rows))
	}
	if result.Rows[1].StatusField != DefaultStatus {
		t.Errorf("empty status = %q, want %q", result.Rows[1].StatusField, DefaultStatus)
	}
}

func TestParseRulesCSV_BOMHandling(t *testing.T) {
	csv := "\ufefflabel,field_reference,status_field\nAcronym,GroupForm.acronym,REQUIRED"

	result, err := ParseRulesCSV(strings.NewReader(csv), DefaultParseOptions())
	if err != nil {
		t.Fatalf("ParseRulesCSV() error = %v", err)
	}

	if len(result.Rows) != 1 {
		t.Errorf("ParseRulesCSV() got %d rows, want 1", len(result.Rows))
	}

	if result.HasErrors() {
		t.Errorf("ParseRulesCSV() unexpected errors with BOM: %v", result.Errors)
	}
}

func TestParseRulesCSV_EmptyFile(t *testing.T) {
	result, err := ParseRulesCSV(strings.NewReader(""), DefaultParseOptions())
	if err != nil {
		t.Fatalf("ParseRulesCSV() error = %v", err)
	}

	if len(result.Rows) != 0 {
		t.Errorf("ParseRulesCSV() got %d rows, want 0", len(result.Rows))
	}
}

func TestParseRulesCSV_InvalidRows(t *testing.T) {
	tests := []struct {
		name        string
		csv         string
		wantErrors  int
		errContains string
	}{
		{
			name:        "missing field reference",
			csv:         "Acronym,,REQUIRED",
			wantErrors:  1,
			errContains: "missing field reference",
		},
		{
			name:        "invalid status",
			csv:         "Acronym,GroupForm.acronym,MANDATORY",
			wantErrors:  1,
			errContains: "invalid status",
		},
		{
			name:        "invalid regex",
			csv:         "Acronym,GroupForm.acronym,REQUIRED,,[A-Z",
			wantErrors:  1,
			errContains: "invalid regex",
		},
		{
			name:       "status is case-insensitive",
			csv:        "Acronym,GroupForm.acronym,required",
			wantErrors: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseRulesCSV(strings.NewReader(tt.csv), DefaultParseOptions())
			if err != nil {
				t.Fatalf("ParseRulesCSV() error = %v", err)
			}

			if len(result.Errors) != tt.wantErrors {
				t.Errorf("ParseRulesCSV() got %d errors, want %d", len(result.Errors), tt.wantErrors)
			}

			if tt.wantErrors > 0 && !strings.Contains(result.Errors[0].Reason, tt.errContains) {
				t.Errorf("Error reason %q doesn't contain %q", result.Errors[0].Reason, tt.errContains)
			}
		})
	}
}

func TestParseRulesCSV_DuplicateReferences(t *testing.T) {
	csv := `Acronym,GroupForm.acronym,REQUIRED
Acronym again,GroupForm.acronym,DISABLED`

	result, err := ParseRulesCSV(strings.NewReader(csv), DefaultParseOptions())
	if err != nil {
		t.Fatalf("ParseRulesCSV() error = %v", err)
	}

	if len(result.Errors) != 1 {
		t.Errorf("ParseRulesCSV() got %d errors, want 1 for duplicate", len(result.Errors))
	}

	if len(result.Errors) > 0 {
		if !strings.Contains(result.Errors[0].Reason, "duplicate") {
			t.Errorf("Error reason %q doesn't mention duplicate", result.Errors[0].Reason)
		}
		if result.Errors[0].Line != 2 {
			t.Errorf("Error line = %d, want 2", result.Errors[0].Line)
		}
	}
}

func TestParseRulesCSV_MaxRows(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("label,field_reference,status_field\n")
	for i := 0; i < 10; i++ {
		sb.WriteString("Field,Form.field")
		sb.WriteByte(byte('0' + i))
		sb.WriteString(",REQUIRED\n")
	}

	opts := ParseOptions{MaxRows: 5}
	_, err := ParseRulesCSV(strings.NewReader(sb.String()), opts)

	if err != ErrTooManyRows {
		t.Errorf("ParseRulesCSV() error = %v, want ErrTooManyRows", err)
	}
}

func TestParseRulesCSV_SkipsEmptyRows(t *testing.T) {
	csv := `Acronym,GroupForm.acronym,REQUIRED

Credits,GroupForm.credits,FIXED

`

	result, err := ParseRulesCSV(strings.NewReader(csv), DefaultParseOptions())
	if err != nil {
		t.Fatalf("ParseRulesCSV() error = %v", err)
	}

	if len(result.Rows) != 2 {
		t.Errorf("ParseRulesCSV() got %d rows, want 2", len(result.Rows))
	}
}

func TestRowError_String(t *testing.T) {
	e := RowError{Line: 3, Reason: "missing field reference"}
	if got := e.String(); !strings.Contains(got, "line 3") || !strings.Contains(got, "(missing)") {
		t.Errorf("String() = %q", got)
	}
}
