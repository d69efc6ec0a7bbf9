// internal/app/system/csvutil/rules.go
package csvutil

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/dalemusser/catalog/internal/domain/models"
)

// ErrTooManyRows is returned when the input holds more rows than allowed.
var ErrTooManyRows = errors.New("csv has too many rows")

// Field statuses accepted in the status column.
var fieldStatuses = map[string]bool{
	"DISABLED": true, "REQUIRED": true, "NOT_REQUIRED": true, "FIXED": true, "ALERT": true,
}

// DefaultStatus is used when the status column is empty.
const DefaultStatus = "NOT_REQUIRED"

// ParseOptions bounds a parse.
type ParseOptions struct {
	MaxRows int
}

// DefaultParseOptions returns the limits used by the importers.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{MaxRows: MaxRows}
}

// RowError describes one rejected line. Line is 1-based.
type RowError struct {
	Line           int
	FieldReference string
	Reason         string
}

func (e RowError) String() string {
	ref := e.FieldReference
	if ref == "" {
		ref = "(missing)"
	}
	return fmt.Sprintf("line %d | %s → %s", e.Line, ref, e.Reason)
}

// RulesResult is the outcome of ParseRulesCSV.
type RulesResult struct {
	Rows   []models.ValidationRule
	Errors []RowError
}

// HasErrors reports whether any row was rejected.
func (r RulesResult) HasErrors() bool { return len(r.Errors) > 0 }

// ParseRulesCSV reads validation rules laid out as
// (label, field_reference, status_field, initial_value, regex_rule,
// regex_error_message). The first column is ignored. A header whose second
// cell is "field_reference" is skipped, as are blank lines and a UTF-8 BOM.
// Nothing is written anywhere; the caller decides what to do with Errors.
func ParseRulesCSV(r io.Reader, opts ParseOptions) (RulesResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var res RulesResult
	seen := map[string]bool{}
	line := 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return RulesResult{}, fmt.Errorf("line %d: %w", line, err)
		}
		if line == 1 && len(rec) > 0 {
			rec[0] = strings.TrimPrefix(rec[0], "\ufeff")
		}
		if blank(rec) {
			continue
		}
		if line == 1 && len(rec) > 1 && strings.EqualFold(strings.TrimSpace(rec[1]), "field_reference") {
			continue
		}
		if opts.MaxRows > 0 && len(res.Rows)+len(res.Errors) >= opts.MaxRows {
			return RulesResult{}, ErrTooManyRows
		}

		rule := models.ValidationRule{
			FieldReference:    cell(rec, 1),
			StatusField:       strings.ToUpper(cell(rec, 2)),
			InitialValue:      cell(rec, 3),
			RegexRule:         cell(rec, 4),
			RegexErrorMessage: cell(rec, 5),
		}
		if rule.StatusField == "" {
			rule.StatusField = DefaultStatus
		}

		switch {
		case rule.FieldReference == "":
			res.Errors = append(res.Errors, RowError{Line: line, Reason: "missing field reference"})
			continue
		case seen[rule.FieldReference]:
			res.Errors = append(res.Errors, RowError{Line: line, FieldReference: rule.FieldReference, Reason: "duplicate field reference"})
			continue
		case !fieldStatuses[rule.StatusField]:
			res.Errors = append(res.Errors, RowError{Line: line, FieldReference: rule.FieldReference, Reason: "invalid status " + rule.StatusField})
			continue
		}
		if rule.RegexRule != "" {
			if _, err := regexp.Compile(rule.RegexRule); err != nil {
				res.Errors = append(res.Errors, RowError{Line: line, FieldReference: rule.FieldReference, Reason: "invalid regex rule"})
				continue
			}
		}
		seen[rule.FieldReference] = true
		res.Rows = append(res.Rows, rule)
	}
	return res, nil
}

func cell(rec []string, i int) string {
	if i < len(rec) {
		return strings.TrimSpace(rec[i])
	}
	return ""
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
