package importer

import (
	"context"
	"fmt"
	"io"
	"strings"

	validationrulestore "github.com/dalemusser/catalog/internal/app/store/validationrules"
	"github.com/dalemusser/catalog/internal/app/system/csvutil"
	"github.com/dalemusser/catalog/internal/app/system/txn"
)

// RulesReport summarises a validation rule load.
type RulesReport struct {
	Created int
	Updated int
}

// Details renders the report for the audit trail.
func (r RulesReport) Details() map[string]string {
	return map[string]string{
		"created": fmt.Sprint(r.Created),
		"updated": fmt.Sprint(r.Updated),
	}
}

// RowsError lists the rejected lines of a rule file. Nothing is stored when
// it is returned.
type RowsError struct {
	Rows []csvutil.RowError
}

func (e *RowsError) Error() string {
	parts := make([]string, 0, len(e.Rows))
	for _, r := range e.Rows {
		parts = append(parts, r.String())
	}
	return "invalid rule rows: " + strings.Join(parts, "; ")
}

// ImportRules upserts every validation rule of a CSV file by field
// reference.
func (im *Importer) ImportRules(ctx context.Context, r io.Reader) (RulesReport, error) {
	parsed, err := csvutil.ParseRulesCSV(r, csvutil.DefaultParseOptions())
	if err != nil {
		return RulesReport{}, err
	}
	if parsed.HasErrors() {
		return RulesReport{}, &RowsError{Rows: parsed.Errors}
	}

	store := validationrulestore.New(im.db)
	var rep RulesReport
	err = txn.Run(ctx, im.db, im.log, func(ctx context.Context) error {
		rep = RulesReport{}
		for _, rule := range parsed.Rows {
			created, err := store.Upsert(ctx, rule)
			if err != nil {
				return fmt.Errorf("%s: %w", rule.FieldReference, err)
			}
			if created {
				rep.Created++
			} else {
				rep.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return RulesReport{}, err
	}
	return rep, nil
}
