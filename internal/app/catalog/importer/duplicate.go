package importer

import (
	"context"
	"errors"
	"fmt"

	egystore "github.com/dalemusser/catalog/internal/app/store/educationgroupyears"
	"github.com/dalemusser/catalog/internal/app/system/txn"
	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"go.uber.org/zap"
)

// DuplicateReport summarises a year-to-year admission copy.
type DuplicateReport struct {
	Copied        int
	MissingSource int
	MissingTarget int
}

// Details renders the report for the audit trail.
func (r DuplicateReport) Details() map[string]string {
	return map[string]string{
		"copied":         fmt.Sprint(r.Copied),
		"missing_source": fmt.Sprint(r.MissingSource),
		"missing_target": fmt.Sprint(r.MissingTarget),
	}
}

// DuplicateAdmission copies the admission condition of every year-version
// of fromYear, texts and lines, onto the version of the same education group
// in toYear. Versions without admission condition or without a toYear
// counterpart are counted and skipped.
func (im *Importer) DuplicateAdmission(ctx context.Context, fromYear, toYear int) (DuplicateReport, error) {
	if fromYear == toYear {
		return DuplicateReport{}, fmt.Errorf("source and target year are both %d", fromYear)
	}
	sources, err := im.egys.Search(ctx, egystore.Filter{AcademicYear: &fromYear})
	if err != nil {
		return DuplicateReport{}, err
	}

	var rep DuplicateReport
	err = txn.Run(ctx, im.db, im.log, func(ctx context.Context) error {
		rep = DuplicateReport{}
		for _, src := range sources {
			dst, err := im.egys.FindByGroupAndYear(ctx, src.EducationGroupID, toYear)
			if errors.Is(err, catalogerr.ErrNotFound) {
				rep.MissingTarget++
				continue
			}
			if err != nil {
				return err
			}
			err = im.admissions.Duplicate(ctx, src.ID, dst.ID)
			if errors.Is(err, catalogerr.ErrNotFound) {
				rep.MissingSource++
				continue
			}
			if err != nil {
				return fmt.Errorf("%s: %w", src, err)
			}
			rep.Copied++
		}
		return nil
	})
	if err != nil {
		return DuplicateReport{}, err
	}
	im.log.Info("admission conditions duplicated",
		zap.Int("from", fromYear), zap.Int("to", toYear), zap.Int("copied", rep.Copied))
	return rep, nil
}
