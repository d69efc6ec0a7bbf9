// Package postponement copies year-versions forward in time: the yearly batch
// that extends every training to the furthest open year, and the forward
// propagation of an edit to the later years of the same group.
package postponement

import (
	"context"
	"errors"

	"github.com/dalemusser/catalog/internal/app/catalog/academiccal"
	academicyearstore "github.com/dalemusser/catalog/internal/app/store/academicyears"
	educationgroupstore "github.com/dalemusser/catalog/internal/app/store/educationgroups"
	egystore "github.com/dalemusser/catalog/internal/app/store/educationgroupyears"
	"github.com/dalemusser/catalog/internal/app/system/txn"
	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Postponer duplicates year-versions into later academic years.
type Postponer struct {
	db     *mongo.Database
	log    *zap.Logger
	cal    *academiccal.Calendar
	years  *academicyearstore.Store
	groups *educationgroupstore.Store
	egys   *egystore.Store
}

// New creates a Postponer.
func New(db *mongo.Database, log *zap.Logger, cal *academiccal.Calendar) *Postponer {
	return &Postponer{
		db:     db,
		log:    log,
		cal:    cal,
		years:  academicyearstore.New(db),
		groups: educationgroupstore.New(db),
		egys:   egystore.New(db),
	}
}

// Duplicate gets or creates the version of src's group in target.
//
// On creation the postponed fields of values (src when nil) and the links of
// src are copied. When the target already exists and initial is given, the
// target must still equal initial on every postponed field, otherwise a
// *catalogerr.ConsistencyError is returned and nothing is written; the target
// is then overwritten with values.
func (p *Postponer) Duplicate(ctx context.Context, src models.EducationGroupYear, target models.AcademicYear, values, initial *models.EducationGroupYear) (egy models.EducationGroupYear, created bool, err error) {
	newValues := src
	if values != nil {
		newValues = *values
	}

	existing, err := p.egys.FindByGroupAndYear(ctx, src.EducationGroupID, target.Year)
	if errors.Is(err, catalogerr.ErrNotFound) {
		egy = models.EducationGroupYear{
			EducationGroupID: src.EducationGroupID,
			AcademicYearID:   target.ID,
			AcademicYear:     target.Year,
		}
		models.CopyPostponedFields(&egy, newValues)
		models.CopyLinks(&egy, src)
		egy, err = p.egys.Create(ctx, egy)
		return egy, err == nil, err
	}
	if err != nil {
		return models.EducationGroupYear{}, false, err
	}

	if initial != nil {
		if diffs := models.PostponedDifferences(*initial, existing); len(diffs) > 0 {
			return models.EducationGroupYear{}, false, &catalogerr.ConsistencyError{
				TargetID:    existing.ID.Hex(),
				Year:        target.String(),
				Differences: diffs,
			}
		}
	}

	models.CopyPostponedFields(&existing, newValues)
	models.CopyLinks(&existing, src)
	egy, err = p.egys.Update(ctx, existing)
	return egy, false, err
}

// ComputeEndYear returns the last year an edit of group is propagated to:
// the postponement horizon capped by the group's end year, but never before
// the latest version already stored.
func (p *Postponer) ComputeEndYear(ctx context.Context, group models.EducationGroup) (int, error) {
	end, err := p.cal.MaxAdjournmentYear(ctx)
	if err != nil {
		return 0, err
	}
	if group.EndYear != nil && *group.EndYear < end {
		end = *group.EndYear
	}

	latest, err := p.egys.LatestForGroup(ctx, group.ID)
	if errors.Is(err, catalogerr.ErrNotFound) {
		return end, nil
	}
	if err != nil {
		return 0, err
	}
	if latest.AcademicYear > end {
		end = latest.AcademicYear
	}
	return end, nil
}

// Propagation is the outcome of forwarding an edit.
type Propagation struct {
	Postponed []models.EducationGroupYear
	Warnings  []string
}

// Propagate forwards the postponed fields of egy to every later year of its
// group up to ComputeEndYear. Years whose version diverged from initial are
// skipped and reported as warnings.
func (p *Postponer) Propagate(ctx context.Context, egy models.EducationGroupYear, initial *models.EducationGroupYear) (Propagation, error) {
	var out Propagation

	group, err := p.groups.GetByID(ctx, egy.EducationGroupID)
	if err != nil {
		return out, err
	}
	end, err := p.ComputeEndYear(ctx, group)
	if err != nil {
		return out, err
	}
	years, err := p.years.List(ctx)
	if err != nil {
		return out, err
	}

	for _, y := range years {
		if y.Year <= egy.AcademicYear || y.Year > end {
			continue
		}
		postponed, _, err := p.Duplicate(ctx, egy, y, &egy, initial)
		var ce *catalogerr.ConsistencyError
		if errors.As(err, &ce) {
			out.Warnings = append(out.Warnings, ce.Warnings()...)
			continue
		}
		if err != nil {
			return out, err
		}
		out.Postponed = append(out.Postponed, postponed)
	}
	return out, nil
}

// Save updates egy and propagates the change forward, in one transaction.
func (p *Postponer) Save(ctx context.Context, egy models.EducationGroupYear) (models.EducationGroupYear, Propagation, error) {
	var (
		saved models.EducationGroupYear
		out   Propagation
	)
	err := txn.Run(ctx, p.db, p.log, func(ctx context.Context) error {
		initial, err := p.egys.GetByID(ctx, egy.ID)
		if err != nil {
			return err
		}
		saved, err = p.egys.Update(ctx, egy)
		if err != nil {
			return err
		}
		out, err = p.Propagate(ctx, saved, &initial)
		return err
	})
	if err != nil {
		return models.EducationGroupYear{}, Propagation{}, err
	}
	return saved, out, nil
}
