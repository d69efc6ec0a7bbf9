package postponement

import (
	"context"
	"errors"
	"fmt"

	egystore "github.com/dalemusser/catalog/internal/app/store/educationgroupyears"
	"github.com/dalemusser/catalog/internal/app/system/txn"
	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ElementError is the failure of one year-version during a batch run.
type ElementError struct {
	Source models.EducationGroupYear
	Err    error
}

// Result describes one batch run. Before the run only the partition is set.
type Result struct {
	RunID             string
	Target            models.AcademicYear
	ToDuplicate       []models.EducationGroupYear
	AlreadyDuplicated []models.EducationGroupYear
	NotDuplicated     []models.EducationGroupYear
	Created           []models.EducationGroupYear
	Errors            []ElementError
}

// Message summarises the run for operators.
func (r Result) Message() string {
	return fmt.Sprintf("%d education group(s) extended and %d error(s)", len(r.Created), len(r.Errors))
}

// ErrorLabels names the year-versions that failed.
func (r Result) ErrorLabels() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.Source.String())
	}
	return out
}

// Sink receives the statistics of a run before and after it executes.
type Sink interface {
	SendBefore(ctx context.Context, r Result)
	SendAfter(ctx context.Context, r Result)
}

// Runner executes the yearly extension of trainings to the furthest year.
type Runner struct {
	*Postponer
	sink Sink
}

// NewRunner creates a Runner reporting to sink. sink may be nil.
func NewRunner(p *Postponer, sink Sink) *Runner {
	return &Runner{Postponer: p, sink: sink}
}

// Partition computes the target year and splits the version of the
// penultimate year matching f. GROUP versions are never postponed.
func (r *Runner) Partition(ctx context.Context, f egystore.Filter) (Result, error) {
	var res Result

	target, err := r.cal.MaxAdjournment(ctx)
	if err != nil {
		return res, fmt.Errorf("resolve target year: %w", err)
	}
	penultimate, err := r.years.Past(ctx, target)
	if err != nil {
		return res, fmt.Errorf("resolve penultimate year: %w", err)
	}
	res.Target = target

	f.AcademicYear = &penultimate.Year
	f.ExcludeCategories = append(f.ExcludeCategories, models.CategoryGroup)
	f.Limit = 0
	candidates, err := r.egys.Search(ctx, f)
	if err != nil {
		return res, err
	}

	groupIDs := make([]primitive.ObjectID, 0, len(candidates))
	for _, egy := range candidates {
		groupIDs = append(groupIDs, egy.EducationGroupID)
	}
	present, err := r.egys.GroupsWithYear(ctx, groupIDs, target.Year)
	if err != nil {
		return res, err
	}
	groups, err := r.groups.GetByIDs(ctx, groupIDs)
	if err != nil {
		return res, err
	}

	for _, egy := range candidates {
		already := present[egy.EducationGroupID]
		ended := groups[egy.EducationGroupID].EndsBefore(target.Year)
		if already {
			res.AlreadyDuplicated = append(res.AlreadyDuplicated, egy)
		}
		if ended {
			res.NotDuplicated = append(res.NotDuplicated, egy)
		}
		if !already && !ended {
			res.ToDuplicate = append(res.ToDuplicate, egy)
		}
	}
	return res, nil
}

// Run extends every version to duplicate into the target year, each in its
// own transaction. A failing element is recorded and the run continues; only
// cancellation stops it early.
func (r *Runner) Run(ctx context.Context, f egystore.Filter) (Result, error) {
	res, err := r.Partition(ctx, f)
	if err != nil {
		return res, err
	}
	res.RunID = uuid.NewString()

	log := r.log.With(zap.String("run_id", res.RunID), zap.Int("target_year", res.Target.Year))
	log.Info("year postponement starting",
		zap.Int("to_duplicate", len(res.ToDuplicate)),
		zap.Int("already_duplicated", len(res.AlreadyDuplicated)),
		zap.Int("not_duplicated", len(res.NotDuplicated)))

	if r.sink != nil {
		r.sink.SendBefore(ctx, res)
	}

	for _, src := range res.ToDuplicate {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		var created models.EducationGroupYear
		err := txn.Run(ctx, r.db, r.log, func(ctx context.Context) error {
			var err error
			created, _, err = r.Duplicate(ctx, src, res.Target, nil, nil)
			return err
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return res, err
			}
			res.Errors = append(res.Errors, ElementError{Source: src, Err: err})
			level := log.Error
			if catalogerr.IsBatchRecoverable(err) {
				level = log.Warn
			}
			level("year postponement element failed",
				zap.String("education_group_year", src.String()),
				zap.Error(err))
			continue
		}
		res.Created = append(res.Created, created)
	}

	log.Info("year postponement finished", zap.String("result", res.Message()))
	if r.sink != nil {
		r.sink.SendAfter(ctx, res)
	}
	return res, nil
}
