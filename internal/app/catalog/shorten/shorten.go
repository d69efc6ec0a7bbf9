package shorten

import (
	"context"
	"errors"
	"fmt"

	admissionstore "github.com/dalemusser/catalog/internal/app/store/admissionconditions"
	educationgroupstore "github.com/dalemusser/catalog/internal/app/store/educationgroups"
	egystore "github.com/dalemusser/catalog/internal/app/store/educationgroupyears"
	geystore "github.com/dalemusser/catalog/internal/app/store/groupelementyears"
	prerequisitestore "github.com/dalemusser/catalog/internal/app/store/prerequisites"
	"github.com/dalemusser/catalog/internal/app/system/txn"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrNotTraining is returned by DeleteYear for a year-version that is not a
// training.
var ErrNotTraining = errors.New("only a training can be deleted this way")

// Service deletes year-versions after running the Collector.
type Service struct {
	db         *mongo.Database
	log        *zap.Logger
	collector  *Collector
	groups     *educationgroupstore.Store
	egys       *egystore.Store
	geys       *geystore.Store
	admissions *admissionstore.Store
	prereqs    *prerequisitestore.Store
}

// New builds a Service over db.
func New(db *mongo.Database, log *zap.Logger) *Service {
	return &Service{
		db:         db,
		log:        log,
		collector:  NewCollector(db),
		groups:     educationgroupstore.New(db),
		egys:       egystore.New(db),
		geys:       geystore.New(db),
		admissions: admissionstore.New(db),
		prereqs:    prerequisitestore.New(db),
	}
}

// CheckEndDate reports, without deleting anything, whether groupID can be
// shortened to untilYear. It returns a *catalogerr.ProtectedError listing
// the blocked year-versions.
func (s *Service) CheckEndDate(ctx context.Context, groupID primitive.ObjectID, untilYear int) error {
	doomed, err := s.egys.ListByGroupAfter(ctx, groupID, untilYear)
	if err != nil {
		return err
	}
	return s.collector.Check(ctx, doomed)
}

// Shorten deletes every year-version of groupID after untilYear, oldest
// first, and sets the group's end year. Nothing is deleted when any of them
// is protected. Shortening past the last existing year is a no-op.
func (s *Service) Shorten(ctx context.Context, groupID primitive.ObjectID, untilYear int) ([]models.EducationGroupYear, error) {
	var deleted []models.EducationGroupYear
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		deleted = nil
		if _, err := s.groups.GetByID(ctx, groupID); err != nil {
			return fmt.Errorf("load education group: %w", err)
		}
		doomed, err := s.egys.ListByGroupAfter(ctx, groupID, untilYear)
		if err != nil {
			return err
		}
		if len(doomed) == 0 {
			return nil
		}
		if err := s.collector.Check(ctx, doomed); err != nil {
			return err
		}
		for _, egy := range doomed {
			if err := s.deleteYear(ctx, egy); err != nil {
				return err
			}
			deleted = append(deleted, egy)
		}
		return s.groups.SetEndYear(ctx, groupID, &untilYear)
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// DeleteYear deletes a single training year-version that has no enrollment
// and no content. groupDeleted reports that it was the last version and the
// education group was removed with it.
func (s *Service) DeleteYear(ctx context.Context, egyID primitive.ObjectID) (egy models.EducationGroupYear, groupDeleted bool, err error) {
	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		egy, err = s.egys.GetByID(ctx, egyID)
		if err != nil {
			return err
		}
		if !egy.IsTraining() {
			return ErrNotTraining
		}
		if err := s.collector.Check(ctx, []models.EducationGroupYear{egy}); err != nil {
			return err
		}
		if err := s.deleteYear(ctx, egy); err != nil {
			return err
		}
		left, err := s.egys.CountByGroup(ctx, egy.EducationGroupID)
		if err != nil {
			return err
		}
		if left == 0 {
			groupDeleted = true
			return s.groups.Delete(ctx, egy.EducationGroupID)
		}
		return nil
	})
	if err != nil {
		return models.EducationGroupYear{}, false, err
	}
	return egy, groupDeleted, nil
}

// deleteYear removes egy and what it owns: the edges pointing at it, its
// admission condition and its prerequisites.
func (s *Service) deleteYear(ctx context.Context, egy models.EducationGroupYear) error {
	if _, err := s.geys.DeleteByChildBranch(ctx, egy.ID); err != nil {
		return fmt.Errorf("delete references to %s: %w", egy, err)
	}
	if err := s.admissions.DeleteByEGY(ctx, egy.ID); err != nil {
		return fmt.Errorf("delete admission condition of %s: %w", egy, err)
	}
	if _, err := s.prereqs.DeleteByEducationGroupYear(ctx, egy.ID); err != nil {
		return fmt.Errorf("delete prerequisites of %s: %w", egy, err)
	}
	return s.egys.Delete(ctx, egy.ID)
}
