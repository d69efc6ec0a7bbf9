// Package contentpostpone copies the content of a training from its
// academic year into the version of the next year.
package contentpostpone

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/catalog/internal/app/catalog/postponement"
	academicyearstore "github.com/dalemusser/catalog/internal/app/store/academicyears"
	educationgroupstore "github.com/dalemusser/catalog/internal/app/store/educationgroups"
	egystore "github.com/dalemusser/catalog/internal/app/store/educationgroupyears"
	geystore "github.com/dalemusser/catalog/internal/app/store/groupelementyears"
	learningunitstore "github.com/dalemusser/catalog/internal/app/store/learningunits"
	"github.com/dalemusser/catalog/internal/app/system/txn"
	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Result lists what a postponement wrote.
type Result struct {
	Root     models.EducationGroupYear
	Next     models.EducationGroupYear
	Edges    []models.GroupElementYear
	Branches []models.EducationGroupYear
}

// Content postpones one training. Build it with New, which checks the
// preconditions, then call Postpone once.
type Content struct {
	db       *mongo.Database
	log      *zap.Logger
	p        *postponement.Postponer
	egys     *egystore.Store
	geys     *geystore.Store
	luys     *learningunitstore.Store
	root     models.EducationGroupYear
	next     models.EducationGroupYear
	nextYear models.AcademicYear
}

func refuse(msg string) error {
	return &catalogerr.NotPostponeError{Msg: msg}
}

// New loads rootID and checks that its content can be copied to the next
// academic year. Unmet preconditions are returned as
// *catalogerr.NotPostponeError.
func New(ctx context.Context, db *mongo.Database, log *zap.Logger, p *postponement.Postponer, rootID primitive.ObjectID) (*Content, error) {
	c := &Content{
		db:   db,
		log:  log,
		p:    p,
		egys: egystore.New(db),
		geys: geystore.New(db),
		luys: learningunitstore.New(db),
	}

	root, err := c.egys.GetByID(ctx, rootID)
	if err != nil {
		return nil, err
	}
	if !root.IsTraining() {
		return nil, refuse(catalogerr.MsgNotATraining)
	}
	c.root = root

	group, err := educationgroupstore.New(db).GetByID(ctx, root.EducationGroupID)
	if err != nil {
		return nil, fmt.Errorf("load education group: %w", err)
	}
	nextYear := root.AcademicYear + 1
	if group.EndYear != nil && *group.EndYear < nextYear {
		return nil, refuse(catalogerr.MsgEndDateTooSmall)
	}

	n, err := c.geys.CountByParent(ctx, root.ID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, refuse(catalogerr.MsgNoContent)
	}

	c.nextYear, err = academicyearstore.New(db).GetByYear(ctx, nextYear)
	if errors.Is(err, catalogerr.ErrNotFound) {
		return nil, refuse(catalogerr.MsgRootMissingNextYear)
	}
	if err != nil {
		return nil, err
	}
	if c.next, err = c.instanceN1(ctx, root); err != nil {
		return nil, err
	}
	return c, nil
}

// Root returns the training being postponed.
func (c *Content) Root() models.EducationGroupYear { return c.root }

// Next returns the version of the training that receives the content.
func (c *Content) Next() models.EducationGroupYear { return c.next }

// instanceN1 returns the empty next-year version of egy.
func (c *Content) instanceN1(ctx context.Context, egy models.EducationGroupYear) (models.EducationGroupYear, error) {
	next, err := c.egys.NextYear(ctx, egy)
	if errors.Is(err, catalogerr.ErrNotFound) {
		return models.EducationGroupYear{}, refuse(catalogerr.MsgRootMissingNextYear)
	}
	if err != nil {
		return models.EducationGroupYear{}, err
	}
	n, err := c.geys.CountByParent(ctx, next.ID)
	if err != nil {
		return models.EducationGroupYear{}, err
	}
	if n > 0 {
		return models.EducationGroupYear{}, refuse(catalogerr.MsgContentAlreadyCopied)
	}
	return next, nil
}

// Postpone copies every edge of the root under its next-year version in one
// transaction. Leaves move to their next-year version when it exists.
// Branches move to their next-year version, or are duplicated into the next
// year and filled from the current branch.
func (c *Content) Postpone(ctx context.Context) (Result, error) {
	var res Result
	err := txn.Run(ctx, c.db, c.log, func(ctx context.Context) error {
		res = Result{Root: c.root, Next: c.next}
		return c.postpone(ctx, c.root, c.next, &res)
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (c *Content) postpone(ctx context.Context, from, to models.EducationGroupYear, res *Result) error {
	edges, err := c.geys.ListByParent(ctx, from.ID)
	if err != nil {
		return err
	}
	for _, old := range edges {
		gey := models.CopyEdgeAttributes(old)
		gey.ParentID = to.ID
		gey.AcademicYear = to.AcademicYear

		switch {
		case old.IsLeaf():
			leaf, err := c.nextLeaf(ctx, *old.ChildLeafID)
			if err != nil {
				return err
			}
			gey.ChildLeafID = &leaf
		case old.IsBranch():
			branch, err := c.nextBranch(ctx, *old.ChildBranchID, res)
			if err != nil {
				return err
			}
			gey.ChildBranchID = &branch
		default:
			continue
		}

		created, err := c.geys.Create(ctx, gey)
		if err != nil {
			return fmt.Errorf("copy element %s: %w", old.ID.Hex(), err)
		}
		res.Edges = append(res.Edges, created)
	}
	return nil
}

func (c *Content) nextLeaf(ctx context.Context, luyID primitive.ObjectID) (primitive.ObjectID, error) {
	luy, err := c.luys.GetYear(ctx, luyID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	next, err := c.luys.NextYear(ctx, luy)
	if errors.Is(err, catalogerr.ErrNotFound) {
		return luy.ID, nil
	}
	if err != nil {
		return primitive.NilObjectID, err
	}
	return next.ID, nil
}

func (c *Content) nextBranch(ctx context.Context, egyID primitive.ObjectID, res *Result) (primitive.ObjectID, error) {
	old, err := c.egys.GetByID(ctx, egyID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	next, err := c.egys.NextYear(ctx, old)
	if err == nil {
		return next.ID, nil
	}
	if !errors.Is(err, catalogerr.ErrNotFound) {
		return primitive.NilObjectID, err
	}

	next, _, err = c.p.Duplicate(ctx, old, c.nextYear, nil, nil)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("duplicate %s: %w", old, err)
	}
	res.Branches = append(res.Branches, next)
	if err := c.postpone(ctx, old, next, res); err != nil {
		return primitive.NilObjectID, err
	}
	return next.ID, nil
}
