// Package attach edits the content of year-versions: it keeps a per-user
// clipboard, attaches the clipboard under a parent, detaches and reorders
// edges.
package attach

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/catalog/internal/app/catalog/prerequisite"
	"github.com/dalemusser/catalog/internal/app/catalog/tree"
	"github.com/dalemusser/catalog/internal/app/store/clipboard"
	egystore "github.com/dalemusser/catalog/internal/app/store/educationgroupyears"
	geystore "github.com/dalemusser/catalog/internal/app/store/groupelementyears"
	grouptypestore "github.com/dalemusser/catalog/internal/app/store/grouptypes"
	learningunitstore "github.com/dalemusser/catalog/internal/app/store/learningunits"
	prerequisitestore "github.com/dalemusser/catalog/internal/app/store/prerequisites"
	"github.com/dalemusser/catalog/internal/app/system/txn"
	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrNothingSelected is returned by Attach when the clipboard is empty.
var ErrNothingSelected = fmt.Errorf("%w: no element selected", catalogerr.ErrNotFound)

// MsgOrphanPrerequisites is the protection reason of a detach that would
// remove learning units referenced by prerequisites.
const MsgOrphanPrerequisites = "Prerequisites of this training reference learning units that would no longer be part of it."

// Direction of a move.
const (
	Up   = -1
	Down = 1
)

// Service runs the structure edits.
type Service struct {
	db      *mongo.Database
	log     *zap.Logger
	clip    *clipboard.Store
	egys    *egystore.Store
	geys    *geystore.Store
	luys    *learningunitstore.Store
	types   *grouptypestore.Store
	prereqs *prerequisitestore.Store
	reader  *tree.Reader
}

// New builds a Service. clip holds the per-user selections.
func New(db *mongo.Database, log *zap.Logger, clip *clipboard.Store) *Service {
	return &Service{
		db:      db,
		log:     log,
		clip:    clip,
		egys:    egystore.New(db),
		geys:    geystore.New(db),
		luys:    learningunitstore.New(db),
		types:   grouptypestore.New(db),
		prereqs: prerequisitestore.New(db),
		reader:  tree.NewReader(db),
	}
}

// Select puts the object (kind, id) in the clipboard of userID, replacing
// any previous selection.
func (s *Service) Select(ctx context.Context, userID string, kind clipboard.Kind, id primitive.ObjectID) error {
	switch kind {
	case clipboard.KindLearningUnitYear:
		if _, err := s.luys.GetYear(ctx, id); err != nil {
			return err
		}
	case clipboard.KindEducationGroupYear:
		if _, err := s.egys.GetByID(ctx, id); err != nil {
			return err
		}
	default:
		return clipboard.ErrInvalidKind
	}
	return s.clip.Select(ctx, userID, clipboard.Selection{Kind: kind, ID: id})
}

// Clear empties the clipboard of userID.
func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.clip.Clear(ctx, userID)
}

// Attach places the clipboard content of userID under parentID and clears
// the clipboard. An existing edge to the same child is returned unchanged
// with created false.
func (s *Service) Attach(ctx context.Context, userID string, parentID primitive.ObjectID) (gey models.GroupElementYear, created bool, err error) {
	sel, ok, err := s.clip.Get(ctx, userID)
	if err != nil {
		return models.GroupElementYear{}, false, err
	}
	if !ok {
		return models.GroupElementYear{}, false, ErrNothingSelected
	}

	for attempt := 1; ; attempt++ {
		gey, created, err = s.attach(ctx, userID, parentID, sel)
		if !errors.Is(err, geystore.ErrOrderContention) || attempt >= geystore.MaxOrderAttempts {
			break
		}
		s.log.Debug("order taken by a concurrent attach, retrying",
			zap.String("parent", parentID.Hex()), zap.Int("attempt", attempt))
	}
	if err != nil {
		return models.GroupElementYear{}, false, err
	}
	return gey, created, nil
}

// attach runs one attempt of Attach in a transaction.
func (s *Service) attach(ctx context.Context, userID string, parentID primitive.ObjectID, sel clipboard.Selection) (gey models.GroupElementYear, created bool, err error) {
	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		parent, err := s.egys.GetByID(ctx, parentID)
		if err != nil {
			return fmt.Errorf("load parent: %w", err)
		}
		tmpl := models.GroupElementYear{ParentID: parent.ID, AcademicYear: parent.AcademicYear}

		switch sel.Kind {
		case clipboard.KindLearningUnitYear:
			luy, err := s.luys.GetYear(ctx, sel.ID)
			if err != nil {
				return fmt.Errorf("load learning unit year: %w", err)
			}
			tmpl.ChildLeafID = &luy.ID
		case clipboard.KindEducationGroupYear:
			child, err := s.egys.GetByID(ctx, sel.ID)
			if err != nil {
				return fmt.Errorf("load child: %w", err)
			}
			if err := s.checkBranch(ctx, parent, child); err != nil {
				return err
			}
			tmpl.ChildBranchID = &child.ID
		default:
			return clipboard.ErrInvalidKind
		}

		gey, created, err = s.geys.GetOrCreate(ctx, tmpl)
		if err != nil {
			return err
		}
		return s.clip.Clear(ctx, userID)
	})
	if err != nil {
		return models.GroupElementYear{}, false, err
	}
	return gey, created, nil
}

// checkBranch refuses incompatible types, cycles and a second training
// parent.
func (s *Service) checkBranch(ctx context.Context, parent, child models.EducationGroupYear) error {
	ok, err := s.types.IsAuthorized(ctx, parent.EducationGroupTypeID, child.EducationGroupTypeID)
	if err != nil {
		return err
	}
	if !ok {
		return &catalogerr.IncompatibleTypesError{
			Child:      child.String(),
			ChildType:  child.TypeName,
			Parent:     parent.String(),
			ParentType: parent.TypeName,
		}
	}

	if child.ID == parent.ID {
		return catalogerr.ErrCycle
	}
	ascendants, err := s.reader.AscendantsOfBranch(ctx, parent.ID)
	if err != nil {
		return err
	}
	for _, id := range ascendants {
		if id == child.ID {
			return catalogerr.ErrCycle
		}
	}

	if parent.IsTraining() {
		existing, err := s.egys.ParentByTraining(ctx, child)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != parent.ID {
			return catalogerr.ErrMaximumOneParentAllowed
		}
	}
	return nil
}

// Detach deletes the edge edgeID. Removing the last reference to a branch
// is refused when prerequisites of an enclosing training use learning units
// reachable only through it.
func (s *Service) Detach(ctx context.Context, edgeID primitive.ObjectID) (models.GroupElementYear, error) {
	var gey models.GroupElementYear
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		var err error
		gey, err = s.geys.GetByID(ctx, edgeID)
		if err != nil {
			return err
		}
		if gey.IsBranch() {
			if err := s.checkOrphans(ctx, gey); err != nil {
				return err
			}
		}
		return s.geys.Delete(ctx, gey.ID)
	})
	if err != nil {
		return models.GroupElementYear{}, err
	}
	return gey, nil
}

func (s *Service) checkOrphans(ctx context.Context, gey models.GroupElementYear) error {
	refs, err := s.geys.ListByChildBranch(ctx, *gey.ChildBranchID)
	if err != nil {
		return err
	}
	if len(refs) > 1 {
		return nil
	}

	parent, err := s.egys.GetByID(ctx, gey.ParentID)
	if err != nil {
		return err
	}
	found, err := s.reader.FindLearningUnitFormations(ctx, []tree.Object{tree.BranchObject(parent)})
	if err != nil {
		return err
	}
	roots := found[parent.ID]
	if parent.IsFormation() {
		roots = append([]primitive.ObjectID{parent.ID}, roots...)
	}

	var reasons []catalogerr.ProtectedReason
	seen := map[primitive.ObjectID]bool{}
	for _, rootID := range roots {
		if seen[rootID] {
			continue
		}
		seen[rootID] = true
		protected, root, err := s.orphansPrerequisites(ctx, rootID, gey.ID)
		if err != nil {
			return err
		}
		if protected {
			reasons = append(reasons, catalogerr.ProtectedReason{
				EducationGroupYearID: root.ID.Hex(),
				Acronym:              root.Acronym,
				Year:                 models.AcademicYear{Year: root.AcademicYear}.String(),
				Messages:             []string{MsgOrphanPrerequisites},
			})
		}
	}
	if len(reasons) > 0 {
		return &catalogerr.ProtectedError{Reasons: reasons}
	}
	return nil
}

// orphansPrerequisites reports whether removing edgeID from rootID's tree
// drops a learning unit that one of rootID's prerequisites uses.
func (s *Service) orphansPrerequisites(ctx context.Context, rootID, edgeID primitive.ObjectID) (bool, models.EducationGroupYear, error) {
	t, err := s.reader.Load(ctx, rootID)
	if err != nil {
		return false, models.EducationGroupYear{}, err
	}
	kept := t.LeavesExcluding(edgeID)
	dropped := map[primitive.ObjectID]bool{}
	keptAcronyms := map[string]bool{}
	for id, luy := range t.Leaves {
		if kept[id] {
			keptAcronyms[luy.Acronym] = true
		} else {
			dropped[id] = true
		}
	}
	if len(dropped) == 0 {
		return false, t.Root, nil
	}

	rows, err := s.prereqs.ListByRoot(ctx, rootID)
	if err != nil {
		return false, models.EducationGroupYear{}, err
	}
	for _, p := range rows {
		if p.Expression == "" {
			continue
		}
		if dropped[p.LearningUnitYearID] {
			return true, t.Root, nil
		}
		for _, a := range prerequisite.ExtractAcronyms(p.Expression) {
			if !keptAcronyms[a] {
				return true, t.Root, nil
			}
		}
	}
	return false, t.Root, nil
}

// Move swaps edgeID with its previous (Up) or next (Down) sibling. At either
// end of the list the edge is returned unchanged.
func (s *Service) Move(ctx context.Context, edgeID primitive.ObjectID, dir int) (models.GroupElementYear, error) {
	var moved models.GroupElementYear
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		gey, err := s.geys.GetByID(ctx, edgeID)
		if err != nil {
			return err
		}
		moved = gey
		sib, err := s.geys.Sibling(ctx, gey, dir)
		if errors.Is(err, catalogerr.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.geys.SwapOrder(ctx, gey, sib); err != nil {
			return err
		}
		moved.Order = sib.Order
		return nil
	})
	if err != nil {
		return models.GroupElementYear{}, err
	}
	return moved, nil
}

// MoveUp moves edgeID one place towards the start of its parent's list.
func (s *Service) MoveUp(ctx context.Context, edgeID primitive.ObjectID) (models.GroupElementYear, error) {
	return s.Move(ctx, edgeID, Up)
}

// MoveDown moves edgeID one place towards the end of its parent's list.
func (s *Service) MoveDown(ctx context.Context, edgeID primitive.ObjectID) (models.GroupElementYear, error) {
	return s.Move(ctx, edgeID, Down)
}
