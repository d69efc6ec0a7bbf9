package prerequisite

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	egystore "github.com/dalemusser/catalog/internal/app/store/educationgroupyears"
	geystore "github.com/dalemusser/catalog/internal/app/store/groupelementyears"
	learningunitstore "github.com/dalemusser/catalog/internal/app/store/learningunits"
	prerequisitestore "github.com/dalemusser/catalog/internal/app/store/prerequisites"
	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Validation fields of Save.
const (
	FieldPrerequisite = "prerequisite"
	FieldRoot         = "education_group_year"
	FieldLearningUnit = "learning_unit_year"
)

// Engine checks prerequisites against the content of their training.
type Engine struct {
	egys    *egystore.Store
	geys    *geystore.Store
	luys    *learningunitstore.Store
	prereqs *prerequisitestore.Store
}

// NewEngine builds an Engine over db.
func NewEngine(db *mongo.Database) *Engine {
	return &Engine{
		egys:    egystore.New(db),
		geys:    geystore.New(db),
		luys:    learningunitstore.New(db),
		prereqs: prerequisitestore.New(db),
	}
}

// AcronymsReachableFrom returns the acronyms of every learning unit year
// attached anywhere under rootID. The descent reads one level of edges per
// query.
func (e *Engine) AcronymsReachableFrom(ctx context.Context, rootID primitive.ObjectID) (map[string]bool, error) {
	seen := map[primitive.ObjectID]bool{rootID: true}
	frontier := []primitive.ObjectID{rootID}
	var leafIDs []primitive.ObjectID
	leafSeen := map[primitive.ObjectID]bool{}

	for len(frontier) > 0 {
		edges, err := e.geys.ListByParents(ctx, frontier)
		if err != nil {
			return nil, fmt.Errorf("load edges: %w", err)
		}
		frontier = frontier[:0]
		for _, g := range edges {
			switch {
			case g.IsLeaf() && !leafSeen[*g.ChildLeafID]:
				leafSeen[*g.ChildLeafID] = true
				leafIDs = append(leafIDs, *g.ChildLeafID)
			case g.IsBranch() && !seen[*g.ChildBranchID]:
				seen[*g.ChildBranchID] = true
				frontier = append(frontier, *g.ChildBranchID)
			}
		}
	}

	out := make(map[string]bool, len(leafIDs))
	if len(leafIDs) == 0 {
		return out, nil
	}
	luys, err := e.luys.GetYears(ctx, leafIDs)
	if err != nil {
		return nil, fmt.Errorf("load learning units: %w", err)
	}
	for _, luy := range luys {
		out[luy.Acronym] = true
	}
	return out, nil
}

// OutsideOfRoot returns the acronyms not reachable from rootID, sorted and
// without duplicates.
func (e *Engine) OutsideOfRoot(ctx context.Context, rootID primitive.ObjectID, acronyms []string) ([]string, error) {
	if len(acronyms) == 0 {
		return nil, nil
	}
	inside, err := e.AcronymsReachableFrom(ctx, rootID)
	if err != nil {
		return nil, err
	}
	set := map[string]bool{}
	for _, a := range acronyms {
		if !inside[a] {
			set[a] = true
		}
	}
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Strings(out)
	return out, nil
}

// OutsideOfRootFor applies OutsideOfRoot to the acronyms of p.
func (e *Engine) OutsideOfRootFor(ctx context.Context, p models.Prerequisite) ([]string, error) {
	return e.OutsideOfRoot(ctx, p.EducationGroupYearID, ExtractAcronyms(p.Expression))
}

// Save validates expr and stores it as the prerequisite of luyID inside
// rootID, replacing any previous one. The root must be a training that
// contains luyID. Failures of these checks are returned as
// *catalogerr.ValidationError on FieldRoot or FieldLearningUnit; syntax and
// scope failures on FieldPrerequisite.
func (e *Engine) Save(ctx context.Context, rootID, luyID primitive.ObjectID, expr string) (models.Prerequisite, error) {
	root, err := e.egys.GetByID(ctx, rootID)
	if err != nil {
		return models.Prerequisite{}, fmt.Errorf("load root: %w", err)
	}
	luy, err := e.luys.GetYear(ctx, luyID)
	if err != nil {
		return models.Prerequisite{}, fmt.Errorf("load learning unit year: %w", err)
	}
	if !root.IsTraining() {
		ve := catalogerr.NewValidationError()
		ve.Add(FieldRoot, fmt.Sprintf("%s is not a training.", root.Acronym))
		return models.Prerequisite{}, ve
	}

	inside, err := e.AcronymsReachableFrom(ctx, rootID)
	if err != nil {
		return models.Prerequisite{}, err
	}
	if !inside[luy.Acronym] {
		ve := catalogerr.NewValidationError()
		ve.Add(FieldLearningUnit, fmt.Sprintf("The learning unit %s is not inside the formation %s.", luy.Acronym, root.Acronym))
		return models.Prerequisite{}, ve
	}

	normalized, err := Normalize(expr)
	if err != nil {
		ve := catalogerr.NewValidationError()
		ve.Add(FieldPrerequisite, rootMessage(err))
		return models.Prerequisite{}, ve
	}

	var outside []string
	seen := map[string]bool{}
	for _, a := range ExtractAcronyms(normalized) {
		if !inside[a] && !seen[a] {
			seen[a] = true
			outside = append(outside, a)
		}
	}
	if len(outside) > 0 {
		sort.Strings(outside)
		ve := catalogerr.NewValidationError()
		ve.Add(FieldPrerequisite, outsideMessage(outside, root))
		return models.Prerequisite{}, ve
	}

	return e.prereqs.Upsert(ctx, rootID, luyID, normalized)
}

func outsideMessage(outside []string, root models.EducationGroupYear) string {
	if len(outside) == 1 {
		return fmt.Sprintf("The learning unit %s is not inside the formation %s.", outside[0], root.Acronym)
	}
	return fmt.Sprintf("The learning units %s are not inside the formation %s.", strings.Join(outside, ", "), root.Acronym)
}

// rootMessage returns the operator message of a grammar error without the
// wrapped detail.
func rootMessage(err error) string {
	for _, known := range []error{
		ErrAcronymWithSpaces, ErrMultipleMainOperators, ErrSameOperators,
		ErrGroupTooSmall, ErrSingleInParentheses, ErrSyntax,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return err.Error()
}
