package tree

import (
	"context"
	"fmt"

	egystore "github.com/dalemusser/catalog/internal/app/store/educationgroupyears"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Object is an input of FindLearningUnitFormations: a learning unit year
// (Leaf) or an education group year.
type Object struct {
	ID           primitive.ObjectID
	Leaf         bool
	AcademicYear int
}

// LeafObject wraps a learning unit year.
func LeafObject(luy models.LearningUnitYear) Object {
	return Object{ID: luy.ID, Leaf: true, AcademicYear: luy.AcademicYear}
}

// BranchObject wraps an education group year.
func BranchObject(egy models.EducationGroupYear) Object {
	return Object{ID: egy.ID, AcademicYear: egy.AcademicYear}
}

// FindLearningUnitFormations returns, per object, the nearest enclosing
// formations: trainings and mini-trainings other than options. The upward
// walk stops on each path at the first formation. A branch without parent
// is its own root; a leaf without parent has none.
func (r *Reader) FindLearningUnitFormations(ctx context.Context, objects []Object) (map[primitive.ObjectID][]primitive.ObjectID, error) {
	out := make(map[primitive.ObjectID][]primitive.ObjectID, len(objects))
	if len(objects) == 0 {
		return out, nil
	}
	year := objects[0].AcademicYear
	for _, o := range objects[1:] {
		if o.Leaf != objects[0].Leaf {
			return nil, ErrMixedObjects
		}
		if o.AcademicYear != year {
			return nil, ErrMixedAcademicYears
		}
	}

	edges, err := r.geys.ListByYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("load edges: %w", err)
	}
	branchParents := map[primitive.ObjectID][]primitive.ObjectID{}
	leafParents := map[primitive.ObjectID][]primitive.ObjectID{}
	for _, g := range edges {
		switch {
		case g.IsBranch():
			branchParents[*g.ChildBranchID] = append(branchParents[*g.ChildBranchID], g.ParentID)
		case g.IsLeaf():
			leafParents[*g.ChildLeafID] = append(leafParents[*g.ChildLeafID], g.ParentID)
		}
	}

	candidates, err := r.egys.Search(ctx, egystore.Filter{
		AcademicYear: &year,
		Categories:   []string{models.CategoryTraining, models.CategoryMiniTraining},
	})
	if err != nil {
		return nil, fmt.Errorf("load formations: %w", err)
	}
	formation := make(map[primitive.ObjectID]bool, len(candidates))
	for _, egy := range candidates {
		if egy.IsFormation() {
			formation[egy.ID] = true
		}
	}

	var rootsOf func(id primitive.ObjectID, parents []primitive.ObjectID, leaf bool, onPath map[primitive.ObjectID]bool) []primitive.ObjectID
	rootsOf = func(id primitive.ObjectID, parents []primitive.ObjectID, leaf bool, onPath map[primitive.ObjectID]bool) []primitive.ObjectID {
		if len(parents) == 0 {
			if leaf {
				return nil
			}
			return []primitive.ObjectID{id}
		}
		var roots []primitive.ObjectID
		for _, p := range parents {
			if formation[p] {
				roots = append(roots, p)
				continue
			}
			if onPath[p] {
				continue
			}
			onPath[p] = true
			roots = append(roots, rootsOf(p, branchParents[p], false, onPath)...)
			delete(onPath, p)
		}
		return roots
	}

	for _, o := range objects {
		parents := branchParents[o.ID]
		if o.Leaf {
			parents = leafParents[o.ID]
		}
		out[o.ID] = distinct(rootsOf(o.ID, parents, o.Leaf, map[primitive.ObjectID]bool{o.ID: true}))
	}
	return out, nil
}

func distinct(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
