// internal/app/catalog/tree/tree.go
package tree

import (
	"context"
	"errors"
	"fmt"

	egystore "github.com/dalemusser/catalog/internal/app/store/educationgroupyears"
	geystore "github.com/dalemusser/catalog/internal/app/store/groupelementyears"
	learningunitstore "github.com/dalemusser/catalog/internal/app/store/learningunits"
	prerequisitestore "github.com/dalemusser/catalog/internal/app/store/prerequisites"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrMixedObjects is returned when formation lookup receives both
	// learning unit years and education group years.
	ErrMixedObjects = errors.New("all objects must be of the same kind: learning unit years or education group years")

	// ErrMixedAcademicYears is returned when formation lookup receives
	// objects from more than one academic year.
	ErrMixedAcademicYears = errors.New("the structure can only be loaded for one academic year")
)

// Edge is a parent to child link as seen from one root.
type Edge struct {
	models.GroupElementYear
	// HasPrerequisites is set on leaf edges that carry a non-empty
	// prerequisite bound to the root.
	HasPrerequisites bool
}

// Tree is the content of a root year-version. Children lists the edges of
// each parent in order; Branches and Leaves hold the referenced nodes.
type Tree struct {
	Root     models.EducationGroupYear
	Children map[primitive.ObjectID][]Edge
	Branches map[primitive.ObjectID]models.EducationGroupYear
	Leaves   map[primitive.ObjectID]models.LearningUnitYear
}

// ChildrenOf returns the ordered edges under parentID.
func (t *Tree) ChildrenOf(parentID primitive.ObjectID) []Edge {
	return t.Children[parentID]
}

// Edges returns every edge of the tree, parents before children.
func (t *Tree) Edges() []Edge {
	var out []Edge
	t.Walk(func(_ primitive.ObjectID, e Edge, _ int) {
		out = append(out, e)
	})
	return out
}

// Walk visits the edges depth-first in order. A branch already on the
// current path is not entered again.
func (t *Tree) Walk(fn func(parentID primitive.ObjectID, e Edge, depth int)) {
	onPath := map[primitive.ObjectID]bool{t.Root.ID: true}
	var visit func(parentID primitive.ObjectID, depth int)
	visit = func(parentID primitive.ObjectID, depth int) {
		for _, e := range t.Children[parentID] {
			fn(parentID, e, depth)
			if !e.IsBranch() || onPath[*e.ChildBranchID] {
				continue
			}
			onPath[*e.ChildBranchID] = true
			visit(*e.ChildBranchID, depth+1)
			delete(onPath, *e.ChildBranchID)
		}
	}
	visit(t.Root.ID, 0)
}

// LeafAcronyms returns the distinct acronyms of the learning unit years
// reachable from the root.
func (t *Tree) LeafAcronyms() map[string]bool {
	out := make(map[string]bool, len(t.Leaves))
	for _, luy := range t.Leaves {
		out[luy.Acronym] = true
	}
	return out
}

// LeavesExcluding returns the learning unit years still reachable from the
// root when the edge skipID is ignored.
func (t *Tree) LeavesExcluding(skipID primitive.ObjectID) map[primitive.ObjectID]bool {
	out := map[primitive.ObjectID]bool{}
	seen := map[primitive.ObjectID]bool{t.Root.ID: true}
	queue := []primitive.ObjectID{t.Root.ID}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for _, e := range t.Children[parent] {
			if e.ID == skipID {
				continue
			}
			switch {
			case e.IsLeaf():
				out[*e.ChildLeafID] = true
			case e.IsBranch() && !seen[*e.ChildBranchID]:
				seen[*e.ChildBranchID] = true
				queue = append(queue, *e.ChildBranchID)
			}
		}
	}
	return out
}

// Reader loads trees with a fixed number of round-trips per root.
type Reader struct {
	egys    *egystore.Store
	geys    *geystore.Store
	luys    *learningunitstore.Store
	prereqs *prerequisitestore.Store
}

// NewReader builds a Reader over db.
func NewReader(db *mongo.Database) *Reader {
	return &Reader{
		egys:    egystore.New(db),
		geys:    geystore.New(db),
		luys:    learningunitstore.New(db),
		prereqs: prerequisitestore.New(db),
	}
}

// Load reads the tree under rootID. All edges of the root's academic year
// are fetched in one query and the sub-tree is assembled in memory.
func (r *Reader) Load(ctx context.Context, rootID primitive.ObjectID) (*Tree, error) {
	root, err := r.egys.GetByID(ctx, rootID)
	if err != nil {
		return nil, fmt.Errorf("load root: %w", err)
	}
	return r.LoadRoot(ctx, root)
}

// LoadRoot is Load for a root already in hand.
func (r *Reader) LoadRoot(ctx context.Context, root models.EducationGroupYear) (*Tree, error) {
	all, err := r.geys.ListByYear(ctx, root.AcademicYear)
	if err != nil {
		return nil, fmt.Errorf("load edges: %w", err)
	}
	byParent := make(map[primitive.ObjectID][]models.GroupElementYear)
	for _, g := range all {
		byParent[g.ParentID] = append(byParent[g.ParentID], g)
	}

	withPrereq, err := r.prereqs.LeavesWithPrerequisites(ctx, root.ID)
	if err != nil {
		return nil, fmt.Errorf("load prerequisites: %w", err)
	}

	t := &Tree{
		Root:     root,
		Children: make(map[primitive.ObjectID][]Edge),
		Branches: make(map[primitive.ObjectID]models.EducationGroupYear),
		Leaves:   make(map[primitive.ObjectID]models.LearningUnitYear),
	}

	var branchIDs, leafIDs []primitive.ObjectID
	seenBranch := map[primitive.ObjectID]bool{root.ID: true}
	seenLeaf := map[primitive.ObjectID]bool{}
	queue := []primitive.ObjectID{root.ID}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for _, g := range byParent[parent] {
			e := Edge{GroupElementYear: g}
			switch {
			case g.IsLeaf():
				e.HasPrerequisites = withPrereq[*g.ChildLeafID]
				if !seenLeaf[*g.ChildLeafID] {
					seenLeaf[*g.ChildLeafID] = true
					leafIDs = append(leafIDs, *g.ChildLeafID)
				}
			case g.IsBranch():
				if !seenBranch[*g.ChildBranchID] {
					seenBranch[*g.ChildBranchID] = true
					branchIDs = append(branchIDs, *g.ChildBranchID)
					queue = append(queue, *g.ChildBranchID)
				}
			}
			t.Children[parent] = append(t.Children[parent], e)
		}
	}

	if len(branchIDs) > 0 {
		if t.Branches, err = r.egys.GetByIDs(ctx, branchIDs); err != nil {
			return nil, fmt.Errorf("load branches: %w", err)
		}
	}
	if len(leafIDs) > 0 {
		if t.Leaves, err = r.luys.GetYears(ctx, leafIDs); err != nil {
			return nil, fmt.Errorf("load leaves: %w", err)
		}
	}
	return t, nil
}

// AscendantsOfBranch returns the distinct year-versions reachable upward
// from egyID through child_branch edges, nearest first.
func (r *Reader) AscendantsOfBranch(ctx context.Context, egyID primitive.ObjectID) ([]primitive.ObjectID, error) {
	var out []primitive.ObjectID
	seen := map[primitive.ObjectID]bool{}
	frontier := []primitive.ObjectID{egyID}
	for len(frontier) > 0 {
		edges, err := r.geys.ListByChildBranches(ctx, frontier)
		if err != nil {
			return nil, fmt.Errorf("load parents: %w", err)
		}
		frontier = frontier[:0]
		for _, g := range edges {
			if seen[g.ParentID] {
				continue
			}
			seen[g.ParentID] = true
			out = append(out, g.ParentID)
			frontier = append(frontier, g.ParentID)
		}
	}
	return out, nil
}
