// internal/domain/models/groupelementyear.go
package models

import (
	"sort"
	"strings"
	"time"

	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GroupElementYear is a typed edge from a parent year-version to exactly one
// child: another year-version (branch) or a learning unit year (leaf).
//
// AcademicYear copies the parent's year so a whole tree is read with one
// query. Order is unique among the edges of a parent.
type GroupElementYear struct {
	ID            primitive.ObjectID  `bson:"_id" json:"id"`
	ParentID      primitive.ObjectID  `bson:"parent_id" json:"parent_id"`
	ChildBranchID *primitive.ObjectID `bson:"child_branch_id,omitempty" json:"child_branch_id,omitempty"`
	ChildLeafID   *primitive.ObjectID `bson:"child_leaf_id,omitempty" json:"child_leaf_id,omitempty"`
	AcademicYear  int                 `bson:"academic_year" json:"academic_year"`

	RelativeCredits    *int     `bson:"relative_credits,omitempty" json:"relative_credits,omitempty"`
	MinCredits         *float64 `bson:"min_credits,omitempty" json:"min_credits,omitempty"`
	MaxCredits         *float64 `bson:"max_credits,omitempty" json:"max_credits,omitempty"`
	IsMandatory        bool     `bson:"is_mandatory" json:"is_mandatory"`
	Block              string   `bson:"block,omitempty" json:"block,omitempty"`
	Comment            string   `bson:"comment,omitempty" json:"comment,omitempty"`
	CommentEnglish     string   `bson:"comment_english,omitempty" json:"comment_english,omitempty"`
	OwnComment         string   `bson:"own_comment,omitempty" json:"own_comment,omitempty"`
	SessionsDerogation string   `bson:"sessions_derogation,omitempty" json:"sessions_derogation,omitempty"`
	MinorAccess        bool     `bson:"minor_access" json:"minor_access"`
	Order              int      `bson:"order" json:"order"`

	ChangedAt time.Time `bson:"changed_at" json:"changed_at"`
}

// IsLeaf reports whether the edge points at a learning unit year.
func (g GroupElementYear) IsLeaf() bool { return g.ChildLeafID != nil }

// IsBranch reports whether the edge points at a year-version.
func (g GroupElementYear) IsBranch() bool { return g.ChildBranchID != nil }

// ChildID returns whichever child is set.
func (g GroupElementYear) ChildID() primitive.ObjectID {
	if g.ChildBranchID != nil {
		return *g.ChildBranchID
	}
	if g.ChildLeafID != nil {
		return *g.ChildLeafID
	}
	return primitive.NilObjectID
}

// Validate enforces the single-child rule and the block format.
func (g GroupElementYear) Validate() error {
	ve := catalogerr.NewValidationError()
	if (g.ChildBranchID == nil) == (g.ChildLeafID == nil) {
		ve.Add("__all__", "An element must have exactly one child: an education group or a learning unit.")
	}
	if g.ParentID.IsZero() {
		ve.Add("parent_id", "This field is required.")
	}
	if g.Block != "" && NormalizeBlock(g.Block) != g.Block {
		ve.Add("block", "The block must list distinct digits between 1 and 6 in increasing order.")
	}
	if g.MinCredits != nil && g.MaxCredits != nil && *g.MinCredits > *g.MaxCredits {
		ve.Add("max_credits", "The maximum must be greater than or equal to the minimum.")
	}
	return ve.OrNil()
}

// NormalizeBlock keeps the digits 1..6 of s, deduplicated and sorted.
func NormalizeBlock(s string) string {
	seen := map[rune]bool{}
	var digits []string
	for _, r := range s {
		if r < '1' || r > '6' || seen[r] {
			continue
		}
		seen[r] = true
		digits = append(digits, string(r))
	}
	sort.Strings(digits)
	return strings.Join(digits, "")
}

// CopyEdgeAttributes returns a copy of src without identity, parent and child.
func CopyEdgeAttributes(src GroupElementYear) GroupElementYear {
	return GroupElementYear{
		RelativeCredits:    src.RelativeCredits,
		MinCredits:         src.MinCredits,
		MaxCredits:         src.MaxCredits,
		IsMandatory:        src.IsMandatory,
		Block:              src.Block,
		Comment:            src.Comment,
		CommentEnglish:     src.CommentEnglish,
		OwnComment:         src.OwnComment,
		SessionsDerogation: src.SessionsDerogation,
		MinorAccess:        src.MinorAccess,
		Order:              src.Order,
	}
}
