package tree

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Element types carried in JS nodes.
const (
	ElementEducationGroupYear = "EGY"
	ElementLearningUnitYear   = "LUY"
)

// Node icons.
const (
	IconLeafWithPrerequisites = "glyphicon glyphicon-leaf"
	IconLeaf                  = "jstree-file"
)

// JSNode is one node of the tree widget.
type JSNode struct {
	Text     string   `json:"text"`
	Children []JSNode `json:"children,omitempty"`
	AAttr    JSAttr   `json:"a_attr"`
	ID       string   `json:"id"`
	Icon     string   `json:"icon,omitempty"`
}

// JSAttr carries the anchor attributes of a node. GroupElementYear is null
// on the root.
type JSAttr struct {
	Href             string  `json:"href"`
	Root             string  `json:"root"`
	GroupElementYear *string `json:"group_element_year"`
	ElementID        string  `json:"element_id"`
	ElementType      string  `json:"element_type"`
	Title            string  `json:"title"`
}

// JSTree renders t for the tree widget. Edges pointing back at the root are
// skipped.
func JSTree(t *Tree) JSNode {
	return branchNode(t, t.Root.ID, nil, map[primitive.ObjectID]bool{t.Root.ID: true})
}

func edgeKey(e *Edge) (string, *string) {
	if e == nil {
		return "#", nil
	}
	id := e.ID.Hex()
	return id, &id
}

func groupToParent(e *Edge) string {
	if e == nil {
		return "0"
	}
	return e.ID.Hex()
}

func branchNode(t *Tree, id primitive.ObjectID, via *Edge, onPath map[primitive.ObjectID]bool) JSNode {
	egy := t.Root
	if via != nil {
		egy = t.Branches[id]
	}
	key, gey := edgeKey(via)
	n := JSNode{
		Text: egy.Acronym + " - " + egy.Title,
		AAttr: JSAttr{
			Href:             fmt.Sprintf("/educationgroups/%s/%s/?group_to_parent=%s", t.Root.ID.Hex(), id.Hex(), groupToParent(via)),
			Root:             t.Root.ID.Hex(),
			GroupElementYear: gey,
			ElementID:        id.Hex(),
			ElementType:      ElementEducationGroupYear,
			Title:            egy.Acronym,
		},
		ID: fmt.Sprintf("id_%s_%s", id.Hex(), key),
	}
	for i := range t.Children[id] {
		e := t.Children[id][i]
		switch {
		case e.IsBranch():
			child := *e.ChildBranchID
			if child == t.Root.ID || onPath[child] {
				continue
			}
			onPath[child] = true
			n.Children = append(n.Children, branchNode(t, child, &e, onPath))
			delete(onPath, child)
		case e.IsLeaf():
			n.Children = append(n.Children, leafNode(t, &e))
		}
	}
	return n
}

func leafNode(t *Tree, e *Edge) JSNode {
	luy := t.Leaves[*e.ChildLeafID]
	key, gey := edgeKey(e)
	icon := IconLeaf
	if e.HasPrerequisites {
		icon = IconLeafWithPrerequisites
	}
	title := luy.Acronym
	if luy.SpecificTitle != "" {
		title = luy.SpecificTitle
	}
	return JSNode{
		Text: luy.Acronym,
		Icon: icon,
		AAttr: JSAttr{
			Href:             fmt.Sprintf("/learningunits/%s/%s/utilization/?group_to_parent=%s", t.Root.ID.Hex(), luy.ID.Hex(), groupToParent(e)),
			Root:             t.Root.ID.Hex(),
			GroupElementYear: gey,
			ElementID:        luy.ID.Hex(),
			ElementType:      ElementLearningUnitYear,
			Title:            title,
		},
		ID: fmt.Sprintf("id_%s_%s", luy.ID.Hex(), key),
	}
}
