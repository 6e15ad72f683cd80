package syncer

import (
	"fmt"
	"strings"

	"github.com/dshills/ecucedit/internal/arxml"
)

// Op is a structural edit requested from the tree view. Apply mutates t
// and returns the node to select afterwards, or InvalidNode.
type Op interface {
	Apply(t *arxml.Tree) (arxml.NodeID, error)
	String() string
}

// AddChild appends a new element under Parent. With an empty document and
// no Parent it creates the root.
type AddChild struct {
	Parent    arxml.NodeID
	Tag       string
	ShortName string
	Text      string
}

func (op AddChild) Apply(t *arxml.Tree) (arxml.NodeID, error) {
	var (
		id  arxml.NodeID
		err error
	)
	if op.Parent == arxml.InvalidNode && t.Empty() {
		id, err = t.NewRoot(op.Tag)
	} else {
		id, err = t.AddChild(op.Parent, op.Tag)
	}
	if err != nil {
		return arxml.InvalidNode, err
	}
	return id, fill(t, id, op.ShortName, op.Text)
}

func (op AddChild) String() string {
	return fmt.Sprintf("add %s", op.Tag)
}

// InsertSibling inserts a new element next to Anchor.
type InsertSibling struct {
	Anchor    arxml.NodeID
	Tag       string
	ShortName string
	Text      string
	Before    bool
}

func (op InsertSibling) Apply(t *arxml.Tree) (arxml.NodeID, error) {
	id, err := t.InsertSibling(op.Anchor, op.Tag, op.Before)
	if err != nil {
		return arxml.InvalidNode, err
	}
	return id, fill(t, id, op.ShortName, op.Text)
}

func (op InsertSibling) String() string {
	where := "after"
	if op.Before {
		where = "before"
	}
	return fmt.Sprintf("insert %s %s", op.Tag, where)
}

// Delete removes Node and its subtree. Removing the root empties the
// document. The parent is selected afterwards.
type Delete struct {
	Node arxml.NodeID
}

func (op Delete) Apply(t *arxml.Tree) (arxml.NodeID, error) {
	parent := t.Parent(op.Node)
	if err := t.Remove(op.Node); err != nil {
		return arxml.InvalidNode, err
	}
	return parent, nil
}

func (op Delete) String() string {
	return "delete"
}

// Edit changes tag, short name and text of Node as one operation. An empty
// Tag keeps the current tag; an empty ShortName removes the SHORT-NAME
// child; an empty Text clears the text.
type Edit struct {
	Node      arxml.NodeID
	Tag       string
	ShortName string
	Text      string
}

func (op Edit) Apply(t *arxml.Tree) (arxml.NodeID, error) {
	if op.Tag != "" && op.Tag != t.QName(op.Node) {
		if err := t.ReplaceTag(op.Node, op.Tag); err != nil {
			return arxml.InvalidNode, err
		}
	}
	if err := t.SetText(op.Node, op.Text); err != nil {
		return arxml.InvalidNode, err
	}
	if err := t.SetShortName(op.Node, op.ShortName); err != nil {
		return arxml.InvalidNode, err
	}
	return op.Node, nil
}

func (op Edit) String() string {
	return fmt.Sprintf("edit %s", op.Tag)
}

// SetValue sets the VALUE of a parameter element, creating the VALUE child
// when missing. Node may also be the VALUE element itself.
type SetValue struct {
	Node  arxml.NodeID
	Value string
}

func (op SetValue) Apply(t *arxml.Tree) (arxml.NodeID, error) {
	if !t.Valid(op.Node) {
		return arxml.InvalidNode, arxml.ErrNodeNotFound
	}
	target := op.Node
	if !strings.EqualFold(t.Tag(op.Node), arxml.TagValue) {
		target = t.FindChild(op.Node, arxml.TagValue)
		if target == arxml.InvalidNode {
			var err error
			if target, err = t.AddChild(op.Node, arxml.TagValue); err != nil {
				return arxml.InvalidNode, err
			}
		}
	}
	if err := t.SetText(target, op.Value); err != nil {
		return arxml.InvalidNode, err
	}
	return op.Node, nil
}

func (op SetValue) String() string {
	return "set value"
}

// Func adapts a function to Op.
type Func func(t *arxml.Tree) (arxml.NodeID, error)

func (f Func) Apply(t *arxml.Tree) (arxml.NodeID, error) {
	return f(t)
}

func (f Func) String() string {
	return "func"
}

func fill(t *arxml.Tree, id arxml.NodeID, shortName, text string) error {
	if text != "" {
		if err := t.SetText(id, text); err != nil {
			return err
		}
	}
	if shortName != "" {
		return t.SetShortName(id, shortName)
	}
	return nil
}
