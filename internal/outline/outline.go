// Package outline builds the structural view of a document: one item per
// element, labelled by short name, with per-item expansion and a single
// selection.
//
// A SHORT-NAME element without children is folded into its parent's label
// and gets no item of its own. Expansion and selection are keyed by label
// path so they survive a rebuild from freshly parsed text, where node ids
// change.
package outline

import (
	"strings"

	"github.com/dshills/ecucedit/internal/arxml"
)

// Item is one row of the outline.
type Item struct {
	// ID is the element this item shows.
	ID arxml.NodeID

	// Label is the short name, or the local tag when there is none.
	Label string

	// QName is the element's qualified tag.
	QName string

	// Kind is the element's coarse classification.
	Kind arxml.Kind

	// DefinitionRef and Value are the first matching descendant texts.
	DefinitionRef string
	Value         string

	// Depth is 0 for the root item.
	Depth int

	// Path is the label path from the root.
	Path []string

	// Children are the visible child items.
	Children []*Item

	// Parent is nil for the root.
	Parent *Item

	// Expanded indicates the children are shown.
	Expanded bool
}

// HasChildren reports whether the item has child items.
func (it *Item) HasChildren() bool {
	return len(it.Children) > 0
}

func (it *Item) key() string {
	return pathKey(it.Path)
}

// ViewState is the expansion and selection of an outline, keyed by label
// path.
type ViewState struct {
	Expanded map[string]bool
	Selected []string
}

// Outline is the item tree for one document snapshot.
type Outline struct {
	root     *Item
	byID     map[arxml.NodeID]*Item
	selected arxml.NodeID
}

// Build creates an outline of t with only the root expanded.
func Build(t *arxml.Tree) *Outline {
	o := &Outline{byID: make(map[arxml.NodeID]*Item)}
	if t == nil || t.Empty() {
		return o
	}
	o.root = o.build(t, t.Root(), nil, 0)
	o.root.Expanded = true
	return o
}

func (o *Outline) build(t *arxml.Tree, id arxml.NodeID, parent *Item, depth int) *Item {
	it := &Item{
		ID:            id,
		Label:         t.Label(id),
		QName:         t.QName(id),
		Kind:          arxml.KindOf(t.Tag(id)),
		DefinitionRef: t.DescendantText(id, arxml.TagDefinitionRef),
		Value:         t.DescendantText(id, arxml.TagValue),
		Depth:         depth,
		Parent:        parent,
	}
	if parent != nil {
		it.Path = append(append(make([]string, 0, len(parent.Path)+1), parent.Path...), it.Label)
	} else {
		it.Path = []string{it.Label}
	}
	o.byID[id] = it

	for _, c := range t.Children(id) {
		if t.IsShortNameLeaf(c) {
			continue
		}
		it.Children = append(it.Children, o.build(t, c, it, depth+1))
	}
	return it
}

// Root returns the root item, nil for an empty document.
func (o *Outline) Root() *Item {
	return o.root
}

// Len returns the number of items.
func (o *Outline) Len() int {
	return len(o.byID)
}

// Item returns the item showing id.
func (o *Outline) Item(id arxml.NodeID) (*Item, bool) {
	it, ok := o.byID[id]
	return it, ok
}

// Visible returns the items of expanded branches in display order.
func (o *Outline) Visible() []*Item {
	if o.root == nil {
		return nil
	}
	var out []*Item
	var walk func(*Item)
	walk = func(it *Item) {
		out = append(out, it)
		if !it.Expanded {
			return
		}
		for _, c := range it.Children {
			walk(c)
		}
	}
	walk(o.root)
	return out
}

// Expand shows the children of id.
func (o *Outline) Expand(id arxml.NodeID) {
	if it, ok := o.byID[id]; ok {
		it.Expanded = true
	}
}

// Collapse hides the children of id.
func (o *Outline) Collapse(id arxml.NodeID) {
	if it, ok := o.byID[id]; ok {
		it.Expanded = false
	}
}

// Toggle flips the expansion of id. Items without children stay as they
// are.
func (o *Outline) Toggle(id arxml.NodeID) {
	if it, ok := o.byID[id]; ok && it.HasChildren() {
		it.Expanded = !it.Expanded
	}
}

// ExpandAll expands every item.
func (o *Outline) ExpandAll() {
	for _, it := range o.byID {
		it.Expanded = true
	}
}

// CollapseAll collapses every item except the root.
func (o *Outline) CollapseAll() {
	for _, it := range o.byID {
		it.Expanded = it.Parent == nil
	}
}

// Reveal expands the ancestors of id so its item is visible.
func (o *Outline) Reveal(id arxml.NodeID) {
	it, ok := o.byID[id]
	if !ok {
		return
	}
	for p := it.Parent; p != nil; p = p.Parent {
		p.Expanded = true
	}
}

// Selected returns the selected element, InvalidNode when none is.
func (o *Outline) Selected() arxml.NodeID {
	return o.selected
}

// Select selects id and reveals it. Selecting an unknown id clears the
// selection and returns false.
func (o *Outline) Select(id arxml.NodeID) bool {
	if _, ok := o.byID[id]; !ok {
		o.selected = arxml.InvalidNode
		return false
	}
	o.selected = id
	o.Reveal(id)
	return true
}

// Step returns the visible item delta rows away from the selection,
// clamped to the first and last rows. With no selection it returns the
// root.
func (o *Outline) Step(delta int) arxml.NodeID {
	rows := o.Visible()
	if len(rows) == 0 {
		return arxml.InvalidNode
	}
	cur := 0
	for i, it := range rows {
		if it.ID == o.selected {
			cur = i + delta
			break
		}
	}
	if cur < 0 {
		cur = 0
	}
	if cur >= len(rows) {
		cur = len(rows) - 1
	}
	return rows[cur].ID
}

// Filter returns the items whose label or tag contains term, ignoring
// case, in preorder.
func (o *Outline) Filter(term string) []*Item {
	if o.root == nil || term == "" {
		return nil
	}
	term = strings.ToLower(term)
	var out []*Item
	var walk func(*Item)
	walk = func(it *Item) {
		if strings.Contains(strings.ToLower(it.Label), term) ||
			strings.Contains(strings.ToLower(it.QName), term) {
			out = append(out, it)
		}
		for _, c := range it.Children {
			walk(c)
		}
	}
	walk(o.root)
	return out
}

// State captures expansion and selection.
func (o *Outline) State() ViewState {
	vs := ViewState{Expanded: make(map[string]bool)}
	for _, it := range o.byID {
		if it.Expanded {
			vs.Expanded[it.key()] = true
		}
	}
	if it, ok := o.byID[o.selected]; ok {
		vs.Selected = append([]string(nil), it.Path...)
	}
	return vs
}

// Restore applies a captured state. Items whose path no longer exists are
// ignored; when paths repeat, every match is expanded and the first match
// in preorder is selected. The root stays expanded.
func (o *Outline) Restore(vs ViewState) {
	if o.root == nil {
		return
	}
	selKey := ""
	if len(vs.Selected) > 0 {
		selKey = pathKey(vs.Selected)
	}
	o.selected = arxml.InvalidNode

	var walk func(*Item)
	walk = func(it *Item) {
		k := it.key()
		it.Expanded = vs.Expanded[k] || it.Parent == nil
		if selKey != "" && o.selected == arxml.InvalidNode && k == selKey {
			o.selected = it.ID
		}
		for _, c := range it.Children {
			walk(c)
		}
	}
	walk(o.root)
}

// FindPath returns the first item in preorder with the given label path.
func (o *Outline) FindPath(path []string) (*Item, bool) {
	if o.root == nil || len(path) == 0 {
		return nil, false
	}
	want := pathKey(path)
	var found *Item
	var walk func(*Item) bool
	walk = func(it *Item) bool {
		if it.key() == want {
			found = it
			return false
		}
		for _, c := range it.Children {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(o.root)
	return found, found != nil
}

func pathKey(path []string) string {
	return strings.Join(path, "\x00")
}
