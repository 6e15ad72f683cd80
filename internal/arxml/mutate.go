package arxml

import "fmt"

// NewRoot creates the root element of an empty tree. qname may carry a
// prefix.
func (t *Tree) NewRoot(qname string) (NodeID, error) {
	if t.root != InvalidNode {
		return InvalidNode, ErrRootExists
	}
	prefix, local, err := checkQName(qname)
	if err != nil {
		return InvalidNode, err
	}
	t.root = t.newNode(prefix, local, InvalidNode)
	t.notify()
	return t.root, nil
}

// AddChild appends a new element to parent. A prefix-less qname inherits
// the parent's prefix.
func (t *Tree) AddChild(parent NodeID, qname string) (NodeID, error) {
	n := t.get(parent)
	if n == nil {
		return InvalidNode, fmt.Errorf("add child to %d: %w", parent, ErrNodeNotFound)
	}
	return t.InsertChild(parent, len(n.children), qname)
}

// InsertChild inserts a new element at index among parent's children. The
// index is clamped to the valid range.
func (t *Tree) InsertChild(parent NodeID, index int, qname string) (NodeID, error) {
	if !t.Valid(parent) {
		return InvalidNode, fmt.Errorf("insert child into %d: %w", parent, ErrNodeNotFound)
	}
	prefix, local, err := checkQName(qname)
	if err != nil {
		return InvalidNode, err
	}
	if prefix == "" {
		prefix = t.nodes[parent].prefix
	}

	id := t.newNode(prefix, local, parent)
	p := &t.nodes[parent]
	if index < 0 {
		index = 0
	}
	if index > len(p.children) {
		index = len(p.children)
	}
	p.children = append(p.children, InvalidNode)
	copy(p.children[index+1:], p.children[index:])
	p.children[index] = id

	t.notify()
	return id, nil
}

// InsertSibling inserts a new element next to anchor, before or after it.
func (t *Tree) InsertSibling(anchor NodeID, qname string, before bool) (NodeID, error) {
	if !t.Valid(anchor) {
		return InvalidNode, fmt.Errorf("insert sibling of %d: %w", anchor, ErrNodeNotFound)
	}
	parent := t.nodes[anchor].parent
	if parent == InvalidNode {
		return InvalidNode, fmt.Errorf("insert sibling of root: %w", ErrNoParent)
	}
	idx := t.IndexInParent(anchor)
	if !before {
		idx++
	}
	return t.InsertChild(parent, idx, qname)
}

// RemoveChild detaches child and its subtree from parent. Handles of the
// removed nodes become invalid.
func (t *Tree) RemoveChild(parent, child NodeID) error {
	if !t.Valid(parent) || !t.Valid(child) {
		return ErrNodeNotFound
	}
	if t.nodes[child].parent != parent {
		return fmt.Errorf("remove %d from %d: %w", child, parent, ErrNotChild)
	}
	p := &t.nodes[parent]
	for i, c := range p.children {
		if c == child {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	t.kill(child)
	t.notify()
	return nil
}

// Remove deletes id and its subtree. Removing the root empties the tree
// and drops the default namespace.
func (t *Tree) Remove(id NodeID) error {
	if !t.Valid(id) {
		return fmt.Errorf("remove %d: %w", id, ErrNodeNotFound)
	}
	if id == t.root {
		t.kill(id)
		t.root = InvalidNode
		t.namespace = ""
		t.notify()
		return nil
	}
	return t.RemoveChild(t.nodes[id].parent, id)
}

func (t *Tree) kill(id NodeID) {
	n := &t.nodes[id]
	children := n.children
	*n = node{}
	for _, c := range children {
		t.kill(c)
	}
}

// ReplaceTag renames the element. A qname without a prefix keeps the
// current prefix.
func (t *Tree) ReplaceTag(id NodeID, qname string) error {
	n := t.get(id)
	if n == nil {
		return fmt.Errorf("rename %d: %w", id, ErrNodeNotFound)
	}
	prefix, local, err := checkQName(qname)
	if err != nil {
		return err
	}
	if prefix != "" {
		n.prefix = prefix
	}
	n.tag = local
	t.notify()
	return nil
}

// SetText replaces the element's leading character data.
func (t *Tree) SetText(id NodeID, text string) error {
	n := t.get(id)
	if n == nil {
		return fmt.Errorf("set text of %d: %w", id, ErrNodeNotFound)
	}
	n.text = text
	t.notify()
	return nil
}

// SetShortName sets the text of the element's SHORT-NAME child, creating it
// as the first child when missing. An empty name removes the child.
func (t *Tree) SetShortName(id NodeID, name string) error {
	if !t.Valid(id) {
		return fmt.Errorf("set short name of %d: %w", id, ErrNodeNotFound)
	}
	return t.Batch(func() error {
		sn := t.shortNameChild(id)
		switch {
		case name == "" && sn != InvalidNode:
			return t.RemoveChild(id, sn)
		case name == "":
			return nil
		case sn != InvalidNode:
			return t.SetText(sn, name)
		}
		sn, err := t.InsertChild(id, 0, TagShortName)
		if err != nil {
			return err
		}
		return t.SetText(sn, name)
	})
}

// SetAttr sets an attribute, keeping its position when it already exists.
func (t *Tree) SetAttr(id NodeID, name, value string) error {
	n := t.get(id)
	if n == nil {
		return fmt.Errorf("set attribute on %d: %w", id, ErrNodeNotFound)
	}
	if !ValidQName(name) {
		return fmt.Errorf("attribute %q: %w", name, ErrInvalidName)
	}
	for i := range n.attrs {
		if n.attrs[i].Name == name {
			n.attrs[i].Value = value
			t.notify()
			return nil
		}
	}
	n.attrs = append(n.attrs, Attr{Name: name, Value: value})
	t.notify()
	return nil
}

// RemoveAttr deletes an attribute. It reports whether one was removed.
func (t *Tree) RemoveAttr(id NodeID, name string) bool {
	n := t.get(id)
	if n == nil {
		return false
	}
	for i := range n.attrs {
		if n.attrs[i].Name == name {
			n.attrs = append(n.attrs[:i], n.attrs[i+1:]...)
			t.notify()
			return true
		}
	}
	return false
}

func checkQName(qname string) (prefix, local string, err error) {
	if !ValidQName(qname) {
		return "", "", fmt.Errorf("tag %q: %w", qname, ErrInvalidName)
	}
	prefix, local = SplitQName(qname)
	return prefix, local, nil
}
