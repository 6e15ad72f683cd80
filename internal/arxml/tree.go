package arxml

// NodeID is a stable handle to an element node of a Tree.
type NodeID uint32

// InvalidNode is the zero handle. No node ever has it.
const InvalidNode NodeID = 0

// Attr is a single attribute. Name carries the prefix when there is one
// (xsi:schemaLocation).
type Attr struct {
	Name  string
	Value string
}

type node struct {
	alive    bool
	prefix   string
	tag      string
	attrs    []Attr
	text     string
	tail     string
	parent   NodeID
	children []NodeID
}

// Tree is an arena of element nodes with a single root.
type Tree struct {
	nodes     []node // index 0 is reserved for InvalidNode
	root      NodeID
	namespace string

	observer   func()
	batchDepth int
	batchDirty bool
}

// New returns an empty tree without a root element.
func New() *Tree {
	return &Tree{nodes: make([]node, 1, 64)}
}

// Root returns the root element, or InvalidNode for an empty tree.
func (t *Tree) Root() NodeID {
	return t.root
}

// Empty reports whether the tree has no root element.
func (t *Tree) Empty() bool {
	return t.root == InvalidNode
}

// Namespace returns the default namespace URI stripped from the root.
func (t *Tree) Namespace() string {
	return t.namespace
}

// SetNamespace sets the default namespace written on the root by Format.
func (t *Tree) SetNamespace(ns string) {
	t.namespace = ns
	t.notify()
}

// Valid reports whether id names a live node.
func (t *Tree) Valid(id NodeID) bool {
	return id != InvalidNode && int(id) < len(t.nodes) && t.nodes[id].alive
}

// Len returns the number of live nodes.
func (t *Tree) Len() int {
	n := 0
	for i := 1; i < len(t.nodes); i++ {
		if t.nodes[i].alive {
			n++
		}
	}
	return n
}

func (t *Tree) get(id NodeID) *node {
	if !t.Valid(id) {
		return nil
	}
	return &t.nodes[id]
}

// Tag returns the local (namespace-stripped, prefix-free) tag name.
func (t *Tree) Tag(id NodeID) string {
	if n := t.get(id); n != nil {
		return n.tag
	}
	return ""
}

// Prefix returns the namespace prefix of the element, if any.
func (t *Tree) Prefix(id NodeID) string {
	if n := t.get(id); n != nil {
		return n.prefix
	}
	return ""
}

// QName returns the qualified name as written in markup: prefix:tag, or tag
// when there is no prefix.
func (t *Tree) QName(id NodeID) string {
	n := t.get(id)
	if n == nil {
		return ""
	}
	if n.prefix != "" {
		return n.prefix + ":" + n.tag
	}
	return n.tag
}

// Text returns the raw character data before the first child element.
func (t *Tree) Text(id NodeID) string {
	if n := t.get(id); n != nil {
		return n.text
	}
	return ""
}

// Tail returns the raw character data following the element's end tag up to
// the next sibling.
func (t *Tree) Tail(id NodeID) string {
	if n := t.get(id); n != nil {
		return n.tail
	}
	return ""
}

// Parent returns the parent element, or InvalidNode for the root.
func (t *Tree) Parent(id NodeID) NodeID {
	if n := t.get(id); n != nil {
		return n.parent
	}
	return InvalidNode
}

// Children returns a copy of the child handles in document order.
func (t *Tree) Children(id NodeID) []NodeID {
	n := t.get(id)
	if n == nil || len(n.children) == 0 {
		return nil
	}
	out := make([]NodeID, len(n.children))
	copy(out, n.children)
	return out
}

// ChildCount returns the number of child elements.
func (t *Tree) ChildCount(id NodeID) int {
	if n := t.get(id); n != nil {
		return len(n.children)
	}
	return 0
}

// IsLeaf reports whether the element has no child elements.
func (t *Tree) IsLeaf(id NodeID) bool {
	return t.ChildCount(id) == 0
}

// IndexInParent returns the position of id among its siblings, or -1.
func (t *Tree) IndexInParent(id NodeID) int {
	p := t.get(t.Parent(id))
	if p == nil {
		return -1
	}
	for i, c := range p.children {
		if c == id {
			return i
		}
	}
	return -1
}

// Depth returns the number of ancestors of id. The root has depth 0.
func (t *Tree) Depth(id NodeID) int {
	d := 0
	for p := t.Parent(id); p != InvalidNode; p = t.Parent(p) {
		d++
	}
	return d
}

// Attrs returns a copy of the attributes in document order.
func (t *Tree) Attrs(id NodeID) []Attr {
	n := t.get(id)
	if n == nil || len(n.attrs) == 0 {
		return nil
	}
	out := make([]Attr, len(n.attrs))
	copy(out, n.attrs)
	return out
}

// Attr returns the value of the named attribute.
func (t *Tree) Attr(id NodeID, name string) (string, bool) {
	n := t.get(id)
	if n == nil {
		return "", false
	}
	for _, a := range n.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Walk visits the subtree rooted at id in document (pre-)order. Returning
// false from fn skips the children of the visited node.
func (t *Tree) Walk(id NodeID, fn func(id NodeID, depth int) bool) {
	if !t.Valid(id) {
		return
	}
	t.walk(id, 0, fn)
}

func (t *Tree) walk(id NodeID, depth int, fn func(NodeID, int) bool) {
	if !fn(id, depth) {
		return
	}
	for _, c := range t.nodes[id].children {
		t.walk(c, depth+1, fn)
	}
}

// Preorder returns every live node in document order.
func (t *Tree) Preorder() []NodeID {
	if t.root == InvalidNode {
		return nil
	}
	out := make([]NodeID, 0, len(t.nodes))
	t.walk(t.root, 0, func(id NodeID, _ int) bool {
		out = append(out, id)
		return true
	})
	return out
}

// Clone returns a deep copy. Handles are preserved; the observer is not.
func (t *Tree) Clone() *Tree {
	c := &Tree{
		nodes:     make([]node, len(t.nodes)),
		root:      t.root,
		namespace: t.namespace,
	}
	for i, n := range t.nodes {
		cn := n
		if n.attrs != nil {
			cn.attrs = append([]Attr(nil), n.attrs...)
		}
		if n.children != nil {
			cn.children = append([]NodeID(nil), n.children...)
		}
		c.nodes[i] = cn
	}
	return c
}

// SetObserver installs fn to be called after every committed mutation. Pass
// nil to detach.
func (t *Tree) SetObserver(fn func()) {
	t.observer = fn
}

// Batch runs fn with per-mutation notifications suppressed and notifies the
// observer once afterwards if anything changed. Mutations made before an
// error in fn are kept and still notified.
func (t *Tree) Batch(fn func() error) error {
	t.batchDepth++
	err := fn()
	t.batchDepth--

	if t.batchDepth == 0 && t.batchDirty {
		t.batchDirty = false
		if t.observer != nil {
			t.observer()
		}
	}
	return err
}

func (t *Tree) notify() {
	if t.batchDepth > 0 {
		t.batchDirty = true
		return
	}
	if t.observer != nil {
		t.observer()
	}
}

func (t *Tree) newNode(prefix, tag string, parent NodeID) NodeID {
	t.nodes = append(t.nodes, node{
		alive:  true,
		prefix: prefix,
		tag:    tag,
		parent: parent,
	})
	return NodeID(len(t.nodes) - 1)
}
