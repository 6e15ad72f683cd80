package arxml

import (
	"strings"
	"unicode"
)

// Well-known ECUC tags.
const (
	TagShortName     = "SHORT-NAME"
	TagValue         = "VALUE"
	TagDefinitionRef = "DEFINITION-REF"
	TagAutosar       = "AUTOSAR"
	TagARPackages    = "AR-PACKAGES"
	TagARPackage     = "AR-PACKAGE"
)

// NamespaceMarker identifies the default namespace that Parse strips from
// the root and Format re-adds.
const NamespaceMarker = "autosar"

// IsAutosarNamespace reports whether uri carries NamespaceMarker.
func IsAutosarNamespace(uri string) bool {
	return strings.Contains(strings.ToLower(uri), NamespaceMarker)
}

// LocalName strips a Clark-notation namespace ({uri}TAG) and a prefix
// (ar:TAG) from name.
func LocalName(name string) string {
	if i := strings.LastIndexByte(name, '}'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// SplitQName splits prefix:local. The prefix is empty when there is none.
func SplitQName(q string) (prefix, local string) {
	if i := strings.IndexByte(q, ':'); i >= 0 {
		return q[:i], q[i+1:]
	}
	return "", q
}

// ValidName reports whether s is a valid XML name without a colon.
func ValidName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r)):
		default:
			return false
		}
	}
	return true
}

// ValidQName reports whether q is a valid name with an optional prefix.
func ValidQName(q string) bool {
	prefix, local := SplitQName(q)
	if strings.IndexByte(q, ':') >= 0 && !ValidName(prefix) {
		return false
	}
	return ValidName(local)
}

func isShortNameTag(tag string) bool {
	return strings.EqualFold(tag, TagShortName)
}

// shortNameChild returns the first direct SHORT-NAME child that is a leaf.
func (t *Tree) shortNameChild(id NodeID) NodeID {
	n := t.get(id)
	if n == nil {
		return InvalidNode
	}
	for _, c := range n.children {
		cn := &t.nodes[c]
		if isShortNameTag(cn.tag) && len(cn.children) == 0 {
			return c
		}
	}
	return InvalidNode
}

// FindShortName returns the trimmed text of the first direct SHORT-NAME
// child of id. A SHORT-NAME element that has children of its own is not a
// name. The result is derived on every call.
func FindShortName(t *Tree, id NodeID) (string, bool) {
	c := t.shortNameChild(id)
	if c == InvalidNode {
		return "", false
	}
	name := strings.TrimSpace(t.nodes[c].text)
	if name == "" {
		return "", false
	}
	return name, true
}

// ShortName is FindShortName as a method; it returns "" when there is none.
func (t *Tree) ShortName(id NodeID) string {
	name, _ := FindShortName(t, id)
	return name
}

// IsShortNameLeaf reports whether id is a SHORT-NAME element without
// children. Such elements are folded into their parent's label.
func (t *Tree) IsShortNameLeaf(id NodeID) bool {
	n := t.get(id)
	return n != nil && isShortNameTag(n.tag) && len(n.children) == 0
}

// FindChild returns the first direct child with the given local tag
// (case-insensitive).
func (t *Tree) FindChild(id NodeID, tag string) NodeID {
	n := t.get(id)
	if n == nil {
		return InvalidNode
	}
	for _, c := range n.children {
		if strings.EqualFold(t.nodes[c].tag, tag) {
			return c
		}
	}
	return InvalidNode
}

// FindDescendant searches breadth-first by level: direct children first,
// then each child's subtree in order, and returns the first element with the
// given local tag.
func (t *Tree) FindDescendant(id NodeID, tag string) NodeID {
	if c := t.FindChild(id, tag); c != InvalidNode {
		return c
	}
	n := t.get(id)
	if n == nil {
		return InvalidNode
	}
	for _, c := range n.children {
		if d := t.FindDescendant(c, tag); d != InvalidNode {
			return d
		}
	}
	return InvalidNode
}
