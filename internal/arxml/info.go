package arxml

import "strings"

// Kind is a coarse classification of an element by its tag.
type Kind int

const (
	KindElement Kind = iota
	KindContainer
	KindParameter
	KindModule
	KindConfiguration
	KindElements
	KindPackages
)

func (k Kind) String() string {
	switch k {
	case KindContainer:
		return "Container"
	case KindParameter:
		return "Parameter"
	case KindModule:
		return "Module"
	case KindConfiguration:
		return "Configuration"
	case KindElements:
		return "Elements"
	case KindPackages:
		return "Packages"
	default:
		return "Element"
	}
}

// KindOf classifies a local tag name. The first matching keyword wins:
// CONTAINER, PARAM, MODULE, CONFIG, ELEMENTS, PACKAGES.
func KindOf(tag string) Kind {
	u := strings.ToUpper(tag)
	switch {
	case strings.Contains(u, "CONTAINER"):
		return KindContainer
	case strings.Contains(u, "PARAM"):
		return KindParameter
	case strings.Contains(u, "MODULE"):
		return KindModule
	case strings.Contains(u, "CONFIG"):
		return KindConfiguration
	case strings.Contains(u, "ELEMENTS"):
		return KindElements
	case strings.Contains(u, "PACKAGES"):
		return KindPackages
	default:
		return KindElement
	}
}

// ElementInfo summarizes one element.
type ElementInfo struct {
	ID            NodeID
	QName         string
	Tag           string
	Kind          Kind
	ShortName     string
	DefinitionRef string
	Value         string
	Text          string
	Children      int
	Attrs         []Attr
	Path          []string
}

// Info describes id. Path lists the labels (short name, or tag) from the
// root down to id.
func (t *Tree) Info(id NodeID) (ElementInfo, error) {
	if !t.Valid(id) {
		return ElementInfo{}, ErrNodeNotFound
	}
	return ElementInfo{
		ID:            id,
		QName:         t.QName(id),
		Tag:           t.Tag(id),
		Kind:          KindOf(t.Tag(id)),
		ShortName:     t.ShortName(id),
		DefinitionRef: t.DescendantText(id, TagDefinitionRef),
		Value:         t.DescendantText(id, TagValue),
		Text:          strings.TrimSpace(t.Text(id)),
		Children:      t.ChildCount(id),
		Attrs:         t.Attrs(id),
		Path:          t.LabelPath(id),
	}, nil
}

// Label is the display name of an element: its short name, or its local tag.
func (t *Tree) Label(id NodeID) string {
	if name, ok := FindShortName(t, id); ok {
		return name
	}
	return t.Tag(id)
}

// LabelPath returns the labels from the root down to id.
func (t *Tree) LabelPath(id NodeID) []string {
	if !t.Valid(id) {
		return nil
	}
	var path []string
	for n := id; n != InvalidNode; n = t.Parent(n) {
		path = append(path, t.Label(n))
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// DescendantText returns the trimmed text of the first element with the
// given tag found by FindDescendant, skipping matches whose text is blank.
func (t *Tree) DescendantText(id NodeID, tag string) string {
	n := t.get(id)
	if n == nil {
		return ""
	}
	for _, c := range n.children {
		if strings.EqualFold(t.nodes[c].tag, tag) {
			if s := strings.TrimSpace(t.nodes[c].text); s != "" {
				return s
			}
		}
	}
	for _, c := range n.children {
		if s := t.DescendantText(c, tag); s != "" {
			return s
		}
	}
	return ""
}
