package arxml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
)

// Parse builds a new Tree from text. On failure it returns a *ParseError
// and no tree; it never modifies an existing tree.
//
// Comments, processing instructions and directives are not kept.
func Parse(text string) (*Tree, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Msg: "empty document"}
	}
	if err := checkWellFormed(text); err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = passthroughCharset
	if err := doc.ReadFromString(text); err != nil {
		return nil, &ParseError{Msg: err.Error(), Err: err}
	}

	roots := doc.ChildElements()
	if len(roots) != 1 {
		return nil, &ParseError{Msg: fmt.Sprintf("expected exactly one root element, found %d", len(roots))}
	}
	for _, tok := range doc.Child {
		if cd, ok := tok.(*etree.CharData); ok && strings.TrimSpace(cd.Data) != "" {
			return nil, &ParseError{Msg: "character data outside the root element"}
		}
	}

	t := New()
	t.root = t.copyElement(roots[0], InvalidNode)
	t.liftNamespace()
	return t, nil
}

// MustParse is Parse for literals known to be well-formed.
func MustParse(text string) *Tree {
	t, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return t
}

// checkWellFormed runs a strict token pass so mismatched or unclosed tags
// are reported with a line number.
func checkWellFormed(text string) error {
	d := xml.NewDecoder(strings.NewReader(text))
	d.Strict = true
	d.CharsetReader = passthroughCharset
	for {
		_, err := d.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var se *xml.SyntaxError
			if errors.As(err, &se) {
				return &ParseError{Line: se.Line, Msg: se.Msg, Err: err}
			}
			return &ParseError{Msg: err.Error(), Err: err}
		}
	}
}

// passthroughCharset accepts any declared encoding: the text handed to
// Parse has already been decoded by the file layer.
func passthroughCharset(_ string, input io.Reader) (io.Reader, error) {
	return input, nil
}

func (t *Tree) copyElement(e *etree.Element, parent NodeID) NodeID {
	id := t.newNode(e.Space, e.Tag, parent)

	if len(e.Attr) > 0 {
		attrs := make([]Attr, 0, len(e.Attr))
		for _, a := range e.Attr {
			name := a.Key
			if a.Space != "" {
				name = a.Space + ":" + a.Key
			}
			attrs = append(attrs, Attr{Name: name, Value: a.Value})
		}
		t.nodes[id].attrs = attrs
	}

	// Character data before the first child element is the element's text;
	// character data after a child is that child's tail.
	var (
		text     strings.Builder
		tail     strings.Builder
		children []NodeID
		last     = InvalidNode
	)
	for _, tok := range e.Child {
		switch v := tok.(type) {
		case *etree.Element:
			if last != InvalidNode {
				t.nodes[last].tail = tail.String()
				tail.Reset()
			}
			last = t.copyElement(v, id)
			children = append(children, last)
		case *etree.CharData:
			if last == InvalidNode {
				text.WriteString(v.Data)
			} else {
				tail.WriteString(v.Data)
			}
		}
	}
	if last != InvalidNode {
		t.nodes[last].tail = tail.String()
	}

	n := &t.nodes[id]
	n.text = text.String()
	n.children = children
	return id
}

// liftNamespace moves an AUTOSAR default namespace declaration off the root
// and drops redundant redeclarations of it further down.
func (t *Tree) liftNamespace() {
	root := &t.nodes[t.root]
	for i, a := range root.attrs {
		if a.Name == "xmlns" && IsAutosarNamespace(a.Value) {
			t.namespace = a.Value
			root.attrs = append(root.attrs[:i], root.attrs[i+1:]...)
			break
		}
	}
	if t.namespace == "" {
		return
	}
	for i := 1; i < len(t.nodes); i++ {
		n := &t.nodes[i]
		if NodeID(i) == t.root || !n.alive {
			continue
		}
		for j, a := range n.attrs {
			if a.Name == "xmlns" && a.Value == t.namespace {
				n.attrs = append(n.attrs[:j], n.attrs[j+1:]...)
				break
			}
		}
	}
}
