package arxml

import "strings"

// Declaration is the XML declaration written by Format.
const Declaration = `<?xml version="1.0" encoding="utf-8"?>`

// FormatOptions controls Format output.
type FormatOptions struct {
	// Indent is one indentation unit.
	Indent string
	// Declaration prepends the XML declaration.
	Declaration bool
}

// DefaultFormatOptions returns four-space indentation with a declaration.
func DefaultFormatOptions() FormatOptions {
	return FormatOptions{Indent: "    ", Declaration: true}
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\r", "&#13;")
	attrEscaper = strings.NewReplacer(
		"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;",
		"\n", "&#10;", "\r", "&#13;", "\t", "&#9;",
	)
)

// Format writes the tree as indented markup.
//
// Every element with children puts each child on its own line one indent
// unit deeper and its end tag on a line of its own. Leaf text is trimmed;
// an empty leaf is written self-closing. Non-blank text inside a container
// and non-blank tails are kept, trimmed. The default namespace is written on
// the root. The output ends with a newline, and formatting the parse of the
// output yields the same output.
//
// An empty tree formats to the empty string.
func Format(t *Tree, opts FormatOptions) (string, error) {
	if t.Empty() {
		return "", nil
	}

	w := &writer{t: t, indent: opts.Indent}
	if opts.Declaration {
		w.b.WriteString(Declaration)
		w.b.WriteByte('\n')
	}
	if err := w.element(t.root, 0); err != nil {
		return "", err
	}
	w.b.WriteByte('\n')
	return w.b.String(), nil
}

type writer struct {
	t      *Tree
	indent string
	b      strings.Builder
}

func (w *writer) element(id NodeID, level int) error {
	n := &w.t.nodes[id]
	qname := w.t.QName(id)
	if !ValidQName(qname) {
		return &SerializationError{Node: id, Msg: "invalid element name " + quote(qname)}
	}

	w.b.WriteByte('<')
	w.b.WriteString(qname)
	if id == w.t.root && w.t.namespace != "" {
		w.attr("xmlns", w.t.namespace)
	}
	for _, a := range n.attrs {
		if !ValidQName(a.Name) {
			return &SerializationError{Node: id, Msg: "invalid attribute name " + quote(a.Name)}
		}
		if !validChars(a.Value) {
			return &SerializationError{Node: id, Msg: "attribute " + a.Name + " contains characters not allowed in XML"}
		}
		w.attr(a.Name, a.Value)
	}

	text := strings.TrimSpace(n.text)
	if !validChars(text) {
		return &SerializationError{Node: id, Msg: "text contains characters not allowed in XML"}
	}

	if len(n.children) == 0 {
		if text == "" {
			w.b.WriteString("/>")
			return nil
		}
		w.b.WriteByte('>')
		w.b.WriteString(textEscaper.Replace(text))
		w.closeTag(qname)
		return nil
	}

	w.b.WriteByte('>')
	if text != "" {
		w.b.WriteString(textEscaper.Replace(text))
	}
	for _, c := range n.children {
		w.newline(level + 1)
		if err := w.element(c, level+1); err != nil {
			return err
		}
		tail := strings.TrimSpace(w.t.nodes[c].tail)
		if tail != "" {
			if !validChars(tail) {
				return &SerializationError{Node: c, Msg: "tail contains characters not allowed in XML"}
			}
			w.b.WriteString(textEscaper.Replace(tail))
		}
	}
	w.newline(level)
	w.closeTag(qname)
	return nil
}

func (w *writer) attr(name, value string) {
	w.b.WriteByte(' ')
	w.b.WriteString(name)
	w.b.WriteString(`="`)
	w.b.WriteString(attrEscaper.Replace(value))
	w.b.WriteByte('"')
}

func (w *writer) closeTag(qname string) {
	w.b.WriteString("</")
	w.b.WriteString(qname)
	w.b.WriteByte('>')
}

func (w *writer) newline(level int) {
	w.b.WriteByte('\n')
	for i := 0; i < level; i++ {
		w.b.WriteString(w.indent)
	}
}

// validChars reports whether s contains only characters allowed in XML 1.0
// documents.
func validChars(s string) bool {
	for _, r := range s {
		switch {
		case r == 0x09 || r == 0x0A || r == 0x0D:
		case r >= 0x20 && r <= 0xD7FF:
		case r >= 0xE000 && r <= 0xFFFD:
		case r >= 0x10000 && r <= 0x10FFFF:
		default:
			return false
		}
	}
	return true
}

func quote(s string) string {
	return `"` + s + `"`
}
