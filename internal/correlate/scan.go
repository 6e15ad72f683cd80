// Package correlate maps tree nodes to byte ranges of the document text and
// back.
//
// The default strategy is occurrence counting: the n-th element named X in
// a preorder walk of the tree is matched with the n-th <X start tag in the
// text. The mapping is only as good as the agreement between the tree and
// the text it was built from, so callers rebuild it together with the tree.
package correlate

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Span is one element occurrence found in text.
type Span struct {
	Name        string // qualified name as written
	Ordinal     int    // occurrences of Name before this one
	Start       int    // offset of '<'
	End         int    // offset just past the element's end
	SelfClosing bool
	Closed      bool // false when the end defaulted to end of line
}

// Scan lists every start tag in text, in document order.
//
// Comments, CDATA sections, processing instructions and <!...> declarations
// are skipped, as are quoted attribute values. A start tag is '<' followed
// by a name and then whitespace, '/' or '>'. An element ends just past its
// matching end tag (nested elements with the same name are balanced), or
// past "/>" when self-closing. Elements never closed end at the end of the
// line holding their start tag.
func Scan(text string) []Span {
	var (
		spans  []Span
		stack  []int
		counts = make(map[string]int)
		n      = len(text)
		i      = 0
	)

	for i < n {
		lt := strings.IndexByte(text[i:], '<')
		if lt < 0 {
			break
		}
		i += lt
		rest := text[i:]

		switch {
		case strings.HasPrefix(rest, "<!--"):
			i = skipPast(text, i+4, "-->")
		case strings.HasPrefix(rest, "<![CDATA["):
			i = skipPast(text, i+9, "]]>")
		case strings.HasPrefix(rest, "<?"):
			i = skipPast(text, i+2, "?>")
		case strings.HasPrefix(rest, "<!"):
			i = skipDeclaration(text, i+2)
		case strings.HasPrefix(rest, "</"):
			name, j := readName(text, i+2)
			if name == "" {
				i += 2
				continue
			}
			end := n
			if gt := strings.IndexByte(text[j:], '>'); gt >= 0 {
				end = j + gt + 1
			}
			for k := len(stack) - 1; k >= 0; k-- {
				sp := &spans[stack[k]]
				if sp.Name != name {
					continue
				}
				sp.End = end
				sp.Closed = true
				for _, open := range stack[k+1:] {
					spans[open].End = endOfLine(text, spans[open].Start)
				}
				stack = stack[:k]
				break
			}
			i = end
		default:
			name, j := readName(text, i+1)
			if name == "" {
				i++
				continue
			}
			end, selfClosing := scanTagEnd(text, j)
			sp := Span{Name: name, Ordinal: counts[name], Start: i}
			counts[name]++
			if selfClosing {
				sp.End = end
				sp.SelfClosing = true
				sp.Closed = true
				spans = append(spans, sp)
			} else {
				spans = append(spans, sp)
				stack = append(stack, len(spans)-1)
			}
			i = end
		}
	}

	for _, open := range stack {
		spans[open].End = endOfLine(text, spans[open].Start)
	}
	return spans
}

// readName reads a tag name starting at i. It returns "" unless the name
// starts with a name-start character and is followed by whitespace, '/',
// '>' or the end of text.
func readName(text string, i int) (string, int) {
	r, size := utf8.DecodeRuneInString(text[i:])
	if size == 0 || !(r == '_' || r == ':' || unicode.IsLetter(r)) {
		return "", i
	}
	j := i + size
	for j < len(text) {
		c := text[j]
		if c == '>' || c == '/' || isSpace(c) {
			return text[i:j], j
		}
		if c == '<' || c == '=' || c == '"' || c == '\'' {
			return "", i
		}
		j++
	}
	return text[i:j], j
}

// scanTagEnd finds the '>' closing a start tag, skipping quoted values. It
// returns the offset just past it and whether the tag was self-closing.
func scanTagEnd(text string, i int) (int, bool) {
	var quote byte
	for ; i < len(text); i++ {
		c := text[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return i + 1, i > 0 && text[i-1] == '/'
		}
	}
	return len(text), false
}

func skipPast(text string, i int, marker string) int {
	if i > len(text) {
		return len(text)
	}
	if k := strings.Index(text[i:], marker); k >= 0 {
		return i + k + len(marker)
	}
	return len(text)
}

// skipDeclaration skips <!DOCTYPE ...> including an internal subset in
// brackets.
func skipDeclaration(text string, i int) int {
	depth := 0
	var quote byte
	for ; i < len(text); i++ {
		c := text[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[':
			depth++
		case c == ']':
			depth--
		case c == '>' && depth <= 0:
			return i + 1
		}
	}
	return len(text)
}

func endOfLine(text string, i int) int {
	if k := strings.IndexByte(text[i:], '\n'); k >= 0 {
		return i + k
	}
	return len(text)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
