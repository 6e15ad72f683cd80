package correlate

import (
	"errors"
	"sort"
	"strings"

	"github.com/dshills/ecucedit/internal/arxml"
)

// ErrCorrelationMiss indicates that a node has no occurrence in the text,
// or an offset lies inside no element. Callers skip the highlight or
// selection and carry on.
var ErrCorrelationMiss = errors.New("correlation miss")

// Range is a half-open byte range [Start, End) of the document text.
type Range struct {
	Start int
	End   int
}

// Len returns End - Start.
func (r Range) Len() int {
	return r.End - r.Start
}

// Contains reports whether offset lies in the range.
func (r Range) Contains(offset int) bool {
	return offset >= r.Start && offset < r.End
}

// Correlator maps nodes to text ranges and text offsets to nodes.
type Correlator interface {
	// Locate returns the text range of the node's element.
	Locate(id arxml.NodeID) (Range, error)
	// LocateNode returns the innermost element containing offset.
	LocateNode(offset int) (arxml.NodeID, error)
}

// Builder creates a Correlator for a tree and the text it was parsed from
// or serialized to.
type Builder func(t *arxml.Tree, text string) Correlator

// DefaultBuilder builds an occurrence Index.
func DefaultBuilder(t *arxml.Tree, text string) Correlator {
	return NewIndex(t, text)
}

// Key identifies an occurrence: the n-th element with a qualified name.
type Key struct {
	Name    string
	Ordinal int
}

// Index is the occurrence-counting Correlator.
type Index struct {
	spans    []Span
	spanByK  map[Key]int
	keyByID  map[arxml.NodeID]Key
	idByKey  map[Key]arxml.NodeID
	textSize int
}

var _ Correlator = (*Index)(nil)

// NewIndex scans text and numbers the nodes of t. Both sides use the
// qualified element name.
func NewIndex(t *arxml.Tree, text string) *Index {
	x := &Index{
		spans:    Scan(text),
		keyByID:  make(map[arxml.NodeID]Key),
		idByKey:  make(map[Key]arxml.NodeID),
		textSize: len(text),
	}
	x.spanByK = make(map[Key]int, len(x.spans))
	for i, sp := range x.spans {
		x.spanByK[Key{Name: sp.Name, Ordinal: sp.Ordinal}] = i
	}

	counts := make(map[string]int)
	for _, id := range t.Preorder() {
		name := t.QName(id)
		k := Key{Name: name, Ordinal: counts[name]}
		counts[name]++
		x.keyByID[id] = k
		x.idByKey[k] = id
	}
	return x
}

// KeyOf returns the occurrence key of a node.
func (x *Index) KeyOf(id arxml.NodeID) (Key, bool) {
	k, ok := x.keyByID[id]
	return k, ok
}

// Spans returns the scanned occurrences in document order.
func (x *Index) Spans() []Span {
	out := make([]Span, len(x.spans))
	copy(out, x.spans)
	return out
}

// Locate implements Correlator.
func (x *Index) Locate(id arxml.NodeID) (Range, error) {
	k, ok := x.keyByID[id]
	if !ok {
		return Range{}, ErrCorrelationMiss
	}
	i, ok := x.spanByK[k]
	if !ok {
		return Range{}, ErrCorrelationMiss
	}
	sp := x.spans[i]
	return Range{Start: sp.Start, End: sp.End}, nil
}

// LocateNode implements Correlator.
func (x *Index) LocateNode(offset int) (arxml.NodeID, error) {
	if offset < 0 || offset > x.textSize {
		return arxml.InvalidNode, ErrCorrelationMiss
	}

	// Spans are ordered by start and properly nested, so the innermost span
	// containing offset is the last one starting at or before it that has
	// not ended yet.
	last := sort.Search(len(x.spans), func(i int) bool {
		return x.spans[i].Start > offset
	}) - 1
	for i := last; i >= 0; i-- {
		sp := x.spans[i]
		if offset >= sp.End {
			continue
		}
		id, ok := x.idByKey[Key{Name: sp.Name, Ordinal: sp.Ordinal}]
		if !ok {
			return arxml.InvalidNode, ErrCorrelationMiss
		}
		return id, nil
	}
	return arxml.InvalidNode, ErrCorrelationMiss
}

// Find returns every non-overlapping literal occurrence of term in text.
func Find(text, term string) []Range {
	if term == "" {
		return nil
	}
	var out []Range
	for from := 0; from <= len(text); {
		i := strings.Index(text[from:], term)
		if i < 0 {
			break
		}
		start := from + i
		out = append(out, Range{Start: start, End: start + len(term)})
		from = start + len(term)
	}
	return out
}
