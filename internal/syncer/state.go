package syncer

import (
	"github.com/dshills/ecucedit/internal/arxml"
	"github.com/dshills/ecucedit/internal/correlate"
	"github.com/dshills/ecucedit/internal/extract"
	"github.com/dshills/ecucedit/internal/outline"
)

// State is the phase of the synchronizer.
type State int

const (
	// StateIdle means text and tree agree (or the last text failed to
	// parse and the previous tree is kept).
	StateIdle State = iota
	// StatePendingTextSync means the text changed and a rebuild is
	// scheduled.
	StatePendingTextSync
	// StateRebuilding means a rebuild or a programmatic text write is in
	// progress.
	StateRebuilding
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePendingTextSync:
		return "pending"
	case StateRebuilding:
		return "rebuilding"
	default:
		return "unknown"
	}
}

// echoGuard marks which notification the synchronizer is itself causing.
type echoGuard int

const (
	guardNone echoGuard = iota
	guardCursor
	guardSelection
)

// Origin labels what triggered a rebuild.
type Origin string

const (
	OriginOpen   Origin = "open"
	OriginText   Origin = "text"
	OriginTree   Origin = "tree"
	OriginManual Origin = "manual"
	OriginFormat Origin = "format"
)

// Snapshot is one committed, mutually consistent view of the document. It
// is replaced as a whole on every rebuild; holders must not keep node ids
// across a rebuild.
type Snapshot struct {
	// Tree is the parsed document.
	Tree *arxml.Tree

	// Text is the text the correlator was built from.
	Text string

	// Correlator maps Tree nodes to ranges of Text.
	Correlator correlate.Correlator

	// Config is the typed parameter view of Tree.
	Config *extract.Config

	// Outline is the structural view with expansion and selection.
	Outline *outline.Outline

	// Seq increases by one with every committed snapshot.
	Seq uint64
}

// Empty reports whether the snapshot holds no document.
func (s *Snapshot) Empty() bool {
	return s == nil || s.Tree == nil || s.Tree.Empty()
}

// TextSurface is the editable text the synchronizer keeps in step with
// the tree.
type TextSurface interface {
	Text() string
	SetText(text string)
	Cursor() int
	SetCursor(offset int)
	ScrollTop() int
	SetScrollTop(line int)
}

// Listener receives synchronizer events. Calls happen on the goroutine
// that drove the synchronizer.
type Listener interface {
	// TreeRebuilt is called after a new snapshot is committed.
	TreeRebuilt(snap *Snapshot)
	// TextReplaced is called after the synchronizer wrote text, with the
	// restored cursor offset.
	TextReplaced(text string, cursor int)
	// HighlightRange marks the element range for the selected node. A zero
	// range clears the highlight.
	HighlightRange(r correlate.Range)
	// SelectionChanged is called when the text cursor selected a node.
	SelectionChanged(id arxml.NodeID)
	// SyncFailed reports a rebuild that failed. The previous snapshot is
	// still current.
	SyncFailed(err error)
}

// NopListener ignores all events. Embed it to implement a subset.
type NopListener struct{}

func (NopListener) TreeRebuilt(*Snapshot) {}
func (NopListener) TextReplaced(string, int) {}
func (NopListener) HighlightRange(correlate.Range) {}
func (NopListener) SelectionChanged(arxml.NodeID) {}
func (NopListener) SyncFailed(error) {}
