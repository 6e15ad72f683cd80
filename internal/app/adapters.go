package app

import (
	"github.com/dshills/ecucedit/internal/arxml"
	"github.com/dshills/ecucedit/internal/correlate"
	"github.com/dshills/ecucedit/internal/syncer"
	"github.com/dshills/ecucedit/internal/textbuf"
)

// Compile-time interface checks.
var (
	_ syncer.Listener    = (*syncAdapter)(nil)
	_ syncer.TextSurface = (*textbuf.Buffer)(nil)
)

// syncAdapter receives synchronizer events, records what the application
// needs and forwards them to the front-end listener.
type syncAdapter struct {
	app  *Application
	next syncer.Listener
}

func (a *syncAdapter) TreeRebuilt(snap *syncer.Snapshot) {
	a.app.syncErr = nil
	a.next.TreeRebuilt(snap)
}

func (a *syncAdapter) TextReplaced(text string, cursor int) {
	a.next.TextReplaced(text, cursor)
}

func (a *syncAdapter) HighlightRange(r correlate.Range) {
	a.next.HighlightRange(r)
}

func (a *syncAdapter) SelectionChanged(id arxml.NodeID) {
	a.next.SelectionChanged(id)
}

func (a *syncAdapter) SyncFailed(err error) {
	a.app.syncErr = err
	a.app.log.Debug("sync failed: %v", err)
	a.next.SyncFailed(err)
}
