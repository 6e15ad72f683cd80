// Package syncer keeps a document's text and its element tree consistent.
//
// Text edits are debounced: each change restarts the timer and only the
// final text is parsed. A failed parse keeps the previous tree. Tree edits
// are applied at once: the tree is serialized and written back to the
// text, which cancels any pending text rebuild.
//
// The synchronizer is not safe for concurrent use. All entry points,
// including the debounce callback, must run on one goroutine; the editor
// uses its event loop as the debounce scheduler for that reason.
package syncer

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dshills/ecucedit/internal/arxml"
	"github.com/dshills/ecucedit/internal/correlate"
	"github.com/dshills/ecucedit/internal/debounce"
	"github.com/dshills/ecucedit/internal/extract"
	"github.com/dshills/ecucedit/internal/logging"
	"github.com/dshills/ecucedit/internal/outline"
)

// DefaultDelay is the quiet period before a text edit is parsed.
const DefaultDelay = time.Second

// Errors returned by Apply.
var (
	ErrNilOp = errors.New("nil tree operation")
	ErrBusy  = errors.New("synchronizer is rebuilding")
)

// Synchronizer couples a TextSurface with the committed Snapshot.
type Synchronizer struct {
	surface  TextSurface
	listener Listener
	log      *logging.Logger
	metrics  *Metrics
	builder  correlate.Builder
	format   arxml.FormatOptions
	sched    debounce.Scheduler
	delay    time.Duration
	debounce *debounce.Debouncer

	state      State
	guard      echoGuard
	autoSync   bool
	dirty      bool // surface text differs from snap.Text
	pending    string
	pendingGen uint64
	generation uint64
	seq        uint64
	snap       *Snapshot
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithListener sets the event listener.
func WithListener(l Listener) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.listener = l
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Synchronizer) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithScheduler sets the scheduler for the debounce timer.
func WithScheduler(sched debounce.Scheduler) Option {
	return func(s *Synchronizer) {
		s.sched = sched
	}
}

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(s *Synchronizer) {
		s.delay = d
	}
}

// WithBuilder replaces the correlation strategy.
func WithBuilder(b correlate.Builder) Option {
	return func(s *Synchronizer) {
		if b != nil {
			s.builder = b
		}
	}
}

// WithFormatOptions sets how the tree is serialized.
func WithFormatOptions(o arxml.FormatOptions) Option {
	return func(s *Synchronizer) {
		s.format = o
	}
}

// WithAutoSync sets whether text edits schedule a rebuild.
func WithAutoSync(on bool) Option {
	return func(s *Synchronizer) {
		s.autoSync = on
	}
}

// New creates a synchronizer for surface with an empty document.
func New(surface TextSurface, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		surface:  surface,
		listener: NopListener{},
		log:      logging.Nop(),
		builder:  correlate.DefaultBuilder,
		format:   arxml.DefaultFormatOptions(),
		delay:    DefaultDelay,
		autoSync: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	s.log = s.log.WithComponent("sync")
	s.debounce = debounce.New(s.sched, s.delay, s.onDebounce)
	s.commit(arxml.New(), "", OriginOpen, time.Now(), false)
	return s
}

// State returns the current phase.
func (s *Synchronizer) State() State {
	return s.state
}

// Snapshot returns the committed snapshot. It is never nil.
func (s *Synchronizer) Snapshot() *Snapshot {
	return s.snap
}

// Dirty reports whether the text changed since the last committed
// snapshot.
func (s *Synchronizer) Dirty() bool {
	return s.dirty
}

// Generation increases every time a document is opened or closed.
func (s *Synchronizer) Generation() uint64 {
	return s.generation
}

// AutoSync reports whether text edits schedule a rebuild.
func (s *Synchronizer) AutoSync() bool {
	return s.autoSync
}

// SetAutoSync turns debounced rebuilds on or off. Turning it on with
// unsynced text schedules a rebuild; turning it off cancels a pending one.
func (s *Synchronizer) SetAutoSync(on bool) {
	s.autoSync = on
	switch {
	case on && s.dirty && s.state == StateIdle:
		s.schedule()
	case !on && s.state == StatePendingTextSync:
		s.debounce.Cancel()
		s.state = StateIdle
	}
}

// SetDelay changes the debounce delay.
func (s *Synchronizer) SetDelay(d time.Duration) {
	s.debounce.SetDelay(d)
}

// Open replaces the document. The pending rebuild of the previous document
// is cancelled. Text that does not parse is still shown; the tree is then
// empty and the parse error is returned.
func (s *Synchronizer) Open(text string) error {
	start := time.Now()
	s.debounce.Cancel()
	s.generation++

	s.state = StateRebuilding
	s.writeText(text)
	s.setView(0, 0)

	tree, err := arxml.Parse(text)
	if err != nil {
		s.metrics.ParseFailuresTotal.Inc()
		s.commit(arxml.New(), text, OriginOpen, start, false)
		s.dirty = true
		s.pending = text
		s.state = StateIdle
		s.listener.TextReplaced(text, 0)
		s.listener.TreeRebuilt(s.snap)
		s.listener.SyncFailed(err)
		return err
	}

	s.commit(tree, text, OriginOpen, start, false)
	s.dirty = false
	s.state = StateIdle
	s.listener.TextReplaced(text, 0)
	s.listener.TreeRebuilt(s.snap)
	return nil
}

// Close drops the document and clears the text.
func (s *Synchronizer) Close() {
	start := time.Now()
	s.debounce.Cancel()
	s.generation++

	s.state = StateRebuilding
	s.writeText("")
	s.setView(0, 0)
	s.commit(arxml.New(), "", OriginOpen, start, false)
	s.dirty = false
	s.state = StateIdle
	s.listener.TextReplaced("", 0)
	s.listener.TreeRebuilt(s.snap)
}

// OnTextChanged is called by the surface after every text change. Changes
// caused by the synchronizer's own writes are ignored.
func (s *Synchronizer) OnTextChanged(text string) {
	if s.state == StateRebuilding {
		s.metrics.SuppressedEchoesTotal.Inc()
		return
	}
	s.pending = text
	s.dirty = true
	if s.autoSync {
		s.schedule()
	}
}

func (s *Synchronizer) schedule() {
	s.state = StatePendingTextSync
	s.pendingGen = s.generation
	s.debounce.Call()
}

func (s *Synchronizer) onDebounce() {
	if s.state != StatePendingTextSync || s.pendingGen != s.generation {
		return
	}
	_ = s.syncText(s.pending, OriginText)
}

// Sync parses the current text now, cancelling any pending rebuild. The
// parse error is returned; the previous snapshot is kept.
func (s *Synchronizer) Sync() error {
	s.debounce.Cancel()
	if s.state == StatePendingTextSync {
		s.state = StateIdle
	}
	return s.syncText(s.surface.Text(), OriginManual)
}

func (s *Synchronizer) syncText(text string, origin Origin) error {
	start := time.Now()
	s.state = StateRebuilding

	tree, err := arxml.Parse(text)
	if err != nil {
		s.state = StateIdle
		s.metrics.ParseFailuresTotal.Inc()
		s.log.Debug("rebuild skipped: %v", err)
		s.listener.SyncFailed(err)
		return err
	}

	s.commit(tree, text, origin, start, true)
	s.dirty = false
	s.state = StateIdle
	s.listener.TreeRebuilt(s.snap)
	s.refreshHighlight()
	return nil
}

// Apply performs a tree edit. The edit runs on a copy of the tree; when
// the copy changed it is serialized, written to the text and committed,
// and a pending text rebuild is cancelled. Operation and serialization
// errors leave everything as it was.
func (s *Synchronizer) Apply(op Op) error {
	if op == nil {
		return ErrNilOp
	}
	if s.state == StateRebuilding {
		return fmt.Errorf("%s: %w", op, ErrBusy)
	}

	tree := s.snap.Tree.Clone()
	changes := 0
	tree.SetObserver(func() { changes++ })

	var sel arxml.NodeID
	err := tree.Batch(func() error {
		var err error
		sel, err = op.Apply(tree)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if changes == 0 {
		return nil
	}
	if s.state == StatePendingTextSync {
		s.log.Debug("%s discards the pending text rebuild", op)
	}
	return s.pushTree(tree, sel, OriginTree)
}

// OnTreeEditRequested is Apply under the name the tree view uses.
func (s *Synchronizer) OnTreeEditRequested(op Op) error {
	return s.Apply(op)
}

// Format re-serializes the document. Unsynced text is parsed first and a
// parse error is returned.
func (s *Synchronizer) Format() error {
	if s.dirty {
		if err := s.Sync(); err != nil {
			return err
		}
	}
	if s.snap.Empty() {
		return nil
	}
	return s.pushTree(s.snap.Tree, s.snap.Outline.Selected(), OriginFormat)
}

// pushTree serializes t, writes it to the surface and commits it.
func (s *Synchronizer) pushTree(t *arxml.Tree, sel arxml.NodeID, origin Origin) error {
	start := time.Now()
	text, err := arxml.Format(t, s.format)
	if err != nil {
		s.log.Error("serialize: %v", err)
		return err
	}

	s.debounce.Cancel()
	s.state = StateRebuilding
	cursor := s.writeText(text)
	s.commit(t, text, origin, start, true)
	if sel != arxml.InvalidNode {
		s.snap.Outline.Select(sel)
	}
	s.dirty = false
	s.state = StateIdle

	s.listener.TextReplaced(text, cursor)
	s.listener.TreeRebuilt(s.snap)
	s.refreshHighlight()
	return nil
}

// treeMutated handles mutations made directly on the committed tree.
func (s *Synchronizer) treeMutated(t *arxml.Tree) {
	if s.snap.Tree != t || s.state == StateRebuilding {
		return
	}
	if err := s.pushTree(t, s.snap.Outline.Selected(), OriginTree); err != nil {
		s.listener.SyncFailed(err)
	}
}

// commit builds and installs a snapshot. With restore, the outline takes
// over the previous expansion and selection by label path.
func (s *Synchronizer) commit(t *arxml.Tree, text string, origin Origin, start time.Time, restore bool) {
	ol := outline.Build(t)
	if restore && s.snap != nil {
		ol.Restore(s.snap.Outline.State())
	}
	cfg := extract.Extract(t)
	for _, w := range cfg.Warnings {
		s.log.Debug("extract: %s", w)
	}

	if s.snap != nil && s.snap.Tree != t {
		s.snap.Tree.SetObserver(nil)
	}
	t.SetObserver(func() { s.treeMutated(t) })

	s.seq++
	s.snap = &Snapshot{
		Tree:       t,
		Text:       text,
		Correlator: s.builder(t, text),
		Config:     cfg,
		Outline:    ol,
		Seq:        s.seq,
	}
	s.metrics.RebuildsTotal.WithLabelValues(string(origin)).Inc()
	s.metrics.RebuildDuration.Observe(time.Since(start).Seconds())
}

// writeText replaces the surface text, keeping cursor and scroll where
// they still fit. It returns the restored cursor.
func (s *Synchronizer) writeText(text string) int {
	cursor, scroll := s.surface.Cursor(), s.surface.ScrollTop()
	s.guard = guardCursor
	s.surface.SetText(text)
	s.surface.SetCursor(clampOffset(text, cursor))
	s.surface.SetScrollTop(scroll)
	s.guard = guardNone
	return s.surface.Cursor()
}

func (s *Synchronizer) setView(cursor, scroll int) {
	s.guard = guardCursor
	s.surface.SetCursor(cursor)
	s.surface.SetScrollTop(scroll)
	s.guard = guardNone
}

// OnTreeNodeSelected highlights the element of id in the text and moves
// the cursor to its start.
func (s *Synchronizer) OnTreeNodeSelected(id arxml.NodeID) {
	if s.guard == guardSelection || s.state == StateRebuilding {
		s.metrics.SuppressedEchoesTotal.Inc()
		return
	}
	if !s.snap.Outline.Select(id) {
		return
	}
	r, ok := s.locate(id)
	if !ok {
		s.listener.HighlightRange(correlate.Range{})
		return
	}
	s.listener.HighlightRange(r)
	s.guard = guardCursor
	s.surface.SetCursor(r.Start)
	s.guard = guardNone
}

// OnCursorMoved selects the element around offset. It does nothing while
// the text has unsynced changes, since offsets no longer match the index.
func (s *Synchronizer) OnCursorMoved(offset int) {
	if s.guard == guardCursor || s.state == StateRebuilding {
		s.metrics.SuppressedEchoesTotal.Inc()
		return
	}
	if s.dirty || s.snap.Empty() {
		return
	}
	id, err := s.snap.Correlator.LocateNode(offset)
	if err != nil {
		s.metrics.CorrelationMissesTotal.Inc()
		return
	}
	ol := s.snap.Outline
	for id != arxml.InvalidNode {
		if _, ok := ol.Item(id); ok {
			break
		}
		id = s.snap.Tree.Parent(id)
	}
	if id == arxml.InvalidNode || id == ol.Selected() {
		return
	}

	ol.Select(id)
	s.guard = guardSelection
	s.listener.SelectionChanged(id)
	s.guard = guardNone
	if r, ok := s.locate(id); ok {
		s.listener.HighlightRange(r)
	}
}

// locate returns the text range of id. While the text has unsynced
// changes the range is only trusted if it still starts with the element's
// start tag.
func (s *Synchronizer) locate(id arxml.NodeID) (correlate.Range, bool) {
	r, err := s.snap.Correlator.Locate(id)
	if err != nil {
		s.metrics.CorrelationMissesTotal.Inc()
		return correlate.Range{}, false
	}
	if s.dirty {
		text := s.surface.Text()
		if r.End > len(text) || !strings.HasPrefix(text[r.Start:], "<"+s.snap.Tree.QName(id)) {
			s.metrics.CorrelationMissesTotal.Inc()
			return correlate.Range{}, false
		}
	}
	return r, true
}

// refreshHighlight re-resolves the highlight of the selection after a
// rebuild.
func (s *Synchronizer) refreshHighlight() {
	sel := s.snap.Outline.Selected()
	if sel == arxml.InvalidNode {
		return
	}
	r, ok := s.locate(sel)
	if !ok {
		s.listener.HighlightRange(correlate.Range{})
		return
	}
	s.listener.HighlightRange(r)
}

// Validate parses the current text and checks its structure. Extraction
// warnings are added to the report. A parse error is returned.
func (s *Synchronizer) Validate() (*arxml.Report, error) {
	tree, err := arxml.Parse(s.surface.Text())
	if err != nil {
		return nil, err
	}
	rep := arxml.Validate(tree)
	for _, w := range extract.Extract(tree).Warnings {
		rep.Add(arxml.SeverityWarning, w.Node, "%s", w)
	}
	return rep, nil
}

// Search returns the literal occurrences of term in the current text.
func (s *Synchronizer) Search(term string) []correlate.Range {
	return correlate.Find(s.surface.Text(), term)
}

func clampOffset(text string, offset int) int {
	if offset <= 0 {
		return 0
	}
	if offset >= len(text) {
		return len(text)
	}
	for offset > 0 && !utf8.RuneStart(text[offset]) {
		offset--
	}
	return offset
}
