package syncer

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ecucedit/internal/arxml"
	"github.com/dshills/ecucedit/internal/correlate"
	"github.com/dshills/ecucedit/internal/debounce"
	"github.com/dshills/ecucedit/internal/outline"
	"github.com/dshills/ecucedit/internal/textbuf"
)

type recorder struct {
	rebuilt    []*Snapshot
	replaced   []string
	cursors    []int
	highlights []correlate.Range
	selected   []arxml.NodeID
	failures   []error
}

func (r *recorder) TreeRebuilt(s *Snapshot) { r.rebuilt = append(r.rebuilt, s) }
func (r *recorder) TextReplaced(text string, cursor int) {
	r.replaced = append(r.replaced, text)
	r.cursors = append(r.cursors, cursor)
}
func (r *recorder) HighlightRange(rg correlate.Range) { r.highlights = append(r.highlights, rg) }
func (r *recorder) SelectionChanged(id arxml.NodeID) { r.selected = append(r.selected, id) }
func (r *recorder) SyncFailed(err error) { r.failures = append(r.failures, err) }

func (r *recorder) lastHighlight() correlate.Range {
	if len(r.highlights) == 0 {
		return correlate.Range{}
	}
	return r.highlights[len(r.highlights)-1]
}

type harness struct {
	buf   *textbuf.Buffer
	sched *debounce.ManualScheduler
	rec   *recorder
	m     *Metrics
	s     *Synchronizer
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		buf:   textbuf.New(),
		sched: debounce.NewManualScheduler(),
		rec:   &recorder{},
		m:     NewMetrics(prometheus.NewRegistry()),
	}
	opts = append([]Option{
		WithScheduler(h.sched),
		WithListener(h.rec),
		WithMetrics(h.m),
		WithDelay(time.Second),
	}, opts...)
	h.s = New(h.buf, opts...)
	h.buf.OnChange(h.s.OnTextChanged)
	h.buf.OnCursorMove(h.s.OnCursorMoved)
	return h
}

func (h *harness) open(t *testing.T, text string) {
	t.Helper()
	require.NoError(t, h.s.Open(text))
	h.rec.rebuilt = nil
	h.rec.replaced = nil
	h.rec.cursors = nil
	h.rec.highlights = nil
	h.rec.selected = nil
}

// touch makes a harmless text edit that leaves the document valid.
func (h *harness) touch(t *testing.T) {
	t.Helper()
	off := strings.Index(h.buf.Text(), "<AR-PACKAGES>")
	require.GreaterOrEqual(t, off, 0)
	require.NoError(t, h.buf.Insert(off, "\n"))
}

func (h *harness) rebuilds(origin Origin) float64 {
	return testutil.ToFloat64(h.m.RebuildsTotal.WithLabelValues(string(origin)))
}

func sample(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../arxml/testdata/dio.arxml")
	require.NoError(t, err)
	return string(data)
}

func item(t *testing.T, s *Synchronizer, label string) *outline.Item {
	t.Helper()
	for _, it := range s.Snapshot().Outline.Filter(label) {
		if it.Label == label {
			return it
		}
	}
	t.Fatalf("no outline item %q", label)
	return nil
}

func TestOpen(t *testing.T) {
	h := newHarness(t)
	text := sample(t)
	require.NoError(t, h.s.Open(text))

	snap := h.s.Snapshot()
	assert.False(t, snap.Empty())
	assert.Equal(t, text, snap.Text)
	assert.Equal(t, text, h.buf.Text())
	assert.Equal(t, 7, snap.Config.ParamCount())
	assert.Equal(t, StateIdle, h.s.State())
	assert.False(t, h.s.Dirty())
	assert.Len(t, h.rec.rebuilt, 1)
	assert.Equal(t, []string{text}, h.rec.replaced)
	assert.Equal(t, 0.0, h.rebuilds(OriginText), "opening must not schedule a text rebuild")
	assert.Equal(t, 0, h.sched.Pending())
}

func TestOpen_InvalidTextIsShown(t *testing.T) {
	h := newHarness(t)
	err := h.s.Open("<A><B></A>")
	require.Error(t, err)
	assert.True(t, arxml.IsParseError(err))

	assert.Equal(t, "<A><B></A>", h.buf.Text())
	assert.True(t, h.s.Snapshot().Empty())
	assert.True(t, h.s.Dirty())
	require.Len(t, h.rec.failures, 1)
}

func TestDebounce_CoalescesEdits(t *testing.T) {
	h := newHarness(t)
	h.open(t, "<A>\n    <B>x</B>\n</A>\n")

	off := strings.Index(h.buf.Text(), "x")
	for i := 0; i < 5; i++ {
		require.NoError(t, h.buf.Insert(off+1+i, "y"))
		assert.Equal(t, StatePendingTextSync, h.s.State())
		h.sched.Advance(500 * time.Millisecond)
	}
	assert.Empty(t, h.rec.rebuilt, "no rebuild inside the debounce window")

	h.sched.Advance(time.Second)
	require.Len(t, h.rec.rebuilt, 1)
	assert.Equal(t, 1.0, h.rebuilds(OriginText))

	snap := h.s.Snapshot()
	assert.Equal(t, h.buf.Text(), snap.Text)
	b := snap.Tree.Children(snap.Tree.Root())[0]
	assert.Equal(t, "xyyyyy", snap.Tree.Text(b))
	assert.Equal(t, StateIdle, h.s.State())
	assert.False(t, h.s.Dirty())
}

func TestTreeEdit_DoesNotReenter(t *testing.T) {
	h := newHarness(t)
	h.open(t, sample(t))
	gen := item(t, h.s, "DioGeneral")

	require.NoError(t, h.s.Apply(AddChild{Parent: gen.ID, Tag: "ADMIN-DATA"}))

	assert.Equal(t, StateIdle, h.s.State())
	assert.False(t, h.s.Dirty())
	assert.Equal(t, 0, h.sched.Pending(), "programmatic write scheduled a rebuild")
	assert.GreaterOrEqual(t, testutil.ToFloat64(h.m.SuppressedEchoesTotal), 1.0)

	h.sched.Advance(10 * time.Second)
	assert.Len(t, h.rec.rebuilt, 1)
	assert.Len(t, h.rec.replaced, 1)
	assert.Equal(t, 1.0, h.rebuilds(OriginTree))
	assert.Equal(t, 0.0, h.rebuilds(OriginText))

	assert.Contains(t, h.buf.Text(), "<ADMIN-DATA/>")
	assert.Equal(t, h.buf.Text(), h.s.Snapshot().Text)
}

func TestScenario_SelectSecondOccurrence(t *testing.T) {
	h := newHarness(t)
	text := "<R>\n  <X><SHORT-NAME>A</SHORT-NAME></X>\n  <X><SHORT-NAME>B</SHORT-NAME></X>\n</R>"
	h.open(t, text)

	b := item(t, h.s, "B")
	h.s.OnTreeNodeSelected(b.ID)

	want := "<X><SHORT-NAME>B</SHORT-NAME></X>"
	r := h.rec.lastHighlight()
	assert.Equal(t, want, text[r.Start:r.End])
	assert.Equal(t, strings.LastIndex(text, "<X>"), r.Start)
	assert.Equal(t, r.Start, h.buf.Cursor())
	assert.Empty(t, h.rec.selected, "the cursor move must not echo a selection")
	assert.Equal(t, b.ID, h.s.Snapshot().Outline.Selected())
}

func TestScenario_UnmatchedLessThan(t *testing.T) {
	h := newHarness(t)
	h.open(t, sample(t))
	before := h.s.Snapshot()

	off := strings.Index(h.buf.Text(), "<AR-PACKAGES>")
	require.NoError(t, h.buf.Insert(off, "< "))
	h.sched.Advance(time.Second)

	assert.Same(t, before, h.s.Snapshot(), "previous tree must be kept")
	assert.Equal(t, StateIdle, h.s.State())
	assert.True(t, h.s.Dirty())
	require.Len(t, h.rec.failures, 1)
	assert.True(t, arxml.IsParseError(h.rec.failures[0]))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.m.ParseFailuresTotal))
	assert.Empty(t, h.rec.rebuilt)

	require.NoError(t, h.buf.Delete(off, off+2))
	h.sched.Advance(time.Second)
	require.Len(t, h.rec.rebuilt, 1)
	assert.NotSame(t, before, h.s.Snapshot())
	assert.False(t, h.s.Dirty())
}

func TestTreeEdit_CancelsPendingTextSync(t *testing.T) {
	h := newHarness(t)
	h.open(t, sample(t))

	h.touch(t)
	require.Equal(t, StatePendingTextSync, h.s.State())

	speed := item(t, h.s, "DioPortSpeed")
	require.NoError(t, h.s.Apply(SetValue{Node: speed.ID, Value: "3.75"}))
	assert.Equal(t, StateIdle, h.s.State())
	assert.Equal(t, 0, h.sched.Pending())

	h.sched.Advance(5 * time.Second)
	assert.Equal(t, 0.0, h.rebuilds(OriginText))
	assert.Contains(t, h.buf.Text(), "<VALUE>3.75</VALUE>")

	v, ok := h.s.Snapshot().Config.Lookup("DioPort_A", "DioPortSpeed")
	require.True(t, ok)
	assert.Equal(t, 3.75, v.Float)
}

func TestTreeEdit_FailureKeepsPendingSync(t *testing.T) {
	h := newHarness(t)
	h.open(t, sample(t))
	h.touch(t)

	err := h.s.Apply(Delete{Node: arxml.NodeID(9999)})
	assert.ErrorIs(t, err, arxml.ErrNodeNotFound)
	assert.Equal(t, StatePendingTextSync, h.s.State())
	assert.Equal(t, 1, h.sched.Pending())

	h.sched.Advance(time.Second)
	assert.Equal(t, 1.0, h.rebuilds(OriginText))
}

func TestTreeEdit_SerializationError(t *testing.T) {
	h := newHarness(t)
	text := sample(t)
	h.open(t, text)
	before := h.s.Snapshot()
	name := item(t, h.s, "DioPortName")

	err := h.s.Apply(Func(func(tr *arxml.Tree) (arxml.NodeID, error) {
		return name.ID, tr.SetText(tr.FindChild(name.ID, arxml.TagValue), "bad\x01")
	}))
	var serr *arxml.SerializationError
	require.ErrorAs(t, err, &serr)

	assert.Same(t, before, h.s.Snapshot())
	assert.Equal(t, text, h.buf.Text())
	assert.Equal(t, "GPIOA", before.Tree.DescendantText(name.ID, arxml.TagValue), "committed tree was mutated")
}

func TestTreeEdit_RestoresCursorAndScroll(t *testing.T) {
	h := newHarness(t)
	h.open(t, sample(t))
	h.buf.SetCursor(50)
	h.buf.SetScrollTop(4)

	speed := item(t, h.s, "DioPortSpeed")
	require.NoError(t, h.s.Apply(SetValue{Node: speed.ID, Value: "1"}))
	assert.Equal(t, 50, h.buf.Cursor())
	assert.Equal(t, 4, h.buf.ScrollTop())
	assert.Equal(t, []int{50}, h.rec.cursors)

	require.NoError(t, h.s.Apply(Delete{Node: h.s.Snapshot().Tree.Root()}))
	assert.Equal(t, "", h.buf.Text())
	assert.Equal(t, 0, h.buf.Cursor())
	assert.Equal(t, 0, h.buf.ScrollTop())
	assert.True(t, h.s.Snapshot().Empty())

	require.NoError(t, h.s.Apply(AddChild{Tag: "AUTOSAR", ShortName: "Fresh"}))
	want := arxml.Declaration + "\n<AUTOSAR>\n    <SHORT-NAME>Fresh</SHORT-NAME>\n</AUTOSAR>\n"
	assert.Equal(t, want, h.buf.Text())
}

func TestTreeEdit_EditIsOneOperation(t *testing.T) {
	h := newHarness(t)
	h.open(t, sample(t))
	gen := item(t, h.s, "DioGeneral")

	require.NoError(t, h.s.Apply(Edit{Node: gen.ID, Tag: "ECUC-CONTAINER-VALUE", ShortName: "DioCommon"}))
	assert.Equal(t, 1.0, h.rebuilds(OriginTree))
	assert.Len(t, h.rec.rebuilt, 1)

	renamed := item(t, h.s, "DioCommon")
	assert.Equal(t, gen.ID, renamed.ID)
	assert.Equal(t, renamed.ID, h.s.Snapshot().Outline.Selected())
	_, ok := h.s.Snapshot().Config.Container("DioCommon")
	assert.True(t, ok)

	// Unchanged content still commits once, since SetText always notifies.
	require.NoError(t, h.s.Apply(Edit{Node: renamed.ID, ShortName: "DioCommon"}))
	assert.Equal(t, 2.0, h.rebuilds(OriginTree))
}

func TestTreeEdit_InsertSiblingAndDelete(t *testing.T) {
	h := newHarness(t)
	h.open(t, sample(t))
	gen := item(t, h.s, "DioGeneral")

	require.NoError(t, h.s.Apply(InsertSibling{Anchor: gen.ID, Tag: "ECUC-CONTAINER-VALUE", ShortName: "DioFirst", Before: true}))
	text := h.buf.Text()
	assert.Less(t, strings.Index(text, "DioFirst"), strings.Index(text, "DioGeneral"))

	first := item(t, h.s, "DioFirst")
	parent := h.s.Snapshot().Tree.Parent(first.ID)
	require.NoError(t, h.s.Apply(Delete{Node: first.ID}))
	assert.NotContains(t, h.buf.Text(), "DioFirst")
	assert.Equal(t, parent, h.s.Snapshot().Outline.Selected())
}

func TestOpenAndClose_CancelPendingRebuild(t *testing.T) {
	h := newHarness(t)
	h.open(t, sample(t))
	h.touch(t)
	gen := h.s.Generation()

	other := "<OTHER/>\n"
	require.NoError(t, h.s.Open(other))
	assert.Greater(t, h.s.Generation(), gen)
	assert.Equal(t, 0, h.sched.Pending())

	h.sched.Advance(5 * time.Second)
	assert.Equal(t, 0.0, h.rebuilds(OriginText))
	assert.Equal(t, other, h.s.Snapshot().Text)

	require.NoError(t, h.buf.Insert(0, " "))
	h.s.Close()
	h.sched.Advance(5 * time.Second)
	assert.Equal(t, 0.0, h.rebuilds(OriginText))
	assert.Equal(t, "", h.buf.Text())
	assert.True(t, h.s.Snapshot().Empty())
}

func TestCursorMoved_SelectsElement(t *testing.T) {
	h := newHarness(t)
	text := sample(t)
	h.open(t, text)

	off := strings.Index(text, "DioPortSpeed")
	h.buf.SetCursor(off)

	require.Len(t, h.rec.selected, 1)
	speed := item(t, h.s, "DioPortSpeed")
	assert.Equal(t, speed.ID, h.rec.selected[0], "a SHORT-NAME leaf selects its parameter")
	assert.Equal(t, speed.ID, h.s.Snapshot().Outline.Selected())

	r := h.rec.lastHighlight()
	assert.True(t, strings.HasPrefix(text[r.Start:], "<ECUC-NUMERICAL-PARAM-VALUE>"))

	// Same element again: nothing new.
	h.buf.SetCursor(off + 2)
	assert.Len(t, h.rec.selected, 1)

	// Outside the root element.
	h.buf.SetCursor(0)
	assert.Len(t, h.rec.selected, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.m.CorrelationMissesTotal))
}

func TestCursorMoved_IgnoredWhileDirty(t *testing.T) {
	h := newHarness(t)
	text := sample(t)
	h.open(t, text)
	h.touch(t)

	h.buf.SetCursor(strings.Index(text, "DioPortSpeed") + 1)
	assert.Empty(t, h.rec.selected)
}

func TestSelection_WhilePendingChecksText(t *testing.T) {
	h := newHarness(t)
	text := "<R>\n  <X><SHORT-NAME>A</SHORT-NAME></X>\n  <X><SHORT-NAME>B</SHORT-NAME></X>\n</R>"
	h.open(t, text)
	b := item(t, h.s, "B")

	// Shift everything by one byte without rebuilding yet.
	require.NoError(t, h.buf.Insert(0, " "))
	h.s.OnTreeNodeSelected(b.ID)
	assert.Equal(t, correlate.Range{}, h.rec.lastHighlight(), "stale range must not be highlighted")

	// After the rebuild the selection is resolved again.
	h.sched.Advance(time.Second)
	r := h.rec.lastHighlight()
	got := h.buf.Text()
	assert.Equal(t, "<X><SHORT-NAME>B</SHORT-NAME></X>", got[r.Start:r.End])
}

func TestExpansionSurvivesTextRebuild(t *testing.T) {
	h := newHarness(t)
	h.open(t, sample(t))
	port := item(t, h.s, "DioPort_A")
	h.s.OnTreeNodeSelected(port.ID)

	h.touch(t)
	h.touch(t)
	h.sched.Advance(time.Second)

	ol := h.s.Snapshot().Outline
	sel, ok := ol.Item(ol.Selected())
	require.True(t, ok)
	assert.Equal(t, port.Path, sel.Path)
	for p := sel.Parent; p != nil; p = p.Parent {
		assert.True(t, p.Expanded)
	}
}

func TestSync_Manual(t *testing.T) {
	h := newHarness(t, WithAutoSync(false))
	h.open(t, "<A/>")

	require.NoError(t, h.buf.Replace(2, 3, "><B/></A"))
	assert.Equal(t, StateIdle, h.s.State())
	assert.Equal(t, 0, h.sched.Pending())
	assert.True(t, h.s.Dirty())

	require.NoError(t, h.s.Sync())
	assert.Equal(t, 1.0, h.rebuilds(OriginManual))
	assert.Equal(t, 1, h.s.Snapshot().Tree.ChildCount(h.s.Snapshot().Tree.Root()))

	require.NoError(t, h.buf.Insert(0, "<"))
	err := h.s.Sync()
	assert.True(t, arxml.IsParseError(err))
}

func TestSetAutoSync(t *testing.T) {
	h := newHarness(t)
	h.open(t, "<A/>")

	require.NoError(t, h.buf.Insert(0, " "))
	h.s.SetAutoSync(false)
	assert.Equal(t, StateIdle, h.s.State())
	assert.Equal(t, 0, h.sched.Pending())

	h.s.SetAutoSync(true)
	assert.Equal(t, StatePendingTextSync, h.s.State())
	h.sched.Advance(time.Second)
	assert.Equal(t, 1.0, h.rebuilds(OriginText))
}

func TestFormat(t *testing.T) {
	h := newHarness(t)
	h.open(t, "<A><B>  x  </B><C></C></A>")

	require.NoError(t, h.s.Format())
	want := "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n<A>\n    <B>x</B>\n    <C/>\n</A>\n"
	assert.Equal(t, want, h.buf.Text())
	assert.Equal(t, 1.0, h.rebuilds(OriginFormat))

	require.NoError(t, h.buf.Insert(0, "<"))
	assert.True(t, arxml.IsParseError(h.s.Format()))
}

func TestValidate(t *testing.T) {
	h := newHarness(t)
	h.open(t, sample(t))

	rep, err := h.s.Validate()
	require.NoError(t, err)
	assert.False(t, rep.HasErrors())
	assert.Equal(t, 1, rep.Count(arxml.SeverityWarning), "numeric value warning")

	require.NoError(t, h.buf.Insert(0, "<"))
	_, err = h.s.Validate()
	assert.True(t, arxml.IsParseError(err))
}

func TestSearch(t *testing.T) {
	h := newHarness(t)
	h.open(t, sample(t))
	assert.Len(t, h.s.Search("<ECUC-CONTAINER-VALUE>"), 3)
	assert.Empty(t, h.s.Search("nothing-like-this"))
}

func TestDirectTreeMutationIsPushed(t *testing.T) {
	h := newHarness(t)
	h.open(t, sample(t))
	name := item(t, h.s, "DioPortName")

	tree := h.s.Snapshot().Tree
	require.NoError(t, tree.SetText(tree.FindChild(name.ID, arxml.TagValue), "GPIOB"))

	assert.Contains(t, h.buf.Text(), "<VALUE>GPIOB</VALUE>")
	assert.Same(t, tree, h.s.Snapshot().Tree)
	v, ok := h.s.Snapshot().Config.Lookup("DioPort_A", "DioPortName")
	require.True(t, ok)
	assert.Equal(t, "GPIOB", v.Text)
}

func TestApply_Nil(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.s.Apply(nil), ErrNilOp)
}
