package ui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ecucedit/internal/app"
	"github.com/dshills/ecucedit/internal/config"
	"github.com/dshills/ecucedit/internal/debounce"
)

type fixture struct {
	ui    *UI
	app   *app.Application
	sim   tcell.SimulationScreen
	sched *debounce.ManualScheduler
	path  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	data, err := os.ReadFile("../arxml/testdata/dio.arxml")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "Dio.arxml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	screen, sim := NewSimulation(100, 30)
	t.Cleanup(screen.Fini)
	u := New(screen, WithTreeWidth(50))

	cfg := config.Default()
	cfg.Files.Watch = false
	sched := debounce.NewManualScheduler()
	a, err := app.New(app.Options{
		Config:        cfg,
		Listener:      u,
		Scheduler:     sched,
		OnFileChanged: u.FileChanged,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	u.Attach(a)

	require.NoError(t, a.Open(path))
	u.Draw()
	return &fixture{ui: u, app: a, sim: sim, sched: sched, path: path}
}

func (f *fixture) key(k tcell.Key) {
	f.ui.HandleEvent(tcell.NewEventKey(k, 0, tcell.ModNone))
	f.ui.Draw()
}

func (f *fixture) typeText(s string) {
	for _, r := range s {
		f.ui.HandleEvent(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
	}
	f.ui.Draw()
}

func (f *fixture) row(y int) string {
	cells, w, _ := f.sim.GetContents()
	var b strings.Builder
	for x := 0; x < w; x++ {
		c := cells[y*w+x]
		if len(c.Runes) == 0 {
			b.WriteByte(' ')
			continue
		}
		b.WriteString(string(c.Runes))
	}
	return b.String()
}

func (f *fixture) screenText() string {
	_, _, h := f.sim.GetContents()
	rows := make([]string, h)
	for y := range rows {
		rows[y] = f.row(y)
	}
	return strings.Join(rows, "\n")
}

func (f *fixture) status() string  { return f.row(28) }
func (f *fixture) message() string { return f.row(29) }

func TestDraw_Layout(t *testing.T) {
	f := newFixture(t)

	top := f.row(0)
	assert.Contains(t, strings.SplitN(top, "│", 2)[0], "▾ AUTOSAR")
	assert.Contains(t, top, "│")
	assert.Contains(t, top, `1 <?xml version="1.0"`)

	assert.Contains(t, f.status(), "Dio.arxml")
	assert.Contains(t, f.status(), "sync auto: idle")
	assert.Contains(t, f.status(), "Ln 1, Col 1")
	assert.Contains(t, f.status(), "utf-8 LF")
	assert.NotContains(t, f.status(), "[+]")
}

func TestTree_NavigationHighlightsText(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, PaneTree, f.ui.Focus())

	f.key(tcell.KeyDown)
	sel := f.app.Snapshot().Outline.Selected()
	require.NotZero(t, sel)

	hl := f.ui.Highlight()
	text := f.app.Buffer().Text()
	require.Greater(t, hl.End, hl.Start)
	assert.True(t, strings.HasPrefix(text[hl.Start:], "<"+f.app.Snapshot().Tree.QName(sel)))
	assert.Equal(t, hl.Start, f.app.Buffer().Cursor())
}

func TestTree_ExpandAll(t *testing.T) {
	f := newFixture(t)
	f.typeText("+")
	assert.Contains(t, f.screenText(), "DioPortName = GPIOA")

	f.typeText("-")
	assert.NotContains(t, f.screenText(), "DioPortName")
}

func TestText_TypingMarksModified(t *testing.T) {
	f := newFixture(t)
	f.key(tcell.KeyTab)
	assert.Equal(t, PaneText, f.ui.Focus())

	f.typeText("<")
	assert.Contains(t, f.status(), "[+]")
	assert.Contains(t, f.status(), "sync auto: pending")

	f.sched.Advance(time.Second)
	f.ui.Draw()
	assert.Contains(t, f.status(), "parse error")
}

func TestSearch_MovesCursor(t *testing.T) {
	f := newFixture(t)
	f.key(tcell.KeyCtrlF)
	assert.Contains(t, f.message(), "Search:")

	f.typeText("GPIOA")
	f.key(tcell.KeyEnter)

	want := strings.Index(f.app.Buffer().Text(), "GPIOA")
	assert.Equal(t, want, f.app.Buffer().Cursor())
	assert.Equal(t, PaneText, f.ui.Focus())
	assert.Contains(t, f.ui.Message(), "match 1 of 1")
}

func TestEditValue(t *testing.T) {
	f := newFixture(t)
	f.typeText("+")

	snap := f.app.Snapshot()
	c, ok := snap.Config.Container("DioPort_A")
	require.True(t, ok)
	p, ok := c.Params.Param("DioPortName")
	require.True(t, ok)
	f.app.SelectNode(p.Node)

	f.typeText("e")
	require.Contains(t, f.message(), "Value: GPIOA")
	f.key(tcell.KeyCtrlU)
	f.typeText("GPIOZ")
	f.key(tcell.KeyEnter)

	assert.Contains(t, f.app.Buffer().Text(), "<VALUE>GPIOZ</VALUE>")
	assert.True(t, f.app.Document().IsModified())
}

func TestEditValue_RejectsContainer(t *testing.T) {
	f := newFixture(t)
	f.key(tcell.KeyDown)
	f.typeText("e")
	assert.Contains(t, f.ui.Message(), "not a parameter value")
}

func TestSave(t *testing.T) {
	f := newFixture(t)
	f.key(tcell.KeyCtrlR)
	assert.Contains(t, f.status(), "[+]")

	f.key(tcell.KeyCtrlS)
	assert.NotContains(t, f.status(), "[+]")
	assert.Contains(t, f.ui.Message(), "saved "+f.path)

	got, err := os.ReadFile(f.path)
	require.NoError(t, err)
	assert.Equal(t, f.app.Buffer().Text(), string(got))
}

func TestQuit_ConfirmsUnsavedChanges(t *testing.T) {
	f := newFixture(t)
	quit := false
	f.ui.quit = func() { quit = true }

	f.key(tcell.KeyTab)
	f.typeText("x")
	f.key(tcell.KeyCtrlQ)
	assert.False(t, quit)
	assert.Contains(t, f.message(), "Quit anyway? (y/n)")

	f.typeText("n")
	assert.False(t, quit)

	f.key(tcell.KeyCtrlQ)
	f.typeText("y")
	assert.True(t, quit)
}

func TestDelete_Confirmed(t *testing.T) {
	f := newFixture(t)
	f.typeText("+")
	snap := f.app.Snapshot()
	c, ok := snap.Config.Container("DioPort_A")
	require.True(t, ok)
	f.app.SelectNode(c.Node)

	f.typeText("d")
	assert.Contains(t, f.message(), "Delete DioPort_A? (y/n)")
	f.typeText("y")

	assert.NotContains(t, f.app.Buffer().Text(), "DioPort_A")
}

func TestValidate_ReportsCounts(t *testing.T) {
	f := newFixture(t)
	f.key(tcell.KeyF7)
	assert.Regexp(t, `\d+ error\(s\), \d+ warning\(s\), \d+ info`, f.ui.Message())
}

func TestFileChanged_Message(t *testing.T) {
	f := newFixture(t)
	f.ui.FileChanged(f.path, false)
	assert.Contains(t, f.message(), "changed on disk")
}

func TestMouse_ClickTextPane(t *testing.T) {
	f := newFixture(t)
	x := f.ui.layout.textX + f.ui.layout.gutterWidth + 3
	f.ui.HandleEvent(tcell.NewEventMouse(x, 1, tcell.Button1, tcell.ModNone))

	assert.Equal(t, PaneText, f.ui.Focus())
	buf := f.app.Buffer()
	assert.Equal(t, buf.LineStart(1)+3, buf.Cursor())
}

func TestTruncateAndWidth(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "ab…", Truncate("abcd", 3))
	assert.Equal(t, "日…", Truncate("日本語", 4))
	assert.Equal(t, "", Truncate("abc", 0))

	assert.Equal(t, 6, DisplayWidth("日本語"))
	assert.Equal(t, 5, DisplayWidth("a\tb"))
	assert.Equal(t, 1, DisplayWidth("é"))
}

func TestColumnToByte(t *testing.T) {
	assert.Equal(t, 0, columnToByte("abc", 0))
	assert.Equal(t, 2, columnToByte("abc", 2))
	assert.Equal(t, 3, columnToByte("abc", 10))
	assert.Equal(t, 3, columnToByte("日本", 2))
	assert.Equal(t, 1, columnToByte("\tx", 4))
}

func TestScrollInto(t *testing.T) {
	assert.Equal(t, 0, scrollInto(0, 5, 100, 10))
	assert.Equal(t, 6, scrollInto(0, 15, 100, 10))
	assert.Equal(t, 3, scrollInto(8, 3, 100, 10))
	assert.Equal(t, 0, scrollInto(4, 2, 5, 10))
}
