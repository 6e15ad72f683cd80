package ui

import (
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"
)

// Screen is a mutex-guarded tcell screen with grapheme-aware drawing.
type Screen struct {
	screen tcell.Screen
	mu     sync.Mutex
}

// NewTerminal creates a screen on the controlling terminal.
func NewTerminal() (*Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return &Screen{screen: screen}, nil
}

// NewSimulation creates an in-memory screen of the given size, for tests.
func NewSimulation(width, height int) (*Screen, tcell.SimulationScreen) {
	sim := tcell.NewSimulationScreen("UTF-8")
	s := &Screen{screen: sim}
	if err := s.Init(); err == nil {
		sim.SetSize(width, height)
	}
	return s, sim
}

// Init prepares the terminal.
func (s *Screen) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.screen.Init(); err != nil {
		return err
	}
	s.screen.EnableMouse()
	s.screen.EnablePaste()
	return nil
}

// Fini restores the terminal. PollEvent returns nil afterwards.
func (s *Screen) Fini() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.screen.Fini()
}

// Size returns the screen width and height in cells.
func (s *Screen) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.screen.Size()
}

// Clear blanks the screen.
func (s *Screen) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.screen.Clear()
}

// Show flushes pending changes.
func (s *Screen) Show() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.screen.Show()
}

// Sync redraws every cell, after a resize.
func (s *Screen) Sync() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.screen.Sync()
}

// ShowCursor places the terminal cursor.
func (s *Screen) ShowCursor(x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.screen.ShowCursor(x, y)
}

// HideCursor hides the terminal cursor.
func (s *Screen) HideCursor() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.screen.HideCursor()
}

// Beep rings the bell.
func (s *Screen) Beep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.screen.Beep() // best-effort; terminal may not support beep
}

// PollEvent blocks for the next event. It is not guarded: tcell allows
// polling concurrently with drawing.
func (s *Screen) PollEvent() tcell.Event {
	return s.screen.PollEvent()
}

// PostEvent injects an event.
func (s *Screen) PostEvent(ev tcell.Event) error {
	return s.screen.PostEvent(ev)
}

// Fill sets every cell of the rectangle to r.
func (s *Screen) Fill(x, y, w, h int, r rune, style tcell.Style) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for row := y; row < y+h; row++ {
		for col := x; col < x+w; col++ {
			s.screen.SetContent(col, row, r, nil, style)
		}
	}
}

// SetCell sets a single cell.
func (s *Screen) SetCell(x, y int, r rune, style tcell.Style) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.screen.SetContent(x, y, r, nil, style)
}

// SetCluster draws one grapheme cluster at x, y.
func (s *Screen) SetCluster(x, y int, cluster string, style tcell.Style) {
	if cluster == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	runes := []rune(cluster)
	s.screen.SetContent(x, y, runes[0], runes[1:], style)
}

// DrawText draws str from column x, clipped to width cells, and returns
// the number of cells used. Graphemes are kept whole: one that would
// straddle the right edge is not drawn. Tabs expand to the next multiple
// of TabWidth measured from x.
func (s *Screen) DrawText(x, y, width int, str string, style tcell.Style) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := 0
	state := -1
	for len(str) > 0 && col < width {
		var cluster string
		var w int
		cluster, str, w, state = uniseg.FirstGraphemeClusterInString(str, state)
		if cluster == "\t" {
			n := TabWidth - col%TabWidth
			for i := 0; i < n && col < width; i++ {
				s.screen.SetContent(x+col, y, ' ', nil, style)
				col++
			}
			continue
		}
		if w == 0 {
			continue
		}
		if col+w > width {
			break
		}
		runes := []rune(cluster)
		s.screen.SetContent(x+col, y, runes[0], runes[1:], style)
		col += w
	}
	return col
}

// TabWidth is the tab stop distance in the text pane.
const TabWidth = 4

// DisplayWidth returns the cell width of s with tabs expanded from
// column 0.
func DisplayWidth(s string) int {
	col := 0
	state := -1
	for len(s) > 0 {
		var cluster string
		var w int
		cluster, s, w, state = uniseg.FirstGraphemeClusterInString(s, state)
		if cluster == "\t" {
			col += TabWidth - col%TabWidth
			continue
		}
		col += w
	}
	return col
}

// Truncate shortens s to at most width cells, ending in "…" when cut.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if uniseg.StringWidth(s) <= width {
		return s
	}
	out := make([]byte, 0, len(s))
	col := 0
	state := -1
	for len(s) > 0 {
		var cluster string
		var w int
		cluster, s, w, state = uniseg.FirstGraphemeClusterInString(s, state)
		if col+w > width-1 {
			break
		}
		out = append(out, cluster...)
		col += w
	}
	return string(out) + "…"
}

func firstCluster(s string) string {
	cluster, _, _, _ := uniseg.FirstGraphemeClusterInString(s, -1)
	return cluster
}
