// Package ui is the terminal front-end: an outline of the element tree on
// the left, the document text on the right, a status line and a message
// or prompt line at the bottom.
//
// All drawing and key handling runs on the application loop. A separate
// goroutine only polls the terminal and posts events to the loop.
package ui

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/ecucedit/internal/app"
	"github.com/dshills/ecucedit/internal/arxml"
	"github.com/dshills/ecucedit/internal/correlate"
	"github.com/dshills/ecucedit/internal/logging"
	"github.com/dshills/ecucedit/internal/syncer"
	"github.com/dshills/ecucedit/internal/textbuf"
)

// Pane identifies the focused pane.
type Pane int

const (
	PaneTree Pane = iota
	PaneText
)

func (p Pane) String() string {
	if p == PaneTree {
		return "tree"
	}
	return "text"
}

// DefaultTreeWidth is the tree pane width when none is configured.
const DefaultTreeWidth = 40

// UI draws the application state and turns terminal events into
// application calls.
type UI struct {
	screen *Screen
	theme  Theme
	log    *logging.Logger
	app    *app.Application
	ctx    context.Context
	quit   context.CancelFunc

	focus     Pane
	treeWidth int
	treeTop   int
	textLeft  int
	layout    layout

	highlight correlate.Range
	search    string
	searchHit textbuf.Match

	message string
	msgErr  bool
	prompt  *prompt
	pasting bool
}

// Option configures a UI.
type Option func(*UI)

// WithTheme sets the styles.
func WithTheme(t Theme) Option {
	return func(u *UI) {
		u.theme = t
	}
}

// WithTreeWidth sets the tree pane width in cells.
func WithTreeWidth(w int) Option {
	return func(u *UI) {
		if w > 0 {
			u.treeWidth = w
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(u *UI) {
		u.log = l
	}
}

// New creates a UI drawing on screen. Pass it as the application's
// listener, then Attach the application.
func New(screen *Screen, opts ...Option) *UI {
	u := &UI{
		screen:    screen,
		theme:     DefaultTheme(),
		log:       logging.Nop(),
		treeWidth: DefaultTreeWidth,
		focus:     PaneTree,
		ctx:       context.Background(),
		quit:      func() {},
	}
	for _, opt := range opts {
		opt(u)
	}
	u.log = u.log.WithComponent("ui")
	return u
}

// Attach connects the UI to the application it displays.
func (u *UI) Attach(a *app.Application) {
	u.app = a
}

// Focus returns the focused pane.
func (u *UI) Focus() Pane {
	return u.focus
}

// Message returns the text on the message line.
func (u *UI) Message() string {
	return u.message
}

// Highlight returns the highlighted element range.
func (u *UI) Highlight() correlate.Range {
	return u.highlight
}

// Run draws the UI and processes events until the user quits or ctx is
// done. The screen must be initialized; the caller finalizes it after
// Run returns.
func (u *UI) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	u.ctx, u.quit = ctx, cancel

	go u.pollEvents(ctx)
	if err := u.app.Post(u.Draw); err != nil {
		return err
	}
	return u.app.Run(ctx)
}

func (u *UI) pollEvents(ctx context.Context) {
	for {
		ev := u.screen.PollEvent()
		if ev == nil || ctx.Err() != nil {
			return
		}
		if err := u.app.Post(func() {
			u.HandleEvent(ev)
			u.Draw()
		}); err != nil {
			return
		}
	}
}

// HandleEvent processes one terminal event.
func (u *UI) HandleEvent(ev tcell.Event) {
	switch e := ev.(type) {
	case *tcell.EventResize:
		u.screen.Sync()
	case *tcell.EventPaste:
		u.pasting = e.Start()
	case *tcell.EventMouse:
		u.handleMouse(e)
	case *tcell.EventKey:
		if u.prompt != nil {
			u.promptKey(e)
			return
		}
		u.handleKey(e)
	}
}

// FileChanged is the application's OnFileChanged callback.
func (u *UI) FileChanged(path string, reloaded bool) {
	if reloaded {
		u.info("reloaded %s: changed on disk", path)
	} else {
		u.fail(fmt.Errorf("%s changed on disk; Ctrl-L reloads and discards your edits", path))
	}
	u.Draw()
}

func (u *UI) info(format string, args ...any) {
	u.message = fmt.Sprintf(format, args...)
	u.msgErr = false
}

func (u *UI) fail(err error) {
	u.message = err.Error()
	u.msgErr = true
	u.log.Debug("%v", err)
}

// Listener implementation. The snapshot and outline are read at draw
// time, so only the highlight is kept.

func (u *UI) TreeRebuilt(*syncer.Snapshot) {}

func (u *UI) TextReplaced(string, int) {
	u.searchHit = textbuf.Match{}
}

func (u *UI) HighlightRange(r correlate.Range) {
	u.highlight = r
}

func (u *UI) SelectionChanged(arxml.NodeID) {}

func (u *UI) SyncFailed(error) {
	u.highlight = correlate.Range{}
}

var _ syncer.Listener = (*UI)(nil)
