package ui

import "github.com/gdamore/tcell/v2"

// Theme holds the styles of every screen element.
type Theme struct {
	Text          tcell.Style
	Gutter        tcell.Style
	GutterCurrent tcell.Style
	Highlight     tcell.Style
	SearchMatch   tcell.Style
	Tree          tcell.Style
	TreeValue     tcell.Style
	TreeSelected  tcell.Style
	TreeInactive  tcell.Style
	Separator     tcell.Style
	Status        tcell.Style
	StatusError   tcell.Style
	Message       tcell.Style
	Error         tcell.Style
	Prompt        tcell.Style
}

// DefaultTheme works on 8-colour terminals.
func DefaultTheme() Theme {
	base := tcell.StyleDefault
	return Theme{
		Text:          base,
		Gutter:        base.Foreground(tcell.ColorGray),
		GutterCurrent: base.Foreground(tcell.ColorYellow),
		Highlight:     base.Background(tcell.ColorNavy),
		SearchMatch:   base.Background(tcell.ColorOlive).Foreground(tcell.ColorBlack),
		Tree:          base,
		TreeValue:     base.Foreground(tcell.ColorTeal),
		TreeSelected:  base.Reverse(true),
		TreeInactive:  base.Underline(true),
		Separator:     base.Foreground(tcell.ColorGray),
		Status:        base.Reverse(true),
		StatusError:   base.Background(tcell.ColorMaroon).Foreground(tcell.ColorWhite),
		Message:       base,
		Error:         base.Foreground(tcell.ColorRed),
		Prompt:        base.Bold(true),
	}
}
