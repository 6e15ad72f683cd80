package ui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
)

// prompt is a one-line input on the message line.
type prompt struct {
	label string
	input []rune

	// done receives the input on Enter.
	done func(string)

	// confirm prompts finish on the first key: y runs done.
	confirm bool
}

// ask opens a prompt prefilled with initial.
func (u *UI) ask(label, initial string, done func(string)) {
	u.prompt = &prompt{label: label, input: []rune(initial), done: done}
}

// confirm asks a yes/no question and runs fn on y.
func (u *UI) confirm(question string, fn func()) {
	u.prompt = &prompt{
		label:   question + " (y/n) ",
		done:    func(string) { fn() },
		confirm: true,
	}
}

func (u *UI) promptKey(ev *tcell.EventKey) {
	p := u.prompt
	if p.confirm {
		u.prompt = nil
		if ev.Key() == tcell.KeyRune && strings.EqualFold(string(ev.Rune()), "y") {
			p.done("y")
			return
		}
		u.info("cancelled")
		return
	}

	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		u.prompt = nil
		u.info("cancelled")
	case tcell.KeyEnter:
		u.prompt = nil
		p.done(string(p.input))
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if n := len(p.input); n > 0 {
			p.input = p.input[:n-1]
		}
	case tcell.KeyCtrlU:
		p.input = p.input[:0]
	case tcell.KeyRune:
		p.input = append(p.input, ev.Rune())
	}
}
