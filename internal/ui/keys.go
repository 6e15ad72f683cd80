package ui

import (
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/ecucedit/internal/arxml"
)

// Key bindings.
//
//	Tab        switch pane            Ctrl-S  save
//	Ctrl-Q     quit                   Ctrl-W  save as
//	Ctrl-F     search                 Ctrl-N  find next (also F3)
//	Ctrl-R     format                 F5      sync now
//	Ctrl-T     toggle auto sync       F7      validate
//	Ctrl-L     reload from disk       F8      write C header
//
// Tree pane:
//
//	Up/Down k/j   move                Left/Right h/l  collapse/expand
//	Enter Space   toggle              + -             expand/collapse all
//	e             edit value          r               rename (short name)
//	a             add child           o O             insert after/before
//	d Delete      delete              i               element info
func (u *UI) handleKey(ev *tcell.EventKey) {
	u.message = ""
	switch ev.Key() {
	case tcell.KeyCtrlQ:
		u.requestQuit()
	case tcell.KeyCtrlS:
		u.save()
	case tcell.KeyCtrlW:
		u.saveAs()
	case tcell.KeyCtrlF:
		u.startSearch()
	case tcell.KeyCtrlN, tcell.KeyF3:
		u.findNext()
	case tcell.KeyCtrlR:
		u.format()
	case tcell.KeyF5:
		u.syncNow()
	case tcell.KeyCtrlT:
		u.toggleAutoSync()
	case tcell.KeyF7:
		u.validate()
	case tcell.KeyF8:
		u.writeHeader()
	case tcell.KeyCtrlL:
		u.reload()
	case tcell.KeyTab:
		if u.pasting && u.focus == PaneText {
			u.app.Buffer().InsertAtCursor("\t")
			return
		}
		u.toggleFocus()
	default:
		if u.focus == PaneTree {
			u.treeKey(ev)
		} else {
			u.textKey(ev)
		}
	}
}

func (u *UI) toggleFocus() {
	if u.focus == PaneTree {
		u.focus = PaneText
	} else {
		u.focus = PaneTree
	}
}

func (u *UI) textKey(ev *tcell.EventKey) {
	buf := u.app.Buffer()
	page := max(u.layout.bodyHeight-1, 1)
	switch ev.Key() {
	case tcell.KeyRune:
		buf.InsertAtCursor(string(ev.Rune()))
	case tcell.KeyEnter:
		buf.InsertAtCursor("\n")
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		buf.Backspace()
	case tcell.KeyDelete:
		buf.DeleteForward()
	case tcell.KeyLeft:
		buf.MoveLeft()
	case tcell.KeyRight:
		buf.MoveRight()
	case tcell.KeyUp:
		buf.MoveVertical(-1)
	case tcell.KeyDown:
		buf.MoveVertical(1)
	case tcell.KeyPgUp:
		buf.MoveVertical(-page)
	case tcell.KeyPgDn:
		buf.MoveVertical(page)
	case tcell.KeyHome:
		buf.MoveLineStart()
	case tcell.KeyEnd:
		buf.MoveLineEnd()
	}
}

func (u *UI) treeKey(ev *tcell.EventKey) {
	snap := u.app.Snapshot()
	if snap.Empty() {
		if ev.Key() == tcell.KeyRune && ev.Rune() == 'a' {
			u.addChild()
		}
		return
	}
	ol := snap.Outline
	page := max(u.layout.bodyHeight-1, 1)

	switch ev.Key() {
	case tcell.KeyUp:
		u.selectNode(ol.Step(-1))
	case tcell.KeyDown:
		u.selectNode(ol.Step(1))
	case tcell.KeyPgUp:
		u.selectNode(ol.Step(-page))
	case tcell.KeyPgDn:
		u.selectNode(ol.Step(page))
	case tcell.KeyHome:
		u.selectNode(ol.Step(-len(ol.Visible())))
	case tcell.KeyEnd:
		u.selectNode(ol.Step(len(ol.Visible())))
	case tcell.KeyLeft:
		u.collapseOrParent()
	case tcell.KeyRight:
		u.expandOrChild()
	case tcell.KeyEnter:
		ol.Toggle(ol.Selected())
	case tcell.KeyDelete:
		u.deleteNode()
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'k':
			u.selectNode(ol.Step(-1))
		case 'j':
			u.selectNode(ol.Step(1))
		case 'h':
			u.collapseOrParent()
		case 'l':
			u.expandOrChild()
		case ' ':
			ol.Toggle(ol.Selected())
		case '+':
			ol.ExpandAll()
		case '-':
			ol.CollapseAll()
		case 'e':
			u.editValue()
		case 'r':
			u.rename()
		case 'a':
			u.addChild()
		case 'o':
			u.insertSibling(false)
		case 'O':
			u.insertSibling(true)
		case 'd':
			u.deleteNode()
		case 'i':
			u.showInfo()
		}
	}
}

func (u *UI) selectNode(id arxml.NodeID) {
	if id == arxml.InvalidNode {
		return
	}
	u.app.SelectNode(id)
}

func (u *UI) collapseOrParent() {
	ol := u.app.Snapshot().Outline
	it, ok := ol.Item(ol.Selected())
	if !ok {
		return
	}
	if it.Expanded && it.HasChildren() {
		ol.Collapse(it.ID)
		return
	}
	if it.Parent != nil {
		u.selectNode(it.Parent.ID)
	}
}

func (u *UI) expandOrChild() {
	ol := u.app.Snapshot().Outline
	it, ok := ol.Item(ol.Selected())
	if !ok || !it.HasChildren() {
		return
	}
	if !it.Expanded {
		ol.Expand(it.ID)
		return
	}
	u.selectNode(it.Children[0].ID)
}

func (u *UI) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	l := u.layout
	if y >= l.bodyHeight {
		return
	}
	switch btn := ev.Buttons(); {
	case btn&tcell.WheelUp != 0:
		u.scroll(x, -3)
	case btn&tcell.WheelDown != 0:
		u.scroll(x, 3)
	case btn&tcell.Button1 != 0:
		if x < l.treeWidth {
			u.focus = PaneTree
			snap := u.app.Snapshot()
			if snap.Empty() {
				return
			}
			rows := snap.Outline.Visible()
			if row := u.treeTop + y; row < len(rows) {
				u.selectNode(rows[row].ID)
			}
			return
		}
		if x >= l.textX+l.gutterWidth {
			u.focus = PaneText
			buf := u.app.Buffer()
			line := buf.ScrollTop() + y
			if line >= buf.LineCount() {
				line = buf.LineCount() - 1
			}
			col := columnToByte(buf.LineText(line), x-l.textX-l.gutterWidth+u.textLeft)
			buf.SetCursor(buf.LineStart(line) + col)
		}
	}
}

// scroll moves the selection or the cursor; both panes keep them in view.
func (u *UI) scroll(x, delta int) {
	if x < u.layout.treeWidth {
		if snap := u.app.Snapshot(); !snap.Empty() {
			u.selectNode(snap.Outline.Step(delta))
		}
		return
	}
	u.app.Buffer().MoveVertical(delta)
}

// columnToByte returns the byte offset in line of display column col.
func columnToByte(line string, col int) int {
	off := 0
	for off < len(line) {
		next := off + len(firstCluster(line[off:]))
		if DisplayWidth(line[:next]) > col {
			return off
		}
		off = next
	}
	return len(line)
}
