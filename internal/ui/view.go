package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/dshills/ecucedit/internal/arxml"
	"github.com/dshills/ecucedit/internal/outline"
	"github.com/dshills/ecucedit/internal/syncer"
)

// layout is the screen split computed by each Draw.
type layout struct {
	width, height int
	bodyHeight    int
	treeWidth     int
	textX         int
	textWidth     int
	gutterWidth   int
}

func (u *UI) computeLayout() layout {
	w, h := u.screen.Size()
	l := layout{width: w, height: h, bodyHeight: h - 2}
	if l.bodyHeight < 0 {
		l.bodyHeight = 0
	}
	l.treeWidth = u.treeWidth
	if l.treeWidth > w/2 {
		l.treeWidth = w / 2
	}
	l.textX = l.treeWidth + 1
	l.textWidth = w - l.textX
	if l.textWidth < 0 {
		l.textWidth = 0
	}
	l.gutterWidth = len(strconv.Itoa(u.app.Buffer().LineCount())) + 1
	return l
}

// Draw redraws the whole screen.
func (u *UI) Draw() {
	u.layout = u.computeLayout()
	l := u.layout
	u.screen.Fill(0, 0, l.width, l.height, ' ', u.theme.Text)
	u.screen.HideCursor()

	u.drawTree(l)
	for y := 0; y < l.bodyHeight; y++ {
		u.screen.SetCell(l.treeWidth, y, '│', u.theme.Separator)
	}
	u.drawText(l)
	u.drawStatus(l)
	u.drawMessage(l)
	u.screen.Show()
}

func (u *UI) drawTree(l layout) {
	snap := u.app.Snapshot()
	if snap.Empty() {
		u.screen.DrawText(1, 0, l.treeWidth-1, "(no tree)", u.theme.TreeValue)
		return
	}
	rows := snap.Outline.Visible()
	sel := u.selectedRow(rows, snap.Outline)
	u.treeTop = scrollInto(u.treeTop, sel, len(rows), l.bodyHeight)

	for y := 0; y < l.bodyHeight && u.treeTop+y < len(rows); y++ {
		it := rows[u.treeTop+y]
		style := u.theme.Tree
		if u.treeTop+y == sel {
			style = u.theme.TreeInactive
			if u.focus == PaneTree {
				style = u.theme.TreeSelected
			}
			u.screen.Fill(0, y, l.treeWidth, 1, ' ', style)
		}
		x := u.screen.DrawText(0, y, l.treeWidth, treeRow(it), style)
		if it.Kind == arxml.KindParameter && it.Value != "" && x < l.treeWidth {
			u.screen.DrawText(x, y, l.treeWidth-x, " = "+it.Value, u.theme.TreeValue)
		}
	}
}

func treeRow(it *outline.Item) string {
	marker := "  "
	if it.HasChildren() {
		marker = "▸ "
		if it.Expanded {
			marker = "▾ "
		}
	}
	return strings.Repeat("  ", it.Depth) + marker + it.Label
}

func (u *UI) selectedRow(rows []*outline.Item, ol *outline.Outline) int {
	sel := ol.Selected()
	for i, it := range rows {
		if it.ID == sel {
			return i
		}
	}
	return -1
}

// scrollInto returns a top row that keeps row visible in a window of
// height rows.
func scrollInto(top, row, count, height int) int {
	if height <= 0 {
		return 0
	}
	if row >= 0 {
		if row < top {
			top = row
		}
		if row >= top+height {
			top = row - height + 1
		}
	}
	if top > count-height {
		top = count - height
	}
	if top < 0 {
		top = 0
	}
	return top
}

func (u *UI) drawText(l layout) {
	buf := u.app.Buffer()
	textW := l.textWidth - l.gutterWidth
	if textW <= 0 || l.bodyHeight <= 0 {
		return
	}
	buf.EnsureCursorVisible(l.bodyHeight)
	top := buf.ScrollTop()
	cur := buf.CursorPoint()
	curCol := DisplayWidth(buf.LineText(cur.Line)[:cur.Column])
	u.textLeft = scrollInto(u.textLeft, curCol, curCol+1, textW)

	for y := 0; y < l.bodyHeight; y++ {
		line := top + y
		if line >= buf.LineCount() {
			break
		}
		gutter := u.theme.Gutter
		if line == cur.Line {
			gutter = u.theme.GutterCurrent
		}
		u.screen.DrawText(l.textX, y, l.gutterWidth,
			fmt.Sprintf("%*d ", l.gutterWidth-1, line+1), gutter)
		u.drawLine(l.textX+l.gutterWidth, y, textW, buf.LineText(line), buf.LineStart(line))
	}

	if u.focus == PaneText && u.prompt == nil {
		u.screen.ShowCursor(l.textX+l.gutterWidth+curCol-u.textLeft, cur.Line-top)
	}
}

// drawLine draws one text line from display column textLeft, styling the
// highlighted element and the current search hit. start is the offset of
// the line in the document.
func (u *UI) drawLine(x, y, width int, line string, start int) {
	col, off := 0, start
	state := -1
	for len(line) > 0 {
		var cluster string
		var w int
		cluster, line, w, state = uniseg.FirstGraphemeClusterInString(line, state)
		style := u.cellStyle(off)
		off += len(cluster)
		if cluster == "\t" {
			n := TabWidth - col%TabWidth
			for i := 0; i < n; i++ {
				u.putCell(x, y, width, col, " ", 1, style)
				col++
			}
			continue
		}
		u.putCell(x, y, width, col, cluster, w, style)
		col += w
		if col-u.textLeft >= width {
			return
		}
	}
}

func (u *UI) putCell(x, y, width, col int, cluster string, w int, style tcell.Style) {
	rel := col - u.textLeft
	if w == 0 || rel < 0 || rel+w > width {
		return
	}
	u.screen.SetCluster(x+rel, y, cluster, style)
}

func (u *UI) cellStyle(off int) tcell.Style {
	switch {
	case u.searchHit.End > u.searchHit.Start && off >= u.searchHit.Start && off < u.searchHit.End:
		return u.theme.SearchMatch
	case u.highlight.Contains(off):
		return u.theme.Highlight
	default:
		return u.theme.Text
	}
}

func (u *UI) drawStatus(l layout) {
	if l.height < 2 {
		return
	}
	y := l.height - 2
	style := u.theme.Status
	if u.app.SyncError() != nil {
		style = u.theme.StatusError
	}
	u.screen.Fill(0, y, l.width, 1, ' ', style)

	left := " " + u.docLabel() + "  " + u.syncLabel()
	right := u.positionLabel() + " "
	rw := uniseg.StringWidth(right)
	u.screen.DrawText(0, y, l.width-rw-1, Truncate(left, l.width-rw-1), style)
	if rw < l.width {
		u.screen.DrawText(l.width-rw, y, rw, right, style)
	}
}

func (u *UI) docLabel() string {
	doc := u.app.Document()
	if doc == nil {
		return "[no document]"
	}
	s := doc.Name()
	if doc.IsModified() {
		s += " [+]"
	}
	if doc.IsStale() {
		s += " [changed on disk]"
	}
	if doc.File != nil && !doc.IsModified() && !doc.File.ModTime.IsZero() {
		s += " (saved " + humanize.Time(doc.File.ModTime) + ")"
	}
	return s
}

func (u *UI) syncLabel() string {
	s := u.app.Syncer()
	mode := "auto"
	if !s.AutoSync() {
		mode = "manual"
	}
	if err := u.app.SyncError(); err != nil {
		return fmt.Sprintf("sync %s: %v", mode, err)
	}
	state := s.State().String()
	if s.State() == syncer.StateIdle && s.Dirty() {
		state = "unsynced"
	}
	return fmt.Sprintf("sync %s: %s", mode, state)
}

func (u *UI) positionLabel() string {
	buf := u.app.Buffer()
	p := buf.CursorPoint()
	col := DisplayWidth(buf.LineText(p.Line)[:p.Column]) + 1
	enc, le := "utf-8", "LF"
	if doc := u.app.Document(); doc != nil {
		enc, le = string(doc.Encoding()), doc.LineEnding().String()
	}
	return fmt.Sprintf("Ln %d, Col %d  %s  %s %s", p.Line+1, col,
		humanize.Bytes(uint64(buf.Len())), enc, le)
}

func (u *UI) drawMessage(l layout) {
	if l.height < 1 {
		return
	}
	y := l.height - 1
	if u.prompt != nil {
		x := u.screen.DrawText(0, y, l.width, u.prompt.label, u.theme.Prompt)
		input := string(u.prompt.input)
		iw := DisplayWidth(input)
		// Keep the end of long input visible.
		if over := x + iw + 1 - l.width; over > 0 {
			input = string(u.prompt.input[min(over, len(u.prompt.input)):])
			iw = DisplayWidth(input)
		}
		u.screen.DrawText(x, y, l.width-x, input, u.theme.Text)
		u.screen.ShowCursor(x+iw, y)
		return
	}
	style := u.theme.Message
	if u.msgErr {
		style = u.theme.Error
	}
	u.screen.DrawText(0, y, l.width, Truncate(u.message, l.width), style)
}
