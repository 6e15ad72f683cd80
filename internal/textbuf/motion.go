package textbuf

import (
	"strings"
	"unicode/utf8"
)

// MoveLeft moves the cursor one rune back.
func (b *Buffer) MoveLeft() {
	b.mu.RLock()
	off := b.cursor
	if off > 0 {
		_, size := utf8.DecodeLastRuneInString(b.text[:off])
		off -= size
	}
	b.mu.RUnlock()
	b.SetCursor(off)
}

// MoveRight moves the cursor one rune forward.
func (b *Buffer) MoveRight() {
	b.mu.RLock()
	off := b.cursor
	if off < len(b.text) {
		_, size := utf8.DecodeRuneInString(b.text[off:])
		off += size
	}
	b.mu.RUnlock()
	b.SetCursor(off)
}

// MoveVertical moves the cursor delta lines, keeping the column where the
// target line is long enough.
func (b *Buffer) MoveVertical(delta int) {
	b.mu.RLock()
	p := b.offsetToPointLocked(b.cursor)
	p.Line += delta
	off := b.pointToOffsetLocked(p)
	b.mu.RUnlock()
	b.SetCursor(off)
}

// MoveLineStart moves the cursor to the start of its line.
func (b *Buffer) MoveLineStart() {
	b.mu.RLock()
	p := b.offsetToPointLocked(b.cursor)
	off := b.lineStarts[p.Line]
	b.mu.RUnlock()
	b.SetCursor(off)
}

// MoveLineEnd moves the cursor to the end of its line.
func (b *Buffer) MoveLineEnd() {
	b.mu.RLock()
	p := b.offsetToPointLocked(b.cursor)
	_, end := b.lineBoundsLocked(p.Line)
	b.mu.RUnlock()
	b.SetCursor(end)
}

// InsertAtCursor inserts s at the cursor and leaves the cursor after it.
func (b *Buffer) InsertAtCursor(s string) {
	off := b.Cursor()
	if err := b.Insert(off, s); err == nil {
		b.SetCursor(off + len(NormalizeLineEndings(s)))
	}
}

// Backspace deletes the rune before the cursor.
func (b *Buffer) Backspace() {
	b.mu.RLock()
	end := b.cursor
	start := end
	if start > 0 {
		_, size := utf8.DecodeLastRuneInString(b.text[:start])
		start -= size
	}
	b.mu.RUnlock()
	if start == end {
		return
	}
	if err := b.Delete(start, end); err == nil {
		b.SetCursor(start)
	}
}

// DeleteForward deletes the rune at the cursor.
func (b *Buffer) DeleteForward() {
	b.mu.RLock()
	start := b.cursor
	end := start
	if end < len(b.text) {
		_, size := utf8.DecodeRuneInString(b.text[end:])
		end += size
	}
	b.mu.RUnlock()
	if start == end {
		return
	}
	_ = b.Delete(start, end)
}

// Match is a search hit [Start, End).
type Match struct {
	Start int
	End   int
}

// FindAll returns every non-overlapping occurrence of term.
func (b *Buffer) FindAll(term string, foldCase bool) []Match {
	text := b.Text()
	var out []Match
	for from := 0; ; {
		m, ok := find(text, term, from, foldCase)
		if !ok {
			return out
		}
		out = append(out, m)
		from = m.End
	}
}

// FindNext returns the first occurrence of term at or after from, wrapping
// around to the start of the text.
func (b *Buffer) FindNext(term string, from int, foldCase bool) (Match, bool) {
	text := b.Text()
	if m, ok := find(text, term, clamp(text, from), foldCase); ok {
		return m, true
	}
	return find(text, term, 0, foldCase)
}

func find(text, term string, from int, foldCase bool) (Match, bool) {
	if term == "" || from > len(text) {
		return Match{}, false
	}
	if !foldCase {
		i := strings.Index(text[from:], term)
		if i < 0 {
			return Match{}, false
		}
		return Match{Start: from + i, End: from + i + len(term)}, true
	}
	for i := from; i+len(term) <= len(text); {
		if strings.EqualFold(text[i:i+len(term)], term) {
			return Match{Start: i, End: i + len(term)}, true
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return Match{}, false
}
