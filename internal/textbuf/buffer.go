// Package textbuf is the text model behind the editor's text pane: the
// document text, a cursor offset and a scroll position.
//
// Offsets are byte offsets into the text. Setters clamp to the valid range
// and to rune boundaries, so a position captured before a text replacement
// can always be restored afterwards.
package textbuf

import (
	"errors"
	"strings"
	"sync"
	"unicode/utf8"
)

// Errors returned by buffer operations.
var (
	ErrOffsetOutOfRange = errors.New("offset out of range")
	ErrRangeInvalid     = errors.New("invalid range")
)

// Point is a 0-indexed line and byte column.
type Point struct {
	Line   int
	Column int
}

// Buffer holds text with a cursor and a scroll position. All methods are
// safe for concurrent use; hooks run after the buffer lock is released.
type Buffer struct {
	mu         sync.RWMutex
	text       string
	lineStarts []int
	cursor     int
	scrollTop  int
	lineEnding LineEnding

	onChange func(text string)
	onCursor func(offset int)
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithContent sets the initial text. Line endings are normalized.
func WithContent(s string) Option {
	return func(b *Buffer) {
		b.setTextLocked(NormalizeLineEndings(s))
	}
}

// WithLineEnding records the line ending to use when the text is written
// out; the buffer itself always holds \n.
func WithLineEnding(le LineEnding) Option {
	return func(b *Buffer) {
		b.lineEnding = le
	}
}

// New creates a buffer.
func New(opts ...Option) *Buffer {
	b := &Buffer{lineStarts: []int{0}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// OnChange installs fn to be called with the full text after every change.
func (b *Buffer) OnChange(fn func(text string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

// OnCursorMove installs fn to be called after the cursor moves.
func (b *Buffer) OnCursorMove(fn func(offset int)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onCursor = fn
}

// LineEnding returns the line ending used on write-out.
func (b *Buffer) LineEnding() LineEnding {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lineEnding
}

// Text returns the full text.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text
}

// Len returns the text length in bytes.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.text)
}

// LineCount returns the number of lines. An empty buffer has one line.
func (b *Buffer) LineCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lineStarts)
}

// LineText returns a line without its terminating newline.
func (b *Buffer) LineText(line int) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if line < 0 || line >= len(b.lineStarts) {
		return ""
	}
	start, end := b.lineBoundsLocked(line)
	return b.text[start:end]
}

// LineStart returns the offset of the first byte of line.
func (b *Buffer) LineStart(line int) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if line < 0 {
		return 0
	}
	if line >= len(b.lineStarts) {
		return len(b.text)
	}
	return b.lineStarts[line]
}

// OffsetToPoint converts a (clamped) offset to a line and column.
func (b *Buffer) OffsetToPoint(offset int) Point {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.offsetToPointLocked(clamp(b.text, offset))
}

// PointToOffset converts a line and column to an offset, clamping both.
func (b *Buffer) PointToOffset(p Point) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pointToOffsetLocked(p)
}

// Insert inserts s at offset.
func (b *Buffer) Insert(offset int, s string) error {
	if offset < 0 || offset > b.Len() {
		return ErrOffsetOutOfRange
	}
	return b.Replace(offset, offset, s)
}

// Delete removes [start, end).
func (b *Buffer) Delete(start, end int) error {
	return b.Replace(start, end, "")
}

// Replace replaces [start, end) with s. The cursor keeps its place relative
// to the surrounding text; a cursor inside the replaced range moves to the
// end of the new text.
func (b *Buffer) Replace(start, end int, s string) error {
	b.mu.Lock()
	if start < 0 || start > end || end > len(b.text) {
		b.mu.Unlock()
		return ErrRangeInvalid
	}
	s = NormalizeLineEndings(s)
	newText := b.text[:start] + s + b.text[end:]

	cursor := b.cursor
	switch {
	case cursor >= end:
		cursor += len(s) - (end - start)
	case cursor > start:
		cursor = start + len(s)
	}
	b.setTextLocked(newText)
	b.cursor = clamp(b.text, cursor)
	onChange := b.onChange
	b.mu.Unlock()

	if onChange != nil {
		onChange(newText)
	}
	return nil
}

// SetText replaces the whole text. The cursor and scroll position are
// clamped to the new text but otherwise kept.
func (b *Buffer) SetText(s string) {
	b.mu.Lock()
	b.setTextLocked(NormalizeLineEndings(s))
	b.cursor = clamp(b.text, b.cursor)
	b.scrollTop = clampLine(b.scrollTop, len(b.lineStarts))
	text := b.text
	onChange := b.onChange
	b.mu.Unlock()

	if onChange != nil {
		onChange(text)
	}
}

// Cursor returns the cursor offset.
func (b *Buffer) Cursor() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cursor
}

// CursorPoint returns the cursor as a line and column.
func (b *Buffer) CursorPoint() Point {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.offsetToPointLocked(b.cursor)
}

// SetCursor moves the cursor to offset, clamped to the text and backed off
// to the start of the rune it falls in.
func (b *Buffer) SetCursor(offset int) {
	b.mu.Lock()
	b.cursor = clamp(b.text, offset)
	cursor := b.cursor
	onCursor := b.onCursor
	b.mu.Unlock()

	if onCursor != nil {
		onCursor(cursor)
	}
}

// ScrollTop returns the first visible line.
func (b *Buffer) ScrollTop() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.scrollTop
}

// SetScrollTop sets the first visible line, clamped to the line count.
func (b *Buffer) SetScrollTop(line int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scrollTop = clampLine(line, len(b.lineStarts))
}

// EnsureCursorVisible scrolls so the cursor line lies within a window of
// height lines.
func (b *Buffer) EnsureCursorVisible(height int) {
	if height <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	line := b.offsetToPointLocked(b.cursor).Line
	if line < b.scrollTop {
		b.scrollTop = line
	} else if line >= b.scrollTop+height {
		b.scrollTop = line - height + 1
	}
}

// Clamp returns offset limited to [0, len(text)] and moved back to a rune
// boundary.
func Clamp(text string, offset int) int {
	return clamp(text, offset)
}

func clamp(text string, offset int) int {
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

func clampLine(line, count int) int {
	if line < 0 {
		return 0
	}
	if line >= count {
		return count - 1
	}
	return line
}

func (b *Buffer) setTextLocked(s string) {
	b.text = s
	b.lineStarts = b.lineStarts[:0]
	b.lineStarts = append(b.lineStarts, 0)
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			b.lineStarts = append(b.lineStarts, i+1)
		}
	}
}

func (b *Buffer) lineBoundsLocked(line int) (int, int) {
	start := b.lineStarts[line]
	end := len(b.text)
	if line+1 < len(b.lineStarts) {
		end = b.lineStarts[line+1] - 1
	}
	return start, end
}

func (b *Buffer) offsetToPointLocked(offset int) Point {
	lo, hi := 0, len(b.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if b.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return Point{Line: lo, Column: offset - b.lineStarts[lo]}
}

func (b *Buffer) pointToOffsetLocked(p Point) int {
	line := clampLine(p.Line, len(b.lineStarts))
	start, end := b.lineBoundsLocked(line)
	col := p.Column
	if col < 0 {
		col = 0
	}
	if start+col > end {
		return end
	}
	return clamp(b.text, start+col)
}

// LineEnding specifies the line ending style of a file.
type LineEnding uint8

const (
	LineEndingLF   LineEnding = iota // Unix: \n
	LineEndingCRLF                   // Windows: \r\n
	LineEndingCR                     // Old Mac: \r
)

// String returns a printable name.
func (le LineEnding) String() string {
	switch le {
	case LineEndingCRLF:
		return "CRLF"
	case LineEndingCR:
		return "CR"
	default:
		return "LF"
	}
}

// Sequence returns the actual line ending characters.
func (le LineEnding) Sequence() string {
	switch le {
	case LineEndingCRLF:
		return "\r\n"
	case LineEndingCR:
		return "\r"
	default:
		return "\n"
	}
}

// Apply converts \n-terminated text to this line ending.
func (le LineEnding) Apply(s string) string {
	if le == LineEndingLF {
		return s
	}
	return strings.ReplaceAll(s, "\n", le.Sequence())
}

// DetectLineEnding returns the most common line ending in text, LF when
// there is none.
func DetectLineEnding(text string) LineEnding {
	var lf, crlf, cr int
	for i := 0; i < len(text); i++ {
		switch {
		case text[i] == '\r' && i+1 < len(text) && text[i+1] == '\n':
			crlf++
			i++
		case text[i] == '\r':
			cr++
		case text[i] == '\n':
			lf++
		}
	}
	switch {
	case crlf > 0 && crlf >= lf && crlf >= cr:
		return LineEndingCRLF
	case cr > 0 && cr >= lf:
		return LineEndingCR
	default:
		return LineEndingLF
	}
}

// NormalizeLineEndings converts CRLF and CR to LF.
func NormalizeLineEndings(s string) string {
	if strings.IndexByte(s, '\r') < 0 {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
