package app

import (
	"github.com/google/uuid"

	"github.com/dshills/ecucedit/internal/filestore"
	"github.com/dshills/ecucedit/internal/textbuf"
)

// Document is the open file and its editing state.
type Document struct {
	// ID identifies this editing session; reopening a file gets a new one.
	ID string

	// File is nil for a document that has never been saved.
	File *filestore.File

	modified bool

	// stale is set when the file changed on disk while there were unsaved
	// edits.
	stale bool
}

func newDocument(f *filestore.File) *Document {
	return &Document{ID: uuid.NewString(), File: f}
}

// Path returns the file path, or "" for a new document.
func (d *Document) Path() string {
	if d.File == nil {
		return ""
	}
	return d.File.Path
}

// Name returns the display name.
func (d *Document) Name() string {
	if d.File == nil {
		return "Untitled"
	}
	return d.File.Name()
}

// IsScratch reports whether the document has no file yet.
func (d *Document) IsScratch() bool {
	return d.File == nil
}

// IsModified reports unsaved changes.
func (d *Document) IsModified() bool {
	return d.modified
}

// IsStale reports that the file changed on disk while the document had
// unsaved changes.
func (d *Document) IsStale() bool {
	return d.stale
}

// LineEnding returns the line ending used on save.
func (d *Document) LineEnding() textbuf.LineEnding {
	if d.File == nil {
		return textbuf.LineEndingLF
	}
	return d.File.LineEnding
}

// Encoding returns the encoding used on save.
func (d *Document) Encoding() filestore.Encoding {
	if d.File == nil {
		return filestore.EncodingUTF8
	}
	return d.File.Encoding
}
