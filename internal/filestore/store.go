// Package filestore loads and saves ARXML documents.
//
// Loading decodes the bytes to text (UTF-8, falling back to ISO-8859-1 or
// Windows-1252), records the line ending and normalizes the text to LF.
// Saving reverses both, keeps a backup of the previous file and replaces the
// file through a temporary sibling and a rename.
package filestore

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/dshills/ecucedit/internal/logging"
	"github.com/dshills/ecucedit/internal/textbuf"
)

// DefaultMaxFileSize bounds files Load accepts.
const DefaultMaxFileSize = 64 << 20

// Errors returned inside a *PathError.
var (
	ErrIsDirectory  = errors.New("is a directory")
	ErrFileTooLarge = errors.New("file too large")
	ErrBinaryFile   = errors.New("binary file")
	ErrNoPath       = errors.New("no file path")
)

// PathError records a failed file operation.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// Encoding is a character encoding a document can be stored in.
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingLatin1      Encoding = "iso-8859-1"
	EncodingWindows1252 Encoding = "windows-1252"
)

func (e Encoding) codec() encoding.Encoding {
	switch e {
	case EncodingLatin1:
		return charmap.ISO8859_1
	case EncodingWindows1252:
		return charmap.Windows1252
	default:
		return nil
	}
}

var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// File is a loaded document and the facts needed to write it back.
type File struct {
	Path       string
	Text       string // LF-normalized
	Encoding   Encoding
	BOM        bool
	LineEnding textbuf.LineEnding
	ModTime    time.Time
	Size       int64
	Mode       fs.FileMode
}

// Name returns the base name of the file.
func (f *File) Name() string {
	return filepath.Base(f.Path)
}

// Store reads and writes files.
type Store struct {
	backup      bool
	suffix      string
	maxFileSize int64
	log         *logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithBackup enables or disables backups and sets their suffix.
func WithBackup(enabled bool, suffix string) Option {
	return func(s *Store) {
		s.backup = enabled
		if suffix != "" {
			s.suffix = suffix
		}
	}
}

// WithMaxFileSize sets the size limit; 0 means unlimited.
func WithMaxFileSize(size int64) Option {
	return func(s *Store) {
		s.maxFileSize = size
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a store with backups on and the ".backup" suffix.
func New(opts ...Option) *Store {
	s := &Store{
		backup:      true,
		suffix:      ".backup",
		maxFileSize: DefaultMaxFileSize,
		log:         logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BackupPath returns where the backup of path is written.
func (s *Store) BackupPath(path string) string {
	return path + s.suffix
}

// Load reads and decodes path.
func (s *Store) Load(path string) (*File, error) {
	if path == "" {
		return nil, &PathError{Op: "open", Path: path, Err: ErrNoPath}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &PathError{Op: "open", Path: path, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &PathError{Op: "open", Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &PathError{Op: "open", Path: path, Err: ErrIsDirectory}
	}
	if s.maxFileSize > 0 && info.Size() > s.maxFileSize {
		return nil, &PathError{Op: "open", Path: path, Err: ErrFileTooLarge}
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, &PathError{Op: "open", Path: path, Err: err}
	}

	f, err := Decode(raw)
	if err != nil {
		return nil, &PathError{Op: "open", Path: path, Err: err}
	}
	f.Path = abs
	f.ModTime = info.ModTime()
	f.Size = info.Size()
	f.Mode = info.Mode().Perm()
	if f.Encoding != EncodingUTF8 {
		s.log.Info("%s is not UTF-8, decoded as %s", f.Name(), f.Encoding)
	}
	return f, nil
}

// Decode converts file bytes into a File without path information.
func Decode(raw []byte) (*File, error) {
	if isBinary(raw) {
		return nil, ErrBinaryFile
	}
	f := &File{Encoding: EncodingUTF8}
	if bytes.HasPrefix(raw, bomUTF8) {
		f.BOM = true
		raw = raw[len(bomUTF8):]
	}

	text := string(raw)
	if !f.BOM && !utf8.Valid(raw) {
		f.Encoding = EncodingWindows1252
		if declared := declaredEncoding(raw); declared == EncodingLatin1 {
			f.Encoding = EncodingLatin1
		}
		decoded, err := f.Encoding.codec().NewDecoder().Bytes(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", f.Encoding, err)
		}
		text = string(decoded)
	}

	f.LineEnding = textbuf.DetectLineEnding(text)
	f.Text = textbuf.NormalizeLineEndings(text)
	return f, nil
}

// Encode converts text back to the file's encoding and line ending.
func (f *File) Encode(text string) ([]byte, error) {
	text = f.LineEnding.Apply(textbuf.NormalizeLineEndings(text))
	var out []byte
	if codec := f.Encoding.codec(); codec != nil {
		b, err := codec.NewEncoder().Bytes([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", f.Encoding, err)
		}
		out = b
	} else {
		out = []byte(text)
	}
	if f.BOM {
		out = append(append([]byte{}, bomUTF8...), out...)
	}
	return out, nil
}

// Save writes text to f.Path, first copying the current file to its backup
// path when backups are on.
func (s *Store) Save(f *File, text string) error {
	if f.Path == "" {
		return &PathError{Op: "save", Path: "", Err: ErrNoPath}
	}
	return s.write("save", f, f.Path, text)
}

// SaveAs writes text to path and makes it f's path.
func (s *Store) SaveAs(f *File, path, text string) error {
	if path == "" {
		return &PathError{Op: "saveas", Path: path, Err: ErrNoPath}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return &PathError{Op: "saveas", Path: path, Err: err}
	}
	if err := s.write("saveas", f, abs, text); err != nil {
		return err
	}
	f.Path = abs
	return nil
}

func (s *Store) write(op string, f *File, path, text string) error {
	data, err := f.Encode(text)
	if err != nil {
		return &PathError{Op: op, Path: path, Err: err}
	}
	if s.backup {
		if err := s.writeBackup(path); err != nil {
			return &PathError{Op: op, Path: path, Err: err}
		}
	}
	mode := f.Mode
	if mode == 0 {
		mode = 0o644
	}
	if err := writeAtomic(path, data, mode); err != nil {
		return &PathError{Op: op, Path: path, Err: err}
	}

	f.Text = textbuf.NormalizeLineEndings(text)
	f.Size = int64(len(data))
	if info, err := os.Stat(path); err == nil {
		f.ModTime = info.ModTime()
	} else {
		f.ModTime = time.Now()
	}
	s.log.Debug("%s %s (%d bytes)", op, path, len(data))
	return nil
}

// writeBackup copies the current content of path to its backup path. A
// missing file needs no backup.
func (s *Store) writeBackup(path string) error {
	prev, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading for backup: %w", err)
	}
	if err := os.WriteFile(s.BackupPath(path), prev, 0o644); err != nil {
		return fmt.Errorf("writing backup: %w", err)
	}
	return nil
}

// Changed reports whether the file on disk differs in size or modification
// time from what f last saw. A deleted file counts as changed.
func (s *Store) Changed(f *File) (bool, error) {
	info, err := os.Stat(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, &PathError{Op: "stat", Path: f.Path, Err: err}
	}
	return info.Size() != f.Size || !info.ModTime().Equal(f.ModTime), nil
}

// SaveAsName returns the default Save-As name for path:
// <dir>/<stem>_modified.arxml.
func SaveAsName(path string) string {
	if path == "" {
		return "untitled_modified.arxml"
	}
	dir, base := filepath.Split(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+"_modified.arxml")
}

func writeAtomic(path string, data []byte, mode fs.FileMode) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	cleanup := func() { _ = os.Remove(name) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(name, mode); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(name, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

var encodingAttr = regexp.MustCompile(`^\s*<\?xml[^>]*\bencoding\s*=\s*["']([A-Za-z0-9._-]+)["']`)

// declaredEncoding reads the encoding named in the XML declaration.
func declaredEncoding(raw []byte) Encoding {
	head := raw
	if len(head) > 256 {
		head = head[:256]
	}
	m := encodingAttr.FindSubmatch(head)
	if m == nil {
		return ""
	}
	switch strings.ToLower(string(m[1])) {
	case "iso-8859-1", "latin1", "latin-1", "iso8859-1":
		return EncodingLatin1
	case "windows-1252", "cp1252":
		return EncodingWindows1252
	case "utf-8", "utf8":
		return EncodingUTF8
	}
	return ""
}

// isBinary reports NUL bytes in the first 8 KiB.
func isBinary(content []byte) bool {
	sample := content
	if len(sample) > 8192 {
		sample = sample[:8192]
	}
	return bytes.IndexByte(sample, 0) >= 0
}
