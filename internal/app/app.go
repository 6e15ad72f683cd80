// Package app wires the editor together: configuration, logging, the event
// loop, the text buffer, the synchronizer, file storage and validation
// rules. A front-end drives an Application from the loop goroutine and
// receives document events through a syncer.Listener.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/ecucedit/internal/arxml"
	"github.com/dshills/ecucedit/internal/config"
	"github.com/dshills/ecucedit/internal/correlate"
	"github.com/dshills/ecucedit/internal/debounce"
	"github.com/dshills/ecucedit/internal/extract"
	"github.com/dshills/ecucedit/internal/filestore"
	"github.com/dshills/ecucedit/internal/header"
	"github.com/dshills/ecucedit/internal/logging"
	"github.com/dshills/ecucedit/internal/loop"
	"github.com/dshills/ecucedit/internal/rules"
	"github.com/dshills/ecucedit/internal/syncer"
	"github.com/dshills/ecucedit/internal/textbuf"
)

// Application is the central coordinator for one editing session.
//
// Except for Post and Run, methods must be called on the loop goroutine,
// or after Run returned.
type Application struct {
	opts Options
	cfg  *config.Config
	log  *logging.Logger

	loop    *loop.Loop
	buf     *textbuf.Buffer
	sync    *syncer.Synchronizer
	metrics *syncer.Metrics
	store   *filestore.Store
	watcher *filestore.Watcher
	rules   *rules.Engine

	doc     *Document
	syncErr error
}

// Options configures the application.
type Options struct {
	// Config is the loaded configuration. Nil means config.Default().
	Config *config.Config

	// Logger receives all component logs. Nil discards them.
	Logger *logging.Logger

	// Listener receives synchronizer events.
	Listener syncer.Listener

	// Scheduler runs debounce callbacks. Nil uses the event loop.
	Scheduler debounce.Scheduler

	// Registerer receives the synchronizer metrics. Nil leaves them
	// unregistered.
	Registerer prometheus.Registerer

	// RulesBase resolves relative rule script paths.
	RulesBase string

	// OnFileChanged is called on the loop when the open file changed on
	// disk. reloaded is false when unsaved edits kept the buffer as is.
	OnFileChanged func(path string, reloaded bool)

	// Now returns the time stamped into generated headers.
	Now func() time.Time
}

// New creates an Application. Rule scripts named by the configuration are
// loaded here; a broken script fails startup.
func New(opts Options) (*Application, error) {
	app := &Application{opts: opts, cfg: opts.Config, log: opts.Logger}
	if app.cfg == nil {
		app.cfg = config.Default()
	}
	if app.log == nil {
		app.log = logging.Nop()
	}
	if app.opts.Listener == nil {
		app.opts.Listener = syncer.NopListener{}
	}
	if app.opts.Now == nil {
		app.opts.Now = time.Now
	}

	if err := app.bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// bootstrap initializes all components in dependency order.
func (app *Application) bootstrap() error {
	if err := app.cfg.Validate(); err != nil {
		return &InitError{Component: "config", Err: err}
	}
	app.log.SetLevel(app.cfg.LogLevel())

	// 1. Event loop
	app.loop = loop.New(loop.WithLogger(app.log))

	// 2. Text buffer and synchronizer
	app.buf = textbuf.New()
	sched := app.opts.Scheduler
	if sched == nil {
		sched = app.loop
	}
	app.metrics = syncer.NewMetrics(app.opts.Registerer)
	app.sync = syncer.New(app.buf,
		syncer.WithListener(&syncAdapter{app: app, next: app.opts.Listener}),
		syncer.WithLogger(app.log),
		syncer.WithMetrics(app.metrics),
		syncer.WithScheduler(sched),
		syncer.WithDelay(app.cfg.Sync.Debounce.Duration),
		syncer.WithFormatOptions(app.cfg.Format.Options()),
		syncer.WithAutoSync(app.cfg.Sync.Enabled),
	)
	app.buf.OnChange(app.textChanged)
	app.buf.OnCursorMove(app.sync.OnCursorMoved)

	// 3. File storage
	app.store = filestore.New(
		filestore.WithBackup(app.cfg.Files.Backup, app.cfg.Files.BackupSuffix),
		filestore.WithLogger(app.log),
	)
	if app.cfg.Files.Watch {
		w, err := filestore.NewWatcher(0)
		if err != nil {
			// Editing works without it.
			app.log.Warn("file watching disabled: %v", err)
		} else {
			app.watcher = w
			go app.forwardWatchEvents(w)
		}
	}

	// 4. Validation rules
	app.rules = rules.New(
		rules.WithTimeout(app.cfg.Rules.Timeout.Duration),
		rules.WithLogger(app.log),
	)
	for _, path := range app.cfg.RulePaths(app.opts.RulesBase) {
		if err := app.rules.Load(path); err != nil {
			app.shutdownWatcher()
			return &InitError{Component: "rules", Err: err}
		}
	}
	if n := app.rules.Len(); n > 0 {
		app.log.Info("loaded %d rule script(s)", n)
	}
	return nil
}

// Run processes loop events until ctx is done or Close is called.
func (app *Application) Run(ctx context.Context) error {
	err := app.loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Post queues fn to run on the loop goroutine. It is safe to call from any
// goroutine.
func (app *Application) Post(fn func()) error {
	return app.loop.Post(fn)
}

// Close stops the loop and the file watcher.
func (app *Application) Close() error {
	app.loop.Stop()
	return app.shutdownWatcher()
}

func (app *Application) shutdownWatcher() error {
	if app.watcher == nil {
		return nil
	}
	err := app.watcher.Close()
	app.watcher = nil
	return err
}

// Config returns the active configuration.
func (app *Application) Config() *config.Config { return app.cfg }

// Logger returns the application logger.
func (app *Application) Logger() *logging.Logger { return app.log }

// Loop returns the event loop.
func (app *Application) Loop() *loop.Loop { return app.loop }

// Buffer returns the text buffer.
func (app *Application) Buffer() *textbuf.Buffer { return app.buf }

// Syncer returns the synchronizer.
func (app *Application) Syncer() *syncer.Synchronizer { return app.sync }

// Metrics returns the synchronizer metrics.
func (app *Application) Metrics() *syncer.Metrics { return app.metrics }

// Rules returns the rule engine.
func (app *Application) Rules() *rules.Engine { return app.rules }

// Document returns the open document, or nil.
func (app *Application) Document() *Document { return app.doc }

// Snapshot returns the committed snapshot.
func (app *Application) Snapshot() *syncer.Snapshot { return app.sync.Snapshot() }

// SyncError returns the error of the last failed rebuild, or nil once a
// rebuild succeeded.
func (app *Application) SyncError() error { return app.syncErr }

func (app *Application) textChanged(text string) {
	if app.doc != nil {
		app.doc.modified = true
	}
	app.sync.OnTextChanged(text)
}

// CheckUnsaved returns ErrUnsavedChanges when the open document has
// unsaved edits.
func (app *Application) CheckUnsaved() error {
	if app.doc != nil && app.doc.modified {
		return ErrUnsavedChanges
	}
	return nil
}

// NewDocument starts an empty, unsaved document.
func (app *Application) NewDocument() {
	app.unwatch()
	app.doc = newDocument(nil)
	app.sync.Close()
	app.doc.modified = false
	app.log.Info("new document %s", app.doc.ID)
}

// Open loads path and shows it. If the file does not parse, the text is
// still shown with an empty tree and an OperationError wrapping the
// arxml.ParseError is returned.
func (app *Application) Open(path string) error {
	f, err := app.store.Load(path)
	if err != nil {
		return NewOperationError("open", path, err)
	}
	return app.show(f, "open")
}

func (app *Application) show(f *filestore.File, op string) error {
	app.unwatch()
	app.doc = newDocument(f)
	perr := app.sync.Open(f.Text)
	app.doc.modified = false
	app.watch()

	app.log.WithField("doc", app.doc.ID).Info("%s %s (%s, %s, %s)",
		op, f.Path, humanize.Bytes(uint64(f.Size)), f.Encoding, f.LineEnding)
	if perr != nil {
		return NewOperationError(op, f.Path, perr).WithContext("text shown without tree")
	}
	return nil
}

// CloseDocument drops the open document.
func (app *Application) CloseDocument() {
	app.unwatch()
	app.sync.Close()
	app.doc = nil
}

// Save writes the buffer to the document's file.
func (app *Application) Save() error {
	if app.doc == nil {
		return NewOperationError("save", "", ErrNoDocument)
	}
	if app.doc.File == nil {
		return NewOperationError("save", "", ErrNoPath)
	}
	if err := app.store.Save(app.doc.File, app.buf.Text()); err != nil {
		return NewOperationError("save", app.doc.Path(), err)
	}
	app.saved("saved")
	return nil
}

// SaveAs writes the buffer to path, which becomes the document's file.
func (app *Application) SaveAs(path string) error {
	if app.doc == nil {
		return NewOperationError("saveas", path, ErrNoDocument)
	}
	f := app.doc.File
	if f == nil {
		f = &filestore.File{
			Encoding:   filestore.EncodingUTF8,
			LineEnding: textbuf.LineEndingLF,
		}
	}
	app.unwatch()
	if err := app.store.SaveAs(f, path, app.buf.Text()); err != nil {
		app.watch()
		return NewOperationError("saveas", path, err)
	}
	app.doc.File = f
	app.saved("saved as")
	app.watch()
	return nil
}

// SaveAsName returns the suggested Save-As path for the document.
func (app *Application) SaveAsName() string {
	return filestore.SaveAsName(app.target())
}

func (app *Application) saved(what string) {
	app.doc.modified = false
	app.doc.stale = false
	f := app.doc.File
	app.log.Info("%s %s (%s)", what, f.Path, humanize.Bytes(uint64(f.Size)))
}

// Refresh reloads the document from disk, discarding unsaved edits.
func (app *Application) Refresh() error {
	if app.doc == nil {
		return NewOperationError("refresh", "", ErrNoDocument)
	}
	if app.doc.File == nil {
		return NewOperationError("refresh", "", ErrNoPath)
	}
	path := app.doc.Path()
	f, err := app.store.Load(path)
	if err != nil {
		return NewOperationError("refresh", path, err)
	}
	return app.show(f, "refresh")
}

// Format pretty-prints the document through the tree.
func (app *Application) Format() error {
	if err := app.sync.Format(); err != nil {
		return NewOperationError("format", app.target(), err)
	}
	return nil
}

// Sync parses the current text now.
func (app *Application) Sync() error {
	if err := app.sync.Sync(); err != nil {
		return NewOperationError("sync", app.target(), err)
	}
	return nil
}

// SetAutoSync turns debounced rebuilds on or off.
func (app *Application) SetAutoSync(on bool) {
	app.sync.SetAutoSync(on)
	app.log.Debug("auto sync %v", on)
}

// Apply performs a tree edit.
func (app *Application) Apply(op syncer.Op) error {
	return app.sync.Apply(op)
}

// SelectNode selects id in the tree and highlights its element.
func (app *Application) SelectNode(id arxml.NodeID) {
	app.sync.OnTreeNodeSelected(id)
}

// Search returns the literal occurrences of term in the text.
func (app *Application) Search(term string) []correlate.Range {
	return app.sync.Search(term)
}

// Validate checks the current text: structure, extraction warnings and,
// when rule scripts are loaded, their findings. The report is returned
// together with a rule engine failure.
func (app *Application) Validate(ctx context.Context) (*arxml.Report, error) {
	rep, err := app.sync.Validate()
	if err != nil {
		return nil, NewOperationError("validate", app.target(), err)
	}
	if app.rules.Len() == 0 {
		return rep, nil
	}
	tree, err := arxml.Parse(app.buf.Text())
	if err != nil {
		return rep, NewOperationError("validate", app.target(), err)
	}
	cfg := extract.Extract(tree)
	findings, err := app.rules.Run(ctx, cfg)
	rules.Report(rep, cfg, findings)
	if err != nil {
		return rep, NewOperationError("validate", app.target(), err).WithContext("rules")
	}
	return rep, nil
}

// Header renders the C configuration header for the current text. An
// empty module is detected from the document.
func (app *Application) Header(module string) (string, error) {
	tree, err := arxml.Parse(app.buf.Text())
	if err != nil {
		return "", NewOperationError("header", app.target(), err)
	}
	if module == "" {
		module = header.DetectModule(tree)
	}
	var source string
	if app.doc != nil {
		source = app.doc.Name()
	}
	out, err := header.Render(extract.Extract(tree), header.Options{
		Module:    module,
		Source:    source,
		Generated: app.opts.Now(),
	})
	if err != nil {
		return "", NewOperationError("header", app.target(), err)
	}
	return out, nil
}

func (app *Application) target() string {
	if app.doc == nil {
		return ""
	}
	return app.doc.Path()
}
