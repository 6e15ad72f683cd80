package app

import (
	"errors"

	"github.com/dshills/ecucedit/internal/filestore"
)

// forwardWatchEvents moves watcher events onto the loop. It returns when
// the watcher is closed.
func (app *Application) forwardWatchEvents(w *filestore.Watcher) {
	events, errs := w.Events(), w.Errors()
	for events != nil || errs != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if err := app.loop.Post(func() { app.fileChanged(ev) }); err != nil {
				return
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			app.log.Warn("watch: %v", err)
		}
	}
}

func (app *Application) watch() {
	if app.watcher == nil || app.doc == nil || app.doc.File == nil {
		return
	}
	if err := app.watcher.Watch(app.doc.Path()); err != nil && !errors.Is(err, filestore.ErrAlreadyWatching) {
		app.log.Warn("watch %s: %v", app.doc.Path(), err)
	}
}

func (app *Application) unwatch() {
	if app.watcher == nil || app.doc == nil || app.doc.File == nil {
		return
	}
	if err := app.watcher.Unwatch(app.doc.Path()); err != nil && !errors.Is(err, filestore.ErrNotWatching) {
		app.log.Debug("unwatch %s: %v", app.doc.Path(), err)
	}
}

// fileChanged handles an external change to a file. Our own saves are
// recognised by size and modification time and ignored. An unmodified
// document is reloaded; one with unsaved edits is marked stale.
func (app *Application) fileChanged(ev filestore.Event) {
	doc := app.doc
	if doc == nil || doc.File == nil || ev.Path != doc.Path() {
		return
	}
	changed, err := app.store.Changed(doc.File)
	if err != nil {
		app.log.Warn("stat %s: %v", ev.Path, err)
		return
	}
	if !changed {
		return
	}

	if doc.modified {
		doc.stale = true
		app.log.Warn("%s changed on disk (%s); keeping unsaved edits", ev.Path, ev.Op)
		app.notifyFileChanged(ev.Path, false)
		return
	}
	err = app.Refresh()
	if app.doc == doc {
		// Deleted or unreadable: keep the current text.
		app.log.Warn("reload %s: %v", ev.Path, err)
		doc.stale = true
		app.notifyFileChanged(ev.Path, false)
		return
	}
	if err != nil {
		app.log.Warn("reload %s: %v", ev.Path, err)
	}
	app.notifyFileChanged(ev.Path, true)
}

func (app *Application) notifyFileChanged(path string, reloaded bool) {
	if app.opts.OnFileChanged != nil {
		app.opts.OnFileChanged(path, reloaded)
	}
}
