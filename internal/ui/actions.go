package ui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/dshills/ecucedit/internal/app"
	"github.com/dshills/ecucedit/internal/arxml"
	"github.com/dshills/ecucedit/internal/header"
	"github.com/dshills/ecucedit/internal/syncer"
	"github.com/dshills/ecucedit/internal/textbuf"
)

func (u *UI) requestQuit() {
	if errors.Is(u.app.CheckUnsaved(), app.ErrUnsavedChanges) {
		u.confirm("Unsaved changes. Quit anyway?", u.quit)
		return
	}
	u.quit()
}

func (u *UI) save() {
	err := u.app.Save()
	if errors.Is(err, app.ErrNoPath) {
		u.saveAs()
		return
	}
	if err != nil {
		u.fail(err)
		return
	}
	u.savedMessage()
}

func (u *UI) saveAs() {
	if u.app.Document() == nil {
		u.fail(app.ErrNoDocument)
		return
	}
	u.ask("Save as: ", u.app.SaveAsName(), func(path string) {
		if path == "" {
			u.info("cancelled")
			return
		}
		if err := u.app.SaveAs(path); err != nil {
			u.fail(err)
			return
		}
		u.savedMessage()
	})
}

func (u *UI) savedMessage() {
	f := u.app.Document().File
	u.info("saved %s (%s)", f.Path, humanize.Bytes(uint64(f.Size)))
}

func (u *UI) reload() {
	doc := u.app.Document()
	if doc == nil || doc.IsScratch() {
		u.fail(app.ErrNoPath)
		return
	}
	do := func() {
		if err := u.app.Refresh(); err != nil {
			u.fail(err)
			return
		}
		u.info("reloaded %s", doc.Path())
	}
	if doc.IsModified() {
		u.confirm("Discard unsaved changes and reload?", do)
		return
	}
	do()
}

func (u *UI) startSearch() {
	u.ask("Search: ", u.search, func(term string) {
		u.search = term
		u.searchHit = textbuf.Match{}
		u.findNext()
	})
}

// findNext moves the cursor to the next occurrence of the search term
// after the current hit, wrapping around.
func (u *UI) findNext() {
	if u.search == "" {
		u.startSearch()
		return
	}
	buf := u.app.Buffer()
	from := buf.Cursor()
	if u.searchHit.Start == from && u.searchHit.End > u.searchHit.Start {
		from = u.searchHit.End
	}
	m, ok := buf.FindNext(u.search, from, false)
	if !ok {
		u.searchHit = textbuf.Match{}
		u.fail(fmt.Errorf("not found: %s", u.search))
		return
	}
	hits := u.app.Search(u.search)
	n := 0
	for i, r := range hits {
		if r.Start == m.Start {
			n = i + 1
			break
		}
	}
	u.focus = PaneText
	buf.SetCursor(m.Start)
	u.searchHit = m
	u.info("%q: match %d of %d", u.search, n, len(hits))
}

func (u *UI) format() {
	if err := u.app.Format(); err != nil {
		u.fail(err)
		return
	}
	u.info("formatted")
}

func (u *UI) syncNow() {
	if err := u.app.Sync(); err != nil {
		u.fail(err)
		return
	}
	u.info("synced")
}

func (u *UI) toggleAutoSync() {
	on := !u.app.Syncer().AutoSync()
	u.app.SetAutoSync(on)
	if on {
		u.info("auto sync on")
	} else {
		u.info("auto sync off: F5 syncs")
	}
}

// validate reports the counts and selects the first error or warning.
func (u *UI) validate() {
	rep, err := u.app.Validate(u.ctx)
	if rep == nil {
		u.fail(err)
		return
	}
	msg := fmt.Sprintf("%d error(s), %d warning(s), %d info",
		rep.Count(arxml.SeverityError), rep.Count(arxml.SeverityWarning), rep.Count(arxml.SeverityInfo))
	for _, sev := range []arxml.Severity{arxml.SeverityError, arxml.SeverityWarning} {
		if f, ok := firstFinding(rep, sev); ok {
			msg += ": " + f.Message
			if !u.app.Syncer().Dirty() {
				u.selectNode(f.Node)
			}
			break
		}
	}
	if err != nil {
		u.fail(fmt.Errorf("%s; %w", msg, err))
		return
	}
	if rep.HasErrors() {
		u.fail(errors.New(msg))
		return
	}
	u.info("%s", msg)
}

func firstFinding(rep *arxml.Report, sev arxml.Severity) (arxml.Finding, bool) {
	for _, f := range rep.Findings {
		if f.Severity == sev {
			return f, true
		}
	}
	return arxml.Finding{}, false
}

// writeHeader asks for a path and writes the generated C header there.
func (u *UI) writeHeader() {
	module := header.DetectModule(u.app.Snapshot().Tree)
	if module == "" {
		u.fail(header.ErrNoModule)
		return
	}
	dir := "."
	if doc := u.app.Document(); doc != nil && !doc.IsScratch() {
		dir = filepath.Dir(doc.Path())
	}
	def := filepath.Join(dir, module+"_Cfg.h")
	u.ask("Write header: ", def, func(path string) {
		if path == "" {
			u.info("cancelled")
			return
		}
		out, err := u.app.Header(module)
		if err != nil {
			u.fail(err)
			return
		}
		if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
			u.fail(err)
			return
		}
		u.info("wrote %s (%d defines)", path, strings.Count(out, "#define ")-1)
	})
}

// treeReady syncs pending text first: a tree edit on a stale tree would
// overwrite the text edits.
func (u *UI) treeReady() (*syncer.Snapshot, arxml.NodeID, bool) {
	if u.app.Syncer().Dirty() {
		if err := u.app.Sync(); err != nil {
			u.fail(fmt.Errorf("fix the text before editing the tree: %w", err))
			return nil, arxml.InvalidNode, false
		}
	}
	snap := u.app.Snapshot()
	return snap, snap.Outline.Selected(), true
}

func (u *UI) apply(op syncer.Op) {
	if err := u.app.Apply(op); err != nil {
		u.fail(fmt.Errorf("%s: %w", op, err))
		return
	}
	u.info("%s", op)
}

func (u *UI) editValue() {
	snap, id, ok := u.treeReady()
	if !ok || id == arxml.InvalidNode {
		return
	}
	info, err := snap.Tree.Info(id)
	if err != nil {
		u.fail(err)
		return
	}
	if info.Kind != arxml.KindParameter {
		u.fail(fmt.Errorf("%s is not a parameter value", info.QName))
		return
	}
	u.ask("Value: ", info.Value, func(v string) {
		u.apply(syncer.SetValue{Node: id, Value: v})
	})
}

func (u *UI) rename() {
	snap, id, ok := u.treeReady()
	if !ok || id == arxml.InvalidNode {
		return
	}
	t := snap.Tree
	text := t.Text(id)
	u.ask("Short name: ", t.ShortName(id), func(name string) {
		u.apply(syncer.Edit{Node: id, ShortName: name, Text: text})
	})
}

func (u *UI) addChild() {
	snap, id, ok := u.treeReady()
	if !ok {
		return
	}
	if id == arxml.InvalidNode && !snap.Empty() {
		return
	}
	u.ask("New element tag: ", "", func(tag string) {
		tag, name := splitTagName(tag)
		u.apply(syncer.AddChild{Parent: id, Tag: tag, ShortName: name})
	})
}

func (u *UI) insertSibling(before bool) {
	snap, id, ok := u.treeReady()
	if !ok || id == arxml.InvalidNode {
		return
	}
	u.ask("New sibling tag: ", snap.Tree.QName(id), func(tag string) {
		tag, name := splitTagName(tag)
		u.apply(syncer.InsertSibling{Anchor: id, Tag: tag, ShortName: name, Before: before})
	})
}

// splitTagName splits "TAG name" into a tag and an optional short name.
func splitTagName(s string) (tag, name string) {
	tag, name, _ = strings.Cut(strings.TrimSpace(s), " ")
	return tag, strings.TrimSpace(name)
}

func (u *UI) deleteNode() {
	snap, id, ok := u.treeReady()
	if !ok || id == arxml.InvalidNode {
		return
	}
	u.confirm(fmt.Sprintf("Delete %s?", snap.Tree.Label(id)), func() {
		u.apply(syncer.Delete{Node: id})
	})
}

func (u *UI) showInfo() {
	snap := u.app.Snapshot()
	info, err := snap.Tree.Info(snap.Outline.Selected())
	if err != nil {
		return
	}
	parts := []string{info.Kind.String(), info.QName}
	if info.DefinitionRef != "" {
		parts = append(parts, "def="+info.DefinitionRef)
	}
	if info.Value != "" {
		parts = append(parts, "value="+info.Value)
	}
	parts = append(parts, fmt.Sprintf("%d children", info.Children))
	u.info("%s", strings.Join(parts, "  "))
}
