// Package rules runs user validation rules written in Lua against the
// extracted parameters of a document.
//
// A rule script defines a global function validate(containers). containers
// maps each container name to a table with the fields name, parent,
// definition_ref, params (parameter name to boolean, number or string) and
// kinds (parameter name to "boolean", "numeric", "text" or "enumeration").
// The script reports problems with report(severity, message[, container[,
// param]]), severity being "info", "warning" or "error".
//
// Scripts run in a sandbox without io, os, debug or module loading.
package rules

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/dshills/ecucedit/internal/arxml"
	"github.com/dshills/ecucedit/internal/extract"
	"github.com/dshills/ecucedit/internal/logging"
)

// DefaultTimeout bounds a single script run.
const DefaultTimeout = 5 * time.Second

var (
	// ErrNoValidate is returned when a script defines no validate function.
	ErrNoValidate = errors.New("rules: script defines no validate function")

	// ErrTimeout is returned when a script runs past its timeout.
	ErrTimeout = errors.New("rules: script timed out")
)

// ScriptError wraps a failure of one script.
type ScriptError struct {
	Script string
	Err    error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("rule %s: %v", e.Script, e.Err)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

// Finding is one result reported by a script.
type Finding struct {
	Script    string
	Severity  arxml.Severity
	Message   string
	Container string
	Param     string
}

func (f Finding) String() string {
	where := f.Container
	if f.Param != "" {
		where += "." + f.Param
	}
	if where != "" {
		return fmt.Sprintf("[%s] %s: %s", f.Script, where, f.Message)
	}
	return fmt.Sprintf("[%s] %s", f.Script, f.Message)
}

type script struct {
	name   string
	source string
}

// Engine holds compiled-checked rule scripts.
type Engine struct {
	scripts []script
	timeout time.Duration
	log     *logging.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets the per-script timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the logger. Script print output goes to its debug level.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// New creates an engine without scripts.
func New(opts ...Option) *Engine {
	e := &Engine{timeout: DefaultTimeout, log: logging.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Add registers a script after checking its syntax.
func (e *Engine) Add(name, source string) error {
	if _, err := parse.Parse(strings.NewReader(source), name); err != nil {
		return &ScriptError{Script: name, Err: err}
	}
	e.scripts = append(e.scripts, script{name: name, source: source})
	return nil
}

// Load reads and adds a script file. The script is named by its base name.
func (e *Engine) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	return e.Add(filepath.Base(path), string(data))
}

// Len returns the number of scripts.
func (e *Engine) Len() int {
	return len(e.scripts)
}

// Run executes every script against cfg in order. A failing script stops
// the run; findings of earlier scripts are returned with the error.
func (e *Engine) Run(ctx context.Context, cfg *extract.Config) ([]Finding, error) {
	var all []Finding
	for _, sc := range e.scripts {
		found, err := e.run(ctx, sc, cfg)
		all = append(all, found...)
		if err != nil {
			return all, err
		}
		e.log.Debug("rule %s: %d findings", sc.name, len(found))
	}
	return all, nil
}

func (e *Engine) run(ctx context.Context, sc script, cfg *extract.Config) ([]Finding, error) {
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	st := newState(runCtx, e.log.WithField("rule", sc.name))
	defer st.close()

	var found []Finding
	st.L.SetGlobal("report", st.L.NewFunction(func(L *lua.LState) int {
		sev, ok := parseSeverity(L.CheckString(1))
		if !ok {
			L.ArgError(1, "severity must be info, warning or error")
			return 0
		}
		found = append(found, Finding{
			Script:    sc.name,
			Severity:  sev,
			Message:   L.CheckString(2),
			Container: L.OptString(3, ""),
			Param:     L.OptString(4, ""),
		})
		return 0
	}))

	err := st.doString(sc.source)
	if err == nil {
		err = st.call("validate", containersTable(st.L, cfg))
	}
	if err != nil {
		if runCtx.Err() != nil && ctx.Err() == nil {
			err = ErrTimeout
		}
		return found, &ScriptError{Script: sc.name, Err: err}
	}
	return found, nil
}

// Report appends findings to r, attaching each to its container node when
// the container exists in cfg.
func Report(r *arxml.Report, cfg *extract.Config, findings []Finding) {
	for _, f := range findings {
		node := arxml.InvalidNode
		if c, ok := cfg.Container(f.Container); ok {
			node = c.Node
			if p, ok := c.Params.Param(f.Param); ok {
				node = p.Node
			}
		}
		r.Add(f.Severity, node, "%s", f.String())
	}
}

func parseSeverity(s string) (arxml.Severity, bool) {
	switch strings.ToLower(s) {
	case "info":
		return arxml.SeverityInfo, true
	case "warning", "warn":
		return arxml.SeverityWarning, true
	case "error":
		return arxml.SeverityError, true
	}
	return 0, false
}

// containersTable converts cfg for Lua. A repeated container name keeps
// the first container.
func containersTable(L *lua.LState, cfg *extract.Config) *lua.LTable {
	out := L.NewTable()
	for _, c := range cfg.Containers {
		if out.RawGetString(c.Name) != lua.LNil {
			continue
		}
		ct := L.NewTable()
		ct.RawSetString("name", lua.LString(c.Name))
		ct.RawSetString("parent", lua.LString(c.Parent))
		ct.RawSetString("definition_ref", lua.LString(c.DefinitionRef))
		params := L.NewTable()
		kinds := L.NewTable()
		for _, p := range c.Params.All() {
			params.RawSetString(p.Name, luaValue(p.Value))
			kinds.RawSetString(p.Name, lua.LString(p.Value.Kind.String()))
		}
		ct.RawSetString("params", params)
		ct.RawSetString("kinds", kinds)
		out.RawSetString(c.Name, ct)
	}
	return out
}

func luaValue(v extract.Value) lua.LValue {
	switch v.Kind {
	case extract.KindBoolean:
		return lua.LBool(v.Bool)
	case extract.KindNumeric:
		if v.IsFloat {
			return lua.LNumber(v.Float)
		}
		return lua.LNumber(v.Int)
	default:
		return lua.LString(v.Text)
	}
}
