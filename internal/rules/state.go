package rules

import (
	"context"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/ecucedit/internal/logging"
)

// removedGlobals are base functions that could load code from disk or
// escape the environment.
var removedGlobals = []string{
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"require",
	"module",
	"getfenv",
	"setfenv",
	"collectgarbage",
}

// state is a sandboxed Lua state used for one script run.
//
// gopher-lua's LState is not goroutine-safe; a state is created, used and
// closed by a single Run call.
type state struct {
	L   *lua.LState
	log *logging.Logger
}

func newState(ctx context.Context, log *logging.Logger) *state {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)
	for _, name := range removedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	s := &state{L: L, log: log}
	L.SetGlobal("print", L.NewFunction(s.print))
	L.SetContext(ctx)
	return s
}

// openSafeLibraries opens base, table, string and math. io, os, debug,
// package and channel stay closed.
func openSafeLibraries(L *lua.LState) {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
}

// print sends script output to the debug log.
func (s *state) print(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	s.log.Debug("lua: %s", strings.Join(parts, "\t"))
	return 0
}

// doString runs code with panic recovery.
func (s *state) doString(code string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return s.L.DoString(code)
}

// call calls the global function fn with args, discarding results.
func (s *state) call(fn string, args ...lua.LValue) (err error) {
	v := s.L.GetGlobal(fn)
	if v.Type() != lua.LTFunction {
		return ErrNoValidate
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return s.L.CallByParam(lua.P{Fn: v, NRet: 0, Protect: true}, args...)
}

func (s *state) close() {
	s.L.Close()
}
