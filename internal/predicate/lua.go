package predicate

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// DefaultLuaTimeout bounds a single Lua evaluation.
const DefaultLuaTimeout = 50 * time.Millisecond

// Lua evaluates predicates written as Lua expressions, e.g.
//
//	entity.components["core:key"] ~= nil and entity.id ~= actor.id
//
// Each evaluation runs on a pooled, sandboxed state in a fresh global
// environment: the bound names plus read-only views of the safe libraries.
// Globals a predicate assigns are dropped with that environment.
type Lua struct {
	timeout time.Duration
	states  chan *sandbox

	mu     sync.RWMutex
	protos map[string]*lua.FunctionProto
}

// NewLua creates a Lua evaluator.
func NewLua() *Lua {
	return &Lua{
		timeout: DefaultLuaTimeout,
		states:  make(chan *sandbox, runtime.GOMAXPROCS(0)),
		protos:  make(map[string]*lua.FunctionProto),
	}
}

// Close releases the pooled states.
func (l *Lua) Close() {
	for {
		select {
		case sb := <-l.states:
			sb.L.Close()
		default:
			return
		}
	}
}

// Check compiles a predicate without evaluating it.
func (l *Lua) Check(predicate string) error {
	_, err := l.proto(predicate)
	return err
}

// Evaluate runs the predicate. Only a boolean true result counts as true.
func (l *Lua) Evaluate(predicate string, env Env) (bool, error) {
	proto, err := l.proto(predicate)
	if err != nil {
		return false, err
	}
	sb := l.get()
	L := sb.L

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	L.SetContext(ctx)

	globals := L.NewTable()
	for name, v := range env {
		globals.RawSetString(name, toLua(L, v))
	}
	mt := L.NewTable()
	mt.RawSetString("__index", sb.base)
	L.SetMetatable(globals, mt)

	fn := L.NewFunctionFromProto(proto)
	fn.Env = globals
	L.Push(fn)
	err = L.PCall(0, 1, nil)
	L.RemoveContext()
	if err != nil {
		// A state interrupted mid-call is not reused.
		L.Close()
		return false, fmt.Errorf("lua eval error: %w", err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	l.put(sb)
	b, ok := ret.(lua.LBool)
	if !ok {
		return false, fmt.Errorf("lua predicate returned %s, not boolean", ret.Type())
	}
	return bool(b), nil
}

func (l *Lua) proto(predicate string) (*lua.FunctionProto, error) {
	l.mu.RLock()
	p, ok := l.protos[predicate]
	l.mu.RUnlock()
	if ok {
		return p, nil
	}
	chunk, err := parse.Parse(strings.NewReader("return "+predicate), "predicate")
	if err != nil {
		return nil, fmt.Errorf("lua compile error: %w", err)
	}
	p, err = lua.Compile(chunk, "predicate")
	if err != nil {
		return nil, fmt.Errorf("lua compile error: %w", err)
	}
	l.mu.Lock()
	l.protos[predicate] = p
	l.mu.Unlock()
	return p, nil
}

// sandbox is a pooled state and the read-only globals predicates see.
type sandbox struct {
	L    *lua.LState
	base *lua.LTable
}

func (l *Lua) get() *sandbox {
	select {
	case sb := <-l.states:
		return sb
	default:
		return newSandbox()
	}
}

func (l *Lua) put(sb *sandbox) {
	select {
	case l.states <- sb:
	default:
		sb.L.Close()
	}
}

// newSandbox opens only the safe subset of the standard libraries, without
// the loaders and raw accessors of the base library, and exposes them
// through read-only proxies.
func newSandbox() *sandbox {
	L := lua.NewState(lua.Options{SkipOpenLibs: true, CallStackSize: 64})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage", "print", "require", "module",
		"setfenv", "getfenv", "setmetatable", "getmetatable",
		"_G",
	} {
		L.SetGlobal(name, lua.LNil)
	}
	if tbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		tbl.RawSetString("randomseed", lua.LNil)
	}

	base := L.NewTable()
	L.G.Global.ForEach(func(k, v lua.LValue) {
		if tbl, ok := v.(*lua.LTable); ok {
			v = readOnly(L, tbl)
		}
		base.RawSet(k, v)
	})
	return &sandbox{L: L, base: readOnly(L, base)}
}

// readOnly returns an empty proxy reading through to tbl and refusing
// writes.
func readOnly(L *lua.LState, tbl *lua.LTable) *lua.LTable {
	proxy := L.NewTable()
	mt := L.NewTable()
	mt.RawSetString("__index", tbl)
	mt.RawSetString("__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("attempt to modify a read-only table")
		return 0
	}))
	mt.RawSetString("__metatable", lua.LFalse)
	L.SetMetatable(proxy, mt)
	return proxy
}

func toLua(L *lua.LState, v any) lua.LValue {
	switch t := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(t)
	case string:
		return lua.LString(t)
	case int:
		return lua.LNumber(t)
	case int64:
		return lua.LNumber(t)
	case float64:
		return lua.LNumber(t)
	case map[string]any:
		tbl := L.NewTable()
		for k, val := range t {
			tbl.RawSetString(k, toLua(L, val))
		}
		return tbl
	case []any:
		tbl := L.NewTable()
		for i, val := range t {
			tbl.RawSetInt(i+1, toLua(L, val))
		}
		return tbl
	case []string:
		tbl := L.NewTable()
		for i, val := range t {
			tbl.RawSetInt(i+1, lua.LString(val))
		}
		return tbl
	}
	return lua.LString(fmt.Sprint(v))
}
