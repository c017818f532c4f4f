package luaactions

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/sheetcontrols/internal/action"
	"github.com/dshills/sheetcontrols/internal/dom"
)

func (s *Script) installModules(L *lua.LState) {
	settings := L.NewTable()
	L.SetField(settings, "get", L.NewFunction(s.settingsGet))
	L.SetField(settings, "set", L.NewFunction(s.settingsSet))
	L.SetGlobal("settings", settings)

	log := L.NewTable()
	L.SetField(log, "debug", L.NewFunction(s.logFunc(s.logger.Debug)))
	L.SetField(log, "info", L.NewFunction(s.logFunc(s.logger.Info)))
	L.SetField(log, "warn", L.NewFunction(s.logFunc(s.logger.Warn)))
	L.SetGlobal("log", log)
}

// settings.get(group [, path]) returns the group value or the value at path.
func (s *Script) settingsGet(L *lua.LState) int {
	if s.store == nil {
		L.RaiseError("settings are not available")
		return 0
	}
	group := L.CheckString(1)
	path := L.OptString(2, "")

	var (
		v   any
		err error
	)
	if path == "" {
		v, err = s.store.Get(group)
	} else {
		v, err = s.store.Lookup(group, path)
	}
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(toLua(L, v))
	return 1
}

// settings.set(group, value) applies a partial update.
func (s *Script) settingsSet(L *lua.LState) int {
	if s.store == nil {
		L.RaiseError("settings are not available")
		return 0
	}
	group := L.CheckString(1)
	value := toGo(L.CheckAny(2))
	if err := s.store.SetFrom(s.name, group, value); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

func (s *Script) logFunc(fn func(string, ...any)) lua.LGFunction {
	return func(L *lua.LState) int {
		fn(L.CheckString(1), "script", s.name)
		return 0
	}
}

func eventTable(L *lua.LState, ev *dom.Event) *lua.LTable {
	t := L.NewTable()
	if ev == nil {
		return t
	}
	t.RawSetString("type", lua.LString(ev.Type))
	t.RawSetString("target", elementValue(L, ev.Target))
	t.RawSetString("prevented", lua.LBool(ev.DefaultPrevented()))
	return t
}

func contextTable(L *lua.LState, ctx *action.Context) *lua.LTable {
	t := L.NewTable()
	if ctx == nil {
		return t
	}
	t.RawSetString("path", lua.LString(ctx.Path))
	t.RawSetString("phase", lua.LString(ctx.Phase.String()))
	t.RawSetString("subject", lua.LString(ctx.Subject))
	if ctx.Surface != nil {
		t.RawSetString("surface", lua.LString(ctx.Surface.ID()))
	}
	t.RawSetString("control", elementValue(L, ctx.Control))
	t.RawSetString("item", elementValue(L, ctx.Item))
	t.RawSetString("primary", elementValue(L, ctx.Primary))
	return t
}

// elementValue wraps el as a table of methods bound to it. Methods are
// called with colon syntax, so argument 1 is the table itself.
func elementValue(L *lua.LState, el *dom.Element) lua.LValue {
	if el == nil {
		return lua.LNil
	}
	t := L.NewTable()
	t.RawSetString("tag", lua.LString(el.Tag()))
	t.RawSetString("id", lua.LString(el.ID()))

	method := func(name string, fn lua.LGFunction) {
		t.RawSetString(name, L.NewFunction(fn))
	}
	method("attr", func(L *lua.LState) int {
		v, ok := el.Attr(L.CheckString(2))
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LString(v))
		return 1
	})
	method("set_attr", func(L *lua.LState) int {
		el.SetAttr(L.CheckString(2), L.CheckString(3))
		return 0
	})
	method("has_class", func(L *lua.LState) int {
		L.Push(lua.LBool(el.HasClass(L.CheckString(2))))
		return 1
	})
	method("add_class", func(L *lua.LState) int {
		el.AddClass(L.CheckString(2))
		return 0
	})
	method("remove_class", func(L *lua.LState) int {
		el.RemoveClass(L.CheckString(2))
		return 0
	})
	method("toggle_class", func(L *lua.LState) int {
		L.Push(lua.LBool(el.ToggleClass(L.CheckString(2))))
		return 1
	})
	method("value", func(L *lua.LState) int {
		L.Push(lua.LString(el.Value))
		return 1
	})
	method("text", func(L *lua.LState) int {
		L.Push(lua.LString(el.Text()))
		return 1
	})
	method("set_text", func(L *lua.LState) int {
		el.SetText(L.CheckString(2))
		return 0
	})
	return t
}
