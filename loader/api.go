package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// Markers the constructors leave in the tables they return.
const (
	keyKind = "__kind"
	keyName = "__name"
	keyPart = "__part"
	keyCond = "__cond"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerChainParts(L)
	registerConditionHelpers(L)
}

// curried returns a Lua function taking a name and returning a function
// that takes the definition table: Scene "hall" { ... }.
func curried(L *lua.LState, fn func(L *lua.LState, name string, tbl *lua.LTable) int) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			return fn(L, name, L.CheckTable(1))
		}))
		return 1
	})
}

// tagged returns the definition table marked with its name and kind.
func tagged(kind string) func(L *lua.LState, name string, tbl *lua.LTable) int {
	return func(L *lua.LState, name string, tbl *lua.LTable) int {
		tbl.RawSetString(keyName, lua.LString(name))
		if kind != "" {
			tbl.RawSetString(keyKind, lua.LString(kind))
		}
		L.Push(tbl)
		return 1
	}
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Game { title = "...", start = "...", globals = { ... } }
	L.SetGlobal("Game", L.NewFunction(func(L *lua.LState) int {
		coll.game = L.CheckTable(1)
		return 0
	}))

	L.SetGlobal("Scene", curried(L, func(L *lua.LState, name string, tbl *lua.LTable) int {
		coll.scenes = append(coll.scenes, rawNamed{name: name, table: tbl, order: coll.nextSourceOrder()})
		return 0
	}))
	L.SetGlobal("Counter", curried(L, func(L *lua.LState, name string, tbl *lua.LTable) int {
		coll.counters = append(coll.counters, rawNamed{name: name, table: tbl})
		return 0
	}))
	L.SetGlobal("Chain", curried(L, func(L *lua.LState, name string, tbl *lua.LTable) int {
		coll.chains = append(coll.chains, rawNamed{name: name, table: tbl, order: coll.nextSourceOrder()})
		return 0
	}))

	// Objects and their parts are values placed into a scene or the game.
	L.SetGlobal("Static", curried(L, tagged("static")))
	L.SetGlobal("Animated", curried(L, tagged("animated")))
	L.SetGlobal("Personage", curried(L, tagged("personage")))
	L.SetGlobal("Mouse", curried(L, tagged("mouse")))
	L.SetGlobal("State", curried(L, tagged("")))
	L.SetGlobal("Zone", curried(L, tagged("")))
	L.SetGlobal("Music", curried(L, tagged("")))
}

func registerChainParts(L *lua.LState) {
	// Element(id, "scene:object:state", { conditions })
	L.SetGlobal("Element", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString(keyPart, lua.LString("element"))
		tbl.RawSetString("id", L.CheckNumber(1))
		tbl.RawSetString("ref", lua.LString(L.CheckString(2)))
		if conds := L.OptTable(3, nil); conds != nil {
			tbl.RawSetString("conditions", conds)
		}
		L.Push(tbl)
		return 1
	}))

	// Link(from, to, { type = n, auto_restart = bool })
	L.SetGlobal("Link", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString(keyPart, lua.LString("link"))
		tbl.RawSetString("from", L.CheckNumber(1))
		tbl.RawSetString("to", L.CheckNumber(2))
		if opts := L.OptTable(3, nil); opts != nil {
			tbl.RawSetString("type", opts.RawGetString("type"))
			tbl.RawSetString("auto_restart", opts.RawGetString("auto_restart"))
		}
		L.Push(tbl)
		return 1
	}))
}

// newCond builds a condition table. Missing link_type means the condition
// gates every activation.
func newCond(L *lua.LState, kind string) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString(keyCond, lua.LString(kind))
	return tbl
}

func list(L *lua.LState, vs ...lua.LValue) *lua.LTable {
	t := L.NewTable()
	for _, v := range vs {
		t.Append(v)
	}
	return t
}

func registerConditionHelpers(L *lua.LState) {
	// Cond("KIND", { strings = {...}, ints = {...}, floats = {...}, objects = {...},
	//                inversed = bool, link_type = n })
	L.SetGlobal("Cond", L.NewFunction(func(L *lua.LState) int {
		tbl := newCond(L, L.CheckString(1))
		if opts := L.OptTable(2, nil); opts != nil {
			for _, k := range []string{"strings", "ints", "floats", "objects", "inversed", "link_type"} {
				tbl.RawSetString(k, opts.RawGetString(k))
			}
		}
		L.Push(tbl)
		return 1
	}))

	simple := func(name, kind string) {
		L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
			L.Push(newCond(L, kind))
			return 1
		}))
	}
	simple("True", "TRUE")
	simple("False", "FALSE")
	simple("ClickFailed", "MOUSE_CLICK_FAILED")

	// Timer(period, chance)
	L.SetGlobal("Timer", L.NewFunction(func(L *lua.LState) int {
		tbl := newCond(L, "TIMER")
		tbl.RawSetString("floats", list(L, list(L, L.CheckNumber(1))))
		tbl.RawSetString("ints", list(L, list(L, L.OptNumber(2, 0))))
		L.Push(tbl)
		return 1
	}))

	// Name-based object conditions: ObjectState("door", "open").
	byNames := func(name, kind string, n int) {
		L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
			tbl := newCond(L, kind)
			strs := L.NewTable()
			for i := 1; i <= n; i++ {
				strs.Append(lua.LString(L.CheckString(i)))
			}
			tbl.RawSetString("strings", strs)
			L.Push(tbl)
			return 1
		}))
	}
	byNames("ObjectState", "OBJECT_STATE", 2)
	byNames("NotInState", "OBJECT_NOT_IN_STATE", 2)
	byNames("WasActivated", "OBJECT_STATE_WAS_ACTIVATED", 2)
	byNames("MouseClick", "MOUSE_CLICK", 1)
	byNames("MouseObjectClick", "MOUSE_OBJECT_CLICK", 2)
	byNames("InZone", "OBJECT_IN_ZONE", 2)
	byNames("PersonageActive", "PERSONAGE_ACTIVE", 1)

	// Distance("a", "b", d)
	L.SetGlobal("Distance", L.NewFunction(func(L *lua.LState) int {
		tbl := newCond(L, "OBJECTS_DISTANCE")
		tbl.RawSetString("strings", list(L, lua.LString(L.CheckString(1)), lua.LString(L.CheckString(2))))
		tbl.RawSetString("floats", list(L, list(L, L.CheckNumber(3))))
		L.Push(tbl)
		return 1
	}))

	// Keypress(code)
	L.SetGlobal("Keypress", L.NewFunction(func(L *lua.LState) int {
		tbl := newCond(L, "KEYPRESS")
		tbl.RawSetString("ints", list(L, list(L, L.CheckNumber(1))))
		L.Push(tbl)
		return 1
	}))

	// Counter conditions reference the counter by path.
	counterCond := func(name, kind string, nvals int) {
		L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
			tbl := newCond(L, kind)
			tbl.RawSetString("objects", list(L, lua.LString(L.CheckString(1))))
			vals := L.NewTable()
			for i := 0; i < nvals; i++ {
				vals.Append(L.CheckNumber(2 + i))
			}
			tbl.RawSetString("ints", list(L, vals))
			L.Push(tbl)
			return 1
		}))
	}
	counterCond("CounterGreater", "COUNTER_GREATER_THAN_VALUE", 1)
	counterCond("CounterLess", "COUNTER_LESS_THAN_VALUE", 1)
	counterCond("CounterBetween", "COUNTER_IN_INTERVAL", 2)

	// Not(cond) flips the inversion of a copy of cond.
	L.SetGlobal("Not", L.NewFunction(func(L *lua.LState) int {
		inner := L.CheckTable(1)
		tbl := L.NewTable()
		inner.ForEach(func(k, v lua.LValue) { tbl.RawSet(k, v) })
		tbl.RawSetString("inversed", lua.LBool(!lua.LVAsBool(inner.RawGetString("inversed"))))
		L.Push(tbl)
		return 1
	}))

	// OnLink(type, cond) ties a copy of cond to parent links of that type.
	L.SetGlobal("OnLink", L.NewFunction(func(L *lua.LState) int {
		typ := L.CheckNumber(1)
		inner := L.CheckTable(2)
		tbl := L.NewTable()
		inner.ForEach(func(k, v lua.LValue) { tbl.RawSet(k, v) })
		tbl.RawSetString("link_type", typ)
		L.Push(tbl)
		return 1
	}))
}
