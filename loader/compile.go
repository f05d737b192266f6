package loader

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/qdcore/engine/condition"
	"github.com/nathoo/qdcore/types"
)

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	if s, ok := tbl.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	if b, ok := tbl.RawGetString(key).(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getNumber returns a numeric field from a Lua table, or def if missing.
func getNumber(tbl *lua.LTable, key string, def float64) float64 {
	if n, ok := tbl.RawGetString(key).(lua.LNumber); ok {
		return float64(n)
	}
	return def
}

func getInt(tbl *lua.LTable, key string) int {
	return int(getNumber(tbl, key, 0))
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	if t, ok := tbl.RawGetString(key).(*lua.LTable); ok {
		return t
	}
	return nil
}

// numberList reads the array part of a table as floats.
func numberList(tbl *lua.LTable) []float64 {
	if tbl == nil {
		return nil
	}
	var out []float64
	for i := 1; i <= tbl.Len(); i++ {
		if n, ok := tbl.RawGetInt(i).(lua.LNumber); ok {
			out = append(out, float64(n))
		}
	}
	return out
}

func stringList(tbl *lua.LTable) []string {
	if tbl == nil {
		return nil
	}
	var out []string
	for i := 1; i <= tbl.Len(); i++ {
		if s, ok := tbl.RawGetInt(i).(lua.LString); ok {
			out = append(out, string(s))
		}
	}
	return out
}

func vec2(tbl *lua.LTable, key string) [2]float64 {
	var v [2]float64
	copy(v[:], numberList(getTable(tbl, key)))
	return v
}

func vec2i(tbl *lua.LTable, key string) [2]int {
	var v [2]int
	for i, f := range numberList(getTable(tbl, key)) {
		if i < 2 {
			v[i] = int(f)
		}
	}
	return v
}

func vec3(tbl *lua.LTable, key string) [3]float64 {
	var v [3]float64
	copy(v[:], numberList(getTable(tbl, key)))
	return v
}

// items returns the tables of the array part of tbl[key]. Any other value
// is an error.
func items(tbl *lua.LTable, key string) ([]*lua.LTable, error) {
	lst := getTable(tbl, key)
	if lst == nil {
		return nil, nil
	}
	var out []*lua.LTable
	for i := 1; i <= lst.Len(); i++ {
		t, ok := lst.RawGetInt(i).(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("%s[%d] is a %s, not a table", key, i, lst.RawGetInt(i).Type())
		}
		out = append(out, t)
	}
	return out, nil
}

// nameOf reads the name stamped by a curried constructor.
func nameOf(tbl *lua.LTable, key string, i int) (string, error) {
	name := getString(tbl, keyName)
	if name == "" {
		return "", fmt.Errorf("%s[%d] was not made by a constructor", key, i+1)
	}
	return name, nil
}

// compile converts all collected Lua data into a GameDef.
func compile(coll *collector) (*types.GameDef, error) {
	if coll.game == nil {
		return nil, fmt.Errorf("no Game{} definition found")
	}
	defs := &types.GameDef{
		Title:      getString(coll.game, "title"),
		Author:     getString(coll.game, "author"),
		StartScene: getString(coll.game, "start"),
	}

	globals, err := compileObjects(coll.game, "globals")
	if err != nil {
		return nil, fmt.Errorf("compiling globals: %w", err)
	}
	defs.Globals = globals

	for _, raw := range coll.scenes {
		s, err := compileScene(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling scene %s: %w", raw.name, err)
		}
		defs.Scenes = append(defs.Scenes, s)
	}
	for _, raw := range coll.counters {
		c, err := compileCounter(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling counter %s: %w", raw.name, err)
		}
		defs.Counters = append(defs.Counters, c)
	}
	for _, raw := range coll.chains {
		ch, err := compileChain(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling chain %s: %w", raw.name, err)
		}
		defs.Chains = append(defs.Chains, ch)
	}
	return defs, nil
}

func compileScene(raw rawNamed) (types.SceneDef, error) {
	tbl := raw.table
	s := types.SceneDef{
		Name:        raw.name,
		GridSize:    vec2i(tbl, "grid"),
		CellSize:    getNumber(tbl, "cell", 0),
		ScreenSize:  vec2i(tbl, "screen"),
		Camera:      vec2(tbl, "camera"),
		CameraMode:  getString(tbl, "camera_mode"),
		CameraSpeed: getNumber(tbl, "camera_speed", 0),
		Flags:       stringList(getTable(tbl, "flags")),
		SourceOrder: raw.order,
	}

	objects, err := compileObjects(tbl, "objects")
	if err != nil {
		return s, err
	}
	s.Objects = objects

	zones, err := items(tbl, "zones")
	if err != nil {
		return s, err
	}
	for i, zt := range zones {
		name, err := nameOf(zt, "zones", i)
		if err != nil {
			return s, err
		}
		s.Zones = append(s.Zones, types.ZoneDef{
			Name:        name,
			Min:         vec2i(zt, "min"),
			Max:         vec2i(zt, "max"),
			On:          getBool(zt, "on", true),
			Shadow:      getBool(zt, "shadow", false),
			ShadowColor: uint32(getNumber(zt, "shadow_color", 0)),
			ShadowAlpha: getInt(zt, "shadow_alpha"),
		})
	}

	music, err := items(tbl, "music")
	if err != nil {
		return s, err
	}
	for i, mt := range music {
		name, err := nameOf(mt, "music", i)
		if err != nil {
			return s, err
		}
		s.Music = append(s.Music, types.MusicDef{
			Name:   name,
			Cycled: getBool(mt, "cycled", false),
			Volume: getInt(mt, "volume"),
		})
	}

	acts, err := items(tbl, "activations")
	if err != nil {
		return s, err
	}
	for i, at := range acts {
		conds, err := compileConditions(at)
		if err != nil {
			return s, fmt.Errorf("activation %d: %w", i+1, err)
		}
		s.Activations = append(s.Activations, types.ActivationDef{
			Object:     getString(at, "object"),
			State:      getString(at, "state"),
			Mode:       getString(at, "mode"),
			Conditions: conds,
		})
	}
	return s, nil
}

func compileObjects(tbl *lua.LTable, key string) ([]types.ObjectDef, error) {
	objs, err := items(tbl, key)
	if err != nil {
		return nil, err
	}
	var out []types.ObjectDef
	for i, ot := range objs {
		name, err := nameOf(ot, key, i)
		if err != nil {
			return nil, err
		}
		o, err := compileObject(name, ot)
		if err != nil {
			return nil, fmt.Errorf("object %s: %w", name, err)
		}
		out = append(out, o)
	}
	return out, nil
}

func compileObject(name string, tbl *lua.LTable) (types.ObjectDef, error) {
	o := types.ObjectDef{
		Name:         name,
		Kind:         getString(tbl, keyKind),
		Pos:          vec3(tbl, "pos"),
		Bound:        vec3(tbl, "bound"),
		Flags:        stringList(getTable(tbl, "flags")),
		InitialState: getString(tbl, "initial"),
	}

	states, err := items(tbl, "states")
	if err != nil {
		return o, err
	}
	for i, st := range states {
		sname, err := nameOf(st, "states", i)
		if err != nil {
			return o, err
		}
		sd := types.StateDef{
			Name:     sname,
			Duration: getNumber(st, "duration", 0),
			Hidden:   getBool(st, "hidden", false),
			Walk:     getBool(st, "walk", false),
		}
		if getTable(st, "walk_to") != nil {
			v := vec3(st, "walk_to")
			sd.WalkTo = &v
		}
		o.States = append(o.States, sd)
	}

	if mt := getTable(tbl, "movement"); mt != nil {
		o.Movement = &types.MovementDef{
			Speed:           getNumber(mt, "speed", 0),
			CollisionRadius: getNumber(mt, "collision_radius", 0),
			FollowMinRadius: getNumber(mt, "follow_min_radius", 0),
			Directions:      getInt(mt, "directions"),
			WalkSize:        vec2i(mt, "walk_size"),
			Direction:       getNumber(mt, "direction", 0),
			Controls:        stringList(getTable(mt, "controls")),
			AttachTo:        getString(mt, "attach_to"),
			AttachShift:     vec2(mt, "attach_shift"),
		}
	}
	return o, nil
}

func compileCounter(raw rawNamed) (types.CounterDef, error) {
	tbl := raw.table
	c := types.CounterDef{
		Name:         raw.name,
		Limit:        getInt(tbl, "limit"),
		Positive:     getBool(tbl, "positive", false),
		TriggerDelta: getInt(tbl, "trigger_delta"),
	}
	els, err := items(tbl, "elements")
	if err != nil {
		return c, err
	}
	for _, et := range els {
		c.Elements = append(c.Elements, types.CounterElementDef{
			State:     getString(et, "state"),
			Increment: getBool(et, "increment", true),
		})
	}
	return c, nil
}

// compileChain sorts the parts of a chain table into elements and links.
func compileChain(raw rawNamed) (types.ChainDef, error) {
	tbl := raw.table
	ch := types.ChainDef{Name: raw.name, SourceOrder: raw.order}
	for i := 1; i <= tbl.Len(); i++ {
		pt, ok := tbl.RawGetInt(i).(*lua.LTable)
		if !ok {
			return ch, fmt.Errorf("part %d is not an Element or a Link", i)
		}
		switch getString(pt, keyPart) {
		case "element":
			conds, err := compileConditions(pt)
			if err != nil {
				return ch, fmt.Errorf("element %d: %w", getInt(pt, "id"), err)
			}
			ch.Elements = append(ch.Elements, types.ElementDef{
				ID:         getInt(pt, "id"),
				Ref:        getString(pt, "ref"),
				Conditions: conds,
			})
		case "link":
			ch.Links = append(ch.Links, types.LinkDef{
				From:        getInt(pt, "from"),
				To:          getInt(pt, "to"),
				Type:        getInt(pt, "type"),
				AutoRestart: getBool(pt, "auto_restart", false),
			})
		default:
			return ch, fmt.Errorf("part %d is not an Element or a Link", i)
		}
	}
	return ch, nil
}

func compileConditions(tbl *lua.LTable) ([]types.ConditionDef, error) {
	conds, err := items(tbl, "conditions")
	if err != nil {
		return nil, err
	}
	var out []types.ConditionDef
	for i, ct := range conds {
		kind := getString(ct, keyCond)
		if kind == "" {
			return nil, fmt.Errorf("conditions[%d] was not made by a condition helper", i+1)
		}
		out = append(out, compileCondition(kind, ct))
	}
	return out, nil
}

func compileCondition(kind string, tbl *lua.LTable) types.ConditionDef {
	d := types.ConditionDef{
		Kind:     kind,
		Inversed: getBool(tbl, "inversed", false),
		LinkType: int(getNumber(tbl, "link_type", condition.Internal)),
		Strings:  stringList(getTable(tbl, "strings")),
		Objects:  stringList(getTable(tbl, "objects")),
	}
	// Slot values are lists; a bare number is a one-value list.
	if vals := getTable(tbl, "ints"); vals != nil {
		for i := 1; i <= vals.Len(); i++ {
			var entry []int
			switch v := vals.RawGetInt(i).(type) {
			case lua.LNumber:
				entry = []int{int(v)}
			case *lua.LTable:
				for _, f := range numberList(v) {
					entry = append(entry, int(f))
				}
			}
			d.Ints = append(d.Ints, entry)
		}
	}
	if vals := getTable(tbl, "floats"); vals != nil {
		for i := 1; i <= vals.Len(); i++ {
			var entry []float64
			switch v := vals.RawGetInt(i).(type) {
			case lua.LNumber:
				entry = []float64{float64(v)}
			case *lua.LTable:
				entry = numberList(v)
			}
			d.Floats = append(d.Floats, entry)
		}
	}
	return d
}
