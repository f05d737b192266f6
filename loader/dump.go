package loader

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/nathoo/qdcore/engine/condition"
	"github.com/nathoo/qdcore/types"
)

// Dump writes defs as a script that loads back into the same definitions.
// Conditions are always written with the generic Cond constructor.
func Dump(w io.Writer, defs *types.GameDef) error {
	d := &dumper{}

	d.line(0, "Game {")
	d.field(1, "title", quote(defs.Title))
	d.field(1, "author", quote(defs.Author))
	d.field(1, "start", quote(defs.StartScene))
	if len(defs.Globals) > 0 {
		d.line(1, "globals = {")
		for _, o := range defs.Globals {
			d.object(2, o)
		}
		d.line(1, "},")
	}
	d.line(0, "}")

	// Scenes and chains in the order they were declared.
	type decl struct {
		order int
		emit  func()
	}
	var decls []decl
	for _, s := range defs.Scenes {
		decls = append(decls, decl{s.SourceOrder, func() { d.scene(s) }})
	}
	for _, ch := range defs.Chains {
		decls = append(decls, decl{ch.SourceOrder, func() { d.chain(ch) }})
	}
	sort.SliceStable(decls, func(i, j int) bool { return decls[i].order < decls[j].order })
	for _, dc := range decls {
		d.b.WriteString("\n")
		dc.emit()
	}
	for _, c := range defs.Counters {
		d.b.WriteString("\n")
		d.counter(c)
	}

	_, err := io.WriteString(w, d.b.String())
	return err
}

type dumper struct {
	b strings.Builder
}

func (d *dumper) line(depth int, s string) {
	d.b.WriteString(strings.Repeat("  ", depth))
	d.b.WriteString(s)
	d.b.WriteString("\n")
}

// field writes key = value, skipping empty values.
func (d *dumper) field(depth int, key, value string) {
	if value == "" || value == `""` || value == "0" || value == "{}" || value == "false" {
		return
	}
	d.line(depth, key+" = "+value+",")
}

func (d *dumper) scene(s types.SceneDef) {
	d.line(0, fmt.Sprintf("Scene %s {", quote(s.Name)))
	d.field(1, "grid", ints(s.GridSize[:]))
	d.field(1, "cell", num(s.CellSize))
	d.field(1, "screen", ints(s.ScreenSize[:]))
	d.field(1, "camera", nums(s.Camera[:]))
	d.field(1, "camera_mode", quote(s.CameraMode))
	d.field(1, "camera_speed", num(s.CameraSpeed))
	d.field(1, "flags", strs(s.Flags))
	if len(s.Objects) > 0 {
		d.line(1, "objects = {")
		for _, o := range s.Objects {
			d.object(2, o)
		}
		d.line(1, "},")
	}
	if len(s.Zones) > 0 {
		d.line(1, "zones = {")
		for _, z := range s.Zones {
			d.line(2, fmt.Sprintf("Zone %s {", quote(z.Name)))
			d.field(3, "min", ints(z.Min[:]))
			d.field(3, "max", ints(z.Max[:]))
			if !z.On {
				d.line(3, "on = false,")
			}
			d.field(3, "shadow", strconv.FormatBool(z.Shadow))
			d.field(3, "shadow_color", strconv.FormatUint(uint64(z.ShadowColor), 10))
			d.field(3, "shadow_alpha", strconv.Itoa(z.ShadowAlpha))
			d.line(2, "},")
		}
		d.line(1, "},")
	}
	if len(s.Music) > 0 {
		d.line(1, "music = {")
		for _, m := range s.Music {
			d.line(2, fmt.Sprintf("Music %s {", quote(m.Name)))
			d.field(3, "cycled", strconv.FormatBool(m.Cycled))
			d.field(3, "volume", strconv.Itoa(m.Volume))
			d.line(2, "},")
		}
		d.line(1, "},")
	}
	if len(s.Activations) > 0 {
		d.line(1, "activations = {")
		for _, a := range s.Activations {
			d.line(2, "{")
			d.field(3, "object", quote(a.Object))
			d.field(3, "state", quote(a.State))
			d.field(3, "mode", quote(a.Mode))
			d.conditions(3, a.Conditions)
			d.line(2, "},")
		}
		d.line(1, "},")
	}
	d.line(0, "}")
}

var constructors = map[string]string{
	"static":    "Static",
	"animated":  "Animated",
	"personage": "Personage",
	"mouse":     "Mouse",
}

func (d *dumper) object(depth int, o types.ObjectDef) {
	ctor, ok := constructors[o.Kind]
	if !ok {
		ctor = "Static"
	}
	d.line(depth, fmt.Sprintf("%s %s {", ctor, quote(o.Name)))
	d.field(depth+1, "pos", nums(o.Pos[:]))
	d.field(depth+1, "bound", nums(o.Bound[:]))
	d.field(depth+1, "flags", strs(o.Flags))
	d.field(depth+1, "initial", quote(o.InitialState))
	if len(o.States) > 0 {
		d.line(depth+1, "states = {")
		for _, st := range o.States {
			d.line(depth+2, fmt.Sprintf("State %s {", quote(st.Name)))
			d.field(depth+3, "duration", num(st.Duration))
			d.field(depth+3, "hidden", strconv.FormatBool(st.Hidden))
			d.field(depth+3, "walk", strconv.FormatBool(st.Walk))
			if st.WalkTo != nil {
				d.line(depth+3, "walk_to = "+nums(st.WalkTo[:])+",")
			}
			d.line(depth+2, "},")
		}
		d.line(depth+1, "},")
	}
	if m := o.Movement; m != nil {
		d.line(depth+1, "movement = {")
		d.field(depth+2, "speed", num(m.Speed))
		d.field(depth+2, "collision_radius", num(m.CollisionRadius))
		d.field(depth+2, "follow_min_radius", num(m.FollowMinRadius))
		d.field(depth+2, "directions", strconv.Itoa(m.Directions))
		d.field(depth+2, "walk_size", ints(m.WalkSize[:]))
		d.field(depth+2, "direction", num(m.Direction))
		d.field(depth+2, "controls", strs(m.Controls))
		d.field(depth+2, "attach_to", quote(m.AttachTo))
		d.field(depth+2, "attach_shift", nums(m.AttachShift[:]))
		d.line(depth+1, "},")
	}
	d.line(depth, "},")
}

func (d *dumper) counter(c types.CounterDef) {
	d.line(0, fmt.Sprintf("Counter %s {", quote(c.Name)))
	d.field(1, "limit", strconv.Itoa(c.Limit))
	d.field(1, "positive", strconv.FormatBool(c.Positive))
	d.field(1, "trigger_delta", strconv.Itoa(c.TriggerDelta))
	if len(c.Elements) > 0 {
		d.line(1, "elements = {")
		for _, el := range c.Elements {
			d.line(2, fmt.Sprintf("{ state = %s, increment = %t },", quote(el.State), el.Increment))
		}
		d.line(1, "},")
	}
	d.line(0, "}")
}

func (d *dumper) chain(ch types.ChainDef) {
	d.line(0, fmt.Sprintf("Chain %s {", quote(ch.Name)))
	for _, el := range ch.Elements {
		if len(el.Conditions) == 0 {
			d.line(1, fmt.Sprintf("Element(%d, %s),", el.ID, quote(el.Ref)))
			continue
		}
		d.line(1, fmt.Sprintf("Element(%d, %s, {", el.ID, quote(el.Ref)))
		for _, c := range el.Conditions {
			d.line(2, cond(c)+",")
		}
		d.line(1, "}),")
	}
	for _, l := range ch.Links {
		if l.Type == 0 && !l.AutoRestart {
			d.line(1, fmt.Sprintf("Link(%d, %d),", l.From, l.To))
			continue
		}
		d.line(1, fmt.Sprintf("Link(%d, %d, { type = %d, auto_restart = %t }),", l.From, l.To, l.Type, l.AutoRestart))
	}
	d.line(0, "}")
}

func (d *dumper) conditions(depth int, conds []types.ConditionDef) {
	if len(conds) == 0 {
		return
	}
	d.line(depth, "conditions = {")
	for _, c := range conds {
		d.line(depth+1, cond(c)+",")
	}
	d.line(depth, "},")
}

func cond(c types.ConditionDef) string {
	var opts []string
	if len(c.Strings) > 0 {
		opts = append(opts, "strings = "+strs(c.Strings))
	}
	if len(c.Ints) > 0 {
		parts := make([]string, len(c.Ints))
		for i, v := range c.Ints {
			parts[i] = seq(v, strconv.Itoa)
		}
		opts = append(opts, "ints = {"+strings.Join(parts, ", ")+"}")
	}
	if len(c.Floats) > 0 {
		parts := make([]string, len(c.Floats))
		for i, v := range c.Floats {
			parts[i] = seq(v, num)
		}
		opts = append(opts, "floats = {"+strings.Join(parts, ", ")+"}")
	}
	if len(c.Objects) > 0 {
		opts = append(opts, "objects = "+strs(c.Objects))
	}
	if c.Inversed {
		opts = append(opts, "inversed = true")
	}
	if c.LinkType != condition.Internal {
		opts = append(opts, "link_type = "+strconv.Itoa(c.LinkType))
	}
	if len(opts) == 0 {
		return fmt.Sprintf("Cond(%s)", quote(c.Kind))
	}
	return fmt.Sprintf("Cond(%s, { %s })", quote(c.Kind), strings.Join(opts, ", "))
}

func num(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

func nums(fs []float64) string {
	allZero := true
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = num(f)
		if f != 0 {
			allZero = false
		}
	}
	if allZero {
		return "{}"
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func ints(vs []int) string {
	allZero := true
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
		if v != 0 {
			allZero = false
		}
	}
	if allZero {
		return "{}"
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// seq renders every value, zeros included.
func seq[T any](vs []T, f func(T) string) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = f(v)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func strs(ss []string) string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = quote(s)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// quote renders s as a Lua string literal. Control bytes use decimal
// escapes; other bytes pass through.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&b, `\%03d`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
