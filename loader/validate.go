package loader

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/qdcore/engine"
	"github.com/nathoo/qdcore/engine/condition"
	"github.com/nathoo/qdcore/engine/named"
	"github.com/nathoo/qdcore/logger"
	"github.com/nathoo/qdcore/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

func (e *ValidationError) errorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

func (e *ValidationError) warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// refKind is what a reference path points at.
type refKind int

const (
	refScene refKind = iota + 1
	refObject
	refState
	refZone
	refMusic
	refCounter
	refChain
)

// index maps every reference path the definitions declare to its kind.
func index(defs *types.GameDef) map[string]refKind {
	refs := map[string]refKind{}
	join := func(parts ...string) string { return strings.Join(parts, named.PathSep) }

	for _, o := range defs.Globals {
		refs[o.Name] = refObject
		refs[join(named.GlobalScope, o.Name)] = refObject
		for _, st := range o.States {
			refs[join(named.GlobalScope, o.Name, st.Name)] = refState
		}
	}
	for _, c := range defs.Counters {
		refs[c.Name] = refCounter
	}
	for _, ch := range defs.Chains {
		refs[ch.Name] = refChain
	}
	for _, s := range defs.Scenes {
		refs[s.Name] = refScene
		for _, m := range s.Music {
			refs[join(s.Name, m.Name)] = refMusic
		}
		for _, z := range s.Zones {
			refs[join(s.Name, z.Name)] = refZone
		}
		for _, o := range s.Objects {
			refs[join(s.Name, o.Name)] = refObject
			for _, st := range o.States {
				refs[join(s.Name, o.Name, st.Name)] = refState
			}
		}
	}
	return refs
}

// validate checks the compiled defs for referential integrity and
// consistency. Warnings are logged; only errors fail the load.
func validate(defs *types.GameDef) error {
	ve := &ValidationError{}
	refs := index(defs)

	if defs.Title == "" {
		ve.errorf("Game.title is required")
	}
	if len(defs.Scenes) == 0 {
		ve.errorf("at least one Scene is required")
	}
	if defs.StartScene != "" && refs[defs.StartScene] != refScene {
		ve.errorf("start scene %q not found in defined scenes", defs.StartScene)
	}

	// Names unique per level.
	top := map[string]string{}
	claim := func(kind, name string) {
		if prev, ok := top[name]; ok {
			ve.errorf("%s %q repeats the name of a %s", kind, name, prev)
			return
		}
		top[name] = kind
	}
	for _, o := range defs.Globals {
		claim("global object", o.Name)
		validateObject("global object "+o.Name, o, ve)
	}
	for _, s := range defs.Scenes {
		claim("scene", s.Name)
		validateScene(s, refs, ve)
	}
	for _, c := range defs.Counters {
		claim("counter", c.Name)
		for _, el := range c.Elements {
			if refs[el.State] != refState {
				ve.warnf("counter %q watches unknown state %q", c.Name, el.State)
			}
		}
	}
	for _, ch := range defs.Chains {
		claim("chain", ch.Name)
		validateChain(ch, refs, ve)
	}

	for _, w := range ve.Warnings {
		logger.Log.WithFields(logrus.Fields{"warning": w}).Warn("script validation")
	}
	if len(ve.Errors) > 0 {
		return ve
	}

	// Whatever the runtime builder still rejects (kinds, flags, modes).
	if _, err := engine.Build(defs); err != nil {
		ve.errorf("%v", err)
		return ve
	}
	return nil
}

func validateObject(where string, o types.ObjectDef, ve *ValidationError) {
	seen := map[string]bool{}
	for _, st := range o.States {
		if seen[st.Name] {
			ve.errorf("%s repeats state %q", where, st.Name)
		}
		seen[st.Name] = true
	}
	if o.InitialState != "" && !seen[o.InitialState] {
		ve.errorf("%s has no initial state %q", where, o.InitialState)
	}
	if o.Movement != nil && o.Kind != "personage" {
		ve.errorf("%s is a %s and cannot have movement", where, o.Kind)
	}
}

func validateScene(s types.SceneDef, refs map[string]refKind, ve *ValidationError) {
	if s.GridSize[0] <= 0 || s.GridSize[1] <= 0 {
		ve.errorf("scene %q needs a positive grid", s.Name)
	}
	names := map[string]bool{}
	for _, o := range s.Objects {
		if names[o.Name] {
			ve.errorf("scene %q repeats object %q", s.Name, o.Name)
		}
		names[o.Name] = true
		validateObject(fmt.Sprintf("object %s:%s", s.Name, o.Name), o, ve)
		if o.Movement != nil && o.Movement.AttachTo != "" && refs[s.Name+named.PathSep+o.Movement.AttachTo] != refObject {
			ve.errorf("object %s:%s attaches to unknown object %q", s.Name, o.Name, o.Movement.AttachTo)
		}
	}
	for _, z := range s.Zones {
		if names[z.Name] {
			ve.errorf("scene %q repeats name %q for zone", s.Name, z.Name)
		}
		names[z.Name] = true
	}
	for _, m := range s.Music {
		if names[m.Name] {
			ve.errorf("scene %q repeats name %q for music", s.Name, m.Name)
		}
		names[m.Name] = true
	}
	for _, a := range s.Activations {
		path := strings.Join([]string{s.Name, a.Object, a.State}, named.PathSep)
		where := "activation " + path
		if refs[path] != refState {
			ve.errorf("%s: no such object state", where)
		}
		validateConditions(where, a.Conditions, refs, ve)
	}
}

func validateChain(ch types.ChainDef, refs map[string]refKind, ve *ValidationError) {
	ids := map[int]bool{}
	governed := map[string]bool{}
	for _, el := range ch.Elements {
		where := fmt.Sprintf("chain %q element %d", ch.Name, el.ID)
		if el.ID == -1 {
			ve.errorf("%s: id -1 is the root", where)
		}
		if ids[el.ID] {
			ve.errorf("%s: duplicate element id", where)
		}
		ids[el.ID] = true

		kind, ok := refs[el.Ref]
		switch {
		case !ok:
			ve.errorf("%s references undefined %q", where, el.Ref)
		case kind == refChain || kind == refZone:
			ve.errorf("%s: %q cannot be governed by a trigger", where, el.Ref)
		case kind != refScene && governed[el.Ref]:
			ve.errorf("%s: %q is already governed by this chain", where, el.Ref)
		}
		governed[el.Ref] = true

		validateConditions(where, el.Conditions, refs, ve)
	}

	for _, l := range ch.Links {
		if l.From != -1 && !ids[l.From] {
			ve.errorf("chain %q link %d -> %d: unknown element %d", ch.Name, l.From, l.To, l.From)
		}
		if !ids[l.To] {
			ve.errorf("chain %q link %d -> %d: unknown element %d", ch.Name, l.From, l.To, l.To)
		}
		if l.From == l.To {
			ve.errorf("chain %q link %d -> %d: an element cannot link to itself", ch.Name, l.From, l.To)
		}
	}
}

func validateConditions(where string, conds []types.ConditionDef, refs map[string]refKind, ve *ValidationError) {
	for i, c := range conds {
		cw := fmt.Sprintf("%s condition %d (%s)", where, i+1, c.Kind)
		t, ok := condition.ParseType(c.Kind)
		if !ok {
			ve.errorf("%s: unknown condition kind", cw)
			continue
		}
		layout, _ := condition.LayoutOf(t)
		checkArity(cw, c, layout, ve)
		for _, path := range c.Objects {
			if path == "" {
				continue
			}
			if _, ok := refs[path]; !ok {
				ve.warnf("%s references undefined %q", cw, path)
			}
		}
	}
}

// checkArity compares the values of a condition with the slot layout of
// its kind.
func checkArity(where string, c types.ConditionDef, layout condition.Layout, ve *ValidationError) {
	var strs, ints, flts []int
	for _, sd := range layout.Data {
		switch sd.Kind {
		case condition.SlotString:
			strs = append(strs, sd.N)
		case condition.SlotInt:
			ints = append(ints, sd.N)
		case condition.SlotFloat:
			flts = append(flts, sd.N)
		}
	}
	if len(c.Strings) > len(strs) {
		ve.errorf("%s: %d strings, kind takes %d", where, len(c.Strings), len(strs))
	}
	if len(c.Ints) > len(ints) {
		ve.errorf("%s: %d int slots, kind takes %d", where, len(c.Ints), len(ints))
	}
	for k := 0; k < len(c.Ints) && k < len(ints); k++ {
		if len(c.Ints[k]) > ints[k] {
			ve.errorf("%s: int slot %d holds %d values, kind takes %d", where, k+1, len(c.Ints[k]), ints[k])
		}
	}
	if len(c.Floats) > len(flts) {
		ve.errorf("%s: %d float slots, kind takes %d", where, len(c.Floats), len(flts))
	}
	for k := 0; k < len(c.Floats) && k < len(flts); k++ {
		if len(c.Floats[k]) > flts[k] {
			ve.errorf("%s: float slot %d holds %d values, kind takes %d", where, k+1, len(c.Floats[k]), flts[k])
		}
	}
	if len(c.Objects) > layout.Objects {
		ve.errorf("%s: %d objects, kind takes %d", where, len(c.Objects), layout.Objects)
	}
}
