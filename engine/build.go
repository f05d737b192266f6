package engine

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/qdcore/engine/condition"
	"github.com/nathoo/qdcore/engine/counter"
	"github.com/nathoo/qdcore/engine/events"
	"github.com/nathoo/qdcore/engine/geom"
	"github.com/nathoo/qdcore/engine/grid"
	"github.com/nathoo/qdcore/engine/input"
	"github.com/nathoo/qdcore/engine/named"
	"github.com/nathoo/qdcore/engine/object"
	"github.com/nathoo/qdcore/engine/scene"
	"github.com/nathoo/qdcore/engine/state"
	"github.com/nathoo/qdcore/engine/trigger"
	"github.com/nathoo/qdcore/logger"
	"github.com/nathoo/qdcore/types"
)

var (
	ErrBadDefinition = errors.New("engine: bad definition")
	ErrUnresolved    = errors.New("engine: unresolved reference")
)

// EventBuffer is the number of recent events the bus keeps for late
// subscribers.
const EventBuffer = 256

// New builds the runtime of a game from its definitions and restarts it.
func New(defs *types.GameDef, seed int64) (*Engine, error) {
	reg, err := Build(defs)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		Defs:         defs,
		Registry:     reg,
		RNG:          NewRNG(seed),
		Events:       events.NewBus(EventBuffer),
		Input:        &input.Queue{},
		LogicPeriod:  DefaultLogicPeriod,
		AutosaveSlot: -1,
		pendingSave:  -1,
		pendingLoad:  -1,
	}
	for _, o := range reg.Globals() {
		if o.Kind() == object.Mouse {
			e.mouseObj = o
			break
		}
	}
	for _, ch := range reg.Chains() {
		ch.Notify = e.notify
	}
	e.Restart()
	return e, nil
}

// Build turns definitions into a registry. Structural problems are errors.
// Condition objects that do not resolve are logged and left empty.
func Build(defs *types.GameDef) (*state.Registry, error) {
	reg := state.New()
	b := builder{reg: reg}

	// 1. Entities.
	for _, od := range defs.Globals {
		o, err := buildObject(od)
		if err != nil {
			return nil, err
		}
		if err := reg.AddGlobal(o); err != nil {
			return nil, err
		}
	}
	for _, sd := range defs.Scenes {
		s, err := buildScene(sd)
		if err != nil {
			return nil, err
		}
		if err := reg.AddScene(s); err != nil {
			return nil, err
		}
	}
	for _, cd := range defs.Counters {
		c := counter.New(cd.Name)
		c.Limit = cd.Limit
		if cd.Positive {
			c.Flags |= counter.FlagPositive
		}
		if cd.TriggerDelta != 0 {
			c.TriggerDelta = cd.TriggerDelta
		}
		if err := reg.AddCounter(c); err != nil {
			return nil, err
		}
	}
	for _, chd := range defs.Chains {
		if err := reg.AddChain(trigger.New(chd.Name)); err != nil {
			return nil, err
		}
	}

	// 2. References, now that every entity exists.
	for _, cd := range defs.Counters {
		c := reg.Counter(cd.Name)
		for _, ed := range cd.Elements {
			el := &counter.Element{Ref: ed.State, Increment: ed.Increment}
			st := reg.ResolveState(ed.State)
			if st == nil {
				b.warn("counter", cd.Name, ed.State)
			}
			el.Resolve(st)
			c.AddElement(el)
		}
	}
	for _, sd := range defs.Scenes {
		if err := b.activations(reg.Scene(sd.Name), sd.Activations); err != nil {
			return nil, err
		}
	}
	for _, chd := range defs.Chains {
		if err := b.chain(reg.Chain(chd.Name), chd); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

type builder struct {
	reg *state.Registry
}

func (b *builder) warn(kind, owner, ref string) {
	logger.Log.WithFields(logrus.Fields{
		kind:  owner,
		"ref": ref,
	}).Warn("unresolved reference")
}

func (b *builder) resolve(path string) named.Named {
	return b.reg.Resolve(path)
}

func (b *builder) condition(d types.ConditionDef, owner string) (*condition.Condition, error) {
	c, err := buildCondition(d)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", owner, err)
	}
	for _, ref := range c.ResolveObjects(b.resolve) {
		b.warn("condition", owner, ref)
	}
	return c, nil
}

func (b *builder) activations(s *scene.Scene, defs []types.ActivationDef) error {
	for _, ad := range defs {
		o := s.Object(ad.Object)
		if o == nil {
			return fmt.Errorf("%w: scene %s has no object %q", ErrUnresolved, s.Name(), ad.Object)
		}
		st := o.State(ad.State)
		if st == nil {
			return fmt.Errorf("%w: object %s has no state %q", ErrUnresolved, o.Name(), ad.State)
		}
		mode := scene.ModeAnd
		switch ad.Mode {
		case "", "and":
		case "or":
			mode = scene.ModeOr
		default:
			return fmt.Errorf("%w: activation mode %q", ErrBadDefinition, ad.Mode)
		}
		conds := make([]*condition.Condition, 0, len(ad.Conditions))
		for _, cd := range ad.Conditions {
			c, err := b.condition(cd, named.Path(st))
			if err != nil {
				return err
			}
			conds = append(conds, c)
		}
		s.AddActivation(st, mode, conds...)
	}
	return nil
}

// chain adds the elements in definition order, then the links. Script IDs
// map to the chain's own numbering.
func (b *builder) chain(ch *trigger.Chain, d types.ChainDef) error {
	ids := map[int]int{trigger.RootID: trigger.RootID}
	for _, ed := range d.Elements {
		if _, dup := ids[ed.ID]; dup {
			return fmt.Errorf("%w: chain %s repeats element id %d", ErrBadDefinition, d.Name, ed.ID)
		}
		obj := b.reg.Resolve(ed.Ref)
		if obj == nil {
			return fmt.Errorf("%w: chain %s element %d: %q", ErrUnresolved, d.Name, ed.ID, ed.Ref)
		}
		el, ok := ch.AddElement(obj)
		if !ok {
			return fmt.Errorf("%w: chain %s already governs %q", ErrBadDefinition, d.Name, ed.Ref)
		}
		for _, cd := range ed.Conditions {
			c, err := b.condition(cd, fmt.Sprintf("%s[%d]", d.Name, ed.ID))
			if err != nil {
				return err
			}
			el.AddCondition(c)
		}
		ids[ed.ID] = el.ID()
	}
	for _, ld := range d.Links {
		from, ok1 := ids[ld.From]
		to, ok2 := ids[ld.To]
		if !ok1 || !ok2 {
			return fmt.Errorf("%w: chain %s link %d -> %d", ErrUnresolved, d.Name, ld.From, ld.To)
		}
		if err := ch.AddLink(from, to, ld.Type, ld.AutoRestart); err != nil {
			return fmt.Errorf("chain %s link %d -> %d: %w", d.Name, ld.From, ld.To, err)
		}
	}
	return nil
}

// buildCondition fills the slots of a condition. The k-th string, int or
// float entry goes to the k-th slot of that kind in layout order.
func buildCondition(d types.ConditionDef) (*condition.Condition, error) {
	t, ok := condition.ParseType(d.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", condition.ErrUnknownType, d.Kind)
	}
	c, err := condition.New(t)
	if err != nil {
		return nil, err
	}
	if d.Inversed {
		c.Inverse()
	}
	c.LinkType = d.LinkType

	layout, _ := condition.LayoutOf(c.Type())
	var si, ii, fi int
	for slot, sd := range layout.Data {
		switch sd.Kind {
		case condition.SlotString:
			if si < len(d.Strings) {
				if err := c.SetString(slot, d.Strings[si]); err != nil {
					return nil, err
				}
			}
			si++
		case condition.SlotInt:
			if ii < len(d.Ints) {
				for n, v := range d.Ints[ii] {
					if err := c.SetInt(slot, n, v); err != nil {
						return nil, err
					}
				}
			}
			ii++
		case condition.SlotFloat:
			if fi < len(d.Floats) {
				for n, v := range d.Floats[fi] {
					if err := c.SetFloat(slot, n, v); err != nil {
						return nil, err
					}
				}
			}
			fi++
		}
	}
	if len(d.Strings) > si || len(d.Ints) > ii || len(d.Floats) > fi {
		return nil, fmt.Errorf("%w: too many values for %s", condition.ErrInvalidArity, c.Type())
	}
	for i, path := range d.Objects {
		if path == "" {
			continue
		}
		if err := c.SetObjectPath(i, path); err != nil {
			return nil, err
		}
	}
	return c, nil
}

var objectKinds = map[string]object.Kind{
	"static":    object.Static,
	"animated":  object.Animated,
	"personage": object.Moving,
	"mouse":     object.Mouse,
}

var objectFlags = map[string]object.Flag{
	"hidden":        object.FlagHidden,
	"disable_mouse": object.FlagDisableMouse,
	"non_player":    object.FlagNonPlayer,
	"cycle_x":       object.FlagCycleX,
	"cycle_y":       object.FlagCycleY,
	"fixed_screen":  object.FlagFixedScreen,
}

var sceneFlags = map[string]scene.Flag{
	"cycle_x":                scene.FlagCycleX,
	"cycle_y":                scene.FlagCycleY,
	"reset_triggers_on_load": scene.FlagResetTriggersOnLoad,
	"disable_main_menu":      scene.FlagDisableMainMenu,
}

var cameraModes = map[string]scene.CameraMode{
	"":            scene.CameraFixed,
	"fixed":       scene.CameraFixed,
	"follow":      scene.CameraFollow,
	"center_once": scene.CameraCenterOnce,
}

func vec3(v [3]float64) geom.Vec3f { return geom.Vec3f{X: v[0], Y: v[1], Z: v[2]} }

func buildObject(d types.ObjectDef) (*object.Object, error) {
	kind, ok := objectKinds[d.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: object %s has kind %q", ErrBadDefinition, d.Name, d.Kind)
	}
	o := object.New(d.Name, kind)
	o.R = vec3(d.Pos)
	o.Bound = vec3(d.Bound)
	for _, f := range d.Flags {
		bit, ok := objectFlags[f]
		if !ok {
			return nil, fmt.Errorf("%w: object %s has flag %q", ErrBadDefinition, d.Name, f)
		}
		o.SetFlag(bit)
	}

	for _, sd := range d.States {
		if o.State(sd.Name) != nil {
			return nil, fmt.Errorf("%w: object %s repeats state %q", ErrBadDefinition, d.Name, sd.Name)
		}
		st := object.NewState(sd.Name, sd.Duration)
		st.Hidden = sd.Hidden
		st.Walk = sd.Walk
		if sd.WalkTo != nil {
			r := vec3(*sd.WalkTo)
			st.WalkTo = &r
		}
		o.AddState(st)
	}

	if m := d.Movement; m != nil {
		if o.Movement == nil {
			return nil, fmt.Errorf("%w: %s object %s cannot walk", ErrBadDefinition, d.Kind, d.Name)
		}
		if m.Speed > 0 {
			o.Movement.Speed = m.Speed
		}
		o.Movement.CollisionRadius = m.CollisionRadius
		o.Movement.FollowMinRadius = m.FollowMinRadius
		if m.Directions > 0 {
			o.Movement.Directions = m.Directions
		}
		if m.WalkSize[0] > 0 && m.WalkSize[1] > 0 {
			o.Movement.WalkSize = geom.Vec2i{X: m.WalkSize[0], Y: m.WalkSize[1]}
		}
		o.Movement.InitDirection = m.Direction
		o.Movement.AttacherRef = m.AttachTo
		o.Movement.AttachShift = geom.Vec2f{X: m.AttachShift[0], Y: m.AttachShift[1]}
		for _, name := range m.Controls {
			ctl, ok := object.ParseControl(name)
			if !ok {
				return nil, fmt.Errorf("%w: personage %s has control %q", ErrBadDefinition, d.Name, name)
			}
			o.Movement.Controls |= ctl
		}
	}

	if d.InitialState != "" {
		st := o.State(d.InitialState)
		if st == nil {
			return nil, fmt.Errorf("%w: object %s has no state %q", ErrUnresolved, d.Name, d.InitialState)
		}
		o.SetState(st)
	}
	o.Snapshot()
	return o, nil
}

func buildScene(d types.SceneDef) (*scene.Scene, error) {
	if d.GridSize[0] <= 0 || d.GridSize[1] <= 0 || d.CellSize <= 0 {
		return nil, fmt.Errorf("%w: scene %s has an empty grid", ErrBadDefinition, d.Name)
	}
	s := scene.New(d.Name, d.GridSize[0], d.GridSize[1], d.CellSize)
	for _, f := range d.Flags {
		bit, ok := sceneFlags[f]
		if !ok {
			return nil, fmt.Errorf("%w: scene %s has flag %q", ErrBadDefinition, d.Name, f)
		}
		s.Flags |= bit
	}

	mode, ok := cameraModes[d.CameraMode]
	if !ok {
		return nil, fmt.Errorf("%w: scene %s has camera mode %q", ErrBadDefinition, d.Name, d.CameraMode)
	}
	s.Camera.ScreenSize = geom.Vec2i{X: d.ScreenSize[0], Y: d.ScreenSize[1]}
	s.Camera.Pos = geom.Vec2f{X: d.Camera[0], Y: d.Camera[1]}
	s.Camera.Speed = d.CameraSpeed
	s.Camera.Snapshot()
	s.Camera.SetDefault(mode, nil)

	for _, od := range d.Objects {
		o, err := buildObject(od)
		if err != nil {
			return nil, fmt.Errorf("scene %s: %w", d.Name, err)
		}
		if !s.AddObject(o) {
			return nil, fmt.Errorf("%w: scene %s repeats object %q", ErrBadDefinition, d.Name, od.Name)
		}
	}
	for _, zd := range d.Zones {
		z := grid.NewZone(zd.Name, geom.Vec2i{X: zd.Min[0], Y: zd.Min[1]}, geom.Vec2i{X: zd.Max[0], Y: zd.Max[1]}, zd.On)
		z.HasShadow = zd.Shadow
		z.ShadowColor = zd.ShadowColor
		z.ShadowAlpha = zd.ShadowAlpha
		if !s.AddZone(z) {
			return nil, fmt.Errorf("%w: scene %s repeats zone %q", ErrBadDefinition, d.Name, zd.Name)
		}
	}
	for _, md := range d.Music {
		t := scene.NewMusicTrack(md.Name)
		t.Cycled = md.Cycled
		if md.Volume > 0 {
			t.Volume = md.Volume
		}
		if !s.AddMusicTrack(t) {
			return nil, fmt.Errorf("%w: scene %s repeats track %q", ErrBadDefinition, d.Name, md.Name)
		}
	}
	return s, nil
}
