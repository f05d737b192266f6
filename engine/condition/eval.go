package condition

import (
	"math"

	"github.com/nathoo/qdcore/engine/geom"
	"github.com/nathoo/qdcore/engine/grid"
	"github.com/nathoo/qdcore/engine/input"
	"github.com/nathoo/qdcore/engine/named"
	"github.com/nathoo/qdcore/engine/object"
)

// Check evaluates c, applies its inversion and records successful clicks
// in ctx. Only a positive, non-inverted result counts as a consumed click.
func Check(c *Condition, w World, ctx *Context) bool {
	ok := Evaluate(c, w, ctx)
	if c.inversed {
		return !ok
	}
	if ok {
		switch c.typ {
		case MouseClick, MouseZoneClick, MouseClickEvent:
			ctx.SuccessfulClick = true
		case MouseObjectClick, MouseObjectZoneClick, MouseObjectClickEvent:
			ctx.SuccessfulObjectClick = true
		}
	}
	return ok
}

// Evaluate computes the raw value of c, ignoring inversion. Missing
// objects, wrong object kinds and absent slot values all yield false.
func Evaluate(c *Condition, w World, ctx *Context) bool {
	switch c.typ {
	case True:
		return true
	case False, MinigameState:
		return false

	case MouseClick:
		if !w.MouseEventActive(input.LeftDown) || ctx.Has(ObjectClick) || ctx.Has(DialogClick) {
			return false
		}
		if !personageGate(c, w) {
			return false
		}
		p := lookup(c, w, SlotObjectName, true)
		sc := w.ActiveScene()
		return p != nil && sc != nil && same(p, sc.MouseClickObject())

	case MouseRightClick:
		if !w.MouseEventActive(input.RightDown) || ctx.Has(ObjectClick) || ctx.Has(DialogClick) {
			return false
		}
		if !personageGate(c, w) {
			return false
		}
		p := c.Object(0)
		sc := w.ActiveScene()
		return p != nil && sc != nil && same(p, sc.MouseRightClickObject())

	case MouseObjectClick:
		if !w.MouseEventActive(input.LeftDown) || !objectClick(ctx) {
			return false
		}
		if !personageGate(c, w) {
			return false
		}
		p := lookup(c, w, SlotObjectName, true)
		sc := w.ActiveScene()
		if p == nil || sc == nil || !same(p, sc.MouseClickObject()) {
			return false
		}
		m := lookup(c, w, SlotMouseObjectName, false)
		return m != nil && same(m, ctx.MouseClickObject)

	case MouseRightObjectClick:
		if !w.MouseEventActive(input.RightDown) || !objectClick(ctx) {
			return false
		}
		if !personageGate(c, w) {
			return false
		}
		p := c.Object(0)
		sc := w.ActiveScene()
		if p == nil || sc == nil || !same(p, sc.MouseRightClickObject()) {
			return false
		}
		m := c.Object(1)
		return m != nil && same(m, ctx.MouseClickObject)

	case ObjectInZone:
		o := asObject(lookup(c, w, SlotObjectName, true))
		if o == nil || !o.IsVisible() {
			return false
		}
		z := zone(c, w, SlotZoneName, true)
		return z != nil && z.ContainsPoint(o.R.XY())

	case PersonageWalkDirection, PersonageStaticDirection:
		p := asObject(lookup(c, w, SlotPersonageName, true))
		if p == nil || !p.IsMoving() || !p.IsVisible() {
			return false
		}
		angle, ok := c.Float(SlotDirectionAngle, 0)
		if !ok {
			return false
		}
		if (c.typ == PersonageWalkDirection) != p.InMotion() {
			return false
		}
		dir := p.GetDirection(p.Direction())
		return dir != -1 && dir == p.GetDirection(angle)

	case Timer:
		state, ok := c.Int(SlotTimerRnd, 1)
		return ok && state != 0

	case MouseDialogClick:
		if !ctx.Has(DialogClick) || ctx.MouseClickObject != nil {
			return false
		}
		return ctx.MouseClickState != nil && same(c.owner, ctx.MouseClickState)

	case ObjectState, ObjectStateWasActivated, ObjectStateWaiting, ObjectPrevState:
		o, s := objectState(c, w)
		if o == nil || s == nil {
			return false
		}
		switch c.typ {
		case ObjectState:
			return o.IsVisible() && o.IsStateActive(s)
		case ObjectStateWasActivated:
			return s.WasActivated()
		case ObjectStateWaiting:
			return o.IsVisible() && o.IsStateWaiting(s)
		default:
			return o.IsVisible() && o.WasStatePrevious(s)
		}

	case ObjectStateAnimationPhase:
		o, s := objectState(c, w)
		if o == nil || s == nil || !o.IsVisible() || !o.IsStateActive(s) {
			return false
		}
		lo, ok1 := c.Float(SlotAnimationPhase, 0)
		hi, ok2 := c.Float(SlotAnimationPhase, 1)
		if !ok1 || !ok2 {
			return false
		}
		phase := o.AnimationPhase()
		return lo <= phase && phase <= hi

	case MouseZoneClick:
		if !w.MouseEventActive(input.LeftDown) || ctx.Has(ObjectClick) || ctx.Has(DialogClick) || ctx.MouseClickObject != nil {
			return false
		}
		sc := w.ActiveScene()
		if sc == nil || sc.MouseClickObject() != nil {
			return false
		}
		if !personageGate(c, w) {
			return false
		}
		z := zone(c, w, SlotClickZoneName, true)
		return z != nil && z.ContainsPoint(sc.MouseClickPos())

	case MouseObjectZoneClick:
		if !w.MouseEventActive(input.LeftDown) || !objectClick(ctx) {
			return false
		}
		sc := w.ActiveScene()
		if sc == nil || sc.MouseClickObject() != nil {
			return false
		}
		if !personageGate(c, w) {
			return false
		}
		z := zone(c, w, SlotClickZoneName, true)
		if z == nil || !z.ContainsPoint(sc.MouseClickPos()) {
			return false
		}
		m := lookup(c, w, SlotMouseObjectName, false)
		return m != nil && same(m, ctx.MouseClickObject)

	case ObjectsDistance:
		o1 := asObject(lookup(c, w, SlotObjectName, false))
		if o1 == nil || !o1.IsVisible() {
			return false
		}
		o2 := asObject(lookup(c, w, SlotObject2Name, false))
		if o2 == nil || !o2.IsVisible() {
			return false
		}
		d, ok := c.Float(SlotObjectsDistance, 0)
		return ok && geom.PlaneDist2(o1.R, o2.R) < d*d

	case PersonageActive:
		active := w.ActivePersonage()
		if active == nil {
			return false
		}
		p := lookup(c, w, SlotPersonageName, true)
		return p != nil && same(p, active)

	case StateTimeGreaterThanValue:
		s := asState(c.Object(0))
		if s == nil || !s.IsActive() {
			return false
		}
		t, ok := c.Float(0, 0)
		return ok && s.CurTime() > t

	case StateTimeGreaterThanStateTime:
		s0 := asState(c.Object(0))
		s1 := asState(c.Object(1))
		if s0 == nil || s1 == nil || !s0.IsActive() || !s1.IsActive() {
			return false
		}
		return s0.CurTime() > s1.CurTime()

	case StateTimeInInterval:
		s := asState(c.Object(0))
		if s == nil || !s.IsActive() {
			return false
		}
		t0, ok1 := c.Float(0, 0)
		t1, ok2 := c.Float(0, 1)
		return ok1 && ok2 && t0 <= s.CurTime() && s.CurTime() <= t1

	case CounterGreaterThanValue, CounterLessThanValue:
		cnt, ok := c.Object(0).(Valuer)
		if !ok {
			return false
		}
		v, ok := c.Int(0, 0)
		if !ok {
			return false
		}
		if c.typ == CounterGreaterThanValue {
			return cnt.Value() > v
		}
		return cnt.Value() < v

	case CounterGreaterThanCounter:
		c0, ok0 := c.Object(0).(Valuer)
		c1, ok1 := c.Object(1).(Valuer)
		return ok0 && ok1 && c0.Value() > c1.Value()

	case CounterInInterval:
		cnt, ok := c.Object(0).(Valuer)
		if !ok {
			return false
		}
		v0, ok1 := c.Int(0, 0)
		v1, ok2 := c.Int(0, 1)
		return ok1 && ok2 && v0 <= cnt.Value() && cnt.Value() <= v1

	case ObjectOnPersonageWay:
		p := asObject(c.Object(0))
		if p == nil || !p.IsMoving() || !p.IsVisible() {
			return false
		}
		o := asObject(c.Object(1))
		if o == nil || !o.IsVisible() {
			return false
		}
		d, ok := c.Float(0, 0)
		if !ok || geom.PlaneDist2(p.R, o.R) > d*d {
			return false
		}
		angle := p.CalcDirectionAngle(o.R)
		return math.Abs(angle-p.Direction()) < math.Pi/2

	case Keypress:
		code, ok := c.Int(0, 0)
		return ok && w.KeyPressed(code)

	case AnyPersonageInZone:
		z := asZone(c.Object(0))
		return z != nil && w.AnyPersonageInZone(z)

	case ObjectHidden:
		o := asObject(c.Object(0))
		return o != nil && !o.IsVisible()

	case MouseRightZoneClick:
		if !w.MouseEventActive(input.RightDown) || ctx.Has(ObjectClick) || ctx.Has(DialogClick) || ctx.MouseClickObject != nil {
			return false
		}
		sc := w.ActiveScene()
		if sc == nil || sc.MouseClickObject() != nil || sc.MouseRightClickObject() != nil {
			return false
		}
		if !personageGate(c, w) {
			return false
		}
		z := asZone(c.Object(0))
		return z != nil && z.ContainsPoint(sc.MouseClickPos())

	case MouseRightObjectZoneClick:
		if !w.MouseEventActive(input.RightDown) || !objectClick(ctx) {
			return false
		}
		sc := w.ActiveScene()
		if sc == nil || sc.MouseClickObject() != nil || sc.MouseRightClickObject() != nil {
			return false
		}
		if !personageGate(c, w) {
			return false
		}
		z := asZone(c.Object(0))
		if z == nil || !z.ContainsPoint(sc.MouseClickPos()) {
			return false
		}
		m := c.Object(1)
		return m != nil && same(m, ctx.MouseClickObject)

	case MouseHover, MouseObjectHover:
		if w.MouseEventActive(input.LeftDown) || w.MouseEventActive(input.RightDown) {
			return false
		}
		sc := w.ActiveScene()
		if sc == nil {
			return false
		}
		p := c.Object(0)
		if p == nil {
			p = ownerObject(c)
		}
		if p == nil || !same(p, sc.MouseHoverObject()) {
			return false
		}
		if c.typ == MouseHover {
			return true
		}
		m := c.Object(1)
		return m != nil && same(m, w.MouseObject())

	case MouseHoverZone, MouseObjectHoverZone:
		if w.MouseEventActive(input.LeftDown) || w.MouseEventActive(input.RightDown) {
			return false
		}
		carried := w.MouseObject()
		if (c.typ == MouseHoverZone) != (carried == nil) {
			return false
		}
		sc := w.ActiveScene()
		if sc == nil || sc.MouseClickObject() != nil {
			return false
		}
		if c.typ == MouseObjectHoverZone && !personageGate(c, w) {
			return false
		}
		z := asZone(c.Object(0))
		if z == nil || !z.ContainsPoint(sc.MouseClickPos()) {
			return false
		}
		if c.typ == MouseHoverZone {
			return true
		}
		m := c.Object(1)
		return m != nil && same(m, carried)

	case MouseClickFailed:
		return !w.MouseEventActive(input.LeftDown) && ctx.Has(ClickWasFailed)

	case MouseObjectClickFailed:
		return !w.MouseEventActive(input.LeftDown) && ctx.Has(ObjectClickWasFailed)

	case MouseClickEvent:
		return w.MouseEventActive(input.LeftDown) && !ctx.Has(ObjectClick) && !ctx.Has(DialogClick)

	case MouseRightClickEvent:
		return w.MouseEventActive(input.RightDown) && !ctx.Has(ObjectClick) && !ctx.Has(DialogClick)

	case MouseObjectClickEvent, MouseRightObjectClickEvent:
		ev := input.LeftDown
		if c.typ == MouseRightObjectClickEvent {
			ev = input.RightDown
		}
		if !w.MouseEventActive(ev) || !objectClick(ctx) {
			return false
		}
		m := c.Object(0)
		return m == nil || same(m, ctx.MouseClickObject)

	case MouseStatePhraseClick:
		if !w.MouseEventActive(input.LeftDown) || !ctx.Has(DialogClick) || ctx.MouseClickObject != nil {
			return false
		}
		s := asState(c.Object(0))
		return s != nil && s == ctx.MouseClickState

	case ObjectIsCloser:
		o0 := asObject(c.Object(0))
		if o0 == nil {
			o0 = asObject(ownerObject(c))
		}
		o1 := asObject(c.Object(1))
		o2 := asObject(c.Object(2))
		if o0 == nil || o1 == nil || o2 == nil {
			return false
		}
		return geom.PlaneDist2(o1.R, o0.R) < geom.PlaneDist2(o2.R, o0.R)

	case AnimatedObjectIdleGreaterThanValue:
		o := asObject(c.Object(0))
		if o == nil || !o.IsAnimated() {
			return false
		}
		v, ok := c.Int(0, 0)
		return ok && o.IdleTime() > float64(v)

	case AnimatedObjectsIntersectionalBounds:
		o0 := asObject(c.Object(0))
		o1 := asObject(c.Object(1))
		if o0 == nil || o1 == nil || !o0.IsAnimated() || !o1.IsAnimated() {
			return false
		}
		return o0.IntersectsBound(o1)
	}
	return false
}

// objectClick reports a click made with an object on the cursor.
func objectClick(ctx *Context) bool {
	return ctx.Has(ObjectClick) && !ctx.Has(DialogClick) && ctx.MouseClickObject != nil
}

// personageGate fails conditions owned by a personage that is not the
// active one.
func personageGate(c *Condition, w World) bool {
	if c.owner == nil {
		return true
	}
	p := named.OwnerOfType(c.owner, named.TypeMovingObj)
	return p == nil || same(p, w.ActivePersonage())
}

// ownerObject is the object owning the state that owns c.
func ownerObject(c *Condition) named.Named {
	if c.owner == nil {
		return nil
	}
	return c.owner.Owner()
}

// lookup resolves object slot i: the cached reference first, then the
// name in string slot i, then optionally the owning object when the name
// is empty.
func lookup(c *Condition, w World, i int, ownerFallback bool) named.Named {
	if p := c.Object(i); p != nil {
		return p
	}
	name, ok := c.String(i)
	if !ok {
		return nil
	}
	if name == "" {
		if ownerFallback {
			return ownerObject(c)
		}
		return nil
	}
	if o := w.Object(name); o != nil {
		return o
	}
	return nil
}

func zone(c *Condition, w World, i int, byName bool) *grid.Zone {
	if z := asZone(c.Object(i)); z != nil {
		return z
	}
	if !byName {
		return nil
	}
	name, ok := c.String(i)
	sc := w.ActiveScene()
	if !ok || name == "" || sc == nil {
		return nil
	}
	return sc.Zone(name)
}

// objectState resolves the object and the state named by the state slots.
func objectState(c *Condition, w World) (*object.Object, *object.State) {
	o := asObject(lookup(c, w, SlotObjectName, true))
	if o == nil || !o.IsAnimated() {
		return nil, nil
	}
	if s := asState(c.Object(SlotObjectStateName)); s != nil {
		return o, s
	}
	name, ok := c.String(SlotObjectStateName)
	if !ok || name == "" {
		return nil, nil
	}
	return o, o.State(name)
}

func same[T any](n named.Named, p *T) bool {
	if n == nil || p == nil {
		return false
	}
	q, ok := any(n).(*T)
	return ok && q == p
}

func asObject(n named.Named) *object.Object {
	o, _ := n.(*object.Object)
	return o
}

func asState(n named.Named) *object.State {
	s, _ := n.(*object.State)
	return s
}

func asZone(n named.Named) *grid.Zone {
	z, _ := n.(*grid.Zone)
	return z
}
