package condition

import (
	"bytes"
	"errors"
	"testing"

	"github.com/nathoo/qdcore/engine/geom"
	"github.com/nathoo/qdcore/engine/grid"
	"github.com/nathoo/qdcore/engine/input"
	"github.com/nathoo/qdcore/engine/named"
	"github.com/nathoo/qdcore/engine/object"
	"github.com/nathoo/qdcore/engine/save"
)

type fakeScene struct {
	click, right, hover *object.Object
	pos                 geom.Vec2f
	zones               map[string]*grid.Zone
}

func (s *fakeScene) MouseClickObject() *object.Object      { return s.click }
func (s *fakeScene) MouseRightClickObject() *object.Object { return s.right }
func (s *fakeScene) MouseHoverObject() *object.Object      { return s.hover }
func (s *fakeScene) MouseClickPos() geom.Vec2f             { return s.pos }
func (s *fakeScene) Zone(name string) *grid.Zone           { return s.zones[name] }

type fakeWorld struct {
	events  map[input.MouseEvent]bool
	keys    map[int]bool
	scene   *fakeScene
	active  *object.Object
	objects map[string]*object.Object
	mouse   *object.Object
	inZone  bool
}

func (w *fakeWorld) MouseEventActive(ev input.MouseEvent) bool { return w.events[ev] }
func (w *fakeWorld) KeyPressed(code int) bool                  { return w.keys[code] }
func (w *fakeWorld) ActivePersonage() *object.Object           { return w.active }
func (w *fakeWorld) Object(name string) *object.Object         { return w.objects[name] }
func (w *fakeWorld) MouseObject() *object.Object               { return w.mouse }
func (w *fakeWorld) AnyPersonageInZone(*grid.Zone) bool        { return w.inZone }

func (w *fakeWorld) ActiveScene() Scene {
	if w.scene == nil {
		return nil
	}
	return w.scene
}

type fakeCounter struct {
	named.Base
	v int
}

func (c *fakeCounter) Value() int { return c.v }

func newCounter(v int) *fakeCounter {
	return &fakeCounter{Base: named.NewBase("c", named.TypeCounter), v: v}
}

type fixedRand int

func (r fixedRand) Rnd(int) int { return int(r) }

func newWorld() *fakeWorld {
	return &fakeWorld{
		events:  map[input.MouseEvent]bool{},
		keys:    map[int]bool{},
		scene:   &fakeScene{zones: map[string]*grid.Zone{}},
		objects: map[string]*object.Object{},
	}
}

func animated(name string, states ...string) *object.Object {
	o := object.New(name, object.Animated)
	for _, s := range states {
		o.AddState(object.NewState(s, 1))
	}
	return o
}

func TestNegativeKindsAreSugar(t *testing.T) {
	tests := []struct {
		in   Type
		want Type
	}{
		{ObjectNotInState, ObjectState},
		{ObjectStateWasNotActivated, ObjectStateWasActivated},
	}
	for _, tt := range tests {
		c := MustNew(tt.in)
		if c.Type() != tt.want || !c.IsInversed() {
			t.Errorf("New(%s) = %s inversed=%v", tt.in, c.Type(), c.IsInversed())
		}
	}
	if _, err := New(Type(99)); !errors.Is(err, ErrUnknownType) {
		t.Errorf("New(99) err = %v", err)
	}
}

func TestParseType(t *testing.T) {
	for _, typ := range Types() {
		got, ok := ParseType(typ.String())
		if !ok || got != typ {
			t.Errorf("ParseType(%q) = %v,%v", typ.String(), got, ok)
		}
	}
	if got, ok := ParseType("object_state"); !ok || got != ObjectState {
		t.Errorf("lower-case parse = %v,%v", got, ok)
	}
}

func TestSlotArity(t *testing.T) {
	c := MustNew(ObjectsDistance)
	if err := c.SetString(SlotObjectName, "a"); err != nil {
		t.Fatal(err)
	}
	if err := c.SetFloat(SlotObjectsDistance, 0, 5); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		err  error
	}{
		{"int on float slot", c.SetInt(SlotObjectsDistance, 0, 1)},
		{"float index out of range", c.SetFloat(SlotObjectsDistance, 1, 1)},
		{"slot out of range", c.SetString(3, "x")},
		{"object slot out of range", c.SetObjectPath(2, "x")},
		{"timer on non-timer", c.SetTimer(1, 0)},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, ErrInvalidArity) {
			t.Errorf("%s: err = %v, want ErrInvalidArity", tt.name, tt.err)
		}
	}
	if _, ok := c.Int(SlotObjectsDistance, 0); ok {
		t.Error("Int on a float slot should fail")
	}
	if d, ok := c.Float(SlotObjectsDistance, 0); !ok || d != 5 {
		t.Errorf("Float = %v,%v", d, ok)
	}
}

func TestTimerFiresOncePerPeriod(t *testing.T) {
	c := MustNew(Timer)
	if err := c.SetTimer(1.0, 0); err != nil {
		t.Fatal(err)
	}
	w, ctx := newWorld(), &Context{}
	want := []bool{false, false, true, false}
	for i, fire := range want {
		c.Quant(0.4, nil)
		if got := Check(c, w, ctx); got != fire {
			t.Errorf("tick %d: fired = %v, want %v", i, got, fire)
		}
	}
	elapsed, _ := c.Float(SlotTimerPeriod, 1)
	if elapsed < 0.59 || elapsed > 0.61 {
		t.Errorf("elapsed = %v, want ~0.6", elapsed)
	}
}

func TestTimerRandomSkip(t *testing.T) {
	c := MustNew(Timer)
	if err := c.SetTimer(1.0, 50); err != nil {
		t.Fatal(err)
	}
	c.Quant(1.0, fixedRand(10))
	if c.Fired() {
		t.Error("roll below the skip chance should suppress the timer")
	}
	c.Quant(1.0, fixedRand(90))
	if !c.Fired() {
		t.Error("roll above the skip chance should fire")
	}
}

func TestInversion(t *testing.T) {
	w, ctx := newWorld(), &Context{}
	door := animated("door", "open", "closed")
	door.SetState(door.States()[0])
	w.objects["door"] = door

	kinds := []func() *Condition{
		func() *Condition { return MustNew(True) },
		func() *Condition { return MustNew(False) },
		func() *Condition { return MustNew(MinigameState) },
		func() *Condition {
			c := MustNew(ObjectState)
			c.SetString(SlotObjectName, "door")
			c.SetString(SlotObjectStateName, "open")
			return c
		},
		func() *Condition {
			c := MustNew(ObjectState)
			c.SetString(SlotObjectName, "door")
			c.SetString(SlotObjectStateName, "closed")
			return c
		},
		func() *Condition {
			c := MustNew(Keypress)
			c.SetInt(0, 0, 32)
			return c
		},
	}
	for _, mk := range kinds {
		c := mk()
		raw := Evaluate(c, w, ctx)
		c.Inverse()
		if got := Check(c, w, ctx); got != !raw {
			t.Errorf("%s: inverted = %v, raw = %v", c.Type(), got, raw)
		}
	}
}

func TestObjectStateKinds(t *testing.T) {
	w, ctx := newWorld(), &Context{}
	door := animated("door", "open", "closed", "locked")
	open, closed := door.States()[0], door.States()[1]
	door.SetState(closed)
	door.SetState(open)
	w.objects["door"] = door

	mk := func(typ Type, state string) *Condition {
		c := MustNew(typ)
		c.SetString(SlotObjectName, "door")
		c.SetString(SlotObjectStateName, state)
		return c
	}
	tests := []struct {
		typ   Type
		state string
		want  bool
	}{
		{ObjectState, "open", true},
		{ObjectState, "closed", false},
		{ObjectPrevState, "closed", true},
		{ObjectPrevState, "open", false},
		{ObjectStateWasActivated, "closed", true},
		{ObjectStateWasActivated, "locked", false},
		{ObjectNotInState, "closed", true},
		{ObjectStateWasNotActivated, "locked", true},
		{ObjectState, "missing", false},
		{ObjectStateWaiting, "open", false},
	}
	for _, tt := range tests {
		if got := Check(mk(tt.typ, tt.state), w, ctx); got != tt.want {
			t.Errorf("%s(%s) = %v, want %v", tt.typ, tt.state, got, tt.want)
		}
	}

	// Hidden objects are never "in" a state, but activation history remains.
	door.Hide()
	if Check(mk(ObjectState, "open"), w, ctx) {
		t.Error("hidden object matched OBJECT_STATE")
	}
	if !Check(mk(ObjectStateWasActivated, "open"), w, ctx) {
		t.Error("WAS_ACTIVATED should ignore visibility")
	}
}

func TestObjectStateOwnerFallback(t *testing.T) {
	w, ctx := newWorld(), &Context{}
	door := animated("door", "open", "closed")
	door.SetState(door.States()[0])

	c := MustNew(ObjectState)
	c.SetString(SlotObjectStateName, "open")
	c.SetOwner(door.States()[1])
	if !Check(c, w, ctx) {
		t.Error("empty object name should fall back to the owning object")
	}
}

func TestStateTimeAndPhase(t *testing.T) {
	w, ctx := newWorld(), &Context{}
	o := animated("clock", "tick", "tock")
	tick, tock := o.States()[0], o.States()[1]
	o.SetState(tick)
	o.Quant(0.5)

	gt := MustNew(StateTimeGreaterThanValue)
	gt.SetObject(0, tick)
	gt.SetFloat(0, 0, 0.4)
	if !Check(gt, w, ctx) {
		t.Error("0.5 > 0.4 should hold")
	}
	gt.SetFloat(0, 0, 0.6)
	if Check(gt, w, ctx) {
		t.Error("0.5 > 0.6 should not hold")
	}

	in := MustNew(StateTimeInInterval)
	in.SetObject(0, tick)
	in.SetFloat(0, 0, 0.5)
	in.SetFloat(0, 1, 0.5)
	if !Check(in, w, ctx) {
		t.Error("interval bounds are inclusive")
	}

	cmp := MustNew(StateTimeGreaterThanStateTime)
	cmp.SetObject(0, tick)
	cmp.SetObject(1, tock)
	if Check(cmp, w, ctx) {
		t.Error("inactive second state must be false")
	}
	cmp.SetObject(1, nil)
	if Check(cmp, w, ctx) {
		t.Error("missing second state must be false")
	}

	ph := MustNew(ObjectStateAnimationPhase)
	ph.SetObject(0, o)
	ph.SetObject(1, tick)
	ph.SetFloat(SlotAnimationPhase, 0, 0.25)
	ph.SetFloat(SlotAnimationPhase, 1, 0.75)
	if !Check(ph, w, ctx) {
		t.Errorf("phase %v should be inside [0.25,0.75]", o.AnimationPhase())
	}
}

func TestCounters(t *testing.T) {
	w, ctx := newWorld(), &Context{}
	c5, c7 := newCounter(5), newCounter(7)

	mk := func(typ Type, vals ...int) *Condition {
		c := MustNew(typ)
		c.SetObject(0, c5)
		for i, v := range vals {
			c.SetInt(0, i, v)
		}
		return c
	}
	tests := []struct {
		name string
		c    *Condition
		want bool
	}{
		{"5 > 4", mk(CounterGreaterThanValue, 4), true},
		{"5 > 5", mk(CounterGreaterThanValue, 5), false},
		{"5 < 6", mk(CounterLessThanValue, 6), true},
		{"5 in [5,5]", mk(CounterInInterval, 5, 5), true},
		{"5 in [6,9]", mk(CounterInInterval, 6, 9), false},
	}
	for _, tt := range tests {
		if got := Check(tt.c, w, ctx); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}

	cc := MustNew(CounterGreaterThanCounter)
	cc.SetObject(0, c7)
	cc.SetObject(1, c5)
	if !Check(cc, w, ctx) {
		t.Error("7 > 5 should hold")
	}

	// A state in the counter slot is a wrong kind, not a crash.
	bad := MustNew(CounterGreaterThanValue)
	bad.SetObject(0, object.NewState("s", 0))
	if Check(bad, w, ctx) {
		t.Error("non-counter object must be false")
	}
}

func TestMouseClick(t *testing.T) {
	w, ctx := newWorld(), &Context{}
	door := animated("door", "idle")
	w.objects["door"] = door
	w.scene.click = door

	c := MustNew(MouseClick)
	c.SetString(SlotObjectName, "door")
	if Check(c, w, ctx) {
		t.Fatal("no LEFT_DOWN yet")
	}
	w.events[input.LeftDown] = true
	if !Check(c, w, ctx) {
		t.Fatal("click on door should hold")
	}
	if !ctx.SuccessfulClick || ctx.SuccessfulObjectClick {
		t.Errorf("flags = %v/%v", ctx.SuccessfulClick, ctx.SuccessfulObjectClick)
	}

	ctx.Set(DialogClick)
	if Check(c, w, ctx) {
		t.Error("dialog click must not count as a scene click")
	}
	ctx.Drop(DialogClick)

	// Conditions of another personage's states wait for it to be active.
	hero := object.New("hero", object.Moving)
	hero.AddState(object.NewState("talk", 1))
	c.SetOwner(hero.States()[0])
	if Check(c, w, ctx) {
		t.Error("inactive personage owner should block the click")
	}
	w.active = hero
	if !Check(c, w, ctx) {
		t.Error("active personage owner should allow the click")
	}

	ctx.ClearClick()
	c.Inverse()
	w.scene.click = nil
	if !Check(c, w, ctx) || ctx.SuccessfulClick {
		t.Error("an inverted success must not consume the click")
	}
}

func TestMouseObjectClick(t *testing.T) {
	w, ctx := newWorld(), &Context{}
	door := animated("door", "idle")
	key := object.New("key", object.Animated)
	w.objects["door"], w.objects["key"] = door, key
	w.scene.click = door
	w.events[input.LeftDown] = true

	c := MustNew(MouseObjectClick)
	c.SetString(SlotObjectName, "door")
	c.SetString(SlotMouseObjectName, "key")
	if Check(c, w, ctx) {
		t.Fatal("no object on the cursor")
	}
	ctx.Set(ObjectClick)
	ctx.MouseClickObject = key
	if !Check(c, w, ctx) {
		t.Fatal("key on door should hold")
	}
	if !ctx.SuccessfulObjectClick || ctx.SuccessfulClick {
		t.Errorf("flags = %v/%v", ctx.SuccessfulClick, ctx.SuccessfulObjectClick)
	}

	plain := MustNew(MouseClick)
	plain.SetString(SlotObjectName, "door")
	if Check(plain, w, ctx) {
		t.Error("a plain click must ignore object clicks")
	}

	ev := MustNew(MouseObjectClickEvent)
	if !Check(ev, w, ctx) {
		t.Error("object click event with empty slot matches any object")
	}
	ev.SetObject(0, door)
	if Check(ev, w, ctx) {
		t.Error("object click event with another object must fail")
	}
}

func TestZonesAndDistance(t *testing.T) {
	w, ctx := newWorld(), &Context{}
	g := grid.New(10, 10, 10)
	z := grid.NewZone("porch", geom.Vec2i{X: 2, Y: 2}, geom.Vec2i{X: 4, Y: 4}, true)
	z.Attach(g)
	w.scene.zones["porch"] = z

	cat := animated("cat", "sit")
	cat.R = geom.Vec3f{X: 35, Y: 35}
	dog := animated("dog", "sit")
	dog.R = geom.Vec3f{X: 35, Y: 75}
	w.objects["cat"], w.objects["dog"] = cat, dog

	in := MustNew(ObjectInZone)
	in.SetString(SlotObjectName, "cat")
	in.SetString(SlotZoneName, "porch")
	if !Check(in, w, ctx) {
		t.Error("cat should be on the porch")
	}
	in.SetString(SlotObjectName, "dog")
	if Check(in, w, ctx) {
		t.Error("dog should not be on the porch")
	}

	d := MustNew(ObjectsDistance)
	d.SetString(SlotObjectName, "cat")
	d.SetString(SlotObject2Name, "dog")
	d.SetFloat(SlotObjectsDistance, 0, 40)
	if Check(d, w, ctx) {
		t.Error("distance 40 is not strictly below 40")
	}
	d.SetFloat(SlotObjectsDistance, 0, 41)
	if !Check(d, w, ctx) {
		t.Error("distance 40 is below 41")
	}

	w.events[input.LeftDown] = true
	w.scene.pos = geom.Vec2f{X: 25, Y: 25}
	zc := MustNew(MouseZoneClick)
	zc.SetString(SlotClickZoneName, "porch")
	if !Check(zc, w, ctx) || !ctx.SuccessfulClick {
		t.Error("click inside the porch should hold")
	}
	w.scene.click = cat
	if Check(zc, w, ctx) {
		t.Error("click on an object is not a zone click")
	}

	anyZone := MustNew(AnyPersonageInZone)
	anyZone.SetObject(0, z)
	w.inZone = true
	if !Check(anyZone, w, ctx) {
		t.Error("ANY_PERSONAGE_IN_ZONE should defer to the world")
	}
}

func TestHover(t *testing.T) {
	w, ctx := newWorld(), &Context{}
	lamp := animated("lamp", "on")
	key := animated("key", "held")
	w.scene.hover = lamp

	h := MustNew(MouseObjectHover)
	h.SetObject(0, lamp)
	h.SetObject(1, key)
	if Check(h, w, ctx) {
		t.Error("nothing carried")
	}
	w.mouse = key
	if !Check(h, w, ctx) {
		t.Error("hovering lamp with key should hold")
	}
	w.events[input.LeftDown] = true
	if Check(h, w, ctx) {
		t.Error("hover conditions are false during a click")
	}
}

func TestPersonageDirection(t *testing.T) {
	w, ctx := newWorld(), &Context{}
	hero := object.New("hero", object.Moving)
	walk := object.NewState("walk", 0)
	walk.Walk = true
	hero.AddState(walk)
	hero.SetState(walk)
	hero.SetDirection(0)
	w.objects["hero"] = hero

	c := MustNew(PersonageStaticDirection)
	c.SetString(SlotPersonageName, "hero")
	c.SetFloat(SlotDirectionAngle, 0, 0.1)
	if !Check(c, w, ctx) {
		t.Error("standing hero faces direction 0")
	}
	c.SetFloat(SlotDirectionAngle, 0, 3.14)
	if Check(c, w, ctx) {
		t.Error("hero does not face backwards")
	}

	walking := MustNew(PersonageWalkDirection)
	walking.SetString(SlotPersonageName, "hero")
	if Check(walking, w, ctx) {
		t.Error("hero is not moving")
	}
}

func TestTimerSaveLoad(t *testing.T) {
	c := MustNew(Timer)
	c.SetTimer(1, 0)
	c.Quant(0.7, nil)
	c.Quant(0.7, nil)

	var buf bytes.Buffer
	w := save.NewWriter(&buf)
	c.Save(w)
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	d := MustNew(Timer)
	d.SetTimer(1, 0)
	if err := d.Load(save.NewReader(&buf)); err != nil {
		t.Fatal(err)
	}
	got, _ := d.Float(SlotTimerPeriod, 1)
	want, _ := c.Float(SlotTimerPeriod, 1)
	if got != want || d.Fired() != c.Fired() {
		t.Errorf("loaded timer = %v/%v, want %v/%v", got, d.Fired(), want, c.Fired())
	}
}
