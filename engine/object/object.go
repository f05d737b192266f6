// Package object implements scene objects: static, animated, moving
// (personages) and the mouse object, together with their states.
//
// An object is a closed variant selected by Kind. Capabilities are queried
// with methods (IsAnimated, IsMoving) rather than by type assertion.
package object

import (
	"github.com/nathoo/qdcore/engine/geom"
	"github.com/nathoo/qdcore/engine/named"
)

// Kind selects the object variant.
type Kind int

const (
	Static Kind = iota
	Animated
	Moving
	Mouse
)

func (k Kind) String() string {
	switch k {
	case Static:
		return "static"
	case Animated:
		return "animated"
	case Moving:
		return "personage"
	case Mouse:
		return "mouse"
	}
	return "unknown"
}

// NamedType maps a kind to its named-object tag.
func (k Kind) NamedType() named.Type {
	switch k {
	case Animated:
		return named.TypeAnimatedObj
	case Moving:
		return named.TypeMovingObj
	case Mouse:
		return named.TypeMouseObj
	}
	return named.TypeStaticObj
}

// Flag is a bit set of object flags.
type Flag uint32

const (
	FlagHidden Flag = 1 << iota
	FlagDisableMouse
	FlagNonPlayer
	FlagCycleX
	FlagCycleY
	FlagFixedScreen
)

// Object is a game object placed in a scene or in the global list.
type Object struct {
	named.Base

	kind  Kind
	R     geom.Vec3f
	Bound geom.Vec3f // full extents of the bounding box
	flags Flag

	// Screen is the position after the scene camera projection.
	Screen geom.Vec2f

	states    []*State
	cur, prev int
	queued    int
	idle      float64
	selected  bool

	ShadowColor uint32
	ShadowAlpha int

	// Movement is non-nil for moving objects.
	Movement *Movement

	initR     geom.Vec3f
	initFlags Flag
	initState int
}

// New returns an object of the given kind. Moving objects get a Movement
// block with default parameters.
func New(name string, kind Kind) *Object {
	o := &Object{
		Base:      named.NewBase(name, kind.NamedType()),
		kind:      kind,
		cur:       -1,
		prev:      -1,
		queued:    -1,
		initState: -1,
	}
	if kind == Moving {
		o.Movement = newMovement()
	}
	return o
}

func (o *Object) Kind() Kind          { return o.kind }
func (o *Object) IsAnimated() bool    { return o.kind == Animated || o.kind == Moving || o.kind == Mouse }
func (o *Object) IsMoving() bool      { return o.kind == Moving }
func (o *Object) Flags() Flag         { return o.flags }
func (o *Object) HasFlag(f Flag) bool { return o.flags&f != 0 }
func (o *Object) SetFlag(f Flag)      { o.flags |= f }
func (o *Object) DropFlag(f Flag)     { o.flags &^= f }
func (o *Object) IsVisible() bool     { return !o.HasFlag(FlagHidden) }
func (o *Object) IdleTime() float64   { return o.idle }
func (o *Object) Selected() bool      { return o.selected }

// ToggleSelection marks the object as the active personage.
func (o *Object) ToggleSelection(on bool) { o.selected = on }

// Hide and Show toggle FlagHidden.
func (o *Object) Hide() { o.SetFlag(FlagHidden) }
func (o *Object) Show() { o.DropFlag(FlagHidden) }

// IsPersonage reports whether the object is a moving object controllable
// by the player.
func (o *Object) IsPersonage() bool {
	return o.kind == Moving && !o.HasFlag(FlagNonPlayer)
}

// Snapshot records the current position, flags and state as the values
// Reset returns to.
func (o *Object) Snapshot() {
	o.initR = o.R
	o.initFlags = o.flags
	o.initState = o.cur
}

// Reset restores the values captured by Snapshot.
func (o *Object) Reset() {
	o.R = o.initR
	o.flags = o.initFlags
	o.prev = -1
	o.queued = -1
	o.idle = 0
	o.selected = false
	for _, s := range o.states {
		s.reset()
	}
	o.cur = -1
	if o.initState >= 0 {
		o.SetState(o.states[o.initState])
	}
	if o.Movement != nil {
		o.Movement.reset(o.R)
	}
}

// AddState appends s to the object's state list.
func (o *Object) AddState(s *State) {
	s.SetOwner(o)
	s.index = len(o.states)
	o.states = append(o.states, s)
}

func (o *Object) States() []*State { return o.states }

// State looks a state up by name.
func (o *Object) State(name string) *State {
	for _, s := range o.states {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// CurState returns the active state, or nil.
func (o *Object) CurState() *State {
	if o.cur < 0 || o.cur >= len(o.states) {
		return nil
	}
	return o.states[o.cur]
}

// PrevState returns the state active before the current one, or nil.
func (o *Object) PrevState() *State {
	if o.prev < 0 || o.prev >= len(o.states) {
		return nil
	}
	return o.states[o.prev]
}

// QueuedState returns the state waiting for the object to finish walking.
func (o *Object) QueuedState() *State {
	if o.queued < 0 || o.queued >= len(o.states) {
		return nil
	}
	return o.states[o.queued]
}

func (o *Object) owns(s *State) bool {
	return s != nil && s.index < len(o.states) && o.states[s.index] == s
}

// SetState makes s the current state, restarting it if it already is.
func (o *Object) SetState(s *State) {
	if !o.owns(s) {
		return
	}
	if o.cur != s.index {
		o.prev = o.cur
	}
	o.cur = s.index
	o.queued = -1
	o.idle = 0
	s.start()
	if s.Hidden {
		o.Hide()
	} else if o.kind != Mouse {
		o.Show()
	}
}

// QueueState activates s. A moving object whose state requires a walk is
// sent to the state's walk target first and switches on arrival.
func (o *Object) QueueState(s *State) {
	if !o.owns(s) {
		return
	}
	if o.Movement != nil && s.WalkTo != nil && o.Movement.grid != nil {
		if geom.PlaneDist2(o.R, *s.WalkTo) > 0.25 && o.Move(*s.WalkTo, false) {
			o.queued = s.index
			return
		}
	}
	o.SetState(s)
}

// ClearQueuedState drops a state waiting behind a walk.
func (o *Object) ClearQueuedState() { o.queued = -1 }

// IsStateActive reports whether s is the current state.
func (o *Object) IsStateActive(s *State) bool {
	return o.owns(s) && o.cur == s.index
}

// WasStatePrevious reports whether s was the state before the current one.
func (o *Object) WasStatePrevious(s *State) bool {
	return o.owns(s) && o.prev == s.index
}

// IsStateWaiting reports whether s is queued behind a walk.
func (o *Object) IsStateWaiting(s *State) bool {
	return o.owns(s) && o.queued == s.index
}

// AnimationPhase is the running time of the current state over its
// duration, clamped to [0,1].
func (o *Object) AnimationPhase() float64 {
	s := o.CurState()
	if s == nil {
		return 0
	}
	return s.Phase()
}

// Hit reports whether the plane point p lies in the object's bounding box.
func (o *Object) Hit(p geom.Vec2f) bool {
	if !o.IsVisible() {
		return false
	}
	hx, hy := o.Bound.X/2, o.Bound.Y/2
	return p.X >= o.R.X-hx && p.X <= o.R.X+hx && p.Y >= o.R.Y-hy && p.Y <= o.R.Y+hy
}

// IntersectsBound reports whether the bounding boxes of o and p overlap on
// the plane.
func (o *Object) IntersectsBound(p *Object) bool {
	dx := o.R.X - p.R.X
	dy := o.R.Y - p.R.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx <= (o.Bound.X+p.Bound.X)/2 && dy <= (o.Bound.Y+p.Bound.Y)/2
}

// Quant advances the current state clock, the idle timer and movement.
func (o *Object) Quant(dt float64) {
	if s := o.CurState(); s != nil {
		s.curTime += dt
	}
	o.idle += dt
	if o.Movement != nil {
		o.quantMovement(dt)
		if o.queued >= 0 && !o.Movement.moving {
			o.SetState(o.states[o.queued])
		}
	}
}
