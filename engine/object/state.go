package object

import (
	"github.com/nathoo/qdcore/engine/geom"
	"github.com/nathoo/qdcore/engine/named"
)

// State is one state of an object: an animation, a walk, or a plain marker.
type State struct {
	named.Base

	// Duration is the running time after which the state counts as
	// finished. Zero finishes at once.
	Duration float64
	// Hidden hides the object while the state is active.
	Hidden bool
	// Walk marks the walking state of a personage. Walk direction
	// conditions only hold while it is current.
	Walk bool
	// WalkTo sends a moving object to this position before activating.
	WalkTo *geom.Vec3f

	index        int
	curTime      float64
	wasActivated bool
}

// NewState returns a state with the given duration.
func NewState(name string, duration float64) *State {
	return &State{Base: named.NewBase(name, named.TypeObjState), Duration: duration}
}

// Object returns the object owning s.
func (s *State) Object() *Object {
	o, _ := s.Owner().(*Object)
	return o
}

func (s *State) Index() int             { return s.index }
func (s *State) CurTime() float64       { return s.curTime }
func (s *State) WasActivated() bool     { return s.wasActivated }
func (s *State) SetCurTime(t float64)   { s.curTime = t }
func (s *State) SetWasActivated(b bool) { s.wasActivated = b }

// IsActive reports whether s is the current state of its object.
func (s *State) IsActive() bool {
	o := s.Object()
	return o != nil && o.IsStateActive(s)
}

// Finished reports whether the state has run its full duration.
func (s *State) Finished() bool {
	return s.curTime >= s.Duration
}

// Phase is the running time over the duration, clamped to [0,1].
func (s *State) Phase() float64 {
	if s.Duration <= 0 {
		return 1
	}
	p := s.curTime / s.Duration
	if p > 1 {
		return 1
	}
	return p
}

func (s *State) start() {
	s.curTime = 0
	s.wasActivated = true
}

func (s *State) reset() {
	s.curTime = 0
	s.wasActivated = false
}
