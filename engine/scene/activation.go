package scene

import (
	"github.com/nathoo/qdcore/engine/condition"
	"github.com/nathoo/qdcore/engine/object"
)

// Mode combines the conditions of a conditional state.
type Mode int

const (
	ModeAnd Mode = iota
	ModeOr
)

func (m Mode) String() string {
	if m == ModeOr {
		return "or"
	}
	return "and"
}

// Activation switches an object to State whenever its conditions hold.
type Activation struct {
	State      *object.State
	Mode       Mode
	Conditions []*condition.Condition
}

// AddActivation registers conditions that activate st. The state becomes
// the owner of every condition so that owner lookups reach its object.
func (s *Scene) AddActivation(st *object.State, mode Mode, conds ...*condition.Condition) *Activation {
	for _, c := range conds {
		if c.Owner() == nil {
			c.SetOwner(st)
		}
	}
	a := &Activation{State: st, Mode: mode, Conditions: conds}
	s.activations = append(s.activations, a)
	return a
}

func (s *Scene) Activations() []*Activation { return s.activations }

// holds evaluates the conditions under the activation mode. A state
// without conditions never activates on its own.
func (a *Activation) holds(env Env) bool {
	if len(a.Conditions) == 0 {
		return false
	}
	for _, c := range a.Conditions {
		ok := env.Check(c)
		if a.Mode == ModeOr && ok {
			return true
		}
		if a.Mode == ModeAnd && !ok {
			return false
		}
	}
	return a.Mode == ModeAnd
}

// conditionsQuant advances the timers of every activation condition.
func (s *Scene) conditionsQuant(dt float64, rnd condition.Rand) {
	for _, a := range s.activations {
		for _, c := range a.Conditions {
			c.Quant(dt, rnd)
		}
	}
}

// activationQuant activates, for each object, the first conditional state
// whose conditions hold. Nothing happens when that state is already
// current.
func (s *Scene) activationQuant(env Env) {
	done := make(map[*object.Object]bool)
	for _, a := range s.activations {
		o := a.State.Object()
		if o == nil || done[o] || !a.holds(env) {
			continue
		}
		done[o] = true
		if !o.IsStateActive(a.State) && !o.IsStateWaiting(a.State) {
			o.QueueState(a.State)
		}
	}
}
