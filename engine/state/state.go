// Package state holds the runtime registry of a game: its scenes, global
// objects, counters and trigger chains. It resolves the multi-level
// references used by scripts, conditions and saves against that registry.
package state

import (
	"errors"
	"fmt"

	"github.com/nathoo/qdcore/engine/counter"
	"github.com/nathoo/qdcore/engine/named"
	"github.com/nathoo/qdcore/engine/object"
	"github.com/nathoo/qdcore/engine/scene"
	"github.com/nathoo/qdcore/engine/trigger"
)

var ErrDuplicate = errors.New("state: duplicate name")

// Registry owns every named entity of a running game. Lists keep
// registration order, which is also the save order.
type Registry struct {
	scenes   []*scene.Scene
	globals  []*object.Object
	counters []*counter.Counter
	chains   []*trigger.Chain
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{}
}

func (r *Registry) Scenes() []*scene.Scene       { return r.scenes }
func (r *Registry) Globals() []*object.Object    { return r.globals }
func (r *Registry) Counters() []*counter.Counter { return r.counters }
func (r *Registry) Chains() []*trigger.Chain     { return r.chains }

// AddScene registers a scene. Scene names are unique.
func (r *Registry) AddScene(s *scene.Scene) error {
	if r.Scene(s.Name()) != nil {
		return fmt.Errorf("%w: scene %q", ErrDuplicate, s.Name())
	}
	r.scenes = append(r.scenes, s)
	return nil
}

// AddGlobal registers an object that lives outside every scene, such as
// the inventory items or the mouse object.
func (r *Registry) AddGlobal(o *object.Object) error {
	if r.Global(o.Name()) != nil {
		return fmt.Errorf("%w: global object %q", ErrDuplicate, o.Name())
	}
	o.SetOwner(nil)
	r.globals = append(r.globals, o)
	return nil
}

func (r *Registry) AddCounter(c *counter.Counter) error {
	if r.Counter(c.Name()) != nil {
		return fmt.Errorf("%w: counter %q", ErrDuplicate, c.Name())
	}
	r.counters = append(r.counters, c)
	return nil
}

func (r *Registry) AddChain(ch *trigger.Chain) error {
	if r.Chain(ch.Name()) != nil {
		return fmt.Errorf("%w: chain %q", ErrDuplicate, ch.Name())
	}
	r.chains = append(r.chains, ch)
	return nil
}

func (r *Registry) Scene(name string) *scene.Scene {
	for _, s := range r.scenes {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

func (r *Registry) Global(name string) *object.Object {
	for _, o := range r.globals {
		if o.Name() == name {
			return o
		}
	}
	return nil
}

func (r *Registry) Counter(name string) *counter.Counter {
	for _, c := range r.counters {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

func (r *Registry) Chain(name string) *trigger.Chain {
	for _, ch := range r.chains {
		if ch.Name() == name {
			return ch
		}
	}
	return nil
}

// Object looks name up in the given scene first, then among the global
// objects. A nil scene searches globals only.
func (r *Registry) Object(s *scene.Scene, name string) *object.Object {
	if s != nil {
		if o := s.Object(name); o != nil {
			return o
		}
	}
	return r.Global(name)
}

// Resolve returns the entity a reference path designates, or nil.
//
// A one-level path names a scene, a counter, a chain or a global object,
// tried in that order. Deeper paths start at a scene, or at the global
// object list when the first level is named.GlobalScope:
//
//	hall               scene
//	hall:door          object, zone or music track of a scene
//	hall:door:open     state of a scene object
//	global:key:held    state of a global object
func (r *Registry) Resolve(ref string) named.Named {
	parts := named.SplitPath(ref)
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return r.resolveTop(parts[0])
	}

	if parts[0] == named.GlobalScope {
		o := r.Global(parts[1])
		if o == nil {
			return nil
		}
		return descend(o, parts[2:])
	}

	s := r.Scene(parts[0])
	if s == nil {
		return nil
	}
	child := s.Child(parts[1])
	if child == nil {
		return nil
	}
	if len(parts) == 2 {
		return child
	}
	o, ok := child.(*object.Object)
	if !ok {
		return nil
	}
	return descend(o, parts[2:])
}

func (r *Registry) resolveTop(name string) named.Named {
	if s := r.Scene(name); s != nil {
		return s
	}
	if c := r.Counter(name); c != nil {
		return c
	}
	if ch := r.Chain(name); ch != nil {
		return ch
	}
	if o := r.Global(name); o != nil {
		return o
	}
	return nil
}

// descend resolves the levels below an object. Only states live there.
func descend(o *object.Object, rest []string) named.Named {
	switch len(rest) {
	case 0:
		return o
	case 1:
		if st := o.State(rest[0]); st != nil {
			return st
		}
	}
	return nil
}

// ResolveObject is Resolve restricted to objects.
func (r *Registry) ResolveObject(ref string) *object.Object {
	o, _ := r.Resolve(ref).(*object.Object)
	return o
}

// ResolveState is Resolve restricted to object states.
func (r *Registry) ResolveState(ref string) *object.State {
	st, _ := r.Resolve(ref).(*object.State)
	return st
}

// Ref returns the reference path of n. Resolve(Ref(n)) yields n for every
// entity held by the registry.
func Ref(n named.Named) string {
	return named.Path(n)
}

// Init returns every scene, global object and counter to its scripted
// state and resets every chain.
func (r *Registry) Init() {
	for _, s := range r.scenes {
		s.Init()
	}
	for _, o := range r.globals {
		o.Reset()
	}
	for _, c := range r.counters {
		c.Reset()
	}
	for _, ch := range r.chains {
		ch.Reset()
		ch.InitElements()
	}
}
