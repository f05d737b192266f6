// Package condition implements the predicates that gate trigger elements
// and conditional object states.
//
// A Condition is a closed tagged variant: its Type fixes, once and for all,
// the typed data slots and the number of object reference slots it carries.
// Setters refuse anything outside that layout with ErrInvalidArity.
package condition

import (
	"errors"
	"fmt"

	"github.com/nathoo/qdcore/engine/named"
)

var (
	ErrInvalidArity = errors.New("condition: invalid arity")
	ErrUnknownType  = errors.New("condition: unknown type")
)

// Internal marks a condition not tied to any incoming link type.
const Internal = -1

// Named data and object slot indices. Object slot i holds the resolved
// object named by string slot i.
const (
	SlotObjectName      = 0
	SlotMouseObjectName = 1
	SlotZoneName        = 1
	SlotClickZoneName   = 0
	SlotObject2Name     = 1
	SlotObjectsDistance = 2
	SlotPersonageName   = 0
	SlotDirectionAngle  = 1
	SlotTimerPeriod     = 0
	SlotTimerRnd        = 1
	SlotObjectStateName = 1
	SlotAnimationPhase  = 2
)

type value struct {
	s string
	i []int
	f []float64
}

type objectRef struct {
	path string
	obj  named.Named
}

// Condition is one predicate instance.
type Condition struct {
	typ      Type
	inversed bool
	data     []value
	objects  []objectRef
	owner    named.Named

	// LinkType pairs the condition with the parent links of that type.
	// Internal conditions gate every activation.
	LinkType int
}

// New returns a condition of type t with empty slots. The negative sugar
// kinds are rewritten to their positive form, inverted.
func New(t Type) (*Condition, error) {
	inversed := false
	switch t {
	case ObjectNotInState:
		t, inversed = ObjectState, true
	case ObjectStateWasNotActivated:
		t, inversed = ObjectStateWasActivated, true
	}
	if t < 0 || t >= typeCount {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, int(t))
	}
	l := layouts[t]
	c := &Condition{
		typ:      t,
		inversed: inversed,
		data:     make([]value, len(l.Data)),
		objects:  make([]objectRef, l.Objects),
		LinkType: Internal,
	}
	for i, d := range l.Data {
		switch d.Kind {
		case SlotInt:
			c.data[i].i = make([]int, d.N)
		case SlotFloat:
			c.data[i].f = make([]float64, d.N)
		}
	}
	return c, nil
}

// MustNew is New for types known to be valid.
func MustNew(t Type) *Condition {
	c, err := New(t)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Condition) Type() Type             { return c.typ }
func (c *Condition) IsInversed() bool       { return c.inversed }
func (c *Condition) Inverse()               { c.inversed = !c.inversed }
func (c *Condition) SetInversed(on bool)    { c.inversed = on }
func (c *Condition) Owner() named.Named     { return c.owner }
func (c *Condition) SetOwner(o named.Named) { c.owner = o }

// DataCount and ObjectCount report the layout of the condition.
func (c *Condition) DataCount() int   { return len(c.data) }
func (c *Condition) ObjectCount() int { return len(c.objects) }

func (c *Condition) slot(i int, kind SlotKind, n int) error {
	l := layouts[c.typ]
	if i < 0 || i >= len(l.Data) {
		return fmt.Errorf("%w: %s has no data slot %d", ErrInvalidArity, c.typ, i)
	}
	if l.Data[i].Kind != kind {
		return fmt.Errorf("%w: %s slot %d is %s, not %s", ErrInvalidArity, c.typ, i, l.Data[i].Kind, kind)
	}
	if n < 0 || (kind != SlotString && n >= l.Data[i].N) {
		return fmt.Errorf("%w: %s slot %d has %d values", ErrInvalidArity, c.typ, i, l.Data[i].N)
	}
	return nil
}

func (c *Condition) SetString(i int, s string) error {
	if err := c.slot(i, SlotString, 0); err != nil {
		return err
	}
	c.data[i].s = s
	return nil
}

func (c *Condition) SetInt(i, n, v int) error {
	if err := c.slot(i, SlotInt, n); err != nil {
		return err
	}
	c.data[i].i[n] = v
	return nil
}

func (c *Condition) SetFloat(i, n int, v float64) error {
	if err := c.slot(i, SlotFloat, n); err != nil {
		return err
	}
	c.data[i].f[n] = v
	return nil
}

// String returns the string in data slot i.
func (c *Condition) String(i int) (string, bool) {
	if c.slot(i, SlotString, 0) != nil {
		return "", false
	}
	return c.data[i].s, true
}

// Int returns value n of int slot i.
func (c *Condition) Int(i, n int) (int, bool) {
	if c.slot(i, SlotInt, n) != nil {
		return 0, false
	}
	return c.data[i].i[n], true
}

// Float returns value n of float slot i.
func (c *Condition) Float(i, n int) (float64, bool) {
	if c.slot(i, SlotFloat, n) != nil {
		return 0, false
	}
	return c.data[i].f[n], true
}

// SetObjectPath stores the reference path of object slot i. The cached
// object is dropped until the next resolution.
func (c *Condition) SetObjectPath(i int, path string) error {
	if i < 0 || i >= len(c.objects) {
		return fmt.Errorf("%w: %s has no object slot %d", ErrInvalidArity, c.typ, i)
	}
	c.objects[i] = objectRef{path: path}
	return nil
}

// SetObject stores a resolved object in slot i.
func (c *Condition) SetObject(i int, o named.Named) error {
	if i < 0 || i >= len(c.objects) {
		return fmt.Errorf("%w: %s has no object slot %d", ErrInvalidArity, c.typ, i)
	}
	c.objects[i].obj = o
	if o != nil && c.objects[i].path == "" {
		c.objects[i].path = named.Path(o)
	}
	return nil
}

// Object returns the resolved object of slot i, or nil.
func (c *Condition) Object(i int) named.Named {
	if i < 0 || i >= len(c.objects) {
		return nil
	}
	return c.objects[i].obj
}

// ObjectPath returns the reference path of slot i.
func (c *Condition) ObjectPath(i int) string {
	if i < 0 || i >= len(c.objects) {
		return ""
	}
	return c.objects[i].path
}

// ResolveObjects looks every object path up with fn. Unresolved paths are
// returned; their slots stay nil and the condition evaluates false.
func (c *Condition) ResolveObjects(fn func(path string) named.Named) []string {
	var missing []string
	for i := range c.objects {
		ref := &c.objects[i]
		if ref.path == "" {
			continue
		}
		ref.obj = fn(ref.path)
		if ref.obj == nil {
			missing = append(missing, ref.path)
		}
	}
	return missing
}

// MarkInTriggers flags every referenced object as used by triggers.
func (c *Condition) MarkInTriggers() {
	for _, ref := range c.objects {
		if ref.obj != nil {
			ref.obj.SetInTriggers(true)
		}
	}
}
