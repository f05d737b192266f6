// Package counter implements named integer counters driven by gameplay and
// by the activation of object states.
package counter

import (
	"errors"
	"fmt"

	"github.com/nathoo/qdcore/engine/named"
	"github.com/nathoo/qdcore/engine/object"
	"github.com/nathoo/qdcore/engine/save"
)

var ErrElementCountMismatch = errors.New("counter: element count mismatch")

// Flag is a bit set of counter options.
type Flag int

const (
	// FlagPositive clamps negative values to zero.
	FlagPositive Flag = 1 << iota
)

// Element watches an object state. Each time the state becomes active the
// counter goes up, or down when Increment is false.
type Element struct {
	Ref       string
	Increment bool

	state      *object.State
	lastActive bool
}

// State returns the watched state, nil while unresolved.
func (e *Element) State() *object.State { return e.state }

// Resolve binds the element to its state.
func (e *Element) Resolve(s *object.State) {
	e.state = s
	if s != nil {
		e.lastActive = s.IsActive()
	}
}

// quant reports an inactive to active edge of the watched state.
func (e *Element) quant() bool {
	if e.state == nil {
		return false
	}
	active := e.state.IsActive()
	if active == e.lastActive {
		return false
	}
	e.lastActive = active
	return active
}

// Counter is a named integer. A positive Limit wraps the value to zero once
// it reaches the limit.
type Counter struct {
	named.Base

	Limit int
	Flags Flag
	// TriggerDelta is added when a trigger element starts the counter.
	TriggerDelta int

	value    int
	elements []*Element
}

// New returns a counter at zero with a trigger delta of one.
func New(name string) *Counter {
	return &Counter{Base: named.NewBase(name, named.TypeCounter), TriggerDelta: 1}
}

func (c *Counter) Value() int            { return c.value }
func (c *Counter) Elements() []*Element  { return c.elements }
func (c *Counter) HasFlag(f Flag) bool   { return c.Flags&f != 0 }
func (c *Counter) AddElement(e *Element) { c.elements = append(c.elements, e) }
func (c *Counter) AddValue(delta int)    { c.SetValue(c.value + delta) }
func (c *Counter) String() string        { return fmt.Sprintf("%s=%d", c.Name(), c.value) }

// SetValue stores v, then applies the limit wrap and the positive clamp.
func (c *Counter) SetValue(v int) {
	c.value = v
	if c.Limit > 0 && c.value >= c.Limit {
		c.value = 0
	}
	if c.HasFlag(FlagPositive) && c.value < 0 {
		c.value = 0
	}
}

// Quant applies one step per watched state that became active since the
// previous call.
func (c *Counter) Quant() {
	v := c.value
	for _, e := range c.elements {
		if e.quant() {
			if e.Increment {
				v++
			} else {
				v--
			}
		}
	}
	if v != c.value {
		c.SetValue(v)
	}
}

// Reset sets the value to zero and resamples the watched states.
func (c *Counter) Reset() {
	c.value = 0
	for _, e := range c.elements {
		e.Resolve(e.state)
	}
}

// Save writes the value and the last observed activity of each element.
func (c *Counter) Save(w *save.Writer) {
	w.Int(c.value)
	w.Int(len(c.elements))
	for _, e := range c.elements {
		w.Bool(e.lastActive)
	}
}

// Load reads a record written by Save. Nothing is applied on mismatch.
func (c *Counter) Load(r *save.Reader) error {
	v := r.Int()
	n := r.Int()
	if err := r.Err(); err != nil {
		return err
	}
	if n != len(c.elements) {
		return fmt.Errorf("%w: %s has %d, save has %d", ErrElementCountMismatch, c.Name(), len(c.elements), n)
	}
	last := make([]bool, n)
	for i := range last {
		last[i] = r.Bool()
	}
	if err := r.Err(); err != nil {
		return err
	}
	c.value = v
	for i, e := range c.elements {
		e.lastActive = last[i]
	}
	return nil
}
