package condition

import (
	"github.com/nathoo/qdcore/engine/geom"
	"github.com/nathoo/qdcore/engine/grid"
	"github.com/nathoo/qdcore/engine/input"
	"github.com/nathoo/qdcore/engine/object"
)

// Flag is a bit of per-tick click bookkeeping kept by the dispatcher.
type Flag uint32

const (
	// ObjectClick is set when the click was made with an object on the cursor.
	ObjectClick Flag = 1 << iota
	// DialogClick is set when the click selected a dialog phrase.
	DialogClick
	ClickFailed
	ClickWasFailed
	ObjectClickFailed
	ObjectClickWasFailed
)

// Context is the click state shared by every condition evaluated in a tick.
type Context struct {
	Flags Flag

	// MouseClickObject is the object that was on the cursor at click time.
	MouseClickObject *object.Object
	// MouseClickState is the phrase state chosen by a dialog click.
	MouseClickState *object.State

	// Set when a click condition succeeded this tick. The dispatcher
	// turns a click nobody consumed into ClickFailed.
	SuccessfulClick       bool
	SuccessfulObjectClick bool
}

func (c *Context) Has(f Flag) bool { return c.Flags&f != 0 }
func (c *Context) Set(f Flag)      { c.Flags |= f }
func (c *Context) Drop(f Flag)     { c.Flags &^= f }

// ClearClick drops the click bookkeeping at the end of a tick. The failed
// flags move into their "was failed" counterparts.
func (c *Context) ClearClick() {
	was := Flag(0)
	if c.Has(ClickFailed) {
		was |= ClickWasFailed
	}
	if c.Has(ObjectClickFailed) {
		was |= ObjectClickWasFailed
	}
	c.Flags = was
	c.MouseClickObject = nil
	c.MouseClickState = nil
	c.SuccessfulClick = false
	c.SuccessfulObjectClick = false
}

// Valuer is implemented by counters.
type Valuer interface {
	Value() int
}

// Scene is the part of the active scene conditions observe.
type Scene interface {
	MouseClickObject() *object.Object
	MouseRightClickObject() *object.Object
	MouseHoverObject() *object.Object
	MouseClickPos() geom.Vec2f
	Zone(name string) *grid.Zone
}

// World is what the evaluator may query. ActiveScene must return a nil
// interface when no scene is active.
type World interface {
	MouseEventActive(ev input.MouseEvent) bool
	KeyPressed(code int) bool
	ActiveScene() Scene
	ActivePersonage() *object.Object
	// Object looks a name up in the active scene, then globally.
	Object(name string) *object.Object
	// MouseObject is the object currently carried by the cursor, or nil.
	MouseObject() *object.Object
	AnyPersonageInZone(z *grid.Zone) bool
}

// Rand draws uniform integers in [0,n).
type Rand interface {
	Rnd(n int) int
}
