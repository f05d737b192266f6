package grid

import (
	"github.com/nathoo/qdcore/engine/geom"
	"github.com/nathoo/qdcore/engine/named"
)

// Zone is a named rectangle of grid cells. A zone that is switched off makes
// its cells impassable.
type Zone struct {
	named.Base

	Min, Max    geom.Vec2i // inclusive cell bounds
	HasShadow   bool
	ShadowColor uint32
	ShadowAlpha int

	initialState bool
	state        bool
	grid         *Grid
}

// NewZone returns a zone covering the cells from min to max inclusive.
func NewZone(name string, min, max geom.Vec2i, on bool) *Zone {
	if max.X < min.X {
		min.X, max.X = max.X, min.X
	}
	if max.Y < min.Y {
		min.Y, max.Y = max.Y, min.Y
	}
	return &Zone{
		Base:         named.NewBase(name, named.TypeGridZone),
		Min:          min,
		Max:          max,
		initialState: on,
		state:        on,
	}
}

// Attach binds the zone to a grid and applies its current state.
func (z *Zone) Attach(g *Grid) {
	z.grid = g
	z.apply()
}

func (z *Zone) State() bool { return z.state }

// SetState switches the zone and updates the grid.
func (z *Zone) SetState(on bool) {
	z.state = on
	z.apply()
}

// Reset restores the scripted initial state.
func (z *Zone) Reset() { z.SetState(z.initialState) }

func (z *Zone) apply() {
	if z.grid == nil {
		return
	}
	for y := z.Min.Y; y <= z.Max.Y; y++ {
		for x := z.Min.X; x <= z.Max.X; x++ {
			c := geom.Vec2i{X: x, Y: y}
			if z.state {
				z.grid.DropAttr(c, Impassable)
			} else {
				z.grid.SetAttr(c, Impassable)
			}
		}
	}
}

// ContainsCell reports whether c lies in the zone.
func (z *Zone) ContainsCell(c geom.Vec2i) bool {
	return c.X >= z.Min.X && c.X <= z.Max.X && c.Y >= z.Min.Y && c.Y <= z.Max.Y
}

// ContainsPoint reports whether the plane point p falls in a zone cell.
func (z *Zone) ContainsPoint(p geom.Vec2f) bool {
	if z.grid == nil {
		return false
	}
	c, ok := z.grid.CellIndex(p)
	return ok && z.ContainsCell(c)
}

// Center returns the plane position of the zone centre.
func (z *Zone) Center() geom.Vec3f {
	if z.grid == nil {
		return geom.Vec3f{}
	}
	a := z.grid.CellCenter(z.Min)
	b := z.grid.CellCenter(z.Max)
	return geom.Vec3f{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}
