package scene

import (
	"github.com/sirupsen/logrus"

	"github.com/nathoo/qdcore/engine/condition"
	"github.com/nathoo/qdcore/engine/geom"
	"github.com/nathoo/qdcore/engine/input"
	"github.com/nathoo/qdcore/engine/object"
	"github.com/nathoo/qdcore/logger"
)

// Env is what the scene needs from the dispatcher during a tick.
type Env interface {
	condition.Rand
	Check(c *condition.Condition) bool
	MouseEventActive(ev input.MouseEvent) bool
	// ClickConsumed reports whether this tick's click already went to an
	// object or a dialog phrase.
	ClickConsumed() bool
}

// Quant advances the scene by dt.
func (s *Scene) Quant(dt float64, env Env) {
	// 1. Screen positions.
	for _, o := range s.objects {
		if !o.HasFlag(object.FlagFixedScreen) {
			o.Screen = s.Camera.Project(o.R)
		}
	}

	// 2. Timers of conditional states.
	s.conditionsQuant(dt, env)

	// 3. Screen wrap and zone shadows.
	s.personagesQuant()

	// 4. Following, then 5. collisions.
	s.followQuant(dt)
	s.collisionQuant()

	// 6. Camera.
	s.Camera.Quant(dt)

	// 7. Conditional state activation.
	s.activationQuant(env)

	// 8. A left click on the ground walks the active personage there, and
	// click-reacting personages with it.
	if env.MouseEventActive(input.LeftDown) {
		s.mouseMove(env)
	}

	for _, o := range s.objects {
		o.Quant(dt)
	}

	if s.selected != nil && !s.selected.IsVisible() {
		for _, p := range s.personages {
			if p.IsVisible() && p.IsPersonage() {
				s.SetActivePersonage(p)
				break
			}
		}
	}

	s.clearMouse()
}

func (s *Scene) mouseMove(env Env) {
	p := s.selected
	if p == nil || !p.HasControl(object.ControlMouse) || env.ClickConsumed() || !p.CanMove() {
		return
	}
	cell, ok := s.grid.CellIndex(s.mouseClickPos)
	if !ok {
		return
	}
	pos := s.grid.CellCenter(cell)
	pos.Z = p.R.Z

	p.ClearQueuedState()
	p.Move(pos, false)
	s.FollowPersInit(object.FollowUpdatePath)

	switch {
	case p.InMotion():
		p.SetFollowCondition(object.FollowMoving)
	case p.CanMove():
		p.SetFollowCondition(object.FollowWait)
	default:
		p.SetFollowCondition(object.FollowDone)
	}

	for _, o := range s.personages {
		if o != p && o.HasControl(object.ControlActiveClickReacting) {
			o.Move(pos, false)
		}
	}
	logger.Log.WithFields(logrus.Fields{
		"scene":  s.Name(),
		"object": p.Name(),
		"x":      pos.X,
		"y":      pos.Y,
		"moving": p.InMotion(),
	}).Debug("mouse move order")
}

// personagesQuant wraps personages around a cycled scene and applies the
// shadow of the zones they stand in.
func (s *Scene) personagesQuant() {
	if s.HasFlag(FlagCycleX | FlagCycleY) {
		for _, p := range s.personages {
			scr := s.Camera.Project(p.R)
			wrapped := s.wrap(scr)
			if wrapped != scr {
				r := s.Camera.Unproject(wrapped)
				p.R.X, p.R.Y = r.X, r.Y
			}
		}
	}

	for _, p := range s.personages {
		p.ShadowColor, p.ShadowAlpha = 0, 0
	}
	for _, z := range s.zones {
		if !z.HasShadow {
			continue
		}
		for _, p := range s.personages {
			if z.ContainsPoint(p.R.XY()) {
				p.ShadowColor, p.ShadowAlpha = z.ShadowColor, z.ShadowAlpha
			}
		}
	}
}

// wrap brings a screen point within half a screen of the centre on the
// cycled axes.
func (s *Scene) wrap(p geom.Vec2f) geom.Vec2f {
	sx, sy := float64(s.Camera.ScreenSize.X), float64(s.Camera.ScreenSize.Y)
	if s.HasFlag(FlagCycleX) && sx > 0 {
		if p.X > sx {
			p.X -= sx
		} else if p.X < 0 {
			p.X += sx
		}
	}
	if s.HasFlag(FlagCycleY) && sy > 0 {
		if p.Y > sy {
			p.Y -= sy
		} else if p.Y < 0 {
			p.Y += sy
		}
	}
	return p
}
