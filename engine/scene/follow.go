package scene

import (
	"math"

	"github.com/nathoo/qdcore/engine/geom"
	"github.com/nathoo/qdcore/engine/grid"
	"github.com/nathoo/qdcore/engine/object"
)

// FollowPersInit sets the follow condition of every personage and forgets
// the obstacles they were walking around. FollowDone also cancels their
// pending move orders.
func (s *Scene) FollowPersInit(f object.Follow) {
	for _, p := range s.personages {
		p.ClearCircuitObjects()
		p.SetFollowCondition(f)
		if f == object.FollowDone {
			p.SetLastMoveOrder(p.R)
		}
	}
}

// following reports whether p walks after the active personage.
func following(p *object.Object) bool {
	return p.HasControl(object.ControlFollowActive) || p.HasControl(object.ControlAttachmentToActiveWithMoving)
}

// inFollow reports whether p takes part in following, the leader included.
func (s *Scene) inFollow(p *object.Object) bool {
	return p == s.selected || following(p)
}

func (s *Scene) followQuant(dt float64) {
	s.followUpdatePath()
	s.followWakening()
	s.followCircuit(dt)
	s.followEndMoving()
}

// followPathSeek sends p to the last move order of the active personage.
func (s *Scene) followPathSeek(p *object.Object, lock bool) bool {
	if p.FollowCondition() == object.FollowUpdatePath {
		s.selected.SetGridZoneAttributes(grid.Selected)
		defer s.selected.DropGridZoneAttributes(grid.Selected)
	}
	return p.Move(s.selected.LastMoveOrder(), lock)
}

// followUpdatePath computes a path for every follower that needs one.
// Followers close to a walking leader wait for it to move away.
func (s *Scene) followUpdatePath() {
	if s.selected == nil {
		return
	}
	for _, p := range s.personages {
		if !following(p) || p == s.selected || p.FollowCondition() != object.FollowUpdatePath || !p.CanMove() {
			continue
		}
		if s.selected.InMotion() && s.selected.R.Sub(p.R).Norm() < p.Movement.FollowMinRadius {
			continue
		}
		if s.followPathSeek(p, true) {
			p.SetFollowCondition(object.FollowMoving)
		} else {
			p.SetFollowCondition(object.FollowWait)
		}
	}
}

// followWakening retries waiting participants once everybody else in the
// follow group is far enough. When nobody walks and no waiting participant
// can start, following is abandoned for everyone.
func (s *Scene) followWakening() {
	if s.selected == nil {
		return
	}

	for _, p := range s.personages {
		if !s.inFollow(p) || p.FollowCondition() != object.FollowWait {
			continue
		}
		if !s.allFar(p) {
			continue
		}
		if s.retry(p) {
			p.SetFollowCondition(object.FollowMoving)
		} else {
			p.SetFollowCondition(object.FollowFullStopWait)
		}
	}

	for _, p := range s.personages {
		if p.InMotion() {
			return
		}
	}

	// Everybody stands still: let one waiting participant try.
	for _, p := range s.personages {
		f := p.FollowCondition()
		if !s.inFollow(p) || (f != object.FollowWait && f != object.FollowFullStopWait) || !p.CanMove() {
			continue
		}
		if s.retry(p) {
			p.SetFollowCondition(object.FollowMoving)
			return
		}
	}
	s.FollowPersInit(object.FollowDone)
}

// allFar reports whether every other follow participant is more than twice
// the sum of collision radii away from p.
func (s *Scene) allFar(p *object.Object) bool {
	for _, q := range s.personages {
		if q == p || !s.inFollow(q) {
			continue
		}
		if p.R.Sub(q.R).Norm() < 2*(p.Radius()+q.Radius()) {
			return false
		}
	}
	return true
}

// retry re-issues the move of a waiting participant and reports whether it
// started walking.
func (s *Scene) retry(p *object.Object) bool {
	if p == s.selected {
		return p.Move(p.LastMoveOrder(), false) && p.InMotion()
	}
	// A leader far enough away does not block the path search.
	r := s.selected.Radius() + 10 + p.Radius()
	if s.selected.R.Sub(p.R).Norm2() > r*r {
		s.selected.SetGridZoneAttributes(grid.Selected)
	}
	ok := s.followPathSeek(p, false)
	s.selected.DropGridZoneAttributes(grid.Selected)
	return ok && p.InMotion()
}

// followCircuit predicts cell collisions one tick ahead between a walking
// participant and every other personage, and resolves each by stopping the
// other one, walking around it, or stopping itself.
func (s *Scene) followCircuit(dt float64) {
	for _, p := range s.personages {
		if !s.inFollow(p) || !p.InMotion() || p.FollowCondition() != object.FollowMoving {
			continue
		}
		pNext, pSize, ok := p.FutureWalkCell(dt)
		if !ok {
			continue
		}

		for _, q := range s.personages {
			if q == p {
				continue
			}
			qCur, qSize, ok1 := q.WalkCell()
			qNext, _, ok2 := q.FutureWalkCell(dt)
			if !ok1 || !ok2 {
				continue
			}
			qFollow := s.inFollow(q)

			if !overlap(pNext, pSize, qNext, qSize) {
				p.RemoveCircuitObject(q)
				continue
			}

			// Stopping the other one is enough when it is only in the way
			// because it is walking.
			if qFollow && q.InMotion() && !overlap(pNext, pSize, qCur, qSize) {
				q.SetFollowCondition(object.FollowWait)
				q.StopMovement()
				continue
			}

			if p.IsCircuitObject(q) {
				continue
			}

			if p.CanMove() && (qFollow || !q.InMotion()) && p.Move(p.LastMoveOrder(), false) {
				p.AddCircuitObject(q)
				q.SetFollowCondition(object.FollowWait)
				q.StopMovement()
				continue
			}

			p.SetFollowCondition(object.FollowFullStopWait)
			p.StopMovement()
		}
	}
}

// overlap reports whether two cell blocks, given by centre and size,
// intersect.
func overlap(a, as, b, bs geom.Vec2i) bool {
	ax, ay := a.X-as.X/2, a.Y-as.Y/2
	bx, by := b.X-bs.X/2, b.Y-bs.Y/2
	return ax < bx+bs.X && bx < ax+as.X && ay < by+bs.Y && by < ay+as.Y
}

// followEndMoving stops followers that came close enough to the leader.
func (s *Scene) followEndMoving() {
	if s.selected == nil {
		return
	}
	for _, p := range s.personages {
		if !following(p) || p == s.selected || p.FollowCondition() != object.FollowMoving {
			continue
		}
		target := s.selected.LastMoveOrder()
		if s.selected.FollowCondition() == object.FollowDone {
			target = s.selected.R
		}
		if target.Sub(p.R).Norm() <= p.Movement.FollowMinRadius {
			p.StopMovement()
			p.SetFollowCondition(object.FollowDone)
		}
	}
}

func attached(p *object.Object) bool {
	return p.HasControl(object.ControlAttachmentWithDirRel) || p.HasControl(object.ControlAttachmentWithoutDirRel)
}

// collisionQuant keeps attached personages on their attacher, lets the
// walking leader push or displace personages in front of it, clears its
// path when asked, and passes its direction on to repeating personages.
func (s *Scene) collisionQuant() {
	for _, p := range s.personages {
		a := p.Attacher()
		if !attached(p) || a == nil {
			continue
		}
		shift := p.Movement.AttachShift
		if p.HasControl(object.ControlAttachmentWithDirRel) {
			shift = shift.Rotate(a.Direction())
			shift = geom.Vec2f{X: math.Round(shift.X), Y: math.Round(shift.Y)}
		}
		p.R = a.R.Add(shift.Vec3(0))
	}

	lead := s.selected
	if lead == nil || !lead.InMotion() {
		return
	}

	blocked := false
	for _, p := range s.personages {
		if p == lead || attached(p) || !p.CanMove() {
			continue
		}
		dist := lead.Radius() + p.Radius()
		if lead.R.Sub(p.R).Norm() < dist {
			angle := lead.CalcDirectionAngle(p.R)
			if math.Abs(geom.DeltaAngle(angle, lead.Direction())) < math.Pi/2 {
				if p.HasControl(object.ControlCollision) {
					p.SetMovementImpulse(lead.Direction())
				}
				if p.HasControl(object.ControlAvoidCollision) {
					p.AvoidCollision(lead)
				}
			}
		}
		if !p.InMotion() {
			blocked = true
		}
	}

	if blocked && lead.HasControl(object.ControlClearPath) {
		lead.SetPathAttributes(grid.PersonagePath)
		for _, p := range s.personages {
			if p == lead || attached(p) || !p.CanMove() || p.InMotion() {
				continue
			}
			if p.CheckGridZoneAttributes(grid.PersonagePath) {
				p.MoveFromPersonagePath()
			}
		}
		lead.ClearPathAttributes(grid.PersonagePath)
	}

	for _, p := range s.personages {
		if p != lead && p.HasControl(object.ControlRepeatActiveMovement) && p.CanMove() {
			p.SetMovementImpulse(lead.Direction())
		}
	}
}
