package object

import (
	"errors"
	"fmt"

	"github.com/nathoo/qdcore/engine/geom"
	"github.com/nathoo/qdcore/engine/save"
)

var ErrStateCountMismatch = errors.New("object: state count mismatch")

func writeVec(w *save.Writer, v geom.Vec3f) {
	w.Float(v.X)
	w.Float(v.Y)
	w.Float(v.Z)
}

func readVec(r *save.Reader) geom.Vec3f {
	return geom.Vec3f{X: r.Float(), Y: r.Float(), Z: r.Float()}
}

// Save writes the live state of the object.
func (o *Object) Save(w *save.Writer) {
	writeVec(w, o.R)
	w.Int(int(o.flags))
	w.Int(o.cur)
	w.Int(o.prev)
	w.Int(o.queued)
	w.Float(o.idle)
	w.Bool(o.selected)

	w.Int(len(o.states))
	for _, s := range o.states {
		w.Float(s.curTime)
		w.Bool(s.wasActivated)
	}

	w.Bool(o.Movement != nil)
	if m := o.Movement; m != nil {
		w.Float(m.direction)
		writeVec(w, m.targetR)
		w.Float(m.targetAngle)
		w.Bool(m.moving)
		w.Int(m.pathLen)
		w.Int(m.pathIdx)
		for i := 0; i < m.pathLen; i++ {
			writeVec(w, m.path[i])
		}
		writeVec(w, m.lastMoveOrder)
		w.Int(int(m.follow))
		w.Float(m.impulseDir)
		w.Float(m.impulseTimer)
		w.Float(m.impulseStart)
		w.Bool(m.impulseMode)
		w.Bool(m.controlDisabled)
		w.String(m.AttacherRef)
	}
}

type stateRecord struct {
	curTime      float64
	wasActivated bool
}

// Load reads a record written by Save. The object is left untouched when
// the record does not match its structure.
func (o *Object) Load(r *save.Reader) error {
	pos := readVec(r)
	flags := Flag(r.Int())
	cur, prev, queued := r.Int(), r.Int(), r.Int()
	idle := r.Float()
	selected := r.Bool()

	n := r.Int()
	if err := r.Err(); err != nil {
		return err
	}
	if n != len(o.states) {
		return fmt.Errorf("%w: %s has %d states, save has %d", ErrStateCountMismatch, o.Name(), len(o.states), n)
	}
	states := make([]stateRecord, n)
	for i := range states {
		states[i] = stateRecord{curTime: r.Float(), wasActivated: r.Bool()}
	}
	for _, idx := range []int{cur, prev, queued} {
		if idx < -1 || idx >= n {
			return fmt.Errorf("%w: state index %d out of range", save.ErrCorrupt, idx)
		}
	}

	hasMovement := r.Bool()
	if err := r.Err(); err != nil {
		return err
	}
	if hasMovement != (o.Movement != nil) {
		return fmt.Errorf("%w: %s movement block mismatch", save.ErrCorrupt, o.Name())
	}
	var mv Movement
	if hasMovement {
		mv.direction = r.Float()
		mv.targetR = readVec(r)
		mv.targetAngle = r.Float()
		mv.moving = r.Bool()
		mv.pathLen = r.Int()
		mv.pathIdx = r.Int()
		if err := r.Err(); err != nil {
			return err
		}
		if mv.pathLen < 0 || mv.pathLen > PathLength {
			return fmt.Errorf("%w: %d points", ErrPathBufferOverflow, mv.pathLen)
		}
		if mv.pathIdx < 0 || (mv.pathLen > 0 && mv.pathIdx > mv.pathLen) {
			return fmt.Errorf("%w: path index %d", save.ErrCorrupt, mv.pathIdx)
		}
		for i := 0; i < mv.pathLen; i++ {
			mv.path[i] = readVec(r)
		}
		mv.lastMoveOrder = readVec(r)
		mv.follow = Follow(r.Int())
		mv.impulseDir = r.Float()
		mv.impulseTimer = r.Float()
		mv.impulseStart = r.Float()
		mv.impulseMode = r.Bool()
		mv.controlDisabled = r.Bool()
		mv.AttacherRef = r.String()
	}
	if err := r.Err(); err != nil {
		return err
	}

	o.R = pos
	o.flags = flags
	o.cur, o.prev, o.queued = cur, prev, queued
	o.idle = idle
	o.selected = selected
	for i, s := range o.states {
		s.curTime = states[i].curTime
		s.wasActivated = states[i].wasActivated
	}
	if m := o.Movement; m != nil {
		m.direction = mv.direction
		m.targetR = mv.targetR
		m.targetAngle = mv.targetAngle
		m.moving = mv.moving
		m.path = mv.path
		m.pathLen = mv.pathLen
		m.pathIdx = mv.pathIdx
		m.lastMoveOrder = mv.lastMoveOrder
		m.follow = mv.follow
		m.circuit = nil
		m.impulseDir = mv.impulseDir
		m.impulseTimer = mv.impulseTimer
		m.impulseStart = mv.impulseStart
		m.impulseMode = mv.impulseMode
		m.controlDisabled = mv.controlDisabled
		m.AttacherRef = mv.AttacherRef
		m.attacher = nil
	}
	return nil
}
