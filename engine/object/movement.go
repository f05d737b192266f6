package object

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/qdcore/engine/geom"
	"github.com/nathoo/qdcore/engine/grid"
	"github.com/nathoo/qdcore/logger"
)

// PathLength is the capacity of a personage path buffer.
const PathLength = 200

var (
	ErrPathBufferOverflow = errors.New("object: path buffer overflow")
	ErrNoPath             = errors.New("object: no path")
	ErrNoGrid             = errors.New("object: object is not on a walk grid")
)

const eps = 1e-5

// Follow is the follow sub-state of a personage.
type Follow int

const (
	FollowDone Follow = iota
	FollowUpdatePath
	FollowWait
	FollowFullStopWait
	FollowMoving
)

func (f Follow) String() string {
	switch f {
	case FollowDone:
		return "done"
	case FollowUpdatePath:
		return "update_path"
	case FollowWait:
		return "wait"
	case FollowFullStopWait:
		return "full_stop_wait"
	case FollowMoving:
		return "moving"
	}
	return "unknown"
}

// Control is a bit set of personage control modes.
type Control uint32

const (
	ControlMouse Control = 1 << iota
	ControlKeyboard
	ControlCollision
	ControlAvoidCollision
	ControlFollowActive
	ControlRepeatActiveMovement
	ControlAttachmentWithDirRel
	ControlAttachmentWithoutDirRel
	ControlAttachmentToActiveWithMoving
	ControlActiveClickReacting
	ControlClearPath
)

// ControlAttachment matches any attachment mode.
const ControlAttachment = ControlAttachmentWithDirRel | ControlAttachmentWithoutDirRel | ControlAttachmentToActiveWithMoving

var controlNames = []struct {
	c    Control
	name string
}{
	{ControlMouse, "mouse"},
	{ControlKeyboard, "keyboard"},
	{ControlCollision, "collision"},
	{ControlAvoidCollision, "avoid_collision"},
	{ControlFollowActive, "follow_active"},
	{ControlRepeatActiveMovement, "repeat_active_movement"},
	{ControlAttachmentWithDirRel, "attachment_with_dir_rel"},
	{ControlAttachmentWithoutDirRel, "attachment_without_dir_rel"},
	{ControlAttachmentToActiveWithMoving, "attachment_to_active_with_moving"},
	{ControlActiveClickReacting, "active_click_reacting"},
	{ControlClearPath, "clear_path"},
}

// ParseControl maps a control name to its bit.
func ParseControl(name string) (Control, bool) {
	for _, cn := range controlNames {
		if cn.name == name {
			return cn.c, true
		}
	}
	return 0, false
}

// Names lists the names of the bits set in c.
func (c Control) Names() []string {
	var out []string
	for _, cn := range controlNames {
		if c&cn.c != 0 {
			out = append(out, cn.name)
		}
	}
	return out
}

// Movement is the walking state of a moving object.
type Movement struct {
	Speed           float64
	CollisionRadius float64
	FollowMinRadius float64
	CollisionDelay  float64
	CollisionPath   float64
	Controls        Control
	// Directions is the number of allowed walk directions. Two or fewer
	// walk in a straight line, up to four search the grid in four
	// directions, more in eight.
	Directions int
	WalkSize   geom.Vec2i
	// AttachShift is the offset from the attacher, in the attacher's frame
	// when attached with direction.
	AttachShift geom.Vec2f
	// AttacherRef names the attacher within the same scene. The scene
	// resolves it on init and load.
	AttacherRef string

	InitDirection float64

	attacher *Object

	direction   float64
	targetR     geom.Vec3f
	targetAngle float64
	moving      bool

	path    [PathLength]geom.Vec3f
	pathLen int
	pathIdx int

	lastMoveOrder geom.Vec3f
	follow        Follow
	circuit       []*Object

	impulseDir   float64
	impulseTimer float64
	impulseStart float64
	impulseMode  bool

	controlDisabled  bool
	ignorePersonages bool

	grid *grid.Grid
}

func newMovement() *Movement {
	return &Movement{
		Speed:       100,
		Directions:  8,
		WalkSize:    geom.Vec2i{X: 1, Y: 1},
		targetAngle: -1,
		impulseDir:  -1,
	}
}

func (m *Movement) reset(r geom.Vec3f) {
	m.direction = m.InitDirection
	m.targetR = r
	m.targetAngle = -1
	m.moving = false
	m.pathLen = 0
	m.pathIdx = 0
	m.lastMoveOrder = r
	m.follow = FollowDone
	m.circuit = nil
	m.impulseDir = -1
	m.impulseTimer = 0
	m.impulseStart = 0
	m.impulseMode = false
	m.controlDisabled = false
}

func (m *Movement) walkSize() geom.Vec2i {
	s := m.WalkSize
	if s.X < 1 {
		s.X = 1
	}
	if s.Y < 1 {
		s.Y = 1
	}
	return s
}

// SetGrid places the object on a scene walk grid.
func (o *Object) SetGrid(g *grid.Grid) {
	if o.Movement != nil {
		o.Movement.grid = g
	}
}

// InMotion reports whether the object is walking.
func (o *Object) InMotion() bool { return o.Movement != nil && o.Movement.moving }

func (o *Object) HasControl(c Control) bool {
	return o.Movement != nil && o.Movement.Controls&c != 0
}

func (o *Object) Direction() float64 {
	if o.Movement == nil {
		return 0
	}
	return o.Movement.direction
}

func (o *Object) SetDirection(a float64) {
	if o.Movement != nil {
		o.Movement.direction = geom.CycleAngle(a)
	}
}

func (o *Object) FollowCondition() Follow {
	if o.Movement == nil {
		return FollowDone
	}
	return o.Movement.follow
}

func (o *Object) SetFollowCondition(f Follow) {
	if o.Movement != nil {
		o.Movement.follow = f
	}
}

func (o *Object) LastMoveOrder() geom.Vec3f {
	if o.Movement == nil {
		return o.R
	}
	return o.Movement.lastMoveOrder
}

func (o *Object) SetLastMoveOrder(r geom.Vec3f) {
	if o.Movement != nil {
		o.Movement.lastMoveOrder = r
	}
}

// TargetR is the position the object is currently walking to.
func (o *Object) TargetR() geom.Vec3f {
	if o.Movement == nil {
		return o.R
	}
	return o.Movement.targetR
}

// Path returns the remaining path points, current target excluded.
func (o *Object) Path() []geom.Vec3f {
	m := o.Movement
	if m == nil || m.pathLen == 0 {
		return nil
	}
	return append([]geom.Vec3f(nil), m.path[m.pathIdx:m.pathLen]...)
}

func (o *Object) CircuitObjects() []*Object { return o.Movement.circuit }

func (o *Object) AddCircuitObject(p *Object) {
	if !o.IsCircuitObject(p) {
		o.Movement.circuit = append(o.Movement.circuit, p)
	}
}

func (o *Object) IsCircuitObject(p *Object) bool {
	for _, c := range o.Movement.circuit {
		if c == p {
			return true
		}
	}
	return false
}

// RemoveCircuitObject forgets p as an obstacle being walked around.
func (o *Object) RemoveCircuitObject(p *Object) {
	c := o.Movement.circuit
	for i := range c {
		if c[i] == p {
			o.Movement.circuit = append(c[:i], c[i+1:]...)
			return
		}
	}
}

func (o *Object) ClearCircuitObjects() { o.Movement.circuit = o.Movement.circuit[:0] }

func (o *Object) Attacher() *Object { return o.Movement.attacher }

// SetAttacher binds o to p. A nil p detaches.
func (o *Object) SetAttacher(p *Object) {
	o.Movement.attacher = p
	if p != nil {
		o.Movement.AttacherRef = p.Name()
	} else {
		o.Movement.AttacherRef = ""
	}
}

func (o *Object) DisableControl() { o.Movement.controlDisabled = true }
func (o *Object) EnableControl()  { o.Movement.controlDisabled = false }

// Radius is the collision radius, defaulting to half the larger bound.
func (o *Object) Radius() float64 {
	if o.Movement != nil && o.Movement.CollisionRadius > 0 {
		return o.Movement.CollisionRadius
	}
	return math.Max(o.Bound.X, o.Bound.Y) / 2
}

// CanMove reports whether the personage accepts move orders.
func (o *Object) CanMove() bool {
	return o.Movement != nil && !o.Movement.controlDisabled && o.IsVisible()
}

// CalcDirectionAngle is the plane angle from the object to target. Nearly
// coincident points keep the current direction.
func (o *Object) CalcDirectionAngle(target geom.Vec3f) float64 {
	return geom.DirectionAngle(o.R, target, o.Direction())
}

// GetDirection maps an angle to the index of the nearest allowed direction.
// It returns -1 unless the current state is a walk state.
func (o *Object) GetDirection(angle float64) int {
	s := o.CurState()
	if o.Movement == nil || s == nil || !s.Walk {
		return -1
	}
	n := o.Movement.Directions
	if n < 1 {
		n = 8
	}
	return int(math.Round(geom.CycleAngle(angle)/(2*math.Pi/float64(n)))) % n
}

// WalkCell returns the grid cell under the object and its walk size.
func (o *Object) WalkCell() (geom.Vec2i, geom.Vec2i, bool) {
	m := o.Movement
	if m == nil || m.grid == nil {
		return geom.Vec2i{}, geom.Vec2i{}, false
	}
	c, ok := m.grid.CellIndex(o.R.XY())
	return c, m.walkSize(), ok
}

// FutureWalkCell returns the cell the object will occupy after dt.
func (o *Object) FutureWalkCell(dt float64) (geom.Vec2i, geom.Vec2i, bool) {
	m := o.Movement
	if m == nil || m.grid == nil {
		return geom.Vec2i{}, geom.Vec2i{}, false
	}
	r, _ := o.futureR(dt, false)
	c, ok := m.grid.CellIndex(r.XY())
	return c, m.walkSize(), ok
}

// SetGridZoneAttributes marks the object's cells with a.
func (o *Object) SetGridZoneAttributes(a grid.Attr) bool {
	c, size, ok := o.WalkCell()
	if !ok {
		return false
	}
	o.Movement.grid.SetRect(c, size, a)
	return true
}

// DropGridZoneAttributes clears a from the object's cells.
func (o *Object) DropGridZoneAttributes(a grid.Attr) bool {
	c, size, ok := o.WalkCell()
	if !ok {
		return false
	}
	o.Movement.grid.DropRect(c, size, a)
	return true
}

// CheckGridZoneAttributes reports whether any of the object's cells has a.
func (o *Object) CheckGridZoneAttributes(a grid.Attr) bool {
	c, size, ok := o.WalkCell()
	if !ok {
		return false
	}
	return o.Movement.grid.CheckRect(c, size, a)
}

// ToggleGridZone marks or clears the personage occupancy of the object.
func (o *Object) ToggleGridZone(walkable bool) bool {
	if walkable {
		return o.DropGridZoneAttributes(grid.PersonageOccupied)
	}
	return o.SetGridZoneAttributes(grid.PersonageOccupied)
}

func (o *Object) pointHasAttr(p geom.Vec2f, a grid.Attr) bool {
	g := o.Movement.grid
	c, ok := g.CellIndex(p)
	if !ok {
		return false
	}
	return g.CheckRect(c, o.Movement.walkSize(), a)
}

// SetPathAttributes marks the cells along the rest of the walk with a.
func (o *Object) SetPathAttributes(a grid.Attr) {
	o.walkPathCells(func(from, to geom.Vec2i, size geom.Vec2i) {
		o.Movement.grid.SetLine(from, to, size, a)
	})
}

// ClearPathAttributes clears a along the rest of the walk.
func (o *Object) ClearPathAttributes(a grid.Attr) {
	o.walkPathCells(func(from, to geom.Vec2i, size geom.Vec2i) {
		o.Movement.grid.DropLine(from, to, size, a)
	})
}

func (o *Object) walkPathCells(fn func(from, to, size geom.Vec2i)) {
	m := o.Movement
	if m == nil || m.grid == nil || !m.moving || m.impulseMode {
		return
	}
	pts := append([]geom.Vec3f{o.R, m.targetR}, o.Path()...)
	size := m.walkSize()
	for i := 1; i < len(pts); i++ {
		a, ok1 := m.grid.CellIndex(pts[i-1].XY())
		b, ok2 := m.grid.CellIndex(pts[i].XY())
		if ok1 && ok2 {
			fn(a, b, size)
		}
	}
}

func (o *Object) isWalkable(c geom.Vec2i) bool {
	m := o.Movement
	return m.grid.IsWalkable(c, m.walkSize(), m.ignorePersonages)
}

// Move orders the object to walk to target. With lock set the object
// refuses to walk to a nearby point when target itself is unreachable.
func (o *Object) Move(target geom.Vec3f, lock bool) bool {
	m := o.Movement
	if m == nil {
		return false
	}
	m.lastMoveOrder = target
	if target.Sub(o.R).Norm2() < 0.5 {
		return true
	}

	if o.selected && m.Controls&ControlClearPath != 0 {
		if o.FindPath(target, true) == nil {
			return true
		}
		m.ignorePersonages = true
		err := o.FindPath(target, true)
		m.ignorePersonages = false
		if err == nil {
			return true
		}
		if lock {
			return false
		}
	}

	if err := o.FindPath(target, lock); err != nil {
		fields := logrus.Fields{"object": o.Name(), "x": target.X, "y": target.Y}
		if errors.Is(err, ErrPathBufferOverflow) {
			logger.Log.WithFields(fields).Warn("path rejected")
		} else {
			logger.Log.WithFields(fields).Debug("no path")
		}
		return false
	}
	return true
}

// MoveWithAngle is Move followed by turning to angle on arrival.
func (o *Object) MoveWithAngle(target geom.Vec3f, angle float64, lock bool) bool {
	if o.Move(target, lock) {
		o.Movement.targetAngle = angle
		return true
	}
	return false
}

// FindPath computes a grid path to target and starts walking it.
func (o *Object) FindPath(target geom.Vec3f, lock bool) error {
	m := o.Movement
	if m == nil || m.grid == nil {
		return ErrNoGrid
	}
	g := m.grid
	trg := target
	tc, ok := g.CellIndex(trg.XY())
	if !ok {
		return fmt.Errorf("%w: target outside the grid", ErrNoPath)
	}

	// 1. Own cells never block the search.
	o.SetGridZoneAttributes(grid.Selected)
	defer o.DropGridZoneAttributes(grid.Selected)

	m.targetAngle = -1

	// 2. Unreachable target: give up when locked, else aim at the nearest
	// walkable cell.
	if !o.isWalkable(tc) {
		if lock || o.CheckGridZoneAttributes(grid.Impassable) {
			return fmt.Errorf("%w: target not walkable", ErrNoPath)
		}
		pt, found := g.NearestWalkable(tc, o.isWalkable)
		if !found {
			return fmt.Errorf("%w: no walkable cell near target", ErrNoPath)
		}
		m.targetAngle = o.CalcDirectionAngle(target)
		tc = pt
		trg = g.CellCenter(pt)
		trg.Z = target.Z
	}

	from, ok := g.CellIndex(o.R.XY())
	if !ok {
		return fmt.Errorf("%w: object outside the grid", ErrNoPath)
	}

	// 3. Straight-line walkers.
	if m.Directions <= 2 {
		if !g.IsLineWalkable(from, tc, m.walkSize(), m.ignorePersonages) {
			return fmt.Errorf("%w: line blocked", ErrNoPath)
		}
		m.pathLen = 0
		o.moveToPosition(trg)
		return nil
	}

	// 4. Grid search, retrying towards the last reachable cell on the way.
	eight := m.Directions > 4
	cells, found := g.FindPath(from, tc, eight, o.isWalkable)
	if !found && !lock {
		if pt, ok := o.preLastWalkable(from, tc); ok {
			m.targetAngle = o.CalcDirectionAngle(target)
			tc = pt
			trg = g.CellCenter(pt)
			trg.Z = target.Z
			cells, found = g.FindPath(from, tc, eight, o.isWalkable)
		}
	}
	if !found {
		return ErrNoPath
	}
	if len(cells) > PathLength {
		return fmt.Errorf("%w: %d points", ErrPathBufferOverflow, len(cells))
	}

	// 5. Keep corners only, then walk the cell centres.
	cells = o.optimizePath(cells, eight)
	n := 0
	for _, c := range cells[1:] {
		p := g.CellCenter(c)
		p.Z = o.R.Z
		m.path[n] = p
		n++
	}
	if n == 0 {
		m.path[0] = trg
		n = 1
	} else {
		m.path[n-1] = trg
	}
	m.pathLen = n
	m.pathIdx = 0
	o.moveToPosition(m.path[m.pathIdx])
	m.pathIdx++
	if m.pathIdx >= m.pathLen {
		m.pathLen = 0
	}
	return nil
}

// preLastWalkable walks the line towards target and returns the last
// walkable cell before the first blocked one.
func (o *Object) preLastWalkable(from, target geom.Vec2i) (geom.Vec2i, bool) {
	last, ok := from, false
	for _, c := range grid.Line(from, target)[1:] {
		if !o.isWalkable(c) {
			break
		}
		last, ok = c, true
	}
	return last, ok
}

func (o *Object) optimizePath(cells []geom.Vec2i, eight bool) []geom.Vec2i {
	if len(cells) < 3 {
		return cells
	}
	m := o.Movement
	if !eight {
		out := []geom.Vec2i{cells[0]}
		for i := 1; i < len(cells)-1; i++ {
			d0 := cells[i].Sub(cells[i-1])
			d1 := cells[i+1].Sub(cells[i])
			if d0 != d1 {
				out = append(out, cells[i])
			}
		}
		return append(out, cells[len(cells)-1])
	}
	out := []geom.Vec2i{cells[0]}
	for i := 0; i < len(cells)-1; {
		j := len(cells) - 1
		for j > i+1 && !m.grid.IsLineWalkable(cells[i], cells[j], m.walkSize(), m.ignorePersonages) {
			j--
		}
		out = append(out, cells[j])
		i = j
	}
	return out
}

func (o *Object) moveToPosition(target geom.Vec3f) {
	m := o.Movement
	m.direction = o.CalcDirectionAngle(target)
	m.targetR = target
	m.moving = true
}

// StopMovement halts the object. It reports whether it was walking.
func (o *Object) StopMovement() bool {
	m := o.Movement
	if m == nil || !m.moving {
		return false
	}
	m.moving = false
	m.impulseMode = false
	m.pathLen = 0
	return true
}

// futureR computes the position after dt. Only real moves consume the
// impulse timer.
func (o *Object) futureR(dt float64, real bool) (geom.Vec3f, bool) {
	m := o.Movement
	if !m.moving {
		return o.R, true
	}
	step := m.Speed * dt
	if m.impulseMode {
		t := m.impulseTimer - dt
		if real {
			m.impulseTimer = t
		}
		return geom.Polar(o.R, m.direction, step), t <= 0
	}
	d := geom.PlaneDist(o.R, m.targetR)
	if m.Speed <= 0 || step >= d {
		return m.targetR, true
	}
	return geom.Polar(o.R, geom.DirectionAngle(o.R, m.targetR, m.direction), step), false
}

// FuturePosCorrect reports whether the next step keeps the object off
// impassable cells.
func (o *Object) FuturePosCorrect(dt float64) bool {
	m := o.Movement
	if m == nil || m.grid == nil {
		return true
	}
	next, size, ok := o.FutureWalkCell(dt)
	if !ok {
		return false
	}
	n := m.grid.CountRect(next, size, grid.Impassable)
	if n >= 1 && (size.X <= 1 || size.Y <= 1) {
		return false
	}
	return n <= max(size.X, size.Y)
}

// SetMovementImpulse pushes the object along angle for CollisionPath, after
// CollisionDelay if one is set.
func (o *Object) SetMovementImpulse(angle float64) bool {
	m := o.Movement
	if m == nil || m.impulseDir >= 0 {
		return false
	}
	m.impulseDir = geom.CycleAngle(angle)
	if m.CollisionDelay > eps {
		m.impulseStart = m.CollisionDelay
		return true
	}
	return o.movementImpulse()
}

func (o *Object) movementImpulse() bool {
	m := o.Movement
	if m.impulseDir < 0 || !o.CanMove() || (m.moving && !m.impulseMode) || o.CheckGridZoneAttributes(grid.Impassable) {
		m.impulseDir = -1
		return false
	}
	m.direction = m.impulseDir
	m.impulseDir = -1
	m.targetAngle = -1
	m.moving = true
	m.pathLen = 0
	if m.Speed > eps {
		m.impulseTimer = m.CollisionPath / m.Speed
	} else {
		m.impulseTimer = 0
	}
	m.impulseMode = true
	return true
}

// AvoidCollision steps o sideways out of the way of the walking p.
func (o *Object) AvoidCollision(p *Object) bool {
	if !o.CanMove() || o.InMotion() {
		return false
	}
	dir := p.Direction()
	angle := p.CalcDirectionAngle(o.R)
	if geom.DeltaAngle(dir, angle) < 0 {
		dir += math.Pi / 2
	} else {
		dir -= math.Pi / 2
	}
	dist := (o.Radius() + p.Radius()) * 0.7
	return o.Move(geom.Polar(o.R, dir, dist), true)
}

// MoveFromPersonagePath steps o off cells marked PersonagePath, trying
// eight directions at three growing distances.
func (o *Object) MoveFromPersonagePath() bool {
	if o.Movement == nil || o.Movement.grid == nil {
		return false
	}
	step := o.Radius() / 2
	dist := step
	for i := 0; i < 3; i++ {
		for j := 0; j < 8; j++ {
			r := geom.Polar(o.R, 2*math.Pi/8*float64(j), dist)
			if !o.pointHasAttr(r.XY(), grid.PersonagePath) && o.Move(r, true) {
				return true
			}
		}
		dist += step
	}
	return false
}

func (o *Object) quantMovement(dt float64) {
	m := o.Movement
	beg := o.R

	if m.impulseStart > 0 {
		m.impulseStart -= dt
		if m.impulseStart <= eps {
			m.impulseStart = 0
			o.movementImpulse()
		}
	}

	if m.moving {
		if o.FuturePosCorrect(dt) {
			r, end := o.futureR(dt, true)
			o.R = r
			if end {
				m.impulseMode = false
				if m.pathLen > 0 {
					o.moveToPosition(m.path[m.pathIdx])
					m.pathIdx++
					if m.pathIdx >= m.pathLen {
						m.pathLen = 0
					}
				} else {
					if m.targetAngle >= 0 {
						m.direction = m.targetAngle
					}
					o.StopMovement()
				}
			}
		} else {
			o.StopMovement()
		}
	}

	if o.R != beg {
		o.idle = 0
	}
}
