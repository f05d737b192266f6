package scene

import (
	"github.com/nathoo/qdcore/engine/geom"
	"github.com/nathoo/qdcore/engine/object"
	"github.com/nathoo/qdcore/engine/save"
)

// CameraMode selects how the camera tracks its object.
type CameraMode int

const (
	// CameraFixed never moves on its own.
	CameraFixed CameraMode = iota
	// CameraFollow keeps the object at the screen centre.
	CameraFollow
	// CameraCenterOnce centres on the object when it leaves the screen.
	CameraCenterOnce
)

func (m CameraMode) String() string {
	switch m {
	case CameraFollow:
		return "follow"
	case CameraCenterOnce:
		return "center_once"
	}
	return "fixed"
}

// Camera maps plane coordinates to screen coordinates. Pos is the plane
// point shown at the centre of the screen.
type Camera struct {
	ScreenSize geom.Vec2i
	Pos        geom.Vec2f
	// Speed is the tracking speed in plane units per second. Zero snaps.
	Speed float64

	mode        CameraMode
	defaultMode CameraMode
	object      *object.Object
	initPos     geom.Vec2f
}

func (c *Camera) half() geom.Vec2f {
	return geom.Vec2f{X: float64(c.ScreenSize.X) / 2, Y: float64(c.ScreenSize.Y) / 2}
}

// Project returns the screen position of a plane point.
func (c *Camera) Project(r geom.Vec3f) geom.Vec2f {
	return r.XY().Sub(c.Pos).Add(c.half())
}

// Unproject returns the plane point under a screen position.
func (c *Camera) Unproject(s geom.Vec2f) geom.Vec2f {
	return s.Sub(c.half()).Add(c.Pos)
}

// OnScreen reports whether the screen point lies inside the viewport.
func (c *Camera) OnScreen(s geom.Vec2f) bool {
	return s.X >= 0 && s.Y >= 0 && s.X < float64(c.ScreenSize.X) && s.Y < float64(c.ScreenSize.Y)
}

func (c *Camera) Mode() CameraMode       { return c.mode }
func (c *Camera) Object() *object.Object { return c.object }

// SetMode changes the tracking mode and object.
func (c *Camera) SetMode(m CameraMode, o *object.Object) {
	c.mode = m
	c.object = o
}

// SetDefault sets the mode restored by Init and the tracked object.
func (c *Camera) SetDefault(m CameraMode, o *object.Object) {
	c.defaultMode = m
	c.SetMode(m, o)
}

// Init records the scripted position on first use and returns to it.
func (c *Camera) Init() {
	c.Pos = c.initPos
	c.mode = c.defaultMode
}

// Snapshot records the current position as the one Init returns to.
func (c *Camera) Snapshot() { c.initPos = c.Pos }

// Quant moves the camera towards its object and reports whether it moved.
func (c *Camera) Quant(dt float64) bool {
	if c.object == nil || c.mode == CameraFixed {
		return false
	}
	target := c.object.R.XY()
	if c.mode == CameraCenterOnce && c.OnScreen(c.Project(c.object.R)) {
		return false
	}
	d := target.Sub(c.Pos)
	if d.Norm2() < 1e-9 {
		return false
	}
	step := c.Speed * dt
	if c.Speed <= 0 || step >= d.Norm() {
		c.Pos = target
	} else {
		c.Pos = c.Pos.Add(d.Normalize(step))
	}
	return true
}

// Save writes position and mode.
func (c *Camera) Save(w *save.Writer) {
	w.Float(c.Pos.X)
	w.Float(c.Pos.Y)
	w.Int(int(c.mode))
}

// Load reads what Save wrote. The tracked object is restored by the scene.
func (c *Camera) Load(r *save.Reader) error {
	pos := geom.Vec2f{X: r.Float(), Y: r.Float()}
	mode := CameraMode(r.Int())
	if err := r.Err(); err != nil {
		return err
	}
	if mode < CameraFixed || mode > CameraCenterOnce {
		return save.ErrCorrupt
	}
	c.Pos = pos
	c.mode = mode
	return nil
}
