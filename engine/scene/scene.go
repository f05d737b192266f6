// Package scene implements game scenes: the object set, walk grid and zones
// of one location, the active personage, and the per-tick resolution of
// personage movement, following and collisions.
package scene

import (
	"github.com/sirupsen/logrus"

	"github.com/nathoo/qdcore/engine/geom"
	"github.com/nathoo/qdcore/engine/grid"
	"github.com/nathoo/qdcore/engine/input"
	"github.com/nathoo/qdcore/engine/named"
	"github.com/nathoo/qdcore/engine/object"
	"github.com/nathoo/qdcore/logger"
)

// Flag is a bit set of scene flags.
type Flag uint32

const (
	FlagCycleX Flag = 1 << iota
	FlagCycleY
	// FlagResetTriggersOnLoad stops the scene's triggers when it is
	// selected again.
	FlagResetTriggersOnLoad
	// FlagDisableMainMenu and similar front-end flags are carried for
	// scripts but not interpreted here.
	FlagDisableMainMenu
)

// MusicTrack is a named track a trigger can select.
type MusicTrack struct {
	named.Base
	Cycled bool
	Volume int
}

// NewMusicTrack returns a track owned by no scene.
func NewMusicTrack(name string) *MusicTrack {
	return &MusicTrack{Base: named.NewBase(name, named.TypeMusicTrack), Volume: 256}
}

// Scene is one game location.
type Scene struct {
	named.Base

	Flags  Flag
	Camera Camera
	// Minigame is the opaque save block of the scene's minigame. Saves from
	// version 107 carry it.
	Minigame []byte

	grid        *grid.Grid
	objects     []*object.Object
	personages  []*object.Object
	zones       []*grid.Zone
	tracks      []*MusicTrack
	activations []*Activation

	selected *object.Object

	mouseClickPos         geom.Vec2f
	mouseClickObject      *object.Object
	mouseRightClickObject *object.Object
	mouseHoverObject      *object.Object
}

// New returns an empty scene with a walk grid of sx by sy cells.
func New(name string, sx, sy int, cellSize float64) *Scene {
	return &Scene{
		Base: named.NewBase(name, named.TypeScene),
		grid: grid.New(sx, sy, cellSize),
	}
}

func (s *Scene) HasFlag(f Flag) bool             { return s.Flags&f != 0 }
func (s *Scene) Grid() *grid.Grid                { return s.grid }
func (s *Scene) Objects() []*object.Object       { return s.objects }
func (s *Scene) Personages() []*object.Object    { return s.personages }
func (s *Scene) Zones() []*grid.Zone             { return s.zones }
func (s *Scene) MusicTracks() []*MusicTrack      { return s.tracks }
func (s *Scene) ActivePersonage() *object.Object { return s.selected }

// AddObject adds o to the scene. Names are unique within a scene.
func (s *Scene) AddObject(o *object.Object) bool {
	if o == nil || s.Object(o.Name()) != nil {
		return false
	}
	o.SetOwner(s)
	o.SetGrid(s.grid)
	s.objects = append(s.objects, o)
	s.rebuildPersonages()
	return true
}

// RemoveObject deletes the named object.
func (s *Scene) RemoveObject(name string) bool {
	for i, o := range s.objects {
		if o.Name() != name {
			continue
		}
		s.objects = append(s.objects[:i], s.objects[i+1:]...)
		if s.selected == o {
			s.selected = nil
		}
		s.rebuildPersonages()
		return true
	}
	return false
}

// Object looks an object up by name.
func (s *Scene) Object(name string) *object.Object {
	for _, o := range s.objects {
		if o.Name() == name {
			return o
		}
	}
	return nil
}

// rebuildPersonages recomputes the moving-object projection of the object
// list. It is never edited directly.
func (s *Scene) rebuildPersonages() {
	s.personages = s.personages[:0]
	for _, o := range s.objects {
		if o.IsMoving() {
			s.personages = append(s.personages, o)
		}
	}
}

// AddZone adds a grid zone and binds it to the scene grid.
func (s *Scene) AddZone(z *grid.Zone) bool {
	if z == nil || s.Zone(z.Name()) != nil {
		return false
	}
	z.SetOwner(s)
	z.Attach(s.grid)
	s.zones = append(s.zones, z)
	return true
}

// Zone looks a grid zone up by name. It returns nil when absent.
func (s *Scene) Zone(name string) *grid.Zone {
	for _, z := range s.zones {
		if z.Name() == name {
			return z
		}
	}
	return nil
}

// AddMusicTrack adds a track to the scene.
func (s *Scene) AddMusicTrack(t *MusicTrack) bool {
	if t == nil || s.MusicTrack(t.Name()) != nil {
		return false
	}
	t.SetOwner(s)
	s.tracks = append(s.tracks, t)
	return true
}

// MusicTrack looks a track up by name.
func (s *Scene) MusicTrack(name string) *MusicTrack {
	for _, t := range s.tracks {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

// Child resolves one path segment below the scene: objects first, then
// zones, then music tracks.
func (s *Scene) Child(name string) named.Named {
	if o := s.Object(name); o != nil {
		return o
	}
	if z := s.Zone(name); z != nil {
		return z
	}
	if t := s.MusicTrack(name); t != nil {
		return t
	}
	return nil
}

// Init returns every object, zone and the camera to their scripted state.
func (s *Scene) Init() {
	s.selected = nil
	s.Camera.Init()
	for _, o := range s.objects {
		o.SetGrid(s.grid)
		o.Reset()
	}
	s.resolveAttachers()
	for _, z := range s.zones {
		z.Reset()
	}
	s.clearMouse()
}

func (s *Scene) resolveAttachers() {
	for _, p := range s.personages {
		if p.Movement.AttacherRef == "" {
			continue
		}
		a := s.Object(p.Movement.AttacherRef)
		if a == nil || !a.IsMoving() {
			logger.Log.WithFields(logrus.Fields{
				"scene":    s.Name(),
				"object":   p.Name(),
				"attacher": p.Movement.AttacherRef,
			}).Warn("unresolved attacher")
			continue
		}
		p.SetAttacher(a)
	}
}

// Activate prepares the scene for play after it was selected: followers are
// released, the grid is rebuilt and a player personage is chosen when none
// is active.
func (s *Scene) Activate() {
	s.Camera.Quant(0)
	s.FollowPersInit(object.FollowDone)
	s.InitObjectsGrid()
	if s.selected == nil {
		for _, p := range s.personages {
			if p.IsPersonage() {
				s.SetActivePersonage(p)
				break
			}
		}
	}
	for _, z := range s.zones {
		z.SetState(z.State())
	}
	logger.Log.WithFields(logrus.Fields{"scene": s.Name()}).Info("scene activated")
}

// InitObjectsGrid rebuilds the occupancy marks of the walk grid from the
// visible personages.
func (s *Scene) InitObjectsGrid() {
	s.grid.DropAll(grid.Occupied | grid.PersonageOccupied | grid.Selected)
	for _, o := range s.personages {
		if o.IsVisible() && !o.HasFlag(object.FlagFixedScreen) {
			o.ToggleGridZone(false)
		}
	}
}

// SetActivePersonage makes p the player-controlled personage. Hidden
// personages are refused. Followers are released and every other player
// personage stops walking. Calling it with the current personage only
// repeats those resets.
func (s *Scene) SetActivePersonage(p *object.Object) {
	if p != nil && (!p.IsMoving() || !p.IsVisible()) {
		return
	}
	if s.selected != nil {
		s.selected.ToggleSelection(false)
	}
	s.selected = p
	if p != nil {
		p.ToggleSelection(true)
	}
	s.Camera.SetDefault(s.Camera.defaultMode, p)

	s.FollowPersInit(object.FollowDone)
	for _, o := range s.personages {
		if o != p && !o.HasFlag(object.FlagNonPlayer) && o.InMotion() {
			o.ClearQueuedState()
			o.StopMovement()
		}
	}
}

// ChangeActivePersonage cycles to the next player personage.
func (s *Scene) ChangeActivePersonage() bool {
	start := -1
	for i, p := range s.personages {
		if p == s.selected {
			start = i
			break
		}
	}
	n := len(s.personages)
	for k := 1; k <= n; k++ {
		p := s.personages[(start+k+n)%n]
		if !p.IsPersonage() {
			continue
		}
		if p != s.selected {
			s.SetActivePersonage(p)
		}
		return true
	}
	return false
}

// MouseHandler records a mouse event at screen position pos. It reports
// whether an object was hit.
func (s *Scene) MouseHandler(pos geom.Vec2f, ev input.MouseEvent) bool {
	pos = s.cycleScreen(pos)
	s.mouseClickPos = s.Camera.Unproject(pos)

	switch ev {
	case input.Move:
		s.mouseHoverObject = s.HitObject(s.mouseClickPos)
		return s.mouseHoverObject != nil
	case input.LeftDown, input.RightDown:
		o := s.HitObject(s.mouseClickPos)
		if o == nil {
			return false
		}
		if ev == input.LeftDown {
			s.mouseClickObject = o
		} else {
			s.mouseRightClickObject = o
		}
		return true
	}
	return false
}

// HitObject returns the topmost mouse-sensitive object under the plane
// point p. Static objects never react to the mouse.
func (s *Scene) HitObject(p geom.Vec2f) *object.Object {
	for i := len(s.objects) - 1; i >= 0; i-- {
		o := s.objects[i]
		if o.Kind() == object.Static || o.Kind() == object.Mouse || o.HasFlag(object.FlagDisableMouse) {
			continue
		}
		if o.Hit(p) {
			return o
		}
	}
	return nil
}

func (s *Scene) cycleScreen(p geom.Vec2f) geom.Vec2f {
	sx, sy := float64(s.Camera.ScreenSize.X), float64(s.Camera.ScreenSize.Y)
	if s.HasFlag(FlagCycleX) && sx > 0 {
		for p.X < 0 {
			p.X += sx
		}
		for p.X >= sx {
			p.X -= sx
		}
	}
	if s.HasFlag(FlagCycleY) && sy > 0 {
		for p.Y < 0 {
			p.Y += sy
		}
		for p.Y >= sy {
			p.Y -= sy
		}
	}
	return p
}

func (s *Scene) clearMouse() {
	s.mouseClickObject = nil
	s.mouseRightClickObject = nil
	s.mouseHoverObject = nil
}

func (s *Scene) MouseClickObject() *object.Object      { return s.mouseClickObject }
func (s *Scene) MouseRightClickObject() *object.Object { return s.mouseRightClickObject }
func (s *Scene) MouseHoverObject() *object.Object      { return s.mouseHoverObject }
func (s *Scene) MouseClickPos() geom.Vec2f             { return s.mouseClickPos }

// AnyPersonageInZone reports whether a personage stands in z.
func (s *Scene) AnyPersonageInZone(z *grid.Zone) bool {
	for _, p := range s.personages {
		if z.ContainsPoint(p.R.XY()) {
			return true
		}
	}
	return false
}
