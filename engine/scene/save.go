package scene

import (
	"errors"
	"fmt"

	"github.com/nathoo/qdcore/engine/object"
	"github.com/nathoo/qdcore/engine/save"
)

var (
	ErrObjectCountMismatch = errors.New("scene: object count mismatch")
	ErrZoneCountMismatch   = errors.New("scene: zone count mismatch")
)

// Save writes the live state of the scene: camera, objects, zones, the
// active personage and, from version 107, the minigame block. Objects and
// zones are keyed by name.
func (s *Scene) Save(w *save.Writer) {
	s.Camera.Save(w)

	w.Int(len(s.objects))
	for _, o := range s.objects {
		w.String(o.Name())
		o.Save(w)
	}

	w.Int(len(s.zones))
	for _, z := range s.zones {
		w.String(z.Name())
		w.Bool(z.State())
	}

	w.Bool(s.selected != nil)
	if s.selected != nil {
		w.String(s.selected.Name())
	}

	if w.Version >= save.VersionMinigameBlob {
		w.Bytes(s.Minigame)
	}
}

// Load reads what Save wrote. A count or name mismatch aborts the load.
func (s *Scene) Load(r *save.Reader) error {
	if err := s.Camera.Load(r); err != nil {
		return fmt.Errorf("scene %s camera: %w", s.Name(), err)
	}

	n := r.Int()
	if err := r.Err(); err != nil {
		return err
	}
	if n != len(s.objects) {
		return fmt.Errorf("%w: scene %s has %d, save has %d", ErrObjectCountMismatch, s.Name(), len(s.objects), n)
	}
	for _, o := range s.objects {
		if err := expectName(r, o.Name()); err != nil {
			return fmt.Errorf("scene %s: %w", s.Name(), err)
		}
		if err := o.Load(r); err != nil {
			return fmt.Errorf("scene %s object %s: %w", s.Name(), o.Name(), err)
		}
	}
	s.resolveAttachers()

	n = r.Int()
	if err := r.Err(); err != nil {
		return err
	}
	if n != len(s.zones) {
		return fmt.Errorf("%w: scene %s has %d, save has %d", ErrZoneCountMismatch, s.Name(), len(s.zones), n)
	}
	states := make([]bool, n)
	for i, z := range s.zones {
		if err := expectName(r, z.Name()); err != nil {
			return fmt.Errorf("scene %s: %w", s.Name(), err)
		}
		states[i] = r.Bool()
	}
	if err := r.Err(); err != nil {
		return err
	}

	var selected *object.Object
	if r.Bool() {
		name := r.String()
		if err := r.Err(); err != nil {
			return err
		}
		if selected = s.Object(name); selected == nil || !selected.IsMoving() {
			return fmt.Errorf("%w: scene %s active personage %q", save.ErrCorrupt, s.Name(), name)
		}
	}

	var blob []byte
	if r.Version >= save.VersionMinigameBlob {
		blob = r.Bytes()
	}
	if err := r.Err(); err != nil {
		return err
	}

	for i, z := range s.zones {
		z.SetState(states[i])
	}
	for _, p := range s.personages {
		p.ToggleSelection(p == selected)
	}
	s.selected = selected
	s.Camera.SetMode(s.Camera.mode, selected)
	s.Minigame = blob
	return nil
}

func expectName(r *save.Reader, want string) error {
	got := r.String()
	if err := r.Err(); err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: found %q where %q expected", save.ErrCorrupt, got, want)
	}
	return nil
}
