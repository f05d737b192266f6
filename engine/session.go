package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/qdcore/engine/condition"
	"github.com/nathoo/qdcore/engine/events"
	"github.com/nathoo/qdcore/engine/named"
	"github.com/nathoo/qdcore/engine/save"
	"github.com/nathoo/qdcore/engine/scene"
	"github.com/nathoo/qdcore/logger"
)

var (
	ErrGlobalCountMismatch  = errors.New("engine: global object count mismatch")
	ErrCounterCountMismatch = errors.New("engine: counter count mismatch")
	ErrSceneCountMismatch   = errors.New("engine: scene count mismatch")
	ErrChainCountMismatch   = errors.New("engine: chain count mismatch")
	ErrNameMismatch         = errors.New("engine: record name mismatch")
)

// Save writes the whole session: the active scene, the music track, the
// pause flag, the RNG, then every global object, counter, scene and chain,
// and last the object on the cursor.
func (e *Engine) Save(w io.Writer) error {
	sw := save.NewWriter(w)
	sw.Header()

	sw.String(e.sceneRef(e.active))
	if e.music != nil {
		sw.String(named.Path(e.music))
	} else {
		sw.String("")
	}
	sw.Bool(e.paused)
	writeInt64(sw, e.RNG.Seed())
	writeInt64(sw, e.RNG.Position())

	sw.Int(len(e.Registry.Globals()))
	for _, o := range e.Registry.Globals() {
		sw.String(o.Name())
		o.Save(sw)
	}
	sw.Int(len(e.Registry.Counters()))
	for _, c := range e.Registry.Counters() {
		sw.String(c.Name())
		c.Save(sw)
	}
	sw.Int(len(e.Registry.Scenes()))
	for _, s := range e.Registry.Scenes() {
		sw.String(s.Name())
		s.Save(sw)
	}
	sw.Int(len(e.Registry.Chains()))
	for _, ch := range e.Registry.Chains() {
		sw.String(ch.Name())
		ch.Save(sw)
	}

	if e.carried != nil {
		sw.String(e.carried.Name())
	} else {
		sw.String("")
	}
	return sw.Flush()
}

// Load restores a session written by Save. A rejected stream leaves the
// session as it was.
func (e *Engine) Load(r io.Reader) error {
	var backup bytes.Buffer
	if err := e.Save(&backup); err != nil {
		return fmt.Errorf("snapshot before load: %w", err)
	}
	if err := e.load(save.NewReader(r)); err != nil {
		if rerr := e.load(save.NewReader(&backup)); rerr != nil {
			logger.Log.WithFields(logrus.Fields{"error": rerr}).Warn("session rollback failed")
		}
		return err
	}
	return nil
}

func (e *Engine) load(r *save.Reader) error {
	if err := r.Header(); err != nil {
		return err
	}
	activeRef := r.String()
	musicRef := r.String()
	paused := r.Bool()
	seed := readInt64(r)
	pos := readInt64(r)
	if err := r.Err(); err != nil {
		return err
	}

	// 1. Global objects.
	if err := expectCount(r, len(e.Registry.Globals()), ErrGlobalCountMismatch); err != nil {
		return err
	}
	for _, o := range e.Registry.Globals() {
		if err := expectName(r, o.Name()); err != nil {
			return err
		}
		if err := o.Load(r); err != nil {
			return fmt.Errorf("global %s: %w", o.Name(), err)
		}
	}

	// 2. Counters.
	if err := expectCount(r, len(e.Registry.Counters()), ErrCounterCountMismatch); err != nil {
		return err
	}
	for _, c := range e.Registry.Counters() {
		if err := expectName(r, c.Name()); err != nil {
			return err
		}
		if err := c.Load(r); err != nil {
			return fmt.Errorf("counter %s: %w", c.Name(), err)
		}
	}

	// 3. Scenes.
	if err := expectCount(r, len(e.Registry.Scenes()), ErrSceneCountMismatch); err != nil {
		return err
	}
	for _, s := range e.Registry.Scenes() {
		if err := expectName(r, s.Name()); err != nil {
			return err
		}
		if err := s.Load(r); err != nil {
			return err
		}
	}

	// 4. Trigger chains.
	if err := expectCount(r, len(e.Registry.Chains()), ErrChainCountMismatch); err != nil {
		return err
	}
	for _, ch := range e.Registry.Chains() {
		if err := expectName(r, ch.Name()); err != nil {
			return err
		}
		if err := ch.Load(r); err != nil {
			return err
		}
	}

	carriedRef := r.String()
	if err := r.Err(); err != nil {
		return err
	}

	e.active = e.Registry.Scene(activeRef)
	e.music, _ = e.Registry.Resolve(musicRef).(*scene.MusicTrack)
	e.paused = paused
	e.RNG = RestoreRNG(seed, pos)
	e.carried = e.Registry.Global(carriedRef)
	e.next = nil
	e.nextFrame = false
	e.sceneSaved = true
	e.ctx = condition.Context{}
	e.Mouse.ClearEvents()
	if e.active != nil {
		e.active.InitObjectsGrid()
	}
	return nil
}

// SaveSlot writes the session into a store slot.
func (e *Engine) SaveSlot(ctx context.Context, slot int) error {
	if e.Store == nil {
		return ErrNoStore
	}
	var buf bytes.Buffer
	if err := e.Save(&buf); err != nil {
		return fmt.Errorf("save slot %d: %w", slot, err)
	}
	if err := e.Store.Put(ctx, slot, buf.Bytes()); err != nil {
		return fmt.Errorf("save slot %d: %w", slot, err)
	}
	logger.Log.WithFields(logrus.Fields{
		"slot":  slot,
		"bytes": buf.Len(),
		"scene": e.sceneRef(e.active),
	}).Info("session saved")
	e.publish(events.Event{Kind: events.Saved, Slot: slot})
	return nil
}

// LoadSlot restores the session from a store slot.
func (e *Engine) LoadSlot(ctx context.Context, slot int) error {
	if e.Store == nil {
		return ErrNoStore
	}
	data, err := e.Store.Get(ctx, slot)
	if err != nil {
		return fmt.Errorf("load slot %d: %w", slot, err)
	}
	if err := e.Load(bytes.NewReader(data)); err != nil {
		logger.Log.WithFields(logrus.Fields{"slot": slot, "error": err}).Warn("save rejected")
		return fmt.Errorf("load slot %d: %w", slot, err)
	}
	logger.Log.WithFields(logrus.Fields{
		"slot":  slot,
		"scene": e.sceneRef(e.active),
	}).Info("session loaded")
	e.publish(events.Event{Kind: events.Loaded, Slot: slot, Scene: e.sceneRef(e.active)})
	return nil
}

func (e *Engine) sceneRef(s *scene.Scene) string {
	if s == nil {
		return ""
	}
	return s.Name()
}

func expectCount(r *save.Reader, want int, mismatch error) error {
	n := r.Int()
	if err := r.Err(); err != nil {
		return err
	}
	if n != want {
		return fmt.Errorf("%w: have %d, save has %d", mismatch, want, n)
	}
	return nil
}

func expectName(r *save.Reader, want string) error {
	got := r.String()
	if err := r.Err(); err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: expected %q, got %q", ErrNameMismatch, want, got)
	}
	return nil
}

// The stream carries 32-bit integers, so 64-bit values go as two halves.
func writeInt64(w *save.Writer, v int64) {
	w.Int(int(int32(v >> 32)))
	w.Int(int(int32(v)))
}

func readInt64(r *save.Reader) int64 {
	hi := int64(r.Int())
	lo := int64(uint32(r.Int()))
	return hi<<32 | lo
}
