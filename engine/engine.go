// Package engine provides the game dispatcher. It owns the runtime registry
// and drives every tick in a fixed order: input, mouse handling, trigger
// chains, counters and finally the active scene.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/qdcore/engine/condition"
	"github.com/nathoo/qdcore/engine/effects"
	"github.com/nathoo/qdcore/engine/events"
	"github.com/nathoo/qdcore/engine/geom"
	"github.com/nathoo/qdcore/engine/grid"
	"github.com/nathoo/qdcore/engine/input"
	"github.com/nathoo/qdcore/engine/named"
	"github.com/nathoo/qdcore/engine/object"
	"github.com/nathoo/qdcore/engine/scene"
	"github.com/nathoo/qdcore/engine/state"
	"github.com/nathoo/qdcore/engine/trigger"
	"github.com/nathoo/qdcore/logger"
	"github.com/nathoo/qdcore/types"
)

// DefaultLogicPeriod is the length of one logic tick in seconds.
const DefaultLogicPeriod = 0.025

var (
	ErrUnknownScene  = errors.New("engine: unknown scene")
	ErrUnknownObject = errors.New("engine: unknown object")
	ErrUnknownChain  = errors.New("engine: unknown chain")
	ErrNoScene       = errors.New("engine: no active scene")
	ErrNoStore       = errors.New("engine: no save store")
)

// Store keeps session saves by slot number.
type Store interface {
	Put(ctx context.Context, slot int, data []byte) error
	Get(ctx context.Context, slot int) ([]byte, error)
}

// Engine holds the game definitions and the running session.
type Engine struct {
	Defs     *types.GameDef
	Registry *state.Registry
	RNG      *RNG
	Events   *events.Bus

	// Input collects events from any goroutine. They are applied at the
	// start of the next tick.
	Input    *input.Queue
	Mouse    input.Mouse
	Keyboard input.Keyboard

	// LogicPeriod is the tick length in seconds used by Step.
	LogicPeriod float64
	// AutosaveSlot receives a save on the first tick after every scene
	// switch. Negative disables.
	AutosaveSlot int
	Store        Store

	ctx condition.Context

	active   *scene.Scene
	next     *scene.Scene
	music    *scene.MusicTrack
	mouseObj *object.Object
	carried  *object.Object

	paused     bool
	nextFrame  bool
	sceneSaved bool

	pendingSave int
	pendingLoad int

	tick uint64
	time float64
}

func (e *Engine) ActiveScene() *scene.Scene     { return e.active }
func (e *Engine) NextScene() *scene.Scene       { return e.next }
func (e *Engine) MusicTrack() *scene.MusicTrack { return e.music }
func (e *Engine) Carried() *object.Object       { return e.carried }
func (e *Engine) MouseObject() *object.Object   { return e.mouseObj }
func (e *Engine) Context() *condition.Context   { return &e.ctx }
func (e *Engine) Tick() uint64                  { return e.tick }
func (e *Engine) Time() float64                 { return e.time }
func (e *Engine) Paused() bool                  { return e.paused }
func (e *Engine) QueueScene(s *scene.Scene)     { e.next = s }
func (e *Engine) Rnd(n int) int                 { return e.RNG.Rnd(n) }
func (e *Engine) Start(n named.Named) bool      { return effects.Start(n, e) }
func (e *Engine) Finished(n named.Named) bool   { return effects.Finished(n, e) }
func (e *Engine) KeyPressed(code int) bool      { return e.Keyboard.IsPressed(code) }

// SetMusicTrack makes t the current track.
func (e *Engine) SetMusicTrack(t *scene.MusicTrack) {
	e.music = t
	logger.Log.WithFields(logrus.Fields{"track": named.Path(t)}).Debug("music track selected")
}

// MouseEventActive reports whether ev happened during the current tick.
func (e *Engine) MouseEventActive(ev input.MouseEvent) bool {
	return e.Mouse.IsEventActive(ev)
}

// ClickConsumed reports whether this tick's click went to an object on the
// cursor or a dialog phrase. Clicks that only satisfied a condition still
// move the selected personage.
func (e *Engine) ClickConsumed() bool {
	return e.ctx.Has(condition.ObjectClick | condition.DialogClick)
}

// Check evaluates c against the running session.
func (e *Engine) Check(c *condition.Condition) bool {
	return condition.Check(c, world{e}, &e.ctx)
}

// CheckCondition is Check for callers outside the tick, such as the
// debugger. It does not leave click bookkeeping behind.
func (e *Engine) CheckCondition(c *condition.Condition) bool {
	saved := e.ctx
	ok := e.Check(c)
	e.ctx = saved
	return ok
}

// DeactivateTriggers stops every trigger element governing n or an object
// owned by n.
func (e *Engine) DeactivateTriggers(n named.Named) {
	for _, ch := range e.Registry.Chains() {
		ch.DeactivateObjectTriggers(n)
	}
}

// Quant advances the session by dt seconds.
func (e *Engine) Quant(dt float64) {
	// 1. Input queued since the previous tick.
	input.Apply(e.Input.Drain(), &e.Mouse, &e.Keyboard)

	// 2. Cursor position. The move event is raised every tick so that
	// hover tracking stays current.
	pos := e.Mouse.Pos()
	if e.mouseObj != nil {
		e.mouseObj.R = geom.Vec3f{X: pos.X, Y: pos.Y}
		e.mouseObj.Screen = pos
		e.mouseObj.Quant(dt)
	}
	e.Mouse.SetEvent(input.Move)

	// 3. Mouse handlers.
	for _, ev := range e.Mouse.ActiveEvents() {
		e.mouseHandler(pos, ev)
	}

	// 4. World.
	if !e.paused || e.nextFrame {
		if e.active != nil {
			e.active.InitObjectsGrid()
		}
		for _, ch := range e.Registry.Chains() {
			ch.Quant(dt, e)
		}
		for _, c := range e.Registry.Counters() {
			c.Quant()
		}
		if e.active != nil {
			e.active.Quant(dt, e)
		}
		for _, o := range e.Registry.Globals() {
			if o != e.mouseObj {
				o.Quant(dt)
			}
		}
		e.nextFrame = false
	}

	// 5. Events live for one tick.
	e.Mouse.ClearEvents()

	// 6 and 7. A click some condition consumed did not fail.
	if e.ctx.SuccessfulClick {
		e.ctx.Drop(condition.ClickFailed)
	}
	if e.ctx.SuccessfulObjectClick {
		e.ctx.Drop(condition.ObjectClickFailed)
	}
	e.ctx.ClearClick()
}

// mouseHandler tags object clicks and failed clicks, then passes the event
// to the active scene.
func (e *Engine) mouseHandler(pos geom.Vec2f, ev input.MouseEvent) bool {
	if (ev == input.LeftDown || ev == input.RightDown) && e.carried != nil {
		e.ctx.Set(condition.ObjectClick)
		e.ctx.MouseClickObject = e.carried
	}
	if e.paused {
		return false
	}
	if ev == input.LeftDown {
		if e.ctx.MouseClickObject != nil {
			e.ctx.Set(condition.ObjectClickFailed)
		} else {
			e.ctx.Set(condition.ClickFailed)
		}
	}
	if e.active == nil {
		return false
	}
	return e.active.MouseHandler(pos, ev)
}

// Step runs one logic period: pending saves and loads, one Quant, then a
// pending scene switch followed by two settling quants.
func (e *Engine) Step(ctx context.Context) error {
	var errs []error

	// 1. Autosave once a scene was entered.
	if !e.sceneSaved && e.active != nil && e.AutosaveSlot >= 0 && e.Store != nil {
		if err := e.SaveSlot(ctx, e.AutosaveSlot); err != nil {
			errs = append(errs, fmt.Errorf("autosave: %w", err))
		}
	}

	// 2. Requests from the console.
	if slot := e.pendingSave; slot >= 0 {
		e.pendingSave = -1
		if err := e.SaveSlot(ctx, slot); err != nil {
			errs = append(errs, err)
		}
	}
	if slot := e.pendingLoad; slot >= 0 {
		e.pendingLoad = -1
		if err := e.LoadSlot(ctx, slot); err != nil {
			errs = append(errs, err)
		}
	}
	e.sceneSaved = true

	// 3. The tick itself.
	e.Quant(e.LogicPeriod)
	e.tick++
	e.time += e.LogicPeriod

	// 4. Scene switch.
	if !e.paused && e.next != nil {
		s := e.next
		e.next = nil
		e.selectScene(s)
		e.Quant(0)
		e.Quant(0)
	}

	for _, err := range errs {
		logger.Log.WithFields(logrus.Fields{"tick": e.tick}).Warn(err.Error())
	}
	return errors.Join(errs...)
}

// Pause stops the world. Input is still taken.
func (e *Engine) Pause() { e.paused = true }

// Resume restarts the world after Pause.
func (e *Engine) Resume() { e.paused = false }

// NextFrame lets a paused world advance by one tick.
func (e *Engine) NextFrame() { e.nextFrame = true }

// RequestSave saves the session into slot before the next tick.
func (e *Engine) RequestSave(slot int) { e.pendingSave = slot }

// RequestLoad loads the session from slot before the next tick.
func (e *Engine) RequestLoad(slot int) { e.pendingLoad = slot }

// SelectScene switches to the named scene at once.
func (e *Engine) SelectScene(name string) error {
	s := e.Registry.Scene(name)
	if s == nil {
		return fmt.Errorf("%w: %q", ErrUnknownScene, name)
	}
	e.next = nil
	e.selectScene(s)
	return nil
}

func (e *Engine) selectScene(s *scene.Scene) {
	if s == e.active {
		return
	}
	e.active = s
	e.sceneSaved = false
	s.Activate()
	logger.Log.WithFields(logrus.Fields{"scene": s.Name(), "tick": e.tick}).Info("scene selected")
	e.publish(events.Event{Kind: events.SceneSelected, Scene: s.Name()})
}

// Restart returns every entity to its scripted state, reseeds the RNG and
// selects the start scene.
func (e *Engine) Restart() {
	e.Registry.Init()
	e.RNG = NewRNG(e.RNG.Seed())
	e.ctx = condition.Context{}
	e.Input.Drain()
	e.Mouse.ClearEvents()
	e.Keyboard.Reset()

	e.active, e.next, e.music, e.carried = nil, nil, nil, nil
	e.paused, e.nextFrame, e.sceneSaved = false, false, true
	e.pendingSave, e.pendingLoad = -1, -1
	e.tick, e.time = 0, 0

	if s := e.startScene(); s != nil {
		e.selectScene(s)
	}
	logger.Log.WithFields(logrus.Fields{"game": e.Defs.Title}).Info("game restarted")
	e.publish(events.Event{Kind: events.Restarted})
}

func (e *Engine) startScene() *scene.Scene {
	if e.Defs.StartScene != "" {
		return e.Registry.Scene(e.Defs.StartScene)
	}
	if scenes := e.Registry.Scenes(); len(scenes) > 0 {
		return scenes[0]
	}
	return nil
}

// Carry puts the named global object on the cursor. An empty name empties
// the cursor.
func (e *Engine) Carry(name string) error {
	if name == "" {
		e.carried = nil
		return nil
	}
	o := e.Registry.Global(name)
	if o == nil {
		return fmt.Errorf("%w: %q", ErrUnknownObject, name)
	}
	e.carried = o
	return nil
}

// SetActivePersonage selects the named personage of the active scene.
func (e *Engine) SetActivePersonage(name string) error {
	if e.active == nil {
		return ErrNoScene
	}
	p := e.active.Object(name)
	if p == nil || !p.IsMoving() {
		return fmt.Errorf("%w: personage %q", ErrUnknownObject, name)
	}
	e.active.SetActivePersonage(p)
	return nil
}

// Mark runs the reachability marking of a chain from element id.
func (e *Engine) Mark(chain string, id int) error {
	ch := e.Registry.Chain(chain)
	if ch == nil {
		return fmt.Errorf("%w: %q", ErrUnknownChain, chain)
	}
	ch.ClearDebug()
	if !ch.DebugSetActive(id) {
		return fmt.Errorf("%w: %d", trigger.ErrNoElement, id)
	}
	return nil
}

// PushMouse queues a mouse event at screen position pos.
func (e *Engine) PushMouse(ev input.MouseEvent, pos geom.Vec2f) {
	e.Input.Push(input.Event{Device: input.DeviceMouse, Mouse: ev, Pos: pos})
}

// PushKey queues a key press or release.
func (e *Engine) PushKey(code int, down bool) {
	e.Input.Push(input.Event{Device: input.DeviceKeyboard, Key: code, Down: down})
}

func (e *Engine) notify(t trigger.Transition) {
	e.publish(events.Event{
		Kind:    events.ElementStatus,
		Chain:   t.Chain,
		Element: t.Element,
		Object:  t.Object,
		From:    t.From.String(),
		To:      t.To.String(),
	})
}

func (e *Engine) publish(ev events.Event) {
	ev.Tick = e.tick
	ev.Time = e.time
	e.Events.Publish(ev)
}

// world is the view of the session conditions evaluate against.
type world struct{ e *Engine }

func (w world) MouseEventActive(ev input.MouseEvent) bool { return w.e.Mouse.IsEventActive(ev) }
func (w world) KeyPressed(code int) bool                  { return w.e.Keyboard.IsPressed(code) }
func (w world) MouseObject() *object.Object               { return w.e.carried }

func (w world) ActiveScene() condition.Scene {
	if w.e.active == nil {
		return nil
	}
	return w.e.active
}

func (w world) ActivePersonage() *object.Object {
	if w.e.active == nil {
		return nil
	}
	return w.e.active.ActivePersonage()
}

func (w world) Object(name string) *object.Object {
	return w.e.Registry.Object(w.e.active, name)
}

func (w world) AnyPersonageInZone(z *grid.Zone) bool {
	return w.e.active != nil && w.e.active.AnyPersonageInZone(z)
}
