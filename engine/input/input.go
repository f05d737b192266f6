// Package input holds the mouse and keyboard state observed by conditions,
// and the queue through which front ends and remote bridges feed events.
//
// The engine drains the queue once at the start of every tick. Conditions
// only read the dispatchers; the engine clears mouse events at tick end.
package input

import (
	"strings"
	"sync"

	"github.com/nathoo/qdcore/engine/geom"
)

// MouseEvent is a mouse button or motion event.
type MouseEvent int

const (
	LeftDown MouseEvent = iota
	RightDown
	Move
	LeftUp
	RightUp
	LeftDoubleClick
	RightDoubleClick

	mouseEventCount
)

var mouseEventNames = [...]string{
	LeftDown:         "left_down",
	RightDown:        "right_down",
	Move:             "move",
	LeftUp:           "left_up",
	RightUp:          "right_up",
	LeftDoubleClick:  "left_dblclick",
	RightDoubleClick: "right_dblclick",
}

func (e MouseEvent) String() string {
	if e >= 0 && e < mouseEventCount {
		return mouseEventNames[e]
	}
	return "unknown"
}

// ParseMouseEvent maps an event name to its value.
func ParseMouseEvent(s string) (MouseEvent, bool) {
	s = strings.ToLower(s)
	for i, n := range mouseEventNames {
		if n == s {
			return MouseEvent(i), true
		}
	}
	return 0, false
}

// Mouse is the per-tick mouse state.
type Mouse struct {
	pos    geom.Vec2f
	active [mouseEventCount]bool
}

func (m *Mouse) Pos() geom.Vec2f     { return m.pos }
func (m *Mouse) SetPos(p geom.Vec2f) { m.pos = p }

// SetEvent marks ev as happened during the current tick.
func (m *Mouse) SetEvent(ev MouseEvent) {
	if ev >= 0 && ev < mouseEventCount {
		m.active[ev] = true
	}
}

// IsEventActive reports whether ev happened during the current tick.
func (m *Mouse) IsEventActive(ev MouseEvent) bool {
	return ev >= 0 && ev < mouseEventCount && m.active[ev]
}

// ActiveEvents lists the events of the current tick in declaration order.
func (m *Mouse) ActiveEvents() []MouseEvent {
	var out []MouseEvent
	for i, on := range m.active {
		if on {
			out = append(out, MouseEvent(i))
		}
	}
	return out
}

// ClearEvents drops the events of the current tick.
func (m *Mouse) ClearEvents() {
	m.active = [mouseEventCount]bool{}
}

// Keyboard tracks which virtual keys are held down.
type Keyboard struct {
	pressed map[int]bool
}

func (k *Keyboard) SetPressed(code int, down bool) {
	if k.pressed == nil {
		k.pressed = make(map[int]bool)
	}
	if down {
		k.pressed[code] = true
	} else {
		delete(k.pressed, code)
	}
}

func (k *Keyboard) IsPressed(code int) bool { return k.pressed[code] }

// Reset releases every key.
func (k *Keyboard) Reset() { k.pressed = nil }

var keyNames = map[string]int{
	"enter": 13, "esc": 27, "space": 32,
	"left": 37, "up": 38, "right": 39, "down": 40,
	"tab": 9, "backspace": 8, "shift": 16, "ctrl": 17,
}

// ParseKey maps a key name, a single character or a decimal code to a
// virtual key code.
func ParseKey(s string) (int, bool) {
	if code, ok := keyNames[strings.ToLower(s)]; ok {
		return code, true
	}
	if len(s) == 1 {
		c := s[0]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		return int(c), true
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, s != ""
}

// Device distinguishes queued events.
type Device int

const (
	DeviceMouse Device = iota
	DeviceKeyboard
)

// Event is one queued input event.
type Event struct {
	Device Device
	Mouse  MouseEvent
	Pos    geom.Vec2f
	Key    int
	Down   bool
}

// Queue collects events from any goroutine until the engine drains them.
type Queue struct {
	mu     sync.Mutex
	events []Event
}

// Push appends ev.
func (q *Queue) Push(ev Event) {
	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()
}

// Drain removes and returns every queued event in arrival order.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	return out
}

// Len returns the number of waiting events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Apply feeds drained events into the dispatchers. Mouse events move the
// cursor and mark the event active for the tick.
func Apply(events []Event, m *Mouse, k *Keyboard) {
	for _, ev := range events {
		switch ev.Device {
		case DeviceMouse:
			m.SetPos(ev.Pos)
			m.SetEvent(ev.Mouse)
		case DeviceKeyboard:
			k.SetPressed(ev.Key, ev.Down)
		}
	}
}
