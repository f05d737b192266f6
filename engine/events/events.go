// Package events carries engine event records from the dispatcher to
// observers such as the profiler and the debugger. Publishing never
// blocks the tick: slow subscribers lose records, and a ring buffer keeps
// the most recent ones for late joiners.
package events

import (
	"fmt"
	"sync"
)

// Kind tags an event record.
type Kind int

const (
	ElementStatus Kind = iota
	SceneSelected
	Restarted
	Saved
	Loaded
)

var kindNames = [...]string{
	ElementStatus: "element_status",
	SceneSelected: "scene_selected",
	Restarted:     "restarted",
	Saved:         "saved",
	Loaded:        "loaded",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// MarshalText lets records encode the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Event is one engine event. Fields that do not apply to the kind are
// zero.
type Event struct {
	Seq  uint64  `json:"seq"`
	Tick uint64  `json:"tick"`
	Time float64 `json:"time"`
	Kind Kind    `json:"kind"`

	Chain   string `json:"chain,omitempty"`
	Element int    `json:"element,omitempty"`
	Object  string `json:"object,omitempty"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`

	Scene string `json:"scene,omitempty"`
	Slot  int    `json:"slot,omitempty"`
}

func (e Event) String() string {
	switch e.Kind {
	case ElementStatus:
		return fmt.Sprintf("#%d %s[%d] %s: %s -> %s", e.Tick, e.Chain, e.Element, e.Object, e.From, e.To)
	case SceneSelected:
		return fmt.Sprintf("#%d scene %s", e.Tick, e.Scene)
	case Saved, Loaded:
		return fmt.Sprintf("#%d %s slot %d", e.Tick, e.Kind, e.Slot)
	}
	return fmt.Sprintf("#%d %s", e.Tick, e.Kind)
}

// Ring keeps the last Cap events.
type Ring struct {
	buf   []Event
	start int
	n     int
}

// NewRing returns a ring holding up to size events. Sizes below one are
// raised to one.
func NewRing(size int) *Ring {
	if size < 1 {
		size = 1
	}
	return &Ring{buf: make([]Event, size)}
}

func (r *Ring) Len() int { return r.n }
func (r *Ring) Cap() int { return len(r.buf) }

// Push appends e, dropping the oldest event when full.
func (r *Ring) Push(e Event) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = e
		r.n++
		return
	}
	r.buf[r.start] = e
	r.start = (r.start + 1) % len(r.buf)
}

// Snapshot returns the held events, oldest first.
func (r *Ring) Snapshot() []Event {
	out := make([]Event, r.n)
	for i := range out {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Bus fans events out to subscribers. It is safe for concurrent use.
type Bus struct {
	mu      sync.Mutex
	seq     uint64
	recent  *Ring
	subs    map[int]chan Event
	nextSub int
	dropped uint64
}

// NewBus returns a bus remembering the last buffer events.
func NewBus(buffer int) *Bus {
	return &Bus{recent: NewRing(buffer), subs: map[int]chan Event{}}
}

// Publish stamps e with the next sequence number, records it and offers it
// to every subscriber without waiting.
func (b *Bus) Publish(e Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	e.Seq = b.seq
	b.recent.Push(e)
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped++
		}
	}
	return e
}

// Subscribe registers a subscriber with a channel of the given capacity.
// It returns the events recorded so far, so that the subscriber can
// replay them before reading the channel.
func (b *Bus) Subscribe(capacity int) (id int, ch <-chan Event, recent []Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := make(chan Event, capacity)
	id = b.nextSub
	b.nextSub++
	b.subs[id] = c
	return id, c, b.recent.Snapshot()
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(c)
	}
}

// Recent returns the recorded events, oldest first.
func (b *Bus) Recent() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.recent.Snapshot()
}

// Dropped is the number of deliveries lost to full subscriber channels.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
