// Package profiler watches trigger chains at run time. It counts element
// activations from the engine event bus, runs reachability marking and
// streams transitions to websocket clients.
package profiler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nathoo/qdcore/engine/events"
	"github.com/nathoo/qdcore/engine/trigger"
	"github.com/nathoo/qdcore/logger"
)

// Marker runs reachability marking on a chain. *engine.Engine satisfies it.
type Marker interface {
	Mark(chain string, id int) error
}

// Key names one chain element.
type Key struct {
	Chain   string `json:"chain"`
	Element int    `json:"element"`
}

// Count is the activation count of one element.
type Count struct {
	Key
	Object      string `json:"object"`
	Activations int    `json:"activations"`
}

// Profiler records element activations. Its methods are safe for
// concurrent use, except MarkReachability, which must run on the goroutine
// that steps the engine.
type Profiler struct {
	Session uuid.UUID

	bus    *events.Bus
	marker Marker
	buffer int

	mu     sync.Mutex
	counts map[Key]*Count
	subID  int
	done   chan struct{}
}

// New returns a profiler over bus. buffer is the capacity of each
// subscriber channel.
func New(bus *events.Bus, marker Marker, buffer int) *Profiler {
	if buffer < 1 {
		buffer = 64
	}
	return &Profiler{
		Session: uuid.New(),
		bus:     bus,
		marker:  marker,
		buffer:  buffer,
		counts:  map[Key]*Count{},
	}
}

// Start consumes the bus in a goroutine until Stop.
func (p *Profiler) Start() {
	id, ch, recent := p.bus.Subscribe(p.buffer)
	for _, ev := range recent {
		p.Record(ev)
	}

	p.mu.Lock()
	p.subID = id
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	go func() {
		defer close(done)
		for ev := range ch {
			p.Record(ev)
		}
	}()
}

// Stop unsubscribes and waits for the consumer to drain.
func (p *Profiler) Stop() {
	p.mu.Lock()
	done := p.done
	p.done = nil
	id := p.subID
	p.mu.Unlock()
	if done == nil {
		return
	}
	p.bus.Unsubscribe(id)
	<-done
}

// Record counts ev when it starts an element.
func (p *Profiler) Record(ev events.Event) {
	if ev.Kind == events.Restarted {
		p.Reset()
		return
	}
	if ev.Kind != events.ElementStatus || ev.To != trigger.Working.String() {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	k := Key{Chain: ev.Chain, Element: ev.Element}
	c, ok := p.counts[k]
	if !ok {
		c = &Count{Key: k, Object: ev.Object}
		p.counts[k] = c
	}
	c.Activations++
}

// Reset forgets every count.
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts = map[Key]*Count{}
}

// Activations returns the count of one element.
func (p *Profiler) Activations(chain string, id int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.counts[Key{chain, id}]; ok {
		return c.Activations
	}
	return 0
}

// Counts returns every count ordered by chain then element.
func (p *Profiler) Counts() []Count {
	p.mu.Lock()
	out := make([]Count, 0, len(p.counts))
	for _, c := range p.counts {
		out = append(out, *c)
	}
	p.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Chain != out[j].Chain {
			return out[i].Chain < out[j].Chain
		}
		return out[i].Element < out[j].Element
	})
	return out
}

// MaxActivations is the highest count, used to scale heat colours.
func (p *Profiler) MaxActivations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	top := 0
	for _, c := range p.counts {
		if c.Activations > top {
			top = c.Activations
		}
	}
	return top
}

// MarkReachability marks element id active, what it can reach pending
// and what leads to it done.
func (p *Profiler) MarkReachability(chain string, id int) error {
	if p.marker == nil {
		return errors.New("profiler: no marker")
	}
	return p.marker.Mark(chain, id)
}

// Handler serves GET /ws and GET /counts.
func (p *Profiler) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", p.serveWS)
	mux.HandleFunc("/counts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			Session uuid.UUID `json:"session"`
			Counts  []Count   `json:"counts"`
		}{p.Session, p.Counts()})
	})
	return mux
}

// ListenAndServe serves Handler on addr until ctx is cancelled.
func (p *Profiler) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: p.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()

	logger.Log.WithFields(logrus.Fields{"addr": addr, "session": p.Session}).Info("profiler listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
