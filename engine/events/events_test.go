package events

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func TestRing(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		pushes int
		want   []uint64
	}{
		{"empty", 3, 0, []uint64{}},
		{"partial", 3, 2, []uint64{1, 2}},
		{"full", 3, 3, []uint64{1, 2, 3}},
		{"wrapped", 3, 5, []uint64{3, 4, 5}},
		{"size clamped", 0, 2, []uint64{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRing(tt.size)
			for i := 1; i <= tt.pushes; i++ {
				r.Push(Event{Seq: uint64(i)})
			}
			got := r.Snapshot()
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d events, got %d", len(tt.want), len(got))
			}
			for i, e := range got {
				if e.Seq != tt.want[i] {
					t.Errorf("event %d: expected seq %d, got %d", i, tt.want[i], e.Seq)
				}
			}
		})
	}
}

func TestBus_PublishAndReplay(t *testing.T) {
	b := NewBus(2)
	b.Publish(Event{Kind: Restarted})
	b.Publish(Event{Kind: SceneSelected, Scene: "hall"})
	b.Publish(Event{Kind: SceneSelected, Scene: "cellar"})

	id, ch, recent := b.Subscribe(4)
	if len(recent) != 2 || recent[0].Scene != "hall" || recent[1].Seq != 3 {
		t.Fatalf("expected the last two events replayed, got %v", recent)
	}

	e := b.Publish(Event{Kind: ElementStatus, Chain: "intro", Element: 0, From: "waiting", To: "working"})
	if e.Seq != 4 {
		t.Errorf("expected seq 4, got %d", e.Seq)
	}
	if got := <-ch; got.Seq != 4 || got.Chain != "intro" {
		t.Errorf("expected the status event delivered, got %v", got)
	}

	b.Unsubscribe(id)
	if _, ok := <-ch; ok {
		t.Error("expected the channel closed after unsubscribe")
	}
	b.Unsubscribe(id)
}

func TestBus_SlowSubscriberDrops(t *testing.T) {
	b := NewBus(8)
	_, ch, _ := b.Subscribe(1)
	for i := 0; i < 3; i++ {
		b.Publish(Event{Kind: Saved, Slot: i})
	}
	if b.Dropped() != 2 {
		t.Errorf("expected 2 dropped deliveries, got %d", b.Dropped())
	}
	if got := <-ch; got.Slot != 0 {
		t.Errorf("expected the first event kept, got slot %d", got.Slot)
	}
	if len(b.Recent()) != 3 {
		t.Errorf("expected the ring to keep every event, got %d", len(b.Recent()))
	}
}

func TestBus_Concurrent(t *testing.T) {
	b := NewBus(16)
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				b.Publish(Event{Kind: ElementStatus})
			}
		}()
	}
	wg.Wait()

	recent := b.Recent()
	if len(recent) != 16 || recent[15].Seq != 400 {
		t.Errorf("expected the last 16 of 400 events, got %d ending at %d", len(recent), recent[len(recent)-1].Seq)
	}
}

func TestEventEncoding(t *testing.T) {
	e := Event{Seq: 1, Tick: 7, Kind: ElementStatus, Chain: "intro", Element: 2, Object: "door", From: "waiting", To: "working"}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"kind":"element_status"`) {
		t.Errorf("expected the kind encoded by name, got %s", data)
	}
	if strings.Contains(string(data), "scene") {
		t.Errorf("expected empty fields omitted, got %s", data)
	}
	if got := e.String(); got != "#7 intro[2] door: waiting -> working" {
		t.Errorf("unexpected string %q", got)
	}
}
