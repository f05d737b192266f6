package scheduler

import (
	"math"
	"testing"
	"time"
)

func TestAdvance(t *testing.T) {
	tests := []struct {
		name        string
		maxSteps    int
		elapsed     []time.Duration
		wantSteps   int
		wantPending time.Duration
	}{
		{"below one period", 0, []time.Duration{10 * time.Millisecond}, 0, 10 * time.Millisecond},
		{"exact", 0, []time.Duration{50 * time.Millisecond}, 2, 0},
		{"remainder carries", 0, []time.Duration{30 * time.Millisecond, 30 * time.Millisecond}, 2, 10 * time.Millisecond},
		{"capped", 3, []time.Duration{time.Second}, 3, 0},
		{"capped keeps phase", 2, []time.Duration{110 * time.Millisecond}, 2, 10 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(25*time.Millisecond, tt.maxSteps)
			steps := 0
			for _, e := range tt.elapsed {
				steps += s.Advance(e, func(dt float64) {
					if math.Abs(dt-0.025) > 1e-12 {
						t.Fatalf("expected dt 0.025, got %v", dt)
					}
				})
			}
			if steps != tt.wantSteps {
				t.Errorf("expected %d steps, got %d", tt.wantSteps, steps)
			}
			if s.Pending() != tt.wantPending {
				t.Errorf("expected %v pending, got %v", tt.wantPending, s.Pending())
			}
		})
	}
}

func TestAdvance_ZeroPeriod(t *testing.T) {
	s := New(0, 0)
	if n := s.Advance(time.Second, func(float64) { t.Fatal("unexpected step") }); n != 0 {
		t.Errorf("expected no steps, got %d", n)
	}
}

func TestWaitKeepsPumping(t *testing.T) {
	s := New(25*time.Millisecond, 0)
	w := s.Wait(60 * time.Millisecond)

	var pumped []float64
	pump := func(dt float64) { pumped = append(pumped, dt) }

	if w.Poll(40*time.Millisecond, pump) {
		t.Fatal("expected the wait to continue after 40ms")
	}
	if len(pumped) != 2 {
		t.Fatalf("expected 2 pump calls, got %d", len(pumped))
	}
	if !w.Poll(time.Second, pump) {
		t.Fatal("expected the wait over")
	}

	total := 0.0
	for _, dt := range pumped {
		if dt > 0.025+1e-12 {
			t.Errorf("expected sub-intervals of at most one period, got %v", dt)
		}
		total += dt
	}
	if math.Abs(total-0.060) > 1e-9 {
		t.Errorf("expected 60ms pumped in total, got %v", total)
	}
	if w.Remaining() != 0 {
		t.Errorf("expected nothing remaining, got %v", w.Remaining())
	}
}
