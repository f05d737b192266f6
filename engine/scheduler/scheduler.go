// Package scheduler drives the engine with a fixed logic step. Wall-clock
// time is accumulated and converted into whole steps, so the simulation
// advances identically however the host loop is timed.
package scheduler

import "time"

// StepFunc advances a subsystem by dt seconds.
type StepFunc func(dt float64)

// Scheduler turns elapsed time into fixed steps of Period.
type Scheduler struct {
	Period time.Duration
	// MaxSteps caps the steps run by one Advance call. Time beyond the
	// cap is discarded so that a stalled host does not spiral. Zero means
	// no cap.
	MaxSteps int

	acc time.Duration
}

// New returns a scheduler with the given period and step cap.
func New(period time.Duration, maxSteps int) *Scheduler {
	return &Scheduler{Period: period, MaxSteps: maxSteps}
}

// Advance adds elapsed to the accumulated time and runs step once per
// whole period. It returns the number of steps run. The remainder carries
// over to the next call.
func (s *Scheduler) Advance(elapsed time.Duration, step StepFunc) int {
	if s.Period <= 0 {
		return 0
	}
	s.acc += elapsed
	dt := s.Period.Seconds()
	n := 0
	for s.acc >= s.Period {
		if s.MaxSteps > 0 && n >= s.MaxSteps {
			s.acc %= s.Period
			break
		}
		step(dt)
		s.acc -= s.Period
		n++
	}
	return n
}

// Pending is the accumulated time not yet turned into a step.
func (s *Scheduler) Pending() time.Duration { return s.acc }

// Reset drops the accumulated time.
func (s *Scheduler) Reset() { s.acc = 0 }

// Waiter is a wait that keeps the world running. Code that must pause for
// a while polls it from the host loop instead of sleeping.
type Waiter struct {
	period    time.Duration
	remaining time.Duration
}

// Wait returns a Waiter lasting d, pumped in steps of the scheduler period.
func (s *Scheduler) Wait(d time.Duration) *Waiter {
	return &Waiter{period: s.Period, remaining: d}
}

// Poll spends elapsed time of the wait, calling pump for each sub-interval
// of at most one period, and reports whether the wait is over.
func (w *Waiter) Poll(elapsed time.Duration, pump StepFunc) bool {
	if elapsed > w.remaining {
		elapsed = w.remaining
	}
	for elapsed > 0 {
		d := elapsed
		if w.period > 0 && d > w.period {
			d = w.period
		}
		pump(d.Seconds())
		elapsed -= d
		w.remaining -= d
	}
	return w.Done()
}

// Done reports whether the whole duration has been spent.
func (w *Waiter) Done() bool { return w.remaining <= 0 }

// Remaining is the time left to wait.
func (w *Waiter) Remaining() time.Duration { return w.remaining }
