package condition

import (
	"fmt"

	"github.com/nathoo/qdcore/engine/save"
)

// SetTimer configures a TIMER condition. rnd is the percent chance that
// an elapsed period does not fire.
func (c *Condition) SetTimer(period float64, rnd int) error {
	if c.typ != Timer {
		return fmt.Errorf("%w: %s is not a timer", ErrInvalidArity, c.typ)
	}
	c.data[SlotTimerPeriod].f[0] = period
	c.data[SlotTimerPeriod].f[1] = 0
	c.data[SlotTimerRnd].i[0] = rnd
	c.data[SlotTimerRnd].i[1] = 0
	return nil
}

// Quant advances a TIMER condition by dt. When the accumulated time
// reaches the period the period is subtracted and the timer fires for
// this tick, unless the random skip roll hits. Other kinds ignore Quant.
func (c *Condition) Quant(dt float64, rnd Rand) {
	if c.typ != Timer {
		return
	}
	f := c.data[SlotTimerPeriod].f
	i := c.data[SlotTimerRnd].i
	period := f[0]

	f[1] += dt
	if f[1] < period {
		i[1] = 0
		return
	}
	if period > 0 {
		f[1] -= period
	} else {
		f[1] = 0
	}
	i[1] = 1
	if i[0] > 0 && rnd != nil && rnd.Rnd(100) < i[0] {
		i[1] = 0
	}
}

// ResetTimer clears the elapsed time and the fired flag of a TIMER
// condition. Other kinds are left alone.
func (c *Condition) ResetTimer() {
	if c.typ != Timer {
		return
	}
	c.data[SlotTimerPeriod].f[1] = 0
	c.data[SlotTimerRnd].i[1] = 0
}

// Fired reports whether a TIMER condition fired on its last Quant.
func (c *Condition) Fired() bool {
	v, ok := c.Int(SlotTimerRnd, 1)
	return ok && v != 0
}

// Save writes the live timer state. Other kinds carry none.
func (c *Condition) Save(w *save.Writer) {
	if c.typ != Timer {
		return
	}
	w.Float(c.data[SlotTimerPeriod].f[1])
	w.Int(c.data[SlotTimerRnd].i[1])
}

// Load reads what Save wrote.
func (c *Condition) Load(r *save.Reader) error {
	if c.typ != Timer {
		return nil
	}
	elapsed, state := r.Float(), r.Int()
	if err := r.Err(); err != nil {
		return err
	}
	c.data[SlotTimerPeriod].f[1] = elapsed
	c.data[SlotTimerRnd].i[1] = state
	return nil
}
