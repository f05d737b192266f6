package trigger

import (
	"errors"
	"fmt"

	"github.com/nathoo/qdcore/engine/condition"
	"github.com/nathoo/qdcore/engine/save"
)

var (
	ErrElementCountMismatch = errors.New("trigger: element count mismatch")
	ErrLinkCountMismatch    = errors.New("trigger: link count mismatch")
)

type linkRecord struct {
	element int
	status  LinkStatus
}

type timerRecord struct {
	timer   bool
	elapsed float64
	fired   int
}

type elementRecord struct {
	id       int
	status   Status
	parents  []linkRecord
	children []linkRecord
	timers   []timerRecord
}

// Save writes the live status of the chain: the element count, the root
// record, then one record per element in chain order. Each record carries
// the element ID, so a reordered chain is detected on load.
func (ch *Chain) Save(w *save.Writer) {
	w.Int(len(ch.elements))
	for _, e := range ch.all() {
		saveElement(w, e)
	}
}

func saveElement(w *save.Writer, e *Element) {
	w.Int(e.id)
	w.Int(int(e.status))
	for _, links := range [][]Link{e.parents, e.children} {
		w.Int(len(links))
		for _, l := range links {
			w.Int(l.Element)
			w.Int(int(l.Status))
		}
	}
	w.Int(len(e.conditions))
	for _, c := range e.conditions {
		w.Bool(c.Type() == condition.Timer)
		c.Save(w)
	}
}

// Load restores what Save wrote. The whole record is decoded and checked
// against the chain structure before anything is applied, so a rejected
// load leaves the chain untouched.
func (ch *Chain) Load(r *save.Reader) error {
	n := r.Int()
	if err := r.Err(); err != nil {
		return err
	}
	if n != len(ch.elements) {
		return fmt.Errorf("%w: chain %s has %d, save has %d", ErrElementCountMismatch, ch.Name(), len(ch.elements), n)
	}

	all := ch.all()
	records := make([]elementRecord, len(all))
	for i, e := range all {
		rec, err := loadElement(r)
		if err != nil {
			return err
		}
		if err := check(e, rec); err != nil {
			return fmt.Errorf("chain %s: %w", ch.Name(), err)
		}
		records[i] = rec
	}

	for i, e := range all {
		apply(e, records[i])
	}
	return nil
}

func loadElement(r *save.Reader) (elementRecord, error) {
	var rec elementRecord
	rec.id = r.Int()
	rec.status = Status(r.Int())
	readLinks := func() []linkRecord {
		cnt := r.Int()
		if r.Err() != nil || cnt < 0 {
			return nil
		}
		out := make([]linkRecord, 0, cnt)
		for j := 0; j < cnt && r.Err() == nil; j++ {
			out = append(out, linkRecord{element: r.Int(), status: LinkStatus(r.Int())})
		}
		return out
	}
	rec.parents = readLinks()
	rec.children = readLinks()
	cnt := r.Int()
	for j := 0; j < cnt && r.Err() == nil; j++ {
		t := timerRecord{timer: r.Bool()}
		if t.timer {
			t.elapsed = r.Float()
			t.fired = r.Int()
		}
		rec.timers = append(rec.timers, t)
	}
	if err := r.Err(); err != nil {
		return rec, err
	}
	if rec.status < Inactive || rec.status > Done {
		return rec, fmt.Errorf("%w: element status %d", save.ErrCorrupt, rec.status)
	}
	return rec, nil
}

func check(e *Element, rec elementRecord) error {
	if rec.id != e.id {
		return fmt.Errorf("%w: element %d found where %d expected", save.ErrCorrupt, rec.id, e.id)
	}
	for _, side := range []struct {
		have []Link
		got  []linkRecord
	}{{e.parents, rec.parents}, {e.children, rec.children}} {
		if len(side.have) != len(side.got) {
			return fmt.Errorf("%w: element %d has %d, save has %d", ErrLinkCountMismatch, e.id, len(side.have), len(side.got))
		}
		for i, l := range side.got {
			if l.element != side.have[i].Element {
				return fmt.Errorf("%w: element %d link %d points to %d, save has %d", ErrLinkCountMismatch, e.id, i, side.have[i].Element, l.element)
			}
			if l.status < LinkInactive || l.status > LinkDone {
				return fmt.Errorf("%w: link status %d", save.ErrCorrupt, l.status)
			}
		}
	}
	if len(rec.timers) != len(e.conditions) {
		return fmt.Errorf("%w: element %d has %d conditions, save has %d", save.ErrCorrupt, e.id, len(e.conditions), len(rec.timers))
	}
	for i, c := range e.conditions {
		if rec.timers[i].timer != (c.Type() == condition.Timer) {
			return fmt.Errorf("%w: element %d condition %d kind changed", save.ErrCorrupt, e.id, i)
		}
	}
	return nil
}

func apply(e *Element, rec elementRecord) {
	e.status = rec.status
	for i, l := range rec.parents {
		e.parents[i].Status = l.status
	}
	for i, l := range rec.children {
		e.children[i].Status = l.status
	}
	for i, c := range e.conditions {
		if t := rec.timers[i]; t.timer {
			c.SetFloat(condition.SlotTimerPeriod, 1, t.elapsed)
			c.SetInt(condition.SlotTimerRnd, 1, t.fired)
		}
	}
}
