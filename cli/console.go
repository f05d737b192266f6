package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nathoo/qdcore/engine"
	"github.com/nathoo/qdcore/engine/geom"
	"github.com/nathoo/qdcore/engine/input"
	"github.com/nathoo/qdcore/engine/parser"
	"github.com/nathoo/qdcore/engine/scheduler"
	"github.com/nathoo/qdcore/engine/trigger"
	"github.com/nathoo/qdcore/profiler"
	"github.com/nathoo/qdcore/storage"
)

// SlotLister lists stored saves. storage.Store satisfies it.
type SlotLister interface {
	List(ctx context.Context) ([]storage.Slot, error)
}

// Result is the outcome of one console command.
type Result struct {
	Lines []string
	Quit  bool
	Err   error
}

func (r *Result) printf(format string, args ...any) {
	r.Lines = append(r.Lines, fmt.Sprintf(format, args...))
}

// Console runs debug commands against an engine. The line REPL and the
// TUI share it. It must be used from the goroutine that steps the engine.
type Console struct {
	Engine   *engine.Engine
	Slots    SlotLister
	Profiler *profiler.Profiler
	Trace    bool

	lastSeq uint64
}

var title = cases.Title(language.English)

// Exec runs one parsed command.
func (c *Console) Exec(ctx context.Context, cmd parser.Command) Result {
	var r Result
	e := c.Engine

	switch cmd.Verb {
	case "":
		return r

	case "tick":
		c.steps(ctx, &r, cmd.N)
	case "run":
		period := time.Duration(e.LogicPeriod * float64(time.Second))
		s := scheduler.New(period, 0)
		n := s.Advance(time.Duration(cmd.Seconds*float64(time.Second)), func(float64) {
			c.step(ctx, &r)
		})
		r.printf("ran %d ticks", n)
	case "click", "rclick", "move":
		ev := map[string]input.MouseEvent{"click": input.LeftDown, "rclick": input.RightDown, "move": input.Move}[cmd.Verb]
		e.PushMouse(ev, geom.Vec2f{X: cmd.X, Y: cmd.Y})
		c.steps(ctx, &r, 1)
	case "key":
		e.PushKey(cmd.N, !cmd.Up)
		c.steps(ctx, &r, 1)

	case "carry":
		if err := e.Carry(cmd.Name); err != nil {
			r.Err = err
		} else if cmd.Name == "" {
			r.printf("cursor emptied")
		} else {
			r.printf("carrying %s", cmd.Name)
		}
	case "scene":
		if err := e.SelectScene(cmd.Name); err != nil {
			r.Err = err
		} else {
			r.printf("scene %s", title.String(cmd.Name))
		}
	case "personage":
		if err := e.SetActivePersonage(cmd.Name); err != nil {
			r.Err = err
		} else {
			r.printf("active personage %s", cmd.Name)
		}

	case "chains":
		for _, ch := range e.Registry.Chains() {
			r.printf("%-16s %s", ch.Name(), statusSummary(ch))
		}
	case "chain":
		ch := e.Registry.Chain(cmd.Name)
		if ch == nil {
			r.Err = fmt.Errorf("%w: %q", engine.ErrUnknownChain, cmd.Name)
			break
		}
		r.Lines = append(r.Lines, c.ChainLines(ch)...)
	case "counters":
		for _, ct := range e.Registry.Counters() {
			r.printf("%-16s %d", ct.Name(), ct.Value())
		}
	case "objects":
		c.objects(&r)
	case "mark":
		var err error
		if c.Profiler != nil {
			err = c.Profiler.MarkReachability(cmd.Name, cmd.ID)
		} else {
			err = e.Mark(cmd.Name, cmd.ID)
		}
		if err != nil {
			r.Err = err
			break
		}
		r.Lines = append(r.Lines, c.ChainLines(e.Registry.Chain(cmd.Name))...)

	case "/save":
		if err := e.SaveSlot(ctx, cmd.N); err != nil {
			r.Err = err
		} else {
			r.printf("saved to slot %d", cmd.N)
		}
	case "/load":
		if err := e.LoadSlot(ctx, cmd.N); err != nil {
			r.Err = err
		} else {
			r.printf("loaded slot %d, scene %s", cmd.N, sceneName(e))
		}
	case "/slots":
		c.slots(ctx, &r)
	case "/restart":
		e.Restart()
		r.printf("restarted in scene %s", sceneName(e))
	case "/trace":
		c.Trace = !c.Trace
		c.lastSeq = latestSeq(e)
		if c.Trace {
			r.printf("trace on")
		} else {
			r.printf("trace off")
		}
	case "/help":
		r.Lines = append(r.Lines, parser.Help()...)
	case "/quit":
		r.Quit = true
	default:
		r.Err = fmt.Errorf("%w %q", parser.ErrUnknownCommand, cmd.Verb)
	}
	return r
}

// ExecLine parses and runs one console line.
func (c *Console) ExecLine(ctx context.Context, line string) Result {
	cmd, err := parser.Parse(line)
	if err != nil {
		return Result{Err: err}
	}
	return c.Exec(ctx, cmd)
}

func (c *Console) steps(ctx context.Context, r *Result, n int) {
	for i := 0; i < n; i++ {
		c.step(ctx, r)
	}
	e := c.Engine
	r.printf("tick %d  t=%.3fs  scene %s", e.Tick(), e.Time(), sceneName(e))
}

func (c *Console) step(ctx context.Context, r *Result) {
	if err := c.Engine.Step(ctx); err != nil {
		r.printf("error: %v", err)
	}
	if c.Trace {
		for _, ev := range c.Engine.Events.Recent() {
			if ev.Seq > c.lastSeq {
				r.printf("  %s", ev)
				c.lastSeq = ev.Seq
			}
		}
	}
}

// ChainLines renders the elements of ch with status and marking.
func (c *Console) ChainLines(ch *trigger.Chain) []string {
	lines := []string{title.String(ch.Name())}
	for _, el := range ch.Elements() {
		line := fmt.Sprintf("  [%d] %-28s %-8s", el.ID(), el.Name(), el.Status())
		if m := el.Debug(); m != trigger.DebugNone {
			line += " " + m.String()
		}
		if c.Profiler != nil {
			if n := c.Profiler.Activations(ch.Name(), el.ID()); n > 0 {
				line += fmt.Sprintf(" x%d", n)
			}
		}
		var kids []string
		for _, l := range el.Children() {
			kids = append(kids, fmt.Sprintf("%d(%s)", l.Element, l.Status))
		}
		if len(kids) > 0 {
			line += " -> " + strings.Join(kids, " ")
		}
		lines = append(lines, strings.TrimRight(line, " "))
	}
	return lines
}

func (c *Console) objects(r *Result) {
	s := c.Engine.ActiveScene()
	if s == nil {
		r.Err = engine.ErrNoScene
		return
	}
	r.printf("%s", title.String(s.Name()))
	for _, o := range s.Objects() {
		st := "-"
		if cur := o.CurState(); cur != nil {
			st = cur.Name()
		}
		line := fmt.Sprintf("  %-16s %-10s %-12s (%.0f, %.0f)", o.Name(), o.Kind(), st, o.R.X, o.R.Y)
		if !o.IsVisible() {
			line += " hidden"
		}
		if o == s.ActivePersonage() {
			line += " *"
		}
		r.Lines = append(r.Lines, line)
	}
}

func (c *Console) slots(ctx context.Context, r *Result) {
	if c.Slots == nil {
		r.Err = engine.ErrNoStore
		return
	}
	list, err := c.Slots.List(ctx)
	if err != nil {
		r.Err = err
		return
	}
	if len(list) == 0 {
		r.printf("no saves")
	}
	for _, sl := range list {
		r.printf("  %2d  %s  %6d bytes  %s", sl.Number, sl.SavedAt.Local().Format("2006-01-02 15:04:05"), sl.Size, sl.ID)
	}
}

func statusSummary(ch *trigger.Chain) string {
	var counts [4]int
	for _, el := range ch.Elements() {
		if st := el.Status(); st >= 0 && int(st) < len(counts) {
			counts[st]++
		}
	}
	return fmt.Sprintf("%d elements: %d inactive, %d waiting, %d working, %d done",
		ch.Len(), counts[trigger.Inactive], counts[trigger.Waiting], counts[trigger.Working], counts[trigger.Done])
}

func sceneName(e *engine.Engine) string {
	if s := e.ActiveScene(); s != nil {
		return s.Name()
	}
	return "<none>"
}

func latestSeq(e *engine.Engine) uint64 {
	recent := e.Events.Recent()
	if len(recent) == 0 {
		return 0
	}
	return recent[len(recent)-1].Seq
}
