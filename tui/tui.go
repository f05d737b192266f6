// Package tui provides a Bubble Tea trigger-chain debugger for the qdcore
// engine: a live chain view, a console log and a command line.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/nathoo/qdcore/cli"
	"github.com/nathoo/qdcore/engine/scheduler"
	"github.com/nathoo/qdcore/engine/trigger"
)

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text    string
	kind    lineKind
	isInput bool // true for echoed console input
}

// Model is the Bubble Tea model for the debugger.
type Model struct {
	ctx     context.Context
	console *cli.Console
	sched   *scheduler.Scheduler

	chainView viewport.Model
	logView   viewport.Model
	input     textinput.Model
	history   *History

	rawLines []rawLine

	chain    int // index of the shown chain
	width    int
	height   int
	ready    bool
	running  bool
	lastTick time.Time
	quitting bool
}

// tickMsg drives the running mode.
type tickMsg time.Time

// New creates a TUI model over the console. sched paces the running mode.
func New(ctx context.Context, console *cli.Console, sched *scheduler.Scheduler) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	return Model{
		ctx:     ctx,
		console: console,
		sched:   sched,
		input:   ti,
		history: NewHistory(100),
	}
}

// Run starts the Bubble Tea program.
func Run(ctx context.Context, console *cli.Console, sched *scheduler.Scheduler) error {
	m := New(ctx, console, sched)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init shows the banner.
func (m Model) Init() tea.Cmd {
	defs := m.console.Engine.Defs
	banner := defs.Title
	if defs.Author != "" {
		banner += " by " + defs.Author
	}
	return tea.Batch(textinput.Blink, func() tea.Msg {
		return cli.Result{Lines: []string{banner, "[ctrl+r run/stop, tab next chain, /help for commands]"}}
	})
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.sched.Period, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles messages (key presses, window resize, ticks, console output).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m = m.layout()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "tab":
			if n := len(m.console.Engine.Registry.Chains()); n > 0 {
				m.chain = (m.chain + 1) % n
			}
			m.refreshChain()
			return m, nil

		case "ctrl+r":
			m.running = !m.running
			if m.running {
				m.lastTick = time.Now()
				m.sched.Reset()
				return m, m.tick()
			}
			return m, nil

		case "up":
			if prev, ok := m.history.Prev(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if next, ok := m.history.Next(); ok {
				m.input.SetValue(next)
				m.input.CursorEnd()
			} else {
				m.input.SetValue("")
			}
			return m, nil

		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.logView, vpCmd = m.logView.Update(msg)
			return m, vpCmd
		}

	case tickMsg:
		if !m.running {
			return m, nil
		}
		now := time.Time(msg)
		elapsed := now.Sub(m.lastTick)
		m.lastTick = now
		var res cli.Result
		m.sched.Advance(elapsed, func(float64) {
			if err := m.console.Engine.Step(m.ctx); err != nil {
				res.Lines = append(res.Lines, "error: "+err.Error())
			}
		})
		if len(res.Lines) > 0 {
			m = m.appendOutput("", res)
		}
		m.refreshChain()
		return m, m.tick()

	case cli.Result:
		m = m.appendOutput("", msg)
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	return m, tea.Batch(cmds...)
}

// handleEnter runs the submitted console line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	if line == "" {
		return m, nil
	}
	m.history.Push(line)

	res := m.console.ExecLine(m.ctx, line)
	m = m.appendOutput(line, res)
	m.refreshChain()
	if res.Quit {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// appendOutput adds a command result to the log and refreshes the view.
func (m Model) appendOutput(input string, res cli.Result) Model {
	if input != "" {
		m.rawLines = append(m.rawLines, rawLine{text: "> " + input, isInput: true})
	}
	for _, line := range res.Lines {
		m.rawLines = append(m.rawLines, rawLine{text: line, kind: classifyLine(line)})
	}
	if res.Err != nil {
		m.rawLines = append(m.rawLines, rawLine{text: "error: " + res.Err.Error(), kind: kindError})
	}
	m.refreshLog()
	return m
}

// layout sizes the two panes: chain view on top, log below.
func (m Model) layout() Model {
	avail := m.height - 3 // divider, status bar, input line
	if avail < 2 {
		avail = 2
	}
	chainH := avail / 2
	logH := avail - chainH

	if !m.ready {
		m.chainView = viewport.New(m.width, chainH)
		m.logView = viewport.New(m.width, logH)
		m.logView.KeyMap = logKeyMap()
		m.ready = true
	} else {
		m.chainView.Width, m.chainView.Height = m.width, chainH
		m.logView.Width, m.logView.Height = m.width, logH
	}
	m.refreshChain()
	m.refreshLog()
	return m
}

// refreshLog re-wraps and re-styles all raw lines at the current width.
func (m *Model) refreshLog() {
	if !m.ready {
		return
	}
	width := m.width
	if width < 10 {
		width = 10
	}

	styled := make([]string, 0, len(m.rawLines))
	for _, rl := range m.rawLines {
		wrapped := wordwrap.String(rl.text, width)
		if rl.isInput {
			styled = append(styled, styleInputEcho.Render(wrapped))
			continue
		}
		styled = append(styled, renderLineKind(wrapped, rl.kind))
	}
	m.logView.SetContent(strings.Join(styled, "\n"))
	m.logView.GotoBottom()
}

// refreshChain renders the shown chain.
func (m *Model) refreshChain() {
	if !m.ready {
		return
	}
	chains := m.console.Engine.Registry.Chains()
	if len(chains) == 0 {
		m.chainView.SetContent(styleSystem.Render("[no trigger chains]"))
		return
	}
	if m.chain >= len(chains) {
		m.chain = 0
	}
	m.chainView.SetContent(m.renderChain(chains[m.chain]))
}

// renderChain lists the elements of ch, coloured by status. With a
// profiler, a heat cell shows the activation count.
func (m Model) renderChain(ch *trigger.Chain) string {
	prof := m.console.Profiler
	top := 0
	if prof != nil {
		top = prof.MaxActivations()
	}

	lines := []string{styleHeading.Render(displayName(ch.Name())) +
		styleSystem.Render(fmt.Sprintf("  (%d/%d)", m.chain+1, len(m.console.Engine.Registry.Chains())))}
	for _, el := range ch.Elements() {
		var b strings.Builder
		if prof != nil {
			n := prof.Activations(ch.Name(), el.ID())
			b.WriteString(lipgloss.NewStyle().Foreground(heatColor(n, top)).Render("■"))
			b.WriteString(" ")
		}
		b.WriteString(statusStyle(el.Status()).Render(fmt.Sprintf("[%d] %s %s", el.ID(), el.Name(), el.Status())))
		if mark := el.Debug(); mark != trigger.DebugNone {
			b.WriteString(styleTrace.Render(" <" + mark.String() + ">"))
		}
		var kids []string
		for _, l := range el.Children() {
			kids = append(kids, fmt.Sprint(l.Element))
		}
		if len(kids) > 0 {
			b.WriteString(styleSystem.Render(" -> " + strings.Join(kids, ",")))
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

// View renders the full layout: chain view, divider, log, status bar, input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}
	divider := styleDivider.Render(strings.Repeat("─", m.width))
	return m.chainView.View() + "\n" + divider + "\n" + m.logView.View() + "\n" +
		m.renderStatusBar() + "\n" + m.input.View()
}

// logKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for input history).
func logKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
