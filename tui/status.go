package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCase = cases.Title(language.English)

// displayName turns a script name into a heading: "great_hall" -> "Great Hall".
func displayName(name string) string {
	return titleCase.String(strings.ReplaceAll(name, "_", " "))
}

// renderStatusBar produces a full-width inverted status line showing the
// scene, the active personage, the carried object and the clock.
func (m Model) renderStatusBar() string {
	e := m.console.Engine

	scene := "<no scene>"
	personage := "-"
	if s := e.ActiveScene(); s != nil {
		scene = displayName(s.Name())
		if p := s.ActivePersonage(); p != nil {
			personage = p.Name()
		}
	}
	left := fmt.Sprintf(" %s | %s", scene, personage)
	if c := e.Carried(); c != nil {
		left += " | carrying " + c.Name()
	}

	mode := ""
	switch {
	case e.Paused():
		mode = "PAUSED | "
	case m.running:
		mode = "RUN | "
	}
	right := fmt.Sprintf("%s#%d %.2fs ", mode, e.Tick(), e.Time())

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
