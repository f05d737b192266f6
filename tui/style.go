package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/nathoo/qdcore/engine/trigger"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleOutput = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleHeading = lipgloss.NewStyle().
			Bold(true).
			Underline(true)

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	styleInputEcho = lipgloss.NewStyle().
			Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	styleDivider = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))
)

// Element status colours.
var statusColors = map[trigger.Status]lipgloss.Color{
	trigger.Inactive: lipgloss.Color("240"),
	trigger.Waiting:  lipgloss.Color("220"),
	trigger.Working:  lipgloss.Color("46"),
	trigger.Done:     lipgloss.Color("39"),
}

func statusStyle(st trigger.Status) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(statusColors[st])
}

// Heat scale endpoints for activation counts.
var (
	heatCold, _ = colorful.Hex("#3a4a6b")
	heatHot, _  = colorful.Hex("#ff5030")
)

// heatColor blends from cold to hot by n/top in Lab space.
func heatColor(n, top int) lipgloss.Color {
	if top <= 0 || n <= 0 {
		return lipgloss.Color(heatCold.Hex())
	}
	if n >= top {
		return lipgloss.Color(heatHot.Hex())
	}
	t := float64(n) / float64(top)
	return lipgloss.Color(heatCold.BlendLab(heatHot, t).Clamped().Hex())
}

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindOutput lineKind = iota
	kindHeading
	kindSystem
	kindError
	kindTrace
)

// classifyLine determines what kind of console line this is.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "  #"):
		return kindTrace
	case strings.HasPrefix(line, "error:"):
		return kindError
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case line != "" && !strings.HasPrefix(line, " ") && line[0] >= 'A' && line[0] <= 'Z' && !strings.Contains(line, " "):
		return kindHeading
	default:
		return kindOutput
	}
}

// renderLineKind applies the style for a given lineKind.
func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindHeading:
		return styleHeading.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindError:
		return styleError.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	default:
		return styleOutput.Render(line)
	}
}
