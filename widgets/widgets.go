package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"bandmate/theme"
)

// RenderStepRow renders one 16-step lane: label, then a symbol per step
// with the playhead highlighted
func RenderStepRow(th *theme.Theme, label string, hits []bool, playhead int) string {
	hitStyle := lipgloss.NewStyle().Foreground(th.Active())
	headStyle := lipgloss.NewStyle().Foreground(th.Success())
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())

	var out strings.Builder
	out.WriteString(fmt.Sprintf("%-6s", label))
	for i, hit := range hits {
		if i > 0 && i%4 == 0 {
			out.WriteString(" ")
		}
		switch {
		case i == playhead && hit:
			out.WriteString(headStyle.Render(string(th.Symbols.StepPlayHit)))
		case i == playhead:
			out.WriteString(headStyle.Render(string(th.Symbols.StepPlayhead)))
		case hit:
			out.WriteString(hitStyle.Render(string(th.Symbols.StepActive)))
		default:
			out.WriteString(dimStyle.Render(string(th.Symbols.StepEmpty)))
		}
		out.WriteString(" ")
	}
	return strings.TrimRight(out.String(), " ")
}

// MeterCells is how many of width cells value fills on a 0..max scale
func MeterCells(value, max float64, width int) int {
	if max <= 0 || value <= 0 {
		return 0
	}
	n := int(value / max * float64(width))
	if n > width {
		n = width
	}
	return n
}

// RenderMeter renders a horizontal bar, each cell colored by its position
// along the palette
func RenderMeter(th *theme.Theme, value, max float64, width int) string {
	full := MeterCells(value, max, width)
	var out strings.Builder
	for i := 0; i < width; i++ {
		if i < full {
			style := lipgloss.NewStyle().Foreground(th.Color(float64(i) / float64(width)))
			out.WriteString(style.Render(string(th.Symbols.MeterFull)))
		} else {
			out.WriteString(lipgloss.NewStyle().Foreground(th.Muted()).Render(string(th.Symbols.MeterEmpty)))
		}
	}
	return out.String()
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}
