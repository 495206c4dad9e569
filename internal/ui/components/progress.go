package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/classwatch/internal/ui/theme"
)

// Gauge displays a 0-100 value as a horizontal bar colored by band.
type Gauge struct {
	Label      string
	LabelWidth int
	Value      float64
	Width      int
}

// NewGauge creates a gauge. labelWidth pads labels so stacked gauges line up.
func NewGauge(label string, value float64, labelWidth, width int) Gauge {
	return Gauge{
		Label:      label,
		LabelWidth: labelWidth,
		Value:      value,
		Width:      width,
	}
}

// View renders the gauge.
func (g Gauge) View() string {
	label := g.Label
	if pad := g.LabelWidth - lipgloss.Width(label); pad > 0 {
		label += strings.Repeat(" ", pad)
	}
	result := lipgloss.NewStyle().Foreground(theme.Text).Render(label) + "  "

	const valueWidth = 6 // "  100"
	barWidth := g.Width - lipgloss.Width(result) - valueWidth
	if barWidth < 4 {
		barWidth = 4
	}

	v := min(max(g.Value, 0), 100)
	filled := int(float64(barWidth) * v / 100)
	empty := barWidth - filled

	result += lipgloss.NewStyle().
		Background(theme.ScoreColor(v)).
		Render(strings.Repeat(" ", filled))
	result += lipgloss.NewStyle().
		Background(theme.Border).
		Render(strings.Repeat(" ", empty))

	result += lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Render(fmt.Sprintf("  %3.0f", v))

	return result
}
