// Package theme holds the dashboard palette and the few styles shared by
// more than one screen.
package theme

import (
	"image/color"

	"charm.land/lipgloss/v2"
)

var (
	Primary   = lipgloss.Color("#3B82F6") // blue
	Secondary = lipgloss.Color("#14B8A6") // teal, gauge fill
	Accent    = lipgloss.Color("#F59E0B") // amber, header badge
	Success   = lipgloss.Color("#22C55E")
	Warning   = lipgloss.Color("#EAB308")
	Error     = lipgloss.Color("#F43F5E")
	Text      = lipgloss.Color("#F8FAFC")
	TextDim   = lipgloss.Color("#94A3B8")
	BgCard    = lipgloss.Color("#1E293B")
	Border    = lipgloss.Color("#334155")
)

var (
	Hint    = lipgloss.NewStyle().Foreground(TextDim).Italic(true)
	Section = lipgloss.NewStyle().Foreground(TextDim).Bold(true)

	Card = lipgloss.NewStyle().
		Background(BgCard).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(1, 2)
)

// Transcript line markers.
var (
	OnTopic  = lipgloss.NewStyle().Foreground(Success).Bold(true)
	OffTopic = lipgloss.NewStyle().Foreground(Error).Bold(true)
	// Revised marks a segment a late remote verdict moved off-topic.
	Revised = lipgloss.NewStyle().Foreground(Warning).Italic(true)
)

// ScoreColor picks a color for a 0-100 score: green from 80, yellow from
// 60, rose below. The plain CLI output uses the same bands.
func ScoreColor(score float64) color.Color {
	switch {
	case score >= 80:
		return Success
	case score >= 60:
		return Warning
	default:
		return Error
	}
}
