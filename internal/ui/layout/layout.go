// Package layout draws the frame shared by every dashboard screen: a
// header bar, the screen body and a footer of key hints.
package layout

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/classwatch/internal/ui/theme"
)

// The dashboard needs room for the gauge column next to the transcript.
const (
	MinWidth  = 80
	MinHeight = 24
)

// KeyHint is one entry in the footer.
type KeyHint struct {
	Key         string
	Description string
}

func IsTooSmall(width, height int) bool {
	return width < MinWidth || height < MinHeight
}

// RenderMinSizeMessage asks the user to enlarge the terminal.
func RenderMinSizeMessage(width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.Text).
		Render(fmt.Sprintf("The dashboard needs %d×%d.\nThis terminal is %d×%d.\n\nResize, or use --plain.",
			MinWidth, MinHeight, width, height))
}

func bar(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Background(theme.BgCard).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border)
}

// RenderHeader shows the product name, the screen title centered and badge
// (for example the session mode) on the right.
func RenderHeader(title, badge string, width int) string {
	brand := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render("  ClassWatch")
	mid := lipgloss.NewStyle().Foreground(theme.Text).Render(title)
	tag := lipgloss.NewStyle().Foreground(theme.Accent).Bold(true).Render(badge)

	// Two cells of border and two of padding.
	inner := max(width-4, 0)
	bw, mw, tw := lipgloss.Width(brand), lipgloss.Width(mid), lipgloss.Width(tag)
	gapL := max((inner-mw)/2-bw, 1)
	gapR := max(inner-bw-gapL-mw-tw, 1)

	return bar(width).Render(brand + strings.Repeat(" ", gapL) + mid + strings.Repeat(" ", gapR) + tag)
}

// RenderFooter lists key hints left to right.
func RenderFooter(hints []KeyHint, width int) string {
	key := lipgloss.NewStyle().Foreground(theme.Text).Bold(true)
	desc := lipgloss.NewStyle().Foreground(theme.TextDim)

	var b strings.Builder
	b.WriteString("  ")
	for i, h := range hints {
		if i > 0 {
			b.WriteString("   ")
		}
		b.WriteString(key.Render(h.Key) + " " + desc.Render(h.Description))
	}
	return bar(width).Render(b.String())
}

// RenderFrame stacks header, body and footer, padding the body so the
// footer stays on the last rows.
func RenderFrame(header, content, footer string, width, height int) string {
	body := max(height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	return header + "\n" + lipgloss.NewStyle().Width(width).Height(body).Render(content) + "\n" + footer
}

// FormatClock renders seconds as m:ss.
func FormatClock(seconds float64) string {
	total := int(max(seconds, 0))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// Truncate shortens s to width cells, ending with an ellipsis when cut.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
