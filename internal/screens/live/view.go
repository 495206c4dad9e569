package live

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/classwatch/internal/monitor"
	"github.com/abhisek/classwatch/internal/teaching"
	"github.com/abhisek/classwatch/internal/ui/components"
	"github.com/abhisek/classwatch/internal/ui/layout"
	"github.com/abhisek/classwatch/internal/ui/theme"
)

var gaugeLabels = map[teaching.Gauge]string{
	teaching.Clarity:        "Clarity",
	teaching.Engagement:     "Engagement",
	teaching.Pacing:         "Pacing",
	teaching.ExampleUsage:   "Examples",
	teaching.QuestionAsking: "Questions",
}

const labelWidth = 12

func (s *LiveScreen) View(width, height int) string {
	if s.confirmStop {
		return renderConfirm(width, height)
	}

	var b strings.Builder
	inner := max(width-4, 20)

	b.WriteString(s.renderInfoLine(inner))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", inner)))
	b.WriteString("\n")

	gaugeWidth := min(inner, 72)
	b.WriteString("  " + components.NewGauge("On-topic", s.snap.OnTopicPercentage, labelWidth, gaugeWidth).View() + "\n")
	b.WriteString("  " + components.NewGauge("Score", s.snap.CurrentScore, labelWidth, gaugeWidth).View() + "\n")
	for _, g := range teaching.Gauges {
		b.WriteString("  " + components.NewGauge(gaugeLabels[g], s.snap.Metrics.Get(g), labelWidth, gaugeWidth).View() + "\n")
	}
	b.WriteString("\n")
	b.WriteString(s.renderCounters())
	b.WriteString("\n")

	if len(s.snap.RecentKeywords) > 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Secondary).
			Render("  Keywords: " + strings.Join(s.snap.RecentKeywords, ", ")))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	// Fixed rows above plus input, preview, notices and error.
	used := 14 + len(s.notices)
	feedRows := max(height-used-4, 3)
	b.WriteString(s.renderFeed(inner, feedRows))

	if s.preview != nil {
		mark := "?"
		if s.preview.OnTopic {
			mark = "~"
		}
		b.WriteString(theme.Hint.Render(fmt.Sprintf("  %s %s", mark, layout.Truncate(s.preview.Text, inner-6))))
		b.WriteString("\n")
	}

	for _, n := range s.notices {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Warning).
			Render("  ! " + layout.Truncate(n.Message, inner-6)))
		b.WriteString("\n")
	}

	if s.errMsg != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Error).Render("  " + s.errMsg))
		b.WriteString("\n")
	}

	b.WriteString("\n  ")
	if s.stopping {
		b.WriteString(theme.Hint.Render("Building report..."))
	} else {
		b.WriteString(s.input.View())
	}
	return b.String()
}

func (s *LiveScreen) renderInfoLine(width int) string {
	left := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).
		Render("  " + subjectLabel(s.snap))

	rightText := "T " + layout.FormatClock(s.snap.ElapsedSeconds)
	if s.snap.TeacherID != "" {
		rightText = s.snap.TeacherID + "   " + rightText
	}
	right := lipgloss.NewStyle().Foreground(theme.TextDim).Render(rightText)

	pad := width - lipgloss.Width(left) - lipgloss.Width(right)
	if pad < 1 {
		return left
	}
	return left + strings.Repeat(" ", pad) + right
}

func subjectLabel(snap monitor.Snapshot) string {
	if snap.Subject == "" {
		return snap.Topic
	}
	return snap.Topic + " · " + snap.Subject
}

func (s *LiveScreen) renderCounters() string {
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	val := lipgloss.NewStyle().Foreground(theme.Text).Bold(true)

	field := func(label string, value string) string {
		return dim.Render(label+" ") + val.Render(value)
	}
	parts := []string{
		field("Questions", fmt.Sprint(s.snap.QuestionCount)),
		field("Examples", fmt.Sprint(s.snap.ExampleCount)),
		field("Words", fmt.Sprint(s.snap.WordCount)),
		field("WPM", fmt.Sprintf("%.0f", s.snap.WordsPerMinute)),
		field("On", layout.FormatClock(s.snap.OnTopicSeconds)),
		field("Off", layout.FormatClock(s.snap.OffTopicSeconds)),
	}
	if s.snap.Degraded {
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.Warning).Render("keyword-only"))
	}
	return "  " + strings.Join(parts, "   ") + "\n"
}

func (s *LiveScreen) renderFeed(width, rows int) string {
	if len(s.feed) == 0 {
		return theme.Hint.Render("  Waiting for speech...") + "\n"
	}

	start := max(len(s.feed)-rows, 0)
	var b strings.Builder
	for _, line := range s.feed[start:] {
		b.WriteString("  ")
		b.WriteString(renderFeedLine(line, width-2))
		b.WriteString("\n")
	}
	return b.String()
}

func renderFeedLine(l feedLine, width int) string {
	var mark string
	switch {
	case l.Revised:
		mark = theme.Revised.Render("↺")
	case !l.Decisive:
		mark = lipgloss.NewStyle().Foreground(theme.TextDim).Render("·")
	case l.OnTopic:
		mark = theme.OnTopic.Render("✓")
	default:
		mark = theme.OffTopic.Render("✗")
	}

	score := lipgloss.NewStyle().Foreground(theme.ScoreColor(l.Score)).
		Render(fmt.Sprintf("%3.0f", l.Score))
	prefix := fmt.Sprintf("%s #%-3d %s  ", mark, l.Seq+1, score)

	suffix := ""
	if len(l.Matched) > 0 {
		suffix = " [" + strings.Join(l.Matched, ", ") + "]"
	}

	room := width - lipgloss.Width(prefix) - lipgloss.Width(suffix)
	text := layout.Truncate(l.Text, max(room, 10))
	return prefix + lipgloss.NewStyle().Foreground(theme.Text).Render(text) +
		lipgloss.NewStyle().Foreground(theme.Secondary).Render(suffix)
}

func renderConfirm(width, height int) string {
	msg := lipgloss.NewStyle().
		Foreground(theme.Text).
		Bold(true).
		Render("End this session and build the report?")
	hint := theme.Hint.Render("Y to end, N to keep monitoring")

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		theme.Card.Render(msg+"\n\n"+hint))
}
