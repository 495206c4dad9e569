// Package summary shows the final report of a monitored session.
package summary

import (
	"fmt"
	"image/color"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/classwatch/internal/report"
	"github.com/abhisek/classwatch/internal/router"
	"github.com/abhisek/classwatch/internal/screen"
	"github.com/abhisek/classwatch/internal/teaching"
	"github.com/abhisek/classwatch/internal/ui/components"
	"github.com/abhisek/classwatch/internal/ui/layout"
	"github.com/abhisek/classwatch/internal/ui/theme"
)

// SummaryScreen displays a session report. Long reports scroll.
type SummaryScreen struct {
	report  *report.Report
	history func() screen.Screen
	offset  int
	lines   int
	height  int
}

var _ screen.Screen = (*SummaryScreen)(nil)
var _ screen.KeyHintProvider = (*SummaryScreen)(nil)
var _ screen.BadgeProvider = (*SummaryScreen)(nil)

// New creates a SummaryScreen. history, when set, builds the screen
// opened with H.
func New(r *report.Report, history func() screen.Screen) *SummaryScreen {
	return &SummaryScreen{report: r, history: history}
}

func (s *SummaryScreen) Init() tea.Cmd {
	return nil
}

func (s *SummaryScreen) Title() string {
	return "Session Report"
}

func (s *SummaryScreen) Badge() string {
	if s.report == nil {
		return ""
	}
	return "Grade " + s.report.Grade
}

func (s *SummaryScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{
		{Key: "↑↓", Description: "Scroll"},
	}
	if s.history != nil {
		hints = append(hints, layout.KeyHint{Key: "H", Description: "History"})
	}
	return append(hints, layout.KeyHint{Key: "Q", Description: "Quit"})
}

func (s *SummaryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}
	switch kmsg.String() {
	case "q", "enter":
		return s, tea.Quit
	case "h":
		if s.history != nil {
			next := s.history()
			return s, func() tea.Msg { return router.PushScreenMsg{Screen: next} }
		}
	case "up", "k":
		if s.offset > 0 {
			s.offset--
		}
	case "down", "j":
		if s.offset < s.lines-s.height {
			s.offset++
		}
	}
	return s, nil
}

func (s *SummaryScreen) View(width, height int) string {
	r := s.report
	if r == nil {
		return ""
	}

	body := strings.Split(strings.TrimRight(s.render(width), "\n"), "\n")
	s.lines = len(body)
	s.height = height
	if s.offset > max(s.lines-height, 0) {
		s.offset = max(s.lines-height, 0)
	}
	end := min(s.offset+height, len(body))
	return strings.Join(body[s.offset:end], "\n")
}

func (s *SummaryScreen) render(width int) string {
	r := s.report
	var b strings.Builder
	center := func(st lipgloss.Style, text string) {
		b.WriteString(st.Width(width).Align(lipgloss.Center).Render(text))
		b.WriteString("\n")
	}

	center(lipgloss.NewStyle().Foreground(theme.Primary).Bold(true), r.Topic)
	center(lipgloss.NewStyle().Foreground(theme.TextDim),
		fmt.Sprintf("%s   Duration %s   %s", r.Subject, layout.FormatClock(r.DurationSeconds), r.Mode))
	b.WriteString("\n")

	center(lipgloss.NewStyle().Foreground(gradeColor(r.Grade)).Bold(true),
		fmt.Sprintf("Grade %s   Score %.1f", r.Grade, r.Score))
	center(lipgloss.NewStyle().Foreground(theme.Text),
		fmt.Sprintf("%s   On-topic %.0f%%   Segments %d", r.Status, r.OnTopicPercentage, r.SegmentCount))
	if r.Degraded {
		center(lipgloss.NewStyle().Foreground(theme.Warning), "Semantic checks were unavailable; keyword analysis only")
	}
	b.WriteString("\n")

	gaugeWidth := min(width-8, 64)
	pad := strings.Repeat(" ", max((width-gaugeWidth)/2, 0))
	for _, g := range teaching.Gauges {
		b.WriteString(pad + components.NewGauge(gaugeName(g), r.TeachingMetrics.Get(g), 12, gaugeWidth).View() + "\n")
	}

	divider := lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", min(width-8, 60)))
	section := func(title string) {
		b.WriteString("\n")
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, theme.Section.Render(title)))
		b.WriteString("\n")
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, divider))
		b.WriteString("\n")
	}
	bullet := func(c color.Color, text string) {
		b.WriteString(pad + lipgloss.NewStyle().Foreground(c).Render("• "+text) + "\n")
	}

	if len(r.Strengths) > 0 {
		section("Strengths")
		for _, st := range r.Strengths {
			bullet(theme.Success, st)
		}
	}
	if len(r.Improvements) > 0 {
		section("Areas to improve")
		for _, im := range r.Improvements {
			bullet(theme.Warning, im)
		}
	}
	if len(r.Suggestions) > 0 {
		section("Suggestions")
		for _, sg := range r.Suggestions {
			bullet(priorityColor(sg.Priority), fmt.Sprintf("[%s] %s", sg.Priority, sg.Message))
			if sg.Action != "" {
				b.WriteString(pad + "  " + theme.Hint.Render(sg.Action) + "\n")
			}
		}
	}
	if len(r.OffTopicSegments) > 0 {
		section("Off-topic moments")
		for _, ex := range r.OffTopicSegments {
			bullet(theme.TextDim, layout.Truncate(fmt.Sprintf("%q %s", ex.Text, ex.Reason), max(gaugeWidth, 20)))
		}
	}
	return b.String()
}

func gaugeName(g teaching.Gauge) string {
	switch g {
	case teaching.ExampleUsage:
		return "Examples"
	case teaching.QuestionAsking:
		return "Questions"
	}
	name := string(g)
	return strings.ToUpper(name[:1]) + name[1:]
}

func gradeColor(grade string) color.Color {
	return theme.ScoreColor(report.GradePoints(grade))
}

func priorityColor(p string) color.Color {
	switch p {
	case "high":
		return theme.Error
	case "medium":
		return theme.Warning
	default:
		return theme.Text
	}
}
