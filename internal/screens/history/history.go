// Package history lists past sessions, optionally for one teacher.
package history

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	hist "github.com/abhisek/classwatch/internal/history"
	"github.com/abhisek/classwatch/internal/report"
	"github.com/abhisek/classwatch/internal/router"
	"github.com/abhisek/classwatch/internal/screen"
	"github.com/abhisek/classwatch/internal/ui/layout"
	"github.com/abhisek/classwatch/internal/ui/theme"
)

const pageSize = 50

type historyLoadedMsg struct {
	Reports []*report.Report
	Err     error
}

// HistoryScreen displays past sessions newest first.
type HistoryScreen struct {
	repo      hist.Repo
	teacherID string
	reports   []*report.Report
	stats     *hist.TeacherStats
	selected  int
	expanded  map[int]bool
	loaded    bool
	errMsg    string
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)

// New creates a HistoryScreen. An empty teacherID lists every session.
func New(repo hist.Repo, teacherID string) *HistoryScreen {
	return &HistoryScreen{
		repo:      repo,
		teacherID: teacherID,
		expanded:  make(map[int]bool),
	}
}

func (s *HistoryScreen) Init() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		var (
			reports []*report.Report
			err     error
		)
		if s.teacherID != "" {
			reports, err = s.repo.ByTeacher(ctx, s.teacherID, pageSize)
		} else {
			reports, err = s.repo.Recent(ctx, pageSize)
		}
		return historyLoadedMsg{Reports: reports, Err: err}
	}
}

func (s *HistoryScreen) Title() string {
	if s.teacherID != "" {
		return "History · " + s.teacherID
	}
	return "History"
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Details"},
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		} else {
			s.reports = msg.Reports
			if s.teacherID != "" {
				s.stats = hist.BuildTeacherStats(msg.Reports)[s.teacherID]
			}
		}
		s.loaded = true
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
			return s, nil
		case "down", "j":
			if s.selected < len(s.reports)-1 {
				s.selected++
			}
			return s, nil
		case "enter":
			s.expanded[s.selected] = !s.expanded[s.selected]
			return s, nil
		}
	}
	return s, nil
}

func (s *HistoryScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render(fmt.Sprintf("\n\nError: %s", s.errMsg))
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading history...")
	}
	if len(s.reports) == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\n  No sessions recorded yet.")
	}

	var b strings.Builder
	b.WriteString("\n")

	if st := s.stats; st != nil {
		line := fmt.Sprintf("%d sessions   average grade %s   on-topic %.0f%%   %s",
			st.TotalSessions, report.GradeFromPoints(st.AverageGrade), st.AverageOnTopic,
			hist.RankingStatus(st.AverageOnTopic))
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).Render(line)))
		b.WriteString("\n\n")
	}

	for i, r := range s.reports {
		prefix := "  "
		if i == s.selected {
			prefix = "> "
		}

		line := fmt.Sprintf("%s%s  %-28s %s  %-2s  %3.0f%% on-topic",
			prefix, r.EndedAt.Local().Format("Jan 02 15:04"),
			layout.Truncate(r.Topic, 28), layout.FormatClock(r.DurationSeconds),
			r.Grade, r.OnTopicPercentage)

		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			style = style.Foreground(theme.Primary).Bold(true)
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(line)))
		b.WriteString("\n")

		if s.expanded[i] {
			for _, detail := range details(r) {
				b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
					lipgloss.NewStyle().Foreground(theme.TextDim).Render(detail)))
				b.WriteString("\n")
			}
		}
	}

	return b.String()
}

func details(r *report.Report) []string {
	out := []string{
		fmt.Sprintf("    %s   score %.1f   %d segments   %s", r.Status, r.Score, r.SegmentCount, r.Subject),
	}
	if r.TeacherID != "" {
		out = append(out, "    teacher "+r.TeacherID)
	}
	if len(r.Strengths) > 0 {
		out = append(out, "    + "+r.Strengths[0])
	}
	if len(r.Suggestions) > 0 {
		out = append(out, "    → "+r.Suggestions[0].Message)
	}
	if r.Degraded {
		out = append(out, "    keyword analysis only")
	}
	return out
}
