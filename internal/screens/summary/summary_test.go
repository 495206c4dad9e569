package summary

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/classwatch/internal/report"
	"github.com/abhisek/classwatch/internal/router"
	"github.com/abhisek/classwatch/internal/screen"
	"github.com/abhisek/classwatch/internal/teaching"
)

func testReport() *report.Report {
	return &report.Report{
		SessionID:         "s1",
		Topic:             "Quadratic Equations",
		Subject:           "mathematics",
		Mode:              "live",
		DurationSeconds:   15 * 60,
		OnTopicPercentage: 82,
		Score:             76.4,
		Grade:             "B",
		Status:            "Excellent",
		SegmentCount:      40,
		TeachingMetrics: teaching.Metrics{
			Clarity: 80, Engagement: 70, Pacing: 90, ExampleUsage: 65, QuestionAsking: 72,
		},
		Strengths:    []string{"Excellent focus on topic"},
		Improvements: []string{"Ask more questions"},
		Suggestions: []report.Suggestion{
			{Type: "engagement", Priority: "high", Message: "Ask more questions", Action: "Pause every few minutes for a check-in"},
		},
		OffTopicSegments: []report.Excerpt{{Text: "how was your weekend", Reason: "off-topic phrase"}},
	}
}

type stubScreen struct{}

func (s *stubScreen) Init() tea.Cmd                           { return nil }
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *stubScreen) View(int, int) string                    { return "" }
func (s *stubScreen) Title() string                           { return "History" }

func TestSummaryScreen_Title(t *testing.T) {
	s := New(testReport(), nil)
	if s.Title() != "Session Report" {
		t.Errorf("Title = %q, want %q", s.Title(), "Session Report")
	}
	if s.Badge() != "Grade B" {
		t.Errorf("Badge = %q", s.Badge())
	}
}

func TestSummaryScreen_Display(t *testing.T) {
	s := New(testReport(), nil)
	view := s.View(100, 60)
	for _, want := range []string{"Quadratic Equations", "Grade B", "Ask more questions", "how was your weekend"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestSummaryScreen_Scroll(t *testing.T) {
	s := New(testReport(), nil)
	first := s.View(100, 5)
	s.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	if s.offset != 1 {
		t.Fatalf("offset = %d, want 1", s.offset)
	}
	if s.View(100, 5) == first {
		t.Error("expected the view to scroll")
	}
	s.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	s.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	if s.offset != 0 {
		t.Errorf("offset = %d, want 0", s.offset)
	}
}

func TestSummaryScreen_Navigation_Quit(t *testing.T) {
	s := New(testReport(), nil)
	_, cmd := s.Update(tea.KeyPressMsg{Code: 'q', Text: "q"})
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestSummaryScreen_History(t *testing.T) {
	s := New(testReport(), nil)
	if _, cmd := s.Update(tea.KeyPressMsg{Code: 'h', Text: "h"}); cmd != nil {
		t.Error("history key should do nothing without a history screen")
	}

	s = New(testReport(), func() screen.Screen { return &stubScreen{} })
	_, cmd := s.Update(tea.KeyPressMsg{Code: 'h', Text: "h"})
	if cmd == nil {
		t.Fatal("expected a push command")
	}
	if _, ok := cmd().(router.PushScreenMsg); !ok {
		t.Error("expected PushScreenMsg")
	}
}

func TestSummaryScreen_KeyHints(t *testing.T) {
	if got := len(New(testReport(), nil).KeyHints()); got != 2 {
		t.Errorf("KeyHints length = %d, want 2", got)
	}
	if got := len(New(testReport(), func() screen.Screen { return &stubScreen{} }).KeyHints()); got != 3 {
		t.Errorf("KeyHints length = %d, want 3", got)
	}
}
