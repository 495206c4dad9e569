package report

import (
	"math"
	"testing"
	"time"

	"github.com/abhisek/classwatch/internal/teaching"
)

func metricsAt(v float64) teaching.Metrics {
	return teaching.Metrics{Clarity: v, Engagement: v, Pacing: v, ExampleUsage: v, QuestionAsking: v}
}

func TestLetterGrade(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{95, "A+"},
		{80, "A+"},
		{79.9, "A"},
		{70, "A"},
		{65, "B+"},
		{50, "B"},
		{45, "C+"},
		{30, "C"},
		{20, "D"},
		{19.99, "F"},
		{-5, "F"},
	}
	for _, tt := range tests {
		if got := LetterGrade(tt.score); got != tt.want {
			t.Errorf("LetterGrade(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestBlend_Apply(t *testing.T) {
	b := DefaultBlend()
	if got := b.Apply(100, 50); math.Abs(got-80) > 1e-9 {
		t.Errorf("Apply(100, 50) = %v, want 80", got)
	}
	if got, want := b.Apply(50, 100), b.Apply(100, 50); got != want {
		t.Errorf("Apply is order sensitive: %v vs %v", got, want)
	}
	if got := SymmetricBlend().Apply(100, 50); math.Abs(got-75) > 1e-9 {
		t.Errorf("symmetric Apply(100, 50) = %v, want 75", got)
	}
	if got := b.Apply(0, 0); got != 0 {
		t.Errorf("Apply(0, 0) = %v, want 0", got)
	}
}

func TestWeights_Score(t *testing.T) {
	w := DefaultWeights()
	in := Inputs{
		OnTopicPct:     100,
		Metrics:        metricsAt(70),
		QuestionsAsked: 2,
		ExamplesGiven:  1,
		Duration:       4 * time.Minute,
	}
	// 40 + 21 + (6+4) + 2
	want := 73.0
	if got := w.Score(in); math.Abs(got-want) > 1e-9 {
		t.Errorf("Score = %v, want %v", got, want)
	}
}

func TestWeights_ScoreCaps(t *testing.T) {
	w := DefaultWeights()
	in := Inputs{
		OnTopicPct:     100,
		Metrics:        metricsAt(100),
		QuestionsAsked: 50,
		ExamplesGiven:  50,
		Duration:       3 * time.Hour,
	}
	// 40 + 30 + 20 + 10
	if got := w.Score(in); math.Abs(got-100) > 1e-9 {
		t.Errorf("Score = %v, want 100", got)
	}
}

// A fully on-topic lesson with one example grades by how long it runs.
// The duration bonus is what separates a short demo from a real lesson.
func TestWeights_GradeGrowsWithLessonLength(t *testing.T) {
	w := DefaultWeights()
	tests := []struct {
		name      string
		duration  time.Duration
		questions int
		examples  int
		want      string
	}{
		{"three short segments", 15 * time.Second, 0, 1, "B+"},
		{"ten minute lesson", 10 * time.Minute, 0, 1, "A"},
		{"full period with questions", 40 * time.Minute, 4, 3, "A+"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := w.Score(Inputs{
				OnTopicPct:     100,
				Metrics:        metricsAt(71.2),
				QuestionsAsked: tt.questions,
				ExamplesGiven:  tt.examples,
				Duration:       tt.duration,
			})
			if got := LetterGrade(score); got != tt.want {
				t.Errorf("LetterGrade(%v) = %q, want %q", score, got, tt.want)
			}
		})
	}
}

func TestStatusThresholds_Label(t *testing.T) {
	s := DefaultStatusThresholds()
	tests := []struct {
		pct  float64
		want string
	}{
		{100, "Excellent"},
		{80, "Excellent"},
		{70, "Good"},
		{55, "Satisfactory"},
		{40, "Needs Improvement"},
		{10, "Critical"},
	}
	for _, tt := range tests {
		if got := s.Label(tt.pct); got != tt.want {
			t.Errorf("Label(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestGrading_AssessIsPure(t *testing.T) {
	g := DefaultGrading()
	in := Inputs{Topic: "Photosynthesis", OnTopicPct: 42, Metrics: metricsAt(60), Duration: 5 * time.Minute}
	a := g.Assess(in)
	b := g.Assess(in)
	if a.Score != b.Score || a.Grade != b.Grade || a.Status != b.Status {
		t.Errorf("Assess not deterministic: %+v vs %+v", a, b)
	}
	if len(a.Suggestions) != len(b.Suggestions) {
		t.Errorf("suggestion counts differ: %d vs %d", len(a.Suggestions), len(b.Suggestions))
	}
}
