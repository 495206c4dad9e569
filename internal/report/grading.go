package report

import (
	"math"
	"time"

	"github.com/abhisek/classwatch/internal/teaching"
)

// Inputs are the aggregated session numbers a report is derived from.
type Inputs struct {
	Topic          string
	OnTopicPct     float64
	Metrics        teaching.Metrics
	QuestionsAsked int
	ExamplesGiven  int
	Duration       time.Duration
	WordsPerMinute float64
}

// Blend combines the segment-count and time bases of the on-topic
// percentage. High weighs the larger of the two, Low the smaller.
type Blend struct {
	High float64
	Low  float64
}

// DefaultBlend favors whichever basis is higher so brief off-topic dips
// are not punished twice.
func DefaultBlend() Blend {
	return Blend{High: 0.6, Low: 0.4}
}

// SymmetricBlend weighs both bases equally.
func SymmetricBlend() Blend {
	return Blend{High: 0.5, Low: 0.5}
}

// Apply returns the blended percentage in [0, 100].
func (b Blend) Apply(segmentPct, timePct float64) float64 {
	hi := math.Max(segmentPct, timePct)
	lo := math.Min(segmentPct, timePct)
	return clampPct(b.High*hi + b.Low*lo)
}

// Weights parameterize the grade score.
type Weights struct {
	OnTopic           float64
	Metrics           float64
	QuestionPoints    float64
	ExamplePoints     float64
	EngagementCap     float64
	DurationPerMinute float64
	DurationCap       float64
}

// DefaultWeights returns the standard grading weights.
func DefaultWeights() Weights {
	return Weights{
		OnTopic:           0.40,
		Metrics:           0.30,
		QuestionPoints:    3,
		ExamplePoints:     4,
		EngagementCap:     20,
		DurationPerMinute: 0.5,
		DurationCap:       10,
	}
}

// Score computes the numeric grade score:
//
//	OnTopic*pct + Metrics*avg(gauges)
//	  + min(EngagementCap, QuestionPoints*q + ExamplePoints*e)
//	  + min(DurationCap, DurationPerMinute*minutes)
func (w Weights) Score(in Inputs) float64 {
	engagement := math.Min(w.EngagementCap,
		w.QuestionPoints*float64(in.QuestionsAsked)+w.ExamplePoints*float64(in.ExamplesGiven))
	duration := math.Min(w.DurationCap, w.DurationPerMinute*in.Duration.Minutes())
	return w.OnTopic*in.OnTopicPct + w.Metrics*in.Metrics.Average() + engagement + duration
}

var gradeThresholds = []struct {
	min   float64
	grade string
}{
	{80, "A+"},
	{70, "A"},
	{60, "B+"},
	{50, "B"},
	{40, "C+"},
	{30, "C"},
	{20, "D"},
}

// LetterGrade maps a grade score to a letter.
func LetterGrade(score float64) string {
	for _, t := range gradeThresholds {
		if score >= t.min {
			return t.grade
		}
	}
	return "F"
}

// StatusThresholds are the on-topic percentage cut-offs for status labels.
type StatusThresholds struct {
	Excellent        float64
	Good             float64
	Satisfactory     float64
	NeedsImprovement float64
}

// DefaultStatusThresholds returns the standard cut-offs.
func DefaultStatusThresholds() StatusThresholds {
	return StatusThresholds{Excellent: 80, Good: 65, Satisfactory: 50, NeedsImprovement: 35}
}

// Label returns the status label for an on-topic percentage.
func (s StatusThresholds) Label(pct float64) string {
	switch {
	case pct >= s.Excellent:
		return "Excellent"
	case pct >= s.Good:
		return "Good"
	case pct >= s.Satisfactory:
		return "Satisfactory"
	case pct >= s.NeedsImprovement:
		return "Needs Improvement"
	default:
		return "Critical"
	}
}

// Grading bundles every tunable used to turn Inputs into an Assessment.
type Grading struct {
	Blend   Blend
	Weights Weights
	Status  StatusThresholds
}

// DefaultGrading returns the standard grading parameters.
func DefaultGrading() Grading {
	return Grading{
		Blend:   DefaultBlend(),
		Weights: DefaultWeights(),
		Status:  DefaultStatusThresholds(),
	}
}

// Assessment is the graded outcome of a session.
type Assessment struct {
	Score        float64
	Grade        string
	Status       string
	Strengths    []string
	Improvements []string
	Suggestions  []Suggestion
}

// Assess grades in. It is a pure function of its inputs.
func (g Grading) Assess(in Inputs) Assessment {
	score := g.Weights.Score(in)
	return Assessment{
		Score:        score,
		Grade:        LetterGrade(score),
		Status:       g.Status.Label(in.OnTopicPct),
		Strengths:    Strengths(in),
		Improvements: Improvements(in),
		Suggestions:  Suggestions(in),
	}
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
