package report

import (
	"time"

	"github.com/abhisek/classwatch/internal/teaching"
)

// Report is the read-only summary of a terminated session.
type Report struct {
	SessionID string `json:"sessionId"`
	TeacherID string `json:"teacherId,omitempty"`
	Topic     string `json:"topic"`
	Subject   string `json:"subject"`
	Mode      string `json:"mode"`

	StartedAt       time.Time `json:"startedAt"`
	EndedAt         time.Time `json:"endedAt"`
	DurationSeconds float64   `json:"durationSeconds"`

	OnTopicPercentage float64 `json:"onTopicPercentage"`
	SegmentBasisPct   float64 `json:"segmentBasisPct"`
	TimeBasisPct      float64 `json:"timeBasisPct"`
	OnTopicSeconds    float64 `json:"onTopicSeconds"`
	OffTopicSeconds   float64 `json:"offTopicSeconds"`

	Score        float64 `json:"score"`
	OverallScore float64 `json:"overallScore"`
	Grade        string  `json:"grade"`
	Status       string  `json:"status"`

	TeachingMetrics teaching.Metrics `json:"teachingMetrics"`
	QuestionsAsked  int              `json:"questionsAsked"`
	ExamplesGiven   int              `json:"examplesGiven"`
	WordCount       int              `json:"wordCount"`
	SegmentCount    int              `json:"segmentCount"`
	ScoredSegments  int              `json:"scoredSegments"`
	WordsPerMinute  float64          `json:"wordsPerMinute"`

	Strengths        []string          `json:"strengths"`
	Improvements     []string          `json:"improvements"`
	Suggestions      []Suggestion      `json:"suggestions"`
	OffTopicSegments []Excerpt         `json:"offTopicSegments"`
	Transcript       []TranscriptEntry `json:"transcript"`

	Degraded bool     `json:"degraded"`
	Notices  []string `json:"notices,omitempty"`
}

// Duration returns the session length.
func (r *Report) Duration() time.Duration {
	return time.Duration(r.DurationSeconds * float64(time.Second))
}

// Suggestion is one actionable recommendation.
type Suggestion struct {
	Type     string `json:"type"`
	Priority string `json:"priority"`
	Message  string `json:"message"`
	Action   string `json:"action"`
}

// Excerpt is a sampled off-topic segment.
type Excerpt struct {
	At     time.Time `json:"at"`
	Text   string    `json:"text"`
	Reason string    `json:"reason"`
}

// TranscriptEntry is one segment as it ended up after reconciliation.
type TranscriptEntry struct {
	At       time.Time `json:"at"`
	Text     string    `json:"text"`
	OnTopic  bool      `json:"onTopic"`
	Decisive bool      `json:"decisive"`
	Score    float64   `json:"score"`
	Revised  bool      `json:"revised,omitempty"`
}
