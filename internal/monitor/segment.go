package monitor

import (
	"time"

	"github.com/abhisek/classwatch/internal/classify"
)

// Segment is one finalized span of speech and its analysis.
type Segment struct {
	Seq             int       `json:"seq"`
	Text            string    `json:"text"`
	At              time.Time `json:"timestamp"`
	DurationSeconds float64   `json:"durationSeconds"`
	// TranscriptConfidence is the speech recognizer's confidence in Text.
	TranscriptConfidence float64 `json:"transcriptConfidence"`
	WordCount            int     `json:"wordCount"`

	OnTopic         bool     `json:"isOnTopic"`
	Decisive        bool     `json:"decisive"`
	MatchedKeywords []string `json:"matchedKeywords"`
	Confidence      float64  `json:"confidence"`
	Reason          string   `json:"reason"`

	HasQuestion      bool `json:"hasQuestion"`
	HasExample       bool `json:"hasExample"`
	HasClarityMarker bool `json:"hasClarityMarker"`

	Score   float64 `json:"score"`
	Revised bool    `json:"revised"`
}

const (
	baseScore       = 50
	onTopicBonus    = 20
	confidenceBonus = 20
	offTopicPenalty = 20
	questionBonus   = 5
	exampleBonus    = 5
	neutralScore    = 50
)

// SegmentScore scores a decisive segment: 50, plus 20 to 40 scaled by
// confidence when on-topic or minus 20 when off-topic, plus small marker
// bonuses, clamped to [0, 100].
func SegmentScore(onTopic bool, confidence float64, m classify.Markers) float64 {
	score := float64(baseScore)
	if onTopic {
		score += onTopicBonus + confidenceBonus*confidence
	} else {
		score -= offTopicPenalty
	}
	if m.Question {
		score += questionBonus
	}
	if m.Example {
		score += exampleBonus
	}
	return min(100, max(0, score))
}

func (s *Segment) markers() classify.Markers {
	return classify.Markers{Question: s.HasQuestion, Example: s.HasExample, Clarity: s.HasClarityMarker}
}
