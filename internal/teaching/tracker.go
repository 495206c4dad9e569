package teaching

import "github.com/abhisek/classwatch/internal/classify"

// Gauge names one teaching-quality gauge.
type Gauge string

const (
	Clarity        Gauge = "clarity"
	Engagement     Gauge = "engagement"
	Pacing         Gauge = "pacing"
	ExampleUsage   Gauge = "exampleUsage"
	QuestionAsking Gauge = "questionAsking"
)

// Gauges lists every gauge in display order.
var Gauges = []Gauge{Clarity, Engagement, Pacing, ExampleUsage, QuestionAsking}

const (
	minGauge = 0
	maxGauge = 100
)

// Metrics is a snapshot of all gauges. Every value is within [0, 100].
type Metrics struct {
	Clarity        float64 `json:"clarity"`
	Engagement     float64 `json:"engagement"`
	Pacing         float64 `json:"pacing"`
	ExampleUsage   float64 `json:"exampleUsage"`
	QuestionAsking float64 `json:"questionAsking"`
}

// Get returns the value of one gauge.
func (m Metrics) Get(g Gauge) float64 {
	switch g {
	case Clarity:
		return m.Clarity
	case Engagement:
		return m.Engagement
	case Pacing:
		return m.Pacing
	case ExampleUsage:
		return m.ExampleUsage
	case QuestionAsking:
		return m.QuestionAsking
	}
	return 0
}

func (m *Metrics) set(g Gauge, v float64) {
	switch g {
	case Clarity:
		m.Clarity = v
	case Engagement:
		m.Engagement = v
	case Pacing:
		m.Pacing = v
	case ExampleUsage:
		m.ExampleUsage = v
	case QuestionAsking:
		m.QuestionAsking = v
	}
}

// Average returns the mean of all gauges.
func (m Metrics) Average() float64 {
	sum := 0.0
	for _, g := range Gauges {
		sum += m.Get(g)
	}
	return sum / float64(len(Gauges))
}

// Config holds the gauge prior, per-marker deltas and the pacing band.
type Config struct {
	Initial float64

	QuestionDelta           float64 // questionAsking, per question
	QuestionEngagementDelta float64 // engagement, per question
	ExampleDelta            float64 // exampleUsage, per example
	ExampleClarityDelta     float64 // clarity, per example
	ClarityDelta            float64 // clarity, per connective phrase

	PacingLow      float64 // WPM
	PacingHigh     float64 // WPM
	PacingPeak     float64
	PacingFloor    float64
	PacingWPMPerPt float64 // WPM outside the band per point lost
}

// DefaultConfig returns the standard gauge tuning.
func DefaultConfig() Config {
	return Config{
		Initial:                 70,
		QuestionDelta:           3,
		QuestionEngagementDelta: 2,
		ExampleDelta:            4,
		ExampleClarityDelta:     2,
		ClarityDelta:            2,
		PacingLow:               100,
		PacingHigh:              160,
		PacingPeak:              100,
		PacingFloor:             60,
		PacingWPMPerPt:          3,
	}
}

// Tracker maintains the teaching gauges for one session. It is not safe
// for concurrent use; the owning session serializes access.
type Tracker struct {
	cfg     Config
	metrics Metrics
}

// NewTracker creates a tracker with every gauge at cfg.Initial.
func NewTracker(cfg Config) *Tracker {
	t := &Tracker{cfg: cfg}
	initial := clamp(cfg.Initial)
	for _, g := range Gauges {
		t.metrics.set(g, initial)
	}
	return t
}

// Observe applies the marker deltas for one segment.
func (t *Tracker) Observe(m classify.Markers) {
	if m.Question {
		t.Nudge(QuestionAsking, t.cfg.QuestionDelta)
		t.Nudge(Engagement, t.cfg.QuestionEngagementDelta)
	}
	if m.Example {
		t.Nudge(ExampleUsage, t.cfg.ExampleDelta)
		t.Nudge(Clarity, t.cfg.ExampleClarityDelta)
	}
	if m.Clarity {
		t.Nudge(Clarity, t.cfg.ClarityDelta)
	}
}

// Nudge moves one gauge by delta, clamped to [0, 100].
func (t *Tracker) Nudge(g Gauge, delta float64) {
	t.metrics.set(g, clamp(t.metrics.Get(g)+delta))
}

// UpdatePacing recomputes the pacing gauge from words per minute. A
// non-positive rate means there is nothing to measure yet.
func (t *Tracker) UpdatePacing(wpm float64) {
	if wpm <= 0 {
		return
	}
	t.metrics.Pacing = PacingScore(wpm, t.cfg)
}

// Snapshot returns a copy of the current gauges.
func (t *Tracker) Snapshot() Metrics {
	return t.metrics
}

// PacingScore maps a speaking rate to a pacing gauge value: PacingPeak
// inside the band, losing one point per PacingWPMPerPt outside it, never
// below PacingFloor.
func PacingScore(wpm float64, cfg Config) float64 {
	var dev float64
	switch {
	case wpm < cfg.PacingLow:
		dev = cfg.PacingLow - wpm
	case wpm > cfg.PacingHigh:
		dev = wpm - cfg.PacingHigh
	}

	perPt := cfg.PacingWPMPerPt
	if perPt <= 0 {
		perPt = 1
	}
	score := cfg.PacingPeak - dev/perPt
	if score < cfg.PacingFloor {
		score = cfg.PacingFloor
	}
	return clamp(score)
}

func clamp(v float64) float64 {
	if v < minGauge {
		return minGauge
	}
	if v > maxGauge {
		return maxGauge
	}
	return v
}
