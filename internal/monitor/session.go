package monitor

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog"

	"github.com/abhisek/classwatch/internal/classify"
	"github.com/abhisek/classwatch/internal/metrics"
	"github.com/abhisek/classwatch/internal/remote"
	"github.com/abhisek/classwatch/internal/report"
	"github.com/abhisek/classwatch/internal/teaching"
)

// State is a session lifecycle state.
type State string

const (
	StateActive     State = "active"
	StateTerminated State = "terminated"
)

// recentKeywordSegments is how many trailing segments feed RecentKeywords.
const recentKeywordSegments = 3

// Snapshot is a read-only copy of a session's running totals.
type Snapshot struct {
	SessionID string    `json:"sessionId"`
	TeacherID string    `json:"teacherId,omitempty"`
	Topic     string    `json:"topic"`
	Subject   string    `json:"subject"`
	Mode      Mode      `json:"mode"`
	State     State     `json:"state"`
	StartedAt time.Time `json:"startedAt"`

	ElapsedSeconds    float64 `json:"elapsedSeconds"`
	OnTopicPercentage float64 `json:"onTopicPercentage"`
	OnTopicSeconds    float64 `json:"onTopicSeconds"`
	OffTopicSeconds   float64 `json:"offTopicSeconds"`
	OnTopicMinutes    float64 `json:"onTopicMinutes"`
	OffTopicMinutes   float64 `json:"offTopicMinutes"`

	WordCount      int     `json:"wordCount"`
	QuestionCount  int     `json:"questionCount"`
	ExampleCount   int     `json:"exampleCount"`
	SegmentCount   int     `json:"segmentCount"`
	ScoredSegments int     `json:"scoredSegments"`
	CurrentScore   float64 `json:"currentScore"`
	WordsPerMinute float64 `json:"wordsPerMinute"`

	Metrics        teaching.Metrics `json:"teachingMetrics"`
	RecentKeywords []string         `json:"recentKeywords"`
	Degraded       bool             `json:"degraded"`
	Notices        []string         `json:"notices,omitempty"`
	Segments       []Segment        `json:"segments"`
}

type sessionParams struct {
	id       string
	opts     StartOptions
	keywords []string
	offTopic []string
	cfg      Config
	local    *classify.Local
	clock    Clock
	bus      *Bus
	logger   zerolog.Logger
}

// Session is one monitoring run. All methods are safe for concurrent use;
// segment processing is serialized in arrival order.
type Session struct {
	id        string
	topic     string
	subject   string
	teacherID string
	keywords  []string
	offTopic  []string

	cfg     Config
	local   *classify.Local
	clock   Clock
	bus     *Bus
	logger  zerolog.Logger
	tracker *teaching.Tracker

	ctx     context.Context
	cancel  context.CancelFunc
	adapter *remote.Adapter

	mu              sync.Mutex
	mode            Mode
	startedAt       time.Time
	lastAt          time.Time
	segments        []*Segment
	onTopicSeconds  float64
	offTopicSeconds float64
	wordCount       int
	questionCount   int
	exampleCount    int
	degraded        bool
	notices         []string
	terminated      bool
	final           *report.Report

	interimText  string
	interimTimer *time.Timer
}

func newSession(ctx context.Context, p sessionParams) *Session {
	ctx, cancel := context.WithCancel(ctx)
	now := p.clock.Now()
	return &Session{
		id:        p.id,
		topic:     p.opts.Topic,
		subject:   p.opts.Subject,
		teacherID: p.opts.TeacherID,
		keywords:  p.keywords,
		offTopic:  p.offTopic,
		cfg:       p.cfg,
		local:     p.local,
		clock:     p.clock,
		bus:       p.bus,
		logger:    p.logger.With().Str("session", p.id).Logger(),
		tracker:   teaching.NewTracker(p.cfg.Teaching),
		ctx:       ctx,
		cancel:    cancel,
		mode:      p.opts.Mode,
		startedAt: now,
		lastAt:    now,
	}
}

func (s *Session) attachRemote(c remote.Classifier) {
	guarded := remote.WithPolicy(c, s.cfg.Policy, s.logger)
	s.adapter = remote.NewAdapter(guarded, s.cfg.Remote, remote.Handlers{
		OnResult:   func(v *remote.Verdict) { s.Reconcile(v) },
		OnDegraded: s.markDegraded,
	}, s.logger)
}

func (s *Session) start() {
	if s.cfg.TickInterval <= 0 {
		return
	}
	go func() {
		t := time.NewTicker(s.cfg.TickInterval)
		defer t.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-t.C:
				s.Recompute()
			}
		}
	}()
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Topic returns the assigned topic.
func (s *Session) Topic() string { return s.topic }

// Subject returns the assigned subject.
func (s *Session) Subject() string { return s.subject }

// Keywords returns the topic keywords the session classifies against.
func (s *Session) Keywords() []string { return slices.Clone(s.keywords) }

// Terminated reports whether Stop has been called.
func (s *Session) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

// Submit analyzes one finalized segment. confidence is the transcriber's
// confidence in text and is recorded but not used for classification.
func (s *Session) Submit(text string, confidence float64) (*Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminated {
		return nil, ErrSessionTerminated
	}

	now := s.clock.Now()
	gap := now.Sub(s.lastAt)
	if gap < 0 {
		gap = 0
	}
	if s.cfg.MaxSegmentGap > 0 && gap > s.cfg.MaxSegmentGap {
		gap = s.cfg.MaxSegmentGap
	}
	s.lastAt = now

	v := s.local.Classify(text, s.keywords, s.offTopic)
	seg := &Segment{
		Seq:                  len(s.segments),
		Text:                 text,
		At:                   now,
		DurationSeconds:      gap.Seconds(),
		TranscriptConfidence: confidence,
		WordCount:            len(classify.Tokenize(text)),
		OnTopic:              v.OnTopic,
		Decisive:             v.Decisive,
		MatchedKeywords:      v.Matched,
		Confidence:           v.Confidence,
		Reason:               v.Reason,
		Score:                neutralScore,
	}
	s.wordCount += seg.WordCount

	verdict := "neutral"
	if v.Decisive {
		m := classify.DetectMarkers(text)
		seg.HasQuestion = m.Question
		seg.HasExample = m.Example
		seg.HasClarityMarker = m.Clarity
		if m.Question {
			s.questionCount++
		}
		if m.Example {
			s.exampleCount++
		}
		s.tracker.Observe(m)

		seg.Score = SegmentScore(v.OnTopic, v.Confidence, m)
		if v.OnTopic {
			s.onTopicSeconds += seg.DurationSeconds
			verdict = "on_topic"
		} else {
			s.offTopicSeconds += seg.DurationSeconds
			verdict = "off_topic"
		}
		metrics.SegmentScore.Observe(seg.Score)
	}
	metrics.SegmentsTotal.WithLabelValues(verdict).Inc()
	s.segments = append(s.segments, seg)

	if v.Decisive && s.adapter != nil && !s.degraded {
		s.adapter.Submit(remote.Request{
			SessionID: s.id,
			Seqs:      []int{seg.Seq},
			Text:      text,
			Topic:     s.topic,
			Subject:   s.subject,
			Keywords:  s.keywords,
		})
	}

	s.logger.Debug().
		Int("seq", seg.Seq).
		Str("verdict", verdict).
		Float64("score", seg.Score).
		Strs("matched", seg.MatchedKeywords).
		Msg("Segment analyzed")

	live := s.liveStatusLocked(seg)
	s.publishLocked(Event{Kind: EventLiveStatus, Live: &live})

	out := seg.clone()
	return &out, nil
}

// Interim schedules a debounced preview classification of partial text.
// Previews are published as events and never counted.
func (s *Session) Interim(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminated {
		return ErrSessionTerminated
	}
	s.interimText = text
	if s.cfg.InterimDebounce <= 0 {
		s.previewLocked()
		return nil
	}
	if s.interimTimer == nil {
		s.interimTimer = time.AfterFunc(s.cfg.InterimDebounce, s.firePreview)
	} else {
		s.interimTimer.Reset(s.cfg.InterimDebounce)
	}
	return nil
}

func (s *Session) firePreview() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		return
	}
	s.previewLocked()
}

func (s *Session) previewLocked() {
	if s.interimText == "" {
		return
	}
	v := s.local.Classify(s.interimText, s.keywords, s.offTopic)
	s.publishLocked(Event{Kind: EventPreview, Preview: &Preview{
		Text:            s.interimText,
		OnTopic:         v.OnTopic,
		Decisive:        v.Decisive,
		MatchedKeywords: v.Matched,
		Reason:          v.Reason,
	}})
	s.interimText = ""
}

// Reconcile applies a late remote verdict. Only off-topic verdicts have
// an effect: each named segment that is still within the reconciliation
// window, was judged on-topic on weak evidence and has not been revised
// before is moved to off-topic. It returns the number of revised segments.
func (s *Session) Reconcile(v *remote.Verdict) int {
	if v == nil || v.OnTopic {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminated {
		return 0
	}

	oldest := len(s.segments) - s.cfg.ReconcileWindow
	revised := 0
	for _, seq := range v.Seqs {
		if seq < 0 || seq < oldest || seq >= len(s.segments) {
			continue
		}
		seg := s.segments[seq]
		if seg.Revised || !seg.Decisive || !seg.OnTopic || len(seg.MatchedKeywords) >= s.cfg.WeakMatchThreshold {
			continue
		}

		seg.OnTopic = false
		seg.Revised = true
		seg.Reason = remoteReason(v.Reason)
		seg.Score = SegmentScore(false, seg.Confidence, seg.markers())
		s.onTopicSeconds -= seg.DurationSeconds
		s.offTopicSeconds += seg.DurationSeconds
		revised++
		metrics.Revisions.Inc()

		s.logger.Debug().Int("seq", seq).Str("reason", seg.Reason).Msg("Segment revised by remote verdict")
		s.publishLocked(Event{Kind: EventRevision, Revision: &Revision{
			Seq:               seq,
			Reason:            seg.Reason,
			Seconds:           seg.DurationSeconds,
			OnTopicPercentage: s.onTopicPctLocked(),
		}})
	}
	return revised
}

func remoteReason(r string) string {
	if r == "" {
		return "remote classifier judged this off-topic"
	}
	return "remote: " + r
}

func (s *Session) markDegraded(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated || s.degraded {
		return
	}
	s.degraded = true
	s.logger.Warn().Err(err).Msg("Remote classifier unavailable, continuing local-only")
	s.noticeLocked(NoticeRemoteDegraded, "Semantic analysis unavailable; continuing with keyword analysis only")
}

// Notify surfaces a non-fatal condition to consumers and records it on
// the report. It is a no-op after termination.
func (s *Session) Notify(kind NoticeKind, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		return
	}
	s.noticeLocked(kind, msg)
}

func (s *Session) noticeLocked(kind NoticeKind, msg string) {
	s.notices = append(s.notices, msg)
	s.publishLocked(Event{Kind: EventNotice, Notice: &Notice{Kind: kind, Message: msg}})
}

// SetMode records where segments are coming from.
func (s *Session) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated || s.mode == m {
		return
	}
	s.mode = m
	s.logger.Info().Str("mode", string(m)).Msg("Session mode changed")
}

// Mode returns the current ingestion mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Recompute refreshes pacing and broadcasts an analysis update. It runs
// on the session ticker and may also be called directly.
func (s *Session) Recompute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		return
	}
	now := s.clock.Now()
	s.updatePacingLocked(now)
	snap := s.snapshotLocked(now)
	s.publishLocked(Event{Kind: EventAnalysisUpdate, Analysis: &snap})
}

// Snapshot returns a copy of the running totals.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(s.clock.Now())
}

// Stop terminates the session and returns the final report. Outstanding
// remote calls are abandoned. A second call returns ErrSessionTerminated
// and leaves the report untouched.
func (s *Session) Stop() (*report.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminated {
		return nil, ErrSessionTerminated
	}

	now := s.clock.Now()
	s.updatePacingLocked(now)
	s.terminated = true
	s.cancel()
	if s.adapter != nil {
		s.adapter.Close()
	}
	if s.interimTimer != nil {
		s.interimTimer.Stop()
	}

	s.final = s.buildReportLocked(now)

	metrics.SessionsActive.Dec()
	metrics.SessionsFinished.WithLabelValues(s.final.Grade).Inc()
	metrics.RemoteDegraded.Set(0)
	s.logger.Info().
		Str("grade", s.final.Grade).
		Float64("on_topic_pct", s.final.OnTopicPercentage).
		Int("segments", s.final.SegmentCount).
		Bool("degraded", s.final.Degraded).
		Msg("Monitoring stopped")

	s.publishLocked(Event{Kind: EventFinished, Report: copyReport(s.final)})
	return copyReport(s.final), nil
}

// Report returns the final report once the session has stopped, or a
// provisional report built from the current totals before that.
func (s *Session) Report() (*report.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.final != nil {
		return copyReport(s.final), nil
	}
	return s.buildReportLocked(s.clock.Now()), nil
}

func (s *Session) updatePacingLocked(now time.Time) {
	elapsed := now.Sub(s.startedAt)
	if elapsed < s.cfg.PacingMinWindow || s.wordCount == 0 {
		return
	}
	s.tracker.UpdatePacing(s.wpmLocked(now))
}

func (s *Session) wpmLocked(now time.Time) float64 {
	minutes := now.Sub(s.startedAt).Minutes()
	if minutes <= 0 {
		return 0
	}
	return float64(s.wordCount) / minutes
}

func (s *Session) bases() (segmentPct, timePct float64) {
	scored, on := 0, 0
	for _, seg := range s.segments {
		if !seg.Decisive {
			continue
		}
		scored++
		if seg.OnTopic {
			on++
		}
	}
	if scored > 0 {
		segmentPct = 100 * float64(on) / float64(scored)
	}
	total := s.onTopicSeconds + s.offTopicSeconds
	if total > 0 {
		timePct = 100 * s.onTopicSeconds / total
	} else {
		// Segments that arrived together carry no time; the count basis
		// is the only evidence.
		timePct = segmentPct
	}
	return segmentPct, timePct
}

func (s *Session) onTopicPctLocked() float64 {
	segPct, timePct := s.bases()
	return s.cfg.Grading.Blend.Apply(segPct, timePct)
}

func (s *Session) meanScoreLocked() (float64, int) {
	sum, n := 0.0, 0
	for _, seg := range s.segments {
		if seg.Decisive {
			sum += seg.Score
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

func (s *Session) liveStatusLocked(seg *Segment) LiveStatus {
	mean, _ := s.meanScoreLocked()
	return LiveStatus{
		Seq:               seg.Seq,
		Text:              seg.Text,
		OnTopic:           seg.OnTopic,
		Decisive:          seg.Decisive,
		MatchedKeywords:   slices.Clone(seg.MatchedKeywords),
		Confidence:        seg.Confidence,
		Reason:            seg.Reason,
		SegmentScore:      seg.Score,
		CumulativeScore:   mean,
		OnTopicPercentage: s.onTopicPctLocked(),
	}
}

func (s *Session) snapshotLocked(now time.Time) Snapshot {
	mean, scored := s.meanScoreLocked()
	state := StateActive
	if s.terminated {
		state = StateTerminated
	}

	snap := Snapshot{
		SessionID:         s.id,
		TeacherID:         s.teacherID,
		Topic:             s.topic,
		Subject:           s.subject,
		Mode:              s.mode,
		State:             state,
		StartedAt:         s.startedAt,
		ElapsedSeconds:    now.Sub(s.startedAt).Seconds(),
		OnTopicPercentage: s.onTopicPctLocked(),
		OnTopicSeconds:    s.onTopicSeconds,
		OffTopicSeconds:   s.offTopicSeconds,
		OnTopicMinutes:    s.onTopicSeconds / 60,
		OffTopicMinutes:   s.offTopicSeconds / 60,
		WordCount:         s.wordCount,
		QuestionCount:     s.questionCount,
		ExampleCount:      s.exampleCount,
		SegmentCount:      len(s.segments),
		ScoredSegments:    scored,
		CurrentScore:      mean,
		WordsPerMinute:    s.wpmLocked(now),
		Metrics:           s.tracker.Snapshot(),
		Degraded:          s.degraded,
		Notices:           slices.Clone(s.notices),
		Segments:          make([]Segment, len(s.segments)),
	}
	for i, seg := range s.segments {
		snap.Segments[i] = seg.clone()
	}

	seen := make(map[string]bool)
	for _, seg := range s.segments[max(0, len(s.segments)-recentKeywordSegments):] {
		for _, kw := range seg.MatchedKeywords {
			if !seen[kw] {
				seen[kw] = true
				snap.RecentKeywords = append(snap.RecentKeywords, kw)
			}
		}
	}
	return snap
}

func (s *Session) buildReportLocked(now time.Time) *report.Report {
	segPct, timePct := s.bases()
	pct := s.cfg.Grading.Blend.Apply(segPct, timePct)
	elapsed := now.Sub(s.startedAt)
	wpm := s.wpmLocked(now)
	gauges := s.tracker.Snapshot()

	a := s.cfg.Grading.Assess(report.Inputs{
		Topic:          s.topic,
		OnTopicPct:     pct,
		Metrics:        gauges,
		QuestionsAsked: s.questionCount,
		ExamplesGiven:  s.exampleCount,
		Duration:       elapsed,
		WordsPerMinute: wpm,
	})
	mean, scored := s.meanScoreLocked()

	r := &report.Report{
		SessionID:         s.id,
		TeacherID:         s.teacherID,
		Topic:             s.topic,
		Subject:           s.subject,
		Mode:              string(s.mode),
		StartedAt:         s.startedAt,
		EndedAt:           now,
		DurationSeconds:   elapsed.Seconds(),
		OnTopicPercentage: pct,
		SegmentBasisPct:   segPct,
		TimeBasisPct:      timePct,
		OnTopicSeconds:    s.onTopicSeconds,
		OffTopicSeconds:   s.offTopicSeconds,
		Score:             a.Score,
		OverallScore:      mean,
		Grade:             a.Grade,
		Status:            a.Status,
		TeachingMetrics:   gauges,
		QuestionsAsked:    s.questionCount,
		ExamplesGiven:     s.exampleCount,
		WordCount:         s.wordCount,
		SegmentCount:      len(s.segments),
		ScoredSegments:    scored,
		WordsPerMinute:    wpm,
		Strengths:         a.Strengths,
		Improvements:      a.Improvements,
		Suggestions:       a.Suggestions,
		Transcript:        make([]report.TranscriptEntry, 0, len(s.segments)),
		Degraded:          s.degraded,
		Notices:           slices.Clone(s.notices),
	}

	for _, seg := range s.segments {
		r.Transcript = append(r.Transcript, report.TranscriptEntry{
			At:       seg.At,
			Text:     seg.Text,
			OnTopic:  seg.OnTopic,
			Decisive: seg.Decisive,
			Score:    seg.Score,
			Revised:  seg.Revised,
		})
		if seg.Decisive && !seg.OnTopic {
			r.OffTopicSegments = append(r.OffTopicSegments, report.Excerpt{
				At:     seg.At,
				Text:   seg.Text,
				Reason: seg.Reason,
			})
		}
	}
	if n := s.cfg.OffTopicSample; n > 0 && len(r.OffTopicSegments) > n {
		r.OffTopicSegments = r.OffTopicSegments[len(r.OffTopicSegments)-n:]
	}
	return r
}

func (s *Session) publishLocked(ev Event) {
	ev.SessionID = s.id
	ev.At = s.clock.Now()
	s.bus.Publish(ev)
}

func (seg *Segment) clone() Segment {
	var out Segment
	deepCopy(&out, seg)
	return out
}

// copyReport returns a copy of r that shares no slices with it.
func copyReport(r *report.Report) *report.Report {
	out := new(report.Report)
	deepCopy(out, r)
	return out
}

// deepCopy copies src into dst, following slices and nested structs.
// Both sides are types from this module, so a failure is a bug.
func deepCopy(dst, src any) {
	if err := copier.CopyWithOption(dst, src, copier.Option{DeepCopy: true}); err != nil {
		panic(fmt.Sprintf("copy %T: %v", src, err))
	}
}
