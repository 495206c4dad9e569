package monitor

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abhisek/classwatch/internal/classify"
	"github.com/abhisek/classwatch/internal/remote"
	"github.com/abhisek/classwatch/internal/teaching"
)

const (
	weakOnTopic   = "Now let us try completing the square here"
	strongOnTopic = "The discriminant tells us the roots"
)

func TestSession_CleanOnTopicScenario(t *testing.T) {
	e, clock := newTestEngine(t, nil)
	s := startQuadratics(t, e)

	for _, text := range []string{
		"Today we study the quadratic formula",
		"The discriminant tells us the roots",
		"For example, x squared minus 4 equals zero",
	} {
		clock.Advance(5 * time.Second)
		seg, err := s.Submit(text, 0.95)
		if err != nil {
			t.Fatalf("Submit(%q): %v", text, err)
		}
		if !seg.OnTopic {
			t.Errorf("%q: off-topic (%s)", text, seg.Reason)
		}
	}

	r, err := s.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if r.OnTopicPercentage < 80 {
		t.Errorf("OnTopicPercentage = %v, want >= 80", r.OnTopicPercentage)
	}
	if r.ExamplesGiven != 1 {
		t.Errorf("ExamplesGiven = %d, want 1", r.ExamplesGiven)
	}
	if r.OnTopicSeconds != 15 || r.OffTopicSeconds != 0 {
		t.Errorf("seconds = %v/%v, want 15/0", r.OnTopicSeconds, r.OffTopicSeconds)
	}
	// 0.40*100 + 0.30*71.2 + min(20, 4) + min(10, 0.5*0.25) with every
	// gauge at its prior except exampleUsage (+4) and clarity (+2).
	if math.Abs(r.Score-65.485) > 1e-6 {
		t.Errorf("Score = %v, want 65.485", r.Score)
	}
	if r.Grade != "B+" {
		t.Errorf("Grade = %q, want B+", r.Grade)
	}
	if r.Status != "Excellent" {
		t.Errorf("Status = %q, want Excellent", r.Status)
	}
	if len(r.Transcript) != 3 || len(r.OffTopicSegments) != 0 {
		t.Errorf("transcript %d, off-topic %d", len(r.Transcript), len(r.OffTopicSegments))
	}
}

func TestSession_ReportCopiesAreIndependent(t *testing.T) {
	e, clock := newTestEngine(t, nil)
	s := startQuadratics(t, e)

	for _, text := range []string{
		"Today we study the quadratic formula",
		"Good morning everyone, how was your weekend cricket match",
		"Did anyone watch the football game on television last night",
	} {
		clock.Advance(5 * time.Second)
		if _, err := s.Submit(text, 0.9); err != nil {
			t.Fatalf("Submit(%q): %v", text, err)
		}
	}

	r, err := s.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Transcript) != 3 || len(r.OffTopicSegments) == 0 || len(r.Suggestions) == 0 || len(r.Improvements) == 0 {
		t.Fatalf("report too thin: transcript %d, off-topic %d, suggestions %d, improvements %d",
			len(r.Transcript), len(r.OffTopicSegments), len(r.Suggestions), len(r.Improvements))
	}
	text := r.Transcript[0].Text
	message := r.Suggestions[0].Message
	improvement := r.Improvements[0]
	excerpt := r.OffTopicSegments[0].Text

	r.Transcript[0].Text = "changed"
	r.Suggestions[0].Message = "changed"
	r.Improvements[0] = "changed"
	r.OffTopicSegments[0].Text = "changed"

	again, err := s.Report()
	if err != nil {
		t.Fatal(err)
	}
	if again.Transcript[0].Text != text {
		t.Errorf("Transcript[0].Text = %q, want %q", again.Transcript[0].Text, text)
	}
	if again.Suggestions[0].Message != message {
		t.Errorf("Suggestions[0].Message = %q, want %q", again.Suggestions[0].Message, message)
	}
	if again.Improvements[0] != improvement {
		t.Errorf("Improvements[0] = %q, want %q", again.Improvements[0], improvement)
	}
	if again.OffTopicSegments[0].Text != excerpt {
		t.Errorf("OffTopicSegments[0].Text = %q, want %q", again.OffTopicSegments[0].Text, excerpt)
	}
	if !again.StartedAt.Equal(epoch) || !again.Transcript[0].At.Equal(epoch.Add(5*time.Second)) {
		t.Errorf("times not carried over: started %v, first segment %v", again.StartedAt, again.Transcript[0].At)
	}
}

func TestSession_SnapshotSegmentsAreCopies(t *testing.T) {
	e, clock := newTestEngine(t, nil)
	s := startQuadratics(t, e)

	clock.Advance(5 * time.Second)
	seg, err := s.Submit("The discriminant tells us the roots", 0.9)
	if err != nil {
		t.Fatal(err)
	}
	if len(seg.MatchedKeywords) == 0 {
		t.Fatal("no keywords matched")
	}
	kw := seg.MatchedKeywords[0]
	seg.MatchedKeywords[0] = "changed"

	snap := s.Snapshot()
	if got := snap.Segments[0].MatchedKeywords[0]; got != kw {
		t.Fatalf("MatchedKeywords[0] = %q, want %q", got, kw)
	}
	snap.Segments[0].MatchedKeywords[0] = "changed"
	if got := s.Snapshot().Segments[0].MatchedKeywords[0]; got != kw {
		t.Errorf("after editing a snapshot, MatchedKeywords[0] = %q, want %q", got, kw)
	}
}

func TestSession_OffTopicVeto(t *testing.T) {
	e, clock := newTestEngine(t, nil)
	s := startQuadratics(t, e)

	for _, text := range []string{
		"Good morning everyone, how was your weekend cricket match",
		"Good morning, the quadratic formula and the discriminant",
	} {
		clock.Advance(4 * time.Second)
		seg, err := s.Submit(text, 1)
		if err != nil {
			t.Fatal(err)
		}
		if seg.OnTopic || !seg.Decisive {
			t.Errorf("%q: OnTopic=%v Decisive=%v, want a decisive off-topic verdict", text, seg.OnTopic, seg.Decisive)
		}
	}

	r, _ := s.Stop()
	if len(r.OffTopicSegments) != 2 {
		t.Errorf("OffTopicSegments = %d, want 2", len(r.OffTopicSegments))
	}
	if r.OffTopicSeconds != 8 {
		t.Errorf("OffTopicSeconds = %v, want 8", r.OffTopicSeconds)
	}
}

func TestSession_ShortSegmentNeutrality(t *testing.T) {
	e, clock := newTestEngine(t, nil)
	s := startQuadratics(t, e)

	clock.Advance(10 * time.Second)
	seg, err := s.Submit("okay so yes", 0.8)
	if err != nil {
		t.Fatal(err)
	}
	if seg.Decisive || seg.OnTopic {
		t.Fatalf("short segment got a decisive verdict: %+v", seg)
	}

	snap := s.Snapshot()
	if snap.OffTopicSeconds != 0 || snap.OnTopicSeconds != 0 {
		t.Errorf("seconds = %v/%v, want 0/0", snap.OnTopicSeconds, snap.OffTopicSeconds)
	}
	if snap.WordCount != 3 {
		t.Errorf("WordCount = %d, want 3", snap.WordCount)
	}
	if snap.ScoredSegments != 0 {
		t.Errorf("ScoredSegments = %d, want 0", snap.ScoredSegments)
	}

	r, _ := s.Stop()
	if len(r.OffTopicSegments) != 0 {
		t.Errorf("short segment sampled as off-topic: %+v", r.OffTopicSegments)
	}
	if len(r.Transcript) != 1 || r.Transcript[0].Decisive {
		t.Errorf("transcript = %+v", r.Transcript)
	}
}

func TestSession_TimeConservation(t *testing.T) {
	e, clock := newTestEngine(t, nil)
	s := startQuadratics(t, e)

	steps := []struct {
		gap  time.Duration
		text string
	}{
		{3 * time.Second, "Today we study the quadratic formula"},
		{0, "The discriminant tells us the roots"},
		{90 * time.Second, "Did everyone watch the football game"},
		{7 * time.Second, "ok"},
		{1500 * time.Millisecond, "For example, x squared minus 4 equals zero"},
		{5 * time.Minute, "so the vertex of the parabola sits here"},
	}
	for _, st := range steps {
		clock.Advance(st.gap)
		if _, err := s.Submit(st.text, 1); err != nil {
			t.Fatal(err)
		}
		snap := s.Snapshot()
		if snap.OnTopicSeconds+snap.OffTopicSeconds > snap.ElapsedSeconds+1e-9 {
			t.Fatalf("after %q: %v + %v > elapsed %v", st.text,
				snap.OnTopicSeconds, snap.OffTopicSeconds, snap.ElapsedSeconds)
		}
	}

	r, _ := s.Stop()
	if r.OnTopicSeconds+r.OffTopicSeconds > r.DurationSeconds+1e-9 {
		t.Errorf("report: %v + %v > %v", r.OnTopicSeconds, r.OffTopicSeconds, r.DurationSeconds)
	}
	if r.OnTopicPercentage < 0 || r.OnTopicPercentage > 100 {
		t.Errorf("OnTopicPercentage = %v", r.OnTopicPercentage)
	}
}

func TestSession_GaugesStayClamped(t *testing.T) {
	e, clock := newTestEngine(t, nil)
	s := startQuadratics(t, e)

	for i := 0; i < 60; i++ {
		clock.Advance(time.Second)
		if _, err := s.Submit("What if, for example, we factor it because the roots are real?", 1); err != nil {
			t.Fatal(err)
		}
		s.Recompute()
		m := s.Snapshot().Metrics
		for _, g := range teaching.Gauges {
			if v := m.Get(g); v < 0 || v > 100 {
				t.Fatalf("iteration %d: %s = %v", i, g, v)
			}
		}
	}
}

func TestSession_PacingWaitsForWindow(t *testing.T) {
	e, clock := newTestEngine(t, nil)
	s := startQuadratics(t, e)

	clock.Advance(10 * time.Second)
	s.Submit("Today we study the quadratic formula", 1)
	s.Recompute()
	if got := s.Snapshot().Metrics.Pacing; got != 70 {
		t.Fatalf("pacing before window = %v, want prior 70", got)
	}

	// Six words in a minute: 94 WPM under the band.
	clock.Advance(50 * time.Second)
	s.Recompute()
	if got, want := s.Snapshot().Metrics.Pacing, 100-94.0/3; math.Abs(got-want) > 1e-9 {
		t.Errorf("pacing = %v, want %v", got, want)
	}
}

func TestSession_BoundedReconciliation(t *testing.T) {
	tests := []struct {
		name        string
		intervening int
		wantRevised bool
	}{
		{"inside window", 1, true},
		{"outside window", 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, clock := newTestEngine(t, nil)
			s := startQuadratics(t, e)

			clock.Advance(5 * time.Second)
			weak, err := s.Submit(weakOnTopic, 1)
			if err != nil {
				t.Fatal(err)
			}
			if !weak.OnTopic || len(weak.MatchedKeywords) != 1 {
				t.Fatalf("setup: want a weak on-topic verdict, got %+v", weak)
			}
			for i := 0; i < tt.intervening; i++ {
				clock.Advance(5 * time.Second)
				s.Submit(strongOnTopic, 1)
			}

			n := s.Reconcile(&remote.Verdict{Seqs: []int{weak.Seq}, OnTopic: false, Reason: "unrelated aside"})
			snap := s.Snapshot()
			got := snap.Segments[weak.Seq]

			if tt.wantRevised {
				if n != 1 || got.OnTopic || !got.Revised {
					t.Fatalf("n=%d segment=%+v, want revised", n, got)
				}
				if got.Reason != "remote: unrelated aside" {
					t.Errorf("Reason = %q", got.Reason)
				}
				if snap.OffTopicSeconds != 5 {
					t.Errorf("OffTopicSeconds = %v, want 5", snap.OffTopicSeconds)
				}
			} else {
				if n != 0 || !got.OnTopic || got.Revised {
					t.Fatalf("n=%d segment=%+v, want untouched", n, got)
				}
				if snap.OffTopicSeconds != 0 {
					t.Errorf("OffTopicSeconds = %v, want 0", snap.OffTopicSeconds)
				}
			}
		})
	}
}

func TestSession_ReconcileRules(t *testing.T) {
	e, clock := newTestEngine(t, nil)
	s := startQuadratics(t, e)

	clock.Advance(5 * time.Second)
	weak, _ := s.Submit(weakOnTopic, 1)
	clock.Advance(5 * time.Second)
	strong, _ := s.Submit(strongOnTopic, 1)

	if n := s.Reconcile(&remote.Verdict{Seqs: []int{strong.Seq}}); n != 0 {
		t.Errorf("strong segment revised")
	}
	if n := s.Reconcile(&remote.Verdict{Seqs: []int{weak.Seq}, OnTopic: true}); n != 0 {
		t.Errorf("on-topic verdict revised %d segments", n)
	}
	if n := s.Reconcile(&remote.Verdict{Seqs: []int{weak.Seq, 99, -1}}); n != 1 {
		t.Fatalf("first revision = %d, want 1", n)
	}
	if n := s.Reconcile(&remote.Verdict{Seqs: []int{weak.Seq}}); n != 0 {
		t.Errorf("segment revised twice")
	}

	r, _ := s.Stop()
	if !r.Transcript[weak.Seq].Revised || r.Transcript[weak.Seq].OnTopic {
		t.Errorf("transcript entry = %+v", r.Transcript[weak.Seq])
	}
	if n := s.Reconcile(&remote.Verdict{Seqs: []int{strong.Seq}}); n != 0 {
		t.Errorf("verdict applied after termination")
	}
}

func TestSession_RemoteFallback(t *testing.T) {
	var calls atomic.Int32
	failing := remote.ClassifierFunc(func(context.Context, remote.Request) (*remote.Verdict, error) {
		calls.Add(1)
		return nil, errors.New("connection refused")
	})
	e, clock := newTestEngine(t, failing)
	sub := e.Subscribe(64)
	defer sub.Close()
	s := startQuadratics(t, e)

	for i := 0; i < 3; i++ {
		clock.Advance(5 * time.Second)
		if _, err := s.Submit(strongOnTopic, 1); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	ev := waitEvent(t, sub, EventNotice)
	if ev.Notice.Kind != NoticeRemoteDegraded {
		t.Fatalf("notice = %+v", ev.Notice)
	}

	// Local analysis carries on after the remote side gives up.
	clock.Advance(5 * time.Second)
	seg, err := s.Submit("Today we study the quadratic formula", 1)
	if err != nil || !seg.OnTopic {
		t.Fatalf("post-degrade submit: %+v, %v", seg, err)
	}

	r, err := s.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if !r.Degraded || len(r.Notices) != 1 {
		t.Errorf("Degraded=%v Notices=%v", r.Degraded, r.Notices)
	}
	if r.SegmentCount != 4 || r.Grade == "" {
		t.Errorf("incomplete report: %+v", r)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("remote calls = %d, want 3", got)
	}
}

func TestSession_RemoteRevisionThroughAdapter(t *testing.T) {
	offTopic := remote.ClassifierFunc(func(_ context.Context, req remote.Request) (*remote.Verdict, error) {
		return &remote.Verdict{Seqs: req.Seqs, OnTopic: false, Reason: "talking about tiles"}, nil
	})
	e, clock := newTestEngine(t, offTopic)
	sub := e.Subscribe(16)
	defer sub.Close()
	s := startQuadratics(t, e)

	clock.Advance(5 * time.Second)
	if _, err := s.Submit(weakOnTopic, 1); err != nil {
		t.Fatal(err)
	}

	ev := waitEvent(t, sub, EventRevision)
	if ev.Revision.Seq != 0 || ev.Revision.Seconds != 5 {
		t.Errorf("revision = %+v", ev.Revision)
	}
	if ev.Revision.OnTopicPercentage != 0 {
		t.Errorf("OnTopicPercentage = %v, want 0", ev.Revision.OnTopicPercentage)
	}
}

func TestSession_InterimPreviewIsNotCounted(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	e.cfg.InterimDebounce = 20 * time.Millisecond
	sub := e.Subscribe(8)
	defer sub.Close()
	s := startQuadratics(t, e)

	s.Interim("the quad")
	s.Interim("the quadratic")
	s.Interim("the quadratic formula gives both roots")

	ev := waitEvent(t, sub, EventPreview)
	if ev.Preview.Text != "the quadratic formula gives both roots" || !ev.Preview.OnTopic {
		t.Errorf("preview = %+v", ev.Preview)
	}
	select {
	case extra := <-sub.C:
		if extra.Kind == EventPreview {
			t.Errorf("debounce let through a second preview: %+v", extra.Preview)
		}
	case <-time.After(60 * time.Millisecond):
	}

	snap := s.Snapshot()
	if snap.WordCount != 0 || snap.SegmentCount != 0 {
		t.Errorf("interim text was committed: %+v", snap)
	}
}

func TestSession_SnapshotIsACopy(t *testing.T) {
	e, clock := newTestEngine(t, nil)
	s := startQuadratics(t, e)
	clock.Advance(5 * time.Second)
	s.Submit("Today we study the quadratic formula", 1)

	snap := s.Snapshot()
	snap.Segments[0].MatchedKeywords[0] = "tampered"
	snap.Segments[0].OnTopic = false

	again := s.Snapshot()
	if again.Segments[0].MatchedKeywords[0] == "tampered" || !again.Segments[0].OnTopic {
		t.Error("snapshot aliases session state")
	}
	if len(again.RecentKeywords) == 0 {
		t.Error("RecentKeywords is empty")
	}
}

func TestSession_NotifyAndMode(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	s := startQuadratics(t, e)

	s.SetMode(ModeSimulation)
	s.Notify(NoticeIngestFailed, "microphone permission denied")

	r, _ := s.Stop()
	if r.Mode != string(ModeSimulation) {
		t.Errorf("Mode = %q", r.Mode)
	}
	if len(r.Notices) != 1 || r.Notices[0] != "microphone permission denied" {
		t.Errorf("Notices = %v", r.Notices)
	}

	s.Notify(NoticeInfo, "late")
	again, _ := s.Report()
	if len(again.Notices) != 1 {
		t.Errorf("notice recorded after termination: %v", again.Notices)
	}
}

func TestSegmentScore(t *testing.T) {
	tests := []struct {
		name       string
		onTopic    bool
		confidence float64
		question   bool
		example    bool
		want       float64
	}{
		{"off-topic", false, 0.4, false, false, 30},
		{"on-topic low confidence", true, 0, false, false, 70},
		{"on-topic full confidence", true, 1, false, false, 90},
		{"bonuses clamp at 100", true, 1, true, true, 100},
		{"off-topic question", false, 0, true, false, 35},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SegmentScore(tt.onTopic, tt.confidence, markers(tt.question, tt.example))
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func markers(question, example bool) classify.Markers {
	return classify.Markers{Question: question, Example: example}
}
