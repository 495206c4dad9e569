package monitor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/abhisek/classwatch/internal/corpus"
	"github.com/abhisek/classwatch/internal/remote"
)

var epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.TickInterval = 0
	cfg.InterimDebounce = 0
	cfg.Remote = remote.AdapterConfig{QueueSize: 16, MaxBatch: 1, Timeout: time.Second}
	cfg.Policy = remote.Policy{MaxAttempts: 3}
	return cfg
}

func newTestEngine(t *testing.T, rc remote.Classifier) (*Engine, *FakeClock) {
	t.Helper()
	clock := NewFakeClock(epoch)
	seq := 0
	e := NewEngine(Deps{
		Corpus: corpus.Default(),
		Remote: rc,
		Clock:  clock,
		Logger: zerolog.Nop(),
		IDGen: func() string {
			seq++
			return fmt.Sprintf("s%d", seq)
		},
	}, testConfig())
	t.Cleanup(e.Close)
	return e, clock
}

func startQuadratics(t *testing.T, e *Engine) *Session {
	t.Helper()
	s, err := e.StartMonitoring(context.Background(), StartOptions{
		Topic:   "Quadratic Equations",
		Subject: "Mathematics",
	})
	if err != nil {
		t.Fatalf("StartMonitoring: %v", err)
	}
	return s
}

func waitEvent(t *testing.T, sub *Subscription, kind EventKind) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				t.Fatalf("subscription closed waiting for %s", kind)
			}
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func TestEngine_OneActiveSession(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	startQuadratics(t, e)

	_, err := e.StartMonitoring(context.Background(), StartOptions{Topic: "Photosynthesis", Subject: "science"})
	if !errors.Is(err, ErrSessionActive) {
		t.Fatalf("got %v, want ErrSessionActive", err)
	}

	if _, err := e.StopMonitoring(); err != nil {
		t.Fatalf("StopMonitoring: %v", err)
	}
	if e.Active() != nil {
		t.Error("Active() should be nil after stop")
	}

	s, err := e.StartMonitoring(context.Background(), StartOptions{Topic: "Photosynthesis", Subject: "science"})
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if s.ID() != "s2" {
		t.Errorf("ID = %q, want a fresh session", s.ID())
	}
}

func TestEngine_StopWithoutStart(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	if _, err := e.StopMonitoring(); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("got %v, want ErrNoActiveSession", err)
	}
}

func TestEngine_EmptyTopic(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	if _, err := e.StartMonitoring(context.Background(), StartOptions{Topic: "  "}); !errors.Is(err, ErrEmptyTopic) {
		t.Fatalf("got %v, want ErrEmptyTopic", err)
	}
}

func TestEngine_IdempotentTermination(t *testing.T) {
	e, clock := newTestEngine(t, nil)
	s := startQuadratics(t, e)

	clock.Advance(5 * time.Second)
	if _, err := s.Submit("Today we study the quadratic formula", 0.9); err != nil {
		t.Fatal(err)
	}

	first, err := e.StopMonitoring()
	if err != nil {
		t.Fatalf("first stop: %v", err)
	}

	clock.Advance(time.Minute)
	if _, err := e.StopMonitoring(); !errors.Is(err, ErrSessionTerminated) {
		t.Fatalf("second stop: got %v, want ErrSessionTerminated", err)
	}
	if _, err := s.Submit("The discriminant tells us the roots", 1); !errors.Is(err, ErrSessionTerminated) {
		t.Fatalf("submit after stop: got %v, want ErrSessionTerminated", err)
	}
	if err := s.Interim("the discriminant"); !errors.Is(err, ErrSessionTerminated) {
		t.Fatalf("interim after stop: got %v, want ErrSessionTerminated", err)
	}

	again, err := s.Report()
	if err != nil {
		t.Fatal(err)
	}
	if again.EndedAt != first.EndedAt || again.Grade != first.Grade || again.SegmentCount != first.SegmentCount {
		t.Errorf("report changed after second stop: %+v vs %+v", again, first)
	}

	// Mutating a returned copy must not leak into the stored report.
	first.Transcript[0].Text = "tampered"
	again, _ = s.Report()
	if again.Transcript[0].Text == "tampered" {
		t.Error("report copy aliases session state")
	}
}

func TestEngine_SubscribeReceivesLiveStatus(t *testing.T) {
	e, clock := newTestEngine(t, nil)
	sub := e.Subscribe(8)
	defer sub.Close()

	s := startQuadratics(t, e)
	clock.Advance(5 * time.Second)
	if _, err := s.Submit("Today we study the quadratic formula", 1); err != nil {
		t.Fatal(err)
	}

	ev := waitEvent(t, sub, EventLiveStatus)
	if ev.SessionID != s.ID() {
		t.Errorf("SessionID = %q, want %q", ev.SessionID, s.ID())
	}
	if !ev.Live.OnTopic || ev.Live.Seq != 0 {
		t.Errorf("live status = %+v", ev.Live)
	}
	if ev.Live.CumulativeScore != ev.Live.SegmentScore {
		t.Errorf("cumulative %v != first segment score %v", ev.Live.CumulativeScore, ev.Live.SegmentScore)
	}

	if _, err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	fin := waitEvent(t, sub, EventFinished)
	if fin.Report == nil || fin.Report.SessionID != s.ID() {
		t.Errorf("finished event = %+v", fin)
	}
}

func TestBus_DropsWhenFull(t *testing.T) {
	b := NewBus()
	sub := b.Subscribe(1)
	b.Publish(Event{Kind: EventNotice})
	b.Publish(Event{Kind: EventPreview})

	ev := <-sub.C
	if ev.Kind != EventNotice {
		t.Errorf("got %s, want the first event", ev.Kind)
	}
	select {
	case ev := <-sub.C:
		t.Errorf("unexpected event %s", ev.Kind)
	default:
	}

	sub.Close()
	if _, ok := <-sub.C; ok {
		t.Error("channel should be closed after Close")
	}
	b.Close()
}
