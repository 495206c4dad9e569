// Package live is the dashboard shown while a session is being monitored.
package live

import (
	"errors"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/classwatch/internal/monitor"
	"github.com/abhisek/classwatch/internal/report"
	"github.com/abhisek/classwatch/internal/router"
	"github.com/abhisek/classwatch/internal/screen"
	"github.com/abhisek/classwatch/internal/ui/components"
	"github.com/abhisek/classwatch/internal/ui/layout"
)

const (
	defaultFeedSize = 50
	maxNotices      = 3
	refreshInterval = time.Second
)

// Options wires the dashboard to a running session.
type Options struct {
	Session *monitor.Session
	Events  *monitor.Subscription

	// Stop ends the session and records it. It runs off the UI goroutine.
	Stop func() (*report.Report, error)

	// Next builds the screen that replaces the dashboard once the session
	// has ended.
	Next func(*report.Report) screen.Screen

	FeedSize int
}

type feedLine struct {
	Seq      int
	Text     string
	OnTopic  bool
	Decisive bool
	Score    float64
	Matched  []string
	Revised  bool
}

type previewLine struct {
	Text    string
	OnTopic bool
}

// LiveScreen renders live status, gauges and the segment feed.
type LiveScreen struct {
	opts Options

	snap    monitor.Snapshot
	feed    []feedLine
	notices []monitor.Notice
	preview *previewLine
	input   components.SegmentInput

	confirmStop bool
	stopping    bool
	closed      bool
	errMsg      string
}

var _ screen.Screen = (*LiveScreen)(nil)
var _ screen.KeyHintProvider = (*LiveScreen)(nil)
var _ screen.BadgeProvider = (*LiveScreen)(nil)

// New creates the dashboard.
func New(opts Options) *LiveScreen {
	if opts.FeedSize <= 0 {
		opts.FeedSize = defaultFeedSize
	}
	return &LiveScreen{
		opts:  opts,
		snap:  opts.Session.Snapshot(),
		input: components.NewSegmentInput("Type what the teacher says and press Enter...", 280),
	}
}

func (s *LiveScreen) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(s.opts.Events),
		refreshTick(),
		s.input.Init(),
	)
}

func (s *LiveScreen) Title() string {
	return s.snap.Topic
}

func (s *LiveScreen) Badge() string {
	switch {
	case s.stopping:
		return "■ STOPPING"
	case s.snap.Mode == monitor.ModeSimulation:
		return "◌ SIMULATED"
	default:
		return "● LIVE"
	}
}

func (s *LiveScreen) KeyHints() []layout.KeyHint {
	if s.confirmStop {
		return []layout.KeyHint{
			{Key: "Y", Description: "End session"},
			{Key: "N", Description: "Keep monitoring"},
		}
	}
	return []layout.KeyHint{
		{Key: "Enter", Description: "Add segment"},
		{Key: "Ctrl+S", Description: "End session"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (s *LiveScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		s.handleEvent(msg.Event)
		return s, waitForEvent(s.opts.Events)

	case subscriptionClosedMsg:
		s.closed = true
		return s, nil

	case refreshTickMsg:
		if s.stopping {
			return s, nil
		}
		s.snap = s.opts.Session.Snapshot()
		return s, refreshTick()

	case stoppedMsg:
		return s.handleStopped(msg)

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *LiveScreen) handleEvent(ev monitor.Event) {
	if ev.SessionID != "" && ev.SessionID != s.opts.Session.ID() {
		return
	}

	switch ev.Kind {
	case monitor.EventLiveStatus:
		if ev.Live == nil {
			return
		}
		s.feed = append(s.feed, feedLine{
			Seq:      ev.Live.Seq,
			Text:     ev.Live.Text,
			OnTopic:  ev.Live.OnTopic,
			Decisive: ev.Live.Decisive,
			Score:    ev.Live.SegmentScore,
			Matched:  ev.Live.MatchedKeywords,
		})
		if len(s.feed) > s.opts.FeedSize {
			s.feed = s.feed[len(s.feed)-s.opts.FeedSize:]
		}
		s.preview = nil
		s.snap = s.opts.Session.Snapshot()

	case monitor.EventAnalysisUpdate:
		if ev.Analysis != nil {
			s.snap = *ev.Analysis
		}

	case monitor.EventRevision:
		if ev.Revision == nil {
			return
		}
		for i := range s.feed {
			if s.feed[i].Seq == ev.Revision.Seq {
				s.feed[i].OnTopic = false
				s.feed[i].Revised = true
			}
		}
		s.snap = s.opts.Session.Snapshot()

	case monitor.EventPreview:
		if ev.Preview != nil && ev.Preview.Text != "" {
			s.preview = &previewLine{Text: ev.Preview.Text, OnTopic: ev.Preview.OnTopic}
		}

	case monitor.EventNotice:
		if ev.Notice == nil {
			return
		}
		s.notices = append(s.notices, *ev.Notice)
		if len(s.notices) > maxNotices {
			s.notices = s.notices[len(s.notices)-maxNotices:]
		}
		s.snap = s.opts.Session.Snapshot()
	}
}

func (s *LiveScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	if s.stopping {
		return s, nil
	}

	if s.confirmStop {
		switch msg.String() {
		case "y", "Y":
			s.confirmStop = false
			s.stopping = true
			return s, s.stop()
		case "n", "N", "esc":
			s.confirmStop = false
		}
		return s, nil
	}

	switch msg.String() {
	case "ctrl+s":
		s.confirmStop = true
		return s, nil

	case "enter":
		text := s.input.Value()
		if text == "" {
			return s, nil
		}
		seg, err := s.opts.Session.Submit(text, 1)
		if err != nil {
			s.errMsg = err.Error()
			return s, nil
		}
		s.errMsg = ""
		s.input.Submit(seg.OnTopic)
		return s, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	if text := s.input.Value(); text != "" {
		if err := s.opts.Session.Interim(text); err != nil && !errors.Is(err, monitor.ErrSessionTerminated) {
			s.errMsg = err.Error()
		}
	}
	return s, cmd
}

func (s *LiveScreen) handleStopped(msg stoppedMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		s.stopping = false
		s.errMsg = msg.Err.Error()
		return s, refreshTick()
	}
	if s.opts.Next == nil {
		return s, tea.Quit
	}
	next := s.opts.Next(msg.Report)
	return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
}

func (s *LiveScreen) stop() tea.Cmd {
	stop := s.opts.Stop
	if stop == nil {
		stop = s.opts.Session.Stop
	}
	return func() tea.Msg {
		rep, err := stop()
		return stoppedMsg{Report: rep, Err: err}
	}
}

func waitForEvent(sub *monitor.Subscription) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-sub.C
		if !ok {
			return subscriptionClosedMsg{}
		}
		return eventMsg{Event: ev}
	}
}

func refreshTick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshTickMsg(t)
	})
}
