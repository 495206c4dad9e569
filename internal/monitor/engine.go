// Package monitor runs live topic-adherence sessions. An Engine owns at
// most one active Session; each finalized segment is classified locally,
// scored, counted and broadcast, while an optional remote classifier
// checks recent segments in the background.
package monitor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/abhisek/classwatch/internal/classify"
	"github.com/abhisek/classwatch/internal/corpus"
	"github.com/abhisek/classwatch/internal/metrics"
	"github.com/abhisek/classwatch/internal/remote"
	"github.com/abhisek/classwatch/internal/report"
	"github.com/abhisek/classwatch/internal/teaching"
)

// Mode says where a session's segments come from.
type Mode string

const (
	ModeLive       Mode = "live"
	ModeSimulation Mode = "simulation"
)

// Config tunes segment analysis and session aggregation.
type Config struct {
	// MinTokens is the shortest segment that gets a decisive verdict.
	MinTokens int
	// ReconcileWindow is how many of the most recent segments a late
	// remote verdict may still revise.
	ReconcileWindow int
	// WeakMatchThreshold: on-topic segments with fewer matched keywords
	// than this yield to a disagreeing remote verdict.
	WeakMatchThreshold int

	TickInterval    time.Duration
	InterimDebounce time.Duration
	// MaxSegmentGap caps the time credited to one segment, so a long
	// silence is not attributed to whatever is said next.
	MaxSegmentGap   time.Duration
	PacingMinWindow time.Duration
	OffTopicSample  int

	Teaching teaching.Config
	Grading  report.Grading
	Remote   remote.AdapterConfig
	Policy   remote.Policy
}

// DefaultConfig returns the standard engine tuning.
func DefaultConfig() Config {
	return Config{
		MinTokens:          classify.DefaultMinTokens,
		ReconcileWindow:    3,
		WeakMatchThreshold: 2,
		TickInterval:       5 * time.Second,
		InterimDebounce:    300 * time.Millisecond,
		MaxSegmentGap:      time.Minute,
		PacingMinWindow:    30 * time.Second,
		OffTopicSample:     10,
		Teaching:           teaching.DefaultConfig(),
		Grading:            report.DefaultGrading(),
		Remote:             remote.DefaultAdapterConfig(),
		Policy:             remote.DefaultPolicy(),
	}
}

// Deps are the engine's collaborators. Only Corpus is required.
type Deps struct {
	Corpus *corpus.Corpus
	// Remote is the optional semantic classifier. Nil runs local-only.
	Remote remote.Classifier
	Clock  Clock
	Logger zerolog.Logger
	// IDGen generates session IDs. Defaults to random UUIDs.
	IDGen func() string
}

// StartOptions describe a new session.
type StartOptions struct {
	Topic     string
	Subject   string
	TeacherID string
	Mode      Mode
}

// Engine creates sessions and enforces that at most one is active.
type Engine struct {
	deps   Deps
	cfg    Config
	local  *classify.Local
	bus    *Bus
	logger zerolog.Logger

	mu      sync.Mutex
	current *Session
}

// NewEngine creates an engine.
func NewEngine(deps Deps, cfg Config) *Engine {
	if deps.Corpus == nil {
		deps.Corpus = corpus.Default()
	}
	if deps.Clock == nil {
		deps.Clock = RealClock{}
	}
	if deps.IDGen == nil {
		deps.IDGen = func() string { return uuid.New().String() }
	}
	if cfg.ReconcileWindow <= 0 {
		cfg.ReconcileWindow = DefaultConfig().ReconcileWindow
	}
	if cfg.WeakMatchThreshold <= 0 {
		cfg.WeakMatchThreshold = DefaultConfig().WeakMatchThreshold
	}
	if cfg.Policy.Now == nil {
		cfg.Policy.Now = deps.Clock.Now
	}
	return &Engine{
		deps:   deps,
		cfg:    cfg,
		local:  classify.NewLocal(cfg.MinTokens),
		bus:    NewBus(),
		logger: deps.Logger.With().Str("component", "monitor").Logger(),
	}
}

// Subscribe registers a consumer for the events of every session this
// engine runs.
func (e *Engine) Subscribe(buffer int) *Subscription {
	return e.bus.Subscribe(buffer)
}

// StartMonitoring starts a session for opts.Topic. It fails with
// ErrSessionActive while another session is running.
func (e *Engine) StartMonitoring(ctx context.Context, opts StartOptions) (*Session, error) {
	if strings.TrimSpace(opts.Topic) == "" {
		return nil, ErrEmptyTopic
	}
	if opts.Mode == "" {
		opts.Mode = ModeLive
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current != nil && !e.current.Terminated() {
		return nil, ErrSessionActive
	}

	topic := e.deps.Corpus.Lookup(opts.Subject, opts.Topic)
	s := newSession(ctx, sessionParams{
		id:       e.deps.IDGen(),
		opts:     opts,
		keywords: topic.Keywords,
		offTopic: e.deps.Corpus.OffTopic(),
		cfg:      e.cfg,
		local:    e.local,
		clock:    e.deps.Clock,
		bus:      e.bus,
		logger:   e.logger,
	})
	if e.deps.Remote != nil {
		s.attachRemote(e.deps.Remote)
	}
	s.start()
	e.current = s

	metrics.SessionsActive.Inc()
	e.logger.Info().
		Str("session", s.ID()).
		Str("topic", opts.Topic).
		Str("subject", opts.Subject).
		Int("keywords", len(topic.Keywords)).
		Bool("remote", e.deps.Remote != nil).
		Msg("Monitoring started")
	return s, nil
}

// StopMonitoring terminates the current session and returns its report.
// Stopping twice returns ErrSessionTerminated; stopping before any
// session was started returns ErrNoActiveSession.
func (e *Engine) StopMonitoring() (*report.Report, error) {
	e.mu.Lock()
	s := e.current
	e.mu.Unlock()

	if s == nil {
		return nil, ErrNoActiveSession
	}
	return s.Stop()
}

// Active returns the running session, or nil.
func (e *Engine) Active() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil || e.current.Terminated() {
		return nil
	}
	return e.current
}

// Close stops the active session, if any, and closes all subscriptions.
func (e *Engine) Close() {
	if s := e.Active(); s != nil {
		if _, err := s.Stop(); err != nil {
			e.logger.Debug().Err(err).Msg("Stop on close")
		}
	}
	e.bus.Close()
}
