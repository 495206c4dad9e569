package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/abhisek/classwatch/internal/metrics"
)

// Policy bounds how long a session keeps trying a failing remote service.
// Failures are counted per session, not per segment: after MaxAttempts
// consecutive failures the guard trips and stays tripped.
type Policy struct {
	MaxAttempts int
	// Backoff[i] is the pause after the (i+1)th consecutive failure. The
	// last entry is reused if there are fewer entries than attempts.
	Backoff []time.Duration
	Now     func() time.Time
}

// DefaultPolicy returns three attempts with escalating pauses.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff:     []time.Duration{time.Second, 2 * time.Second, 4 * time.Second},
	}
}

// Guarded wraps a Classifier with a connectivity policy.
type Guarded struct {
	inner  Classifier
	policy Policy
	logger zerolog.Logger

	mu       sync.Mutex
	failures int
	nextTry  time.Time
	tripped  bool
}

// WithPolicy wraps c with p.
func WithPolicy(c Classifier, p Policy, logger zerolog.Logger) *Guarded {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultPolicy().MaxAttempts
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &Guarded{
		inner:  c,
		policy: p,
		logger: logger.With().Str("component", "remote").Logger(),
	}
}

// Classify forwards to the wrapped classifier unless the guard has tripped
// or is backing off. A failure that exhausts the policy returns an error
// wrapping ErrDegraded.
func (g *Guarded) Classify(ctx context.Context, req Request) (*Verdict, error) {
	g.mu.Lock()
	if g.tripped {
		g.mu.Unlock()
		return nil, ErrDegraded
	}
	if g.policy.Now().Before(g.nextTry) {
		g.mu.Unlock()
		metrics.RemoteRequests.WithLabelValues("skipped").Inc()
		return nil, ErrBackingOff
	}
	g.mu.Unlock()

	v, err := g.inner.Classify(ctx, req)

	g.mu.Lock()
	defer g.mu.Unlock()

	if err == nil {
		g.failures = 0
		g.nextTry = time.Time{}
		metrics.RemoteRequests.WithLabelValues("ok").Inc()
		return v, nil
	}

	// A cancelled call says nothing about the service.
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil, err
	}

	g.failures++
	metrics.RemoteRequests.WithLabelValues("error").Inc()

	if g.failures >= g.policy.MaxAttempts {
		g.tripped = true
		metrics.RemoteDegraded.Set(1)
		g.logger.Warn().Err(err).Int("failures", g.failures).Msg("Remote classifier disabled for this session")
		return nil, fmt.Errorf("%w after %d consecutive failures: %v", ErrDegraded, g.failures, err)
	}

	wait := g.backoff(g.failures)
	g.nextTry = g.policy.Now().Add(wait)
	g.logger.Debug().Err(err).Int("failures", g.failures).Dur("backoff", wait).Msg("Remote classifier failed")
	return nil, err
}

// Degraded reports whether the guard has tripped.
func (g *Guarded) Degraded() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tripped
}

// Failures returns the current consecutive failure count.
func (g *Guarded) Failures() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failures
}

func (g *Guarded) backoff(failures int) time.Duration {
	if len(g.policy.Backoff) == 0 {
		return 0
	}
	i := failures - 1
	if i >= len(g.policy.Backoff) {
		i = len(g.policy.Backoff) - 1
	}
	return g.policy.Backoff[i]
}
