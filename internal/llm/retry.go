package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryProvider retries transient failures with exponential backoff and
// ±20% jitter. A rate limit with a Retry-After hint waits exactly that long.
type RetryProvider struct {
	inner   Provider
	config  RetryConfig
	onRetry func(attempt int, wait time.Duration, err error)
}

type RetryOption func(*RetryProvider)

// OnRetry registers fn to be called before each backoff sleep.
func OnRetry(fn func(attempt int, wait time.Duration, err error)) RetryOption {
	return func(r *RetryProvider) { r.onRetry = fn }
}

func WithRetry(p Provider, cfg RetryConfig, opts ...RetryOption) Provider {
	r := &RetryProvider{inner: p, config: cfg}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RetryProvider) ModelID() string { return r.inner.ModelID() }

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	var (
		err         error
		invalidSeen bool
	)
	attempts := max(r.config.MaxAttempts, 1)
	for attempt := 1; attempt <= attempts; attempt++ {
		var resp *Response
		resp, err = r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		if attempt == attempts || !retryable(err, &invalidSeen) {
			return nil, err
		}

		wait := r.backoff(attempt, err)
		if r.onRetry != nil {
			r.onRetry(attempt, wait, err)
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	return nil, err
}

// retryable reports whether err may clear up on its own. A reply that
// failed schema validation gets one more try; a model that misreads the
// format twice will keep doing so.
func retryable(err error, invalidSeen *bool) bool {
	var (
		auth   *ErrAuthentication
		maxTok *ErrMaxTokensExceeded
		inv    *ErrInvalidResponse
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.As(err, &auth), errors.As(err, &maxTok):
		return false
	case errors.As(err, &inv):
		if *invalidSeen {
			return false
		}
		*invalidSeen = true
		return true
	default:
		// Rate limits, outages and network errors.
		return true
	}
}

// backoff is the wait after the given 1-based attempt failed.
func (r *RetryProvider) backoff(attempt int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}
	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt-1))
	wait = min(wait, float64(r.config.MaxWait))
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	return time.Duration(max(wait, 0))
}
