package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/abhisek/classwatch/internal/metrics"
	"github.com/abhisek/classwatch/internal/store"
)

// NewProvider builds the configured provider. Calls pass through retry,
// then logging, then a per-attempt timeout:
//
//	caller → retry → logging → timeout → provider
//
// so every attempt is logged and bounded on its own. eventRepo may be nil.
func NewProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo, logger zerolog.Logger) (Provider, error) {
	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	if cfg.Timeout > 0 {
		base = &timeoutProvider{Provider: base, timeout: cfg.Timeout}
	}
	logged := WithLogging(base, eventRepo, logger)
	return WithRetry(logged, cfg.Retry, OnRetry(func(attempt int, wait time.Duration, err error) {
		metrics.LLMRetries.Inc()
		logger.Debug().
			Str("component", "llm").
			Int("attempt", attempt).
			Dur("wait", wait).
			Err(err).
			Msg("Retrying LLM request")
	})), nil
}

// timeoutProvider bounds each call to timeout.
type timeoutProvider struct {
	Provider
	timeout time.Duration
}

// An attempt that runs out of time while the caller's context is still
// live is reported as an outage, so RetryProvider tries again.
func (p *timeoutProvider) Generate(parent context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(parent, p.timeout)
	defer cancel()
	resp, err := p.Provider.Generate(ctx, req)
	if err != nil && parent.Err() == nil && ctx.Err() != nil {
		return nil, &ErrProviderUnavailable{Err: fmt.Errorf("no reply within %s: %v", p.timeout, err)}
	}
	return resp, err
}
