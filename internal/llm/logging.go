package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/abhisek/classwatch/internal/metrics"
	"github.com/abhisek/classwatch/internal/store"
)

// LoggingProvider records each call in the call log, the process log and
// the request metrics.
type LoggingProvider struct {
	inner     Provider
	name      string
	eventRepo store.EventRepo
	logger    zerolog.Logger
}

// WithLogging wraps a Provider with event logging. repo may be nil, in
// which case calls are only logged and counted.
func WithLogging(p Provider, repo store.EventRepo, logger zerolog.Logger) Provider {
	return &LoggingProvider{
		inner:     p,
		name:      providerName(p),
		eventRepo: repo,
		logger:    logger.With().Str("component", "llm").Logger(),
	}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	purpose := PurposeFrom(ctx)

	resp, err := l.inner.Generate(ctx, req)
	latency := time.Since(start)

	data := store.LLMRequestEventData{
		Provider:    l.name,
		Model:       l.inner.ModelID(),
		Purpose:     purpose,
		SessionID:   SessionFrom(ctx),
		LatencyMs:   latency.Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}

	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		data.Model = resp.Model
		data.ResponseBody = string(resp.Content)
	}

	outcome := "ok"
	if err != nil {
		data.ErrorMessage = err.Error()
		outcome = "error"
	}
	metrics.LLMRequests.WithLabelValues(data.Model, purpose, outcome).Inc()
	metrics.LLMLatency.WithLabelValues(data.Model).Observe(latency.Seconds())

	l.logger.Debug().
		Str("provider", data.Provider).
		Str("model", data.Model).
		Str("purpose", purpose).
		Str("session", data.SessionID).
		Int64("latency_ms", data.LatencyMs).
		Int("input_tokens", data.InputTokens).
		Int("output_tokens", data.OutputTokens).
		Err(err).
		Msg("LLM request")

	// Don't fail the request if the call log write fails.
	if l.eventRepo != nil {
		if logErr := l.eventRepo.AppendLLMRequest(ctx, data); logErr != nil {
			l.logger.Warn().Err(logErr).Msg("Failed to record LLM request event")
		}
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

func providerName(p Provider) string {
	if t, ok := p.(*timeoutProvider); ok {
		p = t.Provider
	}
	switch p.(type) {
	case *AnthropicProvider:
		return "anthropic"
	case *OpenRouterProvider:
		return "openrouter"
	case *OpenAIProvider:
		return "openai"
	case *GeminiProvider:
		return "gemini"
	case *MockProvider:
		return "mock"
	default:
		return "unknown"
	}
}

// serializeRequest builds a readable representation of the LLM request.
func serializeRequest(req Request) string {
	var b strings.Builder

	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}

	for _, m := range req.Messages {
		b.WriteString(fmt.Sprintf("[%s]\n", m.Role))
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}

	if req.Schema != nil {
		schemaDef, err := json.Marshal(req.Schema.Definition)
		if err == nil {
			b.WriteString(fmt.Sprintf("[schema: %s]\n", req.Schema.Name))
			b.WriteString(string(schemaDef))
			b.WriteString("\n")
		}
	}

	return b.String()
}
