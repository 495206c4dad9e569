package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/abhisek/classwatch/internal/llm"
	"github.com/abhisek/classwatch/internal/metrics"
)

// cacheKeyPrefix is how many leading characters of the text identify a
// cached verdict.
const cacheKeyPrefix = 50

// Config holds configuration for the LLM classifier.
type Config struct {
	MaxTokens   int
	Temperature float64
	CacheSize   int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   200,
		Temperature: 0.1,
		CacheSize:   256,
	}
}

// LLMClassifier judges topic relevance with an LLM provider.
type LLMClassifier struct {
	provider llm.Provider
	cfg      Config
	cache    *lru.Cache[string, Verdict]
	logger   zerolog.Logger
}

// NewLLMClassifier creates an LLM-backed classifier.
func NewLLMClassifier(provider llm.Provider, cfg Config, logger zerolog.Logger) (*LLMClassifier, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = DefaultConfig().CacheSize
	}
	cache, err := lru.New[string, Verdict](size)
	if err != nil {
		return nil, fmt.Errorf("create verdict cache: %w", err)
	}
	return &LLMClassifier{
		provider: provider,
		cfg:      cfg,
		cache:    cache,
		logger:   logger.With().Str("component", "remote").Logger(),
	}, nil
}

// verdictOutput is the raw LLM response.
type verdictOutput struct {
	IsOnTopic       *bool    `json:"isOnTopic"`
	Confidence      *float64 `json:"confidence"`
	MatchedConcepts []string `json:"matchedConcepts"`
	Reason          string   `json:"reason"`
}

// Classify asks the LLM whether req.Text is about req.Topic.
func (c *LLMClassifier) Classify(ctx context.Context, req Request) (*Verdict, error) {
	key := cacheKey(req.Text, req.Topic)
	if v, ok := c.cache.Get(key); ok {
		metrics.RemoteCacheHits.Inc()
		v.Seqs = req.Seqs
		v.Cached = true
		return &v, nil
	}

	purpose := "topic-relevance"
	if len(req.Seqs) > 1 {
		purpose = "topic-batch"
	}
	ctx = llm.WithSession(llm.WithPurpose(ctx, purpose), req.SessionID)

	userMsg, err := buildVerdictMessage(req)
	if err != nil {
		return nil, fmt.Errorf("build verdict prompt: %w", err)
	}

	resp, err := c.provider.Generate(ctx, llm.Request{
		System: verdictSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: userMsg},
		},
		Schema:      VerdictSchema,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM topic check failed: %w", err)
	}

	var raw verdictOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}
	if raw.IsOnTopic == nil || raw.Confidence == nil {
		return nil, fmt.Errorf("%w: missing isOnTopic or confidence", ErrMalformedVerdict)
	}

	v := Verdict{
		OnTopic:         *raw.IsOnTopic,
		Confidence:      min(1, max(0, *raw.Confidence)),
		MatchedConcepts: raw.MatchedConcepts,
		Reason:          strings.TrimSpace(raw.Reason),
	}
	c.cache.Add(key, v)

	c.logger.Debug().
		Ints("seqs", req.Seqs).
		Bool("on_topic", v.OnTopic).
		Float64("confidence", v.Confidence).
		Msg("Remote verdict")

	v.Seqs = req.Seqs
	return &v, nil
}

func cacheKey(text, topic string) string {
	r := []rune(strings.ToLower(strings.TrimSpace(text)))
	if len(r) > cacheKeyPrefix {
		r = r[:cacheKeyPrefix]
	}
	return string(r) + "-" + strings.ToLower(topic)
}

const verdictSystemPrompt = `You are an educational content analyzer. You decide whether classroom speech is about the lesson topic the teacher is supposed to be teaching.

Rules:
- isOnTopic is true only if the speech directly discusses concepts of the expected topic.
- General conversation, greetings and off-topic discussion are not on-topic.
- Partially related content is on-topic with lower confidence.
- Be strict: casual talk is not on-topic.
- Speech may contain several utterances separated by " | "; judge them together.
- Keep the reason to one sentence.`

// promptKeywords caps how many topic keywords are listed in the prompt.
const promptKeywords = 12

var verdictUserTemplate = template.Must(template.New("verdict").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(`Expected topic: {{.Topic}}
Subject: {{.Subject}}
{{if .Keywords}}Key concepts: {{join .Keywords ", "}}
{{end}}
Speech: "{{.Text}}"`))

func buildVerdictMessage(req Request) (string, error) {
	if len(req.Keywords) > promptKeywords {
		req.Keywords = req.Keywords[:promptKeywords]
	}
	var buf bytes.Buffer
	if err := verdictUserTemplate.Execute(&buf, req); err != nil {
		return "", err
	}
	return buf.String(), nil
}
