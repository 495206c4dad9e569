package remote

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/abhisek/classwatch/internal/llm"
)

func newTestClassifier(t *testing.T, responses ...llm.MockResponse) (*LLMClassifier, *llm.MockProvider) {
	t.Helper()
	mock := llm.NewMockProvider(responses...)
	c, err := NewLLMClassifier(mock, DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLLMClassifier: %v", err)
	}
	return c, mock
}

func TestLLMClassifier_Verdict(t *testing.T) {
	c, mock := newTestClassifier(t, llm.MockResponse{
		Content: json.RawMessage(`{"isOnTopic":false,"confidence":1.4,"matchedConcepts":[],"reason":"Talks about a cricket match."}`),
	})

	v, err := c.Classify(context.Background(), Request{
		Seqs:     []int{3},
		Text:     "did anyone watch the match",
		Topic:    "Quadratic Equations",
		Subject:  "mathematics",
		Keywords: []string{"quadratic", "discriminant"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.OnTopic {
		t.Error("expected off-topic verdict")
	}
	if v.Confidence != 1 {
		t.Errorf("confidence = %v, want clamped 1", v.Confidence)
	}
	if len(v.Seqs) != 1 || v.Seqs[0] != 3 {
		t.Errorf("seqs = %v, want [3]", v.Seqs)
	}

	call := mock.Calls[0]
	if call.Schema != VerdictSchema {
		t.Error("expected verdict schema on request")
	}
	msg := call.Messages[0].Content
	for _, want := range []string{"Quadratic Equations", "mathematics", "quadratic, discriminant", "did anyone watch the match"} {
		if !strings.Contains(msg, want) {
			t.Errorf("prompt missing %q:\n%s", want, msg)
		}
	}
}

func TestLLMClassifier_CacheByPrefixAndTopic(t *testing.T) {
	c, mock := newTestClassifier(t, llm.MockResponse{
		Content: json.RawMessage(`{"isOnTopic":true,"confidence":0.9,"matchedConcepts":["roots"],"reason":"ok"}`),
	})
	long := strings.Repeat("the roots of the quadratic ", 4)

	if _, err := c.Classify(context.Background(), Request{Seqs: []int{1}, Text: long + "first", Topic: "Quadratic Equations"}); err != nil {
		t.Fatalf("first call: %v", err)
	}
	v, err := c.Classify(context.Background(), Request{Seqs: []int{2}, Text: long + "second", Topic: "Quadratic Equations"})
	if err != nil {
		t.Fatalf("cached call: %v", err)
	}
	if !v.Cached || v.Seqs[0] != 2 {
		t.Errorf("got %+v, want cached verdict for seq 2", v)
	}
	if mock.CallCount() != 1 {
		t.Errorf("provider calls = %d, want 1", mock.CallCount())
	}

	// Same text, different topic is a miss.
	if _, err := c.Classify(context.Background(), Request{Text: long, Topic: "Trigonometry"}); err == nil {
		t.Error("expected provider error on cache miss with empty queue")
	}
}

func TestLLMClassifier_Malformed(t *testing.T) {
	c, _ := newTestClassifier(t,
		llm.MockResponse{Content: json.RawMessage(`not json`)},
		llm.MockResponse{Content: json.RawMessage(`{"reason":"no verdict"}`)},
	)
	for i := 0; i < 2; i++ {
		_, err := c.Classify(context.Background(), Request{Text: "some speech", Topic: "Photosynthesis"})
		if !errors.Is(err, ErrMalformedVerdict) {
			t.Errorf("call %d: got %v, want ErrMalformedVerdict", i, err)
		}
	}
}

func TestLLMClassifier_ProviderError(t *testing.T) {
	c, _ := newTestClassifier(t, llm.MockResponse{Err: &llm.ErrRateLimit{Err: errors.New("429")}})
	_, err := c.Classify(context.Background(), Request{Text: "x", Topic: "y"})
	var rl *llm.ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("got %v, want ErrRateLimit", err)
	}
}

func TestBuildVerdictMessage_CapsKeywords(t *testing.T) {
	kws := make([]string, 20)
	for i := range kws {
		kws[i] = "kw" + string(rune('a'+i))
	}
	msg, err := buildVerdictMessage(Request{Topic: "T", Subject: "S", Text: "t", Keywords: kws})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if strings.Contains(msg, "kwm") {
		t.Errorf("expected keywords capped at %d:\n%s", promptKeywords, msg)
	}
	if !strings.Contains(msg, "kwl") {
		t.Errorf("expected 12th keyword present:\n%s", msg)
	}
}

// ctxProvider records the labels each call carried.
type ctxProvider struct {
	purposes, sessions []string
}

func (p *ctxProvider) Generate(ctx context.Context, _ llm.Request) (*llm.Response, error) {
	p.purposes = append(p.purposes, llm.PurposeFrom(ctx))
	p.sessions = append(p.sessions, llm.SessionFrom(ctx))
	return &llm.Response{Content: json.RawMessage(`{"isOnTopic":true,"confidence":0.8,"matchedConcepts":[],"reason":"ok"}`)}, nil
}

func (p *ctxProvider) ModelID() string { return "ctx" }

func TestLLMClassifier_LabelsCalls(t *testing.T) {
	p := &ctxProvider{}
	c, err := NewLLMClassifier(p, DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLLMClassifier: %v", err)
	}
	ctx := context.Background()
	if _, err := c.Classify(ctx, Request{SessionID: "sess-9", Seqs: []int{1}, Text: "a leaf", Topic: "Photosynthesis"}); err != nil {
		t.Fatalf("single: %v", err)
	}
	if _, err := c.Classify(ctx, Request{SessionID: "sess-9", Seqs: []int{2, 3}, Text: "chlorophyll and light", Topic: "Photosynthesis"}); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if got := strings.Join(p.purposes, ","); got != "topic-relevance,topic-batch" {
		t.Errorf("purposes = %s", got)
	}
	for i, s := range p.sessions {
		if s != "sess-9" {
			t.Errorf("call %d session = %q, want sess-9", i, s)
		}
	}
}
