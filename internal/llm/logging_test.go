package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/abhisek/classwatch/internal/store"
)

type recordingRepo struct {
	events []store.LLMRequestEventData
	err    error
}

func (r *recordingRepo) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	r.events = append(r.events, data)
	return r.err
}
func (r *recordingRepo) QueryLLMEvents(context.Context, store.QueryOpts) ([]store.LLMRequestEvent, error) {
	return nil, nil
}
func (r *recordingRepo) GetLLMEvent(context.Context, int) (*store.LLMRequestEvent, error) {
	return nil, nil
}
func (r *recordingRepo) LLMUsageByPurpose(context.Context) ([]store.LLMUsage, error) {
	return nil, nil
}
func (r *recordingRepo) LLMUsageByModel(context.Context) ([]store.LLMUsage, error) {
	return nil, nil
}

func TestLogging_RecordsEvent(t *testing.T) {
	repo := &recordingRepo{}
	mock := NewMockProvider(MockResponse{
		Content: json.RawMessage(`{"isOnTopic":true}`),
		Usage:   Usage{InputTokens: 12, OutputTokens: 4},
	})
	p := WithLogging(mock, repo, zerolog.Nop())

	ctx := WithSession(WithPurpose(context.Background(), "topic-relevance"), "sess-1")
	req := Request{System: "be strict", Messages: []Message{{Role: RoleUser, Content: "segment"}}}
	if _, err := p.Generate(ctx, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.events) != 1 {
		t.Fatalf("got %d events, want 1", len(repo.events))
	}
	e := repo.events[0]
	if e.Purpose != "topic-relevance" {
		t.Errorf("purpose = %q, want %q", e.Purpose, "topic-relevance")
	}
	if e.SessionID != "sess-1" {
		t.Errorf("session = %q, want sess-1", e.SessionID)
	}
	if e.Provider != "mock" || e.Model != "mock" {
		t.Errorf("provider/model = %q/%q, want mock/mock", e.Provider, e.Model)
	}
	if !e.Success || e.InputTokens != 12 || e.OutputTokens != 4 {
		t.Errorf("unexpected event: %+v", e)
	}
	if e.ResponseBody != `{"isOnTopic":true}` {
		t.Errorf("response body = %q", e.ResponseBody)
	}
	if e.RequestBody == "" {
		t.Error("expected serialized request body")
	}
}

func TestLogging_FailureAndRepoErrorDoNotMaskResult(t *testing.T) {
	repo := &recordingRepo{err: errors.New("disk full")}
	mock := NewMockProvider(MockResponse{Err: &ErrRateLimit{Err: errors.New("429")}})
	p := WithLogging(mock, repo, zerolog.Nop())

	_, err := p.Generate(context.Background(), Request{})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("got %v, want ErrRateLimit", err)
	}
	if len(repo.events) != 1 || repo.events[0].Success {
		t.Fatalf("expected one failed event, got %+v", repo.events)
	}
	if repo.events[0].Purpose != "unknown" {
		t.Errorf("purpose = %q, want unknown", repo.events[0].Purpose)
	}
	if repo.events[0].SessionID != "" {
		t.Errorf("session = %q, want empty", repo.events[0].SessionID)
	}
}

func TestLogging_NilRepo(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)})
	p := WithLogging(mock, nil, zerolog.Nop())
	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLookupCost(t *testing.T) {
	c := LookupCost("gemini-2.0-flash")
	if c == nil {
		t.Fatal("expected pricing for gemini-2.0-flash")
	}
	if got := c.Cost(1_000_000, 1_000_000); got != 0.5 {
		t.Errorf("cost = %v, want 0.5", got)
	}
	if LookupCost("no-such-model") != nil {
		t.Error("expected nil for unknown model")
	}
}
