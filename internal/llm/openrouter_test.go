package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewOpenRouterProvider(t *testing.T) {
	if _, err := NewOpenRouterProvider(OpenRouterConfig{Model: "google/gemini-2.0-flash-001"}); err == nil {
		t.Fatal("expected error for empty API key")
	}

	p, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "sk-or-test", Model: "anthropic/claude-3-haiku"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// No alias mapping for vendor-prefixed IDs.
	if p.ModelID() != "anthropic/claude-3-haiku" {
		t.Errorf("model = %q", p.ModelID())
	}
}

func TestOpenRouterProvider_SendsAttribution(t *testing.T) {
	var title, auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title = r.Header.Get("X-Title")
		auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "gen-1",
			"object":  "chat.completion",
			"model":   "google/gemini-2.0-flash-001",
			"choices": []map[string]any{{"index": 0, "finish_reason": "stop", "message": map[string]any{"role": "assistant", "content": "on topic"}}},
			"usage":   map[string]any{"prompt_tokens": 20, "completion_tokens": 3, "total_tokens": 23},
		})
	}))
	t.Cleanup(server.Close)

	p, err := NewOpenRouterProvider(OpenRouterConfig{
		APIKey:  "sk-or-test",
		Model:   "google/gemini-2.0-flash-001",
		BaseURL: server.URL + "/api/v1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp, err := p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "leaves make sugar from light"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if title != "ClassWatch" {
		t.Errorf("X-Title = %q", title)
	}
	if auth != "Bearer sk-or-test" {
		t.Errorf("Authorization = %q", auth)
	}
	if resp.Usage.TotalTokens != 23 || resp.StopReason != "end" {
		t.Errorf("unexpected response: %+v", resp)
	}
}
