package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func retryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     10 * time.Millisecond,
		Multiplier:  2.0,
	}
}

var okVerdict = MockResponse{Content: json.RawMessage(`{"isOnTopic":true}`)}

func TestRetry(t *testing.T) {
	down := MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("503")}}
	invalid := MockResponse{Err: &ErrInvalidResponse{Content: json.RawMessage(`nope`), Err: errors.New("not json")}}

	tests := []struct {
		name      string
		script    []MockResponse
		wantCalls int
		wantErr   bool
	}{
		{"first try", []MockResponse{okVerdict}, 1, false},
		{"outage then success", []MockResponse{down, okVerdict}, 2, false},
		{"rate limit honours retry-after", []MockResponse{{Err: &ErrRateLimit{RetryAfter: time.Millisecond}}, okVerdict}, 2, false},
		{"gives up after max attempts", []MockResponse{down, down, down, okVerdict}, 3, true},
		{"invalid reply retried once", []MockResponse{invalid, invalid, okVerdict}, 2, true},
		{"truncation not retried", []MockResponse{{Err: &ErrMaxTokensExceeded{}}, okVerdict}, 1, true},
		{"bad key not retried", []MockResponse{{Err: &ErrAuthentication{Status: 401, Err: errors.New("invalid x-api-key")}}, okVerdict}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(tt.script...)
			_, err := WithRetry(mock, retryConfig()).Generate(context.Background(), Request{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if mock.CallCount() != tt.wantCalls {
				t.Fatalf("calls = %d, want %d", mock.CallCount(), tt.wantCalls)
			}
		})
	}
}

func TestRetry_StopsWhenContextCancelled(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrProviderUnavailable{}}, okVerdict)
	cfg := retryConfig()
	cfg.InitialWait, cfg.MaxWait = time.Hour, time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	p := WithRetry(mock, cfg, OnRetry(func(int, time.Duration, error) { cancel() }))

	if _, err := p.Generate(ctx, Request{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("calls = %d, want 1", mock.CallCount())
	}
}

func TestRetry_OnRetryHook(t *testing.T) {
	down := MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("503")}}
	mock := NewMockProvider(down, down, okVerdict)
	var attempts []int
	p := WithRetry(mock, retryConfig(), OnRetry(func(attempt int, wait time.Duration, _ error) {
		if wait > 12*time.Millisecond {
			t.Errorf("wait %s exceeds MaxWait plus jitter", wait)
		}
		attempts = append(attempts, attempt)
	}))

	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Fatalf("got attempts %v, want [1 2]", attempts)
	}
	if p.ModelID() != "mock" {
		t.Errorf("ModelID = %q", p.ModelID())
	}
}
