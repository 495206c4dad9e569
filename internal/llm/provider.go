// Package llm is a thin client layer over the hosted model APIs used by the
// remote topic classifier. Every provider answers a Request with JSON that
// has already been checked against the request's schema.
package llm

import (
	"context"
	"encoding/json"
)

// Provider sends one prompt to a model.
type Provider interface {
	// Generate returns the model's reply. With req.Schema set the reply is
	// a JSON value that validates against it, or an *ErrInvalidResponse.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID is the model requests are sent to.
	ModelID() string
}

// Request is a single-turn prompt; the classifier never holds a
// conversation, so Messages is normally one user message.
type Request struct {
	System   string
	Messages []Message

	// Schema switches the provider to its native structured output mode.
	// Without it Content carries the reply text unchecked.
	Schema *Schema

	MaxTokens int
	// Temperature in [0, 1]. Zero leaves the provider default.
	Temperature float64
}

type Message struct {
	Role    Role
	Content string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a JSON Schema the reply must satisfy. Name is kebab-case, for
// example "topic-verdict"; providers that need a name for the format use it.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Response is a model reply.
type Response struct {
	Content json.RawMessage
	Usage   Usage
	// Model is the model that actually served the request, which may
	// differ from ModelID when the provider resolves aliases.
	Model string
	// StopReason is "end" or "max_tokens".
	StopReason string
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

const (
	stopEnd       = "end"
	stopMaxTokens = "max_tokens"
)

// finish turns the raw reply text into a Response. A schema reply cut off
// by the token limit is reported as *ErrMaxTokensExceeded rather than as a
// validation failure, since retrying with the same limit cannot help.
func finish(req Request, text string, usage Usage, model, stop string) (*Response, error) {
	content := json.RawMessage(text)
	if req.Schema != nil {
		content = extractJSON(text)
		if stop == stopMaxTokens && !json.Valid(content) {
			return nil, &ErrMaxTokensExceeded{Content: content}
		}
		if err := validateResponse(req.Schema, content); err != nil {
			return nil, err
		}
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}
	return &Response{Content: content, Usage: usage, Model: model, StopReason: stop}, nil
}

// resolveModel maps a short alias to a provider model ID. Unknown names
// are taken as model IDs.
func resolveModel(name string, aliases map[string]string) string {
	if id, ok := aliases[name]; ok {
		return id
	}
	return name
}
