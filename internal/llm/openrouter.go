package llm

import (
	"fmt"
	"net/http"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider reaches many hosted models through OpenRouter's
// OpenAI-compatible endpoint. Model IDs are vendor-prefixed, for example
// "google/gemini-2.0-flash-001", and passed through unchanged.
type OpenRouterProvider struct {
	*OpenAIProvider
}

func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	client := &http.Client{Transport: attributionTransport{base: http.DefaultTransport}}
	return &OpenRouterProvider{newOpenAICompatible(cfg.APIKey, baseURL, cfg.Model, client)}, nil
}

// attributionTransport names the app to OpenRouter so calls show up under
// it in the OpenRouter dashboard.
type attributionTransport struct {
	base http.RoundTripper
}

func (t attributionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("X-Title", "ClassWatch")
	req.Header.Set("HTTP-Referer", "https://github.com/abhisek/classwatch")
	return t.base.RoundTrip(req)
}
