package remote

import "github.com/abhisek/classwatch/internal/llm"

// VerdictSchema defines the JSON schema for topic relevance responses.
var VerdictSchema = &llm.Schema{
	Name:        "topic-verdict",
	Description: "Whether classroom speech is about the expected lesson topic",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"isOnTopic": map[string]any{
				"type":        "boolean",
				"description": "True only if the speech directly discusses the expected topic",
			},
			"confidence": map[string]any{
				"type":        "number",
				"minimum":     0.0,
				"maximum":     1.0,
				"description": "Confidence in the judgment (0.0 to 1.0)",
			},
			"matchedConcepts": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Topic concepts mentioned in the speech",
			},
			"reason": map[string]any{
				"type":        "string",
				"description": "Brief one-sentence explanation",
			},
		},
		"required":             []any{"isOnTopic", "confidence", "matchedConcepts", "reason"},
		"additionalProperties": false,
	},
}
