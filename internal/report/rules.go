package report

import (
	"fmt"
	"math"
	"time"
)

// engagementWindow is how long a session must run before the question and
// example counts are judged.
const engagementWindow = 2 * time.Minute

type textRule struct {
	when func(Inputs) bool
	text string
}

type suggestionRule struct {
	when func(Inputs) bool
	make func(Inputs) Suggestion
}

func longEnough(in Inputs) bool { return in.Duration >= engagementWindow }

var strengthRules = []textRule{
	{func(in Inputs) bool { return in.OnTopicPct >= 80 }, "Excellent focus on the topic"},
	{func(in Inputs) bool { return in.QuestionsAsked >= 5 }, "Great student engagement through questions"},
	{func(in Inputs) bool { return in.ExamplesGiven >= 3 }, "Good use of examples"},
	{func(in Inputs) bool { return in.Metrics.Pacing >= 80 }, "Appropriate teaching pace"},
	{func(in Inputs) bool { return in.Metrics.Clarity >= 80 }, "Clear explanations"},
}

var improvementRules = []textRule{
	{func(in Inputs) bool { return in.OnTopicPct < 60 }, "Stay more focused on the lesson topic"},
	{func(in Inputs) bool { return longEnough(in) && in.QuestionsAsked < 2 }, "Ask more questions to check understanding"},
	{func(in Inputs) bool { return longEnough(in) && in.ExamplesGiven < 2 }, "Include more practical examples"},
	{func(in Inputs) bool { return in.Metrics.Pacing < 65 }, "Adjust speaking pace"},
	{func(in Inputs) bool { return in.Metrics.Clarity < 65 }, "Connect ideas more explicitly"},
}

var suggestionRules = []suggestionRule{
	{
		when: func(in Inputs) bool { return in.OnTopicPct < 60 },
		make: func(in Inputs) Suggestion {
			return Suggestion{
				Type:     "content",
				Priority: "high",
				Message:  fmt.Sprintf("Focus more on %s. Only %.0f%% of content was on-topic.", topicName(in), math.Round(in.OnTopicPct)),
				Action:   "Review lesson plan and stick to key concepts",
			}
		},
	},
	{
		when: func(in Inputs) bool { return longEnough(in) && in.QuestionsAsked < 2 },
		make: func(Inputs) Suggestion {
			return Suggestion{
				Type:     "engagement",
				Priority: "medium",
				Message:  "Ask more questions to engage students",
				Action:   "Include 1-2 questions every 5 minutes",
			}
		},
	},
	{
		when: func(in Inputs) bool { return longEnough(in) && in.ExamplesGiven < 2 },
		make: func(Inputs) Suggestion {
			return Suggestion{
				Type:     "clarity",
				Priority: "medium",
				Message:  "Use more examples to illustrate concepts",
				Action:   "Prepare 2-3 real-world examples for each concept",
			}
		},
	},
	{
		when: func(in Inputs) bool { return in.WordsPerMinute > 160 },
		make: func(Inputs) Suggestion {
			return Suggestion{
				Type:     "pacing",
				Priority: "high",
				Message:  "Speaking pace is too fast",
				Action:   "Slow down and pause after important points",
			}
		},
	},
	{
		when: func(in Inputs) bool { return longEnough(in) && in.WordsPerMinute > 0 && in.WordsPerMinute < 100 },
		make: func(Inputs) Suggestion {
			return Suggestion{
				Type:     "pacing",
				Priority: "low",
				Message:  "Speaking pace is slow",
				Action:   "Keep momentum between points and shorten long pauses",
			}
		},
	},
	{
		when: func(in Inputs) bool { return in.Metrics.Clarity < 65 },
		make: func(Inputs) Suggestion {
			return Suggestion{
				Type:     "clarity",
				Priority: "high",
				Message:  "Use connecting words to improve clarity",
				Action:   `Use words like "therefore", "because", "in other words"`,
			}
		},
	},
}

// Strengths lists what went well. It never returns an empty list.
func Strengths(in Inputs) []string {
	out := applyText(strengthRules, in)
	if len(out) == 0 {
		return []string{"Keep up the good work!"}
	}
	return out
}

// Improvements lists what should change. It may be empty.
func Improvements(in Inputs) []string {
	return applyText(improvementRules, in)
}

// Suggestions returns the actionable recommendations for in.
func Suggestions(in Inputs) []Suggestion {
	out := []Suggestion{}
	for _, r := range suggestionRules {
		if r.when(in) {
			out = append(out, r.make(in))
		}
	}
	return out
}

func applyText(rules []textRule, in Inputs) []string {
	out := []string{}
	for _, r := range rules {
		if r.when(in) {
			out = append(out, r.text)
		}
	}
	return out
}

func topicName(in Inputs) string {
	if in.Topic == "" {
		return "the lesson topic"
	}
	return in.Topic
}
