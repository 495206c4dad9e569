package classify

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	// DefaultMinTokens is the smallest segment that gets a decisive verdict.
	// Anything shorter is filler and stays neutral.
	DefaultMinTokens = 4

	PhraseWeight = 2
	WordWeight   = 1

	// OnTopicWeight is the match weight a segment needs to be on-topic.
	OnTopicWeight = 2

	// fullConfidenceWeight is the match weight at which confidence saturates.
	fullConfidenceWeight = 5
)

// Verdict is the result of classifying one segment.
type Verdict struct {
	OnTopic bool
	// Decisive is false for segments too short to judge. Such segments are
	// neither on-topic nor counted against the teacher.
	Decisive   bool
	Confidence float64
	Weight     int
	Matched    []string
	Reason     string
	// Vetoed names the denylist phrase that forced an off-topic verdict.
	Vetoed string
}

// Local is the synchronous keyword classifier.
type Local struct {
	minTokens int
}

// NewLocal creates a classifier. minTokens <= 0 selects DefaultMinTokens.
func NewLocal(minTokens int) *Local {
	if minTokens <= 0 {
		minTokens = DefaultMinTokens
	}
	return &Local{minTokens: minTokens}
}

// MinTokens returns the decisive-length threshold.
func (l *Local) MinTokens() int {
	return l.minTokens
}

// Classify judges text against a topic's keywords and the off-topic
// denylist. Phrases match by containment in the normalized text; single
// words need an exact token. A denylist hit vetoes the segment unless the
// phrase is itself one of the topic keywords.
func (l *Local) Classify(text string, keywords, offTopic []string) Verdict {
	tokens := Tokenize(text)
	if len(tokens) < l.minTokens {
		return Verdict{
			Reason: fmt.Sprintf("too short to classify (%d words)", len(tokens)),
		}
	}

	doc := newDocument(tokens)

	weight := 0
	var matched []string
	topical := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		kw = normalize(kw)
		if kw == "" || topical[kw] {
			continue
		}
		topical[kw] = true
		if w := doc.match(kw); w > 0 {
			weight += w
			matched = append(matched, kw)
		}
	}

	v := Verdict{
		Decisive:   true,
		Weight:     weight,
		Matched:    matched,
		Confidence: confidence(weight),
	}

	for _, phrase := range offTopic {
		phrase = normalize(phrase)
		if phrase == "" || topical[phrase] {
			continue
		}
		if doc.match(phrase) > 0 {
			v.Vetoed = phrase
			v.Reason = fmt.Sprintf("off-topic conversation detected (%q)", phrase)
			return v
		}
	}

	switch {
	case weight >= OnTopicWeight:
		v.OnTopic = true
		v.Reason = fmt.Sprintf("found %d topic keyword(s): %s", len(matched), strings.Join(head(matched, 3), ", "))
	case weight == 0:
		v.Reason = "no topic-specific keywords detected"
	default:
		v.Reason = fmt.Sprintf("only %d keyword(s) found, need more topic focus", len(matched))
	}
	return v
}

// Tokenize lowercases text and splits it into word tokens. Punctuation is
// dropped; apostrophes inside words are kept.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func confidence(weight int) float64 {
	c := float64(weight) / fullConfidenceWeight
	if c > 1 {
		return 1
	}
	return c
}

func normalize(s string) string {
	return strings.Join(Tokenize(s), " ")
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// document is a tokenized segment prepared for keyword matching.
type document struct {
	tokens map[string]bool
	padded string
}

func newDocument(tokens []string) document {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return document{
		tokens: set,
		padded: " " + strings.Join(tokens, " ") + " ",
	}
}

// match returns the weight contributed by kw: PhraseWeight for a phrase
// found in the text, WordWeight for a single-word token hit, 0 otherwise.
func (d document) match(kw string) int {
	if strings.Contains(kw, " ") {
		if strings.Contains(d.padded, " "+kw+" ") {
			return PhraseWeight
		}
		return 0
	}
	if d.tokens[kw] {
		return WordWeight
	}
	return 0
}
