package classify

// Markers records the teaching patterns found in a segment.
type Markers struct {
	Question bool
	Example  bool
	Clarity  bool
}

var (
	questionMarkers = []string{
		"what", "why", "how", "when", "where", "who", "which",
		"can anyone", "does anyone", "does everyone", "any questions",
		"do you understand", "is that clear",
	}
	exampleMarkers = []string{
		"for example", "for instance", "example", "instance", "such as",
		"consider", "suppose", "imagine", "let's say", "let us say",
	}
	clarityMarkers = []string{
		"therefore", "because", "thus", "hence", "in other words",
		"simply put", "that means", "this means", "step by step", "to summarize",
	}
)

// DetectMarkers finds question, example and clarity patterns in text. A
// literal '?' also counts as a question.
func DetectMarkers(text string) Markers {
	tokens := Tokenize(text)
	doc := newDocument(tokens)
	m := Markers{
		Question: containsAny(doc, questionMarkers),
		Example:  containsAny(doc, exampleMarkers),
		Clarity:  containsAny(doc, clarityMarkers),
	}
	for _, r := range text {
		if r == '?' {
			m.Question = true
			break
		}
	}
	return m
}

func containsAny(doc document, markers []string) bool {
	for _, m := range markers {
		if doc.match(normalize(m)) > 0 {
			return true
		}
	}
	return false
}
