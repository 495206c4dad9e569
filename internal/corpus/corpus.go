package corpus

import (
	"sort"
	"strings"
	"sync"
)

// Topic is one curriculum topic and the keywords that mark speech as
// being about it. Multi-word keywords are phrases.
type Topic struct {
	Subject  string   `toml:"subject" json:"subject"`
	Name     string   `toml:"name" json:"name"`
	Keywords []string `toml:"keywords" json:"keywords"`
}

// Corpus maps (subject, topic) to keyword sets and carries the off-topic
// phrase denylist. Seed topics and custom topics are kept in separate
// layers; custom topics shadow seed topics with the same key.
type Corpus struct {
	mu       sync.RWMutex
	base     map[string]map[string]Topic
	custom   map[string]map[string]Topic
	view     map[string]map[string]Topic
	offTopic []string
}

// New creates an empty corpus with the given off-topic denylist.
func New(offTopic []string) *Corpus {
	c := &Corpus{
		base:     make(map[string]map[string]Topic),
		custom:   make(map[string]map[string]Topic),
		offTopic: normalizeKeywords(offTopic),
	}
	c.rebuild()
	return c
}

// Default returns a corpus seeded with the built-in curriculum and the
// default off-topic denylist.
func Default() *Corpus {
	c := New(DefaultOffTopic)
	c.mu.Lock()
	for _, t := range seedTopics {
		put(c.base, normalizeTopicEntry(t))
	}
	c.rebuild()
	c.mu.Unlock()
	return c
}

// Register adds or replaces a seed topic.
func (c *Corpus) Register(t Topic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	put(c.base, normalizeTopicEntry(t))
	c.rebuild()
}

// SetCustom replaces the whole custom layer. Topics dropped from the list
// disappear from lookups; seed topics they shadowed become visible again.
func (c *Corpus) SetCustom(topics []Topic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.custom = make(map[string]map[string]Topic)
	for _, t := range topics {
		put(c.custom, normalizeTopicEntry(t))
	}
	c.rebuild()
}

// OffTopic returns a copy of the denylist.
func (c *Corpus) OffTopic() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.offTopic...)
}

// Subjects returns all subject keys in sorted order.
func (c *Corpus) Subjects() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.view)
}

// Topics returns the topics of a subject in sorted order.
func (c *Corpus) Topics(subject string) []Topic {
	c.mu.RLock()
	defer c.mu.RUnlock()
	topics := c.view[NormalizeSubject(subject)]
	out := make([]Topic, 0, len(topics))
	for _, name := range sortedKeys(topics) {
		out = append(out, topics[name].clone())
	}
	return out
}

// Lookup resolves the keyword set for a (subject, topic) pair.
//
// Resolution order: exact topic under the subject, then a topic whose name
// contains (or is contained in) the requested one, then every keyword the
// subject knows. An unknown subject searches all subjects. When nothing
// matches, keywords are derived from the words of the topic name.
func (c *Corpus) Lookup(subject, topic string) Topic {
	subj := NormalizeSubject(subject)
	name := normalizeTopic(topic)

	c.mu.RLock()
	defer c.mu.RUnlock()

	if topics, ok := c.view[subj]; ok {
		if t, ok := matchTopic(topics, name); ok {
			return t.clone()
		}
		return Topic{Subject: subj, Name: name, Keywords: unionKeywords(topics)}
	}

	for _, s := range sortedKeys(c.view) {
		if t, ok := matchTopic(c.view[s], name); ok {
			return t.clone()
		}
	}

	return Topic{Subject: subj, Name: name, Keywords: deriveKeywords(name)}
}

// NormalizeSubject lowercases a subject and joins its words with '_'.
func NormalizeSubject(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "_")
}

func normalizeTopic(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func (t Topic) clone() Topic {
	t.Keywords = append([]string(nil), t.Keywords...)
	return t
}

func (c *Corpus) rebuild() {
	view := make(map[string]map[string]Topic, len(c.base))
	for _, layer := range []map[string]map[string]Topic{c.base, c.custom} {
		for _, topics := range layer {
			for _, t := range topics {
				put(view, t)
			}
		}
	}
	c.view = view
}

func put(m map[string]map[string]Topic, t Topic) {
	if m[t.Subject] == nil {
		m[t.Subject] = make(map[string]Topic)
	}
	m[t.Subject][t.Name] = t
}

func normalizeTopicEntry(t Topic) Topic {
	return Topic{
		Subject:  NormalizeSubject(t.Subject),
		Name:     normalizeTopic(t.Name),
		Keywords: normalizeKeywords(t.Keywords),
	}
}

// normalizeKeywords lowercases, collapses whitespace and drops duplicates
// while keeping first-seen order.
func normalizeKeywords(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.Join(strings.Fields(strings.ToLower(k)), " ")
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

func matchTopic(topics map[string]Topic, name string) (Topic, bool) {
	if name == "" {
		return Topic{}, false
	}
	if t, ok := topics[name]; ok {
		return t, true
	}
	for _, key := range sortedKeys(topics) {
		if strings.Contains(name, key) || strings.Contains(key, name) {
			return topics[key], true
		}
	}
	return Topic{}, false
}

func unionKeywords(topics map[string]Topic) []string {
	var all []string
	for _, key := range sortedKeys(topics) {
		all = append(all, topics[key].Keywords...)
	}
	return normalizeKeywords(all)
}

func deriveKeywords(name string) []string {
	var out []string
	for _, w := range strings.Fields(name) {
		if len(w) > 3 {
			out = append(out, w)
		}
	}
	return normalizeKeywords(out)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
