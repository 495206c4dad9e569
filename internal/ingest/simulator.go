package ingest

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// DefaultSimulationInterval is the spacing of synthetic segments.
const DefaultSimulationInterval = 3 * time.Second

// Picker chooses the next phrase index in [0, n).
type Picker interface {
	Pick(n int) int
}

// SequentialPicker cycles through phrases in order. It is deterministic
// and meant for tests and demos.
type SequentialPicker struct {
	mu   sync.Mutex
	next int
}

func (p *SequentialPicker) Pick(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.next % n
	p.next++
	return i
}

// RandomPicker picks uniformly at random.
type RandomPicker struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomPicker returns a picker seeded from seed.
func NewRandomPicker(seed uint64) *RandomPicker {
	return &RandomPicker{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *RandomPicker) Pick(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rnd.IntN(n)
}

// SimulatorConfig controls synthetic segment generation.
type SimulatorConfig struct {
	Interval time.Duration
	Picker   Picker
}

// Simulator emits topic-flavored synthetic segments at a fixed interval.
// It stands in for a live transcriber when none is available.
type Simulator struct {
	phrases  []string
	interval time.Duration
	picker   Picker
}

// NewSimulator builds phrases for topic from its keywords.
func NewSimulator(topic string, keywords []string, cfg SimulatorConfig) *Simulator {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSimulationInterval
	}
	if cfg.Picker == nil {
		cfg.Picker = NewRandomPicker(uint64(time.Now().UnixNano()))
	}
	return &Simulator{
		phrases:  Phrases(topic, keywords),
		interval: cfg.Interval,
		picker:   cfg.Picker,
	}
}

// Phrases fills the simulation templates with topic and keywords.
func Phrases(topic string, keywords []string) []string {
	kw := func(i int) string {
		switch {
		case i < len(keywords):
			return keywords[i]
		case len(keywords) > 0:
			return keywords[0]
		}
		return "concept"
	}
	return []string{
		fmt.Sprintf("Today we'll learn about %s and understand the %s", topic, kw(0)),
		fmt.Sprintf("Let me explain the concept of %s and %s in detail", kw(0), kw(1)),
		fmt.Sprintf("For example, when we have a %s we can solve it using %s", kw(1), kw(2)),
		fmt.Sprintf("Can anyone tell me what happens when we apply %s?", kw(0)),
		fmt.Sprintf("This %s is very important because it relates to %s", kw(0), kw(3)),
		fmt.Sprintf("Let's look at another example of %s and %s", kw(1), kw(2)),
		fmt.Sprintf("Does everyone understand the %s so far?", kw(0)),
		fmt.Sprintf("The key point here is the %s which connects to %s", kw(2), kw(0)),
		fmt.Sprintf("In other words, we can say that %s equals %s", kw(0), kw(1)),
		fmt.Sprintf("Who can solve this %s problem using %s?", kw(0), kw(2)),
		fmt.Sprintf("Remember, %s is related to %s and %s", kw(0), kw(3), kw(1)),
		fmt.Sprintf("Let me show you %s step by step with %s", kw(0), kw(2)),
		fmt.Sprintf("Any questions about %s before we move on to %s?", kw(1), kw(3)),
		fmt.Sprintf("The %s formula helps us calculate %s efficiently", kw(0), kw(1)),
		fmt.Sprintf("Therefore, by understanding %s we master %s", kw(0), kw(2)),
	}
}

// Run emits one final segment per interval until ctx is done.
func (s *Simulator) Run(ctx context.Context, h Handler) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			h.OnFinalSegment(s.phrases[s.picker.Pick(len(s.phrases))], 1)
		}
	}
}
