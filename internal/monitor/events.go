package monitor

import (
	"sync"
	"time"

	"github.com/abhisek/classwatch/internal/metrics"
	"github.com/abhisek/classwatch/internal/report"
)

// EventKind identifies the payload carried by an Event.
type EventKind string

const (
	EventLiveStatus     EventKind = "live_status"
	EventAnalysisUpdate EventKind = "analysis_update"
	EventRevision       EventKind = "revision"
	EventPreview        EventKind = "preview"
	EventNotice         EventKind = "notice"
	EventFinished       EventKind = "finished"
)

// Event is published to subscribers. Exactly one payload field is set,
// matching Kind. Payloads are copies and never alias session state.
type Event struct {
	Kind      EventKind `json:"kind"`
	SessionID string    `json:"sessionId"`
	At        time.Time `json:"at"`

	Live     *LiveStatus    `json:"live,omitempty"`
	Analysis *Snapshot      `json:"analysis,omitempty"`
	Revision *Revision      `json:"revision,omitempty"`
	Preview  *Preview       `json:"preview,omitempty"`
	Notice   *Notice        `json:"notice,omitempty"`
	Report   *report.Report `json:"report,omitempty"`
}

// LiveStatus is emitted once per finalized segment.
type LiveStatus struct {
	Seq             int      `json:"seq"`
	Text            string   `json:"text"`
	OnTopic         bool     `json:"isOnTopic"`
	Decisive        bool     `json:"decisive"`
	MatchedKeywords []string `json:"matchedKeywords"`
	Confidence      float64  `json:"confidence"`
	Reason          string   `json:"reason"`
	SegmentScore    float64  `json:"segmentScore"`
	// CumulativeScore is the mean score of all decisive segments so far.
	CumulativeScore   float64 `json:"cumulativeScore"`
	OnTopicPercentage float64 `json:"onTopicPercentage"`
}

// Revision reports a segment downgraded by a late remote verdict.
type Revision struct {
	Seq               int     `json:"seq"`
	Reason            string  `json:"reason"`
	Seconds           float64 `json:"seconds"`
	OnTopicPercentage float64 `json:"onTopicPercentage"`
}

// Preview is a provisional verdict for interim text. It is never counted.
type Preview struct {
	Text            string   `json:"text"`
	OnTopic         bool     `json:"isOnTopic"`
	Decisive        bool     `json:"decisive"`
	MatchedKeywords []string `json:"matchedKeywords"`
	Reason          string   `json:"reason"`
}

// NoticeKind classifies non-fatal conditions surfaced to consumers.
type NoticeKind string

const (
	NoticeRemoteDegraded NoticeKind = "remote_degraded"
	NoticeIngestFailed   NoticeKind = "ingest_failed"
	NoticeSimulation     NoticeKind = "simulation"
	NoticeInfo           NoticeKind = "info"
)

// Notice is a non-fatal condition such as degraded remote classification
// or a switch to simulated ingestion.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// Subscription receives events until it is closed.
type Subscription struct {
	C <-chan Event

	ch  chan Event
	bus *Bus
}

// Close unsubscribes and closes C.
func (s *Subscription) Close() {
	s.bus.remove(s)
}

// Bus fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event.
type Bus struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a subscriber with the given channel buffer.
func (b *Bus) Subscribe(buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	sub := &Subscription{C: ch, ch: ch, bus: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Publish delivers ev to every subscriber with room for it.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			metrics.EventsDropped.Inc()
		}
	}
}

// Close closes every subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		close(sub.ch)
		delete(b.subs, sub)
	}
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.ch)
}
