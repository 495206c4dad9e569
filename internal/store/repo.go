package store

import (
	"context"
	"time"

	"github.com/abhisek/classwatch/internal/report"
)

// QueryOpts configures queries with filtering and pagination.
type QueryOpts struct {
	Limit     int       // max results (0 = unlimited)
	After     int64     // sequence > After
	Before    int64     // sequence < Before
	From      time.Time // timestamp >= From
	To        time.Time // timestamp <= To
	TeacherID string    // sessions only
	SessionID string    // LLM events only
	Failed    bool      // LLM events only: failed calls
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	SessionID    string // empty outside a monitoring session
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored LLM call.
type LLMRequestEvent struct {
	LLMRequestEventData
	ID        int
	Sequence  int64
	Timestamp time.Time
}

// LLMUsage aggregates calls for one purpose or model.
type LLMUsage struct {
	Purpose      string
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// EventRepo provides access to the LLM call log.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMEvent returns one event, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEvent, error)

	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)
}

// SessionSummary is the indexed part of a stored session.
type SessionSummary struct {
	ID         string
	Sequence   int64
	TeacherID  string
	Subject    string
	Topic      string
	Mode       string
	Grade      string
	Score      float64
	OnTopicPct float64
	StartedAt  time.Time
	EndedAt    time.Time
}

// SessionRepo stores final session reports.
type SessionRepo interface {
	Append(ctx context.Context, r *report.Report) error
	Recent(ctx context.Context, limit int) ([]*report.Report, error)
	ByTeacher(ctx context.Context, teacherID string, limit int) ([]*report.Report, error)
	Get(ctx context.Context, id string) (*report.Report, error)
	List(ctx context.Context, opts QueryOpts) ([]SessionSummary, error)

	// Prune deletes all but the keep most recent sessions.
	Prune(ctx context.Context, keep int) error
}
