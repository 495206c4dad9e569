package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/classwatch/internal/report"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so we skip journal_mode here.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	for _, table := range []string{"sessions", "llm_events", "event_sequence"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Fatalf("table %s: %v", table, err)
		}
	}
}

func TestSequenceSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seq.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for want := int64(1); want <= 3; want++ {
		got, err := s.seq.Next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != want {
			t.Errorf("seq = %d, want %d", got, want)
		}
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if got, _ := s.seq.Next(ctx); got != 4 {
		t.Errorf("after reopen seq = %d, want 4", got)
	}
}

func testReport(id, teacher string, ended time.Time) *report.Report {
	return &report.Report{
		SessionID:         id,
		TeacherID:         teacher,
		Subject:           "mathematics",
		Topic:             "Quadratic Equations",
		Mode:              "live",
		StartedAt:         ended.Add(-10 * time.Minute),
		EndedAt:           ended,
		DurationSeconds:   600,
		OnTopicPercentage: 82.5,
		Score:             71,
		Grade:             "A",
		Status:            "Excellent",
		Strengths:         []string{"Excellent focus on the topic"},
		Transcript: []report.TranscriptEntry{
			{At: ended.Add(-time.Minute), Text: "the discriminant decides the roots", OnTopic: true, Decisive: true, Score: 84},
		},
	}
}

func TestSessionRepo_AppendGet(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()
	ctx := context.Background()

	ended := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.Append(ctx, testReport("s1", "t1", ended)))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "A", got.Grade)
	assert.Equal(t, 82.5, got.OnTopicPercentage)
	require.Len(t, got.Transcript, 1)
	assert.Equal(t, "the discriminant decides the roots", got.Transcript[0].Text)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionRepo_AppendReplaces(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()
	ctx := context.Background()

	r := testReport("s1", "t1", time.Now())
	require.NoError(t, repo.Append(ctx, r))
	r.Grade = "B"
	require.NoError(t, repo.Append(ctx, r))

	list, err := repo.List(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "B", list[0].Grade)
}

func TestSessionRepo_RecentAndByTeacher(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 6; i++ {
		teacher := "t1"
		if i%2 == 1 {
			teacher = "t2"
		}
		require.NoError(t, repo.Append(ctx, testReport(fmt.Sprintf("s%d", i), teacher, base.Add(time.Duration(i)*time.Minute))))
	}

	recent, err := repo.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "s5", recent[0].SessionID)
	assert.Equal(t, "s3", recent[2].SessionID)

	byT1, err := repo.ByTeacher(ctx, "t1", 0)
	require.NoError(t, err)
	require.Len(t, byT1, 3)
	for _, r := range byT1 {
		assert.Equal(t, "t1", r.TeacherID)
	}
	assert.Equal(t, "s4", byT1[0].SessionID)
}

func TestSessionRepo_Prune(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		require.NoError(t, repo.Append(ctx, testReport(fmt.Sprintf("s%d", i), "t1", time.Now())))
	}
	require.NoError(t, repo.Prune(ctx, 5))

	list, err := repo.List(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, list, 5)
	assert.Equal(t, "s6", list[0].ID)
	assert.Equal(t, "s2", list[4].ID)
}

func TestEventRepo_LLMEvents(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []LLMRequestEventData{
		{Provider: "gemini", Model: "gemini-2.0-flash", Purpose: "topic-relevance", SessionID: "s1", InputTokens: 100, OutputTokens: 20, LatencyMs: 300, Success: true},
		{Provider: "gemini", Model: "gemini-2.0-flash", Purpose: "topic-relevance", SessionID: "s1", InputTokens: 50, OutputTokens: 10, LatencyMs: 100, Success: false, ErrorMessage: "rate limited"},
		{Provider: "openai", Model: "gpt-4o-mini", Purpose: "topic-batch", SessionID: "s2", InputTokens: 10, OutputTokens: 5, LatencyMs: 50, Success: true, RequestBody: "[user]\nhi", ResponseBody: "{}"},
	}
	for _, e := range events {
		require.NoError(t, repo.AppendLLMRequest(ctx, e))
	}

	list, err := repo.QueryLLMEvents(ctx, QueryOpts{Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "topic-batch", list[0].Purpose)
	assert.False(t, list[1].Success)

	got, err := repo.GetLLMEvent(ctx, list[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "[user]\nhi", got.RequestBody)

	assert.Equal(t, "s2", got.SessionID)
	assert.Equal(t, "openai", got.Provider)

	forS1, err := repo.QueryLLMEvents(ctx, QueryOpts{SessionID: "s1"})
	require.NoError(t, err)
	assert.Len(t, forS1, 2)

	failed, err := repo.QueryLLMEvents(ctx, QueryOpts{Failed: true})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "rate limited", failed[0].ErrorMessage)

	missing, err := repo.GetLLMEvent(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	require.NoError(t, err)
	require.Len(t, byPurpose, 2)
	assert.Equal(t, "topic-batch", byPurpose[0].Purpose)
	assert.Equal(t, "topic-relevance", byPurpose[1].Purpose)
	assert.Equal(t, 2, byPurpose[1].Calls)
	assert.Equal(t, 150, byPurpose[1].InputTokens)
	assert.Equal(t, int64(200), byPurpose[1].AvgLatencyMs)

	byModel, err := repo.LLMUsageByModel(ctx)
	require.NoError(t, err)
	require.Len(t, byModel, 2)
	assert.Equal(t, "gemini-2.0-flash", byModel[0].Model)
}
