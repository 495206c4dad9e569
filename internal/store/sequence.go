package store

import (
	"context"
	"fmt"
	"sync"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// sequence numbers sessions and LLM events on one shared axis so the call
// log can be lined up against the sessions that caused it. The counter
// lives in the event_sequence table and survives restarts.
type sequence struct {
	mu  sync.Mutex
	drv *entsql.Driver
}

// Next returns the next number, starting at 1.
func (s *sequence) Next(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query, args := entsql.Dialect(dialect.SQLite).
		Update("event_sequence").
		Add("last", 1).
		Where(entsql.EQ("id", 1)).
		Returning("last").
		Query()
	rows, err := s.drv.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("next sequence: %w", err)
		}
		return 0, fmt.Errorf("next sequence: counter row missing")
	}
	var n int64
	if err := rows.Scan(&n); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return n, nil
}
