// Package publish delivers final session reports to downstream consumers.
package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhisek/classwatch/internal/history"
	"github.com/abhisek/classwatch/internal/report"
)

// Sink receives final reports.
type Sink interface {
	Publish(ctx context.Context, r *report.Report) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, r *report.Report) error

func (f SinkFunc) Publish(ctx context.Context, r *report.Report) error { return f(ctx, r) }

// Fanout publishes to every sink and joins their errors. One failing sink
// does not stop the others.
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, r *report.Report) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HistorySink appends reports to a history repository.
type HistorySink struct {
	Repo history.Repo
}

func (h HistorySink) Publish(ctx context.Context, r *report.Report) error {
	if err := h.Repo.Append(ctx, r); err != nil {
		return fmt.Errorf("save session history: %w", err)
	}
	return nil
}
