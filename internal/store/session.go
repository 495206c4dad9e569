package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/klauspost/compress/zstd"

	"github.com/abhisek/classwatch/internal/report"
)

// ErrSessionNotFound is returned by Get for an unknown session ID.
var ErrSessionNotFound = errors.New("session not found")

var (
	encoder, _ = zstd.NewWriter(nil)
	decoder, _ = zstd.NewReader(nil)
)

var summaryColumns = []string{
	"id", "sequence", "teacher_id", "subject", "topic", "mode",
	"grade", "score", "on_topic_pct", "started_at", "ended_at",
}

// sessionRepo stores reports as zstd-compressed JSON alongside the columns
// needed for listing and filtering.
type sessionRepo struct {
	drv *entsql.Driver
	seq *sequence
}

func (r *sessionRepo) Append(ctx context.Context, rep *report.Report) error {
	if rep == nil || rep.SessionID == "" {
		return errors.New("append session: report has no session ID")
	}
	payload, err := encodeReport(rep)
	if err != nil {
		return err
	}
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert("sessions").
		Columns(append(summaryColumns[:len(summaryColumns):len(summaryColumns)], "report")...).
		Values(
			rep.SessionID, seqNum, rep.TeacherID, rep.Subject, rep.Topic, rep.Mode,
			rep.Grade, rep.Score, rep.OnTopicPercentage,
			rep.StartedAt.UnixMilli(), rep.EndedAt.UnixMilli(), payload,
		).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := r.drv.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save session %s: %w", rep.SessionID, err)
	}
	return nil
}

func (r *sessionRepo) Recent(ctx context.Context, limit int) ([]*report.Report, error) {
	return r.reports(ctx, QueryOpts{Limit: limit})
}

func (r *sessionRepo) ByTeacher(ctx context.Context, teacherID string, limit int) ([]*report.Report, error) {
	return r.reports(ctx, QueryOpts{Limit: limit, TeacherID: teacherID})
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*report.Report, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select("report").
		From(entsql.Table("sessions")).
		Where(entsql.EQ("id", id)).
		Query()
	rows, err := r.drv.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrSessionNotFound
	}
	var payload []byte
	if err := rows.Scan(&payload); err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return decodeReport(payload)
}

func (r *sessionRepo) List(ctx context.Context, opts QueryOpts) ([]SessionSummary, error) {
	sel := r.selector(opts, summaryColumns...)
	query, args := sel.Query()
	rows, err := r.drv.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sessionRepo) Prune(ctx context.Context, keep int) error {
	if keep <= 0 {
		return nil
	}
	b := entsql.Dialect(dialect.SQLite)
	newest := b.Select("id").
		From(entsql.Table("sessions")).
		OrderBy(entsql.Desc("sequence")).
		Limit(keep)
	query, args := b.Delete("sessions").
		Where(entsql.Not(entsql.In("id", newest))).
		Query()
	if _, err := r.drv.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("prune sessions: %w", err)
	}
	return nil
}

func (r *sessionRepo) reports(ctx context.Context, opts QueryOpts) ([]*report.Report, error) {
	query, args := r.selector(opts, "report").Query()
	rows, err := r.drv.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []*report.Report
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		rep, err := decodeReport(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (r *sessionRepo) selector(opts QueryOpts, columns ...string) *entsql.Selector {
	sel := entsql.Dialect(dialect.SQLite).
		Select(columns...).
		From(entsql.Table("sessions")).
		OrderBy(entsql.Desc("sequence"))
	if opts.TeacherID != "" {
		sel.Where(entsql.EQ("teacher_id", opts.TeacherID))
	}
	applyOpts(sel, opts, "ended_at")
	return sel
}

func scanSummary(rows *sql.Rows) (SessionSummary, error) {
	var (
		s              SessionSummary
		started, ended int64
	)
	err := rows.Scan(
		&s.ID, &s.Sequence, &s.TeacherID, &s.Subject, &s.Topic, &s.Mode,
		&s.Grade, &s.Score, &s.OnTopicPct, &started, &ended,
	)
	if err != nil {
		return s, fmt.Errorf("scan session summary: %w", err)
	}
	s.StartedAt = time.UnixMilli(started)
	s.EndedAt = time.UnixMilli(ended)
	return s, nil
}

func encodeReport(rep *report.Report) ([]byte, error) {
	raw, err := json.Marshal(rep)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return encoder.EncodeAll(raw, nil), nil
}

func decodeReport(payload []byte) (*report.Report, error) {
	raw, err := decoder.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress report: %w", err)
	}
	var rep report.Report
	if err := json.Unmarshal(raw, &rep); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &rep, nil
}
