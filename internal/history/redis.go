package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/abhisek/classwatch/internal/report"
)

const (
	recentKey  = "classwatch:sessions"
	teacherKey = "classwatch:sessions:teacher:%s"
)

// RedisRepo keeps reports in capped Redis lists: one across all teachers
// and one per teacher.
type RedisRepo struct {
	client *redis.Client
	keep   int
}

// NewRedisRepo stores reports through client, keeping the newest keep
// entries per list. keep <= 0 selects DefaultKeep.
func NewRedisRepo(client *redis.Client, keep int) *RedisRepo {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &RedisRepo{client: client, keep: keep}
}

func (r *RedisRepo) Append(ctx context.Context, rep *report.Report) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	tk := fmt.Sprintf(teacherKey, teacherOf(rep))

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, recentKey, data)
		pipe.LTrim(ctx, recentKey, 0, int64(r.keep-1))
		pipe.LPush(ctx, tk, data)
		pipe.LTrim(ctx, tk, 0, int64(r.keep-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("append session %s: %w", rep.SessionID, err)
	}
	return nil
}

func (r *RedisRepo) Recent(ctx context.Context, limit int) ([]*report.Report, error) {
	return r.list(ctx, recentKey, limit)
}

func (r *RedisRepo) ByTeacher(ctx context.Context, teacherID string, limit int) ([]*report.Report, error) {
	return r.list(ctx, fmt.Sprintf(teacherKey, teacherID), limit)
}

func (r *RedisRepo) list(ctx context.Context, key string, limit int) ([]*report.Report, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	items, err := r.client.LRange(ctx, key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", key, err)
	}
	out := make([]*report.Report, 0, len(items))
	for _, item := range items {
		var rep report.Report
		if err := json.Unmarshal([]byte(item), &rep); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		out = append(out, &rep)
	}
	return out, nil
}

func teacherOf(rep *report.Report) string {
	if rep.TeacherID == "" {
		return UnassignedTeacher
	}
	return rep.TeacherID
}
