package history

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisRepo(t *testing.T, keep int) *RedisRepo {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRepo(client, keep)
}

func TestRedisRepo_AppendAndList(t *testing.T) {
	repo := setupRedisRepo(t, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		teacher := "ada"
		if i%2 == 1 {
			teacher = "bo"
		}
		require.NoError(t, repo.Append(ctx, rep(fmt.Sprintf("s%d", i), teacher, "mathematics", "fractions", "B", 70, i)))
	}

	recent, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 3, "capped at keep")
	assert.Equal(t, "s4", recent[0].SessionID)
	assert.Equal(t, "s2", recent[2].SessionID)

	limited, err := repo.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "s4", limited[0].SessionID)

	ada, err := repo.ByTeacher(ctx, "ada", 10)
	require.NoError(t, err)
	require.Len(t, ada, 3)
	for _, r := range ada {
		assert.Equal(t, "ada", r.TeacherID)
	}
	assert.Equal(t, 70.0, ada[0].OnTopicPercentage)
}

func TestRedisRepo_Unassigned(t *testing.T) {
	repo := setupRedisRepo(t, 0)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, rep("x", "", "science", "cells", "A", 80, 0)))
	got, err := repo.ByTeacher(ctx, UnassignedTeacher, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].SessionID)

	none, err := repo.ByTeacher(ctx, "nobody", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}
