package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newLockService(t *testing.T) ImportLockService {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewImportLockService(client, time.Minute, testLogger())
}

func TestImportLockSerializesPerTeacher(t *testing.T) {
	svc := newLockService(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, svc.Acquire(ctx, "teacher-1", now))

	err := svc.Acquire(ctx, "teacher-1", now.Add(time.Second))
	require.ErrorIs(t, err, ErrImportInProgress)

	// A different teacher is unaffected.
	require.NoError(t, svc.Acquire(ctx, "teacher-2", now))

	svc.Release(ctx, "teacher-1")
	require.NoError(t, svc.Acquire(ctx, "teacher-1", now.Add(time.Second)))
}

func TestImportLockRejectsStaleSnapshot(t *testing.T) {
	svc := newLockService(t)
	ctx := context.Background()
	fetched := time.Now()

	require.NoError(t, svc.Acquire(ctx, "teacher-1", fetched))
	svc.Commit(ctx, "teacher-1", fetched)
	svc.Release(ctx, "teacher-1")

	// Same or older fetch time must be fenced out.
	require.ErrorIs(t, svc.Acquire(ctx, "teacher-1", fetched), ErrStaleSnapshot)
	require.ErrorIs(t, svc.Acquire(ctx, "teacher-1", fetched.Add(-time.Minute)), ErrStaleSnapshot)

	require.NoError(t, svc.Acquire(ctx, "teacher-1", fetched.Add(time.Minute)))
}

func TestImportLockNilClientIsNoOp(t *testing.T) {
	svc := NewImportLockService(nil, time.Minute, testLogger())
	ctx := context.Background()

	require.NoError(t, svc.Acquire(ctx, "teacher-1", time.Now()))
	require.NoError(t, svc.Acquire(ctx, "teacher-1", time.Now()))
	svc.Commit(ctx, "teacher-1", time.Now())
	svc.Release(ctx, "teacher-1")
}
