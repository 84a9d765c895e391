package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestMemory_FixedWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(5, time.Hour)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := m.Allow(ctx, "auth", "u1")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "attempt %d", i+1)
		assert.Equal(t, 4-i, res.Remaining)
		assert.Equal(t, now.Add(time.Hour), res.ResetAt)
	}
	res, _ := m.Allow(ctx, "auth", "u1")
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	other, _ := m.Allow(ctx, "auth", "u2")
	assert.True(t, other.Allowed)

	now = now.Add(time.Hour)
	res, _ = m.Allow(ctx, "auth", "u1")
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.Remaining)
}

func TestMemory_SweepAndReset(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(5, time.Hour)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = m.Allow(ctx, "auth", "u1")
	_, _ = m.Allow(ctx, "auth", "u2")
	assert.Equal(t, 0, m.Sweep())

	require.NoError(t, m.Reset(ctx, "auth", "u2"))
	assert.Equal(t, 1, m.Len())

	now = now.Add(61 * time.Minute)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 0, m.Len())
}

func TestMemory_Stop(t *testing.T) {
	m := NewMemory(5, time.Hour)
	done := make(chan struct{})
	go func() {
		m.Run(time.Millisecond)
		close(done)
	}()
	m.Stop()
	m.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestRedis_FixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := NewRedis(rdb, 5, time.Hour)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := r.Allow(ctx, "auth", "u1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 4-i, res.Remaining)
	}
	res, err := r.Allow(ctx, "auth", "u1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.WithinDuration(t, time.Now().Add(time.Hour), res.ResetAt, time.Minute)

	ttl := mr.TTL("ratelimit:auth:u1")
	assert.True(t, ttl > 59*time.Minute && ttl <= time.Hour, "ttl=%s", ttl)

	mr.FastForward(time.Hour)
	res, err = r.Allow(ctx, "auth", "u1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	require.NoError(t, r.Reset(ctx, "auth", "u1"))
	assert.False(t, mr.Exists("ratelimit:auth:u1"))
}

func TestFallback_UsesMemoryWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	l := &fallback{primary: NewRedis(rdb, 1, time.Hour), secondary: NewMemory(1, time.Hour)}
	mr.Close()

	res, err := l.Allow(context.Background(), "auth", "u1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Allow(context.Background(), "auth", "u1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}
