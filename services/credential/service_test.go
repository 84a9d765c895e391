package credential

import (
	"context"
	"testing"
	"time"

	"ftc-platform/pkg/errutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionExpiry(t *testing.T) {
	exp := SessionExpiration(testNow)
	assert.Equal(t, testNow.Add(30*24*time.Hour), exp)

	assert.False(t, IsSessionExpired(exp, testNow))
	assert.False(t, IsSessionExpired(exp, exp))
	assert.True(t, IsSessionExpired(exp, exp.Add(time.Nanosecond)))
}

func TestCleanupExpiredSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedSession(t, "fresh", true, testNow.Add(time.Hour))
	f.seedSession(t, "boundary", true, testNow)
	f.seedSession(t, "expired", true, testNow.Add(-time.Minute))
	f.seedSession(t, "revoked", false, testNow.Add(24*time.Hour))

	preview, err := f.svc.CleanupExpiredSessions(ctx, true)
	require.NoError(t, err)
	assert.True(t, preview.DryRun)
	assert.EqualValues(t, 2, preview.Count)
	assert.ElementsMatch(t, []string{"s-expired", "s-revoked"}, preview.SessionIDs)

	var n int64
	require.NoError(t, f.db.Model(&TelegramSession{}).Count(&n).Error)
	assert.EqualValues(t, 4, n)

	res, err := f.svc.CleanupExpiredSessions(ctx, false)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Count)

	var left []string
	require.NoError(t, f.db.Model(&TelegramSession{}).Order("user_id").Pluck("user_id", &left).Error)
	assert.Equal(t, []string{"boundary", "fresh"}, left)

	again, err := f.svc.CleanupExpiredSessions(ctx, false)
	require.NoError(t, err)
	assert.EqualValues(t, 0, again.Count)
}

func TestRevokeUserSessions(t *testing.T) {
	f := newFixture(t)
	f.seedSession(t, "u1", true, testNow.Add(time.Hour))
	f.seedSession(t, "u2", true, testNow.Add(time.Hour))

	n, err := f.svc.RevokeUserSessions(context.Background(), "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	assert.False(t, f.loadSession(t, "u1").IsActive)
	assert.True(t, f.loadSession(t, "u2").IsActive)
}

func TestCheckAuthRateLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		res, err := f.svc.CheckAuthRateLimit(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 5-i, res.Remaining)
	}
	res, err := f.svc.CheckAuthRateLimit(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	other, err := f.svc.CheckAuthRateLimit(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestActiveSessionDeactivatesExpired(t *testing.T) {
	f := newFixture(t)
	f.seedSession(t, "u1", true, testNow.Add(-time.Second))

	_, err := f.svc.activeSession(context.Background(), "u1")
	assert.True(t, errutil.IsCode(err, errutil.StatusUnauthorized))
	assert.False(t, f.loadSession(t, "u1").IsActive)

	_, err = f.svc.activeSession(context.Background(), "nobody")
	assert.True(t, errutil.IsCode(err, errutil.StatusNotFound))
}
