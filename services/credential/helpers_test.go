package credential

import (
	"testing"
	"time"

	"ftc-platform/pkg/config"
	"ftc-platform/pkg/ratelimit"
	"ftc-platform/pkg/security"
	"ftc-platform/services/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc    *Service
	db     *gorm.DB
	client *MockTelegramClient
	redis  *miniredis.Miniredis
	cipher *security.Cipher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t, Models()...)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cipher, err := security.NewCipher("test-server-secret")
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Telegram.APIID = 12345
	cfg.Telegram.APIHash = "platform-hash"

	client := NewMockTelegramClient(gomock.NewController(t))
	svc := NewService(ServiceParams{
		DB:      db,
		Node:    testutil.NewNode(t),
		Cipher:  cipher,
		Client:  client,
		Limiter: ratelimit.NewMemory(ratelimit.DefaultMaxAttempts, ratelimit.DefaultWindow),
		Pending: NewPendingStore(rdb),
		Config:  cfg,
	})
	svc.now = func() time.Time { return testNow }

	return &fixture{svc: svc, db: db, client: client, redis: mr, cipher: cipher}
}

func (f *fixture) seedSession(t *testing.T, userID string, active bool, expiresAt time.Time) *TelegramSession {
	t.Helper()

	bundle, err := f.cipher.EncryptTelegramCredentials(security.TelegramCredentials{
		Session: "session-" + userID,
		APIHash: "platform-hash",
		APIID:   "12345",
	}, userID)
	require.NoError(t, err)

	rec := &TelegramSession{
		ID:        "s-" + userID,
		UserID:    userID,
		IsActive:  active,
		ExpiresAt: expiresAt,
	}
	rec.setBundle(bundle)
	require.NoError(t, f.db.Create(rec).Error)
	return rec
}

func (f *fixture) loadSession(t *testing.T, userID string) *TelegramSession {
	t.Helper()
	var rec TelegramSession
	require.NoError(t, f.db.Where("user_id = ?", userID).Take(&rec).Error)
	return &rec
}
