package credential

import (
	"context"
	"errors"
	"time"

	"ftc-platform/pkg/config"
	"ftc-platform/pkg/errutil"
	"ftc-platform/pkg/ratelimit"
	"ftc-platform/pkg/repository"
	"ftc-platform/pkg/security"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	SessionTTL = 30 * 24 * time.Hour

	// RateLimitScope namespaces Telegram login attempts in the limiter.
	RateLimitScope = "telegram_auth"
)

type RateLimitResult = ratelimit.Result

// SessionExpiration is the expiry assigned to a session stored at now.
func SessionExpiration(now time.Time) time.Time {
	return now.Add(SessionTTL)
}

// IsSessionExpired reports whether now is strictly after expiresAt.
func IsSessionExpired(expiresAt, now time.Time) bool {
	return now.After(expiresAt)
}

type Service struct {
	db      *gorm.DB
	node    *snowflake.Node
	cipher  *security.Cipher
	client  TelegramClient
	limiter ratelimit.Limiter
	pending *PendingStore
	cfg     *config.Config
	now     func() time.Time

	session repository.Repository[TelegramSession]
	contact repository.Repository[Contact]
}

type ServiceParams struct {
	fx.In
	DB      *gorm.DB
	Node    *snowflake.Node
	Cipher  *security.Cipher
	Client  TelegramClient
	Limiter ratelimit.Limiter
	Pending *PendingStore
	Config  *config.Config
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:      p.DB,
		node:    p.Node,
		cipher:  p.Cipher,
		client:  p.Client,
		limiter: p.Limiter,
		pending: p.Pending,
		cfg:     p.Config,
		now:     time.Now,

		session: repository.ProvideStore[TelegramSession](p.DB),
		contact: repository.ProvideStore[Contact](p.DB),
	}
}

func logger(ctx context.Context) *zap.Logger {
	span := trace.SpanFromContext(ctx)
	return zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)
}

type CleanupResult struct {
	DryRun     bool     `json:"dryRun"`
	Count      int64    `json:"count"`
	SessionIDs []string `json:"sessionIds,omitempty"`
}

// CleanupExpiredSessions deletes every session that is expired or inactive.
// With dryRun the matching ids are returned and nothing is deleted.
func (s *Service) CleanupExpiredSessions(ctx context.Context, dryRun bool) (*CleanupResult, error) {
	log := logger(ctx).With(zap.Bool("dry_run", dryRun))
	now := s.now()

	var stale []TelegramSession
	err := s.db.WithContext(ctx).
		Select("id", "user_id", "is_active", "expires_at").
		Where("expires_at < ? OR is_active = ?", now, false).
		Find(&stale).Error
	if err != nil {
		log.Error("failed to find stale telegram sessions", zap.Error(err))
		return nil, errutil.Internal("failed to find stale sessions", err)
	}

	ids := make([]string, 0, len(stale))
	for _, rec := range stale {
		reason := "expired"
		if !rec.IsActive {
			reason = "inactive"
		}
		log.Info("telegram session cleanup",
			zap.String("user_hash", security.HashUserID(rec.UserID)),
			zap.String("reason", reason),
			zap.Time("expires_at", rec.ExpiresAt),
		)
		ids = append(ids, rec.ID)
	}

	if dryRun {
		return &CleanupResult{DryRun: true, Count: int64(len(ids)), SessionIDs: ids}, nil
	}
	if len(ids) == 0 {
		return &CleanupResult{}, nil
	}

	res := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&TelegramSession{})
	if res.Error != nil {
		log.Error("failed to delete stale telegram sessions", zap.Error(res.Error))
		return nil, errutil.Internal("failed to delete stale sessions", res.Error)
	}

	log.Info("telegram session cleanup finished", zap.Int64("deleted", res.RowsAffected))
	return &CleanupResult{Count: res.RowsAffected}, nil
}

// RevokeUserSessions marks every session of userID inactive.
func (s *Service) RevokeUserSessions(ctx context.Context, userID string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&TelegramSession{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Update("is_active", false)
	if res.Error != nil {
		return 0, errutil.Internal("failed to revoke sessions", res.Error)
	}

	logger(ctx).Info("telegram sessions revoked",
		zap.String("user_hash", security.HashUserID(userID)),
		zap.Int64("count", res.RowsAffected),
	)
	return res.RowsAffected, nil
}

// CheckAuthRateLimit records one login attempt for userID.
func (s *Service) CheckAuthRateLimit(ctx context.Context, userID string) (RateLimitResult, error) {
	res, err := s.limiter.Allow(ctx, RateLimitScope, userID)
	if err != nil {
		return RateLimitResult{}, errutil.Internal("failed to check rate limit", err)
	}
	return res, nil
}

func (s *Service) requireAttempt(ctx context.Context, userID string) error {
	res, err := s.CheckAuthRateLimit(ctx, userID)
	if err != nil {
		return err
	}
	if !res.Allowed {
		logger(ctx).Warn("telegram auth rate limited", zap.String("user_hash", security.HashUserID(userID)))
		return errutil.TooManyRequests("too many authentication attempts, try again after "+res.ResetAt.UTC().Format(time.RFC3339), nil)
	}
	return nil
}

// activeSession loads the user's session, deactivating it when expired.
func (s *Service) activeSession(ctx context.Context, userID string) (*TelegramSession, error) {
	sess, err := s.session.FindOne(ctx, &TelegramSession{UserID: userID})
	if err != nil {
		return nil, errutil.Internal("failed to load telegram session", err)
	}
	if sess == nil {
		return nil, errutil.NotFound("telegram session not found", nil)
	}
	if !sess.IsActive {
		return nil, errutil.Unauthorized("telegram session was revoked, please authenticate again", nil)
	}
	if IsSessionExpired(sess.ExpiresAt, s.now()) {
		if err := s.session.Update(ctx, sess.ID, map[string]any{"is_active": false}); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			logger(ctx).Error("failed to deactivate expired session", zap.Error(err))
		}
		return nil, errutil.Unauthorized("telegram session expired, please authenticate again", nil)
	}
	return sess, nil
}
