package credential

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ftc-platform/pkg/rediskey"
	"ftc-platform/pkg/security"

	"github.com/redis/go-redis/v9"
)

const PendingTTL = 10 * time.Minute

type AuthState string

const (
	StateNone             AuthState = "none"
	StateAwaitingPhone    AuthState = "awaiting_phone"
	StateCodeSent         AuthState = "code_sent"
	StatePasswordRequired AuthState = "password_required"
	StateAuthenticated    AuthState = "authenticated"
	StateExpired          AuthState = "expired"
	StateRevoked          AuthState = "revoked"
)

// pendingAuth is an unfinished login. Credentials, including the
// unauthorized session, are kept encrypted.
type pendingAuth struct {
	State         AuthState                `json:"state"`
	Phone         string                   `json:"phone,omitempty"`
	PhoneCodeHash string                   `json:"phoneCodeHash,omitempty"`
	Bundle        security.EncryptedBundle `json:"bundle"`
	StartedAt     time.Time                `json:"startedAt"`
}

type PendingStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPendingStore(rdb *redis.Client) *PendingStore {
	return &PendingStore{rdb: rdb, ttl: PendingTTL}
}

// Load returns nil when no login is in progress.
func (p *PendingStore) Load(ctx context.Context, userID string) (*pendingAuth, error) {
	raw, err := p.rdb.Get(ctx, rediskey.BuildTelegramAuthKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out pendingAuth
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Save stores state and restarts its TTL.
func (p *PendingStore) Save(ctx context.Context, userID string, state *pendingAuth) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return p.rdb.Set(ctx, rediskey.BuildTelegramAuthKey(userID), raw, p.ttl).Err()
}

func (p *PendingStore) Delete(ctx context.Context, userID string) error {
	return p.rdb.Del(ctx, rediskey.BuildTelegramAuthKey(userID)).Err()
}
