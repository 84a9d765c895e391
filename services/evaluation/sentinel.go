package evaluation

import (
	"context"
	"strings"
	"sync"

	"ftc-platform/pkg/config"
	"ftc-platform/services/user"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const sentinelName = "AI Reviewer"

// UserStore is the subset of the user service the sentinel needs.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	EnsureByEmail(ctx context.Context, email string, defaults user.User) (*user.User, error)
}

// Sentinel is the well-known reviewer account that authors AI evaluations.
// Creation is deduplicated in process by singleflight and across processes
// by the unique email index.
type Sentinel struct {
	users UserStore
	email string

	group  singleflight.Group
	mu     sync.RWMutex
	cached *user.User
}

func NewSentinel(users *user.Service, cfg *config.Config) *Sentinel {
	return newSentinel(users, cfg.AIReviewerEmail())
}

func newSentinel(users UserStore, email string) *Sentinel {
	return &Sentinel{users: users, email: strings.ToLower(strings.TrimSpace(email))}
}

func (s *Sentinel) Email() string { return s.email }

// IsAI reports whether reviewerEmail belongs to the sentinel.
func (s *Sentinel) IsAI(reviewerEmail string) bool {
	return strings.EqualFold(strings.TrimSpace(reviewerEmail), s.email)
}

// Resolve returns the sentinel, creating it on first use.
func (s *Sentinel) Resolve(ctx context.Context) (*user.User, error) {
	if u := s.load(); u != nil {
		return u, nil
	}

	v, err, _ := s.group.Do(s.email, func() (any, error) {
		if u := s.load(); u != nil {
			return u, nil
		}
		u, err := s.users.EnsureByEmail(ctx, s.email, user.User{Name: sentinelName, Role: user.RoleReviewer})
		if err != nil {
			return nil, err
		}
		zap.L().Info("ai reviewer resolved", zap.String("reviewer_id", u.ID))
		s.store(u)
		return u, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*user.User), nil
}

// Lookup returns the sentinel without creating it; nil when absent.
func (s *Sentinel) Lookup(ctx context.Context) (*user.User, error) {
	if u := s.load(); u != nil {
		return u, nil
	}
	u, err := s.users.FindByEmail(ctx, s.email)
	if err != nil || u == nil {
		return nil, err
	}
	s.store(u)
	return u, nil
}

func (s *Sentinel) load() *user.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cached
}

func (s *Sentinel) store(u *user.User) {
	s.mu.Lock()
	s.cached = u
	s.mu.Unlock()
}
