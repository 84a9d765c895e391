package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ftc-platform/pkg/config"
	"ftc-platform/pkg/rediskey"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 5
	DefaultWindow      = time.Hour
	SweepInterval      = 5 * time.Minute
)

var Module = fx.Module("ratelimit", fx.Provide(New))

// Result describes the window after an attempt was recorded.
type Result struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remainingAttempts"`
	ResetAt   time.Time `json:"resetTime"`
}

func result(count, max int, resetAt time.Time) Result {
	return Result{
		Allowed:   count <= max,
		Remaining: clamp(max - count),
		ResetAt:   resetAt,
	}
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// Limiter is a fixed-window attempt counter keyed by scope and subject.
type Limiter interface {
	// Allow records one attempt and reports whether it is within the limit.
	Allow(ctx context.Context, scope, subject string) (Result, error)
	Reset(ctx context.Context, scope, subject string) error
}

type Params struct {
	fx.In
	Lc     fx.Lifecycle
	Config *config.Config
	Redis  *redis.Client `optional:"true"`
}

// New picks the redis limiter when configured, falling back to memory when
// redis is unavailable at call time.
func New(p Params) Limiter {
	max, window := p.Config.RateLimit.MaxAttempts, p.Config.RateLimit.Window
	if max <= 0 {
		max = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultWindow
	}

	mem := NewMemory(max, window)
	p.Lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go mem.Run(SweepInterval)
			return nil
		},
		OnStop: func(context.Context) error {
			mem.Stop()
			return nil
		},
	})

	if p.Config.RateLimit.Backend == "memory" || p.Redis == nil {
		zap.L().Info("rate limiter using in-memory backend")
		return mem
	}
	return &fallback{primary: NewRedis(p.Redis, max, window), secondary: mem}
}

// incrWindow counts an attempt; only the first attempt of a window sets the TTL.
var incrWindow = redis.NewScript(`
local c = redis.call('INCR', KEYS[1])
if c == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {c, redis.call('PTTL', KEYS[1])}
`)

type Redis struct {
	rdb    *redis.Client
	max    int
	window time.Duration
	now    func() time.Time
}

func NewRedis(rdb *redis.Client, max int, window time.Duration) *Redis {
	return &Redis{rdb: rdb, max: max, window: window, now: time.Now}
}

func (r *Redis) Allow(ctx context.Context, scope, subject string) (Result, error) {
	key := rediskey.BuildRateLimitKey(scope, subject)

	vals, err := incrWindow.Run(ctx, r.rdb, []string{key}, r.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, err
	}
	if len(vals) != 2 {
		return Result{}, fmt.Errorf("ratelimit: unexpected script reply %v", vals)
	}

	ttl := time.Duration(vals[1]) * time.Millisecond
	if ttl < 0 {
		ttl = r.window
	}
	return result(int(vals[0]), r.max, r.now().Add(ttl)), nil
}

func (r *Redis) Reset(ctx context.Context, scope, subject string) error {
	return r.rdb.Del(ctx, rediskey.BuildRateLimitKey(scope, subject)).Err()
}

type entry struct {
	count   int
	resetAt time.Time
}

type Memory struct {
	mu      sync.Mutex
	entries map[string]*entry
	max     int
	window  time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

func NewMemory(max int, window time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]*entry),
		max:     max,
		window:  window,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
}

func (m *Memory) Allow(_ context.Context, scope, subject string) (Result, error) {
	key := rediskey.BuildRateLimitKey(scope, subject)
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &entry{resetAt: now.Add(m.window)}
		m.entries[key] = e
	}
	// rejected attempts are not counted past max+1
	if e.count <= m.max {
		e.count++
	}
	return result(e.count, m.max, e.resetAt), nil
}

func (m *Memory) Reset(_ context.Context, scope, subject string) error {
	m.mu.Lock()
	delete(m.entries, rediskey.BuildRateLimitKey(scope, subject))
	m.mu.Unlock()
	return nil
}

// Sweep drops expired windows and returns how many were removed.
func (m *Memory) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, e := range m.entries {
		if !now.Before(e.resetAt) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) Run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				zap.L().Debug("rate limit sweep", zap.Int("removed", n))
			}
		case <-m.stop:
			return
		}
	}
}

func (m *Memory) Stop() {
	m.once.Do(func() { close(m.stop) })
}

type fallback struct {
	primary   Limiter
	secondary Limiter
}

func (f *fallback) Allow(ctx context.Context, scope, subject string) (Result, error) {
	res, err := f.primary.Allow(ctx, scope, subject)
	if err == nil {
		return res, nil
	}
	zap.L().Warn("redis rate limiter unavailable, using memory", zap.Error(err))
	return f.secondary.Allow(ctx, scope, subject)
}

func (f *fallback) Reset(ctx context.Context, scope, subject string) error {
	_ = f.secondary.Reset(ctx, scope, subject)
	return f.primary.Reset(ctx, scope, subject)
}
