package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var Module = fx.Module("health", fx.Provide(ProvideHealth))

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

type Dependency struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type Health struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Deps    []Dependency `json:"deps,omitempty"`
}

type HealthService interface {
	Liveness(c *gin.Context)
	Readiness(c *gin.Context)
}

type health struct {
	db    *gorm.DB
	redis *redis.Client
}

type HealthParams struct {
	fx.In
	DB    *gorm.DB      `optional:"true"`
	Redis *redis.Client `optional:"true"`
}

func ProvideHealth(p HealthParams) HealthService {
	return &health{db: p.DB, redis: p.Redis}
}

func (h *health) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, &Health{Status: statusHealthy, Message: "OK"})
}

// Readiness pings every configured dependency concurrently.
func (h *health) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	var checks []func() Dependency
	if h.db != nil {
		checks = append(checks, func() Dependency {
			return check(h.db.Name(), func() error {
				sqlDB, err := h.db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			})
		})
	}
	if h.redis != nil {
		checks = append(checks, func() Dependency {
			return check("redis", func() error {
				return h.redis.Ping(ctx).Err()
			})
		})
	}

	out := &Health{Status: statusHealthy, Message: "OK", Deps: make([]Dependency, len(checks))}
	var g errgroup.Group
	for i, run := range checks {
		g.Go(func() error {
			out.Deps[i] = run()
			return nil
		})
	}
	_ = g.Wait()

	code := http.StatusOK
	for _, d := range out.Deps {
		if d.Status != statusHealthy {
			out.Status = statusUnhealthy
			out.Message = "dependency unavailable"
			code = http.StatusServiceUnavailable
		}
	}
	c.JSON(code, out)
}

func check(name string, ping func() error) Dependency {
	dep := Dependency{Name: name, Status: statusHealthy, Message: "OK"}
	if err := ping(); err != nil {
		dep.Status = statusUnhealthy
		dep.Message = err.Error()
	}
	return dep
}
