package server

import (
	"ftc-platform/pkg/health"
	"ftc-platform/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// Route is implemented by every service handler that mounts endpoints.
type Route interface {
	Register(r gin.IRouter)
}

// AsRoute annotates a handler constructor so its result joins the routes group.
func AsRoute(f any) any {
	return fx.Annotate(f, fx.As(new(Route)), fx.ResultTags(`group:"routes"`))
}

type RouterParams struct {
	fx.In
	Health health.HealthService `optional:"true"`
	Routes []Route              `group:"routes"`
}

func NewRouter(p RouterParams) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(), middleware.Error())

	if p.Health != nil {
		r.GET("/healthz", p.Health.Liveness)
		r.GET("/readyz", p.Health.Readiness)
	}

	for _, route := range p.Routes {
		route.Register(r)
	}
	return r
}
