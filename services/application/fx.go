package application

import (
	"ftc-platform/pkg/server"

	"go.uber.org/fx"
)

var Module = fx.Module("application.service",
	fx.Provide(
		NewService,
		server.AsRoute(NewHandler),
	),
)
