package export

import (
	"ftc-platform/pkg/server"

	"go.uber.org/fx"
)

var Module = fx.Module("export.service",
	fx.Provide(
		NewService,
		server.AsRoute(NewHandler),
	),
)
