package evaluation

import (
	"ftc-platform/pkg/server"

	"go.uber.org/fx"
)

var Module = fx.Module("evaluation.service",
	fx.Provide(
		NewSentinel,
		NewService,
		server.AsRoute(NewHandler),
	),
)
