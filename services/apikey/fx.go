package apikey

import (
	"ftc-platform/pkg/middleware"
	"ftc-platform/pkg/server"

	"go.uber.org/fx"
)

var Module = fx.Module("apikey.service",
	fx.Provide(
		NewService,
		func(s *Service) middleware.KeyAuthenticator { return s },
		server.AsRoute(NewHandler),
	),
)
