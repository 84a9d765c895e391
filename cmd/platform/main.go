package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"ftc-platform/pkg/access"
	"ftc-platform/pkg/celengine"
	"ftc-platform/pkg/config"
	"ftc-platform/pkg/db"
	"ftc-platform/pkg/featureflags"
	"ftc-platform/pkg/gen"
	"ftc-platform/pkg/hashistack/secretmanager"
	"ftc-platform/pkg/health"
	"ftc-platform/pkg/logger"
	"ftc-platform/pkg/minio"
	"ftc-platform/pkg/otelcol"
	"ftc-platform/pkg/profiling"
	"ftc-platform/pkg/ratelimit"
	"ftc-platform/pkg/redis"
	"ftc-platform/pkg/security"
	"ftc-platform/pkg/server"
	"ftc-platform/pkg/task"
	"ftc-platform/services/apikey"
	"ftc-platform/services/application"
	"ftc-platform/services/bootstrap"
	"ftc-platform/services/credential"
	"ftc-platform/services/evaluation"
	"ftc-platform/services/export"
	"ftc-platform/services/user"
)

func main() {
	opts := []fx.Option{
		secretmanager.Module,
		config.Module,
		logger.Module,
		otelcol.Module,
		profiling.Module,
		db.Module,
		redis.Module,
		gen.Module,
		security.Module,
		access.Module,
		celengine.Module,
		featureflags.Module,
		ratelimit.Module,
		minio.Client,
		task.Client,
		health.Module,

		user.Module,
		application.Module,
		evaluation.Module,
		credential.Module,
		apikey.Module,
		export.Module,
		bootstrap.Module,

		server.Module,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	fx.New(opts...).Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	if cfg.AppEnv == "production" {
		return fxevent.NopLogger
	}
	return &fxevent.ZapLogger{Logger: logger}
})
