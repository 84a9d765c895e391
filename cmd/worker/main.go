package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"ftc-platform/pkg/config"
	"ftc-platform/pkg/db"
	"ftc-platform/pkg/gen"
	"ftc-platform/pkg/hashistack/secretmanager"
	"ftc-platform/pkg/logger"
	"ftc-platform/pkg/otelcol"
	"ftc-platform/pkg/ratelimit"
	"ftc-platform/pkg/redis"
	"ftc-platform/pkg/security"
	"ftc-platform/pkg/task"
	"ftc-platform/services/credential"
)

// The worker runs scheduled maintenance, currently the hourly expired
// session cleanup.
func main() {
	opts := []fx.Option{
		secretmanager.Module,
		config.Module,
		logger.Module,
		otelcol.Module,
		db.Module,
		redis.Module,
		gen.Module,
		security.Module,
		ratelimit.Module,

		task.Server,
		task.Scheduler,
		credential.TaskModule,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	fx.New(opts...).Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})
