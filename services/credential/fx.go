package credential

import (
	"ftc-platform/pkg/server"
	"ftc-platform/pkg/task"

	"go.uber.org/fx"
)

var Module = fx.Module("credential.service",
	fx.Provide(
		NewBridge,
		NewPendingStore,
		NewService,
		server.AsRoute(NewHandler),
	),
)

// TaskModule registers the session cleanup processor and its schedule.
var TaskModule = fx.Module("credential.task",
	fx.Provide(
		NewBridge,
		NewPendingStore,
		NewService,
		task.AsHandler(NewCleanupHandler),
		task.AsPeriodic(NewCleanupPeriodic),
	),
)
