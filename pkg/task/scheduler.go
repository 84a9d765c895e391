package task

import (
	"context"
	"fmt"
	"time"

	"ftc-platform/pkg/config"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Periodic is a task enqueued by the scheduler on a cron spec.
type Periodic struct {
	Spec string
	Task *asynq.Task
	Opts []asynq.Option
}

// AsPeriodic annotates a constructor returning a Periodic for the scheduler.
func AsPeriodic(f any) any {
	return fx.Annotate(f, fx.ResultTags(`group:"periodic_tasks"`))
}

var Scheduler = fx.Module("asynq:scheduler",
	fx.Invoke(registerScheduler),
)

type SchedulerParams struct {
	fx.In
	Lc       fx.Lifecycle
	Config   *config.Config
	Periodic []Periodic `group:"periodic_tasks"`
}

func registerScheduler(p SchedulerParams) error {
	scheduler := asynq.NewScheduler(redisOpt(p.Config), &asynq.SchedulerOpts{
		Location: time.UTC,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				zap.L().Error("[Asynq] scheduled enqueue failed", zap.Error(err))
				return
			}
			zap.L().Debug("[Asynq] scheduled task enqueued", zap.String("task_type", info.Type), zap.String("id", info.ID))
		},
	})

	for _, pt := range p.Periodic {
		id, err := scheduler.Register(pt.Spec, pt.Task, pt.Opts...)
		if err != nil {
			return fmt.Errorf("[Asynq] register %s: %w", pt.Task.Type(), err)
		}
		zap.L().Info("[Asynq] periodic task registered",
			zap.String("task_type", pt.Task.Type()),
			zap.String("spec", pt.Spec),
			zap.String("entry_id", id),
		)
	}

	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := scheduler.Start(); err != nil {
				return fmt.Errorf("[Asynq] start scheduler: %w", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			scheduler.Shutdown()
			return nil
		},
	})
	return nil
}
