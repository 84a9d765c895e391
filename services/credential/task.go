package credential

import (
	"context"
	"encoding/json"
	"time"

	"ftc-platform/pkg/task"
	"ftc-platform/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// CleanupSchedule runs the stale session sweep hourly.
const CleanupSchedule = "@every 1h"

type CleanupPayload struct {
	DryRun bool `json:"dry_run"`
}

func NewCleanupTask(dryRun bool) (*asynq.Task, error) {
	payload, err := json.Marshal(CleanupPayload{DryRun: dryRun})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskname.CredentialSessionsCleanup, payload,
		asynq.Queue(task.QueueLow),
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Unique(55*time.Minute),
	), nil
}

func (s *Service) HandleCleanupTask(ctx context.Context, t *asynq.Task) error {
	var payload CleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			zap.L().Error("invalid cleanup payload", zap.Error(err))
			return asynq.SkipRetry
		}
	}

	res, err := s.CleanupExpiredSessions(ctx, payload.DryRun)
	if err != nil {
		return err
	}
	zap.L().Info("session cleanup task finished", zap.Int64("count", res.Count), zap.Bool("dry_run", res.DryRun))
	return nil
}

func NewCleanupHandler(s *Service) task.Handler {
	return task.Handler{Type: taskname.CredentialSessionsCleanup, Handler: s.HandleCleanupTask}
}

func NewCleanupPeriodic() (task.Periodic, error) {
	t, err := NewCleanupTask(false)
	if err != nil {
		return task.Periodic{}, err
	}
	return task.Periodic{Spec: CleanupSchedule, Task: t}, nil
}
