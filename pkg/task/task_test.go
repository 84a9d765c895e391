package task

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueuer_Enqueue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	info, err := NewEnqueuer(client).Enqueue(context.Background(),
		asynq.NewTask("credential:sessions:cleanup", nil),
		asynq.Queue(QueueLow),
	)
	require.NoError(t, err)
	assert.Equal(t, QueueLow, info.Queue)
	assert.Equal(t, "credential:sessions:cleanup", info.Type)
}

func TestServerMuxRoutesHandlers(t *testing.T) {
	var got string
	mux := registerServerMux(MuxParams{Handlers: []Handler{{
		Type: "credential:sessions:cleanup",
		Handler: func(ctx context.Context, task *asynq.Task) error {
			got = string(task.Payload())
			return nil
		},
	}}})

	require.NoError(t, mux.ProcessTask(context.Background(), asynq.NewTask("credential:sessions:cleanup", []byte(`{}`))))
	assert.Equal(t, `{}`, got)

	err := mux.ProcessTask(context.Background(), asynq.NewTask("unknown", nil))
	assert.Error(t, err)
}
