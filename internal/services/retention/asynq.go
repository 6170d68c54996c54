package retention

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TaskTypeSweep = "retention:sweep"

type sweepPayload struct {
	BatchID string `json:"batch_id"`
	Dir     string `json:"dir"`
}

type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

var _ Enqueuer = (*asynq.Client)(nil)

// AsynqScheduler enqueues delayed sweep tasks in Redis, so pending sweeps
// survive a restart.
type AsynqScheduler struct {
	client Enqueuer
	queue  string
	delay  time.Duration
	logger *zap.Logger
}

func NewAsynqScheduler(client Enqueuer, queue string, delay time.Duration, logger *zap.Logger) *AsynqScheduler {
	return &AsynqScheduler{
		client: client,
		queue:  queue,
		delay:  delay,
		logger: logger,
	}
}

func (a *AsynqScheduler) Schedule(ctx context.Context, batchID, dir string) error {
	b, err := json.Marshal(sweepPayload{BatchID: batchID, Dir: dir})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeSweep, b)
	info, err := a.client.EnqueueContext(ctx, task,
		asynq.Queue(a.queue),
		asynq.TaskID("sweep:"+batchID),
		asynq.ProcessIn(a.delay),
		asynq.MaxRetry(3),
		asynq.Timeout(time.Minute),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue sweep for %s: %w", batchID, err)
	}

	a.logger.Debug("Retention sweep enqueued",
		zap.String("batch_id", batchID),
		zap.String("task_id", info.ID),
		zap.Duration("delay", a.delay),
	)
	return nil
}

// HandleSweepTask is the asynq handler for TaskTypeSweep.
func (s *Sweeper) HandleSweepTask(ctx context.Context, t *asynq.Task) error {
	var p sweepPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("invalid sweep payload: %v: %w", err, asynq.SkipRetry)
	}
	return s.Sweep(ctx, p.BatchID, p.Dir)
}

func (s *Sweeper) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypeSweep, s.HandleSweepTask)
}
