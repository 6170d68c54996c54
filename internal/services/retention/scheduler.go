package retention

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TimerScheduler sweeps batches from in-process timers. Pending sweeps are
// lost on restart; the start-up sweep picks those directories up.
type TimerScheduler struct {
	sweeper *Sweeper
	delay   time.Duration
	logger  *zap.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewTimerScheduler(sweeper *Sweeper, delay time.Duration, logger *zap.Logger) *TimerScheduler {
	return &TimerScheduler{
		sweeper: sweeper,
		delay:   delay,
		logger:  logger,
		timers:  make(map[string]*time.Timer),
	}
}

func (t *TimerScheduler) Schedule(_ context.Context, batchID, dir string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.timers[batchID]; ok {
		existing.Stop()
	}
	t.timers[batchID] = time.AfterFunc(t.delay, func() {
		t.mu.Lock()
		delete(t.timers, batchID)
		t.mu.Unlock()

		if err := t.sweeper.Sweep(context.Background(), batchID, dir); err != nil {
			t.logger.Error("Retention sweep failed", zap.String("batch_id", batchID), zap.Error(err))
		}
	})

	t.logger.Debug("Retention sweep scheduled",
		zap.String("batch_id", batchID),
		zap.Duration("delay", t.delay),
	)
	return nil
}

func (t *TimerScheduler) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}

// Stop cancels every pending sweep.
func (t *TimerScheduler) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}
