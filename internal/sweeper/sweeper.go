// Package sweeper periodically fails RUNNING tasks whose heartbeat or
// overall timeout has elapsed, so a crashed or partitioned worker never
// leaves a task stuck in RUNNING forever.
package sweeper

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maumercado/taskqueue/internal/clock"
	"github.com/maumercado/taskqueue/internal/logger"
	"github.com/maumercado/taskqueue/internal/task"
)

// Store is the subset of the persistence layer the sweeper needs.
type Store interface {
	StalledRunningTasks(ctx context.Context, now time.Time) ([]*task.Task, error)
	ReplaceTask(ctx context.Context, t *task.Task) error
}

// Sweeper runs a ticker-driven background scan for stalled RUNNING tasks.
type Sweeper struct {
	store        Store
	clock        clock.Clock
	pollInterval time.Duration

	running  atomic.Bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New builds a Sweeper that scans every pollInterval.
func New(store Store, clk clock.Clock, pollInterval time.Duration) *Sweeper {
	return &Sweeper{
		store:        store,
		clock:        clk,
		pollInterval: pollInterval,
		stopCh:       make(chan struct{}),
	}
}

// Start launches the background scan loop.
func (sw *Sweeper) Start(ctx context.Context) {
	sw.wg.Add(1)
	go sw.loop(ctx)
}

// Stop signals the loop to exit and waits for it to finish.
func (sw *Sweeper) Stop() {
	close(sw.stopCh)
	sw.wg.Wait()
}

func (sw *Sweeper) loop(ctx context.Context) {
	defer sw.wg.Done()
	ticker := time.NewTicker(sw.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sw.stopCh:
			return
		case <-ticker.C:
			sw.tick(ctx)
		}
	}
}

// tick runs one sweep, skipping if a previous tick is still in flight
// (a slow store round trip should never stack up overlapping scans).
func (sw *Sweeper) tick(ctx context.Context) {
	if !sw.running.CompareAndSwap(false, true) {
		return
	}
	defer sw.running.Store(false)

	n, err := sw.Sweep(ctx)
	if err != nil {
		logger.Get().Error().Err(err).Msg("sweep failed")
		return
	}
	if n > 0 {
		logger.Get().Info().Int("count", n).Msg("swept stalled tasks")
	}
}

// Sweep performs one scan-and-fail pass, tolerant of per-task errors: a
// failure transitioning one stalled task never stops the rest from being
// processed. It returns the number of stalled tasks whose transition it
// persisted, whether requeued to PENDING or moved to FAILED.
func (sw *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := sw.clock.Now()
	stalled, err := sw.store.StalledRunningTasks(ctx, now)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, t := range stalled {
		m := task.NewMachine(t)
		summary := map[string]interface{}{"labtasker_error": "Either heartbeat or task execution timed out"}
		if err := m.Report(task.StatusFailed, summary, now); err != nil {
			logger.Get().Warn().Err(err).Str("task_id", t.ID).Msg("sweeper could not transition stalled task")
			continue
		}
		if err := sw.store.ReplaceTask(ctx, t); err != nil {
			logger.Get().Warn().Err(err).Str("task_id", t.ID).Msg("sweeper could not persist stalled task")
			continue
		}
		count++
	}
	return count, nil
}
