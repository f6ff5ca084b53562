package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/maumercado/taskqueue/internal/logger"
	"github.com/maumercado/taskqueue/internal/task"
)

// PoolConfig configures a worker Pool.
type PoolConfig struct {
	// WorkerName is the human-readable name registered with the server.
	// Leave empty to register the worker without a name; the server
	// assigns the worker's ID either way.
	WorkerName string
	// Concurrency is the number of goroutines fetching and executing
	// tasks concurrently.
	Concurrency int
	// PollInterval is how long a worker goroutine waits before re-polling
	// after finding no claimable task.
	PollInterval time.Duration
	// DefaultTaskTimeout bounds handler execution for tasks that don't
	// specify their own task_timeout.
	DefaultTaskTimeout time.Duration
	// HeartbeatInterval is how often a RUNNING task's heartbeat is
	// refreshed while a handler is executing.
	HeartbeatInterval time.Duration
	// ShutdownTimeout bounds how long Stop waits for in-flight tasks.
	ShutdownTimeout time.Duration
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.DefaultTaskTimeout <= 0 {
		c.DefaultTaskTimeout = time.Hour
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 20 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	return c
}

// Pool manages a pool of concurrent worker goroutines against a single
// queue: each fetches a task, runs it through the Executor, heartbeats
// while it runs, and reports the outcome.
type Pool struct {
	qc       *QueueClient
	executor *Executor
	config   PoolConfig
	workerID string

	wg     sync.WaitGroup
	stopCh chan struct{}
}

// NewPool creates a worker pool bound to qc.
func NewPool(qc *QueueClient, config PoolConfig) *Pool {
	config = config.withDefaults()
	return &Pool{
		qc:       qc,
		executor: NewExecutor(config.DefaultTaskTimeout),
		config:   config,
		stopCh:   make(chan struct{}),
	}
}

// RegisterHandler registers a handler for a task name.
func (p *Pool) RegisterHandler(taskName string, handler TaskHandler) {
	p.executor.RegisterHandler(taskName, handler)
}

// Start registers the worker with the server and spawns goroutines.
func (p *Pool) Start(ctx context.Context) error {
	w, err := p.qc.RegisterWorker(ctx, RegisterWorkerRequest{WorkerName: p.config.WorkerName})
	if err != nil {
		return fmt.Errorf("register worker: %w", err)
	}
	p.workerID = w.ID

	for i := 0; i < p.config.Concurrency; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}

	logger.Info().
		Str("worker_id", p.workerID).
		Int("concurrency", p.config.Concurrency).
		Msg("worker pool started")

	return nil
}

// Stop signals all worker goroutines to stop and waits for in-flight
// tasks, up to config.ShutdownTimeout.
func (p *Pool) Stop(ctx context.Context) error {
	close(p.stopCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Str("worker_id", p.workerID).Msg("worker pool stopped gracefully")
	case <-time.After(p.config.ShutdownTimeout):
		logger.Warn().Str("worker_id", p.workerID).Msg("worker pool shutdown timed out")
	case <-ctx.Done():
		logger.Warn().Str("worker_id", p.workerID).Msg("worker pool shutdown canceled")
	}

	return nil
}

// ID returns the worker's server-assigned ID. Valid after Start.
func (p *Pool) ID() string {
	return p.workerID
}

func (p *Pool) run(ctx context.Context, slot int) {
	defer p.wg.Done()

	log := logger.WithWorker(p.workerID)
	log.Info().Int("slot", slot).Msg("worker slot started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		default:
		}

		t, err := p.qc.FetchTask(ctx, FetchTaskRequest{WorkerID: p.workerID})
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
				select {
				case <-time.After(p.config.PollInterval):
				case <-p.stopCh:
					return
				case <-ctx.Done():
					return
				}
				continue
			}
			log.Error().Err(err).Msg("failed to fetch task")
			select {
			case <-time.After(p.config.PollInterval):
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			}
			continue
		}

		p.process(ctx, t)
	}
}

func (p *Pool) process(ctx context.Context, t *task.Task) {
	log := logger.WithTask(t.ID)

	heartbeatInterval := p.config.HeartbeatInterval
	if t.HeartbeatTimeout != nil {
		heartbeatInterval = time.Duration(*t.HeartbeatTimeout) * time.Second / 3
	}
	hb := NewHeartbeat(p.qc, t.ID, heartbeatInterval)
	hb.Start(ctx)

	result, execErr := p.executor.Execute(ctx, t)
	hb.Stop()

	if execErr != nil {
		log.Error().Err(execErr).Msg("task execution failed")
		if _, err := p.qc.ReportStatus(ctx, t.ID, string(task.StatusFailed), map[string]interface{}{
			"error": execErr.Error(),
		}); err != nil {
			log.Error().Err(err).Msg("failed to report task failure")
		}
		return
	}

	if _, err := p.qc.ReportStatus(ctx, t.ID, string(task.StatusSuccess), result); err != nil {
		log.Error().Err(err).Msg("failed to report task success")
	}
}
