package client

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/maumercado/taskqueue/internal/logger"
	"github.com/maumercado/taskqueue/internal/task"
)

// TaskHandler processes a single task and returns its summary.
type TaskHandler func(ctx context.Context, t *task.Task) (map[string]interface{}, error)

// Executor runs tasks through registered handlers.
type Executor struct {
	handlers       map[string]TaskHandler
	defaultTimeout time.Duration
}

// NewExecutor creates a task executor. defaultTimeout bounds execution for
// tasks that don't carry their own task_timeout.
func NewExecutor(defaultTimeout time.Duration) *Executor {
	return &Executor{
		handlers:       make(map[string]TaskHandler),
		defaultTimeout: defaultTimeout,
	}
}

// RegisterHandler registers a handler for a task name.
func (e *Executor) RegisterHandler(taskName string, handler TaskHandler) {
	e.handlers[taskName] = handler
}

// HasHandler reports whether a handler is registered for taskName.
func (e *Executor) HasHandler(taskName string) bool {
	_, ok := e.handlers[taskName]
	return ok
}

// Execute runs the handler registered for t.TaskName, bounding it by the
// task's own timeout (falling back to the executor default), and recovers
// handler panics into a reported failure instead of crashing the worker.
func (e *Executor) Execute(ctx context.Context, t *task.Task) (result map[string]interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			logger.Error().
				Str("task_id", t.ID).
				Str("task_name", t.TaskName).
				Interface("panic", r).
				Str("stack", string(stack)).
				Msg("task handler panicked")
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	handler, ok := e.handlers[t.TaskName]
	if !ok {
		return nil, ErrHandlerNotFound
	}

	timeout := e.defaultTimeout
	if t.TaskTimeout != nil {
		timeout = time.Duration(*t.TaskTimeout) * time.Second
	}
	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log := logger.WithTask(t.ID)
	log.Debug().Str("task_name", t.TaskName).Int("attempt", t.Retries+1).Msg("executing task")

	start := time.Now()
	result, err = handler(taskCtx, t)
	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().Dur("duration", duration).Msg("task timed out")
			return nil, ErrTaskTimeout
		}
		if errors.Is(err, context.Canceled) {
			log.Warn().Dur("duration", duration).Msg("task canceled")
			return nil, ErrTaskCanceled
		}
		log.Error().Err(err).Dur("duration", duration).Msg("task failed")
		return nil, err
	}

	log.Debug().Dur("duration", duration).Msg("task executed successfully")
	return result, nil
}

var (
	ErrHandlerNotFound = errors.New("no handler registered for task name")
	ErrTaskTimeout     = errors.New("task execution timed out")
	ErrTaskCanceled    = errors.New("task execution canceled")
)
