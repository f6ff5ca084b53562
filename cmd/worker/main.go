package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maumercado/taskqueue/internal/config"
	"github.com/maumercado/taskqueue/internal/logger"
	"github.com/maumercado/taskqueue/internal/task"
	"github.com/maumercado/taskqueue/pkg/client"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, os.Getenv("ENV") != "production")
	log := logger.Get()
	log.Info().Msg("Starting worker...")

	if cfg.Worker.QueueName == "" {
		log.Fatal().Msg("worker.queuename must be set")
	}

	c := client.New(cfg.Worker.BaseURL)
	qc := c.Queue(cfg.Worker.QueueName, cfg.Worker.QueuePassword)

	pool := client.NewPool(qc, client.PoolConfig{
		WorkerName:        cfg.Worker.ID,
		Concurrency:       cfg.Worker.Concurrency,
		HeartbeatInterval: cfg.Worker.HeartbeatInterval,
		ShutdownTimeout:   cfg.Worker.ShutdownTimeout,
	})

	pool.RegisterHandler("echo", echoHandler)
	pool.RegisterHandler("sleep", sleepHandler)
	pool.RegisterHandler("compute", computeHandler)
	pool.RegisterHandler("fail", failHandler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pool.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start worker pool")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	if err := pool.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Worker shutdown error")
	}

	log.Info().Msg("Worker stopped")
}

// Example task handlers, registered above for demonstration purposes.

func echoHandler(ctx context.Context, t *task.Task) (map[string]interface{}, error) {
	logger.Info().Str("task_id", t.ID).Interface("args", t.Args).Msg("echo handler processing task")
	return map[string]interface{}{"echoed": t.Args}, nil
}

func sleepHandler(ctx context.Context, t *task.Task) (map[string]interface{}, error) {
	duration := 1 * time.Second
	if d, ok := t.Args["duration"].(float64); ok {
		duration = time.Duration(d) * time.Millisecond
	}

	logger.Info().Str("task_id", t.ID).Dur("duration", duration).Msg("sleep handler processing task")

	select {
	case <-time.After(duration):
		return map[string]interface{}{"slept_for": duration.String()}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func computeHandler(ctx context.Context, t *task.Task) (map[string]interface{}, error) {
	iterations := 1000000
	if i, ok := t.Args["iterations"].(float64); ok {
		iterations = int(i)
	}

	logger.Info().Str("task_id", t.ID).Int("iterations", iterations).Msg("compute handler processing task")

	sum := 0
	for i := 0; i < iterations; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
			sum += i
		}
	}

	return map[string]interface{}{"result": sum}, nil
}

func failHandler(ctx context.Context, t *task.Task) (map[string]interface{}, error) {
	logger.Info().Str("task_id", t.ID).Msg("fail handler processing task")
	if rand.Intn(2) == 0 {
		return nil, fmt.Errorf("intentional failure for testing")
	}
	return map[string]interface{}{"message": "succeeded this time"}, nil
}
