package client

import (
	"context"
	"sync"
	"time"

	"github.com/maumercado/taskqueue/internal/logger"
)

// Heartbeat keeps a single RUNNING task's last_heartbeat fresh for the
// duration of its execution, so the server's timeout sweeper does not
// mistake an actively-running task for a stalled one.
type Heartbeat struct {
	qc       *QueueClient
	taskID   string
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewHeartbeat creates a heartbeat loop for taskID, ticking every interval.
func NewHeartbeat(qc *QueueClient, taskID string, interval time.Duration) *Heartbeat {
	return &Heartbeat{
		qc:       qc,
		taskID:   taskID,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins sending heartbeats in the background.
func (h *Heartbeat) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.loop(ctx)
}

// Stop halts the heartbeat loop and waits for it to exit.
func (h *Heartbeat) Stop() {
	close(h.stopCh)
	h.wg.Wait()
}

func (h *Heartbeat) loop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case <-ticker.C:
			if err := h.qc.Heartbeat(ctx, h.taskID); err != nil {
				logger.Error().Err(err).Str("task_id", h.taskID).Msg("failed to send heartbeat")
			}
		}
	}
}
