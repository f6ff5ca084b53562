// Package workerservice implements worker registration, status updates,
// and deletion.
package workerservice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/maumercado/taskqueue/internal/clock"
	"github.com/maumercado/taskqueue/internal/task"
	"go.mongodb.org/mongo-driver/bson"
)

// Store is the subset of the persistence layer this service needs.
type Store interface {
	InsertWorker(ctx context.Context, w *task.Worker) error
	GetWorker(ctx context.Context, queueID, workerID string) (*task.Worker, error)
	QueryWorkers(ctx context.Context, queueID string, filter bson.M, offset, limit int64) ([]*task.Worker, error)
	UpdateWorkerStatus(ctx context.Context, queueID, workerID string, status task.WorkerStatus, now time.Time) error
	DeleteWorker(ctx context.Context, queueID, workerID string, cascadeUpdate bool) error
}

// Service implements worker lifecycle operations.
type Service struct {
	store Store
	clock clock.Clock
}

// New builds a Service backed by store.
func New(store Store, clk clock.Clock) *Service {
	return &Service{store: store, clock: clk}
}

// Register creates a new worker scoped to queueID.
func (s *Service) Register(ctx context.Context, queueID, workerName string, maxRetries int, metadata map[string]interface{}) (*task.Worker, error) {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	now := s.clock.Now()
	w := &task.Worker{
		ID:           uuid.NewString(),
		QueueID:      queueID,
		Status:       task.WorkerActive,
		WorkerName:   workerName,
		Metadata:     metadata,
		MaxRetries:   maxRetries,
		CreatedAt:    now,
		LastModified: now,
	}
	if err := s.store.InsertWorker(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Get fetches a worker by id.
func (s *Service) Get(ctx context.Context, queueID, workerID string) (*task.Worker, error) {
	return s.store.GetWorker(ctx, queueID, workerID)
}

// List returns workers matching filter in queueID.
func (s *Service) List(ctx context.Context, queueID string, filter bson.M, offset, limit int64) ([]*task.Worker, error) {
	return s.store.QueryWorkers(ctx, queueID, filter, offset, limit)
}

// SetStatus updates a worker's administrative status (active/suspended/failed).
func (s *Service) SetStatus(ctx context.Context, queueID, workerID string, status task.WorkerStatus) error {
	return s.store.UpdateWorkerStatus(ctx, queueID, workerID, status, s.clock.Now())
}

// Delete removes a worker. cascadeUpdate clears worker_id on its in-flight
// tasks without transitioning their status, matching the origin system's
// behavior (see DESIGN.md).
func (s *Service) Delete(ctx context.Context, queueID, workerID string, cascadeUpdate bool) error {
	return s.store.DeleteWorker(ctx, queueID, workerID, cascadeUpdate)
}
