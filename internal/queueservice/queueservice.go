// Package queueservice implements queue creation, retrieval, update, and
// deletion.
package queueservice

import (
	"context"

	"github.com/google/uuid"
	"github.com/maumercado/taskqueue/internal/apperr"
	"github.com/maumercado/taskqueue/internal/clock"
	"github.com/maumercado/taskqueue/internal/security"
	"github.com/maumercado/taskqueue/internal/task"
)

// Store is the subset of the persistence layer this service needs.
type Store interface {
	InsertQueue(ctx context.Context, q *task.Queue) error
	GetQueueByName(ctx context.Context, name string) (*task.Queue, error)
	GetQueueByID(ctx context.Context, id string) (*task.Queue, error)
	ReplaceQueue(ctx context.Context, q *task.Queue) error
	DeleteQueue(ctx context.Context, id string, cascade bool) error
}

// Service implements the queue lifecycle operations.
type Service struct {
	store Store
	clock clock.Clock
}

// New builds a Service backed by store, using clk as the time source.
func New(store Store, clk clock.Clock) *Service {
	return &Service{store: store, clock: clk}
}

// Create registers a new queue, hashing its password before it is ever
// persisted or logged.
func (s *Service) Create(ctx context.Context, queueName, password string, metadata map[string]interface{}) (*task.Queue, error) {
	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "hash queue password")
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	now := s.clock.Now()
	q := &task.Queue{
		ID:           uuid.NewString(),
		QueueName:    queueName,
		PasswordHash: hash,
		Metadata:     metadata,
		CreatedAt:    now,
		LastModified: now,
	}
	if err := s.store.InsertQueue(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Authenticate loads a queue by name and verifies password, returning
// NotFound for both an unknown queue and a wrong password (never leaking
// which one it was).
func (s *Service) Authenticate(ctx context.Context, queueName, password string) (*task.Queue, error) {
	q, err := s.store.GetQueueByName(ctx, queueName)
	if err != nil {
		return nil, err
	}
	if !security.VerifyPassword(q.PasswordHash, password) {
		return nil, apperr.New(apperr.NotFound, "queue %q not found", queueName)
	}
	return q, nil
}

// Get fetches a queue by id.
func (s *Service) Get(ctx context.Context, id string) (*task.Queue, error) {
	return s.store.GetQueueByID(ctx, id)
}

// Update renames the queue, rotates its password, and/or merges new
// metadata keys into the existing metadata. Metadata is merged explicitly
// into a copy (see DESIGN.md Open Question (b)): unlike the origin
// system's update_queue, the merged result is always the one persisted.
func (s *Service) Update(ctx context.Context, id string, newName *string, newPassword *string, metadataUpdate map[string]interface{}) (*task.Queue, error) {
	q, err := s.store.GetQueueByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if newName != nil {
		q.QueueName = *newName
	}
	if newPassword != nil {
		hash, err := security.HashPassword(*newPassword)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "hash new queue password")
		}
		q.PasswordHash = hash
	}
	if len(metadataUpdate) > 0 {
		merged := make(map[string]interface{}, len(q.Metadata)+len(metadataUpdate))
		for k, v := range q.Metadata {
			merged[k] = v
		}
		for k, v := range metadataUpdate {
			merged[k] = v
		}
		q.Metadata = merged
	}
	q.LastModified = s.clock.Now()

	if err := s.store.ReplaceQueue(ctx, q); err != nil {
		if apperr.Is(err, apperr.Conflict) {
			return nil, apperr.New(apperr.Conflict, "queue name %q already in use", q.QueueName)
		}
		return nil, err
	}
	return q, nil
}

// Delete removes a queue. cascade also removes every task and worker
// scoped to it.
func (s *Service) Delete(ctx context.Context, id string, cascade bool) error {
	return s.store.DeleteQueue(ctx, id, cascade)
}
