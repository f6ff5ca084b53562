package workerservice

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/maumercado/taskqueue/internal/apperr"
	"github.com/maumercado/taskqueue/internal/clock"
	"github.com/maumercado/taskqueue/internal/task"
)

type memStore struct {
	mu      sync.Mutex
	workers map[string]*task.Worker
}

func newMemStore() *memStore {
	return &memStore{workers: map[string]*task.Worker{}}
}

func (m *memStore) InsertWorker(ctx context.Context, w *task.Worker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *w
	m.workers[w.ID] = &cp
	return nil
}

func (m *memStore) GetWorker(ctx context.Context, queueID, workerID string) (*task.Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[workerID]
	if !ok || w.QueueID != queueID {
		return nil, apperr.New(apperr.NotFound, "worker %q not found", workerID)
	}
	cp := *w
	return &cp, nil
}

func (m *memStore) QueryWorkers(ctx context.Context, queueID string, filter bson.M, offset, limit int64) ([]*task.Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*task.Worker
	for _, w := range m.workers {
		if w.QueueID == queueID {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) UpdateWorkerStatus(ctx context.Context, queueID, workerID string, status task.WorkerStatus, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[workerID]
	if !ok || w.QueueID != queueID {
		return apperr.New(apperr.NotFound, "worker %q not found", workerID)
	}
	w.Status = status
	w.LastModified = now
	return nil
}

func (m *memStore) DeleteWorker(ctx context.Context, queueID, workerID string, cascadeUpdate bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[workerID]
	if !ok || w.QueueID != queueID {
		return apperr.New(apperr.NotFound, "worker %q not found", workerID)
	}
	delete(m.workers, workerID)
	return nil
}

func TestService_Register(t *testing.T) {
	s := New(newMemStore(), clock.NewMock(time.Now()))

	w, err := s.Register(context.Background(), "queue-1", "worker-a", 5, map[string]interface{}{"host": "box1"})
	require.NoError(t, err)
	assert.NotEmpty(t, w.ID)
	assert.Equal(t, "queue-1", w.QueueID)
	assert.Equal(t, task.WorkerActive, w.Status)
	assert.Equal(t, 5, w.MaxRetries)
	assert.True(t, w.IsActive())
}

func TestService_SetStatus(t *testing.T) {
	s := New(newMemStore(), clock.NewMock(time.Now()))
	ctx := context.Background()

	w, err := s.Register(ctx, "queue-1", "worker-a", 0, nil)
	require.NoError(t, err)

	require.NoError(t, s.SetStatus(ctx, "queue-1", w.ID, task.WorkerSuspended))

	got, err := s.Get(ctx, "queue-1", w.ID)
	require.NoError(t, err)
	assert.Equal(t, task.WorkerSuspended, got.Status)
	assert.False(t, got.IsActive())
}

func TestService_List(t *testing.T) {
	s := New(newMemStore(), clock.NewMock(time.Now()))
	ctx := context.Background()

	_, err := s.Register(ctx, "queue-1", "worker-a", 0, nil)
	require.NoError(t, err)
	_, err = s.Register(ctx, "queue-1", "worker-b", 0, nil)
	require.NoError(t, err)
	_, err = s.Register(ctx, "queue-2", "worker-c", 0, nil)
	require.NoError(t, err)

	workers, err := s.List(ctx, "queue-1", bson.M{}, 0, 100)
	require.NoError(t, err)
	assert.Len(t, workers, 2)
}

func TestService_Delete(t *testing.T) {
	s := New(newMemStore(), clock.NewMock(time.Now()))
	ctx := context.Background()

	w, err := s.Register(ctx, "queue-1", "worker-a", 0, nil)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "queue-1", w.ID, false))

	_, err = s.Get(ctx, "queue-1", w.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestService_Get_WrongQueueScopeNotFound(t *testing.T) {
	s := New(newMemStore(), clock.NewMock(time.Now()))
	ctx := context.Background()

	w, err := s.Register(ctx, "queue-1", "worker-a", 0, nil)
	require.NoError(t, err)

	_, err = s.Get(ctx, "queue-2", w.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}
