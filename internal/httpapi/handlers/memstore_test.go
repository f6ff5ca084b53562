package handlers

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/maumercado/taskqueue/internal/apperr"
	"github.com/maumercado/taskqueue/internal/task"
)

// memStore is a minimal in-memory stand-in for internal/store's Mongo
// adapter, enough to exercise queueservice/taskservice/workerservice
// through the HTTP handlers without a real database.
type memStore struct {
	mu      sync.Mutex
	queues  map[string]*task.Queue
	tasks   map[string]*task.Task
	workers map[string]*task.Worker
}

func newMemStore() *memStore {
	return &memStore{
		queues:  map[string]*task.Queue{},
		tasks:   map[string]*task.Task{},
		workers: map[string]*task.Worker{},
	}
}

func (m *memStore) InsertQueue(ctx context.Context, q *task.Queue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.queues {
		if existing.QueueName == q.QueueName {
			return apperr.New(apperr.Conflict, "queue name %q already in use", q.QueueName)
		}
	}
	cp := *q
	m.queues[q.ID] = &cp
	return nil
}

func (m *memStore) GetQueueByName(ctx context.Context, name string) (*task.Queue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.queues {
		if q.QueueName == name {
			cp := *q
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "queue %q not found", name)
}

func (m *memStore) GetQueueByID(ctx context.Context, id string) (*task.Queue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "queue %q not found", id)
	}
	cp := *q
	return &cp, nil
}

func (m *memStore) ReplaceQueue(ctx context.Context, q *task.Queue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.queues[q.ID]; !ok {
		return apperr.New(apperr.NotFound, "queue %q not found", q.ID)
	}
	for id, existing := range m.queues {
		if id != q.ID && existing.QueueName == q.QueueName {
			return apperr.New(apperr.Conflict, "queue name %q already in use", q.QueueName)
		}
	}
	cp := *q
	m.queues[q.ID] = &cp
	return nil
}

func (m *memStore) DeleteQueue(ctx context.Context, id string, cascade bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.queues[id]; !ok {
		return apperr.New(apperr.NotFound, "queue %q not found", id)
	}
	delete(m.queues, id)
	if cascade {
		for tid, t := range m.tasks {
			if t.QueueID == id {
				delete(m.tasks, tid)
			}
		}
		for wid, w := range m.workers {
			if w.QueueID == id {
				delete(m.workers, wid)
			}
		}
	}
	return nil
}

func (m *memStore) InsertTask(ctx context.Context, t *task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *memStore) GetTask(ctx context.Context, queueID, taskID string) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok || t.QueueID != queueID {
		return nil, apperr.New(apperr.NotFound, "task %q not found", taskID)
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) QueryTasks(ctx context.Context, queueID string, filter bson.M, offset, limit int64) ([]*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*task.Task
	for _, t := range m.tasks {
		if t.QueueID == queueID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) FetchTask(ctx context.Context, queueID, workerID string, extraFilter bson.M, heartbeatTimeout, taskTimeout *int, now time.Time) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *task.Task
	for _, t := range m.tasks {
		if t.QueueID != queueID || t.Status != task.StatusPending {
			continue
		}
		if best == nil || t.Priority > best.Priority || (t.Priority == best.Priority && t.CreatedAt.Before(best.CreatedAt)) {
			best = t
		}
	}
	if best == nil {
		return nil, apperr.New(apperr.NotFound, "no pending task in queue %q", queueID)
	}
	best.Status = task.StatusRunning
	if workerID != "" {
		wid := workerID
		best.WorkerID = &wid
	}
	best.StartTime = &now
	best.LastHeartbeat = &now
	cp := *best
	return &cp, nil
}

func (m *memStore) ReplaceTask(ctx context.Context, t *task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.ID]; !ok {
		return apperr.New(apperr.NotFound, "task %q not found", t.ID)
	}
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *memStore) RefreshHeartbeat(ctx context.Context, queueID, taskID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok || t.QueueID != queueID || t.Status != task.StatusRunning {
		return apperr.New(apperr.NotFound, "running task %q not found", taskID)
	}
	t.LastHeartbeat = &now
	t.LastModified = now
	return nil
}

func (m *memStore) FindOneAndUpdateTask(ctx context.Context, queueID string, filter, update bson.M) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, _ := filter["_id"].(string)
	t, ok := m.tasks[id]
	if !ok || t.QueueID != queueID {
		return nil, apperr.New(apperr.NotFound, "task %q not found", id)
	}
	if set, ok := update["$set"].(bson.M); ok {
		if v, ok := set["last_modified"].(time.Time); ok {
			t.LastModified = v
		}
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) DeleteTask(ctx context.Context, queueID, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok || t.QueueID != queueID {
		return apperr.New(apperr.NotFound, "task %q not found", taskID)
	}
	delete(m.tasks, taskID)
	return nil
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
	if cascadeUpdate {
		for _, t := range m.tasks {
			if t.QueueID == queueID && t.WorkerID != nil && *t.WorkerID == workerID {
				t.WorkerID = nil
			}
		}
	}
	return nil
}
