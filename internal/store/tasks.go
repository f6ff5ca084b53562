package store

import (
	"context"
	"time"

	"github.com/maumercado/taskqueue/internal/apperr"
	"github.com/maumercado/taskqueue/internal/task"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InsertTask persists a new task in PENDING status.
func (s *Store) InsertTask(ctx context.Context, t *task.Task) error {
	if _, err := s.tasks.InsertOne(ctx, t); err != nil {
		return apperr.Wrap(apperr.Internal, err, "insert task")
	}
	return nil
}

// GetTask fetches a single task scoped to queueID.
func (s *Store) GetTask(ctx context.Context, queueID, taskID string) (*task.Task, error) {
	var t task.Task
	err := s.tasks.FindOne(ctx, bson.M{"_id": taskID, "queue_id": queueID}).Decode(&t)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.New(apperr.NotFound, "task %q not found", taskID)
		}
		return nil, apperr.Wrap(apperr.Internal, err, "find task")
	}
	return &t, nil
}

// QueryTasks returns every task in queueID matching filter (already
// sanitized by internal/sanitize), newest first, bounded by limit/offset.
func (s *Store) QueryTasks(ctx context.Context, queueID string, filter bson.M, offset, limit int64) ([]*task.Task, error) {
	scoped := bson.M{"$and": []bson.M{{"queue_id": queueID}, filter}}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(offset).
		SetLimit(limit)

	cur, err := s.tasks.Find(ctx, scoped, opts)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "query tasks")
	}
	defer cur.Close(ctx)

	var results []*task.Task
	if err := cur.All(ctx, &results); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "decode tasks")
	}
	return results, nil
}

// FetchTask is the atomic claim primitive: it finds the highest-priority
// (ties broken by oldest created_at) PENDING task in the queue, atomically
// transitions it to RUNNING for workerID, and returns the post-update
// document in one round trip. Returns apperr.NotFound (not an error the
// caller should log loudly) when no task currently matches.
func (s *Store) FetchTask(ctx context.Context, queueID, workerID string, extraFilter bson.M, heartbeatTimeout, taskTimeout *int, now time.Time) (*task.Task, error) {
	filter := bson.M{"queue_id": queueID, "status": string(task.StatusPending)}
	if len(extraFilter) > 0 {
		filter = bson.M{"$and": []bson.M{filter, extraFilter}}
	}

	set := bson.M{
		"status":         string(task.StatusRunning),
		"worker_id":      workerID,
		"start_time":     now,
		"last_heartbeat": now,
		"last_modified":  now,
	}
	if heartbeatTimeout != nil {
		set["heartbeat_timeout"] = *heartbeatTimeout
	}
	if taskTimeout != nil {
		set["task_timeout"] = *taskTimeout
	}

	var t task.Task
	err := s.tasks.FindOneAndUpdate(
		ctx,
		filter,
		bson.M{"$set": set},
		options.FindOneAndUpdate().
			SetSort(bson.D{{Key: "priority", Value: -1}, {Key: "created_at", Value: 1}}).
			SetReturnDocument(options.After),
	).Decode(&t)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.New(apperr.NotFound, "no pending task available in queue %q", queueID)
		}
		return nil, apperr.Wrap(apperr.Internal, err, "fetch task")
	}
	return &t, nil
}

// ReplaceTask persists the full updated task document, used after FSM
// transitions computed in memory (report/cancel/reset).
func (s *Store) ReplaceTask(ctx context.Context, t *task.Task) error {
	res, err := s.tasks.ReplaceOne(ctx, bson.M{"_id": t.ID, "queue_id": t.QueueID}, t)
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "replace task")
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.NotFound, "task %q not found", t.ID)
	}
	return nil
}

// RefreshHeartbeat atomically bumps last_heartbeat on a RUNNING task. A
// stale worker refreshing a task that has since been reclaimed or
// terminated is a no-op that surfaces as NotFound, never a silent write.
func (s *Store) RefreshHeartbeat(ctx context.Context, queueID, taskID string, now time.Time) error {
	res, err := s.tasks.UpdateOne(
		ctx,
		bson.M{"_id": taskID, "queue_id": queueID, "status": string(task.StatusRunning)},
		bson.M{"$set": bson.M{"last_heartbeat": now, "last_modified": now}},
	)
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "refresh heartbeat")
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.NotFound, "running task %q not found", taskID)
	}
	return nil
}

// FindOneAndUpdateTask applies an already-sanitized update to a task
// scoped by queueID and the caller's extra filter, atomically, returning
// the post-update document.
func (s *Store) FindOneAndUpdateTask(ctx context.Context, queueID string, filter, update bson.M) (*task.Task, error) {
	scoped := bson.M{"$and": []bson.M{{"queue_id": queueID}, filter}}
	var t task.Task
	err := s.tasks.FindOneAndUpdate(
		ctx, scoped, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&t)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.New(apperr.NotFound, "no matching task in queue %q", queueID)
		}
		return nil, apperr.Wrap(apperr.Internal, err, "update task")
	}
	return &t, nil
}

// DeleteTask removes a single task.
func (s *Store) DeleteTask(ctx context.Context, queueID, taskID string) error {
	res, err := s.tasks.DeleteOne(ctx, bson.M{"_id": taskID, "queue_id": queueID})
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "delete task")
	}
	if res.DeletedCount == 0 {
		return apperr.New(apperr.NotFound, "task %q not found", taskID)
	}
	return nil
}

// ClearTaskWorker nulls worker_id on every task currently assigned to
// workerID, without touching task status. Used by worker deletion cascade;
// deliberately does not transition RUNNING tasks to any terminal status
// (see DESIGN.md).
func (s *Store) ClearTaskWorker(ctx context.Context, queueID, workerID string) error {
	_, err := s.tasks.UpdateMany(
		ctx,
		bson.M{"queue_id": queueID, "worker_id": workerID},
		bson.M{"$set": bson.M{"worker_id": nil}},
	)
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "clear task worker")
	}
	return nil
}

// StalledRunningTasks returns RUNNING tasks across all queues whose heartbeat or
// overall task timeout has elapsed as of now, for the sweeper to fail.
func (s *Store) StalledRunningTasks(ctx context.Context, now time.Time) ([]*task.Task, error) {
	filter := bson.M{
		"status": string(task.StatusRunning),
		"$or": []bson.M{
			{
				"heartbeat_timeout": bson.M{"$ne": nil},
				"last_heartbeat":    bson.M{"$ne": nil},
				"$expr": bson.M{
					"$gt": []interface{}{
						bson.M{"$subtract": []interface{}{now, "$last_heartbeat"}},
						bson.M{"$multiply": []interface{}{"$heartbeat_timeout", 1000}},
					},
				},
			},
			{
				"task_timeout": bson.M{"$ne": nil},
				"start_time":   bson.M{"$ne": nil},
				"$expr": bson.M{
					"$gt": []interface{}{
						bson.M{"$subtract": []interface{}{now, "$start_time"}},
						bson.M{"$multiply": []interface{}{"$task_timeout", 1000}},
					},
				},
			},
		},
	}

	cur, err := s.tasks.Find(ctx, filter)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "scan stalled tasks")
	}
	defer cur.Close(ctx)

	var results []*task.Task
	if err := cur.All(ctx, &results); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "decode stalled tasks")
	}
	return results, nil
}
