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

// InsertWorker persists a new worker.
func (s *Store) InsertWorker(ctx context.Context, w *task.Worker) error {
	if _, err := s.workers.InsertOne(ctx, w); err != nil {
		return apperr.Wrap(apperr.Internal, err, "insert worker")
	}
	return nil
}

// GetWorker fetches a worker scoped to queueID.
func (s *Store) GetWorker(ctx context.Context, queueID, workerID string) (*task.Worker, error) {
	var w task.Worker
	err := s.workers.FindOne(ctx, bson.M{"_id": workerID, "queue_id": queueID}).Decode(&w)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.New(apperr.NotFound, "worker %q not found", workerID)
		}
		return nil, apperr.Wrap(apperr.Internal, err, "find worker")
	}
	return &w, nil
}

// QueryWorkers returns every worker in queueID matching filter.
func (s *Store) QueryWorkers(ctx context.Context, queueID string, filter bson.M, offset, limit int64) ([]*task.Worker, error) {
	scoped := bson.M{"$and": []bson.M{{"queue_id": queueID}, filter}}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(offset).
		SetLimit(limit)

	cur, err := s.workers.Find(ctx, scoped, opts)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "query workers")
	}
	defer cur.Close(ctx)

	var results []*task.Worker
	if err := cur.All(ctx, &results); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "decode workers")
	}
	return results, nil
}

// UpdateWorkerStatus sets a worker's administrative status.
func (s *Store) UpdateWorkerStatus(ctx context.Context, queueID, workerID string, status task.WorkerStatus, now time.Time) error {
	res, err := s.workers.UpdateOne(
		ctx,
		bson.M{"_id": workerID, "queue_id": queueID},
		bson.M{"$set": bson.M{"status": string(status), "last_modified": now}},
	)
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "update worker status")
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.NotFound, "worker %q not found", workerID)
	}
	return nil
}

// DeleteWorker removes a worker. If cascadeUpdate is true, every task
// currently assigned to it has its worker_id cleared (not its status
// transitioned — see DESIGN.md on this deliberately surprising behavior).
func (s *Store) DeleteWorker(ctx context.Context, queueID, workerID string, cascadeUpdate bool) error {
	res, err := s.workers.DeleteOne(ctx, bson.M{"_id": workerID, "queue_id": queueID})
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "delete worker")
	}
	if res.DeletedCount == 0 {
		return apperr.New(apperr.NotFound, "worker %q not found", workerID)
	}
	if cascadeUpdate {
		return s.ClearTaskWorker(ctx, queueID, workerID)
	}
	return nil
}
