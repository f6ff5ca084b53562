package store

import (
	"context"

	"github.com/maumercado/taskqueue/internal/apperr"
	"github.com/maumercado/taskqueue/internal/task"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InsertQueue persists a new queue. It returns apperr.Conflict if
// queue_name already exists.
func (s *Store) InsertQueue(ctx context.Context, q *task.Queue) error {
	if _, err := s.queues.InsertOne(ctx, q); err != nil {
		if IsDuplicateKey(err) {
			return apperr.New(apperr.Conflict, "queue %q already exists", q.QueueName)
		}
		return apperr.Wrap(apperr.Internal, err, "insert queue")
	}
	return nil
}

// GetQueueByName fetches a queue by its unique name.
func (s *Store) GetQueueByName(ctx context.Context, name string) (*task.Queue, error) {
	var q task.Queue
	err := s.queues.FindOne(ctx, bson.M{"queue_name": name}).Decode(&q)
	return decodeQueueResult(&q, err, name)
}

// GetQueueByID fetches a queue by its id.
func (s *Store) GetQueueByID(ctx context.Context, id string) (*task.Queue, error) {
	var q task.Queue
	err := s.queues.FindOne(ctx, bson.M{"_id": id}).Decode(&q)
	return decodeQueueResult(&q, err, id)
}

func decodeQueueResult(q *task.Queue, err error, ref string) (*task.Queue, error) {
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.New(apperr.NotFound, "queue %q not found", ref)
		}
		return nil, apperr.Wrap(apperr.Internal, err, "find queue")
	}
	return q, nil
}

// ReplaceQueue persists the full updated queue document.
func (s *Store) ReplaceQueue(ctx context.Context, q *task.Queue) error {
	res, err := s.queues.ReplaceOne(ctx, bson.M{"_id": q.ID}, q)
	if err != nil {
		if IsDuplicateKey(err) {
			return apperr.New(apperr.Conflict, "queue %q already exists", q.QueueName)
		}
		return apperr.Wrap(apperr.Internal, err, "replace queue")
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.NotFound, "queue %q not found", q.ID)
	}
	return nil
}

// DeleteQueue removes a queue document. If cascade is true it also deletes
// every task and worker scoped to the queue.
func (s *Store) DeleteQueue(ctx context.Context, id string, cascade bool) error {
	res, err := s.queues.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "delete queue")
	}
	if res.DeletedCount == 0 {
		return apperr.New(apperr.NotFound, "queue %q not found", id)
	}
	if !cascade {
		return nil
	}
	if _, err := s.tasks.DeleteMany(ctx, bson.M{"queue_id": id}); err != nil {
		return apperr.Wrap(apperr.Internal, err, "cascade delete tasks")
	}
	if _, err := s.workers.DeleteMany(ctx, bson.M{"queue_id": id}); err != nil {
		return apperr.Wrap(apperr.Internal, err, "cascade delete workers")
	}
	return nil
}

// FindOneAndUpdateQueue applies an already-sanitized update document to the
// queue and returns the post-update document, mirroring the atomic
// return-after pattern used for task fetch.
func (s *Store) FindOneAndUpdateQueue(ctx context.Context, id string, update bson.M) (*task.Queue, error) {
	var q task.Queue
	err := s.queues.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&q)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.New(apperr.NotFound, "queue %q not found", id)
		}
		return nil, apperr.Wrap(apperr.Internal, err, "update queue")
	}
	return &q, nil
}
