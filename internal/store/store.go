// Package store adapts the task/queue/worker service layer onto MongoDB,
// the one store in the retrieved stack that provides an atomic
// find-one-and-update-with-sort-and-return-after primitive, which the
// task fetch algorithm depends on (see internal/store/tasks.go FetchTask).
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	queuesCollection  = "queues"
	tasksCollection   = "tasks"
	workersCollection = "workers"
)

// Store wraps a MongoDB database handle with the typed collection
// operations the service layer needs.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	queues  *mongo.Collection
	tasks   *mongo.Collection
	workers *mongo.Collection
}

// Connect dials MongoDB at uri and opens database dbName.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(dbName)
	s := &Store{
		client:  client,
		db:      db,
		queues:  db.Collection(queuesCollection),
		tasks:   db.Collection(tasksCollection),
		workers: db.Collection(workersCollection),
	}
	return s, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the service layer relies on for
// uniqueness and for the fetch/sweep query patterns, matching spec §4.2.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.queues.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bsonD("queue_name", 1),
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("queue_name index: %w", err)
	}

	taskIndexes := []mongo.IndexModel{
		{Keys: bsonD("queue_id", 1)},
		{Keys: bsonD("status", 1)},
		{Keys: bsonD("priority", -1)},
		{Keys: bsonD("created_at", 1)},
	}
	if _, err := s.tasks.Indexes().CreateMany(ctx, taskIndexes); err != nil {
		return fmt.Errorf("task indexes: %w", err)
	}

	if _, err := s.workers.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bsonD("queue_id", 1),
	}); err != nil {
		return fmt.Errorf("worker index: %w", err)
	}
	return nil
}
