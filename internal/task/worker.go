package task

import "time"

// Worker is a registered execution agent scoped to one queue.
type Worker struct {
	ID           string                 `bson:"_id" json:"worker_id"`
	QueueID      string                 `bson:"queue_id" json:"queue_id"`
	Status       WorkerStatus           `bson:"status" json:"status"`
	WorkerName   string                 `bson:"worker_name,omitempty" json:"worker_name,omitempty"`
	Metadata     map[string]interface{} `bson:"metadata" json:"metadata"`
	Retries      int                    `bson:"retries" json:"retries"`
	MaxRetries   int                    `bson:"max_retries" json:"max_retries"`
	CreatedAt    time.Time              `bson:"created_at" json:"created_at"`
	LastModified time.Time              `bson:"last_modified" json:"last_modified"`
}

// IsActive reports whether the worker may currently fetch tasks.
func (w *Worker) IsActive() bool {
	return w.Status == WorkerActive
}
