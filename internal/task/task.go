package task

import "time"

// Task is a unit of work submitted into a queue.
type Task struct {
	ID               string                 `bson:"_id" json:"task_id"`
	QueueID          string                 `bson:"queue_id" json:"queue_id"`
	Status           Status                 `bson:"status" json:"status"`
	TaskName         string                 `bson:"task_name,omitempty" json:"task_name,omitempty"`
	Args             map[string]interface{} `bson:"args" json:"args"`
	Metadata         map[string]interface{} `bson:"metadata" json:"metadata"`
	Cmd              string                 `bson:"cmd,omitempty" json:"cmd,omitempty"`
	CreatedAt        time.Time              `bson:"created_at" json:"created_at"`
	StartTime        *time.Time             `bson:"start_time,omitempty" json:"start_time,omitempty"`
	LastHeartbeat    *time.Time             `bson:"last_heartbeat,omitempty" json:"last_heartbeat,omitempty"`
	LastModified     time.Time              `bson:"last_modified" json:"last_modified"`
	HeartbeatTimeout *int                   `bson:"heartbeat_timeout,omitempty" json:"heartbeat_timeout,omitempty"`
	TaskTimeout      *int                   `bson:"task_timeout,omitempty" json:"task_timeout,omitempty"`
	MaxRetries       int                    `bson:"max_retries" json:"max_retries"`
	Retries          int                    `bson:"retries" json:"retries"`
	Priority         int                    `bson:"priority" json:"priority"`
	Summary          map[string]interface{} `bson:"summary" json:"summary"`
	WorkerID         *string                `bson:"worker_id,omitempty" json:"worker_id,omitempty"`
}

// CanRetry reports whether a failed task still has attempts left: the
// transition table requeues to PENDING only while retries+1 < max_retries,
// so FAILED is reached on the max_retries-th fail event, not the
// (max_retries+1)-th.
func (t *Task) CanRetry() bool {
	return t.Retries+1 < t.MaxRetries
}

// New builds a task in its initial PENDING state.
func New(id, queueID string, now time.Time) *Task {
	return &Task{
		ID:           id,
		QueueID:      queueID,
		Status:       StatusPending,
		Args:         map[string]interface{}{},
		Metadata:     map[string]interface{}{},
		Summary:      map[string]interface{}{},
		CreatedAt:    now,
		LastModified: now,
		Priority:     int(PriorityMedium),
		MaxRetries:   3,
	}
}
