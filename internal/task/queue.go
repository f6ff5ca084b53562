package task

import "time"

// Queue is a named, password-protected namespace that scopes every task
// and worker belonging to it.
type Queue struct {
	ID           string                 `bson:"_id" json:"queue_id"`
	QueueName    string                 `bson:"queue_name" json:"queue_name"`
	PasswordHash string                 `bson:"password_hash" json:"-"`
	Metadata     map[string]interface{} `bson:"metadata" json:"metadata"`
	CreatedAt    time.Time              `bson:"created_at" json:"created_at"`
	LastModified time.Time              `bson:"last_modified" json:"last_modified"`
}
