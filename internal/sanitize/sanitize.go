// Package sanitize enforces the guardrails every caller-supplied query or
// update must pass through before it reaches the store: queue scoping,
// reserved-field protection on updates, and a ban on map keys that begin
// with "$" (Mongo operators) or "." smuggled in through a map key.
package sanitize

import (
	"strings"

	"github.com/maumercado/taskqueue/internal/apperr"
	"go.mongodb.org/mongo-driver/bson"
)

// ReservedUpdateFields can never be set by a caller-supplied update; they
// are owned by the store/service layer.
var ReservedUpdateFields = []string{"_id", "queue_id", "created_at", "last_modified"}

// Query wraps a caller-supplied filter with the queue scope, so a filter
// can never reach across queues regardless of what the caller passed.
func Query(queueID string, filter bson.M) (bson.M, error) {
	if err := checkDict(filter); err != nil {
		return nil, err
	}
	if qid, ok := filter["queue_id"]; ok && qid != queueID {
		return nil, apperr.New(apperr.BadRequest, "queue_id in filter does not match scope")
	}
	return bson.M{"$and": []bson.M{{"queue_id": queueID}, filter}}, nil
}

// Update validates a caller-supplied update document: it must not touch
// any reserved field, and none of its keys, at any depth, may begin with
// "$" or "." (a key with a dot elsewhere in it, such as "a.b", is accepted).
func Update(update bson.M, extraBanned ...string) (bson.M, error) {
	if err := checkDict(update); err != nil {
		return nil, err
	}
	banned := append(append([]string{}, ReservedUpdateFields...), extraBanned...)
	if err := checkBanned(update, banned); err != nil {
		return nil, err
	}
	return bson.M{"$set": update}, nil
}

// checkBanned recursively rejects any key in banned, at any nesting depth,
// the same recursion shape as checkDict so a reserved field can't be
// smuggled in inside a nested mapping (e.g. metadata.queue_id).
func checkBanned(v interface{}, banned []string) error {
	m, ok := v.(bson.M)
	if !ok {
		if asMap, ok2 := v.(map[string]interface{}); ok2 {
			m = bson.M(asMap)
		} else {
			return nil
		}
	}
	for k, val := range m {
		for _, b := range banned {
			if k == b {
				return apperr.New(apperr.BadRequest, "field %q cannot be updated", k)
			}
		}
		if err := checkBanned(val, banned); err != nil {
			return err
		}
	}
	return nil
}

// checkDict recursively rejects any key starting with "$" (a Mongo
// operator) or "." (a dotted path), the same guard as db_utils.py's
// sanitize_dict, applied to both queries and updates.
func checkDict(v interface{}) error {
	m, ok := v.(bson.M)
	if !ok {
		if asMap, ok2 := v.(map[string]interface{}); ok2 {
			m = bson.M(asMap)
		} else {
			return nil
		}
	}
	for k, val := range m {
		if strings.HasPrefix(k, "$") || strings.HasPrefix(k, ".") {
			return apperr.New(apperr.BadRequest, "field %q is not allowed", k)
		}
		if err := checkDict(val); err != nil {
			return err
		}
	}
	return nil
}
