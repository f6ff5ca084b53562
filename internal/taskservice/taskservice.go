// Package taskservice implements task submission, fetch-and-claim,
// status reporting, reset, cancel, query and update.
package taskservice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/maumercado/taskqueue/internal/apperr"
	"github.com/maumercado/taskqueue/internal/clock"
	"github.com/maumercado/taskqueue/internal/sanitize"
	"github.com/maumercado/taskqueue/internal/task"
	"go.mongodb.org/mongo-driver/bson"
)

// Store is the subset of the persistence layer this service needs.
type Store interface {
	InsertTask(ctx context.Context, t *task.Task) error
	GetTask(ctx context.Context, queueID, taskID string) (*task.Task, error)
	QueryTasks(ctx context.Context, queueID string, filter bson.M, offset, limit int64) ([]*task.Task, error)
	FetchTask(ctx context.Context, queueID, workerID string, extraFilter bson.M, heartbeatTimeout, taskTimeout *int, now time.Time) (*task.Task, error)
	ReplaceTask(ctx context.Context, t *task.Task) error
	RefreshHeartbeat(ctx context.Context, queueID, taskID string, now time.Time) error
	FindOneAndUpdateTask(ctx context.Context, queueID string, filter, update bson.M) (*task.Task, error)
	DeleteTask(ctx context.Context, queueID, taskID string) error
}

// WorkerLookup is the narrow worker-status check fetch needs: a worker
// that is not ACTIVE may not claim work.
type WorkerLookup interface {
	Get(ctx context.Context, queueID, workerID string) (*task.Worker, error)
}

// Service implements the task lifecycle operations.
type Service struct {
	store   Store
	workers WorkerLookup
	clock   clock.Clock
}

// New builds a Service backed by store and workers.
func New(store Store, workers WorkerLookup, clk clock.Clock) *Service {
	return &Service{store: store, workers: workers, clock: clk}
}

// SubmitParams carries the optional fields a submission may set; zero
// values mean "use the default".
type SubmitParams struct {
	TaskName         string
	Args             map[string]interface{}
	Metadata         map[string]interface{}
	Cmd              string
	HeartbeatTimeout *int
	TaskTimeout      *int
	MaxRetries       int
	Priority         int
}

// Submit creates a new PENDING task in queueID.
func (s *Service) Submit(ctx context.Context, queueID string, p SubmitParams) (*task.Task, error) {
	now := s.clock.Now()
	t := task.New(uuid.NewString(), queueID, now)
	t.TaskName = p.TaskName
	t.Cmd = p.Cmd
	t.HeartbeatTimeout = p.HeartbeatTimeout
	t.TaskTimeout = p.TaskTimeout
	if p.Args != nil {
		t.Args = p.Args
	}
	if p.Metadata != nil {
		t.Metadata = p.Metadata
	}
	if p.MaxRetries > 0 {
		t.MaxRetries = p.MaxRetries
	}
	if p.Priority != 0 {
		t.Priority = p.Priority
	}

	if err := s.store.InsertTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// FetchParams carries the optional fields a fetch may set.
type FetchParams struct {
	WorkerID         string
	HeartbeatTimeout *int
	TaskTimeout      *int
	RequiredFields   map[string]interface{}
	ExtraFilter      bson.M
}

// Fetch claims the highest-priority PENDING task (ties broken by oldest
// created_at) for a worker, or returns apperr.NotFound if none is
// currently claimable. The worker must be ACTIVE.
func (s *Service) Fetch(ctx context.Context, queueID string, p FetchParams) (*task.Task, error) {
	if p.WorkerID != "" {
		w, err := s.workers.Get(ctx, queueID, p.WorkerID)
		if err != nil {
			return nil, err
		}
		if !w.IsActive() {
			return nil, apperr.New(apperr.BadRequest, "worker %q is not active", p.WorkerID)
		}
	}

	extraFilter := p.ExtraFilter
	now := s.clock.Now()
	t, err := s.store.FetchTask(ctx, queueID, p.WorkerID, extraFilter, p.HeartbeatTimeout, p.TaskTimeout, now)
	if err != nil {
		return nil, err
	}

	if len(p.RequiredFields) > 0 && !sanitize.ArgMatch(toInterfaceMap(t.Args), toInterfaceMap(p.RequiredFields)) {
		// The claimed task doesn't structurally match required_fields.
		// It has already been claimed (RUNNING); release it back to
		// PENDING rather than leaving it stuck on a worker that will
		// never report it.
		_ = s.Reset(ctx, queueID, t.ID, nil)
		return nil, apperr.New(apperr.NotFound, "no pending task in queue %q matches required fields", queueID)
	}

	return t, nil
}

func toInterfaceMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

// Get fetches a single task.
func (s *Service) Get(ctx context.Context, queueID, taskID string) (*task.Task, error) {
	return s.store.GetTask(ctx, queueID, taskID)
}

// Query returns tasks matching a caller-supplied filter, sanitized and
// scoped to queueID.
func (s *Service) Query(ctx context.Context, queueID string, filter bson.M, offset, limit int64) ([]*task.Task, error) {
	if filter == nil {
		filter = bson.M{}
	}
	if _, err := sanitize.Query(queueID, filter); err != nil {
		return nil, err
	}
	return s.store.QueryTasks(ctx, queueID, filter, offset, limit)
}

// Update applies a sanitized, caller-supplied partial update to a task,
// without going through the FSM (used for adjusting metadata/args on a
// still-pending task, not for status transitions).
func (s *Service) Update(ctx context.Context, queueID, taskID string, update bson.M) (*task.Task, error) {
	setDoc, err := sanitize.Update(update)
	if err != nil {
		return nil, err
	}
	setDoc["$set"].(bson.M)["last_modified"] = s.clock.Now()
	return s.store.FindOneAndUpdateTask(ctx, queueID, bson.M{"_id": taskID}, setDoc)
}

// ReportStatus applies a worker's success/failed/cancelled report, driving
// the FSM. A failed report that still has retries left requeues the task
// to PENDING instead of landing on FAILED.
func (s *Service) ReportStatus(ctx context.Context, queueID, taskID string, status task.Status, summary map[string]interface{}) (*task.Task, error) {
	t, err := s.store.GetTask(ctx, queueID, taskID)
	if err != nil {
		return nil, err
	}
	m := task.NewMachine(t)
	if err := m.Report(status, summary, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.store.ReplaceTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// RefreshHeartbeat bumps last_heartbeat on a RUNNING task so the timeout
// sweeper does not mistake an actively-running task for a stalled one.
func (s *Service) RefreshHeartbeat(ctx context.Context, queueID, taskID string) error {
	return s.store.RefreshHeartbeat(ctx, queueID, taskID, s.clock.Now())
}

// Cancel is permissive: it moves a task to CANCELLED regardless of its
// current status, including terminal ones.
func (s *Service) Cancel(ctx context.Context, queueID, taskID string, summary map[string]interface{}) (*task.Task, error) {
	t, err := s.store.GetTask(ctx, queueID, taskID)
	if err != nil {
		return nil, err
	}
	m := task.NewMachine(t)
	_ = m.Cancel(summary, s.clock.Now()) // Cancel never errors.
	if err := s.store.ReplaceTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Reset is the administrative recovery event: returns a task to PENDING
// from any status, clearing retries and in-flight worker assignment.
// settingUpdate is an optional sanitized settings patch (task_name, args,
// metadata, cmd, heartbeat_timeout, task_timeout, max_retries, priority)
// applied before the reset, letting a caller fix up a task's settings as
// part of restarting it rather than requiring a separate Update call.
func (s *Service) Reset(ctx context.Context, queueID, taskID string, settingUpdate map[string]interface{}) error {
	t, err := s.store.GetTask(ctx, queueID, taskID)
	if err != nil {
		return err
	}
	if len(settingUpdate) > 0 {
		if _, err := sanitize.Update(settingUpdate); err != nil {
			return err
		}
		applyTaskSettingUpdate(t, settingUpdate)
	}
	m := task.NewMachine(t)
	_ = m.Reset(s.clock.Now()) // Reset never errors.
	return s.store.ReplaceTask(ctx, t)
}

// applyTaskSettingUpdate patches the settable fields of t from update.
// Nested map fields (args, metadata) are deep-merged key by key rather
// than replaced wholesale, matching the dotted-path patch semantics used
// elsewhere for summary updates.
func applyTaskSettingUpdate(t *task.Task, update map[string]interface{}) {
	for k, v := range update {
		switch k {
		case "task_name":
			if s, ok := v.(string); ok {
				t.TaskName = s
			}
		case "cmd":
			if s, ok := v.(string); ok {
				t.Cmd = s
			}
		case "args":
			if m, ok := toMap(v); ok {
				if t.Args == nil {
					t.Args = map[string]interface{}{}
				}
				mergeMap(t.Args, m)
			}
		case "metadata":
			if m, ok := toMap(v); ok {
				if t.Metadata == nil {
					t.Metadata = map[string]interface{}{}
				}
				mergeMap(t.Metadata, m)
			}
		case "heartbeat_timeout":
			if n, ok := toInt(v); ok {
				t.HeartbeatTimeout = &n
			}
		case "task_timeout":
			if n, ok := toInt(v); ok {
				t.TaskTimeout = &n
			}
		case "max_retries":
			if n, ok := toInt(v); ok {
				t.MaxRetries = n
			}
		case "priority":
			if n, ok := toInt(v); ok {
				t.Priority = n
			}
		}
	}
}

func toMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case bson.M:
		return map[string]interface{}(m), true
	case map[string]interface{}:
		return m, true
	default:
		return nil, false
	}
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func mergeMap(dst, src map[string]interface{}) {
	for k, v := range src {
		if srcSub, ok := toMap(v); ok {
			if dstSub, ok := toMap(dst[k]); ok {
				mergeMap(dstSub, srcSub)
				continue
			}
			merged := map[string]interface{}{}
			mergeMap(merged, srcSub)
			dst[k] = merged
			continue
		}
		dst[k] = v
	}
}

// Delete removes a task outright.
func (s *Service) Delete(ctx context.Context, queueID, taskID string) error {
	return s.store.DeleteTask(ctx, queueID, taskID)
}
