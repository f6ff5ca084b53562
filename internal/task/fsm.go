package task

import (
	"time"

	"github.com/maumercado/taskqueue/internal/apperr"
)

// Machine wraps a *Task and exposes the FSM events as methods, mutating
// the wrapped task and returning an apperr-kinded error on rejection.
type Machine struct {
	Task *Task
}

// NewMachine wraps an existing task for FSM transitions.
func NewMachine(t *Task) *Machine {
	return &Machine{Task: t}
}

// Fetch claims a PENDING task for workerID. Callers normally never invoke
// this directly: the store's atomic find-and-update already performs the
// PENDING->RUNNING transition as part of the claim (see store.FetchTask),
// so this exists for in-memory fakes and unit tests that exercise the FSM
// without a store round trip.
func (m *Machine) Fetch(workerID string, now time.Time) error {
	t := m.Task
	if t.Status != StatusPending {
		return apperr.New(apperr.InvalidTransition, "task %s is %s, not pending", t.ID, t.Status)
	}
	t.Status = StatusRunning
	t.WorkerID = &workerID
	t.StartTime = &now
	t.LastHeartbeat = &now
	t.LastModified = now
	return nil
}

// Heartbeat bumps last_heartbeat on a RUNNING task.
func (m *Machine) Heartbeat(now time.Time) error {
	t := m.Task
	if t.Status != StatusRunning {
		return apperr.New(apperr.InvalidTransition, "task %s is %s, not running", t.ID, t.Status)
	}
	t.LastHeartbeat = &now
	t.LastModified = now
	return nil
}

// Report applies a success/failed/cancelled report from a worker. A failed
// report that still has retries left requeues the task to PENDING instead
// of landing on FAILED; FAILED is reached only once retries are exhausted.
// cancelled reports route through Cancel's permissive semantics.
func (m *Machine) Report(status Status, summary map[string]interface{}, now time.Time) error {
	t := m.Task
	switch status {
	case StatusCancelled:
		return m.Cancel(summary, now)
	case StatusSuccess, StatusFailed:
		if t.Status != StatusRunning {
			return apperr.New(apperr.InvalidTransition, "task %s is %s, not running", t.ID, t.Status)
		}
	default:
		return apperr.New(apperr.BadRequest, "invalid report status %q", status)
	}

	mergeSummary(t, summary)
	t.LastModified = now

	if status == StatusSuccess {
		t.Status = StatusSuccess
		return nil
	}

	// status == StatusFailed
	if t.CanRetry() {
		t.Retries++
		t.Status = StatusPending
		t.WorkerID = nil
		t.StartTime = nil
		t.LastHeartbeat = nil
		return nil
	}
	t.Status = StatusFailed
	return nil
}

// Cancel is permissive: it moves a task to CANCELLED regardless of its
// current status, including already-terminal ones. This mirrors the
// origin system's behavior deliberately (see DESIGN.md) rather than
// rejecting cancels on tasks that already finished.
func (m *Machine) Cancel(summary map[string]interface{}, now time.Time) error {
	t := m.Task
	mergeSummary(t, summary)
	t.Status = StatusCancelled
	t.LastModified = now
	return nil
}

// Reset is the administrative recovery event: it returns a task to PENDING
// from any status, clearing retry count and in-flight worker assignment.
// It is the sole path back from FAILED or CANCELLED.
func (m *Machine) Reset(now time.Time) error {
	t := m.Task
	t.Status = StatusPending
	t.Retries = 0
	t.WorkerID = nil
	t.StartTime = nil
	t.LastHeartbeat = nil
	t.LastModified = now
	return nil
}

// mergeSummary deep-merges summary into t.Summary: a nested map patches
// its individual leaf keys into the existing sub-object instead of
// replacing it wholesale, the flattened-dotted-path merge semantics the
// origin system's summary update uses.
func mergeSummary(t *Task, summary map[string]interface{}) {
	if len(summary) == 0 {
		return
	}
	if t.Summary == nil {
		t.Summary = map[string]interface{}{}
	}
	deepMergeMap(t.Summary, summary)
}

func deepMergeMap(dst, src map[string]interface{}) {
	for k, v := range src {
		if srcSub, ok := v.(map[string]interface{}); ok {
			if dstSub, ok := dst[k].(map[string]interface{}); ok {
				deepMergeMap(dstSub, srcSub)
				continue
			}
			merged := map[string]interface{}{}
			deepMergeMap(merged, srcSub)
			dst[k] = merged
			continue
		}
		dst[k] = v
	}
}
