package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/maumercado/taskqueue/internal/clock"
	"github.com/maumercado/taskqueue/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	stalled  []*task.Task
	replaced []*task.Task
}

func (f *fakeStore) StalledRunningTasks(ctx context.Context, now time.Time) ([]*task.Task, error) {
	return f.stalled, nil
}

func (f *fakeStore) ReplaceTask(ctx context.Context, t *task.Task) error {
	f.replaced = append(f.replaced, t)
	return nil
}

func runningTask(id string, maxRetries int) *task.Task {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t := task.New(id, "q1", now)
	t.MaxRetries = maxRetries
	wid := "w1"
	t.WorkerID = &wid
	t.Status = task.StatusRunning
	start := now
	t.StartTime = &start
	t.LastHeartbeat = &start
	return t
}

func TestSweeper_FailsStalledTasks(t *testing.T) {
	tk := runningTask("t1", 0)
	store := &fakeStore{stalled: []*task.Task{tk}}
	clk := clock.NewMock(time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC))
	sw := New(store, clk, time.Minute)

	n, err := sw.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, task.StatusFailed, tk.Status)
	assert.Contains(t, tk.Summary, "labtasker_error")
	require.Len(t, store.replaced, 1)
}

func TestSweeper_RequeuesWhenRetriesRemain(t *testing.T) {
	tk := runningTask("t1", 3)
	store := &fakeStore{stalled: []*task.Task{tk}}
	clk := clock.NewMock(time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC))
	sw := New(store, clk, time.Minute)

	n, err := sw.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, task.StatusPending, tk.Status)
	assert.Equal(t, 1, tk.Retries)
}

func TestSweeper_ToleratesPerTaskTransitionFailure(t *testing.T) {
	bad := runningTask("bad", 0)
	bad.Status = task.StatusSuccess // already terminal: Report will reject this
	good := runningTask("good", 0)
	store := &fakeStore{stalled: []*task.Task{bad, good}}
	clk := clock.NewMock(time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC))
	sw := New(store, clk, time.Minute)

	n, err := sw.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, task.StatusFailed, good.Status)
}
