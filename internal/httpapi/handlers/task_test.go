package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maumercado/taskqueue/internal/clock"
	"github.com/maumercado/taskqueue/internal/task"
	"github.com/maumercado/taskqueue/internal/taskservice"
	"github.com/maumercado/taskqueue/internal/workerservice"
)

func newTestTaskService() (*taskservice.Service, *memStore, *workerservice.Service) {
	store := newMemStore()
	clk := clock.NewMock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	workers := workerservice.New(store, clk)
	return taskservice.New(store, workers, clk), store, workers
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func testQueue() *task.Queue {
	return &task.Queue{ID: "q1", QueueName: "orders"}
}

func TestTaskHandler_Submit(t *testing.T) {
	svc, _, _ := newTestTaskService()
	h := NewTaskHandler(svc)

	body, _ := json.Marshal(SubmitTaskRequest{TaskName: "send_email"})
	req := withQueue(httptest.NewRequest(http.MethodPost, "/queues/orders/tasks", bytes.NewReader(body)), testQueue())
	w := httptest.NewRecorder()

	h.Submit(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp task.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, task.StatusPending, resp.Status)
	assert.Equal(t, "send_email", resp.TaskName)
}

func TestTaskHandler_Fetch_NoneAvailable(t *testing.T) {
	svc, _, _ := newTestTaskService()
	h := NewTaskHandler(svc)

	body, _ := json.Marshal(FetchTaskRequest{WorkerID: ""})
	req := withQueue(httptest.NewRequest(http.MethodPost, "/queues/orders/tasks/fetch", bytes.NewReader(body)), testQueue())
	w := httptest.NewRecorder()

	h.Fetch(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaskHandler_SubmitThenFetch(t *testing.T) {
	svc, _, _ := newTestTaskService()
	h := NewTaskHandler(svc)
	q := testQueue()

	submitBody, _ := json.Marshal(SubmitTaskRequest{TaskName: "send_email"})
	submitReq := withQueue(httptest.NewRequest(http.MethodPost, "/queues/orders/tasks", bytes.NewReader(submitBody)), q)
	submitW := httptest.NewRecorder()
	h.Submit(submitW, submitReq)
	require.Equal(t, http.StatusCreated, submitW.Code)

	fetchBody, _ := json.Marshal(FetchTaskRequest{})
	fetchReq := withQueue(httptest.NewRequest(http.MethodPost, "/queues/orders/tasks/fetch", bytes.NewReader(fetchBody)), q)
	fetchW := httptest.NewRecorder()
	h.Fetch(fetchW, fetchReq)

	require.Equal(t, http.StatusOK, fetchW.Code)
	var fetched task.Task
	require.NoError(t, json.Unmarshal(fetchW.Body.Bytes(), &fetched))
	assert.Equal(t, task.StatusRunning, fetched.Status)
}

func TestTaskHandler_ReportStatus_InvalidStatus(t *testing.T) {
	svc, _, _ := newTestTaskService()
	h := NewTaskHandler(svc)

	body, _ := json.Marshal(ReportStatusRequest{Status: "bogus"})
	req := withQueue(httptest.NewRequest(http.MethodPost, "/queues/orders/tasks/t1/status", bytes.NewReader(body)), testQueue())
	req = withURLParam(req, "taskID", "t1")
	w := httptest.NewRecorder()

	h.ReportStatus(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_ReportStatus_Success(t *testing.T) {
	svc, store, _ := newTestTaskService()
	h := NewTaskHandler(svc)
	q := testQueue()
	now := time.Now()
	t1 := task.New("t1", q.ID, now)
	t1.Status = task.StatusRunning
	t1.StartTime = &now
	store.tasks["t1"] = t1

	body, _ := json.Marshal(ReportStatusRequest{Status: "success", Summary: map[string]interface{}{"ok": true}})
	req := withQueue(httptest.NewRequest(http.MethodPost, "/queues/orders/tasks/t1/status", bytes.NewReader(body)), q)
	req = withURLParam(req, "taskID", "t1")
	w := httptest.NewRecorder()

	h.ReportStatus(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp task.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, task.StatusSuccess, resp.Status)
}

func TestTaskHandler_Cancel_PermissiveFromTerminal(t *testing.T) {
	svc, store, _ := newTestTaskService()
	h := NewTaskHandler(svc)
	q := testQueue()
	t1 := task.New("t1", q.ID, time.Now())
	t1.Status = task.StatusSuccess
	store.tasks["t1"] = t1

	req := withQueue(httptest.NewRequest(http.MethodPost, "/queues/orders/tasks/t1/cancel", nil), q)
	req = withURLParam(req, "taskID", "t1")
	w := httptest.NewRecorder()

	h.Cancel(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp task.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, task.StatusCancelled, resp.Status)
}

func TestTaskHandler_Reset_AppliesSettingUpdate(t *testing.T) {
	svc, store, _ := newTestTaskService()
	h := NewTaskHandler(svc)
	q := testQueue()
	t1 := task.New("t1", q.ID, time.Now())
	t1.Status = task.StatusFailed
	t1.Retries = 3
	t1.Cmd = "old"
	store.tasks["t1"] = t1

	body, _ := json.Marshal(ResetTaskRequest{TaskSettingUpdate: map[string]interface{}{"cmd": "new"}})
	req := withQueue(httptest.NewRequest(http.MethodPost, "/queues/orders/tasks/t1/reset", bytes.NewReader(body)), q)
	req = withURLParam(req, "taskID", "t1")
	w := httptest.NewRecorder()

	h.Reset(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, task.StatusPending, store.tasks["t1"].Status)
	assert.Equal(t, 0, store.tasks["t1"].Retries)
	assert.Equal(t, "new", store.tasks["t1"].Cmd)
}

func TestTaskHandler_Heartbeat_NotRunning(t *testing.T) {
	svc, store, _ := newTestTaskService()
	h := NewTaskHandler(svc)
	q := testQueue()
	t1 := task.New("t1", q.ID, time.Now())
	store.tasks["t1"] = t1 // still pending

	req := withQueue(httptest.NewRequest(http.MethodPost, "/queues/orders/tasks/t1/heartbeat", nil), q)
	req = withURLParam(req, "taskID", "t1")
	w := httptest.NewRecorder()

	h.Heartbeat(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaskHandler_Delete(t *testing.T) {
	svc, store, _ := newTestTaskService()
	h := NewTaskHandler(svc)
	q := testQueue()
	t1 := task.New("t1", q.ID, time.Now())
	store.tasks["t1"] = t1

	req := withQueue(httptest.NewRequest(http.MethodDelete, "/queues/orders/tasks/t1", nil), q)
	req = withURLParam(req, "taskID", "t1")
	w := httptest.NewRecorder()

	h.Delete(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	_, err := svc.Get(context.Background(), q.ID, "t1")
	assert.Error(t, err)
}
