package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/maumercado/taskqueue/internal/httpapi/middleware"
	"github.com/maumercado/taskqueue/internal/logger"
	"github.com/maumercado/taskqueue/internal/metrics"
	"github.com/maumercado/taskqueue/internal/task"
	"github.com/maumercado/taskqueue/internal/taskservice"
)

// TaskHandler handles task submission, fetch-and-claim, reporting, and
// query/update requests.
type TaskHandler struct {
	tasks *taskservice.Service
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(tasks *taskservice.Service) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// SubmitTaskRequest is the body of POST /queues/{queueName}/tasks.
type SubmitTaskRequest struct {
	TaskName         string                 `json:"task_name,omitempty"`
	Args             map[string]interface{} `json:"args,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	Cmd              string                 `json:"cmd,omitempty"`
	HeartbeatTimeout *int                   `json:"heartbeat_timeout,omitempty"`
	TaskTimeout      *int                   `json:"task_timeout,omitempty"`
	MaxRetries       int                    `json:"max_retries,omitempty"`
	Priority         int                    `json:"priority,omitempty"`
}

// Submit handles POST /queues/{queueName}/tasks.
func (h *TaskHandler) Submit(w http.ResponseWriter, r *http.Request) {
	q := middleware.QueueFromContext(r.Context())

	var req SubmitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.tasks.Submit(r.Context(), q.ID, taskservice.SubmitParams{
		TaskName:         req.TaskName,
		Args:             req.Args,
		Metadata:         req.Metadata,
		Cmd:              req.Cmd,
		HeartbeatTimeout: req.HeartbeatTimeout,
		TaskTimeout:      req.TaskTimeout,
		MaxRetries:       req.MaxRetries,
		Priority:         req.Priority,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	metrics.RecordTaskSubmission(q.QueueName)
	logger.Info().Str("queue_id", q.ID).Str("task_id", t.ID).Msg("task submitted")
	h.respondJSON(w, http.StatusCreated, t)
}

// FetchTaskRequest is the body of POST /queues/{queueName}/tasks/fetch.
type FetchTaskRequest struct {
	WorkerID         string                 `json:"worker_id,omitempty"`
	HeartbeatTimeout *int                   `json:"heartbeat_timeout,omitempty"`
	TaskTimeout      *int                   `json:"task_timeout,omitempty"`
	RequiredFields   map[string]interface{} `json:"required_fields,omitempty"`
	ExtraFilter      map[string]interface{} `json:"extra_filter,omitempty"`
}

// Fetch handles POST /queues/{queueName}/tasks/fetch.
func (h *TaskHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	q := middleware.QueueFromContext(r.Context())

	var req FetchTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var extraFilter bson.M
	if req.ExtraFilter != nil {
		extraFilter = bson.M(req.ExtraFilter)
	}

	t, err := h.tasks.Fetch(r.Context(), q.ID, taskservice.FetchParams{
		WorkerID:         req.WorkerID,
		HeartbeatTimeout: req.HeartbeatTimeout,
		TaskTimeout:      req.TaskTimeout,
		RequiredFields:   req.RequiredFields,
		ExtraFilter:      extraFilter,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	metrics.RecordTaskFetch(q.QueueName)
	h.respondJSON(w, http.StatusOK, t)
}

// Get handles GET /queues/{queueName}/tasks/{taskID}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := middleware.QueueFromContext(r.Context())
	taskID := chi.URLParam(r, "taskID")

	t, err := h.tasks.Get(r.Context(), q.ID, taskID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, t)
}

// Query handles GET /queues/{queueName}/tasks?filter=<json>&offset=&limit=.
func (h *TaskHandler) Query(w http.ResponseWriter, r *http.Request) {
	q := middleware.QueueFromContext(r.Context())

	filter := bson.M{}
	if raw := r.URL.Query().Get("filter"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &filter); err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid filter: not valid JSON")
			return
		}
	}
	offset, limit := parsePage(r)

	tasks, err := h.tasks.Query(r.Context(), q.ID, filter, offset, limit)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// Update handles PATCH /queues/{queueName}/tasks/{taskID}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	q := middleware.QueueFromContext(r.Context())
	taskID := chi.URLParam(r, "taskID")

	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.tasks.Update(r.Context(), q.ID, taskID, bson.M(body))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, t)
}

// ReportStatusRequest is the body of POST /queues/{queueName}/tasks/{taskID}/status.
type ReportStatusRequest struct {
	Status  string                 `json:"status"`
	Summary map[string]interface{} `json:"summary,omitempty"`
}

// ReportStatus handles POST /queues/{queueName}/tasks/{taskID}/status.
func (h *TaskHandler) ReportStatus(w http.ResponseWriter, r *http.Request) {
	q := middleware.QueueFromContext(r.Context())
	taskID := chi.URLParam(r, "taskID")

	var req ReportStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, ok := task.ParseStatus(req.Status)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "unrecognized status: "+req.Status)
		return
	}

	t, err := h.tasks.ReportStatus(r.Context(), q.ID, taskID, status, req.Summary)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	if t.Status.IsTerminal() {
		duration := 0.0
		if t.StartTime != nil {
			duration = t.LastModified.Sub(*t.StartTime).Seconds()
		}
		metrics.RecordTaskCompletion(q.QueueName, string(t.Status), duration)
	} else {
		metrics.RecordTaskRetry(q.QueueName)
	}

	h.respondJSON(w, http.StatusOK, t)
}

// Heartbeat handles POST /queues/{queueName}/tasks/{taskID}/heartbeat.
func (h *TaskHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	q := middleware.QueueFromContext(r.Context())
	taskID := chi.URLParam(r, "taskID")

	if err := h.tasks.RefreshHeartbeat(r.Context(), q.ID, taskID); err != nil {
		middleware.WriteError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"message": "heartbeat refreshed"})
}

// CancelTaskRequest is the body of POST /queues/{queueName}/tasks/{taskID}/cancel.
type CancelTaskRequest struct {
	Summary map[string]interface{} `json:"summary,omitempty"`
}

// Cancel handles POST /queues/{queueName}/tasks/{taskID}/cancel.
func (h *TaskHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	q := middleware.QueueFromContext(r.Context())
	taskID := chi.URLParam(r, "taskID")

	var req CancelTaskRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // a body is optional here

	t, err := h.tasks.Cancel(r.Context(), q.ID, taskID, req.Summary)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	logger.Info().Str("queue_id", q.ID).Str("task_id", taskID).Msg("task cancelled")
	h.respondJSON(w, http.StatusOK, t)
}

// ResetTaskRequest is the body of POST /queues/{queueName}/tasks/{taskID}/reset.
type ResetTaskRequest struct {
	TaskSettingUpdate map[string]interface{} `json:"task_setting_update,omitempty"`
}

// Reset handles POST /queues/{queueName}/tasks/{taskID}/reset, the
// administrative recovery event that returns a task to PENDING from any
// status. The optional task_setting_update body patches the task's
// settings (e.g. cmd, args, heartbeat_timeout) as part of the reset.
func (h *TaskHandler) Reset(w http.ResponseWriter, r *http.Request) {
	q := middleware.QueueFromContext(r.Context())
	taskID := chi.URLParam(r, "taskID")

	var req ResetTaskRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // a body is optional here

	if err := h.tasks.Reset(r.Context(), q.ID, taskID, req.TaskSettingUpdate); err != nil {
		middleware.WriteError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"message": "task reset to pending"})
}

// Delete handles DELETE /queues/{queueName}/tasks/{taskID}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	q := middleware.QueueFromContext(r.Context())
	taskID := chi.URLParam(r, "taskID")

	if err := h.tasks.Delete(r.Context(), q.ID, taskID); err != nil {
		middleware.WriteError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "task deleted",
		"task_id": taskID,
	})
}

func parsePage(r *http.Request) (offset, limit int64) {
	limit = 100
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil && v >= 0 {
			offset = v
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil && v > 0 {
			limit = v
		}
	}
	return offset, limit
}

func (h *TaskHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (h *TaskHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}
