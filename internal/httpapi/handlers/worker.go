package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/maumercado/taskqueue/internal/httpapi/middleware"
	"github.com/maumercado/taskqueue/internal/logger"
	"github.com/maumercado/taskqueue/internal/task"
	"github.com/maumercado/taskqueue/internal/workerservice"
)

// WorkerHandler handles worker registration, listing, status, and
// deletion requests.
type WorkerHandler struct {
	workers *workerservice.Service
}

// NewWorkerHandler creates a new worker handler.
func NewWorkerHandler(workers *workerservice.Service) *WorkerHandler {
	return &WorkerHandler{workers: workers}
}

// RegisterWorkerRequest is the body of POST /queues/{queueName}/workers.
type RegisterWorkerRequest struct {
	WorkerName string                 `json:"worker_name,omitempty"`
	MaxRetries int                    `json:"max_retries,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Register handles POST /queues/{queueName}/workers.
func (h *WorkerHandler) Register(w http.ResponseWriter, r *http.Request) {
	q := middleware.QueueFromContext(r.Context())

	var req RegisterWorkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	worker, err := h.workers.Register(r.Context(), q.ID, req.WorkerName, req.MaxRetries, req.Metadata)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	logger.Info().Str("queue_id", q.ID).Str("worker_id", worker.ID).Msg("worker registered")
	h.respondJSON(w, http.StatusCreated, worker)
}

// Get handles GET /queues/{queueName}/workers/{workerID}.
func (h *WorkerHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := middleware.QueueFromContext(r.Context())
	workerID := chi.URLParam(r, "workerID")

	worker, err := h.workers.Get(r.Context(), q.ID, workerID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, worker)
}

// List handles GET /queues/{queueName}/workers?offset=&limit=.
func (h *WorkerHandler) List(w http.ResponseWriter, r *http.Request) {
	q := middleware.QueueFromContext(r.Context())
	offset, limit := parsePage(r)

	workers, err := h.workers.List(r.Context(), q.ID, bson.M{}, offset, limit)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"workers": workers,
		"count":   len(workers),
	})
}

// SetStatusRequest is the body of POST /queues/{queueName}/workers/{workerID}/status.
type SetStatusRequest struct {
	Status string `json:"status"`
}

// SetStatus handles POST /queues/{queueName}/workers/{workerID}/status.
func (h *WorkerHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	q := middleware.QueueFromContext(r.Context())
	workerID := chi.URLParam(r, "workerID")

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, ok := task.ParseWorkerStatus(req.Status)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "unrecognized status: "+req.Status)
		return
	}

	if err := h.workers.SetStatus(r.Context(), q.ID, workerID, status); err != nil {
		middleware.WriteError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"worker_id": workerID,
		"status":    status,
	})
}

// Delete handles DELETE /queues/{queueName}/workers/{workerID}?cascade_update=true.
func (h *WorkerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	q := middleware.QueueFromContext(r.Context())
	workerID := chi.URLParam(r, "workerID")
	cascadeUpdate := r.URL.Query().Get("cascade_update") == "true"

	if err := h.workers.Delete(r.Context(), q.ID, workerID, cascadeUpdate); err != nil {
		middleware.WriteError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "worker deleted",
		"worker_id": workerID,
	})
}

func (h *WorkerHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (h *WorkerHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}
