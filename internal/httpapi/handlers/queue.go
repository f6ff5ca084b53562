// Package handlers implements the HTTP handlers for the queue, task, and
// worker service-layer operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/maumercado/taskqueue/internal/httpapi/middleware"
	"github.com/maumercado/taskqueue/internal/logger"
	"github.com/maumercado/taskqueue/internal/queueservice"
)

// QueueHandler handles queue lifecycle requests.
type QueueHandler struct {
	queues *queueservice.Service
}

// NewQueueHandler creates a new queue handler.
func NewQueueHandler(queues *queueservice.Service) *QueueHandler {
	return &QueueHandler{queues: queues}
}

// CreateQueueRequest is the body of POST /queues.
type CreateQueueRequest struct {
	QueueName string                 `json:"queue_name"`
	Password  string                 `json:"password"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Create handles POST /queues.
func (h *QueueHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.QueueName == "" || req.Password == "" {
		h.respondError(w, http.StatusBadRequest, "queue_name and password are required")
		return
	}

	q, err := h.queues.Create(r.Context(), req.QueueName, req.Password, req.Metadata)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	logger.Info().Str("queue_id", q.ID).Str("queue_name", q.QueueName).Msg("queue created")
	h.respondJSON(w, http.StatusCreated, q)
}

// Get handles GET /queues/{queueName}. The queue was already resolved by
// the QueueAuth middleware, so this just returns it.
func (h *QueueHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := middleware.QueueFromContext(r.Context())
	h.respondJSON(w, http.StatusOK, q)
}

// UpdateQueueRequest is the body of PATCH /queues/{queueName}.
type UpdateQueueRequest struct {
	NewName        *string                `json:"new_name,omitempty"`
	NewPassword    *string                `json:"new_password,omitempty"`
	MetadataUpdate map[string]interface{} `json:"metadata_update,omitempty"`
}

// Update handles PATCH /queues/{queueName}.
func (h *QueueHandler) Update(w http.ResponseWriter, r *http.Request) {
	q := middleware.QueueFromContext(r.Context())

	var req UpdateQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.queues.Update(r.Context(), q.ID, req.NewName, req.NewPassword, req.MetadataUpdate)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /queues/{queueName}?cascade=true.
func (h *QueueHandler) Delete(w http.ResponseWriter, r *http.Request) {
	q := middleware.QueueFromContext(r.Context())
	cascade, _ := strconv.ParseBool(r.URL.Query().Get("cascade"))

	if err := h.queues.Delete(r.Context(), q.ID, cascade); err != nil {
		middleware.WriteError(w, err)
		return
	}

	logger.Info().Str("queue_id", q.ID).Bool("cascade", cascade).Msg("queue deleted")
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "queue deleted",
		"queue_id": q.ID,
	})
}

func (h *QueueHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (h *QueueHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

