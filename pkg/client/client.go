package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/maumercado/taskqueue/internal/task"
)

// APIError is returned for any non-2xx HTTP response. Callers that need to
// branch on the failure should inspect StatusCode rather than parse Message.
type APIError struct {
	StatusCode int
	ErrorText  string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.ErrorText, e.StatusCode, e.Message)
}

// Client is a thin HTTP client for the task queue API.
type Client struct {
	baseURL string
	opts    *options
}

// New creates a new Client pointed at baseURL.
func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &Client{baseURL: baseURL, opts: o}
}

// CreateQueueRequest is the body of POST /queues.
type CreateQueueRequest struct {
	QueueName string                 `json:"queue_name"`
	Password  string                 `json:"password"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// CreateQueue provisions a new queue. Requires an operator credential set
// via WithAPIKey.
func (c *Client) CreateQueue(ctx context.Context, name, password string, metadata map[string]interface{}) (*task.Queue, error) {
	var q task.Queue
	req := CreateQueueRequest{QueueName: name, Password: password, Metadata: metadata}
	if err := c.do(ctx, http.MethodPost, "/queues", nil, req, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// Queue returns a QueueClient scoped to a single queue, authenticated with
// that queue's own password.
func (c *Client) Queue(name, password string) *QueueClient {
	return &QueueClient{c: c, name: name, password: password}
}

// do issues an HTTP request against path, decodes a JSON body into out, and
// translates non-2xx responses into *APIError.
func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if err := c.opts.applyHeaders()(ctx, req); err != nil {
		return fmt.Errorf("apply request headers: %w", err)
	}

	resp, err := c.opts.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{StatusCode: resp.StatusCode, ErrorText: apiErr.Error, Message: apiErr.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// QueueClient is a Client bound to a single queue's name and password,
// authenticating every request via the X-Queue-Password header.
type QueueClient struct {
	c        *Client
	name     string
	password string
}

func (q *QueueClient) headers() map[string]string {
	return map[string]string{"X-Queue-Password": q.password}
}

func (q *QueueClient) path(suffix string) string {
	return "/queues/" + q.name + suffix
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

// SubmitTask creates a new PENDING task in this queue.
func (q *QueueClient) SubmitTask(ctx context.Context, req SubmitTaskRequest) (*task.Task, error) {
	var t task.Task
	if err := q.c.do(ctx, http.MethodPost, q.path("/tasks"), q.headers(), req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// FetchTaskRequest is the body of POST /queues/{queueName}/tasks/fetch.
type FetchTaskRequest struct {
	WorkerID         string                 `json:"worker_id,omitempty"`
	HeartbeatTimeout *int                   `json:"heartbeat_timeout,omitempty"`
	TaskTimeout      *int                   `json:"task_timeout,omitempty"`
	RequiredFields   map[string]interface{} `json:"required_fields,omitempty"`
	ExtraFilter      map[string]interface{} `json:"extra_filter,omitempty"`
}

// FetchTask claims the highest-priority pending task, or returns an
// *APIError with StatusCode 404 if none is currently claimable.
func (q *QueueClient) FetchTask(ctx context.Context, req FetchTaskRequest) (*task.Task, error) {
	var t task.Task
	if err := q.c.do(ctx, http.MethodPost, q.path("/tasks/fetch"), q.headers(), req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTask retrieves a single task by ID.
func (q *QueueClient) GetTask(ctx context.Context, taskID string) (*task.Task, error) {
	var t task.Task
	if err := q.c.do(ctx, http.MethodGet, q.path("/tasks/"+taskID), q.headers(), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ReportStatus reports a terminal or retryable outcome for a task the
// caller currently holds.
func (q *QueueClient) ReportStatus(ctx context.Context, taskID, status string, summary map[string]interface{}) (*task.Task, error) {
	var t task.Task
	body := map[string]interface{}{"status": status, "summary": summary}
	if err := q.c.do(ctx, http.MethodPost, q.path("/tasks/"+taskID+"/status"), q.headers(), body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Heartbeat refreshes a RUNNING task's last-heartbeat timestamp.
func (q *QueueClient) Heartbeat(ctx context.Context, taskID string) error {
	return q.c.do(ctx, http.MethodPost, q.path("/tasks/"+taskID+"/heartbeat"), q.headers(), nil, nil)
}

// CancelTask cancels a task regardless of its current status.
func (q *QueueClient) CancelTask(ctx context.Context, taskID string, summary map[string]interface{}) (*task.Task, error) {
	var t task.Task
	body := map[string]interface{}{"summary": summary}
	if err := q.c.do(ctx, http.MethodPost, q.path("/tasks/"+taskID+"/cancel"), q.headers(), body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ResetTask returns a task to PENDING from any status. settingUpdate is an
// optional settings patch (e.g. cmd, args, heartbeat_timeout) applied as
// part of the reset; pass nil to reset without changing settings.
func (q *QueueClient) ResetTask(ctx context.Context, taskID string, settingUpdate map[string]interface{}) error {
	body := map[string]interface{}{"task_setting_update": settingUpdate}
	return q.c.do(ctx, http.MethodPost, q.path("/tasks/"+taskID+"/reset"), q.headers(), body, nil)
}

// DeleteTask removes a task outright.
func (q *QueueClient) DeleteTask(ctx context.Context, taskID string) error {
	return q.c.do(ctx, http.MethodDelete, q.path("/tasks/"+taskID), q.headers(), nil, nil)
}

// RegisterWorkerRequest is the body of POST /queues/{queueName}/workers.
type RegisterWorkerRequest struct {
	WorkerName string                 `json:"worker_name,omitempty"`
	MaxRetries int                    `json:"max_retries,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// RegisterWorker registers a new worker in this queue.
func (q *QueueClient) RegisterWorker(ctx context.Context, req RegisterWorkerRequest) (*task.Worker, error) {
	var w task.Worker
	if err := q.c.do(ctx, http.MethodPost, q.path("/workers"), q.headers(), req, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// SetWorkerStatus updates a worker's status (active/suspended).
func (q *QueueClient) SetWorkerStatus(ctx context.Context, workerID, status string) error {
	body := map[string]interface{}{"status": status}
	return q.c.do(ctx, http.MethodPost, q.path("/workers/"+workerID+"/status"), q.headers(), body, nil)
}

// DeleteWorker removes a worker. If cascade is true, any task the worker
// was running has its worker_id cleared rather than its status changed.
func (q *QueueClient) DeleteWorker(ctx context.Context, workerID string, cascade bool) error {
	path := q.path("/workers/" + workerID)
	if cascade {
		path += "?cascade_update=true"
	}
	return q.c.do(ctx, http.MethodDelete, path, q.headers(), nil, nil)
}
