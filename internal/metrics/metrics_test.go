package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistration(t *testing.T) {
	assert.NotNil(t, TasksSubmitted)
	assert.NotNil(t, TasksFetched)
	assert.NotNil(t, TasksCompleted)
	assert.NotNil(t, TaskDuration)
	assert.NotNil(t, TaskRetries)
	assert.NotNil(t, TasksSwept)

	assert.NotNil(t, QueueDepth)

	assert.NotNil(t, ActiveWorkers)

	assert.NotNil(t, HTTPRequestDuration)
	assert.NotNil(t, HTTPRequestsTotal)

	assert.NotNil(t, StoreOperationDuration)
	assert.NotNil(t, StoreErrors)

	assert.NotNil(t, SanitizerRejections)
}

func TestRecordTaskSubmission(t *testing.T) {
	TasksSubmitted.Reset()
	RecordTaskSubmission("default")
	RecordTaskSubmission("default")
}

func TestRecordTaskFetch(t *testing.T) {
	TasksFetched.Reset()
	RecordTaskFetch("default")
}

func TestRecordTaskCompletion(t *testing.T) {
	TasksCompleted.Reset()
	TaskDuration.Reset()

	RecordTaskCompletion("default", "success", 1.5)
	RecordTaskCompletion("default", "failed", 0.5)
}

func TestRecordTaskRetry(t *testing.T) {
	TaskRetries.Reset()
	RecordTaskRetry("default")
	RecordTaskRetry("default")
}

func TestRecordTaskSwept(t *testing.T) {
	TasksSwept.Reset()
	RecordTaskSwept("default")
}

func TestUpdateQueueDepth(t *testing.T) {
	QueueDepth.Reset()
	UpdateQueueDepth("default", 100)
	UpdateQueueDepth("other", 500)
}

func TestSetActiveWorkers(t *testing.T) {
	SetActiveWorkers(5)
	SetActiveWorkers(10)
	SetActiveWorkers(0)
}

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestDuration.Reset()
	HTTPRequestsTotal.Reset()

	RecordHTTPRequest("GET", "/api/v1/queues/{name}/tasks", "200", 0.05)
	RecordHTTPRequest("POST", "/api/v1/queues/{name}/tasks", "201", 0.1)
	RecordHTTPRequest("GET", "/api/v1/queues/{name}/tasks/{id}", "404", 0.01)
}

func TestRecordStoreOperation(t *testing.T) {
	StoreOperationDuration.Reset()
	RecordStoreOperation("find_one_and_update", 0.001)
	RecordStoreOperation("insert_one", 0.0005)
}

func TestRecordStoreError(t *testing.T) {
	StoreErrors.Reset()
	RecordStoreError("find_one_and_update")
}

func TestRecordSanitizerRejection(t *testing.T) {
	SanitizerRejections.Reset()
	RecordSanitizerRejection("reserved_field")
	RecordSanitizerRejection("operator_key")
}
