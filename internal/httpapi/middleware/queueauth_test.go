package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maumercado/taskqueue/internal/apperr"
	"github.com/maumercado/taskqueue/internal/task"
)

type fakeAuthenticator struct {
	queue *task.Queue
	err   error
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context, queueName, password string) (*task.Queue, error) {
	return f.queue, f.err
}

func withQueueNameParam(req *http.Request, queueName string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("queueName", queueName)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestQueueAuth_Success(t *testing.T) {
	q := &task.Queue{ID: "q1", QueueName: "orders"}
	var seen *task.Queue

	handler := QueueAuth(&fakeAuthenticator{queue: q})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = QueueFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/queues/orders", nil)
	req = withQueueNameParam(req, "orders")
	req.Header.Set("X-Queue-Password", "secret")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "q1", seen.ID)
}

func TestQueueAuth_WrongPassword(t *testing.T) {
	handler := QueueAuth(&fakeAuthenticator{err: apperr.New(apperr.NotFound, "queue %q not found", "orders")})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be reached")
		}))

	req := httptest.NewRequest(http.MethodGet, "/queues/orders", nil)
	req = withQueueNameParam(req, "orders")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.NotFound, http.StatusNotFound},
		{apperr.Conflict, http.StatusConflict},
		{apperr.BadRequest, http.StatusBadRequest},
		{apperr.InvalidTransition, http.StatusConflict},
		{apperr.Internal, http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, statusFor(c.kind))
	}
}
