package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maumercado/taskqueue/internal/apperr"
	"github.com/maumercado/taskqueue/internal/logger"
	"github.com/maumercado/taskqueue/internal/task"
)

type queueContextKey string

const queueCtxKey queueContextKey = "queue"

// QueueAuthenticator is the narrow queueservice surface QueueAuth needs.
type QueueAuthenticator interface {
	Authenticate(ctx context.Context, queueName, password string) (*task.Queue, error)
}

// QueueAuth authenticates a request against the {queueName} path segment
// and the X-Queue-Password header, and stashes the resolved queue in the
// request context. Every task/worker route under /queues/{queueName} goes
// through this instead of the operator-facing Auth middleware, because a
// queue's password is a queue-scoped secret, not an operator credential.
func QueueAuth(authenticator QueueAuthenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			queueName := chi.URLParam(r, "queueName")
			password := r.Header.Get("X-Queue-Password")

			q, err := authenticator.Authenticate(r.Context(), queueName, password)
			if err != nil {
				WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), queueCtxKey, q)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// QueueFromContext retrieves the queue resolved by QueueAuth.
func QueueFromContext(ctx context.Context) *task.Queue {
	q, _ := ctx.Value(queueCtxKey).(*task.Queue)
	return q
}

// NewContextWithQueue returns a copy of ctx carrying q, the same way
// QueueAuth does. Handler tests use this to exercise a handler directly
// without a full middleware round trip.
func NewContextWithQueue(ctx context.Context, q *task.Queue) context.Context {
	return context.WithValue(ctx, queueCtxKey, q)
}

// WriteError maps an apperr.Kind to an HTTP status and writes a JSON
// error body. Shared by QueueAuth and every handler package so the
// kind-to-status mapping lives in exactly one place.
func WriteError(w http.ResponseWriter, err error) {
	status := statusFor(apperr.KindOf(err))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]string{"error": http.StatusText(status), "message": err.Error()}
	if encErr := json.NewEncoder(w).Encode(body); encErr != nil {
		logger.Error().Err(encErr).Msg("failed to encode error response")
	}
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.BadRequest:
		return http.StatusBadRequest
	case apperr.InvalidTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
