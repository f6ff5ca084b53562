package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/maumercado/taskqueue/internal/logger"
	"github.com/maumercado/taskqueue/internal/metrics"
)

// RequestLogger returns a middleware that logs one structured line per
// request and records it in the HTTP metrics.
func RequestLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			statusStr := http.StatusText(status)

			logger.Info().
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Dur("duration", duration).
				Int("bytes", ww.BytesWritten()).
				Msg("http request")

			metrics.RecordHTTPRequest(r.Method, routePattern(r), statusStr, duration.Seconds())
		})
	}
}

// routePattern prefers chi's matched route pattern ("/queues/{name}/tasks")
// over the raw path, so per-route metrics don't fan out per task ID.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
