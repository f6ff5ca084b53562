// Package httpapi wires the queue/task/worker services to a chi-routed
// REST surface, structurally grounded on the teacher's internal/api.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maumercado/taskqueue/internal/config"
	"github.com/maumercado/taskqueue/internal/httpapi/handlers"
	apimiddleware "github.com/maumercado/taskqueue/internal/httpapi/middleware"
	"github.com/maumercado/taskqueue/internal/queueservice"
	"github.com/maumercado/taskqueue/internal/taskservice"
	"github.com/maumercado/taskqueue/internal/workerservice"
)

// Server is the HTTP front end over the service layer.
type Server struct {
	router        *chi.Mux
	config        *config.Config
	queueHandler  *handlers.QueueHandler
	taskHandler   *handlers.TaskHandler
	workerHandler *handlers.WorkerHandler
}

// NewServer builds a Server wired to the given services.
func NewServer(cfg *config.Config, queues *queueservice.Service, tasks *taskservice.Service, workers *workerservice.Service) *Server {
	s := &Server{
		router:        chi.NewRouter(),
		config:        cfg,
		queueHandler:  handlers.NewQueueHandler(queues),
		taskHandler:   handlers.NewTaskHandler(tasks),
		workerHandler: handlers.NewWorkerHandler(workers),
	}

	s.setupMiddleware()
	s.setupRoutes(queues)

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(apimiddleware.RequestLogger())
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.Heartbeat("/health"))
}

func (s *Server) setupRoutes(queues *queueservice.Service) {
	authCfg := &apimiddleware.AuthConfig{
		Enabled:   s.config.Auth.Enabled,
		JWTSecret: s.config.Auth.JWTSecret,
		APIKeys:   apiKeySet(s.config.Auth.APIKeys),
	}

	s.router.Route("/queues", func(r chi.Router) {
		r.Use(chimiddleware.AllowContentType("application/json"))
		if s.config.Sweeper.RateLimitRPS > 0 {
			r.Use(apimiddleware.ClientRateLimit(s.config.Sweeper.RateLimitRPS))
		}

		// Queue creation is gated by the operator-facing auth layer, not
		// a queue password (the queue doesn't exist yet).
		r.With(apimiddleware.Auth(authCfg)).Post("/", s.queueHandler.Create)

		r.Route("/{queueName}", func(r chi.Router) {
			r.Use(apimiddleware.QueueAuth(queues))

			r.Get("/", s.queueHandler.Get)
			r.Patch("/", s.queueHandler.Update)
			r.Delete("/", s.queueHandler.Delete)

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", s.taskHandler.Submit)
				r.Get("/", s.taskHandler.Query)
				r.Post("/fetch", s.taskHandler.Fetch)
				r.Get("/{taskID}", s.taskHandler.Get)
				r.Patch("/{taskID}", s.taskHandler.Update)
				r.Delete("/{taskID}", s.taskHandler.Delete)
				r.Post("/{taskID}/status", s.taskHandler.ReportStatus)
				r.Post("/{taskID}/heartbeat", s.taskHandler.Heartbeat)
				r.Post("/{taskID}/cancel", s.taskHandler.Cancel)
				r.Post("/{taskID}/reset", s.taskHandler.Reset)
			})

			r.Route("/workers", func(r chi.Router) {
				r.Post("/", s.workerHandler.Register)
				r.Get("/", s.workerHandler.List)
				r.Get("/{workerID}", s.workerHandler.Get)
				r.Post("/{workerID}/status", s.workerHandler.SetStatus)
				r.Delete("/{workerID}", s.workerHandler.Delete)
			})
		})
	})

	if s.config.Metrics.Enabled {
		s.router.Handle(s.config.Metrics.Path, promhttp.Handler())
	}
}

func apiKeySet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

// Router returns the chi router.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
