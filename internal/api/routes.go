package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maumercado/nntp-queue/internal/api/handlers"
	apiMiddleware "github.com/maumercado/nntp-queue/internal/api/middleware"
	"github.com/maumercado/nntp-queue/internal/api/websocket"
	"github.com/maumercado/nntp-queue/internal/config"
	"github.com/maumercado/nntp-queue/internal/events"
	"github.com/maumercado/nntp-queue/internal/queue"
)

// Server represents the HTTP server
type Server struct {
	router       *chi.Mux
	queue        *queue.Queue
	config       *config.Config
	taskHandler  *handlers.TaskHandler
	adminHandler *handlers.AdminHandler
	wsHub        *websocket.Hub
	wsHandler    *websocket.Handler
	publisher    *events.RedisPubSub
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, q *queue.Queue, publisher *events.RedisPubSub) *Server {
	wsHub := websocket.NewHub(publisher)

	s := &Server{
		router:       chi.NewRouter(),
		queue:        q,
		config:       cfg,
		taskHandler:  handlers.NewTaskHandler(q),
		adminHandler: handlers.NewAdminHandler(q),
		wsHub:        wsHub,
		wsHandler:    websocket.NewHandler(wsHub),
		publisher:    publisher,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(apiMiddleware.RequestLogger())

	// Recoverer
	s.router.Use(middleware.Recoverer)

	// Heartbeat endpoint for load balancers
	s.router.Use(middleware.Heartbeat("/health"))
}

func (s *Server) setupRoutes() {
	// API v1 routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Content type for API routes
		r.Use(middleware.AllowContentType("application/json"))

		// Rate limiting for API routes
		if s.config.HTTP.RateLimitRPS > 0 {
			r.Use(apiMiddleware.ClientRateLimit(s.config.HTTP.RateLimitRPS))
		}

		// Task routes
		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", s.taskHandler.Create)
			r.Get("/", s.taskHandler.List)
			r.Get("/{taskID}", s.taskHandler.Get)
			r.Delete("/{taskID}", s.taskHandler.Remove)
			r.Post("/{taskID}/stop", s.taskHandler.Stop)
			r.Post("/{taskID}/restart", s.taskHandler.Restart)
			r.Post("/{taskID}/move", s.taskHandler.Move)
		})
	})

	// Admin routes
	s.router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))

		r.Get("/health", s.adminHandler.HealthCheck)
		r.Get("/stats", s.adminHandler.GetStats)
		r.Get("/pools", s.adminHandler.GetPools)
		r.Get("/online", s.adminHandler.GetOnline)
		r.Post("/online", s.adminHandler.SetOnline)
		r.Delete("/tasks/latest", s.adminHandler.RemoveLatestTask)
	})

	// WebSocket endpoint
	s.router.Get("/ws", s.wsHandler.ServeWS)

	// Metrics endpoint
	if s.config.Metrics.Enabled {
		s.router.Handle(s.config.Metrics.Path, promhttp.Handler())
	}
}

// Start starts the WebSocket hub
func (s *Server) Start(ctx context.Context) {
	go s.wsHub.Run(ctx)
}

// Stop stops the WebSocket hub
func (s *Server) Stop() {
	s.wsHub.Stop()
}

// Router returns the chi router
func (s *Server) Router() *chi.Mux {
	return s.router
}

// ServeHTTP implements the http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Publisher returns the event publisher
func (s *Server) Publisher() *events.RedisPubSub {
	return s.publisher
}
