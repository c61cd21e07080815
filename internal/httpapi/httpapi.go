// Package httpapi is the daemon's HTTP façade: chat SSE and websocket
// transports, the planner, knowledge-base ingestion/listing, feedback,
// and status routes, all delegating to a service.Service.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ziadkadry99/agentgw/internal/service"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Config configures the façade's listener, auth, and CORS policy.
type Config struct {
	Port     int
	APIKey   string // if set, every /api/* request must carry Authorization: Bearer <APIKey>
	AllowAll bool   // allow all CORS origins (dev mode)
}

// Server is the daemon's HTTP façade over a Service.
type Server struct {
	cfg        Config
	svc        *service.Service
	router     chi.Router
	httpServer *http.Server
}

// New builds a Server with its router fully assembled.
func New(cfg Config, svc *service.Service) *Server {
	s := &Server{cfg: cfg, svc: svc}
	s.router = s.buildRouter()
	return s
}

// Router returns the assembled chi router, exposed for tests that want to
// drive requests through httptest without starting a real listener.
func (s *Server) Router() chi.Router { return s.router }

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleIndex)

	r.Route("/api", func(api chi.Router) {
		api.Use(s.bearerAuth)

		api.Post("/chat", s.handleChat)
		api.Post("/run", s.handleRun)
		api.Post("/route", s.handleRoute)
		api.Post("/ingest", s.handleIngest)
		api.Get("/documents", s.handleListDocuments)
		api.Delete("/documents", s.handleDeleteDocuments)
		api.Post("/feedback", s.handleFeedback)
		api.Get("/skills", s.handleListSkills)
		api.Get("/sessions", s.handleListSessions)
		api.Get("/sessions/{id}/messages", s.handleSessionMessages)
	})

	r.Get("/daemon/status", s.handleDaemonStatus)
	r.Get("/ws/chat", s.handleChatWebsocket)

	return r
}

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      0, // chat SSE streams can run far longer than a fixed write deadline
		IdleTimeout:       120 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
