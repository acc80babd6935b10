// Package api exposes health index scoring over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/opensource-finance/fhi/internal/assessment"
	"github.com/opensource-finance/fhi/internal/domain"
	"github.com/opensource-finance/fhi/internal/rules"
	"github.com/opensource-finance/fhi/internal/trend"
)

// Deps are the services the API routes to. Repo, Cache and Bus may be nil.
type Deps struct {
	Repo      domain.Repository
	Cache     domain.Cache
	Bus       domain.EventBus
	Rules     *rules.Engine
	Processor *assessment.Processor
	Trend     *trend.Service

	Quota            domain.QuotaConfig
	BatchConcurrency int
	Version          string
}

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, deps Deps) *Server {
	handler := NewHandler(deps)
	router := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", TenantIDHeader, RequestIDHeader, TraceIDHeader},
		ExposedHeaders: []string{RequestIDHeader, TraceIDHeader},
		MaxAge:         86400,
	}))
	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	// Health endpoints (no tenant required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	router.Group(func(r chi.Router) {
		r.Use(TenantMiddleware)
		r.Use(QuotaMiddleware(deps.Cache, deps.Quota))

		// Scoring
		r.Post("/score", handler.Score)
		r.Post("/score/batch", handler.ScoreBatch)
		r.Post("/simulate", handler.Simulate)
		r.Post("/explain", handler.Explain)
		r.Post("/benchmark", handler.Benchmark)

		// History
		r.Get("/assessments/{id}", handler.GetAssessment)
		r.Get("/users/{userId}/assessments", handler.ListUserAssessments)
		r.Get("/users/{userId}/trend", handler.UserTrend)

		// Achievement rules
		r.Get("/achievements", handler.ListAchievements)
		r.Post("/achievements", handler.CreateAchievement)
		r.Post("/achievements/reload", handler.ReloadAchievements)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
