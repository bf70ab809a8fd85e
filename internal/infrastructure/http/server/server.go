// Package server provides the HTTP server for the meal plan API
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/nutriplan/mealplan/internal/infrastructure/config"
	"github.com/nutriplan/mealplan/internal/infrastructure/http/handlers"
	"github.com/nutriplan/mealplan/internal/infrastructure/http/middleware"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// Server represents the HTTP server
type Server struct {
	config *config.ServerConfig
	logger *zap.Logger
	router *chi.Mux
	server *http.Server
	plans  *handlers.MealPlanHandlers
	health *handlers.HealthHandlers
}

// NewServer creates a new HTTP server instance
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	plans *handlers.MealPlanHandlers,
	health *handlers.HealthHandlers,
) (*Server, error) {
	s := &Server{
		config: &cfg.Server,
		logger: logger.Named("http"),
		plans:  plans,
		health: health,
	}

	s.router = s.setupRouter()
	s.server = &http.Server{
		Addr:              cfg.Address(),
		Handler:           s.router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
		ErrorLog:          zap.NewStdLog(s.logger),
	}

	if err := http2.ConfigureServer(s.server, &http2.Server{IdleTimeout: cfg.Server.IdleTimeout}); err != nil {
		return nil, err
	}

	return s, nil
}

// Handler returns the root handler, for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures middleware and routes
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Security())
	r.Use(middleware.CORS(s.config.AllowedOrigins))
	r.Use(middleware.MaxBodySize(s.config.MaxBodyBytes))
	r.Use(middleware.Deadline(s.config.RequestTimeout))
	if s.config.EnableCompression {
		r.Use(chimiddleware.Compress(5, "application/json"))
	}

	r.Get("/health", s.health.Liveness)
	r.Get("/health/providers", s.health.Providers)

	r.Route("/DailyMealPlan", func(r chi.Router) {
		r.Post("/UpdateMealPlan/{email}", s.plans.UpdateMealPlan)
		r.Post("/{email}", s.plans.GenerateMealPlan)
	})

	r.Route("/user-meal-plan", func(r chi.Router) {
		r.Get("/get-meal-plan/{email}", s.plans.GetMealPlan)
		r.Post("/add-meal-plan/{email}", s.plans.AddMealPlan)
	})

	return r
}

// Start binds the listener and serves in the background. Bind errors are
// returned synchronously.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}

	s.logger.Info("Starting HTTP server", zap.String("address", ln.Addr().String()))

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
