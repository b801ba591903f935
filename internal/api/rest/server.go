package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rasxm/simplerss/internal/app"
	"github.com/rasxm/simplerss/internal/entity"
)

// Server represents the REST API server
type Server struct {
	mux         *http.ServeMux
	server      *http.Server
	logger      *slog.Logger
	config      *entity.Config
	fetcher     Fetcher
	transformer Transformer
}

// NewServer creates a new REST API server
func NewServer(cfg *entity.Config, f Fetcher, t Transformer) *Server {
	mux := http.NewServeMux()
	logger := app.Logger()

	// A response is only written once the upstream fetch has finished.
	writeTimeout := 30 * time.Second

	if fetchTimeout := cfg.Feed.FetchTimeout.Duration; fetchTimeout+10*time.Second > writeTimeout {
		writeTimeout = fetchTimeout + 10*time.Second
	}

	server := &Server{
		mux:         mux,
		logger:      logger,
		config:      cfg,
		fetcher:     f,
		transformer: t,
		server: &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           nil,               // Will be set in Run
			ReadHeaderTimeout: 10 * time.Second,  // Mitigate Slowloris
			ReadTimeout:       30 * time.Second,  // Time to read entire request (including body)
			WriteTimeout:      writeTimeout,      // Time to write response
			IdleTimeout:       120 * time.Second, // Keep-alive timeout
		},
	}

	server.registerHandlers()

	return server
}

// registerHandlers sets up all API routes
func (s *Server) registerHandlers() {
	NewRSSHandler(s.mux, s.config.Sources, s.fetcher, s.transformer)

	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Registered last as it answers every remaining GET path
	NewStaticHandler(s.mux, s.config.Server.StaticRoot, s.config.Server.IndexFile)
}

// Handler returns the router wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	return Logger(s.mux)
}

// Run starts the server and blocks until the context is canceled
func (s *Server) Run(ctx context.Context) error {
	s.server.Handler = s.Handler()

	// Set BaseContext to pass the parent context
	s.server.BaseContext = func(_ net.Listener) context.Context { return ctx }

	s.server.RegisterOnShutdown(func() {
		s.logger.Info("Server is shutting down...")
	})

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("Starting HTTP server",
			"port", s.config.Server.Port,
			"static_root", s.config.Server.StaticRoot,
			"sources", len(s.config.Sources),
		)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	return nil
}
