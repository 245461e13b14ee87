package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/eventhub/internal/bootstrap"
	"github.com/yigit/eventhub/internal/config"
)

// Server holds the state for the HTTP server.
type Server struct {
	config *config.Config
	router *gin.Engine
	logger zerolog.Logger
	http   *http.Server
}

// NewServer creates a server over already built dependencies
func NewServer(deps *bootstrap.Dependencies) *Server {
	return &Server{
		config: deps.Config,
		router: bootstrap.SetupRouter(deps.Config, deps, deps.Logger),
		logger: deps.Logger,
	}
}

// Handler exposes the configured router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("HTTP server listening")
		serverErrors <- s.http.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error starting server: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info().Msg("Shutdown requested, stopping HTTP server...")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if s.http == nil {
		return nil
	}
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Error().Err(err).Msg("HTTP server shutdown error")
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info().Msg("HTTP server gracefully stopped.")
	return nil
}
