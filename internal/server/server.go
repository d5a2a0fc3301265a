// Package server runs the HTTP listener and shuts it down gracefully.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/safeboy/safeboy/internal/infra/logger"
)

// Config holds HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns default HTTP server configuration. WriteTimeout leaves room for
// a full LLM call inside chat-ai.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    90 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 20 * time.Second,
	}
}

// Server owns the HTTP listener and the database it closes on shutdown.
type Server struct {
	config Config
	db     *sql.DB
	http   *http.Server
}

func NewServer(db *sql.DB, handler http.Handler, config Config) *Server {
	return &Server{
		config: config,
		db:     db,
		http: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", config.Host, config.Port),
			Handler:           handler,
			ReadTimeout:       config.ReadTimeout,
			ReadHeaderTimeout: config.ReadTimeout,
			WriteTimeout:      config.WriteTimeout,
			IdleTimeout:       config.IdleTimeout,
		},
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully. It returns nil on a
// clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	log := logger.Get()
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.http.Addr).Msg("http server listening")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown drains in-flight requests and closes the database connection.
func (s *Server) Shutdown(ctx context.Context) error {
	log := logger.Get()
	log.Info().Msg("shutting down http server")

	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("database close: %w", err)
	}

	log.Info().Msg("server shutdown complete")
	return nil
}
