// Package api provides the HTTP command surface for Hearth Core.
//
// It exposes the assistant pathways (text, audio trigger, transcribe),
// recording control and health endpoints to wall panels and scripts.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hearth-home/hearth-core/internal/capture"
	"github.com/hearth-home/hearth-core/internal/infrastructure/config"
	"github.com/hearth-home/hearth-core/internal/infrastructure/logging"
	"github.com/hearth-home/hearth-core/internal/interaction"
	"github.com/hearth-home/hearth-core/internal/orchestrator"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Orchestrator is the engine surface the API drives.
type Orchestrator interface {
	Handle(ctx context.Context, req orchestrator.Request) (*orchestrator.Summary, error)
	Last() *orchestrator.Summary
	StartRecording() error
	StopRecording() error
	RecordingState() capture.State
	ResetRecording()
}

// HealthChecker probes one dependency.
type HealthChecker func(ctx context.Context) error

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config       config.APIConfig
	Logger       *logging.Logger
	Engine       Orchestrator
	Interactions interaction.Repository

	// Health maps dependency name to its probe. All probes run on
	// every /health call.
	Health map[string]HealthChecker

	Version string
}

// Server is the HTTP API server for Hearth Core.
type Server struct {
	cfg          config.APIConfig
	logger       *logging.Logger
	engine       Orchestrator
	interactions interaction.Repository
	health       map[string]HealthChecker
	version      string
	server       *http.Server
}

// New creates an API server. It is not listening until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}

	return &Server{
		cfg:          deps.Config,
		logger:       deps.Logger,
		engine:       deps.Engine,
		interactions: deps.Interactions,
		health:       deps.Health,
		version:      deps.Version,
	}, nil
}

// Start launches the HTTP listener in a background goroutine. The
// server is stopped with Close.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server, waiting for in-flight
// requests up to the shutdown timeout.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
