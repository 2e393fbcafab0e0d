package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"deployer/internal/models"
	"deployer/internal/orchestrator"
)

// Deployer runs deployments for the API
type Deployer interface {
	Run(ctx context.Context, req orchestrator.Request) (*models.Deployment, error)
	Mode() models.DeploymentMode
}

// DeploymentReader reads stored deployment records
type DeploymentReader interface {
	GetDeployment(ctx context.Context, contractID string) (*models.Deployment, error)
	ListDeployments(ctx context.Context, limit, offset int) ([]*models.Deployment, error)
}

// HealthCheck reports the health of one dependency
type HealthCheck func(ctx context.Context) error

// Server represents the HTTP API server
// Provides endpoints for Prometheus metrics, health checks, and deployments
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	deployer   Deployer
	records    DeploymentReader // nil when no database is configured
	checks     map[string]HealthCheck
	port       int

	// deployMu serialises deployments so the sandbox state and the account
	// sequence have a single writer
	deployMu sync.Mutex
}

// NewServer creates a new API server instance
func NewServer(port int, deployer Deployer, records DeploymentReader) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 2 * time.Minute, // a network deployment waits for two confirmations
			IdleTimeout:  60 * time.Second,
		},
		mux:      mux,
		deployer: deployer,
		records:  records,
		checks:   make(map[string]HealthCheck),
		port:     port,
	}

	// Register all HTTP routes
	s.registerRoutes()

	return s
}

// AddHealthCheck registers a dependency reported by GET /health
func (s *Server) AddHealthCheck(name string, check HealthCheck) {
	s.checks[name] = check
}

// Handler exposes the routes, e.g. for httptest
func (s *Server) Handler() http.Handler {
	return s.mux
}

// registerRoutes sets up all HTTP routes
func (s *Server) registerRoutes() {
	// Core endpoints
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", s.handleMetrics())

	// Deployment endpoints
	s.mux.HandleFunc("/deployments", s.handleDeployments)
	s.mux.HandleFunc("/deployments/", s.handleDeploymentRoutes)
}

// handleDeployments routes the collection endpoint (without trailing slash)
func (s *Server) handleDeployments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListDeployments(w, r)
	case http.MethodPost:
		s.handleCreateDeployment(w, r)
	default:
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleDeploymentRoutes routes deployment sub-endpoints (with trailing slash)
func (s *Server) handleDeploymentRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	contractID := strings.TrimPrefix(r.URL.Path, "/deployments/")
	if contractID == "" || strings.Contains(contractID, "/") {
		s.sendError(w, "Endpoint not found", http.StatusNotFound)
		return
	}

	// GET /deployments/{contract_id}
	s.handleGetDeployment(w, r, contractID)
}

// Start starts the HTTP server in a goroutine
// Returns immediately after starting the server
func (s *Server) Start() error {
	go func() {
		slog.Info("API server starting",
			"port", s.port,
			"mode", s.deployer.Mode(),
			"endpoints", []string{"/", "/health", "/metrics", "/deployments"},
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("API server error", "error", err)
		}
	}()

	// Give the server a moment to start
	time.Sleep(100 * time.Millisecond)

	return nil
}

// Shutdown gracefully shuts down the HTTP server
// Waits for active connections to close or context to timeout
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("API server shutting down...")
	return s.httpServer.Shutdown(ctx)
}
