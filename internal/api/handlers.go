package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"deployer/internal/errs"
	"deployer/internal/models"
	"deployer/internal/orchestrator"
	"deployer/internal/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// handleIndex returns basic deployer information
// GET / - Returns service info and available endpoints
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	info := map[string]interface{}{
		"service":     "Soroban Deployer",
		"version":     "1.0.0",
		"description": "Installs WASM modules and deploys contract instances",
		"mode":        s.deployer.Mode(),
		"endpoints": map[string]string{
			"GET /":                 "This page - Service information",
			"GET /health":           "Health check endpoint",
			"GET /metrics":          "Prometheus metrics for monitoring",
			"GET /deployments":      "List recorded deployments (supports ?limit=, ?offset=)",
			"GET /deployments/{id}": "Latest deployment of a contract",
			"POST /deployments":     "Deploy a contract from wasm (base64) or wasm_hash",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth returns health status
// GET /health - Health check for monitoring systems
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := models.HealthResponse{
		Status:    "healthy",
		Mode:      string(s.deployer.Mode()),
		Timestamp: time.Now().UTC(),
	}

	code := http.StatusOK
	if len(s.checks) > 0 {
		health.Checks = make(map[string]string, len(s.checks))
		for name, check := range s.checks {
			if err := check(r.Context()); err != nil {
				slog.Warn("Health check failed", "check", name, "error", err)
				health.Checks[name] = err.Error()
				health.Status = "unhealthy"
				code = http.StatusServiceUnavailable
				continue
			}
			health.Checks[name] = "ok"
		}
	}

	writeJSON(w, code, health)
}

// handleMetrics returns Prometheus metrics
// GET /metrics - Prometheus scraping endpoint
func (s *Server) handleMetrics() http.Handler {
	return promhttp.Handler()
}

// =============================================================================
// DEPLOYMENT ENDPOINTS
// =============================================================================

// handleListDeployments lists recorded deployments, newest first
// GET /deployments?limit=50&offset=0
func (s *Server) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	if s.records == nil {
		s.sendError(w, "Deployment records require DATABASE_URL", http.StatusServiceUnavailable)
		return
	}

	limit, offset := parsePagination(r.URL.Query())

	deployments, err := s.records.ListDeployments(r.Context(), limit, offset)
	if err != nil {
		slog.Error("Failed to list deployments", "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if deployments == nil {
		deployments = []*models.Deployment{}
	}

	writeJSON(w, http.StatusOK, models.PaginatedResponse{
		Data: deployments,
		Pagination: models.Pagination{
			Limit:  limit,
			Offset: offset,
			Count:  len(deployments),
		},
	})
}

// handleGetDeployment returns the latest deployment of a contract
// GET /deployments/{contract_id}
func (s *Server) handleGetDeployment(w http.ResponseWriter, r *http.Request, contractID string) {
	if s.records == nil {
		s.sendError(w, "Deployment records require DATABASE_URL", http.StatusServiceUnavailable)
		return
	}

	deployment, err := s.records.GetDeployment(r.Context(), contractID)
	if errors.Is(err, storage.ErrNotFound) {
		s.sendError(w, "Deployment not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Failed to get deployment", "contract_id", contractID, "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, deployment)
}

// handleCreateDeployment deploys a contract
// POST /deployments {"wasm": "<base64>"} or {"wasm_hash": "<hex>"}
func (s *Server) handleCreateDeployment(w http.ResponseWriter, r *http.Request) {
	var body models.DeployRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		s.sendError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	req := orchestrator.Request{
		ModuleHash: body.WasmHash,
		Salt:       body.Salt,
		ContractID: body.ContractID,
	}
	if len(body.Wasm) > 0 {
		req.Module = body.Wasm
	}

	// A signed transaction is followed to its outcome even if the client goes away
	ctx := context.WithoutCancel(r.Context())

	s.deployMu.Lock()
	deployment, err := s.deployer.Run(ctx, req)
	s.deployMu.Unlock()

	if err != nil {
		kind := errs.KindOf(err)
		slog.Error("Deployment failed", "kind", kind, "error", err)
		writeJSON(w, statusForKind(kind), models.ErrorResponse{
			Error:   http.StatusText(statusForKind(kind)),
			Message: err.Error(),
			Code:    statusForKind(kind),
			Kind:    kind.String(),
		})
		return
	}

	writeJSON(w, http.StatusCreated, models.DeployResponse{
		ContractID: deployment.ContractID,
		WasmHash:   deployment.WasmHash,
		Mode:       string(deployment.Mode),
	})
}

// sendError sends a JSON error response
func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
}
