package orchestrator

import (
	"fmt"
	"log/slog"

	"deployer/internal/config"
)

// Factories build the backend of each mode. Only the selected one is called.
type Factories struct {
	Sandbox func() (Backend, error)
	Network func() (Backend, error)
}

// Select picks the backend from configuration: a configured RPC endpoint
// means network mode, anything else the local sandbox
func Select(cfg *config.Config, f Factories) (Backend, error) {
	build, mode := f.Network, "network"
	if cfg.IsNoNetwork() {
		build, mode = f.Sandbox, "sandbox"
	}
	if build == nil {
		return nil, fmt.Errorf("no %s backend available", mode)
	}

	backend, err := build()
	if err != nil {
		return nil, fmt.Errorf("failed to create %s backend: %w", mode, err)
	}

	slog.Debug("Backend selected", "mode", backend.Mode())
	return backend, nil
}
