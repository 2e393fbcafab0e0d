package main

import (
	"context"
	"fmt"
	"log/slog"

	"deployer/internal/config"
	"deployer/internal/diagnostics"
	"deployer/internal/errs"
	"deployer/internal/network"
	"deployer/internal/orchestrator"
	"deployer/internal/retry"
	"deployer/internal/rpc"
	"deployer/internal/sandbox"
	"deployer/internal/services"
	"deployer/internal/storage"
)

// components holds everything a command needs, built once from configuration
type components struct {
	orchestrator *orchestrator.Orchestrator

	// Set depending on the selected mode and configuration
	sandbox    *sandbox.Backend
	rpc        *rpc.Client
	repository *storage.PostgresRepository
}

func setup(ctx context.Context, cfg *config.Config) (*components, error) {
	c := &components{}

	if cfg.DatabaseURL != "" {
		repository, err := storage.NewPostgresRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errs.New(errs.KindStorage, "connecting to database", err)
		}
		if err := repository.EnsureSchema(ctx); err != nil {
			repository.Close()
			return nil, errs.New(errs.KindStorage, "creating schema", err)
		}
		c.repository = repository
		slog.Debug("Database connected successfully")
	}

	backend, err := orchestrator.Select(cfg, orchestrator.Factories{
		Sandbox: func() (orchestrator.Backend, error) {
			store, err := c.sandboxStore(cfg)
			if err != nil {
				return nil, err
			}
			c.sandbox = sandbox.New(store)
			return c.sandbox, nil
		},
		Network: func() (orchestrator.Backend, error) {
			endpoint, err := rpc.Dial(rpc.ClientConfig{
				Endpoint: cfg.RPCServerURL,
				Timeout:  cfg.RPCTimeout,
			})
			if err != nil {
				return nil, err
			}
			key, err := cfg.SigningKey()
			if err != nil {
				return nil, err
			}
			c.rpc = rpc.NewClient(endpoint, retry.NewStrategy(cfg.Retry))
			return network.New(c.rpc, key, cfg.NetworkPassphrase, cfg.Fee).
				WithReporter(diagnostics.NewLogger()), nil
		},
	})
	if err != nil {
		c.Close()
		return nil, err
	}

	pipeline := []services.Service{services.NewPrintService()}
	if c.repository != nil {
		pipeline = append(pipeline, services.NewRecordService(c.repository))
	}
	c.orchestrator = orchestrator.New(backend, pipeline...)

	return c, nil
}

func (c *components) sandboxStore(cfg *config.Config) (sandbox.Store, error) {
	switch cfg.SandboxStore {
	case config.StorePostgres:
		if c.repository == nil {
			return nil, fmt.Errorf("postgres sandbox store requires DATABASE_URL")
		}
		return c.repository, nil
	default:
		return sandbox.NewFileStore(cfg.LedgerFile), nil
	}
}

// Close releases the database pool, if any
func (c *components) Close() {
	if c.repository != nil {
		c.repository.Close()
	}
}
