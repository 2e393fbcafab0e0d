package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"deployer/internal/address"
	"deployer/internal/errs"
	"deployer/internal/metrics"
	"deployer/internal/models"
)

// Backend installs modules and creates instances directly in the local ledger state
type Backend struct {
	store Store
	now   func() time.Time
}

// New creates a sandbox Backend persisting through store
func New(store Store) *Backend {
	return &Backend{
		store: store,
		now:   time.Now,
	}
}

// Mode reports the sandbox deployment mode
func (b *Backend) Mode() models.DeploymentMode {
	return models.ModeSandbox
}

// Install stores the module under its hash. Installing the same bytes twice
// leaves a single entry and returns the same hash.
func (b *Backend) Install(ctx context.Context, module []byte) (address.Hash, error) {
	moduleHash := address.HashModule(module)

	state, err := b.load(ctx)
	if err != nil {
		return address.Hash{}, err
	}

	existing, ok := state.Modules[moduleHash]
	if ok && bytes.Equal(existing, module) {
		slog.Debug("Sandbox: module already installed", "wasm_hash", moduleHash.HexString())
		return moduleHash, nil
	}

	state.Modules[moduleHash] = append([]byte(nil), module...)
	if err := b.save(ctx, state); err != nil {
		return address.Hash{}, err
	}

	metrics.ModulesInstalled.WithLabelValues(string(models.ModeSandbox)).Inc()
	slog.Info("Sandbox: module installed",
		"wasm_hash", moduleHash.HexString(),
		"size", len(module),
	)

	return moduleHash, nil
}

// CreateInstance binds a contract id to an installed module
func (b *Backend) CreateInstance(ctx context.Context, moduleHash address.Hash, opts models.InstanceOptions) (address.ContractID, error) {
	var (
		contractID address.ContractID
		alias      string
		err        error
	)

	if opts.ContractID != "" {
		contractID, err = address.ResolveSandboxID(opts.ContractID)
		if err != nil {
			return address.ContractID{}, err
		}
		if _, parseErr := address.ParseContractID(opts.ContractID); parseErr != nil {
			alias = opts.ContractID
		}
	} else {
		contractID, err = address.RandomContractID()
		if err != nil {
			return address.ContractID{}, err
		}
	}

	state, err := b.load(ctx)
	if err != nil {
		return address.ContractID{}, err
	}

	if _, ok := state.Modules[moduleHash]; !ok {
		slog.Warn("Sandbox: module hash is not installed in the local ledger",
			"wasm_hash", moduleHash.HexString(),
		)
	}

	if previous, ok := state.Instances[contractID]; ok && previous.WasmHash != moduleHash {
		slog.Warn("Sandbox: rebinding contract to a different module",
			"contract_id", contractID.String(),
			"previous_wasm_hash", previous.WasmHash.HexString(),
			"wasm_hash", moduleHash.HexString(),
		)
	}

	state.Instances[contractID] = models.ContractInstance{
		WasmHash:  moduleHash,
		Alias:     alias,
		CreatedAt: b.now().UTC(),
	}
	if err := b.save(ctx, state); err != nil {
		return address.ContractID{}, err
	}

	metrics.InstancesCreated.WithLabelValues(string(models.ModeSandbox)).Inc()
	slog.Info("Sandbox: contract instance created",
		"contract_id", contractID.String(),
		"wasm_hash", moduleHash.HexString(),
	)

	return contractID, nil
}

// Lookup returns the module hash a sandbox contract is bound to
func (b *Backend) Lookup(ctx context.Context, id string) (address.Hash, error) {
	contractID, err := address.ResolveSandboxID(id)
	if err != nil {
		return address.Hash{}, err
	}

	state, err := b.load(ctx)
	if err != nil {
		return address.Hash{}, err
	}

	instance, ok := state.Instances[contractID]
	if !ok {
		return address.Hash{}, fmt.Errorf("contract not found: %s", id)
	}
	return instance.WasmHash, nil
}

// Module returns the code stored under a hash
func (b *Backend) Module(ctx context.Context, moduleHash address.Hash) ([]byte, bool, error) {
	state, err := b.load(ctx)
	if err != nil {
		return nil, false, err
	}
	code, ok := state.Modules[moduleHash]
	return code, ok, nil
}

// State returns a snapshot of the sandbox ledger
func (b *Backend) State(ctx context.Context) (*models.LedgerState, error) {
	return b.load(ctx)
}

func (b *Backend) load(ctx context.Context) (*models.LedgerState, error) {
	state, err := b.store.Load(ctx)
	if err != nil {
		return nil, errs.New(errs.KindStorage, "loading sandbox state", err)
	}
	state.Normalize()
	return state, nil
}

func (b *Backend) save(ctx context.Context, state *models.LedgerState) error {
	if err := b.store.Save(ctx, state); err != nil {
		return errs.New(errs.KindStorage, "saving sandbox state", err)
	}
	return nil
}
