package orchestrator

import (
	"context"
	"encoding/hex"
	"log/slog"
	"time"

	"deployer/internal/address"
	"deployer/internal/errs"
	"deployer/internal/metrics"
	"deployer/internal/models"
	"deployer/internal/network"
	"deployer/internal/services"

	"github.com/google/uuid"
)

// Backend installs modules and creates contract instances. Sandbox and
// network backends implement it.
type Backend interface {
	Mode() models.DeploymentMode
	Install(ctx context.Context, module []byte) (address.Hash, error)
	CreateInstance(ctx context.Context, moduleHash address.Hash, opts models.InstanceOptions) (address.ContractID, error)
}

// deployerInfo is implemented by backends that deploy on behalf of an account
type deployerInfo interface {
	Address() string
	Passphrase() string
}

// Request describes one deployment. Module bytes take precedence over
// ModuleHash when both are set.
type Request struct {
	Module     []byte
	ModuleHash string // hex or contract strkey form of a module hash
	Salt       string // hex, network mode only
	ContractID string // sandbox mode only
}

// Orchestrator runs the install and create phases against a single backend
type Orchestrator struct {
	backend  Backend
	services []services.Service
	now      func() time.Time
}

// New creates a new Orchestrator with the given backend and post-deployment services
func New(backend Backend, services ...services.Service) *Orchestrator {
	return &Orchestrator{
		backend:  backend,
		services: services,
		now:      time.Now,
	}
}

// Mode reports the mode of the selected backend
func (o *Orchestrator) Mode() models.DeploymentMode {
	return o.backend.Mode()
}

// Deploy installs the module if given, creates an instance and returns its contract id
func (o *Orchestrator) Deploy(ctx context.Context, req Request) (string, error) {
	deployment, err := o.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return deployment.ContractID, nil
}

// Run is Deploy returning the full deployment record
func (o *Orchestrator) Run(ctx context.Context, req Request) (*models.Deployment, error) {
	deployment, err := o.run(ctx, req)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues(errs.KindOf(err).String()).Inc()
		return nil, err
	}
	metrics.DeploymentsCompleted.Inc()

	for _, service := range o.services {
		if err := service.Process(ctx, deployment); err != nil {
			slog.Error("Service processing failed",
				"service", service.Name(),
				"contract_id", deployment.ContractID,
				"error", err,
			)
		}
	}

	return deployment, nil
}

func (o *Orchestrator) run(ctx context.Context, req Request) (*models.Deployment, error) {
	if req.Module == nil && req.ModuleHash == "" {
		return nil, errs.ErrModuleSourceMissing
	}

	opts, err := o.instanceOptions(req)
	if err != nil {
		return nil, err
	}

	var moduleHash address.Hash
	if req.Module == nil {
		moduleHash, err = address.ParseHash(req.ModuleHash)
		if err != nil {
			return nil, err
		}
	}

	var receipt network.Receipt
	ctx = network.WithReceipt(ctx, &receipt)

	slog.Debug("Orchestrator: deployment started",
		"mode", o.backend.Mode(),
		"install", req.Module != nil,
	)

	if req.Module != nil {
		if req.ModuleHash != "" {
			slog.Warn("Both a module and a module hash were given, installing the module")
		}
		moduleHash, err = o.backend.Install(ctx, req.Module)
		if err != nil {
			return nil, err
		}
	}

	contractID, err := o.backend.CreateInstance(ctx, moduleHash, opts)
	if err != nil {
		return nil, err
	}

	deployment := &models.Deployment{
		ID:         uuid.NewString(),
		ContractID: contractID.String(),
		WasmHash:   moduleHash.HexString(),
		WasmSize:   len(req.Module),
		Mode:       o.backend.Mode(),
		DeployedAt: o.now().UTC(),
	}
	if info, ok := o.backend.(deployerInfo); ok {
		deployment.Deployer = info.Address()
		deployment.NetworkPassphrase = info.Passphrase()
		deployment.Salt = hex.EncodeToString(receipt.Salt[:])
	}
	if receipt.Install != nil {
		deployment.InstallTxHash = receipt.Install.Hash
	}
	if receipt.Create != nil {
		deployment.CreateTxHash = receipt.Create.Hash
	}
	deployment.FeeCharged = receipt.FeeCharged()

	slog.Info("Orchestrator: contract deployed",
		"contract_id", deployment.ContractID,
		"wasm_hash", deployment.WasmHash,
		"mode", deployment.Mode,
	)
	return deployment, nil
}

// Upload installs a module without creating an instance
func (o *Orchestrator) Upload(ctx context.Context, module []byte) (address.Hash, error) {
	if module == nil {
		return address.Hash{}, errs.ErrModuleSourceMissing
	}
	moduleHash, err := o.backend.Install(ctx, module)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues(errs.KindOf(err).String()).Inc()
		return address.Hash{}, err
	}
	return moduleHash, nil
}

// instanceOptions validates the mode specific options before any I/O
func (o *Orchestrator) instanceOptions(req Request) (models.InstanceOptions, error) {
	var opts models.InstanceOptions

	switch o.backend.Mode() {
	case models.ModeSandbox:
		if req.Salt != "" {
			return opts, &errs.Error{
				Kind:  errs.KindMalformedInput,
				Op:    "a salt is only used when deploying to a network",
				Input: req.Salt,
			}
		}
		opts.ContractID = req.ContractID
	case models.ModeNetwork:
		if req.ContractID != "" {
			return opts, &errs.Error{
				Kind:  errs.KindMalformedInput,
				Op:    "an explicit contract id is only supported in sandbox mode",
				Input: req.ContractID,
			}
		}
		if req.Salt != "" {
			salt, err := address.ParseSalt(req.Salt)
			if err != nil {
				return opts, err
			}
			opts.Salt = &salt
		}
	}

	return opts, nil
}
