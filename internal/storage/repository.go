package storage

import (
	"context"
	"errors"

	"deployer/internal/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// Repository defines the interface for all storage operations
type Repository interface {
	// Deployments
	SaveDeployment(ctx context.Context, deployment *models.Deployment) error
	GetDeployment(ctx context.Context, contractID string) (*models.Deployment, error)
	ListDeployments(ctx context.Context, limit, offset int) ([]*models.Deployment, error)

	// Sandbox ledger state
	Load(ctx context.Context) (*models.LedgerState, error)
	Save(ctx context.Context, state *models.LedgerState) error

	// Health & Maintenance
	EnsureSchema(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
