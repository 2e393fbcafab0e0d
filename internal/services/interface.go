package services

import (
	"context"

	"deployer/internal/models"
)

// Service defines the interface that every post-deployment service must implement
type Service interface {
	// Process handles one completed deployment. An error is logged by the
	// caller and never undoes the deployment.
	Process(ctx context.Context, deployment *models.Deployment) error

	// Name returns the service name for logging
	Name() string
}
