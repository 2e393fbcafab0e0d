package services

import (
	"context"

	"deployer/internal/debug"
	"deployer/internal/models"
)

// PrintService dumps every completed deployment at debug level
type PrintService struct{}

// NewPrintService creates a new PrintService instance
func NewPrintService() *PrintService {
	return &PrintService{}
}

// Process prints the deployment
func (s *PrintService) Process(_ context.Context, deployment *models.Deployment) error {
	debug.PrintDeployment(deployment)
	return nil
}

// Name returns the service name
func (s *PrintService) Name() string {
	return "PrintService"
}
